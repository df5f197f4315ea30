package watchlistsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal client for the read-only watchlist HTTP view.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Item is one record as the API returns it.
type Item struct {
	Title   string   `json:"title"`
	Year    uint16   `json:"year"`
	Medium  string   `json:"medium"`
	Status  string   `json:"status"`
	Season  *uint16  `json:"season,omitempty"`
	Episode *uint16  `json:"episode,omitempty"`
	Ongoing bool     `json:"ongoing"`
	Tracker string   `json:"tracker,omitempty"`
	Watch   string   `json:"watch,omitempty"`
	Updated string   `json:"updated"`
	Notes   []string `json:"notes,omitempty"`
}

// HistoryEntry is one journaled operation.
type HistoryEntry struct {
	ID     string `json:"id"`
	At     string `json:"at"`
	Kind   string `json:"kind"`
	Title  string `json:"title"`
	Before *Item  `json:"before,omitempty"`
	After  *Item  `json:"after,omitempty"`
}

// ItemsQuery narrows Items. Zero values mean no filter.
type ItemsQuery struct {
	Title  string
	Medium string
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Health reports whether the server answers.
func (c *Client) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, "health", &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("unexpected health status %q", resp.Status)
	}
	return nil
}

// Items lists records in file order.
func (c *Client) Items(ctx context.Context, q ItemsQuery) ([]Item, error) {
	params := url.Values{}
	if q.Title != "" {
		params.Set("title", q.Title)
	}
	if q.Medium != "" {
		params.Set("medium", strings.ToLower(q.Medium))
	}
	endpoint := "items"
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	var resp struct {
		Items []Item `json:"items"`
	}
	err := c.do(ctx, endpoint, &resp)
	return resp.Items, err
}

// History returns journal entries, newest first.
func (c *Client) History(ctx context.Context, title string, limit int) ([]HistoryEntry, error) {
	params := url.Values{}
	if title != "" {
		params.Set("title", title)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	endpoint := "history"
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	var resp struct {
		Items []HistoryEntry `json:"items"`
	}
	err := c.do(ctx, endpoint, &resp)
	return resp.Items, err
}

func (c *Client) do(ctx context.Context, endpoint string, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	u := c.base() + "/v0/" + strings.TrimLeft(endpoint, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
