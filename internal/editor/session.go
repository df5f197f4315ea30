package editor

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"watchlist/internal/domain"
)

// Session runs machines against a line-oriented reader and a writer. One
// session can drive several machines in a row; buffered input carries over.
type Session struct {
	in  *bufio.Reader
	out io.Writer
	Now func() time.Time
}

func NewSession(in io.Reader, out io.Writer) *Session {
	br, ok := in.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(in)
	}
	return &Session{in: br, out: out, Now: time.Now}
}

// Edit walks the menu for item, modifying it in place. It reports whether
// anything changed. A read or write failure, including end of input, aborts
// the session and is returned.
func (s *Session) Edit(item *domain.WorkItem, header string) (bool, error) {
	m := NewEdit(item, s.Now)
	if header != "" {
		if _, err := fmt.Fprintln(s.out, header); err != nil {
			return false, err
		}
	}
	err := s.Run(m)
	return m.Changed(), err
}

// Create walks a new record from defaults.
func (s *Session) Create() (domain.WorkItem, error) {
	var item domain.WorkItem
	m := NewCreate(&item, s.Now)
	if err := s.Run(m); err != nil {
		return domain.WorkItem{}, err
	}
	return item, nil
}

// Run drives m until it is done.
func (s *Session) Run(m *Machine) error {
	for !m.Done() {
		if fb := m.Feedback(); fb != "" {
			if _, err := fmt.Fprintf(s.out, "! %s\n", fb); err != nil {
				return err
			}
		}
		if m.State() == StateTop {
			if _, err := io.WriteString(s.out, m.View()); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(s.out, m.Prompt()); err != nil {
			return err
		}
		line, err := s.readLine()
		if err != nil {
			return err
		}
		m.Step(line)
	}
	return nil
}

// readLine returns the next line without its terminator. A final line without
// a newline is still returned; end of input after that is an error.
func (s *Session) readLine() (string, error) {
	line, err := s.in.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return line, nil
		}
		return "", fmt.Errorf("read input: %w", err)
	}
	return line, nil
}
