// Package store keeps WorkItems in a flat file, one encoded record per line.
//
// The file is the only source of truth. Reads are lazy and tolerate bad lines;
// appends add one line at the end; edits and removals go through Rewrite, which
// writes every survivor to a fresh temp file and renames it over the original.
package store

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"

	"github.com/sirupsen/logrus"

	"watchlist/internal/codec"
	"watchlist/internal/domain"
)

// maxLine bounds a single record line.
const maxLine = 1 << 20

// Store is bound to one data file and the temp path used by Rewrite.
type Store struct {
	Path     string
	TempPath string
	Logger   logrus.FieldLogger

	// rename swaps the temp file into place; tests replace it to simulate a
	// crash between writing and swapping.
	rename func(oldpath, newpath string) error
}

func New(path, tempPath string, logger logrus.FieldLogger) *Store {
	return &Store{Path: path, TempPath: tempPath, Logger: logger, rename: os.Rename}
}

func (s *Store) logger() logrus.FieldLogger {
	if s.Logger != nil {
		return s.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func (s *Store) swap(oldpath, newpath string) error {
	if s.rename != nil {
		return s.rename(oldpath, newpath)
	}
	return os.Rename(oldpath, newpath)
}

// Result is one element of the record sequence: either an Item or an Err.
type Result struct {
	Line int
	Item domain.WorkItem
	Err  error
}

// Handle is an open data file. Records can be ranged over once.
type Handle struct {
	path string
	f    *os.File
	r    *bufio.Reader
	used bool
}

// Open opens path for reading without parsing anything.
func Open(path string) (*Handle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, classify("open", path, err)
	}
	return &Handle{path: path, f: f, r: bufio.NewReaderSize(f, 64*1024)}, nil
}

func (h *Handle) Path() string { return h.path }

func (h *Handle) Close() error {
	if h == nil || h.f == nil {
		return nil
	}
	err := h.f.Close()
	h.f = nil
	return err
}

// Records yields one Result per non-empty line in file order. A line that
// fails to decode, or is longer than maxLine, yields a *ParseError and the
// sequence goes on. A read failure yields one final error that is not a
// *ParseError. The sequence is single-pass: ranging a second time yields
// nothing.
func (h *Handle) Records() iter.Seq[Result] {
	return func(yield func(Result) bool) {
		if h.used {
			return
		}
		h.used = true
		line := 0
		for {
			raw, tooLong, err := h.readLine()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Result{Line: line + 1, Err: fmt.Errorf("read %s: %w", h.path, err)})
				return
			}
			line++
			if tooLong {
				if !yield(Result{Line: line, Err: &ParseError{Path: h.path, Line: line, Err: ErrLineTooLong}}) {
					return
				}
				continue
			}
			raw = bytes.TrimSpace(raw)
			if len(raw) == 0 {
				continue
			}
			item, err := codec.Decode(raw)
			if err != nil {
				if !yield(Result{Line: line, Err: &ParseError{Path: h.path, Line: line, Err: err}}) {
					return
				}
				continue
			}
			if !yield(Result{Line: line, Item: item}) {
				return
			}
		}
	}
}

// readLine returns the next line, terminator included. A line longer than
// maxLine is consumed to its end and reported with tooLong set and no content.
// A last line without a terminator is returned as is; io.EOF comes after it.
func (h *Handle) readLine() (line []byte, tooLong bool, err error) {
	for {
		chunk, rerr := h.r.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > maxLine {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		switch {
		case rerr == nil:
			return line, tooLong, nil
		case errors.Is(rerr, bufio.ErrBufferFull):
			continue
		case errors.Is(rerr, io.EOF):
			if len(line) == 0 && !tooLong {
				return nil, false, io.EOF
			}
			return line, tooLong, nil
		default:
			return nil, false, rerr
		}
	}
}

// ReadAll collects every valid record. Parse failures are returned separately
// and never abort the read.
func ReadAll(ctx context.Context, path string) ([]domain.WorkItem, []*ParseError, error) {
	h, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer h.Close()
	var (
		items []domain.WorkItem
		bad   []*ParseError
	)
	for res := range h.Records() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if res.Err != nil {
			var pe *ParseError
			if errors.As(res.Err, &pe) {
				bad = append(bad, pe)
				continue
			}
			return nil, nil, res.Err
		}
		items = append(items, res.Item)
	}
	return items, bad, nil
}

// ReadAll reads the bound data file and logs every skipped line.
func (s *Store) ReadAll(ctx context.Context) ([]domain.WorkItem, []*ParseError, error) {
	items, bad, err := ReadAll(ctx, s.Path)
	for _, pe := range bad {
		s.warnSkipped(pe)
	}
	return items, bad, err
}

func (s *Store) warnSkipped(pe *ParseError) {
	s.logger().WithFields(logrus.Fields{
		"path": pe.Path,
		"line": pe.Line,
	}).WithError(pe.Err).Warn("skipping malformed record")
}

func classify(op, path string, err error) error {
	cause := err
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		cause = pathErr.Err
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cause = fmt.Errorf("%w: %w", ErrNotFound, cause)
	case errors.Is(err, fs.ErrPermission):
		cause = fmt.Errorf("%w: %w", ErrPermission, cause)
	case errors.Is(err, fs.ErrExist):
		cause = fmt.Errorf("%w: %w", ErrTempFileConflict, cause)
	}
	return &FileError{Op: op, Path: path, Err: cause}
}
