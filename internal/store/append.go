package store

import (
	"fmt"
	"os"

	"watchlist/internal/codec"
	"watchlist/internal/domain"
)

// Append adds one record at the end of path, creating the file if needed.
// The record is encoded before the file is touched and written with a single
// write call, so a failed encode leaves the file as it was. Existing content
// is never read or rewritten.
func Append(path string, item domain.WorkItem) error {
	line, err := codec.Encode(item)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return classify("append", path, err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append %s: %w", path, err)
	}
	return f.Close()
}

// Append adds item to the bound data file.
func (s *Store) Append(item domain.WorkItem) error {
	if err := Append(s.Path, item); err != nil {
		return err
	}
	s.logger().WithField("path", s.Path).WithField("title", item.Title).Debug("record appended")
	return nil
}
