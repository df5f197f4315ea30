package store

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"watchlist/internal/codec"
	"watchlist/internal/domain"
)

// Verdict tells Rewrite whether a record survives.
type Verdict int

const (
	Keep Verdict = iota
	Drop
)

// Transform is applied to every valid record during Rewrite. It may edit the
// record in place. An error aborts the whole rewrite.
type Transform func(item *domain.WorkItem) (Verdict, error)

// RewriteSummary counts what happened to the records of one rewrite.
type RewriteSummary struct {
	Kept    int
	Changed int
	Removed int
	Skipped int

	// Committed is set once the new file has replaced the data file.
	Committed bool
}

// HadErrors reports whether malformed lines were met on the way.
func (r RewriteSummary) HadErrors() bool { return r.Skipped > 0 }

// Dropped is the number of malformed lines the committed file no longer has.
func (r RewriteSummary) Dropped() int {
	if !r.Committed {
		return 0
	}
	return r.Skipped
}

// Rewrite reads every record of the data file, applies transform and writes
// the survivors to a new file at TempPath, which is then renamed over Path.
//
// The temp file must not exist beforehand; a leftover from an earlier run is
// reported as ErrTempFileConflict and never overwritten. If the transform
// fails, the context is cancelled or any write fails, the temp file is removed
// and Path keeps its old content. The swap is a single rename, so Path always
// names either the complete old file or the complete new one.
//
// Malformed lines are logged and left out of the new file. When no record was
// changed or removed the temp file is discarded instead, so the data file,
// malformed lines included, stays byte for byte as it was.
func (s *Store) Rewrite(ctx context.Context, transform Transform) (RewriteSummary, error) {
	var summary RewriteSummary
	if s.TempPath == "" {
		return summary, errors.New("rewrite: temp path is required")
	}
	if filepath.Clean(s.TempPath) == filepath.Clean(s.Path) {
		return summary, fmt.Errorf("rewrite: temp path %s is the data file", s.TempPath)
	}

	h, err := Open(s.Path)
	if err != nil {
		return summary, err
	}
	defer h.Close()
	info, err := h.f.Stat()
	if err != nil {
		return summary, classify("stat", s.Path, err)
	}

	tmp, err := os.OpenFile(s.TempPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return summary, classify("create temp", s.TempPath, err)
	}
	closed, swapped := false, false
	defer func() {
		if !closed {
			_ = tmp.Close()
		}
		if !swapped {
			if rmErr := os.Remove(s.TempPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				s.logger().WithField("path", s.TempPath).WithError(rmErr).Warn("could not remove temp file")
			}
		}
	}()

	w := bufio.NewWriter(tmp)
	for res := range h.Records() {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if res.Err != nil {
			var pe *ParseError
			if errors.As(res.Err, &pe) {
				s.warnSkipped(pe)
				summary.Skipped++
				continue
			}
			return summary, res.Err
		}
		item := res.Item
		before := item.Clone()
		verdict, err := transform(&item)
		if err != nil {
			return summary, &TransformError{Line: res.Line, Title: before.Title, Err: err}
		}
		if verdict == Drop {
			summary.Removed++
			continue
		}
		if item.Equal(before) {
			summary.Kept++
		} else {
			summary.Changed++
		}
		line, err := codec.Encode(item)
		if err != nil {
			return summary, &TransformError{Line: res.Line, Title: before.Title, Err: err}
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return summary, fmt.Errorf("write %s: %w", s.TempPath, err)
		}
	}
	// A cancellation during the last transform has not been seen yet.
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	if summary.Changed == 0 && summary.Removed == 0 {
		s.logger().WithFields(logrus.Fields{
			"path":    s.Path,
			"skipped": summary.Skipped,
		}).Debug("rewrite changed nothing, data file left as is")
		return summary, nil
	}

	if err := w.Flush(); err != nil {
		return summary, fmt.Errorf("write %s: %w", s.TempPath, err)
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		return summary, fmt.Errorf("chmod %s: %w", s.TempPath, err)
	}
	if err := tmp.Sync(); err != nil {
		return summary, fmt.Errorf("sync %s: %w", s.TempPath, err)
	}
	closed = true
	if err := tmp.Close(); err != nil {
		return summary, fmt.Errorf("close %s: %w", s.TempPath, err)
	}
	if err := s.swap(s.TempPath, s.Path); err != nil {
		return summary, fmt.Errorf("replace %s: %w", s.Path, err)
	}
	swapped = true
	summary.Committed = true
	syncDir(filepath.Dir(s.Path))

	s.logger().WithFields(logrus.Fields{
		"path":    s.Path,
		"kept":    summary.Kept,
		"changed": summary.Changed,
		"removed": summary.Removed,
		"skipped": summary.Skipped,
	}).Debug("rewrite complete")
	return summary, nil
}

// syncDir flushes the directory entry after a rename. Some platforms cannot
// open directories for sync; the rename itself is already atomic there.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// DropMatching removes every record whose title matches.
func DropMatching(title string) Transform {
	return func(item *domain.WorkItem) (Verdict, error) {
		if domain.TitleMatches(item.Title, title) {
			return Drop, nil
		}
		return Keep, nil
	}
}

// EditMatching runs edit on every record whose title matches and keeps all
// records.
func EditMatching(title string, edit func(*domain.WorkItem) error) Transform {
	return func(item *domain.WorkItem) (Verdict, error) {
		if !domain.TitleMatches(item.Title, title) {
			return Keep, nil
		}
		return Keep, edit(item)
	}
}
