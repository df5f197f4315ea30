package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermission       = errors.New("permission denied")
	ErrTempFileConflict = errors.New("temp file already exists; remove it after checking it is not needed")
	ErrLineTooLong      = fmt.Errorf("line longer than %d bytes", maxLine)
)

// FileError is a structural failure on a path. The operation did not read or
// write any record.
type FileError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// ParseError is one line that did not decode. Iteration continues past it.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TransformError aborts a rewrite; the original file is left untouched.
type TransformError struct {
	Line  int
	Title string
	Err   error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("record %q (line %d): %v", e.Title, e.Line, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }
