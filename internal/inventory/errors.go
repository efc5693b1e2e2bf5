package inventory

// errors.go defines the engine's error taxonomy. Every condition here is
// recoverable by the caller; the presentation layer maps each kind to a
// user-facing response. Errors carry the identifying key that failed so
// callers can distinguish, say, a stale file path from a stale item
// selection.

import (
	"errors"
	"fmt"
)

// NotFoundLevel names the key level that failed resolution.
type NotFoundLevel string

const (
	LevelFile   NotFoundLevel = "file"
	LevelFinish NotFoundLevel = "finish"
	LevelItem   NotFoundLevel = "item"
)

// NotFoundError reports a missing file, finish, or item.
type NotFoundError struct {
	Level NotFoundLevel
	Key   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Level, e.Key)
}

// DuplicateFileError reports an ingestion whose derived identity collides
// with an already-registered file.
type DuplicateFileError struct {
	Path string
}

func (e *DuplicateFileError) Error() string {
	return fmt.Sprintf("file already exists: %s", e.Path)
}

// EmptyFileError reports a spreadsheet that parsed cleanly but contained no
// finish/item rows at all.
type EmptyFileError struct {
	Name string
}

func (e *EmptyFileError) Error() string {
	return fmt.Sprintf("file contains no inventory rows: %s", e.Name)
}

// MalformedInputError reports bytes that could not be parsed as the expected
// spreadsheet structure. Row is 1-based and zero when the failure is not
// attributable to a specific row.
type MalformedInputError struct {
	Name   string
	Row    int
	Reason string
}

func (e *MalformedInputError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("malformed spreadsheet %s: row %d: %s", e.Name, e.Row, e.Reason)
	}
	return fmt.Sprintf("malformed spreadsheet %s: %s", e.Name, e.Reason)
}

// InvalidQuantityError reports a rejected mutation that would have driven an
// item's quantity below zero. The store is left unchanged.
type InvalidQuantityError struct {
	ItemNo  string
	Current int
	Delta   int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d%+d would be negative", e.ItemNo, e.Current, e.Delta)
}

// InvalidArgumentError reports a caller-supplied argument the engine refuses
// to act on (blank search term, non-positive threshold).
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return "invalid argument: " + e.Reason
}

// StorageUnavailableError wraps an internal persistence I/O failure. The
// in-memory state is left untouched when one of these is returned.
type StorageUnavailableError struct {
	Op  string
	Err error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("storage unavailable during %s: %v", e.Op, e.Err)
}

func (e *StorageUnavailableError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a NotFoundError at any level.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsDuplicateFile reports whether err is a DuplicateFileError.
func IsDuplicateFile(err error) bool {
	var dup *DuplicateFileError
	return errors.As(err, &dup)
}
