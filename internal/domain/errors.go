package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRow means a source row lacks a column the mapper requires.
	ErrMalformedRow = errors.New("malformed row")

	// ErrBulkWrite means at least one document of a bulk request was rejected.
	ErrBulkWrite = errors.New("bulk write failed")

	// ErrRebuildInProgress means another rebuild of the same index holds the lock.
	ErrRebuildInProgress = errors.New("rebuild already in progress")
)

// MalformedRowError names the entity and the column that was missing or unreadable.
type MalformedRowError struct {
	Entity Entity
	Column string
	Err    error
}

func (e *MalformedRowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed %s row: column %q: %v", e.Entity.Label(), e.Column, e.Err)
	}
	return fmt.Sprintf("malformed %s row: missing column %q", e.Entity.Label(), e.Column)
}

func (e *MalformedRowError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedRow, e.Err}
	}
	return []error{ErrMalformedRow}
}

// BulkWriteError carries the first per-document failure of a bulk request.
type BulkWriteError struct {
	Entity     Entity
	DocumentID string
	Status     int
	Type       string
	Reason     string
}

func (e *BulkWriteError) Error() string {
	return fmt.Sprintf("bulk write of %s %q failed (status %d): %s: %s",
		e.Entity.Label(), e.DocumentID, e.Status, e.Type, e.Reason)
}

func (e *BulkWriteError) Unwrap() error { return ErrBulkWrite }
