package model

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below via errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage failure")
)

// ValidationError reports caller input that violates a precondition.
// Nothing is applied when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Record kinds used in NotFoundError.
const (
	KindTask         = "task"
	KindSubtask      = "subtask"
	KindHistoryEntry = "history entry"
)

// NotFoundError reports a referenced id that does not exist, or a subtask
// that does not belong to the given task.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StorageKind classifies a StorageError.
type StorageKind int

const (
	// StorageUnavailable covers I/O failures of the durable medium.
	StorageUnavailable StorageKind = iota
	// StorageQuota means the medium refused the write for lack of space.
	StorageQuota
	// StorageCorrupt means saved state could not be decoded.
	StorageCorrupt
)

func (k StorageKind) String() string {
	switch k {
	case StorageQuota:
		return "quota exceeded"
	case StorageCorrupt:
		return "corrupt data"
	default:
		return "unavailable"
	}
}

// StorageError reports a durable read or write failure. After a write
// failure the in-memory state is still correct but not yet durable.
type StorageError struct {
	Op   string
	Kind StorageKind
	Err  error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is matches ErrStorage.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// AsStorageError wraps err as a StorageError unless it already is one.
func AsStorageError(op string, kind StorageKind, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Kind: kind, Err: err}
}
