// backend/src/services/errors.go
package services

import (
	"errors"
	"fmt"
)

var (
	ErrRecurrenceNotFound  = errors.New("recurrence not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAccountNotFound     = errors.New("account not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrRecurrenceInactive  = errors.New("recurrence is paused")
	ErrRecurrenceExhausted = errors.New("recurrence has reached its end date or execution limit")
	ErrAlreadyRecurring    = errors.New("transaction is already linked to a recurrence")
	ErrInvalidDeleteMode   = errors.New("invalid delete mode")
	ErrConcurrencyConflict = errors.New("recurrence was claimed by another run")
)

// ReferenceError reports an account, category or tiers that a template still
// points at but that no longer exists.
type ReferenceError struct {
	RecurrenceID int64
	Entity       string
	EntityID     int64
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("recurrence %d: %s %d no longer exists", e.RecurrenceID, e.Entity, e.EntityID)
}

// StorageError wraps a datastore failure with the operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
