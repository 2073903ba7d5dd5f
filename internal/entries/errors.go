package entries

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidEntry = errors.New("invalid entry")
	ErrUnknownKind  = errors.New("unknown entry kind")
	ErrMissingID    = errors.New("entry id missing")
	ErrEmptyID      = errors.New("store returned empty id")
)

const (
	OpCreate = "create"
	OpUpdate = "update"
	OpRemove = "remove"
	OpList   = "list"
)

// PersistenceError is a failed write (or one-shot read) against the store.
type PersistenceError struct {
	Op   string
	Kind Kind
	ID   string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s entry %s: %s", e.Op, e.Kind, e.ID, e.Err)
	}
	return fmt.Sprintf("%s %s entry: %s", e.Op, e.Kind, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// SubscriptionSetupError means the live listener for a kind could not be attached.
type SubscriptionSetupError struct {
	Kind Kind
	Err  error
}

func (e *SubscriptionSetupError) Error() string {
	return fmt.Sprintf("subscribe to %s entries: %s", e.Kind, e.Err)
}

func (e *SubscriptionSetupError) Unwrap() error {
	return e.Err
}
