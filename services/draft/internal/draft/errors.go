package draft

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInvalidPersons      = errors.New("persons must be at least 1")
	ErrLineNotFound        = errors.New("cart line not found")
	ErrKotNotFound         = errors.New("kot not found")
	ErrNothingToPrint      = errors.New("nothing to print")
	ErrSubscriptionExpired = errors.New("subscription expired")
	ErrUnknownItem         = errors.New("unknown menu item")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrDraftNotFound       = errors.New("draft not found")
)

// PersistenceError reports a failed call to the draft store. In-memory state
// is left as it was before the call, so the action can be retried.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("cannot %s draft: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// PrintError reports a failed hand-off to the print transport.
type PrintError struct {
	Err error
}

func (e *PrintError) Error() string {
	return fmt.Sprintf("cannot print: %v", e.Err)
}

func (e *PrintError) Unwrap() error {
	return e.Err
}
