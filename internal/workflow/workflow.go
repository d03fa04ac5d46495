// Package workflow holds the state of each invoice view: ingestion (upload
// or manual create), listing and search, and detail/edit.
//
// Every workflow value is owned by a single view. Its state is guarded by a
// mutex; timer callbacks and backend completions re-enter through the same
// lock. Completions that arrive after a Reset are discarded.
package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when a mutating call (upload, create, update) is
	// already outstanding on the same workflow.
	ErrBusy = errors.New("another request is still in progress")

	// ErrInvalidTransition is returned when an operation is not allowed in
	// the current state.
	ErrInvalidTransition = errors.New("operation not allowed in current state")

	// ErrDiscarded is returned by a call whose result arrived after the
	// workflow was reset.
	ErrDiscarded = errors.New("workflow was reset while the request was in flight")
)

// Navigator moves the user to another view after a successful save.
type Navigator interface {
	ToDetail(id int64)
	ToList()
}

// Notifier shows transient messages such as save confirmations and
// extraction warnings.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// Save navigation targets
const (
	NavigateDetail = "detail"
	NavigateList   = "list"
)

type nopNavigator struct{}

func (nopNavigator) ToDetail(int64) {}
func (nopNavigator) ToList()        {}

type nopNotifier struct{}

func (nopNotifier) Notify(string) {}

func transitionError(op string, state fmt.Stringer) error {
	return fmt.Errorf("%s in state %s: %w", op, state, ErrInvalidTransition)
}
