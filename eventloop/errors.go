package eventloop

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrLoopAlreadyRunning is returned when Run() is called on a loop that is already running.
	ErrLoopAlreadyRunning = errors.New("eventloop: loop is already running")

	// ErrLoopTerminated is returned when operations are attempted on a terminated loop.
	ErrLoopTerminated = errors.New("eventloop: loop has been terminated")

	// ErrReentrantRun is returned when Run() is called from within the loop itself.
	ErrReentrantRun = errors.New("eventloop: cannot call Run() from within the loop")

	// ErrPortClosed is returned when posting to, or from, a closed [MessagePort].
	ErrPortClosed = errors.New("eventloop: message port is closed")

	// ErrNotChild is returned by [Element.RemoveChild] when the node is not a
	// child of the element.
	ErrNotChild = errors.New("eventloop: node is not a child of this element")

	// ErrHierarchyRequest is returned by [Element.AppendChild] for nodes that
	// cannot be inserted, e.g. nil, foreign, or ancestor nodes.
	ErrHierarchyRequest = errors.New("eventloop: invalid node insertion")

	// ErrTimerNotFound is returned by [Loop.CancelTimer] for unknown, fired,
	// or already cancelled timers.
	ErrTimerNotFound = errors.New("eventloop: timer not found")
)

// PanicError wraps a panic value recovered from a task.
type PanicError struct {
	Value any
}

func (e PanicError) Error() string {
	return fmt.Sprintf("eventloop: task panicked: %v", e.Value)
}

// Unwrap returns the underlying error if the panic value is an error type.
// This enables use with [errors.Is] and [errors.As] for error matching
// through the cause chain.
//
// If the panic Value is not an error (e.g., a string or other type),
// returns nil.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
