// Package task is the scheduling shell binding the firmware's
// execution contexts together: each context is a Runnable and a Group
// runs them until the first hard failure or an external stop.
package task

import (
	"context"
	"strconv"
	"strings"
)

// Runnable is a long-running activity bound to a context.
type Runnable interface {
	Run(context.Context) error
}

// RunFunc adapts a func to Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error { return f(ctx) }

// Named is anything with a name.
type Named interface {
	Name() string
}

type namedRunnable struct {
	Runnable
	name string
}

func (r *namedRunnable) Name() string { return r.name }

// NamedRun wraps a Runnable with a name for logging.
func NamedRun(name string, runnable Runnable) Runnable {
	return &namedRunnable{name: name, Runnable: runnable}
}

// Errors aggregates multiple errors into one.
type Errors struct {
	list []error
}

// Add appends errors, skipping nils.
func (e *Errors) Add(errs ...error) *Errors {
	for _, err := range errs {
		if err != nil {
			e.list = append(e.list, err)
		}
	}
	return e
}

// Aggregate returns the aggregated error, or nil if none happened.
func (e *Errors) Aggregate() error {
	if len(e.list) == 0 {
		return nil
	}
	return e
}

// Error implements error.
func (e *Errors) Error() string {
	if len(e.list) == 1 {
		return e.list[0].Error()
	}
	msg := make([]string, len(e.list)+1)
	msg[0] = strconv.Itoa(len(e.list)) + " errors:"
	for n, err := range e.list {
		msg[n+1] = err.Error()
	}
	return strings.Join(msg, "\n")
}
