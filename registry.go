// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package immediate

import (
	"slices"
	"sync"
	"sync/atomic"
)

type (
	// Handle identifies a registered task. Handles are issued in strictly
	// increasing order, starting at 1, and are never reused.
	Handle uint64

	// Func is a task body. The args are those bound at registration.
	Func func(args ...any) error

	// Task is an immutable unit of deferred work: either a [Func] with bound
	// arguments, see [Call], or legacy source text, see [Source].
	Task struct {
		fn     Func
		args   []any
		source string
		text   bool
	}

	// RegistryConfig configures a [Registry].
	RegistryConfig struct {
		// Timers is used to retry dispatch while another task is running.
		// Required.
		Timers Timers

		// Evaluator runs [Source] tasks. Optional.
		Evaluator Evaluator

		// OnError receives the failures of tasks run via backend dispatch,
		// which have no caller to return to, and of retry scheduling.
		OnError func(err error)

		// OnRetry is called each time a dispatch is deferred because another
		// task is running.
		OnRetry func(handle Handle)
	}

	// Registry maps handles to pending tasks, and enforces that at most one
	// task body runs at a time. It is safe for concurrent use.
	Registry struct {
		tasks     map[Handle]Task
		timers    Timers
		evaluator Evaluator
		onError   func(err error)
		onRetry   func(handle Handle)
		stats     stats
		nextID    Handle
		current   Handle
		mu        sync.Mutex
		running   atomic.Bool
	}
)

// Call returns a [Task] that invokes fn with args. The args slice is copied.
func Call(fn Func, args ...any) Task {
	return Task{fn: fn, args: slices.Clone(args)}
}

// Source returns a [Task] that evaluates text using the [Global]'s
// [Evaluator], with no arguments. This is the legacy string mode of
// setImmediate.
func Source(text string) Task {
	return Task{source: text, text: true}
}

// IsSource reports whether the task was built by [Source].
func (x Task) IsSource() bool { return x.text }

// Text returns the source text of a [Source] task.
func (x Task) Text() string { return x.source }

// Args returns a copy of the bound arguments.
func (x Task) Args() []any { return slices.Clone(x.args) }

func (x Task) invoke(evaluator Evaluator) error {
	if x.text {
		if evaluator == nil {
			return ErrNoEvaluator
		}
		return evaluator.Evaluate(x.source)
	}
	if x.fn == nil {
		return nil
	}
	return x.fn(x.args...)
}

// NewRegistry initializes a [Registry]. It panics if cfg.Timers is nil.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Timers == nil {
		panic(ErrNoTimers)
	}
	return &Registry{
		tasks:     make(map[Handle]Task),
		timers:    cfg.Timers,
		evaluator: cfg.Evaluator,
		onError:   cfg.OnError,
		onRetry:   cfg.OnRetry,
		nextID:    1,
	}
}

// Register stores task under the next handle. It never fails.
func (x *Registry) Register(task Task) Handle {
	x.mu.Lock()
	defer x.mu.Unlock()
	handle := x.nextID
	x.nextID++
	x.tasks[handle] = task
	x.stats.registered.Add(1)
	return handle
}

// Cancel removes the task for handle. Unknown, already run, or already
// cancelled handles are ignored. Once Cancel returns the task will not start.
// Cancelling the running task only drops its entry, and is not counted.
func (x *Registry) Cancel(handle Handle) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.tasks[handle]; !ok {
		return
	}
	delete(x.tasks, handle)
	if handle != x.current {
		x.stats.cancelled.Add(1)
	}
}

// RunIfPresent is the dispatch entrypoint, called by a backend once its
// signal fires for handle.
//
// If another task is running, the dispatch is deferred using a zero-delay
// timer, irrespective of the backend in use, and nil is returned. If the
// timer cannot be scheduled the task is unregistered, and the failure passed
// to OnError. Otherwise
// the task, if still registered, is run. The handle is unregistered and the
// guard released on every exit path, before any error is returned or panic
// propagates.
func (x *Registry) RunIfPresent(handle Handle) error {
	if !x.running.CompareAndSwap(false, true) {
		x.retry(handle)
		return nil
	}

	x.mu.Lock()
	task, ok := x.tasks[handle]
	if ok {
		x.current = handle
	}
	x.mu.Unlock()
	if !ok {
		x.running.Store(false)
		return nil
	}

	defer func() {
		x.mu.Lock()
		delete(x.tasks, handle)
		x.current = 0
		x.mu.Unlock()
		x.running.Store(false)
	}()

	x.stats.executed.Add(1)
	err := task.invoke(x.evaluator)
	if err != nil {
		x.stats.failed.Add(1)
	}
	return err
}

// Len returns the number of tasks pending, including a running task.
func (x *Registry) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.tasks)
}

// Running reports whether a task body is currently executing.
func (x *Registry) Running() bool {
	return x.running.Load()
}

// Stats returns a snapshot of the registry counters.
func (x *Registry) Stats() Stats {
	return x.stats.snapshot()
}

func (x *Registry) unregister(handle Handle) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.tasks[handle]; !ok {
		return false
	}
	delete(x.tasks, handle)
	return true
}

func (x *Registry) retry(handle Handle) {
	x.stats.retried.Add(1)
	if x.onRetry != nil {
		x.onRetry(handle)
	}
	if err := x.timers.SetTimeout(func() { x.dispatch(handle) }, 0); err != nil {
		x.unregister(handle)
		x.fail(err)
	}
}

// dispatch runs handle, routing any failure to OnError.
func (x *Registry) dispatch(handle Handle) {
	if err := x.RunIfPresent(handle); err != nil {
		x.fail(err)
	}
}

func (x *Registry) fail(err error) {
	if x.onError != nil {
		x.onError(err)
	}
}
