// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package immediate

import (
	"fmt"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// Scheduler implements [Immediate] for a [Global], delivering through the
// backend chosen at construction. The backend is never changed, or torn down.
// It is safe for concurrent use.
type Scheduler struct {
	registry     *Registry
	backend      backend
	global       *Global
	logger       *logiface.Logger[logiface.Event]
	retryLimiter *catrate.Limiter
}

var _ Immediate = (*Scheduler)(nil)

// New selects a backend for g (see [Select]) and returns a [Scheduler] bound
// to it. It fails with [ErrNoTimers] if g is nil or has no [Global.Timers].
//
// Unlike [Install], New does not modify g.Immediate.
func New(g *Global, opts ...Option) (*Scheduler, error) {
	if g == nil || g.Timers == nil {
		return nil, ErrNoTimers
	}

	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		global:       g,
		logger:       cfg.logger,
		retryLimiter: cfg.retryLimiter,
	}
	s.registry = NewRegistry(RegistryConfig{
		Timers:    g.Timers,
		Evaluator: g.Evaluator,
		OnError:   s.report,
		OnRetry:   s.onRetry,
	})

	kind := cfg.backend
	if kind == 0 {
		kind = Select(g)
	} else if !Supports(g, kind) {
		return nil, fmt.Errorf("%w: %s", ErrBackendUnavailable, kind)
	}

	s.backend, err = s.newBackend(kind, cfg.messagePrefix)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str(`backend`, kind.String()).
		Log(`immediate: scheduler initialized`)

	return s, nil
}

// Install sets g.Immediate to a new [Scheduler], unless it is already set,
// in which case the existing implementation is returned unchanged (and opts
// are ignored). It is safe to call concurrently, with the same g.
func Install(g *Global, opts ...Option) (Immediate, error) {
	if g == nil {
		return nil, ErrNoTimers
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Immediate != nil {
		return g.Immediate, nil
	}
	s, err := New(g, opts...)
	if err != nil {
		return nil, err
	}
	g.Immediate = s
	return s, nil
}

func (x *Scheduler) newBackend(kind Kind, prefix string) (backend, error) {
	dispatch := x.registry.dispatch
	g := x.global
	switch kind {
	case KindNextTick:
		return &nextTickBackend{process: g.Process, dispatch: dispatch}, nil
	case KindPostMessage:
		return newPostMessageBackend(g.Messaging, prefix, dispatch), nil
	case KindMessageChannel:
		return newMessageChannelBackend(g.Channels, dispatch), nil
	case KindReadyStateChange:
		html := g.Document.DocumentElement()
		if html == nil {
			return nil, fmt.Errorf("%w: %s: no document element", ErrBackendUnavailable, kind)
		}
		return &readyStateChangeBackend{document: g.Document, html: html, dispatch: dispatch}, nil
	case KindSetTimeout:
		return &setTimeoutBackend{timers: g.Timers, dispatch: dispatch}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrBackendUnavailable, kind)
	}
}

// SetImmediate schedules fn to be called with args, after the current
// task, and before any timers scheduled after it (where the backend allows).
// It is shorthand for Schedule(Call(fn, args...)).
func (x *Scheduler) SetImmediate(fn Func, args ...any) (Handle, error) {
	return x.Schedule(Call(fn, args...))
}

// Schedule registers task, then posts its handle to the backend. If posting
// fails the task is unregistered, and the error returned.
func (x *Scheduler) Schedule(task Task) (Handle, error) {
	handle := x.registry.Register(task)
	if err := x.backend.post(handle); err != nil {
		x.registry.unregister(handle)
		return 0, err
	}
	return handle, nil
}

// ClearImmediate cancels the task for handle, if it has not started.
// Unknown handles are ignored.
func (x *Scheduler) ClearImmediate(handle Handle) {
	x.registry.Cancel(handle)
}

// Kind returns the backend in use.
func (x *Scheduler) Kind() Kind {
	return x.backend.kind()
}

// Pending returns the number of registered tasks that have not completed.
func (x *Scheduler) Pending() int {
	return x.registry.Len()
}

// Stats returns a snapshot of the scheduler's counters.
func (x *Scheduler) Stats() Stats {
	return x.registry.Stats()
}

// report is the sink for task failures without a caller.
func (x *Scheduler) report(err error) {
	if reporter := x.global.Errors; reporter != nil {
		reporter.ReportError(err)
		return
	}
	x.logger.Err().
		Err(err).
		Log(`immediate: task failed`)
}

func (x *Scheduler) onRetry(handle Handle) {
	b := x.logger.Debug()
	if !b.Enabled() {
		return
	}
	if _, ok := x.retryLimiter.Allow(handle); !ok {
		b.Release()
		return
	}
	b.Uint64(`handle`, uint64(handle)).
		Log(`immediate: task running, deferring dispatch`)
}
