// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package eventloop

import (
	"errors"

	"github.com/joeycumines/logiface"
)

// loopOptions holds configuration options for Loop creation.
type loopOptions struct {
	logger                  *logiface.Logger[logiface.Event]
	onError                 func(err error)
	strictMicrotaskOrdering bool
}

// --- Loop Options ---

// LoopOption configures a Loop instance.
type LoopOption interface {
	applyLoop(*loopOptions) error
}

// loopOptionImpl implements LoopOption.
type loopOptionImpl struct {
	applyLoopFunc func(*loopOptions) error
}

func (l *loopOptionImpl) applyLoop(opts *loopOptions) error {
	return l.applyLoopFunc(opts)
}

// WithStrictMicrotaskOrdering sets whether microtasks should be drained
// after each task execution for strict ordering.
// When enabled, microtasks are guaranteed to run after every task, and
// every timer. When disabled (default), microtasks are drained once per
// batch of tasks. The nextTick queue is drained after every task regardless.
func WithStrictMicrotaskOrdering(enabled bool) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.strictMicrotaskOrdering = enabled
		return nil
	}}
}

// WithLogger configures structured logging for the loop. Task panics and
// reported errors are logged at error level, lifecycle events at debug.
// A nil logger disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithOnError configures a hook receiving every error passed to
// [Loop.ReportError], including recovered task panics (as [PanicError]).
// It is called on the loop goroutine, after logging.
func WithOnError(fn func(err error)) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.onError = fn
		return nil
	}}
}

// resolveLoopOptions applies LoopOption instances to loopOptions.
func resolveLoopOptions(opts []LoopOption) (*loopOptions, error) {
	cfg := &loopOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		if err := opt.applyLoop(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// --- Window Options ---

// windowOptions holds configuration options for Window creation.
type windowOptions struct {
	origin      string
	synchronous bool
}

// WindowOption configures a [Window].
type WindowOption interface {
	applyWindow(*windowOptions) error
}

type windowOptionImpl struct {
	applyWindowFunc func(*windowOptions) error
}

func (w *windowOptionImpl) applyWindow(opts *windowOptions) error {
	return w.applyWindowFunc(opts)
}

// WithOrigin sets the origin of the window, used to filter messages posted
// with a specific target origin, and reported as [immediate.MessageEvent]
// Origin. The default is "null".
func WithOrigin(origin string) WindowOption {
	return &windowOptionImpl{func(opts *windowOptions) error {
		if origin == "" || origin == "*" {
			return errors.New("eventloop: invalid window origin: " + origin)
		}
		opts.origin = origin
		return nil
	}}
}

// WithSynchronousPostMessage makes [Window.PostMessage] deliver messages
// before returning, emulating legacy hosts where postMessage is
// synchronous. Such a window fails the asynchrony probe of
// [immediate.Select].
func WithSynchronousPostMessage(enabled bool) WindowOption {
	return &windowOptionImpl{func(opts *windowOptions) error {
		opts.synchronous = enabled
		return nil
	}}
}

func resolveWindowOptions(opts []WindowOption) (*windowOptions, error) {
	cfg := &windowOptions{origin: "null"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyWindow(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// --- Document Options ---

// documentOptions holds configuration options for Document creation.
type documentOptions struct {
	legacyScriptEvents bool
}

// DocumentOption configures a [Document].
type DocumentOption interface {
	applyDocument(*documentOptions) error
}

type documentOptionImpl struct {
	applyDocumentFunc func(*documentOptions) error
}

func (d *documentOptionImpl) applyDocument(opts *documentOptions) error {
	return d.applyDocumentFunc(opts)
}

// WithLegacyScriptEvents controls whether script elements created by the
// [Document] expose onreadystatechange (i.e. implement
// [immediate.ReadyStateElement]). Enabled by default, disable it to model
// a document without legacy script loading events.
func WithLegacyScriptEvents(enabled bool) DocumentOption {
	return &documentOptionImpl{func(opts *documentOptions) error {
		opts.legacyScriptEvents = enabled
		return nil
	}}
}

func resolveDocumentOptions(opts []DocumentOption) (*documentOptions, error) {
	cfg := &documentOptions{legacyScriptEvents: true}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyDocument(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
