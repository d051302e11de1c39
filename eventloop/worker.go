// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package eventloop

import (
	"errors"
	"fmt"
	"sync"

	"github.com/joeycumines/go-immediate"
)

// ScriptLoader loads and runs the script at url, for
// [WorkerScope.ImportScripts].
type ScriptLoader func(url string) error

// WorkerScope models the global scope of a dedicated worker. It implements
// both [immediate.WorkerScope] and [immediate.Messaging], but unlike a
// [Window], messages posted from the worker are delivered to its parent,
// never to itself. Messages sent to the worker, see [WorkerScope.Deliver],
// are received via the onmessage handler and message listeners.
type WorkerScope struct {
	messageTarget
	loop     *Loop
	parent   *Window
	loader   ScriptLoader
	imported []string
	mu       sync.Mutex
}

var (
	_ immediate.WorkerScope = (*WorkerScope)(nil)
	_ immediate.Messaging   = (*WorkerScope)(nil)
)

// NewWorkerScope creates a worker scope, running on loop. The parent and
// loader are optional: without a parent, posted messages are dropped, and
// without a loader, ImportScripts fails for any url.
func NewWorkerScope(loop *Loop, parent *Window, loader ScriptLoader) *WorkerScope {
	return &WorkerScope{
		messageTarget: messageTarget{EventTarget: NewEventTarget()},
		loop:          loop,
		parent:        parent,
		loader:        loader,
	}
}

// ImportScripts loads each url, in order, stopping at the first failure.
func (w *WorkerScope) ImportScripts(urls ...string) error {
	for _, url := range urls {
		if w.loader == nil {
			return fmt.Errorf("eventloop: import %q: %w", url, errNoScriptLoader)
		}
		if err := w.loader(url); err != nil {
			return fmt.Errorf("eventloop: import %q: %w", url, err)
		}
		w.mu.Lock()
		w.imported = append(w.imported, url)
		w.mu.Unlock()
	}
	return nil
}

var errNoScriptLoader = errors.New("no script loader")

// Imported returns the urls successfully imported so far.
func (w *WorkerScope) Imported() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.imported...)
}

// PostMessage sends data to the parent window, if any. The targetOrigin is
// ignored, as workers post to their parent unconditionally.
func (w *WorkerScope) PostMessage(data any, targetOrigin string) error {
	if w.parent == nil {
		return nil
	}
	return w.parent.receive(&immediate.MessageEvent{
		Data:   data,
		Source: w,
		Origin: w.parent.origin,
	})
}

// Deliver queues data as a message to the worker, as if posted by the
// parent.
func (w *WorkerScope) Deliver(data any) error {
	event := &immediate.MessageEvent{Data: data}
	if w.parent != nil {
		event.Source = w.parent
		event.Origin = w.parent.origin
	}
	return w.loop.Submit(func() { w.dispatchMessage(event) })
}
