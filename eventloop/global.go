// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package eventloop

import (
	"github.com/joeycumines/go-immediate"
)

// NewGlobal returns an [immediate.Global] exposing only the timers, and
// error reporting, of loop.
func NewGlobal(loop *Loop) *immediate.Global {
	return &immediate.Global{
		Timers: loop,
		Errors: loop,
	}
}

// NewServerGlobal returns an [immediate.Global] modelling a server-side
// runtime, with a [Process].
func NewServerGlobal(loop *Loop) *immediate.Global {
	g := NewGlobal(loop)
	g.Process = NewProcess(loop)
	return g
}

// NewBrowserGlobal returns an [immediate.Global] modelling a browser
// window, with messaging and message channels provided by window. The
// document is optional.
func NewBrowserGlobal(loop *Loop, window *Window, document *Document) *immediate.Global {
	g := NewGlobal(loop)
	g.Messaging = window
	g.Channels = window
	if document != nil {
		g.Document = document
	}
	return g
}

// NewWorkerGlobal returns an [immediate.Global] modelling a dedicated
// worker, with messaging (to the parent) and message channels.
func NewWorkerGlobal(loop *Loop, worker *WorkerScope) *immediate.Global {
	g := NewGlobal(loop)
	g.Messaging = worker
	g.Worker = worker
	g.Channels = NewChannelFactory(loop)
	return g
}
