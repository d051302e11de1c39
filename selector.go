// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package immediate

import (
	"sync/atomic"
)

// Select picks the best backend available in g. The first match wins:
//
//  1. [KindNextTick], if g.Process has the [RuntimeProcess] signature
//  2. [KindPostMessage], if g.Messaging is present outside a worker, and
//     delivers asynchronously (see below)
//  3. [KindMessageChannel], if g.Channels is present
//  4. [KindReadyStateChange], if g.Document creates script elements
//     implementing [ReadyStateElement]
//  5. [KindSetTimeout], otherwise
//
// WARNING: Step 2 has side effects. It temporarily replaces the onmessage
// handler of g.Messaging, posts one empty string message to self, then
// restores the previous handler. Hosts that deliver the message before
// PostMessage returns are rejected. [New] calls Select at most once per
// [Scheduler].
//
// Select panics if g is nil.
func Select(g *Global) Kind {
	switch {
	case isRuntimeProcess(g.Process):
		return KindNextTick
	case canUsePostMessage(g):
		return KindPostMessage
	case g.Channels != nil:
		return KindMessageChannel
	case canUseReadyStateChange(g.Document):
		return KindReadyStateChange
	default:
		return KindSetTimeout
	}
}

// Supports reports whether kind can be constructed for g, without probing.
// Unlike [Select], any [Process] qualifies for [KindNextTick].
func Supports(g *Global, kind Kind) bool {
	if g == nil || g.Timers == nil {
		return false
	}
	switch kind {
	case KindNextTick:
		return g.Process != nil
	case KindPostMessage:
		return g.Messaging != nil
	case KindMessageChannel:
		return g.Channels != nil
	case KindReadyStateChange:
		return canUseReadyStateChange(g.Document)
	case KindSetTimeout:
		return true
	default:
		return false
	}
}

// isRuntimeProcess checks the structural signature of a real process,
// rather than trusting any value that happens to provide NextTick.
func isRuntimeProcess(process Process) bool {
	p, ok := process.(RuntimeProcess)
	return ok && p.Pid() > 0
}

func canUsePostMessage(g *Global) bool {
	// within a worker, postMessage targets the parent, not self
	if g.Messaging == nil || g.Worker != nil {
		return false
	}
	return probePostMessage(g.Messaging)
}

// probePostMessage reports whether messaging delivers asynchronously. The
// previous onmessage handler is restored before returning.
func probePostMessage(messaging Messaging) bool {
	var delivered atomic.Bool
	previous := messaging.OnMessage()
	messaging.SetOnMessage(func(*MessageEvent) { delivered.Store(true) })
	defer messaging.SetOnMessage(previous)
	if err := messaging.PostMessage(``, `*`); err != nil {
		return false
	}
	return !delivered.Load()
}

func canUseReadyStateChange(document Document) bool {
	if document == nil {
		return false
	}
	_, ok := document.CreateElement(`script`).(ReadyStateElement)
	return ok
}
