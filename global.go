// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package immediate

import (
	"sync"
	"time"
)

type (
	// Global models the host environment a [Scheduler] is installed into,
	// analogous to a JavaScript global object. Each capability is optional,
	// except [Global.Timers]: a nil field means the host does not expose it.
	//
	// A Global must not be copied after first use.
	Global struct {
		// Timers is the host's delayed-execution primitive. Required. It backs
		// the [KindSetTimeout] backend and the contention-retry path.
		Timers Timers

		// Errors receives task failures, the equivalent of the host's
		// uncaught error path. If nil, failures are logged.
		Errors ErrorReporter

		// Process is set for single-process server-style runtimes. Only a
		// value implementing [RuntimeProcess] with a positive pid is treated
		// as such, see [Select].
		Process Process

		// Messaging is the cross-document messaging target of this context.
		Messaging Messaging

		// Worker is set within worker contexts, where [Global.Messaging] (if
		// any) does not deliver to self.
		Worker WorkerScope

		// Channels constructs entangled message port pairs.
		Channels ChannelFactory

		// Document is the host's document model.
		Document Document

		// Evaluator compiles and runs source text, used by [Source] tasks.
		Evaluator Evaluator

		// Immediate is the installed implementation, if any. See [Install].
		Immediate Immediate

		mu sync.Mutex
	}

	// Immediate is the public contract exposed by an installed scheduler.
	Immediate interface {
		SetImmediate(fn Func, args ...any) (Handle, error)
		Schedule(task Task) (Handle, error)
		ClearImmediate(handle Handle)
	}

	// Timers schedules fn to run on the host's loop no earlier than delay.
	Timers interface {
		SetTimeout(fn func(), delay time.Duration) error
	}

	// ErrorReporter is the host's reporting path for failures that escape a
	// turn of its loop.
	ErrorReporter interface {
		ReportError(err error)
	}

	// Process runs callbacks after the current operation, before any other
	// queued work (I/O, timers).
	Process interface {
		NextTick(fn func()) error
	}

	// RuntimeProcess is the structural signature of a genuine process object,
	// as opposed to an emulation layer that only provides NextTick.
	RuntimeProcess interface {
		Process
		Pid() int
	}

	// Messaging models window.postMessage and the "message" event.
	Messaging interface {
		// PostMessage queues a message event on this target. Hosts may deliver
		// it synchronously, which [Select] detects and rejects.
		PostMessage(data any, targetOrigin string) error
		// OnMessage returns the current onmessage handler, possibly nil.
		OnMessage() MessageHandler
		// SetOnMessage replaces the onmessage handler, nil clears it.
		SetOnMessage(handler MessageHandler)
		// AddMessageListener registers an additional listener, returning a
		// function that removes it.
		AddMessageListener(handler MessageHandler) (remove func())
	}

	// MessageEvent is delivered to [MessageHandler] values.
	MessageEvent struct {
		// Data is the posted payload.
		Data any
		// Source identifies the poster, for window messaging it is the
		// [Messaging] value that PostMessage was called on.
		Source any
		// Origin is the origin of the poster.
		Origin string
	}

	// MessageHandler receives message events.
	MessageHandler func(event *MessageEvent)

	// WorkerScope marks a worker context, modelled on importScripts.
	WorkerScope interface {
		ImportScripts(urls ...string) error
	}

	// ChannelFactory models the MessageChannel constructor.
	ChannelFactory interface {
		NewMessageChannel() (port1, port2 MessagePort)
	}

	// MessagePort is one end of a message channel. Messages posted on one
	// port are delivered, asynchronously, to the other's onmessage handler.
	MessagePort interface {
		PostMessage(data any) error
		SetOnMessage(handler MessageHandler)
		Close() error
	}

	// Document models the subset of the DOM used by [KindReadyStateChange].
	Document interface {
		DocumentElement() Element
		CreateElement(tagName string) Element
	}

	// Element is a node that may contain other elements.
	Element interface {
		AppendChild(child Element) error
		RemoveChild(child Element) error
	}

	// ReadyStateElement is an element supporting the legacy
	// onreadystatechange signal, fired asynchronously once inserted.
	ReadyStateElement interface {
		Element
		SetOnReadyStateChange(fn func())
	}

	// Evaluator compiles and runs source text, with no arguments.
	Evaluator interface {
		Evaluate(source string) error
	}
)
