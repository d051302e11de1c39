// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package immediate

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

// Kind identifies one of the mutually exclusive backends a [Scheduler] may
// deliver through. The zero value is not a valid backend.
type Kind uint8

const (
	// KindNextTick delegates to [Process.NextTick].
	KindNextTick Kind = iota + 1
	// KindPostMessage posts prefixed handles to self via [Messaging].
	KindPostMessage
	// KindMessageChannel posts handles across a [MessagePort] pair.
	KindMessageChannel
	// KindReadyStateChange inserts a transient script element per task, see
	// [ReadyStateElement].
	KindReadyStateChange
	// KindSetTimeout is the fallback, using [Timers] with zero delay.
	KindSetTimeout
)

// String returns the name of the host API the backend bridges to.
func (k Kind) String() string {
	switch k {
	case KindNextTick:
		return "nextTick"
	case KindPostMessage:
		return "postMessage"
	case KindMessageChannel:
		return "messageChannel"
	case KindReadyStateChange:
		return "readyStateChange"
	case KindSetTimeout:
		return "setTimeout"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// backend arranges for dispatch to be called exactly once, asynchronously,
// for each posted handle.
type backend interface {
	kind() Kind
	post(handle Handle) error
}

type nextTickBackend struct {
	process  Process
	dispatch func(Handle)
}

func (x *nextTickBackend) kind() Kind { return KindNextTick }

func (x *nextTickBackend) post(handle Handle) error {
	return x.process.NextTick(func() { x.dispatch(handle) })
}

type postMessageBackend struct {
	messaging Messaging
	dispatch  func(Handle)
	prefix    string
}

// newMessagePrefix returns a prefix unlikely to collide with unrelated
// message traffic.
func newMessagePrefix() string {
	return `setImmediate$` + strconv.FormatFloat(rand.Float64(), 'f', -1, 64) + `$`
}

func newPostMessageBackend(messaging Messaging, prefix string, dispatch func(Handle)) *postMessageBackend {
	x := &postMessageBackend{
		messaging: messaging,
		dispatch:  dispatch,
		prefix:    prefix,
	}
	// never removed, backends live as long as their scheduler
	messaging.AddMessageListener(x.onGlobalMessage)
	return x
}

func (x *postMessageBackend) kind() Kind { return KindPostMessage }

func (x *postMessageBackend) post(handle Handle) error {
	return x.messaging.PostMessage(x.prefix+strconv.FormatUint(uint64(handle), 10), `*`)
}

func (x *postMessageBackend) onGlobalMessage(event *MessageEvent) {
	if event == nil || event.Source != x.messaging {
		return
	}
	data, ok := event.Data.(string)
	if !ok || !strings.HasPrefix(data, x.prefix) {
		return
	}
	handle, err := strconv.ParseUint(data[len(x.prefix):], 10, 64)
	if err != nil {
		return
	}
	x.dispatch(Handle(handle))
}

type messageChannelBackend struct {
	port1    MessagePort
	port2    MessagePort
	dispatch func(Handle)
}

func newMessageChannelBackend(channels ChannelFactory, dispatch func(Handle)) *messageChannelBackend {
	x := &messageChannelBackend{dispatch: dispatch}
	x.port1, x.port2 = channels.NewMessageChannel()
	x.port1.SetOnMessage(func(event *MessageEvent) {
		if event == nil {
			return
		}
		if handle, ok := event.Data.(Handle); ok {
			x.dispatch(handle)
		}
	})
	return x
}

func (x *messageChannelBackend) kind() Kind { return KindMessageChannel }

func (x *messageChannelBackend) post(handle Handle) error {
	return x.port2.PostMessage(handle)
}

type readyStateChangeBackend struct {
	document Document
	html     Element
	dispatch func(Handle)
}

func (x *readyStateChangeBackend) kind() Kind { return KindReadyStateChange }

func (x *readyStateChangeBackend) post(handle Handle) error {
	script, ok := x.document.CreateElement(`script`).(ReadyStateElement)
	if !ok {
		return ErrBackendUnavailable
	}
	// fires asynchronously once inserted, the element is discarded after
	script.SetOnReadyStateChange(func() {
		defer func() {
			script.SetOnReadyStateChange(nil)
			_ = x.html.RemoveChild(script)
		}()
		x.dispatch(handle)
	})
	if err := x.html.AppendChild(script); err != nil {
		script.SetOnReadyStateChange(nil)
		_ = x.html.RemoveChild(script)
		return err
	}
	return nil
}

type setTimeoutBackend struct {
	timers   Timers
	dispatch func(Handle)
}

func (x *setTimeoutBackend) kind() Kind { return KindSetTimeout }

func (x *setTimeoutBackend) post(handle Handle) error {
	return x.timers.SetTimeout(func() { x.dispatch(handle) }, 0)
}
