// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package eventloop

import (
	"sync"

	"github.com/joeycumines/go-immediate"
)

const messageEventType = "message"

// messageTarget implements the receiving half of [immediate.Messaging]:
// the onmessage handler, plus "message" event listeners.
type messageTarget struct {
	*EventTarget
	onmessage immediate.MessageHandler
	mu        sync.Mutex
}

// OnMessage returns the current onmessage handler, which may be nil.
func (x *messageTarget) OnMessage() immediate.MessageHandler {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.onmessage
}

// SetOnMessage replaces the onmessage handler. A nil handler clears it.
func (x *messageTarget) SetOnMessage(handler immediate.MessageHandler) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.onmessage = handler
}

// AddMessageListener registers handler for "message" events, in addition
// to any onmessage handler, returning a function that removes it.
func (x *messageTarget) AddMessageListener(handler immediate.MessageHandler) (remove func()) {
	if handler == nil {
		return func() {}
	}
	id := x.AddEventListener(messageEventType, func(event *Event) {
		if v, ok := event.Detail().(*immediate.MessageEvent); ok {
			handler(v)
		}
	})
	return func() { x.RemoveEventListener(messageEventType, id) }
}

// dispatchMessage delivers event to the onmessage handler, then the
// listeners.
func (x *messageTarget) dispatchMessage(event *immediate.MessageEvent) {
	if handler := x.OnMessage(); handler != nil {
		handler(event)
	}
	x.DispatchEvent(NewCustomEvent(messageEventType, event))
}

// Window models the cross-document messaging surface of a browser window,
// bound to a [Loop]. It implements [immediate.Messaging], and
// [immediate.ChannelFactory].
//
// Messages posted to a window are delivered to itself, as tasks on the
// loop, unless [WithSynchronousPostMessage] is enabled.
type Window struct {
	messageTarget
	loop        *Loop
	origin      string
	synchronous bool
}

var (
	_ immediate.Messaging      = (*Window)(nil)
	_ immediate.ChannelFactory = (*Window)(nil)
)

// NewWindow creates a [Window] delivering messages via loop.
func NewWindow(loop *Loop, opts ...WindowOption) (*Window, error) {
	cfg, err := resolveWindowOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Window{
		messageTarget: messageTarget{EventTarget: NewEventTarget()},
		loop:          loop,
		origin:        cfg.origin,
		synchronous:   cfg.synchronous,
	}, nil
}

// Origin returns the origin of the window.
func (w *Window) Origin() string { return w.origin }

// PostMessage queues data for delivery to this window. The targetOrigin
// must be "*", "/", or match the window's origin, otherwise the message is
// silently dropped, as in browsers.
func (w *Window) PostMessage(data any, targetOrigin string) error {
	if targetOrigin != "*" && targetOrigin != "/" && targetOrigin != w.origin {
		return nil
	}
	return w.receive(&immediate.MessageEvent{
		Data:   data,
		Source: w,
		Origin: w.origin,
	})
}

func (w *Window) receive(event *immediate.MessageEvent) error {
	if w.synchronous {
		w.dispatchMessage(event)
		return nil
	}
	return w.loop.Submit(func() { w.dispatchMessage(event) })
}

// NewMessageChannel creates an entangled [MessagePort] pair, using the
// window's loop.
func (w *Window) NewMessageChannel() (port1, port2 immediate.MessagePort) {
	ch := NewMessageChannel(w.loop)
	return ch.Port1, ch.Port2
}
