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

// MessageChannel is a pair of entangled ports: messages posted on one are
// received by the other, as tasks on the loop, in order.
type MessageChannel struct {
	Port1 *MessagePort
	Port2 *MessagePort
}

// MessagePort is one end of a [MessageChannel], implementing
// [immediate.MessagePort].
//
// As with the port message queue of browsers, messages received before an
// onmessage handler is set are held, then delivered (in order) once it is.
type MessagePort struct {
	loop      *Loop
	other     *MessagePort
	onmessage immediate.MessageHandler
	pending   []any
	mu        sync.Mutex
	closed    bool
}

var _ immediate.MessagePort = (*MessagePort)(nil)

// NewMessageChannel creates a new [MessageChannel] delivering via loop.
func NewMessageChannel(loop *Loop) *MessageChannel {
	port1 := &MessagePort{loop: loop}
	port2 := &MessagePort{loop: loop, other: port1}
	port1.other = port2
	return &MessageChannel{Port1: port1, Port2: port2}
}

// ChannelFactory implements [immediate.ChannelFactory] for a [Loop].
type ChannelFactory struct {
	loop *Loop
}

var _ immediate.ChannelFactory = (*ChannelFactory)(nil)

// NewChannelFactory returns a [ChannelFactory] creating channels bound to
// loop.
func NewChannelFactory(loop *Loop) *ChannelFactory {
	return &ChannelFactory{loop: loop}
}

// NewMessageChannel creates an entangled port pair.
func (x *ChannelFactory) NewMessageChannel() (port1, port2 immediate.MessagePort) {
	ch := NewMessageChannel(x.loop)
	return ch.Port1, ch.Port2
}

// PostMessage sends data to the entangled port. It fails with
// [ErrPortClosed] if either port has been closed.
func (p *MessagePort) PostMessage(data any) error {
	p.mu.Lock()
	other := p.other
	closed := p.closed
	p.mu.Unlock()
	if closed || other == nil {
		return ErrPortClosed
	}
	return p.loop.Submit(func() { other.receive(data) })
}

// SetOnMessage sets the onmessage handler, which starts the port. Any
// messages held while no handler was set are delivered by a subsequent
// task, ahead of later messages.
func (p *MessagePort) SetOnMessage(handler immediate.MessageHandler) {
	p.mu.Lock()
	p.onmessage = handler
	flush := handler != nil && len(p.pending) != 0
	p.mu.Unlock()

	if flush {
		_ = p.loop.Submit(p.flush)
	}
}

// Close disentangles the port pair. Messages in flight to this port are
// dropped. Closing a closed port is a no-op.
func (p *MessagePort) Close() error {
	p.mu.Lock()
	other := p.other
	p.other = nil
	p.closed = true
	p.pending = nil
	p.mu.Unlock()

	if other != nil {
		other.mu.Lock()
		other.other = nil
		other.mu.Unlock()
	}
	return nil
}

func (p *MessagePort) receive(data any) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	handler := p.onmessage
	if handler == nil || len(p.pending) != 0 {
		p.pending = append(p.pending, data)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	handler(&immediate.MessageEvent{Data: data})
}

// flush delivers held messages, in order, until none remain, or the port
// is stopped.
func (p *MessagePort) flush() {
	for {
		p.mu.Lock()
		handler := p.onmessage
		if p.closed || handler == nil || len(p.pending) == 0 {
			p.mu.Unlock()
			return
		}
		data := p.pending[0]
		p.pending[0] = nil
		p.pending = p.pending[1:]
		p.mu.Unlock()

		handler(&immediate.MessageEvent{Data: data})
	}
}
