package gojaimmediate

import (
	"github.com/joeycumines/go-immediate"
	"github.com/joeycumines/go-immediate/eventloop"
)

// adapterOptions holds configuration for an [Adapter].
type adapterOptions struct {
	process          immediate.Process
	window           *eventloop.Window
	document         *eventloop.Document
	schedulerOptions []immediate.Option
	messageChannel   bool
}

// Option configures an [Adapter]. Each option exposes an additional host
// capability to the scheduler, which influences backend selection. With no
// options only timers are available.
type Option interface {
	applyAdapter(*adapterOptions) error
}

// optionFunc implements [Option] via a closure.
type optionFunc struct {
	fn func(*adapterOptions) error
}

func (o *optionFunc) applyAdapter(opts *adapterOptions) error {
	return o.fn(opts)
}

// WithProcess exposes process as the runtime's process object, e.g. an
// [eventloop.Process] to model a server-side runtime.
func WithProcess(process immediate.Process) Option {
	return &optionFunc{fn: func(opts *adapterOptions) error {
		opts.process = process
		return nil
	}}
}

// WithWindow exposes window messaging, and the window's message channels.
func WithWindow(window *eventloop.Window) Option {
	return &optionFunc{fn: func(opts *adapterOptions) error {
		opts.window = window
		return nil
	}}
}

// WithMessageChannel exposes message channels, backed by the adapter's
// loop, independent of any window.
func WithMessageChannel(enabled bool) Option {
	return &optionFunc{fn: func(opts *adapterOptions) error {
		opts.messageChannel = enabled
		return nil
	}}
}

// WithDocument exposes document, enabling the readystatechange backend.
func WithDocument(document *eventloop.Document) Option {
	return &optionFunc{fn: func(opts *adapterOptions) error {
		opts.document = document
		return nil
	}}
}

// WithSchedulerOptions passes options through to [immediate.Install].
func WithSchedulerOptions(options ...immediate.Option) Option {
	return &optionFunc{fn: func(opts *adapterOptions) error {
		opts.schedulerOptions = append(opts.schedulerOptions, options...)
		return nil
	}}
}

// resolveOptions applies the given options to a default [adapterOptions].
func resolveOptions(opts []Option) (*adapterOptions, error) {
	cfg := &adapterOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyAdapter(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
