// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package immediate

import (
	"errors"
	"fmt"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// schedulerOptions holds configuration for Scheduler creation.
type schedulerOptions struct {
	logger        *logiface.Logger[logiface.Event]
	retryLimiter  *catrate.Limiter
	messagePrefix string
	backend       Kind
}

// Option configures a [Scheduler]. See [New] and [Install].
type Option interface {
	applyScheduler(*schedulerOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applySchedulerFunc func(*schedulerOptions) error
}

func (o *optionImpl) applyScheduler(opts *schedulerOptions) error {
	return o.applySchedulerFunc(opts)
}

// defaultRetryLogRates bounds the debug logs emitted per handle while it
// waits on another task.
var defaultRetryLogRates = map[time.Duration]int{
	time.Second: 5,
	time.Minute: 30,
}

// WithLogger configures structured logging. A nil logger disables logging,
// which is also the default.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *schedulerOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithRetryLogRates configures the per-handle rate limits applied to the
// debug log emitted each time a dispatch is deferred by another running task.
// The rates must be valid as per [catrate.NewLimiter], i.e. longer windows
// must allow more events, at a lower rate. An empty map disables the limit.
func WithRetryLogRates(rates map[time.Duration]int) Option {
	return &optionImpl{func(opts *schedulerOptions) error {
		if len(rates) == 0 {
			opts.retryLimiter = nil
			return nil
		}
		limiter, err := newRetryLimiter(rates)
		if err != nil {
			return err
		}
		opts.retryLimiter = limiter
		return nil
	}}
}

// newRetryLimiter converts the panic of catrate.NewLimiter into an error.
func newRetryLimiter(rates map[time.Duration]int) (limiter *catrate.Limiter, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("immediate: invalid retry log rates: %v", r)
		}
	}()
	return catrate.NewLimiter(rates), nil
}

// WithBackend forces the backend, bypassing [Select] (and its probe). [New]
// fails with [ErrBackendUnavailable] if the [Global] cannot support it.
func WithBackend(kind Kind) Option {
	return &optionImpl{func(opts *schedulerOptions) error {
		if kind < KindNextTick || kind > KindSetTimeout {
			return errors.New("immediate: invalid backend kind: " + kind.String())
		}
		opts.backend = kind
		return nil
	}}
}

// WithMessagePrefix overrides the random prefix of [KindPostMessage]
// payloads.
func WithMessagePrefix(prefix string) Option {
	return &optionImpl{func(opts *schedulerOptions) error {
		if prefix == "" {
			return errors.New("immediate: message prefix must not be empty")
		}
		opts.messagePrefix = prefix
		return nil
	}}
}

// resolveOptions applies Option instances to schedulerOptions.
func resolveOptions(opts []Option) (*schedulerOptions, error) {
	cfg := &schedulerOptions{}
	cfg.retryLimiter, _ = newRetryLimiter(defaultRetryLogRates)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyScheduler(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.messagePrefix == "" {
		cfg.messagePrefix = newMessagePrefix()
	}
	return cfg, nil
}
