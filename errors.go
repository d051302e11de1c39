// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package immediate

import (
	"errors"
)

var (
	// ErrNoTimers is returned when a [Global] is nil or lacks [Global.Timers],
	// the one capability every host must provide.
	ErrNoTimers = errors.New("immediate: global has no timers")

	// ErrNoEvaluator is the failure of a [Source] task run without an
	// [Evaluator] configured on the [Global].
	ErrNoEvaluator = errors.New("immediate: source text requires an evaluator")

	// ErrBackendUnavailable is returned when a forced backend (see
	// [WithBackend]) is not supported by the [Global].
	ErrBackendUnavailable = errors.New("immediate: backend unavailable")
)
