// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package immediate

import (
	"sync/atomic"
)

// Stats is a snapshot of [Registry] counters.
//
// The counters are updated independently, a snapshot taken while tasks are
// in flight may be momentarily inconsistent (e.g. Executed+Cancelled briefly
// exceeding Registered minus pending).
type Stats struct {
	// Registered counts tasks accepted by Register.
	Registered uint64
	// Executed counts task bodies started.
	Executed uint64
	// Cancelled counts tasks removed by Cancel before starting.
	Cancelled uint64
	// Retried counts dispatches deferred because another task was running.
	Retried uint64
	// Failed counts task bodies that returned an error.
	Failed uint64
}

type stats struct {
	registered atomic.Uint64
	executed   atomic.Uint64
	cancelled  atomic.Uint64
	retried    atomic.Uint64
	failed     atomic.Uint64
}

func (x *stats) snapshot() Stats {
	return Stats{
		Registered: x.registered.Load(),
		Executed:   x.executed.Load(),
		Cancelled:  x.cancelled.Load(),
		Retried:    x.retried.Load(),
		Failed:     x.failed.Load(),
	}
}
