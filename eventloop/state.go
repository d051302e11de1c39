package eventloop

import (
	"sync/atomic"
)

// LoopState is the lifecycle state of a [Loop].
//
//	Awake ──Run──▶ Running ⇄ Sleeping
//	  │                  │
//	  │    Shutdown, Close, or Run's context done
//	  ▼                  ▼
//	Terminated ◀──── Terminating (queues drained)
//
// A loop closed before Run goes directly from Awake to Terminated.
type LoopState uint32

const (
	// StateAwake is a loop that has not been run.
	StateAwake LoopState = iota
	// StateRunning is a loop processing a tick.
	StateRunning
	// StateSleeping is a running loop, blocked waiting for work.
	StateSleeping
	// StateTerminating is a loop draining its queues, prior to stopping.
	StateTerminating
	// StateTerminated is a stopped loop. It accepts no further work.
	StateTerminated
)

var loopStateNames = [...]string{
	StateAwake:       "Awake",
	StateRunning:     "Running",
	StateSleeping:    "Sleeping",
	StateTerminating: "Terminating",
	StateTerminated:  "Terminated",
}

func (s LoopState) String() string {
	if int(s) < len(loopStateNames) {
		return loopStateNames[s]
	}
	return "Unknown"
}

// stateCell holds a LoopState, for lock-free reads and transitions.
type stateCell struct {
	v atomic.Uint32
}

func (x *stateCell) load() LoopState {
	return LoopState(x.v.Load())
}

// store is only used to enter StateTerminated, and must be guarded by
// Loop.mu, to order it with queue pushes.
func (x *stateCell) store(s LoopState) {
	x.v.Store(uint32(s))
}

func (x *stateCell) transition(from, to LoopState) bool {
	return x.v.CompareAndSwap(uint32(from), uint32(to))
}
