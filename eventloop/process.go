package eventloop

import (
	"os"

	"github.com/joeycumines/go-immediate"
)

// Process models the process object of a server-side JavaScript runtime,
// implementing [immediate.RuntimeProcess].
type Process struct {
	loop *Loop
	pid  int
}

var _ immediate.RuntimeProcess = (*Process)(nil)

// NewProcess returns a [Process] for loop, reporting the pid of the
// current OS process.
func NewProcess(loop *Loop) *Process {
	return &Process{loop: loop, pid: os.Getpid()}
}

// NextTick schedules fn via [Loop.ScheduleNextTick].
func (x *Process) NextTick(fn func()) error {
	return x.loop.ScheduleNextTick(fn)
}

// Pid returns the process id.
func (x *Process) Pid() int {
	return x.pid
}

// ProcessShim models the emulated process object bundlers inject into
// browser code: NextTick is backed by a zero-delay timer, and there is no
// pid.
type ProcessShim struct {
	loop *Loop
}

var _ immediate.Process = (*ProcessShim)(nil)

// NewProcessShim returns a [ProcessShim] for loop.
func NewProcessShim(loop *Loop) *ProcessShim {
	return &ProcessShim{loop: loop}
}

// NextTick schedules fn using [Loop.SetTimeout], with zero delay.
func (x *ProcessShim) NextTick(fn func()) error {
	return x.loop.SetTimeout(fn, 0)
}
