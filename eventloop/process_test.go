package eventloop

import (
	"os"
	"strings"
	"testing"

	"github.com/joeycumines/go-immediate"
)

func TestProcess_NextTickRunsBeforeMicrotask(t *testing.T) {
	loop := startLoop(t)
	process := NewProcess(loop)

	if process.Pid() != os.Getpid() {
		t.Errorf("unexpected pid: %d", process.Pid())
	}

	var rec recorder
	done := make(chan struct{})
	if err := loop.Submit(func() {
		_ = loop.ScheduleMicrotask(func() {
			rec.add("microtask")
			close(done)
		})
		_ = process.NextTick(func() {
			rec.add("tick 1")
			_ = process.NextTick(func() { rec.add("tick 2") })
		})
		rec.add("task")
	}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitFor(t, done)

	if got := strings.Join(rec.get(), ","); got != "task,tick 1,tick 2,microtask" {
		t.Errorf("unexpected order: %s", got)
	}
}

func TestProcess_NextTickFromOtherGoroutine(t *testing.T) {
	loop := startLoop(t)
	process := NewProcess(loop)

	done := make(chan struct{})
	if err := process.NextTick(func() { close(done) }); err != nil {
		t.Fatalf("NextTick failed: %v", err)
	}
	waitFor(t, done)
}

func TestProcessShim_UsesTimer(t *testing.T) {
	loop := startLoop(t)
	var shim immediate.Process = NewProcessShim(loop)

	if _, ok := shim.(immediate.RuntimeProcess); ok {
		t.Error("shim must not look like a runtime process")
	}

	var rec recorder
	done := make(chan struct{})
	if err := loop.Submit(func() {
		_ = shim.NextTick(func() {
			rec.add("shim")
			close(done)
		})
		_ = loop.ScheduleMicrotask(func() { rec.add("microtask") })
	}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitFor(t, done)

	if got := strings.Join(rec.get(), ","); got != "microtask,shim" {
		t.Errorf("unexpected order: %s", got)
	}
}

func TestNewGlobal(t *testing.T) {
	loop, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	window, err := NewWindow(loop)
	if err != nil {
		t.Fatalf("NewWindow failed: %v", err)
	}

	if g := NewGlobal(loop); g.Timers != loop || g.Errors != loop || g.Process != nil {
		t.Errorf("unexpected global: %+v", g)
	}
	if g := NewServerGlobal(loop); g.Process == nil {
		t.Error("expected a process")
	}
	if g := NewBrowserGlobal(loop, window, nil); g.Messaging != window || g.Channels != window || g.Document != nil {
		t.Errorf("unexpected global: %+v", g)
	}
	worker := NewWorkerScope(loop, window, nil)
	if g := NewWorkerGlobal(loop, worker); g.Worker != worker || g.Messaging != worker || g.Channels == nil {
		t.Errorf("unexpected global: %+v", g)
	}
}
