// Copyright 2026 Joseph Cumines
//
// goja-immediate: Goja bindings for setImmediate
//
// This binds an immediate.Scheduler to the Goja JavaScript runtime.

package gojaimmediate

import (
	"fmt"
	"time"

	"github.com/dop251/goja"
	"github.com/joeycumines/go-immediate"
	"github.com/joeycumines/go-immediate/eventloop"
)

// Adapter bridges a Goja runtime to an [immediate.Scheduler], running on an
// [eventloop.Loop]. The runtime doubles as the scheduler's
// [immediate.Evaluator], for the legacy string form of setImmediate.
type Adapter struct {
	runtime          *goja.Runtime
	loop             *eventloop.Loop
	global           *immediate.Global
	immediate        immediate.Immediate
	schedulerOptions []immediate.Option
}

var _ immediate.Evaluator = (*Adapter)(nil)

// New creates a new adapter for the given loop and runtime. The scheduler
// is not installed until [Adapter.Bind], or [Require], is called.
func New(loop *eventloop.Loop, runtime *goja.Runtime, opts ...Option) (*Adapter, error) {
	if loop == nil {
		return nil, fmt.Errorf("loop cannot be nil")
	}
	if runtime == nil {
		return nil, fmt.Errorf("runtime cannot be nil")
	}

	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	a := &Adapter{
		runtime:          runtime,
		loop:             loop,
		schedulerOptions: cfg.schedulerOptions,
	}

	g := eventloop.NewGlobal(loop)
	g.Evaluator = a
	if cfg.process != nil {
		g.Process = cfg.process
	}
	if cfg.messageChannel {
		g.Channels = eventloop.NewChannelFactory(loop)
	}
	if cfg.window != nil {
		g.Messaging = cfg.window
		g.Channels = cfg.window
	}
	if cfg.document != nil {
		g.Document = cfg.document
	}
	a.global = g

	return a, nil
}

// Loop returns the event loop
func (a *Adapter) Loop() *eventloop.Loop {
	return a.loop
}

// Runtime returns the Goja runtime
func (a *Adapter) Runtime() *goja.Runtime {
	return a.runtime
}

// Global returns the host model the scheduler is installed into.
func (a *Adapter) Global() *immediate.Global {
	return a.global
}

// Immediate returns the installed implementation, or nil prior to
// installation.
func (a *Adapter) Immediate() immediate.Immediate {
	return a.immediate
}

// Evaluate runs source in the runtime, as the body of a function
// constructed by the global Function, called with no arguments. It must be
// called on the loop.
func (a *Adapter) Evaluate(source string) error {
	fn, err := a.runtime.New(a.runtime.Get("Function"), a.runtime.ToValue(source))
	if err != nil {
		return err
	}
	call, ok := goja.AssertFunction(fn)
	if !ok {
		return fmt.Errorf("expected a function from the Function constructor, got %s", fn)
	}
	_, err = call(goja.Undefined())
	return err
}

// Bind installs the scheduler, then defines setImmediate and clearImmediate
// in the runtime's global scope. If the global object's prototype already
// carries setTimeout, the functions are defined on the prototype instead.
//
// Bind is a no-op if setImmediate is already defined. A setTimeout and
// clearTimeout pair backed by the loop is defined if absent.
//
// Bind must not race with JavaScript execution, i.e. call it before running
// any scripts, or from the loop.
func (a *Adapter) Bind() error {
	global := a.runtime.GlobalObject()
	if v := global.Get("setImmediate"); v != nil && v.ToBoolean() {
		return nil
	}

	if err := a.install(); err != nil {
		return err
	}

	target := global
	if proto := global.Prototype(); proto != nil {
		if _, ok := goja.AssertFunction(proto.Get("setTimeout")); ok {
			target = proto
		}
	}
	if err := target.Set("setImmediate", a.setImmediate); err != nil {
		return err
	}
	if err := target.Set("clearImmediate", a.clearImmediate); err != nil {
		return err
	}

	if v := global.Get("setTimeout"); v == nil || goja.IsUndefined(v) {
		if err := global.Set("setTimeout", a.setTimeout); err != nil {
			return err
		}
		if err := global.Set("clearTimeout", a.clearTimeout); err != nil {
			return err
		}
	}

	return nil
}

func (a *Adapter) install() error {
	v, err := immediate.Install(a.global, a.schedulerOptions...)
	if err != nil {
		return fmt.Errorf("failed to install scheduler: %w", err)
	}
	a.immediate = v
	return nil
}

// setImmediate binding for Goja. Non-function first arguments are converted
// to source text, and evaluated in the global scope.
func (a *Adapter) setImmediate(call goja.FunctionCall) goja.Value {
	var task immediate.Task
	if fn, ok := goja.AssertFunction(call.Argument(0)); ok {
		args := make([]any, 0, len(call.Arguments)-1)
		for _, v := range call.Arguments[1:] {
			args = append(args, v)
		}
		task = immediate.Call(callable(fn), args...)
	} else {
		task = immediate.Source(call.Argument(0).String())
	}

	handle, err := a.immediate.Schedule(task)
	if err != nil {
		panic(a.runtime.NewGoError(err))
	}

	return a.runtime.ToValue(uint64(handle))
}

// clearImmediate binding for Goja
func (a *Adapter) clearImmediate(call goja.FunctionCall) goja.Value {
	v := call.Argument(0)
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return goja.Undefined()
	}
	if id := v.ToInteger(); id > 0 {
		a.immediate.ClearImmediate(immediate.Handle(id))
	}
	return goja.Undefined()
}

// setTimeout binding for Goja, only defined when the runtime lacks one.
func (a *Adapter) setTimeout(call goja.FunctionCall) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(a.runtime.NewTypeError("setTimeout requires a function as first argument"))
	}

	delayMs := call.Argument(1).ToInteger()
	if delayMs < 0 {
		delayMs = 0
	}

	var args []goja.Value
	if len(call.Arguments) > 2 {
		args = append(args, call.Arguments[2:]...)
	}

	id, err := a.loop.ScheduleTimer(time.Duration(delayMs)*time.Millisecond, func() {
		if _, err := fn(goja.Undefined(), args...); err != nil {
			a.loop.ReportError(err)
		}
	})
	if err != nil {
		panic(a.runtime.NewGoError(err))
	}

	return a.runtime.ToValue(uint64(id))
}

// clearTimeout binding for Goja
func (a *Adapter) clearTimeout(call goja.FunctionCall) goja.Value {
	id := call.Argument(0).ToInteger()
	if id > 0 {
		_ = a.loop.CancelTimer(eventloop.TimerID(id)) // unknown timers are ignored
	}
	return goja.Undefined()
}

// callable adapts fn to an [immediate.Func], the args being goja values.
func callable(fn goja.Callable) immediate.Func {
	return func(args ...any) error {
		values := make([]goja.Value, len(args))
		for i, v := range args {
			values[i] = v.(goja.Value)
		}
		_, err := fn(goja.Undefined(), values...)
		return err
	}
}
