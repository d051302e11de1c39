// Package gojaimmediate provides setImmediate and clearImmediate bindings for
// the Goja JavaScript runtime, backed by an [immediate.Scheduler] running on
// an [eventloop.Loop].
//
// # Binding the Adapter
//
//	loop, _ := eventloop.New()
//	runtime := goja.New()
//
//	adapter, err := gojaimmediate.New(loop, runtime,
//	    gojaimmediate.WithProcess(eventloop.NewProcess(loop)))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := adapter.Bind(); err != nil {
//	    log.Fatal(err)
//	}
//
//	loop.Submit(func() {
//	    runtime.RunString(`setImmediate(function (a, b) { console.log(a + b) }, 1, 2)`)
//	})
//
//	loop.Run(context.Background())
//
// # Host Capabilities
//
// The options describe the host being modelled, from which the scheduler
// selects a backend, see [immediate.Select]:
//
//   - [WithProcess]: process.nextTick
//   - [WithWindow]: window.postMessage, and MessageChannel
//   - [WithMessageChannel]: MessageChannel only
//   - [WithDocument]: script onreadystatechange
//   - none: setTimeout
//
// # Thread Safety
//
// Goja runtimes are not thread-safe. Scripts must be run on the loop, e.g. via
// [eventloop.Loop.Submit], where all callbacks also run.
//
// # Available JavaScript Globals
//
//   - setImmediate(callback, ...args) → handle : run callback after the current task
//   - setImmediate(source) → handle : evaluate source text, the legacy form
//   - clearImmediate(handle) → undefined : cancel, unknown handles are ignored
//   - setTimeout(callback, delay?, ...args) → timer ID : only if not already defined
//   - clearTimeout(id) → undefined : only if setTimeout was not already defined
//
// Errors thrown by callbacks are reported to the loop, see
// [eventloop.WithOnError].
package gojaimmediate
