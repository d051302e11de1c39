// Package eventloop provides a JavaScript-style host environment for Go,
// against which [immediate] schedulers are run and tested.
//
// # Architecture
//
// The [Loop] is a single goroutine cooperative event loop, with a timer
// heap, an external task queue, a nextTick queue, and a microtask queue.
// Around it sit the host objects the [immediate] backends bridge to:
//
//   - [Process] and [ProcessShim]: process.nextTick, genuine and emulated
//   - [Window]: postMessage to self, asynchronous unless configured with
//     [WithSynchronousPostMessage]
//   - [MessageChannel] and [MessagePort]: entangled port pairs
//   - [Document], [Element], and [ScriptElement]: a document model with
//     legacy script readystatechange events
//   - [WorkerScope]: importScripts, with postMessage directed to the parent
//   - [EventTarget]: DOM-style listeners, embedded by the above
//
// [NewGlobal] and friends compose these into an [immediate.Global].
//
// # Thread Safety
//
// [Loop.Submit], [Loop.ScheduleMicrotask], [Loop.ScheduleNextTick],
// [Loop.ScheduleTimer], and the host objects are safe to call from any
// goroutine. All callbacks run on the goroutine calling [Loop.Run].
//
// # Errors
//
// Panics within callbacks are recovered, wrapped as [PanicError], and passed
// to [Loop.ReportError], which logs them (see [WithLogger]) and calls the
// [WithOnError] hook.
//
// # Usage
//
//	loop, err := eventloop.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	scheduler, err := immediate.New(eventloop.NewServerGlobal(loop))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	loop.Submit(func() {
//	    scheduler.SetImmediate(func(...any) error {
//	        fmt.Println("Hello, after the current task")
//	        return loop.Close()
//	    })
//	})
//
//	if err := loop.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
package eventloop
