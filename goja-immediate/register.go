package gojaimmediate

import (
	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
	"github.com/joeycumines/go-immediate/eventloop"
)

// Require returns a [require.ModuleLoader] exporting setImmediate and
// clearImmediate, bound to a scheduler on loop, without modifying the
// runtime's global scope. The integrator registers the loader under whatever
// module name they choose:
//
//	registry := require.NewRegistry()
//	registry.RegisterNativeModule("timers", gojaimmediate.Require(loop))
//	registry.Enable(runtime)
//
// After registration, JavaScript code loads the module by name:
//
//	const { setImmediate, clearImmediate } = require('timers');
//
// The provided options are captured and applied each time a new runtime
// calls require for this module.
func Require(loop *eventloop.Loop, opts ...Option) require.ModuleLoader {
	return func(runtime *goja.Runtime, module *goja.Object) {
		a, err := New(loop, runtime, opts...)
		if err != nil {
			panic(runtime.NewGoError(err))
		}
		if err := a.install(); err != nil {
			panic(runtime.NewGoError(err))
		}
		exports := module.Get("exports").(*goja.Object)
		_ = exports.Set("setImmediate", a.setImmediate)
		_ = exports.Set("clearImmediate", a.clearImmediate)
	}
}
