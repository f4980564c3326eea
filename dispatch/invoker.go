// Package dispatch implements the property/method dispatch surface (spec
// §4.7): property read/write with accessor-method and reference-wrapper
// indirection, native-method fast path, the three-step compound-
// assignment driver, and the equals/compare method-call sequence.
package dispatch

import (
	"fiberkernel/bytecode"
	"fiberkernel/composition"
	"fiberkernel/deferred"
	"fiberkernel/frame"
	"fiberkernel/handle"
)

// MethodCaller invokes one resolved method/constructor entry against a
// target and argument vector, reporting a deferred.ResolveStep (the same
// shape construct.Invoker uses) — native entries route to a registered
// NativeHandler, bytecode entries splice a callee frame.
type MethodCaller interface {
	Call(f *frame.Frame, entry *composition.MethodEntry, target handle.Value, args []handle.Value) deferred.ResolveStep
}

// NativeHandler implements one native method or free native operation
// (spec §4.7 "native-method fast path"). It obeys the same outcome
// protocol as a bytecode call: return Done with a value/exception, or
// hand back a Callee+Resume pair to defer further.
type NativeHandler func(f *frame.Frame, target handle.Value, args []handle.Value) deferred.ResolveStep

// Invoker is the default MethodCaller: a registered native-handler table
// plus bytecode splicing for interpreted method bodies.
type Invoker struct {
	natives map[string]NativeHandler
}

// NewInvoker returns an Invoker with an empty native-handler table.
func NewInvoker() *Invoker {
	return &Invoker{natives: make(map[string]NativeHandler)}
}

// Register binds a native handler under name, looked up by
// MethodEntry.NativeName or by the OP_INVOKE_NATIVE operand.
func (inv *Invoker) Register(name string, h NativeHandler) {
	inv.natives[name] = h
}

// Lookup returns a registered native handler by name.
func (inv *Invoker) Lookup(name string) (NativeHandler, bool) {
	h, ok := inv.natives[name]
	return h, ok
}

// Call implements MethodCaller.
func (inv *Invoker) Call(f *frame.Frame, entry *composition.MethodEntry, target handle.Value, args []handle.Value) deferred.ResolveStep {
	if entry.Native {
		h, ok := inv.natives[entry.NativeName]
		if !ok {
			return deferred.ResolveStep{Done: true, Exception: &handle.Exception{Code: handle.ErrUnsupported}}
		}
		return h(f, target, args)
	}

	prog, ok := entry.Code.(*bytecode.Program)
	if !ok {
		return deferred.ResolveStep{Done: true, Exception: &handle.Exception{Code: handle.ErrUnsupported}}
	}
	callee := frame.New(prog, f)
	if len(callee.Slots) > 0 {
		callee.Slots[0] = target
	}
	for i, a := range args {
		if i+1 < len(callee.Slots) {
			callee.Slots[i+1] = a
		}
	}
	return deferred.ResolveStep{
		Callee: callee,
		Resume: func(result handle.Value) deferred.ResolveStep {
			return deferred.ResolveStep{Done: true, Value: result}
		},
	}
}

// InvokeCtor implements construct.Invoker: a constructor entry is called
// exactly the way an ordinary method entry is.
func (inv *Invoker) InvokeCtor(f *frame.Frame, entry *composition.MethodEntry, target handle.Value, args []handle.Value) deferred.ResolveStep {
	return inv.Call(f, entry, target, args)
}
