package dispatch

import (
	"fiberkernel/composition"
	"fiberkernel/deferred"
	"fiberkernel/frame"
	"fiberkernel/handle"
)

// Methods implements frame.MethodInvoker: resolve a signature's method
// chain on the target's composition and invoke the most-derived entry
// (spec §4.7 "native-method fast path" applies uniformly whether the
// resolved entry is native or bytecode).
type Methods struct {
	registry *composition.Registry
	caller   MethodCaller
}

// NewMethods returns a Methods invoker wired to registry and caller.
func NewMethods(registry *composition.Registry, caller MethodCaller) *Methods {
	return &Methods{registry: registry, caller: caller}
}

// InvokeMethod implements frame.MethodInvoker.
func (m *Methods) InvokeMethod(f *frame.Frame, target handle.Value, sig string, args []handle.Value, destSlot int) frame.Outcome {
	h, ok := target.(*handle.Handle)
	if !ok {
		f.PendingException = &handle.Exception{Code: handle.ErrUnsupported}
		return frame.ExceptionOutcome()
	}
	comp, ok := m.registry.Resolve(h.Composition())
	if !ok {
		f.PendingException = &handle.Exception{Code: handle.ErrClassNotFound}
		return frame.ExceptionOutcome()
	}
	chain, ok := comp.ResolveMethod(composition.MethodSignature(sig))
	if !ok || len(chain) == 0 {
		f.PendingException = &handle.Exception{Code: handle.ErrUnsupported}
		return frame.ExceptionOutcome()
	}

	entry := &chain[0]
	step := m.caller.Call(f, entry, h, args)
	return deferred.RunStep(f, step, func(f *frame.Frame, v handle.Value) frame.Outcome {
		f.Slots[destSlot] = v
		f.PC++
		return frame.NextOutcome()
	})
}

// equalsSignature/compareSignature are the fixed method signatures the
// equality/ordering helpers resolve (spec §4.7 "Equality / ordering").
const (
	equalsSignature  composition.MethodSignature = "equals"
	compareSignature composition.MethodSignature = "compare"
)

// CallEqualsSequence adapts two values by resolving a's declared type's
// "equals" method and invoking it with b (spec §4.7: "calls the type's
// equals ... identity-equal short-circuits true"). Field-by-field
// iteration for ordinary composites is the resolved method body's own
// concern, out of this core's scope (spec §1).
func CallEqualsSequence(f *frame.Frame, registry *composition.Registry, caller MethodCaller, a, b handle.Value) deferred.ResolveStep {
	if a == b {
		return deferred.ResolveStep{Done: true, Value: handle.BoolValue(true)}
	}
	ah, ok := a.(*handle.Handle)
	if !ok {
		return deferred.ResolveStep{Done: true, Value: handle.BoolValue(false)}
	}
	comp, ok := registry.Resolve(ah.Composition())
	if !ok {
		return deferred.ResolveStep{Done: true, Exception: &handle.Exception{Code: handle.ErrClassNotFound}}
	}
	chain, ok := comp.ResolveMethod(equalsSignature)
	if !ok || len(chain) == 0 {
		return deferred.ResolveStep{Done: true, Value: handle.BoolValue(false)}
	}
	return caller.Call(f, &chain[0], ah, []handle.Value{b})
}

// CallCompareSequence adapts two values by resolving a's declared type's
// "compare" method and invoking it with b (spec §4.7: "callCompareSequence
// adapt[s] two declared types by calling the first, then the second only
// if the first was equal, for compare: then tie-breaks"). The tie-break
// step is the caller's concern (invoke a second CallCompareSequence on a
// secondary key only if this one reports equal); this helper resolves
// exactly one step of the sequence.
func CallCompareSequence(f *frame.Frame, registry *composition.Registry, caller MethodCaller, a, b handle.Value) deferred.ResolveStep {
	ah, ok := a.(*handle.Handle)
	if !ok {
		return deferred.ResolveStep{Done: true, Exception: &handle.Exception{Code: handle.ErrUnsupported}}
	}
	comp, ok := registry.Resolve(ah.Composition())
	if !ok {
		return deferred.ResolveStep{Done: true, Exception: &handle.Exception{Code: handle.ErrClassNotFound}}
	}
	chain, ok := comp.ResolveMethod(compareSignature)
	if !ok || len(chain) == 0 {
		return deferred.ResolveStep{Done: true, Exception: &handle.Exception{Code: handle.ErrUnsupported}}
	}
	return caller.Call(f, &chain[0], ah, []handle.Value{b})
}
