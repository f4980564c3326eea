package dispatch

import (
	"fiberkernel/composition"
	"fiberkernel/deferred"
	"fiberkernel/frame"
	"fiberkernel/handle"
)

// RefCell is a reference-wrapped property's backing value (spec §3
// Composition: "back-reference wrapper if reference-typed"; spec §4.7:
// "its get may itself return CALL/EXCEPTION"). A field holding a RefCell
// is dereferenced through GetRef/SetRef rather than read/written
// directly.
type RefCell interface {
	handle.Value
	GetRef(f *frame.Frame) deferred.ResolveStep
	SetRef(f *frame.Frame, v handle.Value) deferred.ResolveStep
}

// Properties implements frame.PropertyAccessor (spec §4.7 "Read"/
// "Write"). Its readValue/writeValue helpers are PC-agnostic — reused by
// both the op-level Get/SetProperty (which own PC advancement per the
// frame package's hook contract) and CompoundOp (which composes several
// reads/writes under a single op's PC advancement).
type Properties struct {
	registry *composition.Registry
	caller   MethodCaller
}

// NewProperties returns a Properties accessor wired to registry and
// caller (the same Invoker the dispatch package's InvokeMethod/
// InvokeNative hooks use).
func NewProperties(registry *composition.Registry, caller MethodCaller) *Properties {
	return &Properties{registry: registry, caller: caller}
}

func (p *Properties) resolve(target handle.Value, propName string) (*handle.Handle, *composition.PropertyDescriptor, *handle.Exception) {
	h, ok := target.(*handle.Handle)
	if !ok {
		return nil, nil, &handle.Exception{Code: handle.ErrUnsupported}
	}
	comp, ok := p.registry.Resolve(h.Composition())
	if !ok {
		return nil, nil, &handle.Exception{Code: handle.ErrClassNotFound}
	}
	id, ok := comp.PropertyByName(propName)
	if !ok {
		return nil, nil, &handle.Exception{Code: handle.ErrUnsupported}
	}
	desc, ok := comp.ResolveProperty(id)
	if !ok {
		return nil, nil, &handle.Exception{Code: handle.ErrUnsupported}
	}
	return h, desc, nil
}

// readValue resolves propName's current value on target, without
// touching PC (spec §4.7 "Read").
func (p *Properties) readValue(f *frame.Frame, target handle.Value, propName string) deferred.ResolveStep {
	h, desc, exc := p.resolve(target, propName)
	if exc != nil {
		return deferred.ResolveStep{Done: true, Exception: exc}
	}

	fv, _ := h.Payload().Fields.Get(desc.Field)

	if desc.RefWrapped {
		if cell, ok := fv.(RefCell); ok {
			return cell.GetRef(f)
		}
		return deferred.ResolveStep{Done: true, Value: fv}
	}

	if h.Access() == handle.AccessStruct || desc.Getter == nil {
		return deferred.ResolveStep{Done: true, Value: fv}
	}

	return p.caller.Call(f, desc.Getter, h, nil)
}

// writeValue writes value into propName on target, without touching PC
// (spec §4.7 "Write").
func (p *Properties) writeValue(f *frame.Frame, target handle.Value, propName string, value handle.Value) deferred.ResolveStep {
	h, desc, exc := p.resolve(target, propName)
	if exc != nil {
		return deferred.ResolveStep{Done: true, Exception: exc}
	}

	if h.Access() == handle.AccessPublic && !h.Mutable() {
		return deferred.ResolveStep{Done: true, Exception: &handle.Exception{Code: handle.ErrReadOnly}}
	}
	if desc.ReadOnly {
		return deferred.ResolveStep{Done: true, Exception: &handle.Exception{Code: handle.ErrReadOnly}}
	}

	if desc.RefWrapped {
		fv, _ := h.Payload().Fields.Get(desc.Field)
		if cell, ok := fv.(RefCell); ok {
			return cell.SetRef(f, value)
		}
	}

	if h.Access() == handle.AccessStruct || desc.Setter == nil {
		h.Payload().Fields.Set(desc.Field, value)
		return deferred.ResolveStep{Done: true, Value: value}
	}

	return p.caller.Call(f, desc.Setter, h, []handle.Value{value})
}

// GetProperty implements frame.PropertyAccessor (spec §4.7 "Read").
func (p *Properties) GetProperty(f *frame.Frame, target handle.Value, propName string, destSlot int) frame.Outcome {
	step := p.readValue(f, target, propName)
	return deferred.RunStep(f, step, func(f *frame.Frame, v handle.Value) frame.Outcome {
		f.Slots[destSlot] = v
		f.PC++
		return frame.NextOutcome()
	})
}

// SetProperty implements frame.PropertyAccessor (spec §4.7 "Write").
func (p *Properties) SetProperty(f *frame.Frame, target handle.Value, propName string, value handle.Value) frame.Outcome {
	step := p.writeValue(f, target, propName, value)
	return deferred.RunStep(f, step, func(f *frame.Frame, _ handle.Value) frame.Outcome {
		f.PC++
		return frame.NextOutcome()
	})
}
