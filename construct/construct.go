// Package construct implements the construction pipeline (spec §4.6):
// allocate a struct-access handle, run the default-constructor chain
// root-to-leaf, run the primary constructor, compose and run any
// constructor-anchored finalizers leaf-to-root, then flip the handle to
// public (or immutable) access.
package construct

import (
	"fiberkernel/composition"
	"fiberkernel/deferred"
	"fiberkernel/frame"
	"fiberkernel/handle"
)

// Invoker runs one constructor or finalizer entry against a target and
// argument vector, reporting a deferred.ResolveStep exactly like any
// other native/method invocation seam (spec §4.6, §4.5). The dispatch
// package supplies the real implementation; tests supply a stub.
type Invoker interface {
	InvokeCtor(f *frame.Frame, entry *composition.MethodEntry, target handle.Value, args []handle.Value) deferred.ResolveStep
}

// Builder wires the construction pipeline to a composition registry and
// an Invoker, and implements frame.ConstructInvoker.
type Builder struct {
	registry *composition.Registry
	invoker  Invoker
}

// New returns a Builder ready to serve as the interpreter's ConstructInvoker hook.
func New(registry *composition.Registry, invoker Invoker) *Builder {
	return &Builder{registry: registry, invoker: invoker}
}

// Construct resolves classID against the registry and runs the
// construction pipeline for it, writing the resulting handle to destSlot
// on success (spec §4.6). It implements frame.ConstructInvoker.
func (b *Builder) Construct(f *frame.Frame, classID string, args []handle.Value, destSlot int) frame.Outcome {
	comp, ok := b.registry.Lookup(classID, nil)
	if !ok {
		f.PendingException = &handle.Exception{
			Code: handle.ErrClassNotFound,
			Type: handle.TypeRef{ClassID: classID},
		}
		return frame.ExceptionOutcome()
	}

	p := &pipeline{
		comp:     comp,
		args:     args,
		invoker:  b.invoker,
		destSlot: destSlot,
	}
	p.structHandle = handle.New(comp.Ref, handle.Payload{Fields: comp.NewFields()})

	return p.runDefaultCtor(f, 0)
}

// pipeline carries one construction's local state across however many
// CALL hops its constructor/finalizer chain needs. It accumulates
// finalizer entries itself rather than registering them on the caller
// frame's generic Frame.ScopedFinalizers stack: the construction
// pipeline's finalizers must all run, in leaf-to-root order, regardless
// of whether the caller frame has its own try/catch guards that would
// otherwise intercept an exception before the generic unwind path ever
// reached them.
type pipeline struct {
	comp         *composition.Composition
	structHandle *handle.Handle
	args         []handle.Value
	invoker      Invoker
	destSlot     int

	finalizers []*composition.MethodEntry
}

// runDefaultCtor invokes the default-constructor chain root-to-leaf
// (spec §4.6 step 2), then falls through to the primary constructor.
func (p *pipeline) runDefaultCtor(f *frame.Frame, idx int) frame.Outcome {
	ctors := p.comp.DefaultConstructors()
	if idx >= len(ctors) {
		return p.runPrimary(f)
	}
	entry := &ctors[idx]
	step := p.invoker.InvokeCtor(f, entry, p.structHandle, nil)
	return p.runStep(f, step, func(f *frame.Frame, _ handle.Value) frame.Outcome {
		if entry.Finalizer != nil {
			p.finalizers = append(p.finalizers, entry.Finalizer)
		}
		return p.runDefaultCtor(f, idx+1)
	})
}

// runPrimary invokes the declared primary constructor K with the
// struct-access handle as receiver and the call's own argument vector
// (spec §4.6 step 3). A composition without one completes construction
// immediately with no fields set beyond the default-constructor chain.
func (p *pipeline) runPrimary(f *frame.Frame) frame.Outcome {
	entry, ok := p.comp.PrimaryConstructor()
	if !ok {
		return p.finish(f)
	}
	step := p.invoker.InvokeCtor(f, entry, p.structHandle, p.args)
	return p.runStep(f, step, func(f *frame.Frame, _ handle.Value) frame.Outcome {
		if entry.Finalizer != nil {
			p.finalizers = append(p.finalizers, entry.Finalizer)
		}
		return p.finish(f)
	})
}

// finish drains accumulated finalizers leaf-to-root (LIFO, the reverse
// of accumulation order), flips the handle to public/immutable access,
// writes it to the call site's destination slot, and resumes the
// enclosing frame past OpConstruct (spec §4.6 step 4-5).
func (p *pipeline) finish(f *frame.Frame) frame.Outcome {
	if n := len(p.finalizers); n > 0 {
		entry := p.finalizers[n-1]
		p.finalizers = p.finalizers[:n-1]
		step := p.invoker.InvokeCtor(f, entry, p.structHandle, nil)
		return p.runStep(f, step, func(f *frame.Frame, _ handle.Value) frame.Outcome {
			return p.finish(f)
		})
	}

	p.structHandle.Finalize(p.comp.ImmutablePostConstruct())
	f.Slots[p.destSlot] = p.structHandle
	f.PC++
	return frame.NextOutcome()
}

// failWith drains any remaining finalizers (best-effort: a finalizer
// that itself needs to CALL mid-failure-unwind is not chained here,
// a known simplification — see DESIGN.md) and propagates exc as the
// pipeline's outcome (spec §4.6: finalizers run "regardless of success
// or exception").
func (p *pipeline) failWith(f *frame.Frame, exc *handle.Exception) frame.Outcome {
	for n := len(p.finalizers); n > 0; n = len(p.finalizers) {
		entry := p.finalizers[n-1]
		p.finalizers = p.finalizers[:n-1]
		step := p.invoker.InvokeCtor(f, entry, p.structHandle, nil)
		if !step.Done {
			// Known simplification: a finalizer that blocks on CALL
			// during failure-path unwind is not driven further here.
			break
		}
		if step.Exception != nil {
			exc = step.Exception
		}
	}
	f.PendingException = exc
	return frame.ExceptionOutcome()
}

// runStep drives one ResolveStep to completion, chaining through CALL
// hops via f.Continuation exactly like deferred.RunStep, but routing a
// terminal exception through failWith instead of setting
// f.PendingException directly so the pipeline's own finalizers still
// run.
func (p *pipeline) runStep(f *frame.Frame, step deferred.ResolveStep, onDone func(f *frame.Frame, value handle.Value) frame.Outcome) frame.Outcome {
	outcome, callee := p.runStepPair(f, step, onDone)
	if outcome.Kind == frame.Call && callee != nil {
		f.Callee = callee
	}
	return outcome
}

func (p *pipeline) runStepPair(f *frame.Frame, step deferred.ResolveStep, onDone func(f *frame.Frame, value handle.Value) frame.Outcome) (frame.Outcome, *frame.Frame) {
	if step.Done {
		if step.Exception != nil {
			return p.failWith(f, step.Exception), nil
		}
		return onDone(f, step.Value), nil
	}
	f.Continuation = func(caller *frame.Frame, result handle.Value) (frame.Outcome, *frame.Frame) {
		return p.runStepPair(caller, step.Resume(result), onDone)
	}
	return frame.CallOutcome(), step.Callee
}
