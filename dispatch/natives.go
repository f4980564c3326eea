package dispatch

import (
	"fiberkernel/deferred"
	"fiberkernel/frame"
	"fiberkernel/handle"
)

// Natives implements frame.NativeInvoker, routing OP_INVOKE_NATIVE to a
// free-standing (not composition-scoped) handler table (spec §1:
// "individual opcode implementations beyond interpreter skeleton ops ...
// out of scope" — this is the seam those implementations plug into,
// not an implementation of them).
type Natives struct {
	invoker *Invoker
}

// NewNatives returns a Natives router sharing invoker's handler table
// with the method-dispatch native fast path.
func NewNatives(invoker *Invoker) *Natives {
	return &Natives{invoker: invoker}
}

// InvokeNative implements frame.NativeInvoker.
func (n *Natives) InvokeNative(f *frame.Frame, name string, args []handle.Value, destSlot int) frame.Outcome {
	h, ok := n.invoker.Lookup(name)
	if !ok {
		f.PendingException = &handle.Exception{Code: handle.ErrUnsupported}
		return frame.ExceptionOutcome()
	}
	step := h(f, nil, args)
	return deferred.RunStep(f, step, func(f *frame.Frame, v handle.Value) frame.Outcome {
		f.Slots[destSlot] = v
		f.PC++
		return frame.NextOutcome()
	})
}
