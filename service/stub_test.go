package service

import (
	"fiberkernel/frame"
	"fiberkernel/handle"
)

// stringValue is a tiny test-only handle.Value so these tests can assert
// on constructed/returned values without a real user-library value type.
type stringValue string

func (v stringValue) Composition() handle.CompositionRef { return 0 }
func (v stringValue) Truthy() bool                       { return v != "" }

// stubConstruct is a minimal frame.ConstructInvoker: it ignores args and
// writes classID itself into destSlot, letting tests assert on which
// class was actually constructed without a real composition registry.
type stubConstruct struct{}

func (stubConstruct) Construct(f *frame.Frame, classID string, args []handle.Value, destSlot int) frame.Outcome {
	f.Slots[destSlot] = stringValue(classID)
	f.PC++
	return frame.NextOutcome()
}

// waitingConstruct repeats on fut until it resolves, exercising the
// Repeat/StatusWaiting/responded-flag path (spec §4.2) the way a real
// constructor blocked on a cross-service call would.
type waitingConstruct struct {
	fut *handle.Future
}

func (w *waitingConstruct) Construct(f *frame.Frame, classID string, args []handle.Value, destSlot int) frame.Outcome {
	ready, v, _ := w.fut.Poll()
	if !ready {
		return frame.RepeatOutcome(w.fut)
	}
	f.Slots[destSlot] = v
	f.PC++
	return frame.NextOutcome()
}
