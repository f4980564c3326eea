package deferred

import (
	"fiberkernel/frame"
	"fiberkernel/handle"
)

// resolveValues is the fixed-arity counterpart of resolveArgs: it never
// stops early on a nil entry (AssignValues/ReturnValues vectors are
// fixed in length, unlike a variable-arity call's argument vector).
func resolveValues(f *frame.Frame, values []handle.Value, onReady func(f *frame.Frame, values []handle.Value) frame.Outcome) (frame.Outcome, *frame.Frame) {
	for i, v := range values {
		ph, ok := v.(Placeholder)
		if !ok || ph.Kind == Ready {
			continue
		}
		switch ph.Kind {
		case FutureKind:
			ready, val, exc := ph.Future.Poll()
			if !ready {
				return frame.RepeatOutcome(ph.Future), nil
			}
			if exc != nil {
				f.PendingException = exc
				return frame.ExceptionOutcome(), nil
			}
			values[i] = val
			return resolveValues(f, values, onReady)
		case DeferredKind:
			step := ph.Resolver(f)
			return driveValueStep(f, values, i, step, onReady)
		}
	}
	return onReady(f, values), nil
}

func driveValueStep(f *frame.Frame, values []handle.Value, idx int, step ResolveStep, onReady func(f *frame.Frame, values []handle.Value) frame.Outcome) (frame.Outcome, *frame.Frame) {
	if step.Done {
		if step.Exception != nil {
			f.PendingException = step.Exception
			return frame.ExceptionOutcome(), nil
		}
		values[idx] = step.Value
		return resolveValues(f, values, onReady)
	}
	f.Continuation = func(caller *frame.Frame, result handle.Value) (frame.Outcome, *frame.Frame) {
		return driveValueStep(caller, values, idx, step.Resume(result), onReady)
	}
	return frame.CallOutcome(), step.Callee
}

// AssignValues resolves each entry in values, then writes it into
// f.Slots[slots[i]] before invoking tail — the multi-assignment
// counterpart to GetArguments (spec §4.5: "same pattern for writing into
// multiple return slots; assign ... may itself block (CALL)").
func AssignValues(f *frame.Frame, slots []int, values []handle.Value, tail func(f *frame.Frame) frame.Outcome) frame.Outcome {
	outcome, callee := resolveValues(f, values, func(f *frame.Frame, values []handle.Value) frame.Outcome {
		for i, slot := range slots {
			f.Slots[slot] = values[i]
		}
		return tail(f)
	})
	if outcome.Kind == frame.Call && callee != nil {
		f.Callee = callee
	}
	return outcome
}

// ReturnValues resolves each entry in values, writes them into destSlots
// within f, and configures f for a tuple return before invoking tail
// (typically tail just returns frame.ReturnOutcome()).
func ReturnValues(f *frame.Frame, destSlots []int, values []handle.Value, tail func(f *frame.Frame) frame.Outcome) frame.Outcome {
	outcome, callee := resolveValues(f, values, func(f *frame.Frame, values []handle.Value) frame.Outcome {
		for i, slot := range destSlots {
			f.Slots[slot] = values[i]
		}
		f.MultiReturnSlots = destSlots
		f.ReturnMode = frame.ReturnTuple
		return tail(f)
	})
	if outcome.Kind == frame.Call && callee != nil {
		f.Callee = callee
	}
	return outcome
}
