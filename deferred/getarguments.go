package deferred

import (
	"fiberkernel/frame"
	"fiberkernel/handle"
)

// Tail is invoked once every entry in an argument vector is resolved. It
// follows the same convention as the frame package's hook interfaces: if
// it needs to call further, it installs f.Callee itself before returning
// a Call outcome.
type Tail func(f *frame.Frame, resolved []handle.Value) frame.Outcome

// GetArguments walks args left to right; any Deferred or Future
// placeholder is resolved in place (mutating args, which is typically a
// sub-slice of the caller's own Slots) before tail runs. A nil entry
// ends the scan early — trailing optional arguments are simply absent
// (spec §4.5: "tolerates nulls at the tail, treated as end of
// arguments").
func GetArguments(f *frame.Frame, args []handle.Value, tail Tail) frame.Outcome {
	outcome, callee := resolveArgs(f, args, tail)
	if outcome.Kind == frame.Call && callee != nil {
		f.Callee = callee
	}
	return outcome
}

func resolveArgs(f *frame.Frame, args []handle.Value, tail Tail) (frame.Outcome, *frame.Frame) {
	for i, v := range args {
		if v == nil {
			break
		}
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
			args[i] = val
			return resolveArgs(f, args, tail)
		case DeferredKind:
			step := ph.Resolver(f)
			return driveResolveStep(f, args, i, step, tail)
		}
	}
	return tail(f, args), nil
}

func driveResolveStep(f *frame.Frame, args []handle.Value, idx int, step ResolveStep, tail Tail) (frame.Outcome, *frame.Frame) {
	if step.Done {
		if step.Exception != nil {
			f.PendingException = step.Exception
			return frame.ExceptionOutcome(), nil
		}
		args[idx] = step.Value
		return resolveArgs(f, args, tail)
	}
	f.Continuation = func(caller *frame.Frame, result handle.Value) (frame.Outcome, *frame.Frame) {
		return driveResolveStep(caller, args, idx, step.Resume(result), tail)
	}
	return frame.CallOutcome(), step.Callee
}
