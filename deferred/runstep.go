package deferred

import (
	"fiberkernel/frame"
	"fiberkernel/handle"
)

// RunStep drives a single ResolveStep to completion against f, chaining
// through as many CALL hops as needed before invoking onDone with the
// final value (or propagating an exception). This is the single-value
// counterpart to GetArguments's per-slot resolution — reusable anywhere
// a hook needs to resolve one deferred result, such as the construction
// pipeline's constructor and finalizer invocations.
func RunStep(f *frame.Frame, step ResolveStep, onDone func(f *frame.Frame, value handle.Value) frame.Outcome) frame.Outcome {
	outcome, callee := runStep(f, step, onDone)
	if outcome.Kind == frame.Call && callee != nil {
		f.Callee = callee
	}
	return outcome
}

func runStep(f *frame.Frame, step ResolveStep, onDone func(f *frame.Frame, value handle.Value) frame.Outcome) (frame.Outcome, *frame.Frame) {
	if step.Done {
		if step.Exception != nil {
			f.PendingException = step.Exception
			return frame.ExceptionOutcome(), nil
		}
		return onDone(f, step.Value), nil
	}
	f.Continuation = func(caller *frame.Frame, result handle.Value) (frame.Outcome, *frame.Frame) {
		return runStep(caller, step.Resume(result), onDone)
	}
	return frame.CallOutcome(), step.Callee
}
