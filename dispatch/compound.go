package dispatch

import (
	"fiberkernel/deferred"
	"fiberkernel/frame"
	"fiberkernel/handle"
)

// CompoundOp drives the fixed three-step state machine behind every
// compound property/ref in-place operation — pre-/post-increment and
// every binary compound assignment (spec §4.7 "Compound property/ref
// in-place ops"): (0) read current value, (1) invoke the action, (2)
// write new value; post-form returns the pre-value, pre-form returns the
// post-value. It is PC-agnostic (built on Properties.readValue/
// writeValue, not the op-level Get/SetProperty) so it reports a plain
// deferred.ResolveStep: callers wrap it as a single NativeHandler body,
// letting Natives.InvokeNative own the one PC advancement for the whole
// compound op rather than one per step.
type CompoundOp struct {
	Properties *Properties
	PropName   string
	// Action computes the new value from the current one (e.g. "next",
	// or a binary "+" against an operand folded in by the caller) and
	// may itself CALL/EXCEPTION.
	Action func(f *frame.Frame, current handle.Value) deferred.ResolveStep
	// Post selects which value the op reports: true returns the
	// pre-action value, false returns the post-action value.
	Post bool
}

// Run executes the three steps against target, reporting the selected
// pre/post value (spec §4.7: "every step may independently produce
// NEXT/CALL/EXCEPTION and the driver threads the outcomes via
// continuations").
func (c *CompoundOp) Run(f *frame.Frame, target handle.Value) deferred.ResolveStep {
	return chainStep(c.Properties.readValue(f, target, c.PropName), func(current handle.Value) deferred.ResolveStep {
		return chainStep(c.Action(f, current), func(next handle.Value) deferred.ResolveStep {
			result := current
			if !c.Post {
				result = next
			}
			return chainStep(c.Properties.writeValue(f, target, c.PropName, next), func(handle.Value) deferred.ResolveStep {
				return deferred.ResolveStep{Done: true, Value: result}
			})
		})
	})
}

// chainStep threads one ResolveStep into onDone, recursing through as
// many CALL hops as step.Resume produces before onDone ever runs — the
// same pattern deferred.getarguments.go's driveResolveStep and
// construct.pipeline's runStepPair follow.
func chainStep(step deferred.ResolveStep, onDone func(value handle.Value) deferred.ResolveStep) deferred.ResolveStep {
	if step.Done {
		if step.Exception != nil {
			return step
		}
		return onDone(step.Value)
	}
	return deferred.ResolveStep{
		Callee: step.Callee,
		Resume: func(result handle.Value) deferred.ResolveStep {
			return chainStep(step.Resume(result), onDone)
		},
	}
}
