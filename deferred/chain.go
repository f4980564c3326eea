package deferred

import (
	"fiberkernel/frame"
	"fiberkernel/handle"
)

// Step is one link in a ContinuationChain: ordinary frame-hook shape,
// responsible for installing f.Callee (and f.Continuation, if it needs
// further hops of its own) itself if it needs to call.
type Step func(f *frame.Frame) frame.Outcome

// Chain runs an ordered list of Steps in sequence, propagating Call and
// Exception outcomes correctly (spec §4.5: "ContinuationChain: ordered
// list of continuations executed in sequence, propagating CALL/EXCEPTION
// correctly. If one continuation causes a callee to install its own
// continuation, the chain defers until that inner continuation completes
// before resuming the outer chain"). A Chain is single-use: construct a
// fresh one per invocation.
type Chain struct {
	steps []Step
	idx   int
}

// NewChain builds a chain over steps, run in order starting at the
// first.
func NewChain(steps ...Step) *Chain {
	return &Chain{steps: steps}
}

// Run executes the chain from its current step, advancing through as
// many steps as complete synchronously (Next/Return), and stopping at
// the first Call or Exception.
func (c *Chain) Run(f *frame.Frame) frame.Outcome {
	for c.idx < len(c.steps) {
		step := c.steps[c.idx]
		outcome := step(f)
		switch outcome.Kind {
		case frame.Call:
			// Whatever continuation the step installed (if any) keeps
			// running until it stops producing further calls; only then
			// does the outer chain resume at the next step.
			f.Continuation = c.deferUntilDone(f.Continuation)
			return outcome
		case frame.Exception:
			return outcome
		default:
			c.idx++
		}
	}
	return frame.ReturnOutcome()
}

func (c *Chain) deferUntilDone(inner frame.Continuation) frame.Continuation {
	return func(caller *frame.Frame, result handle.Value) (frame.Outcome, *frame.Frame) {
		if inner != nil {
			outcome, next := inner(caller, result)
			if outcome.Kind == frame.Call {
				// Inner continuation is still chaining: it has re-armed
				// caller.Continuation for its next hop, so keep deferring
				// the outer chain behind that one too.
				caller.Continuation = c.deferUntilDone(caller.Continuation)
				return outcome, next
			}
			if outcome.Kind != frame.Next && outcome.Kind != frame.Return {
				// Inner continuation failed outright — propagate untouched.
				return outcome, next
			}
		}
		c.idx++
		out := c.Run(caller)
		if out.Kind == frame.Call {
			return out, caller.Callee
		}
		return out, nil
	}
}
