package frame

import "fiberkernel/handle"

// Status is the shape of control returned to whatever is driving the
// interpreter (the service package's scheduler) when Run stops stepping.
type Status int

const (
	// StatusRunning means the op budget ran out with more work pending;
	// the caller should resume Run on the same Top on a later tick.
	StatusRunning Status = iota
	// StatusCompleted means the bottom frame returned; Value holds its
	// result.
	StatusCompleted
	// StatusYielded means a YIELD outcome surfaced; the fiber should be
	// rescheduled cooperatively (spec §4.2 Yielded state).
	StatusYielded
	// StatusWaiting means the fiber is blocked on an external event
	// (deferred value, cross-service call, scoped I/O) and should move to
	// the Waiting state (spec §4.2).
	StatusWaiting
	// StatusFailed means an exception propagated past the outermost
	// frame unhandled; Exception holds it.
	StatusFailed
)

// RunResult is what Run reports back to the driver.
type RunResult struct {
	Status      Status
	Top         *Frame // current top-of-stack frame, valid unless Completed/Failed
	Value       handle.Value
	Exception   *handle.Exception
	OpsConsumed int

	// WaitingOn is set alongside StatusWaiting when the fiber is blocked
	// on a specific future (a Repeat outcome re-checking an unresolved
	// argument/value placeholder); nil for a Block/BlockReturn-driven
	// wait, which has no single future to hook (spec §4.2 "responded-
	// flag").
	WaitingOn *handle.Future
}

// Run drives the interpreter from top, executing at most opBudget
// operations (spec §4.3's per-tick op budget; the caller — the service
// scheduler — is what actually enforces the budget across fibers, but
// Run is given one explicitly so nested scoped-finalizer calls can be
// bounded too). It implements call/return splicing and exception unwind
// (spec §4.1).
func (ip *Interpreter) Run(top *Frame, opBudget int) RunResult {
	cur := top
	ops := 0

	for ops < opBudget {
		outcome := ip.Step(cur)
		ops++

		switch outcome.Kind {
		case Next:
			continue

		case Call:
			callee := cur.Callee
			cur.Callee = nil
			if callee.Previous == nil {
				callee.Previous = cur
			}
			cur = callee

		case Return, BlockReturn:
			result := frameResult(cur)
			remaining := opBudget - ops
			if exc := ip.drainFrameFinalizers(cur, &remaining); exc != nil {
				ops = opBudget - remaining
				cur.PendingException = exc
				if r, done := ip.unwind(cur); done {
					return r
				} else {
					cur = r.Top
					continue
				}
			}
			ops = opBudget - remaining

			if cur.Previous == nil {
				if outcome.Kind == BlockReturn {
					return RunResult{Status: StatusWaiting, Top: cur, Value: result, OpsConsumed: ops}
				}
				return RunResult{Status: StatusCompleted, Value: result, OpsConsumed: ops}
			}
			caller := cur.Previous
			deliverResult(caller, cur, result)
			cur = caller
			if cur.PendingException != nil {
				// the continuation took branch (c): "set a pending
				// exception on the frame" (spec §4.1 Return handling).
				// Route to EXCEPTION handling without popping.
				if r, done := ip.unwind(cur); done {
					r.OpsConsumed = ops
					return r
				} else {
					cur = r.Top
					continue
				}
			}
			if outcome.Kind == BlockReturn {
				return RunResult{Status: StatusWaiting, Top: cur, OpsConsumed: ops}
			}
			if cur.Callee != nil {
				// caller's continuation chose to call again (spec §4.1
				// Return handling: a continuation may "produce a new
				// callee"); splice it in without consuming an extra op.
				callee := cur.Callee
				cur.Callee = nil
				if callee.Previous == nil {
					callee.Previous = cur
				}
				cur = callee
			}

		case ReturnException:
			if cur.Previous == nil {
				return RunResult{Status: StatusFailed, Exception: cur.PendingException, OpsConsumed: ops}
			}
			exc := cur.PendingException
			cur = cur.Previous
			cur.PendingException = exc
			if r, done := ip.unwind(cur); done {
				return r
			} else {
				cur = r.Top
			}

		case Exception:
			if r, done := ip.unwind(cur); done {
				r.OpsConsumed = ops
				return r
			} else {
				cur = r.Top
			}

		case Repeat:
			return RunResult{Status: StatusWaiting, Top: cur, OpsConsumed: ops, WaitingOn: outcome.WaitingOn}

		case Block:
			return RunResult{Status: StatusWaiting, Top: cur, OpsConsumed: ops}

		case Yield:
			return RunResult{Status: StatusYielded, Top: cur, OpsConsumed: ops}

		case Branch:
			// A raw op never legitimately produces Branch (spec §4.1: only
			// a continuation chain's terminal outcome may). Surfacing one
			// here means an op handler misbehaved; fault, don't guess.
			cur.PendingException = &handle.Exception{Code: handle.ErrAssertionFailed}
			if r, done := ip.unwind(cur); done {
				r.OpsConsumed = ops
				return r
			} else {
				cur = r.Top
			}
		}
	}

	return RunResult{Status: StatusRunning, Top: cur, OpsConsumed: ops}
}

// unwind searches cur's guard stack for a handler; if none matches it
// drains cur's finalizers, propagates the exception to cur.Previous, and
// repeats there. Returns (result, true) only when the exception reaches
// past the outermost frame.
func (ip *Interpreter) unwind(cur *Frame) (RunResult, bool) {
	for {
		exc := cur.PendingException
		if g, idx, ok := ip.findGuard(cur, exc); ok {
			cur.PopGuardsAbove(idx)
			if g.CaptureSlot >= 0 {
				cur.Slots[g.CaptureSlot] = exc
			}
			cur.PC = g.HandlerPC
			cur.PendingException = nil
			return RunResult{Top: cur}, false
		}

		budget := 1 << 20 // finalizers during unwind are not tick-budgeted
		if fzExc := ip.drainFrameFinalizers(cur, &budget); fzExc != nil {
			exc = fzExc
		}

		if cur.Previous == nil {
			return RunResult{Status: StatusFailed, Exception: exc}, true
		}
		cur = cur.Previous
		cur.PendingException = exc
	}
}

func (ip *Interpreter) findGuard(f *Frame, exc *handle.Exception) (Guard, int, bool) {
	if exc == nil || ip.hooks.Oracle == nil {
		return Guard{}, 0, false
	}
	for i := len(f.Guards) - 1; i >= 0; i-- {
		if f.Guards[i].Matches(exc, ip.hooks.Oracle) {
			return f.Guards[i], i, true
		}
	}
	return Guard{}, 0, false
}

// drainFrameFinalizers runs f's scoped finalizers in reverse registration
// order, then its constructor finalizer anchor (spec §3, §5 "Scoped
// resources"; spec §4.6 "finalizer composition leaf-to-root"). A
// finalizer that itself calls is run to completion via a nested Run
// bounded by *budget; a finalizer that raises wins over whatever
// exception (if any) was already unwinding through this frame.
func (ip *Interpreter) drainFrameFinalizers(f *Frame, budget *int) *handle.Exception {
	for {
		sf := f.PopScopedFinalizer()
		if sf == nil {
			break
		}
		if exc := ip.runFinalizer(sf, budget); exc != nil {
			return exc
		}
	}
	if f.FinalizerAnchor != nil {
		anchor := f.FinalizerAnchor
		f.FinalizerAnchor = nil
		if exc := ip.runFinalizer(anchor, budget); exc != nil {
			return exc
		}
	}
	return nil
}

func (ip *Interpreter) runFinalizer(sf *ScopedFinalizer, budget *int) *handle.Exception {
	outcome, callee := sf.Run()
	switch outcome.Kind {
	case Return, Next:
		return nil
	case Call:
		res := ip.Run(callee, *budget)
		*budget -= res.OpsConsumed
		if res.Status == StatusFailed {
			return res.Exception
		}
		return nil
	case Exception:
		return callee.PendingException
	default:
		return nil
	}
}

// frameResult extracts the value a completing frame hands to its caller
// (spec §3's ReturnMode sentinels).
func frameResult(f *Frame) handle.Value {
	switch f.ReturnMode {
	case ReturnSingleSlot:
		if f.ReturnSlot < 0 || f.ReturnSlot >= len(f.Slots) {
			return nil
		}
		return f.Slots[f.ReturnSlot]
	case ReturnTuple:
		vals := make([]handle.Value, len(f.MultiReturnSlots))
		for i, slot := range f.MultiReturnSlots {
			vals[i] = f.Slots[slot]
		}
		return handle.TupleValue(vals)
	default:
		return nil
	}
}

// deliverResult writes a completed callee's result into the caller
// through its continuation (spec §3 "continuation... queued to run when
// the frame completes normally"). Whatever installed the Call outcome
// (InvokeNative/InvokeMethod/Construct) is responsible for installing a
// continuation that knows the call site's destination slot; a CALL
// without one discards its result, matching ReturnDiscard semantics.
func deliverResult(caller *Frame, callee *Frame, result handle.Value) {
	if caller.Continuation == nil {
		return
	}
	cont := caller.Continuation
	caller.Continuation = nil
	outcome, next := cont(caller, result)
	switch outcome.Kind {
	case Call:
		caller.Callee = next
	case Branch:
		caller.PC = outcome.BranchPC
	case Exception:
		// continuation sets caller.PendingException itself
	}
}
