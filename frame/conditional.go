package frame

import "fiberkernel/handle"

// ConditionalReturn adapts a call site that was declared as a
// "conditional" (boolean-tagged) multi-return receiver against a callee
// that only ever produces a single value (spec §4.1 "Conditional-return
// adapter"). invoke is whatever already knows how to perform the call
// and write its single value into the receiver's value slot (typically
// a thin closure around MethodInvoker.InvokeMethod/NativeInvoker
// .InvokeNative/ConstructInvoker.Construct with that slot as destSlot);
// ConditionalReturn only reshapes the outcome, never re-implements the
// call:
//
//   - NEXT: invoke already wrote the value synchronously; assign the
//     synthesized boolean immediately.
//   - CALL: invoke installed a continuation that will write the value
//     later; wrap it so the boolean is assigned the moment that
//     continuation actually resolves, not before.
//   - EXCEPTION: propagate untouched — neither slot is modified.
func ConditionalReturn(f *Frame, boolSlot int, invoke func(f *Frame) Outcome) Outcome {
	outcome := invoke(f)
	switch outcome.Kind {
	case Next:
		f.Slots[boolSlot] = handle.BoolValue(true)
		return outcome

	case Call:
		var wrap func(inner Continuation) Continuation
		wrap = func(inner Continuation) Continuation {
			return func(caller *Frame, result handle.Value) (Outcome, *Frame) {
				o, next := inner(caller, result)
				switch o.Kind {
				case Exception:
				case Call:
					// Still chaining: follow the re-armed continuation.
					if caller.Continuation != nil {
						caller.Continuation = wrap(caller.Continuation)
					}
				default:
					caller.Slots[boolSlot] = handle.BoolValue(true)
				}
				return o, next
			}
		}
		if f.Continuation != nil {
			f.Continuation = wrap(f.Continuation)
		}
		return outcome

	default:
		return outcome
	}
}
