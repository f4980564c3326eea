package frame

import (
	"fiberkernel/bytecode"
	"fiberkernel/handle"
)

// PropertyAccessor is the seam the dispatch package's property surface
// (spec §4.7) plugs into the interpreter through, keeping frame free of
// any import on dispatch/composition (spec §9 Design Notes: "implement
// as a dispatch table on composition, not inheritance"). Implementations
// own PC advancement: a Next result must leave f.PC pointing at the
// following instruction; a Call result must leave f.PC at the resume
// point and f.Callee set.
type PropertyAccessor interface {
	GetProperty(f *Frame, target handle.Value, propName string, destSlot int) Outcome
	SetProperty(f *Frame, target handle.Value, propName string, value handle.Value) Outcome
}

// MethodInvoker resolves and invokes (or splices a callee frame for) a
// method call (spec §4.7 "native-method fast path" and ordinary bytecode
// calls alike). Same PC-ownership contract as PropertyAccessor.
type MethodInvoker interface {
	InvokeMethod(f *Frame, target handle.Value, sig string, args []handle.Value, destSlot int) Outcome
}

// NativeInvoker routes OpInvokeNative to the dispatch package's native
// handler table. Same PC-ownership contract as PropertyAccessor.
type NativeInvoker interface {
	InvokeNative(f *Frame, name string, args []handle.Value, destSlot int) Outcome
}

// ConstructInvoker routes OpConstruct to the construction pipeline (spec
// §4.6). Same PC-ownership contract as PropertyAccessor.
type ConstructInvoker interface {
	Construct(f *Frame, classID string, args []handle.Value, destSlot int) Outcome
}

// Hooks bundles the capability set an Interpreter is parameterized over.
// All four are optional; a nil hook makes its opcode raise Unsupported.
type Hooks struct {
	Properties PropertyAccessor
	Methods    MethodInvoker
	Natives    NativeInvoker
	Construct  ConstructInvoker
	Oracle     handle.SubtypeOracle
}

// Interpreter executes one opcode at a time against a Frame (spec §4.1).
// It owns no fiber/service state — the per-tick op budget and state
// transitions live in the service package, which calls Run once per tick
// and reacts to the RunResult it returns.
type Interpreter struct {
	hooks Hooks
}

// New returns an Interpreter wired with the given capability hooks.
func New(hooks Hooks) *Interpreter {
	return &Interpreter{hooks: hooks}
}

func unsupported(f *Frame) Outcome {
	f.PendingException = &handle.Exception{Code: handle.ErrUnsupported}
	return Outcome{Kind: Exception}
}

// Step executes the single instruction at f.PC and reports the outcome.
// Step owns PC advancement: inline ops move f.PC to the next instruction
// (or to the jump target) themselves, and hook-backed ops leave it to
// the hook (see PropertyAccessor). Run never advances PC on its own.
func (ip *Interpreter) Step(f *Frame) Outcome {
	if f.PC < 0 || f.PC >= len(f.Program.Code) {
		// End of op vector: treated as a Return under whatever
		// ReturnMode the frame already carries (ReturnDiscard, so no
		// value, on a frame that never executed a Return op); an op
		// vector is well-formed bytecode and should always end in an
		// explicit Return, but treat overrun defensively.
		return Outcome{Kind: Return}
	}
	instr := f.Program.Code[f.PC]

	switch instr.Op {
	case bytecode.OpNop:
		f.PC++
		return NextOutcome()

	case bytecode.OpPushConst:
		constIdx, destSlot := instr.Operands[0], instr.Operands[1]
		f.Slots[destSlot] = f.Program.ConstValue(constIdx)
		f.PC++
		return NextOutcome()

	case bytecode.OpPushLocal, bytecode.OpStoreLocal:
		src, dst := instr.Operands[0], instr.Operands[1]
		f.Slots[dst] = f.Slots[src]
		f.PC++
		return NextOutcome()

	case bytecode.OpGetProperty:
		if ip.hooks.Properties == nil {
			return unsupported(f)
		}
		targetSlot, propConstIdx, destSlot := instr.Operands[0], instr.Operands[1], instr.Operands[2]
		target := f.Slots[targetSlot]
		propName := f.Program.ConstString(propConstIdx)
		return ip.hooks.Properties.GetProperty(f, target, propName, int(destSlot))

	case bytecode.OpSetProperty:
		if ip.hooks.Properties == nil {
			return unsupported(f)
		}
		targetSlot, propConstIdx, valueSlot := instr.Operands[0], instr.Operands[1], instr.Operands[2]
		target := f.Slots[targetSlot]
		propName := f.Program.ConstString(propConstIdx)
		return ip.hooks.Properties.SetProperty(f, target, propName, f.Slots[valueSlot])

	case bytecode.OpInvokeNative:
		if ip.hooks.Natives == nil {
			return unsupported(f)
		}
		nameIdx, argStart, argCount, destSlot := instr.Operands[0], instr.Operands[1], instr.Operands[2], instr.Operands[3]
		name := f.Program.ConstString(nameIdx)
		args := f.Slots[argStart : argStart+argCount]
		invoke := func(f *Frame) Outcome { return ip.hooks.Natives.InvokeNative(f, name, args, int(destSlot)) }
		if len(instr.Operands) >= 5 {
			// A declared conditional (boolean-tagged) receiver: the
			// compiler emits the extra operand when the call site
			// expects a two-slot (found, value) return (spec §4.1
			// "Conditional-return adapter").
			return ConditionalReturn(f, int(instr.Operands[4]), invoke)
		}
		return invoke(f)

	case bytecode.OpInvokeMethod:
		if ip.hooks.Methods == nil {
			return unsupported(f)
		}
		targetSlot, sigIdx, argStart, argCount, destSlot := instr.Operands[0], instr.Operands[1], instr.Operands[2], instr.Operands[3], instr.Operands[4]
		target := f.Slots[targetSlot]
		sig := f.Program.ConstString(sigIdx)
		args := f.Slots[argStart : argStart+argCount]
		invoke := func(f *Frame) Outcome { return ip.hooks.Methods.InvokeMethod(f, target, sig, args, int(destSlot)) }
		if len(instr.Operands) >= 6 {
			return ConditionalReturn(f, int(instr.Operands[5]), invoke)
		}
		return invoke(f)

	case bytecode.OpConstruct:
		if ip.hooks.Construct == nil {
			return unsupported(f)
		}
		classIdx, argStart, argCount, destSlot := instr.Operands[0], instr.Operands[1], instr.Operands[2], instr.Operands[3]
		classID := f.Program.ConstString(classIdx)
		args := f.Slots[argStart : argStart+argCount]
		invoke := func(f *Frame) Outcome { return ip.hooks.Construct.Construct(f, classID, args, int(destSlot)) }
		if len(instr.Operands) >= 5 {
			return ConditionalReturn(f, int(instr.Operands[4]), invoke)
		}
		return invoke(f)

	case bytecode.OpJump:
		f.PC = int(instr.Operands[0])
		return NextOutcome()

	case bytecode.OpJumpIfFalse:
		condSlot, target := instr.Operands[0], instr.Operands[1]
		if f.Slots[condSlot] == nil || !f.Slots[condSlot].Truthy() {
			f.PC = int(target)
			return NextOutcome()
		}
		f.PC++
		return NextOutcome()

	case bytecode.OpReturn:
		f.ReturnMode = ReturnSingleSlot
		if len(instr.Operands) > 0 && instr.Operands[0] >= 0 {
			f.ReturnSlot = int(instr.Operands[0])
		} else {
			f.ReturnMode = ReturnDiscard
		}
		return Outcome{Kind: Return}

	case bytecode.OpReturnMulti:
		start, count := instr.Operands[0], instr.Operands[1]
		f.ReturnMode = ReturnTuple
		f.MultiReturnSlots = make([]int, count)
		for i := int32(0); i < count; i++ {
			f.MultiReturnSlots[i] = int(start + i)
		}
		return Outcome{Kind: Return}

	case bytecode.OpRaise:
		excSlot := instr.Operands[0]
		v := f.Slots[excSlot]
		f.PendingException = excFromValue(v)
		return Outcome{Kind: Exception}

	case bytecode.OpPushGuard:
		typeIdx, handlerPC, captureSlot := instr.Operands[0], instr.Operands[1], instr.Operands[2]
		typeRef, _ := f.Program.ConstantPool[typeIdx].(handle.TypeRef)
		f.PushGuard(Guard{ExceptionType: typeRef, HandlerPC: int(handlerPC), CaptureSlot: int(captureSlot)})
		f.PC++
		return NextOutcome()

	case bytecode.OpPopGuard:
		if n := len(f.Guards); n > 0 {
			f.PopGuardsAbove(n - 1)
		}
		f.PC++
		return NextOutcome()

	case bytecode.OpEnterScope, bytecode.OpExitScope:
		// Scope bracketing ops themselves do nothing to control flow;
		// scoped finalizers are registered/run by the construct/dispatch
		// layers that know what resource is in play. Skeleton presence
		// only (spec §1: "skeleton ops that the interpreter itself must
		// recognize").
		f.PC++
		return NextOutcome()

	default:
		f.PendingException = &handle.Exception{Code: handle.ErrUnknownOpcode}
		return Outcome{Kind: Exception}
	}
}

func excFromValue(v handle.Value) *handle.Exception {
	if exc, ok := v.(*handle.Exception); ok {
		return exc
	}
	return &handle.Exception{Code: handle.ErrUser, Value: v}
}
