package frame

import (
	"testing"

	"fiberkernel/bytecode"
	"fiberkernel/handle"

	"github.com/stretchr/testify/require"
)

func linearProgram(instrs ...bytecode.Instruction) *bytecode.Program {
	return &bytecode.Program{
		Code:         instrs,
		ConstantPool: []any{},
		MaxVars:      4,
	}
}

func TestRunCompletesOnReturn(t *testing.T) {
	prog := linearProgram(
		bytecode.Instruction{Op: bytecode.OpPushConst, Operands: []int32{0, 0}},
		bytecode.Instruction{Op: bytecode.OpReturn, Operands: []int32{0}},
	)
	prog.ConstantPool = []any{handle.BoolValue(true)}

	ip := New(Hooks{})
	f := New(prog, nil)
	res := ip.Run(f, 100)

	require.Equal(t, StatusCompleted, res.Status)
	require.Equal(t, handle.BoolValue(true), res.Value)
}

func TestRunHaltsAtOpBudget(t *testing.T) {
	prog := linearProgram(
		bytecode.Instruction{Op: bytecode.OpNop},
		bytecode.Instruction{Op: bytecode.OpNop},
		bytecode.Instruction{Op: bytecode.OpReturn, Operands: []int32{-1}},
	)
	ip := New(Hooks{})
	f := New(prog, nil)

	res := ip.Run(f, 1)
	require.Equal(t, StatusRunning, res.Status)
	require.Equal(t, 1, res.OpsConsumed)
	require.Same(t, f, res.Top)
}

// stubNative splices a one-instruction callee frame and installs a
// continuation on the caller that copies the callee's result into a
// fixed slot, exercising CALL/RETURN splicing (spec §4.1).
type stubNative struct {
	calleeProg *bytecode.Program
	destSlot   int
}

func (n *stubNative) InvokeNative(f *Frame, name string, args []handle.Value, destSlot int) Outcome {
	callee := New(n.calleeProg, f)
	f.Callee = callee
	f.PC++
	f.Continuation = func(caller *Frame, result handle.Value) (Outcome, *Frame) {
		caller.Slots[n.destSlot] = result
		return ReturnOutcome(), nil
	}
	return CallOutcome()
}

func TestRunSplicesCallAndDeliversResult(t *testing.T) {
	calleeProg := linearProgram(
		bytecode.Instruction{Op: bytecode.OpPushConst, Operands: []int32{0, 0}},
		bytecode.Instruction{Op: bytecode.OpReturn, Operands: []int32{0}},
	)
	calleeProg.ConstantPool = []any{handle.BoolValue(true)}

	callerProg := linearProgram(
		bytecode.Instruction{Op: bytecode.OpInvokeNative, Operands: []int32{0, 0, 0, 1}},
		bytecode.Instruction{Op: bytecode.OpReturn, Operands: []int32{1}},
	)
	callerProg.ConstantPool = []any{"helper"}

	ip := New(Hooks{Natives: &stubNative{calleeProg: calleeProg, destSlot: 1}})
	f := New(callerProg, nil)

	res := ip.Run(f, 100)
	require.Equal(t, StatusCompleted, res.Status)
	require.Equal(t, handle.BoolValue(true), res.Value)
}

func TestRunUnwindsToMatchingGuard(t *testing.T) {
	excType := handle.TypeRef{ClassID: "Error"}
	prog := linearProgram(
		bytecode.Instruction{Op: bytecode.OpPushGuard, Operands: []int32{0, 3, -1}},
		bytecode.Instruction{Op: bytecode.OpPushConst, Operands: []int32{1, 0}},
		bytecode.Instruction{Op: bytecode.OpRaise, Operands: []int32{0}},
		bytecode.Instruction{Op: bytecode.OpReturn, Operands: []int32{-1}},
	)
	prog.ConstantPool = []any{excType, &handle.Exception{Code: handle.ErrUser, Type: excType}}

	ip := New(Hooks{Oracle: fixedOracle{subtype: true}})
	f := New(prog, nil)

	res := ip.Run(f, 100)
	require.Equal(t, StatusCompleted, res.Status)
	require.Equal(t, 3, f.PC)
}

// stubFailingNative splices a callee frame whose continuation takes
// Return handling branch (c): it sets a pending exception on the caller
// instead of assigning a result (spec §4.1).
type stubFailingNative struct {
	calleeProg *bytecode.Program
	exc        *handle.Exception
}

func (n *stubFailingNative) InvokeNative(f *Frame, name string, args []handle.Value, destSlot int) Outcome {
	callee := New(n.calleeProg, f)
	f.Callee = callee
	f.PC++
	f.Continuation = func(caller *Frame, result handle.Value) (Outcome, *Frame) {
		caller.PendingException = n.exc
		return ExceptionOutcome(), nil
	}
	return CallOutcome()
}

func TestRunRoutesContinuationExceptionToUnwindWithoutPopping(t *testing.T) {
	calleeProg := linearProgram(
		bytecode.Instruction{Op: bytecode.OpPushConst, Operands: []int32{0, 0}},
		bytecode.Instruction{Op: bytecode.OpReturn, Operands: []int32{0}},
	)
	calleeProg.ConstantPool = []any{handle.BoolValue(true)}

	callerProg := linearProgram(
		bytecode.Instruction{Op: bytecode.OpPushGuard, Operands: []int32{1, 2, -1}},
		bytecode.Instruction{Op: bytecode.OpInvokeNative, Operands: []int32{0, 0, 0, 1}},
		bytecode.Instruction{Op: bytecode.OpReturn, Operands: []int32{1}},
	)
	excType := handle.TypeRef{ClassID: "Error"}
	exc := &handle.Exception{Code: handle.ErrUser, Type: excType}
	callerProg.ConstantPool = []any{"helper", excType}

	ip := New(Hooks{
		Natives: &stubFailingNative{calleeProg: calleeProg, exc: exc},
		Oracle:  fixedOracle{subtype: true},
	})
	f := New(callerProg, nil)

	res := ip.Run(f, 100)

	// The guard pushed in the caller frame catches the continuation's
	// exception and the fiber completes normally by reaching its own
	// handler PC, never popping past the caller.
	require.Equal(t, StatusCompleted, res.Status)
	require.Equal(t, 2, f.PC)
}

func TestRunFailsWhenContinuationExceptionEscapesOutermostFrame(t *testing.T) {
	calleeProg := linearProgram(
		bytecode.Instruction{Op: bytecode.OpPushConst, Operands: []int32{0, 0}},
		bytecode.Instruction{Op: bytecode.OpReturn, Operands: []int32{0}},
	)
	calleeProg.ConstantPool = []any{handle.BoolValue(true)}

	callerProg := linearProgram(
		bytecode.Instruction{Op: bytecode.OpInvokeNative, Operands: []int32{0, 0, 0, 1}},
		bytecode.Instruction{Op: bytecode.OpReturn, Operands: []int32{1}},
	)
	callerProg.ConstantPool = []any{"helper"}
	exc := &handle.Exception{Code: handle.ErrUser, Type: handle.TypeRef{ClassID: "Error"}}

	ip := New(Hooks{
		Natives: &stubFailingNative{calleeProg: calleeProg, exc: exc},
		Oracle:  fixedOracle{subtype: false},
	})
	f := New(callerProg, nil)

	res := ip.Run(f, 100)

	require.Equal(t, StatusFailed, res.Status)
	require.Equal(t, handle.ErrUser, res.Exception.Code)
}

func TestRunFailsWhenExceptionEscapesOutermostFrame(t *testing.T) {
	prog := linearProgram(
		bytecode.Instruction{Op: bytecode.OpPushConst, Operands: []int32{0, 0}},
		bytecode.Instruction{Op: bytecode.OpRaise, Operands: []int32{0}},
	)
	excType := handle.TypeRef{ClassID: "Error"}
	prog.ConstantPool = []any{&handle.Exception{Code: handle.ErrUser, Type: excType}}

	ip := New(Hooks{Oracle: fixedOracle{subtype: false}})
	f := New(prog, nil)

	res := ip.Run(f, 100)
	require.Equal(t, StatusFailed, res.Status)
	require.Equal(t, handle.ErrUser, res.Exception.Code)
}
