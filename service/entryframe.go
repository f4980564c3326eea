package service

import (
	"fiberkernel/bytecode"
	"fiberkernel/frame"
)

// buildEntryFrame compiles msg into a fixed, tiny synthetic program: the
// single dispatch op the message names, followed by a Return (spec §4.4
// "messages ... as synthetic service-entry frames with a fixed two-op
// program"). No real compiler ever produces one of these Programs; it
// exists purely so an inbound cross-service message can be driven
// through the same Interpreter.Run loop as any ordinary call.
func buildEntryFrame(msg *Message) *frame.Frame {
	switch msg.Kind {
	case Construct:
		return buildConstructFrame(msg)
	case InvokeSingle, InvokeMulti:
		return buildInvokeFrame(msg)
	case PropertyGet:
		return buildPropertyGetFrame(msg)
	case PropertySet:
		return buildPropertySetFrame(msg)
	default:
		panic("service: unknown message kind")
	}
}

func buildConstructFrame(msg *Message) *frame.Frame {
	n := int32(len(msg.Args))
	destSlot := n
	prog := &bytecode.Program{
		ConstantPool: []any{msg.ClassID},
		MaxVars:      int(n) + 1,
		Code: []bytecode.Instruction{
			{Op: bytecode.OpConstruct, Operands: []int32{0, 0, n, destSlot}},
			{Op: bytecode.OpReturn, Operands: []int32{destSlot}},
		},
	}
	f := frame.New(prog, nil)
	copy(f.Slots, msg.Args)
	return f
}

// buildInvokeFrame serves both InvokeSingle and InvokeMulti: the called
// method's own Return/ReturnMulti instruction is what decides whether
// the result lands in destSlot as a scalar or as a handle.TupleValue
// (frame.frameResult); the proto-frame around it looks identical either
// way.
func buildInvokeFrame(msg *Message) *frame.Frame {
	n := int32(len(msg.Args))
	destSlot := n + 1
	prog := &bytecode.Program{
		ConstantPool: []any{msg.Method},
		MaxVars:      int(n) + 2,
		Code: []bytecode.Instruction{
			{Op: bytecode.OpInvokeMethod, Operands: []int32{0, 0, 1, n, destSlot}},
			{Op: bytecode.OpReturn, Operands: []int32{destSlot}},
		},
	}
	f := frame.New(prog, nil)
	f.Slots[0] = msg.Target
	copy(f.Slots[1:], msg.Args)
	return f
}

func buildPropertyGetFrame(msg *Message) *frame.Frame {
	prog := &bytecode.Program{
		ConstantPool: []any{msg.Property},
		MaxVars:      2,
		Code: []bytecode.Instruction{
			{Op: bytecode.OpGetProperty, Operands: []int32{0, 0, 1}},
			{Op: bytecode.OpReturn, Operands: []int32{1}},
		},
	}
	f := frame.New(prog, nil)
	f.Slots[0] = msg.Target
	return f
}

// buildPropertySetFrame returns the written value itself (slot 1) as the
// frame's result — SetProperty has no destSlot operand of its own, so
// the Return instruction reads straight from the slot the caller already
// placed the value in.
func buildPropertySetFrame(msg *Message) *frame.Frame {
	prog := &bytecode.Program{
		ConstantPool: []any{msg.Property},
		MaxVars:      2,
		Code: []bytecode.Instruction{
			{Op: bytecode.OpSetProperty, Operands: []int32{0, 0, 1}},
			{Op: bytecode.OpReturn, Operands: []int32{1}},
		},
	}
	f := frame.New(prog, nil)
	f.Slots[0] = msg.Target
	f.Slots[1] = msg.Value
	return f
}
