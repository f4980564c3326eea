package bytecode

import "fiberkernel/handle"

// Program is a method's compiled op vector plus the metadata the spec's
// §6 external interface names: "(max-vars, max-scopes, returns,
// parameters)". Constants referenced by PushConst/Construct/InvokeNative/
// InvokeMethod operands are resolved once, at load time, into this
// Program's ConstantPool.
type Program struct {
	Code          []Instruction
	ConstantPool  []any // typed constants the (out-of-scope) loader produced
	MaxVars       int
	MaxScopes     int
	NumReturns    int // 0 = none, 1 = single, >1 = fixed multi-return
	NumParams     int
	ClassID       string
	MethodSig     string
}

// ConstString fetches a string constant from the pool, panicking on a
// type mismatch — a corrupt constant pool is a load-time fault (spec §7
// taxonomy item 2), never something the interpreter should silently
// coerce around at run time.
func (p *Program) ConstString(idx int32) string {
	return p.ConstantPool[idx].(string)
}

// ConstValue fetches a handle-shaped constant from the pool.
func (p *Program) ConstValue(idx int32) handle.Value {
	return p.ConstantPool[idx].(handle.Value)
}

// Loader validates a just-parsed Program against the closed opcode set
// before it ever reaches the interpreter (spec §6: "Forward
// compatibility: an unknown opcode raises at load time, not at run
// time"). The constant-pool parser itself is the out-of-scope external
// collaborator (spec §1); Loader is the narrow seam the interpreter-side
// of this repository owns.
type Loader struct{}

// NewLoader returns a Loader.
func NewLoader() *Loader { return &Loader{} }

// Validate rejects a Program containing any opcode outside the closed
// set. It is the only place "unknown opcode" is ever a load fault; the
// interpreter itself assumes every Program it receives already passed
// through here.
func (l *Loader) Validate(p *Program) error {
	for _, instr := range p.Code {
		if !instr.Op.Valid() {
			return &LoadError{Reason: "unknown opcode", Op: instr.Op}
		}
	}
	return nil
}

// LoadError reports a load-time rejection — a runtime fault (spec §7
// taxonomy item 2), distinct from a program exception: no guard in user
// bytecode can ever catch it because it never reaches a running frame.
type LoadError struct {
	Reason string
	Op     OpCode
}

func (e *LoadError) Error() string {
	return e.Reason + ": " + e.Op.String()
}
