package frame

import (
	"fiberkernel/bytecode"
	"fiberkernel/handle"
)

// ReturnMode selects how a completing frame's result reaches its caller
// (spec §3: "scalar-return slot index (with sentinels for 'discard',
// 'stack top', 'tuple of returns', 'multi-returns')").
type ReturnMode int

const (
	ReturnDiscard ReturnMode = iota
	ReturnSingleSlot
	ReturnTuple
	ReturnMultiFutures
)

// SlotMeta is the per-slot metadata a frame carries for each local/
// argument slot (spec §3 "per-slot metadata (declared type, dynamic-
// reference flag)").
type SlotMeta struct {
	DeclaredType    handle.TypeRef
	DynamicRef      bool
}

// Guard is a protected region's declared exception type and handler PC
// (spec GLOSSARY "Guard"; spec §4.1 exception unwind: "guard's declared
// exception type is a supertype of the raised exception's composition
// type").
type Guard struct {
	ExceptionType handle.TypeRef
	HandlerPC     int
	CaptureSlot   int // -1 if the handler does not bind the exception
}

// Matches reports whether this guard should handle exc, consulting the
// subtype oracle exactly once per candidate guard.
func (g Guard) Matches(exc *handle.Exception, oracle handle.SubtypeOracle) bool {
	if exc == nil {
		return false
	}
	if exc.Code.Uncatchable() {
		return false
	}
	return oracle.IsSubtype(exc.Type, g.ExceptionType)
}

// ScopedFinalizer is a deferred action registered on a frame that runs
// when the frame unwinds on any path (spec GLOSSARY "Scoped finalizer";
// §5 "Scoped resources"). Closing a resource may itself call — Run may
// return a Call outcome, in which case the frame's Callee has been set
// to the closer's frame and the driver must splice it in before
// continuing to unwind.
type ScopedFinalizer struct {
	Run func() (Outcome, *Frame)
}

// Continuation is a one-arg function queued to run when a frame
// completes normally (spec §3 "continuation (one-arg function queued to
// run when the frame completes normally)"). It may:
//   - signal completion by returning (Return outcome, nil) — the frame
//     is popped and the caller resumed with `result` untouched;
//   - produce a new callee by returning (Call outcome, callee) — begin
//     executing callee; this is how multi-step native operations
//     compose (spec §4.1 "Return handling");
//   - set frame.PendingException and return (Exception outcome, nil).
type Continuation func(f *Frame, result handle.Value) (Outcome, *Frame)

// Frame is one activation record (spec §3 "Frame").
type Frame struct {
	Previous *Frame // weak back-link; never owning

	Program *bytecode.Program
	PC      int

	Slots    []handle.Value
	SlotMeta []SlotMeta

	MultiReturnSlots []int
	ReturnMode       ReturnMode
	ReturnSlot       int // slot within this frame holding the return value, meaningful iff ReturnMode == ReturnSingleSlot

	PendingException *handle.Exception

	// FinalizerAnchor is a one-shot finalizer that runs exactly once,
	// after the scoped finalizers, regardless of which path
	// (success/exception) pops the frame. The construct package keeps
	// its own finalizer list and does not set it.
	FinalizerAnchor *ScopedFinalizer

	Callee       *Frame // next-frame pointer; set by CALL-producing code
	Continuation Continuation

	Guards           []Guard
	ScopedFinalizers []*ScopedFinalizer

	// Label is a human-readable activation label for diagnostics/traces
	// only (e.g. "ClassName.method"); never consulted for dispatch.
	Label string
}

// New allocates an activation record for prog, with MaxVars slots
// pre-sized and every slot starting unbound (nil Value — reading it
// before assignment is the caller's responsibility to reject, mirroring
// spec §3's invariant about unbound locals).
func New(prog *bytecode.Program, previous *Frame) *Frame {
	return &Frame{
		Previous:   previous,
		Program:    prog,
		Slots:      make([]handle.Value, prog.MaxVars),
		SlotMeta:   make([]SlotMeta, prog.MaxVars),
		ReturnSlot: -1,
	}
}

// PushGuard installs a guard for the current protected region.
func (f *Frame) PushGuard(g Guard) {
	f.Guards = append(f.Guards, g)
}

// PopGuardsAbove removes every guard from index i (inclusive) upward —
// used both when a try block's protected region ends normally and when
// a handler is found and its guard (and any nested ones above it) must
// be discarded before resuming inside the handler.
func (f *Frame) PopGuardsAbove(i int) {
	f.Guards = f.Guards[:i]
}

// RegisterScopedFinalizer appends a scoped finalizer, to run in reverse
// registration order on unwind (spec §3 invariant, §5).
func (f *Frame) RegisterScopedFinalizer(sf *ScopedFinalizer) {
	f.ScopedFinalizers = append(f.ScopedFinalizers, sf)
}

// PopScopedFinalizer removes and returns the most recently registered
// still-pending scoped finalizer, or nil if none remain.
func (f *Frame) PopScopedFinalizer() *ScopedFinalizer {
	n := len(f.ScopedFinalizers)
	if n == 0 {
		return nil
	}
	sf := f.ScopedFinalizers[n-1]
	f.ScopedFinalizers = f.ScopedFinalizers[:n-1]
	return sf
}
