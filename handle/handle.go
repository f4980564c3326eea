// Package handle implements the uniform, boxed representation of every
// in-memory value the runtime manipulates (spec §3 "Handle").
package handle

// Access marks whether a handle's fields may be touched directly by the
// construction pipeline (struct access, spec §4.6) or only through the
// ordinary property dispatch surface (public access, spec §4.7).
type Access uint8

const (
	AccessStruct Access = iota
	AccessPublic
)

// CompositionRef is a stable, interned reference to a composition record
// (spec §9 Design Notes: "handles reference compositions by stable index
// rather than pointer identity to make cross-service transport trivial").
// The composition package is the only thing that knows how to resolve one.
type CompositionRef uint64

// Value is the interface every handle-shaped thing implements: object
// handles, and the handful of primitives the interpreter treats specially
// (booleans, for branch conditions). It intentionally does not enumerate
// "the" value types the way a scripting language's type switch would —
// per spec §1 those types are the end-user library's concern, out of
// scope for this core.
type Value interface {
	Composition() CompositionRef
	Truthy() bool
}

// Handle is the immutable, reference-like wrapper every compound or
// native value in the system carries (spec §3 "Handle"). A Handle never
// mutates its own identity: construction and property writes replace the
// Payload in place (see FieldMap.Set) but never the Handle's composition
// or access marker once public.
type Handle struct {
	composition CompositionRef
	mutable     bool
	access      Access
	payload     Payload
}

// Payload is the union of shapes a Handle's body may take. Exactly one
// field is meaningful per Handle; which one is determined by the
// composition's declared kind, not by a runtime type switch over payload
// shape (spec §3: "payload (field map for compound types; native value
// for primitives; callable for functions; future for deferred results)").
type Payload struct {
	Fields   *FieldMap
	Native   any
	Callable Callable
	Future   *Future
}

// Callable is anything the interpreter can splice in as a callee frame —
// bound either to bytecode (through the frame package) or to a native
// handler (through the dispatch package's fast path, spec §4.7).
type Callable interface {
	CallableID() string
}

// New builds a mutable, struct-access handle around a payload. This is
// the primitive the construction pipeline (spec §4.6 step 1) uses to
// allocate a fresh instance before any constructor runs.
func New(c CompositionRef, payload Payload) *Handle {
	return &Handle{composition: c, mutable: true, access: AccessStruct, payload: payload}
}

// NewPublic builds an already-public, optionally-immutable handle
// directly — used for constant handles (spec §4.4 "process-wide constant-
// handle cache") that never go through construction.
func NewPublic(c CompositionRef, payload Payload, mutable bool) *Handle {
	return &Handle{composition: c, mutable: mutable, access: AccessPublic, payload: payload}
}

func (h *Handle) Composition() CompositionRef { return h.composition }
func (h *Handle) Access() Access              { return h.access }
func (h *Handle) Mutable() bool               { return h.mutable }
func (h *Handle) Payload() Payload            { return h.payload }

// Truthy always reports false for a Handle, whatever its payload
// (spec leaves boolean truthiness to the end-user library). The frame
// package's JumpIfFalse calls Truthy on whatever value the slot holds,
// so a Handle there always takes the jump; BoolValue is the value type
// that branches on its contents.
func (h *Handle) Truthy() bool { return false }

// Finalize flips a handle from struct to public access (spec §4.6 step 5:
// "On success, flip the handle to public access"). It is a no-op if the
// handle is already public; it never reverts to struct.
func (h *Handle) Finalize(immutable bool) {
	if h.access == AccessPublic {
		return
	}
	h.access = AccessPublic
	if immutable {
		h.mutable = false
	}
}

// BoolValue is the one primitive the interpreter's branch/outcome
// machinery must understand natively (spec §4.1: "JUMP_IF_FALSE"-style
// conditionals, and the conditional-return adapter's synthesized
// boolean). It is not routed through CompositionRef.
type BoolValue bool

func (b BoolValue) Composition() CompositionRef { return 0 }
func (b BoolValue) Truthy() bool                { return bool(b) }

// TupleValue carries a frame's fixed multi-return result (spec §3
// ReturnMode "tuple of returns") across a call boundary. It is never
// interned into the composition registry — it exists only transiently
// between a RETURN_MULTI and whatever unpacks it on the caller side.
type TupleValue []Value

func (t TupleValue) Composition() CompositionRef { return 0 }
func (t TupleValue) Truthy() bool                { return len(t) > 0 }
