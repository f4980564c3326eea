package handle

// ErrorCode identifies a program-exception kind (spec §7, taxonomy item 1)
// or a runtime fault (item 2). It is a single tagged enum rather than a
// class hierarchy — guard matching is one type-compatibility query, not
// an inheritance walk (spec §9 Design Notes, "Exception tag").
type ErrorCode int

const (
	ErrNone ErrorCode = iota
	ErrAssertionFailed
	ErrReadOnly
	ErrUnsupported
	ErrBounds
	ErrConcurrentModification
	ErrDeadlock
	ErrTimeout
	ErrUnknownOpcode
	ErrCorruptConstantPool
	ErrCircularInitialization
	ErrIllegalStateTransition
	ErrClassNotFound
	ErrUser // carries a program-defined composition in the exception value
)

var errorCodeNames = map[ErrorCode]string{
	ErrNone:                   "None",
	ErrAssertionFailed:        "AssertionFailed",
	ErrReadOnly:               "ReadOnly",
	ErrUnsupported:            "Unsupported",
	ErrBounds:                 "Bounds",
	ErrConcurrentModification: "ConcurrentModification",
	ErrDeadlock:               "Deadlock",
	ErrTimeout:                "Timeout",
	ErrUnknownOpcode:          "UnknownOpcode",
	ErrCorruptConstantPool:    "CorruptConstantPool",
	ErrCircularInitialization: "CircularInitialization",
	ErrIllegalStateTransition: "IllegalStateTransition",
	ErrClassNotFound:          "ClassNotFound",
	ErrUser:                   "User",
}

func (e ErrorCode) String() string {
	if name, ok := errorCodeNames[e]; ok {
		return name
	}
	return "Unknown"
}

// Uncatchable reports whether this error kind is a runtime fault (spec §7
// taxonomy item 2) that no guard may match, regardless of its declared
// exception type.
func (e ErrorCode) Uncatchable() bool {
	switch e {
	case ErrUnknownOpcode, ErrCorruptConstantPool, ErrCircularInitialization, ErrIllegalStateTransition:
		return true
	default:
		return false
	}
}

// Exception is the carrier handle for a program exception (spec §3:
// "current pending exception (at most one)"; spec §7).
type Exception struct {
	Code  ErrorCode
	Type  TypeRef // declared exception composition, used for guard matching
	Value Value   // arbitrary payload the raising op attached
	Cause error   // host-error cause chain (spec §7 taxonomy item 3)
}

func (e *Exception) Error() string {
	if e.Cause != nil {
		return e.Code.String() + ": " + e.Cause.Error()
	}
	return e.Code.String()
}

// Composition and Truthy let an *Exception flow through an ordinary
// local slot (spec §4.1 RAISE reads its operand from a slot like any
// other op) without a dedicated "exception register".
func (e *Exception) Composition() CompositionRef { return 0 }
func (e *Exception) Truthy() bool                { return true }

// TypeRef names a composition without needing the composition package's
// full Composition — the type-system oracle is consulted through this
// narrow seam (spec §1: "the type system's subtype/compatibility analyzer
// ... treated as an oracle").
type TypeRef struct {
	ClassID  string
	TypeArgs []string
}

// SubtypeOracle is the external collaborator that answers "is A a subtype
// of (or compatible with) B". The frame/dispatch packages only ever
// consult it through this interface; they never inspect a class hierarchy
// directly (spec §9 Design Notes: "Polymorphic dispatch").
type SubtypeOracle interface {
	IsSubtype(sub, super TypeRef) bool
	Equals(a, b Value) bool
	Compare(a, b Value) (int, bool) // ok=false when incomparable
}
