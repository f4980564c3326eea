// Package deferred implements the deferred-value machinery that lets
// native operations compose with interpreted control flow without
// rewriting call sites as coroutines (spec §4.5, §9 Design Notes
// "Deferred-value placeholder vs async-await"). Any argument slot may
// temporarily hold a Placeholder in place of a resolved handle.Value;
// GetArguments/AssignValues/ReturnValues/Chain are the fixed
// set of helpers that thread resolution through an op without the
// interpreter's inner loop ever needing to know about it.
package deferred

import (
	"fiberkernel/frame"
	"fiberkernel/handle"
)

// Kind tags which of the three variants a Placeholder carries (spec §9:
// "tagged variant handle (Ready(value) | Deferred(resolver) |
// Future(handle))").
type Kind int

const (
	Ready Kind = iota
	DeferredKind
	FutureKind
)

// ResolveStep is what a Resolver reports after one evaluation attempt: it
// either completes synchronously (Done) or hands control back to the
// interpreter by naming a Callee frame to run, with Resume queued to
// pick up once that frame returns (spec §4.5 contract: "either completes
// synchronously... or hands control back to the interpreter with CALL").
type ResolveStep struct {
	Done      bool
	Value     handle.Value
	Exception *handle.Exception
	Callee    *frame.Frame
	Resume    func(result handle.Value) ResolveStep
}

// Resolver produces the real value behind a Deferred placeholder.
type Resolver func(f *frame.Frame) ResolveStep

// Placeholder is the tagged variant that may sit in a Frame slot instead
// of a resolved handle.Value. It implements handle.Value so the frame
// interpreter's ordinary slot storage needs no special case for it.
type Placeholder struct {
	Kind     Kind
	Value    handle.Value   // valid when Kind == Ready
	Resolver Resolver       // valid when Kind == DeferredKind
	Future   *handle.Future // valid when Kind == FutureKind
}

func (p Placeholder) Composition() handle.CompositionRef { return 0 }

// Truthy panics rather than silently treating an unresolved placeholder
// as falsy — a deferred value must never be observed before resolution
// (spec §4.5 invariant: "never appears in a slot expected by an op after
// its resolving continuation has completed" implies it must not be read
// beforehand either).
func (p Placeholder) Truthy() bool {
	if p.Kind == Ready {
		return p.Value.Truthy()
	}
	panic("deferred: Truthy() observed on an unresolved placeholder")
}

// ReadyValue wraps an already-resolved value as a Placeholder — useful
// when a caller needs to build a uniform []handle.Value argument vector
// where only some entries are actually deferred.
func ReadyValue(v handle.Value) Placeholder {
	return Placeholder{Kind: Ready, Value: v}
}

// DeferredValue wraps a Resolver as a not-yet-ready placeholder.
func DeferredValue(r Resolver) Placeholder {
	return Placeholder{Kind: DeferredKind, Resolver: r}
}

// FromFuture wraps a cross-service Future as a placeholder; resolution
// polls it each time it is visited (spec §4.4 futures).
func FromFuture(f *handle.Future) Placeholder {
	return Placeholder{Kind: FutureKind, Future: f}
}

// IsResolved reports whether v is either an ordinary value or a Ready
// placeholder — i.e. safe to read without invoking a resolver.
func IsResolved(v handle.Value) bool {
	ph, ok := v.(Placeholder)
	return !ok || ph.Kind == Ready
}
