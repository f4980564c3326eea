// Package fiber implements the fiber state machine (spec §4.2): the
// legal-transition table a cooperative lightweight thread of execution
// follows from creation to termination, and the bookkeeping (responded-
// flag, deadline, causal-chain origin) the service scheduler consults to
// pick the next runnable fiber.
package fiber

import (
	"time"

	"fiberkernel/frame"
	"fiberkernel/handle"

	"github.com/google/uuid"
)

// State is one of the fixed fiber lifecycle states (spec §4.2).
type State int

const (
	Initial State = iota
	Running
	Paused
	Yielded
	Waiting
	Terminated
)

var stateNames = [...]string{"Initial", "Running", "Paused", "Yielded", "Waiting", "Terminated"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// legalNext encodes spec §4.2's transition table exactly.
var legalNext = map[State][]State{
	Initial:    {Running},
	Running:    {Paused, Yielded, Waiting, Terminated},
	Paused:     {Running},
	Yielded:    {Running},
	Waiting:    {Running},
	Terminated: {},
}

// CanTransitionTo reports whether next is a legal transition from s.
func (s State) CanTransitionTo(next State) bool {
	for _, n := range legalNext[s] {
		if n == next {
			return true
		}
	}
	return false
}

// IllegalTransitionError reports an attempted transition outside spec
// §4.2's table — a runtime fault (spec §7 taxonomy item 2), never a
// program exception.
type IllegalTransitionError struct {
	From, To State
}

func (e *IllegalTransitionError) Error() string {
	return "fiber: illegal transition " + e.From.String() + " -> " + e.To.String()
}

// Fiber is one cooperative lightweight thread of execution (spec §4.2,
// §3 GLOSSARY "Fiber").
type Fiber struct {
	ID        uuid.UUID
	ServiceID uuid.UUID

	// CallerFiberID is the fiber (if any) whose call caused this one to
	// be created — the causal chain the Exclusive re-entrancy mode
	// consults (spec §4.3, §9 Open Questions). The zero UUID means this
	// fiber was message-born with no causal parent.
	CallerFiberID uuid.UUID

	State State
	Top   *frame.Frame

	// ResponseFuture is completed by the owning service.Context when this
	// fiber terminates, successfully or not (spec §4.4 "the future(s) to
	// complete"). Nil for a fiber with no caller waiting on a result.
	ResponseFuture *handle.Future

	// Responded is set by the cross-service response handler (spec
	// §4.4) and cleared every time the fiber re-enters Running (spec
	// §4.2: "a hint; missing it cannot cause a stuck fiber").
	Responded bool

	// WaitingOn is the future this fiber is parked on while Waiting, if
	// any (spec §4.2). The scheduler hooks it to flip Responded the
	// moment it resolves, instead of only re-polling it every tick.
	WaitingOn *handle.Future

	Deadline time.Time
}

// New creates an Initial fiber rooted at top, owned by serviceID, with
// the given absolute deadline (spec §4.2 "created by message-receipt,
// never yet dispatched").
func New(serviceID uuid.UUID, callerFiberID uuid.UUID, top *frame.Frame, deadline time.Time) *Fiber {
	return &Fiber{
		ID:            uuid.New(),
		ServiceID:     serviceID,
		CallerFiberID: callerFiberID,
		State:         Initial,
		Top:           top,
		Deadline:      deadline,
	}
}

// Transition moves the fiber to next, rejecting illegal transitions
// (spec §7 taxonomy item 2 "illegal state transitions").
func (f *Fiber) Transition(next State) error {
	if !f.State.CanTransitionTo(next) {
		return &IllegalTransitionError{From: f.State, To: next}
	}
	f.State = next
	if next == Running {
		f.Responded = false
		f.WaitingOn = nil
	}
	return nil
}

// CausalOrigin is the fiber this one directly descends from via
// CallerFiberID; the chain is not followed past that direct caller. A
// message-born fiber with no caller is its own origin.
func (f *Fiber) CausalOrigin() uuid.UUID {
	if f.CallerFiberID == uuid.Nil {
		return f.ID
	}
	return f.CallerFiberID
}

// DeadlineExceeded reports whether now is past the fiber's deadline
// (spec §5 "Cancellation": "the interpreter polls it between ops").
func (f *Fiber) DeadlineExceeded(now time.Time) bool {
	return !f.Deadline.IsZero() && now.After(f.Deadline)
}

// Terminal reports whether the fiber's state is Terminated.
func (f *Fiber) Terminal() bool {
	return f.State == Terminated
}
