package service

import (
	"time"

	"github.com/google/uuid"

	"fiberkernel/handle"
)

// Kind is one of the fixed cross-service message shapes (spec §4.4:
// "construct, invoke single-return, invoke multi-return, property op").
type Kind int

const (
	Construct Kind = iota
	InvokeSingle
	InvokeMulti
	PropertyGet
	PropertySet
)

var kindNames = [...]string{"Construct", "InvokeSingle", "InvokeMulti", "PropertyGet", "PropertySet"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Message is one cross-service call, queued on the target service's
// inbound queue until a fiber is spun up to service it (spec §4.4).
type Message struct {
	Kind Kind

	ClassID  string       // Construct
	Target   handle.Value // InvokeSingle/InvokeMulti/PropertyGet/PropertySet
	Method   string       // InvokeSingle/InvokeMulti
	Property string       // PropertyGet/PropertySet
	Args     []handle.Value
	Value    handle.Value // PropertySet

	// CallerFiberID is the fiber, if any, whose causal chain this
	// message continues — consulted by the Exclusive re-entrancy mode
	// (spec §4.3, §9 Open Questions). The zero UUID marks a message with
	// no causal parent reaching into this service yet.
	CallerFiberID uuid.UUID

	// Deadline is the absolute time by which the spawned fiber must
	// finish (spec §5 "Cancellation"). Zero means no deadline.
	Deadline time.Time

	// Future is completed once the fiber servicing this message
	// terminates (spec §4.4 "the future(s) to complete"). Submit fills
	// this in if left nil.
	Future *handle.Future
}
