package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"fiberkernel/frame"
	"fiberkernel/handle"
)

func newConstructInterp() *frame.Interpreter {
	return frame.New(frame.Hooks{Construct: stubConstruct{}})
}

func TestForbiddenQueuesSecondMessageUntilFirstCompletes(t *testing.T) {
	ctx := NewContext(uuid.New(), Forbidden, newConstructInterp())

	fut1 := ctx.Submit(&Message{Kind: Construct, ClassID: "A"})
	fut2 := ctx.Submit(&Message{Kind: Construct, ClassID: "B"})

	rep := ctx.Tick(time.Time{}, 1)
	require.True(t, rep.Ran)
	require.Equal(t, frame.StatusRunning, rep.Status)

	ready2, _, _ := fut2.Poll()
	require.False(t, ready2, "second message must not be admitted while the first fiber is in flight")

	rep = ctx.Tick(time.Time{}, 2)
	require.Equal(t, frame.StatusCompleted, rep.Status)
	ready1, _, _ := fut1.Poll()
	require.False(t, ready1, "response completion is deferred to the following tick")

	rep = ctx.Tick(time.Time{}, 2)
	require.True(t, rep.Ran)
	ready1, v1, _ := fut1.Poll()
	require.True(t, ready1)
	require.Equal(t, stringValue("A"), v1)
	require.Equal(t, frame.StatusCompleted, rep.Status, "second message's fiber runs to completion within its own budget")

	ctx.Tick(time.Time{}, 0)
	ready2, v2, _ := fut2.Poll()
	require.True(t, ready2)
	require.Equal(t, stringValue("B"), v2)
}

func TestExclusiveAdmitsCausalChainButRejectsFreshFiber(t *testing.T) {
	ctx := NewContext(uuid.New(), Exclusive, newConstructInterp())

	ctx.Submit(&Message{Kind: Construct, ClassID: "A"})
	rep := ctx.Tick(time.Time{}, 0)
	require.True(t, rep.Ran)
	firstFiberID := rep.FiberID
	require.NotEqual(t, uuid.Nil, firstFiberID)

	futFresh := ctx.Submit(&Message{Kind: Construct, ClassID: "Fresh"})
	ctx.Submit(&Message{Kind: Construct, ClassID: "Reentrant", CallerFiberID: firstFiberID})

	ctx.Tick(time.Time{}, 0)

	require.Len(t, ctx.inbound, 1, "the fresh message-born fiber must stay queued while one is in flight")
	require.Len(t, ctx.fibers, 2, "the causally-linked message is admitted alongside the in-flight fiber")

	ready, _, _ := futFresh.Poll()
	require.False(t, ready)
}

func TestOpenRoundRobinsAcrossFibers(t *testing.T) {
	ctx := NewContext(uuid.New(), Open, newConstructInterp())

	ctx.Submit(&Message{Kind: Construct, ClassID: "A"})
	ctx.Submit(&Message{Kind: Construct, ClassID: "B"})

	first := ctx.Tick(time.Time{}, 1)
	second := ctx.Tick(time.Time{}, 1)

	require.True(t, first.Ran)
	require.True(t, second.Ran)
	require.NotEqual(t, first.FiberID, second.FiberID, "Open mode must not starve the second fiber behind the first")
}

func TestTickIsNoOpWithNothingQueued(t *testing.T) {
	ctx := NewContext(uuid.New(), Open, newConstructInterp())
	rep := ctx.Tick(time.Time{}, 5)
	require.False(t, rep.Ran)
}

func TestWaitingFiberNotScheduledUntilResponded(t *testing.T) {
	fut := handle.NewFuture()
	interp := frame.New(frame.Hooks{Construct: &waitingConstruct{fut: fut}})
	ctx := NewContext(uuid.New(), Open, interp)

	outerFut := ctx.Submit(&Message{Kind: Construct, ClassID: "A"})

	rep := ctx.Tick(time.Time{}, 10)
	require.True(t, rep.Ran)
	require.Equal(t, frame.StatusWaiting, rep.Status)

	rep = ctx.Tick(time.Time{}, 10)
	require.False(t, rep.Ran, "a Waiting fiber must not be rescheduled until its responded-flag is set")

	fut.Complete(stringValue("A"))

	rep = ctx.Tick(time.Time{}, 10)
	require.True(t, rep.Ran, "completing the future the fiber is parked on must make it schedulable again")
	require.Equal(t, frame.StatusCompleted, rep.Status)

	ctx.Tick(time.Time{}, 0)
	ready, v, _ := outerFut.Poll()
	require.True(t, ready)
	require.Equal(t, stringValue("A"), v)
}

func TestDeadlineExceededTerminatesFiber(t *testing.T) {
	ctx := NewContext(uuid.New(), Open, newConstructInterp())
	past := time.Now().Add(-time.Hour)
	fut := ctx.Submit(&Message{Kind: Construct, ClassID: "A", Deadline: past})

	rep := ctx.Tick(time.Now(), 0)
	require.True(t, rep.Ran)
	require.Equal(t, frame.StatusFailed, rep.Status)

	ctx.Tick(time.Now(), 0)
	ready, _, exc := fut.Poll()
	require.True(t, ready)
	require.NotNil(t, exc)
}
