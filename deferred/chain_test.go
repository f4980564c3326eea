package deferred

import (
	"testing"

	"fiberkernel/bytecode"
	"fiberkernel/frame"
	"fiberkernel/handle"

	"github.com/stretchr/testify/require"
)

func TestChainRunsStepsInOrder(t *testing.T) {
	f := newTestFrame()
	var order []int

	c := NewChain(
		func(f *frame.Frame) frame.Outcome { order = append(order, 1); return frame.NextOutcome() },
		func(f *frame.Frame) frame.Outcome { order = append(order, 2); return frame.NextOutcome() },
		func(f *frame.Frame) frame.Outcome { order = append(order, 3); return frame.ReturnOutcome() },
	)

	outcome := c.Run(f)
	require.Equal(t, frame.Return, outcome.Kind)
	require.Equal(t, []int{1, 2, 3}, order)
}

func TestChainStopsAtException(t *testing.T) {
	f := newTestFrame()
	ran := false

	c := NewChain(
		func(f *frame.Frame) frame.Outcome {
			f.PendingException = &handle.Exception{Code: handle.ErrUser}
			return frame.ExceptionOutcome()
		},
		func(f *frame.Frame) frame.Outcome { ran = true; return frame.NextOutcome() },
	)

	outcome := c.Run(f)
	require.Equal(t, frame.Exception, outcome.Kind)
	require.False(t, ran)
}

func TestChainDefersOuterStepUntilInnerCallCompletes(t *testing.T) {
	f := newTestFrame()
	calleeProg := &bytecode.Program{MaxVars: 1}
	callee := frame.New(calleeProg, f)
	var secondStepRan bool

	c := NewChain(
		func(f *frame.Frame) frame.Outcome {
			f.Callee = callee
			f.Continuation = func(caller *frame.Frame, result handle.Value) (frame.Outcome, *frame.Frame) {
				return frame.ReturnOutcome(), nil
			}
			return frame.CallOutcome()
		},
		func(f *frame.Frame) frame.Outcome {
			secondStepRan = true
			return frame.ReturnOutcome()
		},
	)

	outcome := c.Run(f)
	require.Equal(t, frame.Call, outcome.Kind)
	require.False(t, secondStepRan)

	cont := f.Continuation
	f.Continuation = nil
	resumed, _ := cont(f, nil)

	require.Equal(t, frame.Return, resumed.Kind)
	require.True(t, secondStepRan)
}
