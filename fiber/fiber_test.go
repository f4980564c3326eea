package fiber

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestLegalTransitionsFromRunning(t *testing.T) {
	f := New(uuid.New(), uuid.Nil, nil, time.Time{})
	require.NoError(t, f.Transition(Running))
	require.NoError(t, f.Transition(Waiting))
	require.NoError(t, f.Transition(Running))
	require.NoError(t, f.Transition(Terminated))
	require.True(t, f.Terminal())
}

func TestIllegalTransitionRejected(t *testing.T) {
	f := New(uuid.New(), uuid.Nil, nil, time.Time{})
	err := f.Transition(Paused)
	require.Error(t, err)
	var ite *IllegalTransitionError
	require.ErrorAs(t, err, &ite)
	require.Equal(t, Initial, f.State, "rejected transition must not mutate state")
}

func TestTerminatedHasNoLegalNext(t *testing.T) {
	f := New(uuid.New(), uuid.Nil, nil, time.Time{})
	require.NoError(t, f.Transition(Running))
	require.NoError(t, f.Transition(Terminated))
	require.Error(t, f.Transition(Running))
}

func TestRespondedClearsOnEnteringRunning(t *testing.T) {
	f := New(uuid.New(), uuid.Nil, nil, time.Time{})
	require.NoError(t, f.Transition(Running))
	require.NoError(t, f.Transition(Waiting))
	f.Responded = true
	require.NoError(t, f.Transition(Running))
	require.False(t, f.Responded)
}

func TestCausalOriginDefaultsToSelfWhenMessageBorn(t *testing.T) {
	f := New(uuid.New(), uuid.Nil, nil, time.Time{})
	require.Equal(t, f.ID, f.CausalOrigin())
}

func TestCausalOriginFollowsCaller(t *testing.T) {
	caller := uuid.New()
	f := New(uuid.New(), caller, nil, time.Time{})
	require.Equal(t, caller, f.CausalOrigin())
}

func TestDeadlineExceeded(t *testing.T) {
	f := New(uuid.New(), uuid.Nil, nil, time.Now().Add(-time.Second))
	require.True(t, f.DeadlineExceeded(time.Now()))

	f2 := New(uuid.New(), uuid.Nil, nil, time.Time{})
	require.False(t, f2.DeadlineExceeded(time.Now()), "zero deadline means no deadline")
}
