package dispatch

import (
	"testing"

	"fiberkernel/composition"
	"fiberkernel/deferred"
	"fiberkernel/frame"
	"fiberkernel/handle"

	"github.com/stretchr/testify/require"
)

func TestInvokeMethodCallsMostDerivedEntry(t *testing.T) {
	reg := composition.NewRegistry()
	var seen []string
	b := composition.NewBuilder("Widget", nil)
	b.Method("greet", composition.MethodEntry{Native: true, NativeName: "derived-greet"})
	ref := reg.Intern(b)
	comp, _ := reg.Resolve(ref)
	h := handle.New(ref, handle.Payload{Fields: comp.NewFields()})

	inv := NewInvoker()
	inv.Register("derived-greet", func(f *frame.Frame, target handle.Value, args []handle.Value) deferred.ResolveStep {
		seen = append(seen, "derived-greet")
		return deferred.ResolveStep{Done: true, Value: handle.BoolValue(true)}
	})
	methods := NewMethods(reg, inv)
	f := newTestFrame()

	outcome := methods.InvokeMethod(f, h, "greet", nil, 0)
	require.Equal(t, frame.Next, outcome.Kind)
	require.Equal(t, []string{"derived-greet"}, seen)
	require.Equal(t, handle.BoolValue(true), f.Slots[0])
}

func TestInvokeMethodUnresolvedSignatureRaises(t *testing.T) {
	reg := composition.NewRegistry()
	b := composition.NewBuilder("Widget", nil)
	ref := reg.Intern(b)
	comp, _ := reg.Resolve(ref)
	h := handle.New(ref, handle.Payload{Fields: comp.NewFields()})

	methods := NewMethods(reg, NewInvoker())
	f := newTestFrame()

	outcome := methods.InvokeMethod(f, h, "missing", nil, 0)
	require.Equal(t, frame.Exception, outcome.Kind)
	require.Equal(t, handle.ErrUnsupported, f.PendingException.Code)
}

func TestCallEqualsSequenceShortCircuitsOnIdentity(t *testing.T) {
	reg := composition.NewRegistry()
	b := composition.NewBuilder("Widget", nil)
	ref := reg.Intern(b)
	comp, _ := reg.Resolve(ref)
	h := handle.New(ref, handle.Payload{Fields: comp.NewFields()})

	f := newTestFrame()
	step := CallEqualsSequence(f, reg, NewInvoker(), h, h)
	require.True(t, step.Done)
	require.Equal(t, handle.BoolValue(true), step.Value)
}

func TestCallEqualsSequenceInvokesResolvedEquals(t *testing.T) {
	reg := composition.NewRegistry()
	var called bool
	b := composition.NewBuilder("Widget", nil)
	b.Method("equals", composition.MethodEntry{Native: true, NativeName: "eq"})
	ref := reg.Intern(b)
	comp, _ := reg.Resolve(ref)
	a := handle.New(ref, handle.Payload{Fields: comp.NewFields()})
	other := handle.New(ref, handle.Payload{Fields: comp.NewFields()})

	inv := NewInvoker()
	inv.Register("eq", func(f *frame.Frame, target handle.Value, args []handle.Value) deferred.ResolveStep {
		called = true
		return deferred.ResolveStep{Done: true, Value: handle.BoolValue(false)}
	})

	f := newTestFrame()
	step := CallEqualsSequence(f, reg, inv, a, other)
	require.True(t, called)
	require.True(t, step.Done)
	require.Equal(t, handle.BoolValue(false), step.Value)
}
