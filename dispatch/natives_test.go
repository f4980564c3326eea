package dispatch

import (
	"testing"

	"fiberkernel/deferred"
	"fiberkernel/frame"
	"fiberkernel/handle"

	"github.com/stretchr/testify/require"
)

func TestInvokeNativeDispatchesRegisteredHandler(t *testing.T) {
	inv := NewInvoker()
	inv.Register("sum", func(f *frame.Frame, target handle.Value, args []handle.Value) deferred.ResolveStep {
		return deferred.ResolveStep{Done: true, Value: handle.BoolValue(len(args) == 2)}
	})
	natives := NewNatives(inv)
	f := newTestFrame()

	outcome := natives.InvokeNative(f, "sum", []handle.Value{handle.BoolValue(true), handle.BoolValue(false)}, 0)
	require.Equal(t, frame.Next, outcome.Kind)
	require.Equal(t, handle.BoolValue(true), f.Slots[0])
}

func TestInvokeNativeUnregisteredNameRaisesUnsupported(t *testing.T) {
	natives := NewNatives(NewInvoker())
	f := newTestFrame()

	outcome := natives.InvokeNative(f, "nope", nil, 0)
	require.Equal(t, frame.Exception, outcome.Kind)
	require.Equal(t, handle.ErrUnsupported, f.PendingException.Code)
}
