package container

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"fiberkernel/composition"
	"fiberkernel/service"
)

func TestCreateServiceSubmitAndShutdown(t *testing.T) {
	c := New(Config{TickInterval: time.Millisecond})

	b := composition.NewBuilder("Widget", nil)
	c.Registry().Intern(b)

	svcID, err := c.CreateService(service.Open)
	require.NoError(t, err)

	fut, err := c.Submit(svcID, &service.Message{Kind: service.Construct, ClassID: "Widget"})
	require.NoError(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ready, _, _ := fut.Poll(); ready {
			break
		}
		time.Sleep(time.Millisecond)
	}
	ready, value, exc := fut.Poll()
	require.True(t, ready)
	require.Nil(t, exc)
	require.NotNil(t, value)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Shutdown(ctx))
}

func TestSubmitToUnknownServiceErrors(t *testing.T) {
	c := New(Config{})
	_, err := c.Submit(uuid.New(), &service.Message{Kind: service.Construct, ClassID: "X"})
	require.Error(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Shutdown(ctx))
}

func TestCreateServiceFailsAfterShutdown(t *testing.T) {
	c := New(Config{TickInterval: time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Shutdown(ctx))

	_, err := c.CreateService(service.Open)
	require.Error(t, err)
}
