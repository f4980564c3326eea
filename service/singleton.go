package service

import "fiberkernel/handle"

type singletonState int

const (
	singletonUninit singletonState = iota
	singletonInitializing
	singletonReady
)

// singletonSlot tracks one singleton-composition's construction progress
// within this service (spec §4.4 "Singleton initialization").
type singletonSlot struct {
	state singletonState
	value handle.Value
}

// EnsureSingleton returns the future for classID's singleton instance,
// submitting a Construct message on first request and reusing the
// already-completed result thereafter. A request that
// arrives while classID's singleton is itself still constructing is
// circular and raises immediately (spec §7 taxonomy item 2 "circular
// initialization") rather than ever deadlocking the service.
func (c *Context) EnsureSingleton(classID string) (*handle.Future, *handle.Exception) {
	slot, ok := c.singletons[classID]
	if !ok {
		slot = &singletonSlot{}
		c.singletons[classID] = slot
	}

	switch slot.state {
	case singletonReady:
		f := handle.NewFuture()
		f.Complete(slot.value)
		return f, nil
	case singletonInitializing:
		return nil, &handle.Exception{Code: handle.ErrCircularInitialization}
	}

	slot.state = singletonInitializing
	fut := c.Submit(&Message{Kind: Construct, ClassID: classID})
	fut.OnReady(func() {
		ready, v, exc := fut.Poll()
		if !ready {
			return
		}
		if exc != nil {
			// Leave it uninitialized: a later request gets to retry
			// construction rather than being wedged behind a permanent
			// failure.
			slot.state = singletonUninit
			return
		}
		slot.value = v
		slot.state = singletonReady
	})
	return fut, nil
}
