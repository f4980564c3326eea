// Package service implements one service instance's re-entrancy
// discipline, fiber scheduling, and cross-service messaging (spec §4.3,
// §4.4): the layer that drives frame.Interpreter.Run per fiber per tick
// and reacts to the resulting Status.
package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"fiberkernel/fiber"
	"fiberkernel/frame"
	"fiberkernel/handle"
)

// UnhandledExceptionHook is notified when a fiber's program exception
// escapes its outermost frame uncaught (spec §7: "an uncaught exception
// terminates the fiber; the service is notified").
type UnhandledExceptionHook func(ctx *Context, f *fiber.Fiber, exc *handle.Exception)

// Context is one running service instance (spec §3 GLOSSARY "Service"):
// its re-entrancy mode, its interpreter, its in-flight fibers, and its
// inbound/response queues.
type Context struct {
	ID   uuid.UUID
	Mode ReentrancyMode

	interp *frame.Interpreter

	// inboundMu guards inbound: Submit is called from whatever goroutine
	// a caller (e.g. a container's supervising code) submits from, while
	// admitInbound/popInbound run on this service's own scheduling
	// goroutine inside Tick. Every other field here is touched only from
	// that one scheduling goroutine and needs no lock.
	inboundMu sync.Mutex
	inbound   []*Message
	responses []*response

	fibers map[uuid.UUID]*fiber.Fiber
	// order preserves round-robin fairness across ticks for the
	// Prioritized/Open modes (spec §4.3 step 4 "otherwise, round robin").
	order []uuid.UUID

	OnUnhandledException UnhandledExceptionHook

	singletons map[string]*singletonSlot
}

type response struct {
	future *handle.Future
	value  handle.Value
	exc    *handle.Exception
}

// NewContext returns an empty service instance in the given re-entrancy
// mode, driven by interp.
func NewContext(id uuid.UUID, mode ReentrancyMode, interp *frame.Interpreter) *Context {
	return &Context{
		ID:         id,
		Mode:       mode,
		interp:     interp,
		fibers:     make(map[uuid.UUID]*fiber.Fiber),
		singletons: make(map[string]*singletonSlot),
	}
}

// Submit enqueues msg on the inbound queue and returns the future the
// caller should poll or await (spec §4.4). It fills in msg.Future if the
// caller hasn't already supplied one.
func (c *Context) Submit(msg *Message) *handle.Future {
	if msg.Future == nil {
		msg.Future = handle.NewFuture()
	}
	c.inboundMu.Lock()
	c.inbound = append(c.inbound, msg)
	c.inboundMu.Unlock()
	return msg.Future
}

// postResponse queues a result for the next Tick's drain (spec §4.3 step
// 1: "responses never execute user code — they only complete futures").
// Deferring to the following tick keeps a fiber from completing its own
// future synchronously from inside the interpreter loop that just ran it.
func (c *Context) postResponse(future *handle.Future, value handle.Value, exc *handle.Exception) {
	if future == nil {
		return
	}
	c.responses = append(c.responses, &response{future: future, value: value, exc: exc})
}

func (c *Context) drainResponses() {
	for _, r := range c.responses {
		if r.exc != nil {
			r.future.CompleteExceptionally(r.exc)
		} else {
			r.future.Complete(r.value)
		}
	}
	c.responses = c.responses[:0]
}

// TickReport summarizes what one Tick call did, for diagnostics/tests.
type TickReport struct {
	Ran     bool
	FiberID uuid.UUID
	Status  frame.Status
}

// Tick drains responses, admits inbound messages according to the
// service's re-entrancy mode, picks at most one fiber to run, and drives
// it through the interpreter for up to opBudget ops (spec §4.3's per-tick
// pick order).
func (c *Context) Tick(now time.Time, opBudget int) TickReport {
	c.drainResponses()
	c.admitInbound()

	id, ok := c.pickNextFiber()
	if !ok {
		return TickReport{}
	}
	fb := c.fibers[id]

	if err := fb.Transition(fiber.Running); err != nil {
		// pickNextFiber only ever selects a non-terminal fiber, every one
		// of which legally transitions to Running (spec §4.2 table).
		panic(err)
	}

	if fb.DeadlineExceeded(now) {
		c.applyResult(fb, frame.RunResult{Status: frame.StatusFailed, Exception: &handle.Exception{Code: handle.ErrTimeout}})
		return TickReport{Ran: true, FiberID: id, Status: frame.StatusFailed}
	}

	res := c.interp.Run(fb.Top, opBudget)
	c.applyResult(fb, res)
	return TickReport{Ran: true, FiberID: id, Status: res.Status}
}

// applyResult maps one RunResult onto the fiber's state machine (spec
// §4.2) and, on termination, posts its response.
func (c *Context) applyResult(fb *fiber.Fiber, res frame.RunResult) {
	switch res.Status {
	case frame.StatusRunning:
		fb.Top = res.Top
		_ = fb.Transition(fiber.Paused)
	case frame.StatusYielded:
		fb.Top = res.Top
		_ = fb.Transition(fiber.Yielded)
	case frame.StatusWaiting:
		fb.Top = res.Top
		_ = fb.Transition(fiber.Waiting)
		if res.WaitingOn != nil && res.WaitingOn != fb.WaitingOn {
			fb.WaitingOn = res.WaitingOn
			fb.WaitingOn.OnReady(func() { fb.Responded = true })
		}
	case frame.StatusCompleted:
		_ = fb.Transition(fiber.Terminated)
		c.postResponse(fb.ResponseFuture, res.Value, nil)
		c.retireFiber(fb.ID)
	case frame.StatusFailed:
		_ = fb.Transition(fiber.Terminated)
		if c.OnUnhandledException != nil {
			c.OnUnhandledException(c, fb, res.Exception)
		}
		c.postResponse(fb.ResponseFuture, nil, res.Exception)
		c.retireFiber(fb.ID)
	}
}

func (c *Context) retireFiber(id uuid.UUID) {
	delete(c.fibers, id)
	for i, o := range c.order {
		if o == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Context) spawn(msg *Message) {
	top := buildEntryFrame(msg)
	fb := fiber.New(c.ID, msg.CallerFiberID, top, msg.Deadline)
	fb.ResponseFuture = msg.Future
	c.fibers[fb.ID] = fb
	c.order = append(c.order, fb.ID)
}

func (c *Context) hasLiveFiber() bool {
	for _, fb := range c.fibers {
		if !fb.Terminal() {
			return true
		}
	}
	return false
}

func (c *Context) popInbound(pred func(m *Message) bool) (*Message, bool) {
	c.inboundMu.Lock()
	defer c.inboundMu.Unlock()
	for i, m := range c.inbound {
		if pred(m) {
			c.inbound = append(c.inbound[:i], c.inbound[i+1:]...)
			return m, true
		}
	}
	return nil, false
}

// admitInbound spins up Initial fibers from the inbound queue according
// to this service's re-entrancy mode (spec §4.3 "Re-entrancy modes", §9
// Open Questions).
func (c *Context) admitInbound() {
	switch c.Mode {
	case Forbidden:
		// At most one fiber in flight, ever; a new message waits until
		// the current one fully vacates (pinned Open Question: "pin
		// current, queue new").
		if c.hasLiveFiber() {
			return
		}
		if msg, ok := c.popInbound(anyMessage); ok {
			c.spawn(msg)
		}

	case Exclusive:
		// A brand-new message-born fiber is never eligible to start
		// while anything is already in flight (pinned Open Question); a
		// message continuing a causal chain that has already reached
		// this service (a reentrant call back in) may always proceed.
		for {
			msg, ok := c.popInbound(func(m *Message) bool {
				if !c.hasLiveFiber() {
					return true
				}
				_, known := c.fibers[m.CallerFiberID]
				return known
			})
			if !ok {
				break
			}
			c.spawn(msg)
		}

	case Prioritized:
		// Already-started fibers take priority; start a new one only
		// when none remain to make progress on.
		if c.hasLiveFiber() {
			return
		}
		if msg, ok := c.popInbound(anyMessage); ok {
			c.spawn(msg)
		}

	case Open:
		for {
			msg, ok := c.popInbound(anyMessage)
			if !ok {
				break
			}
			c.spawn(msg)
		}
	}
}

func anyMessage(*Message) bool { return true }

// schedulable reports whether fb may be picked to run this tick: not
// terminal, and if Waiting, only once its responded-flag is set (spec
// §4.2 "Waiting ... resumable only when its responded-flag is true"; §4.3
// "eligible under all modes" once the flag is set, implying not eligible
// otherwise; §9 "the scheduler re-examines Waiting fibers on every tick
// but never promotes them without the flag").
func schedulable(fb *fiber.Fiber) bool {
	if fb.Terminal() {
		return false
	}
	if fb.State == fiber.Waiting && !fb.Responded {
		return false
	}
	return true
}

// pickNextFiber selects the fiber Tick should run this round (spec §4.3
// step 4's pick order, after admission).
func (c *Context) pickNextFiber() (uuid.UUID, bool) {
	switch c.Mode {
	case Forbidden, Exclusive:
		// Only ever one slot; return whichever schedulable fiber exists.
		for _, id := range c.order {
			if fb, ok := c.fibers[id]; ok && schedulable(fb) {
				return id, true
			}
		}
		return uuid.Nil, false

	default: // Prioritized, Open: round robin for fairness.
		n := len(c.order)
		for i := 0; i < n; i++ {
			id := c.order[0]
			c.order = append(c.order[1:], id)
			if fb, ok := c.fibers[id]; ok && schedulable(fb) {
				return id, true
			}
		}
		return uuid.Nil, false
	}
}
