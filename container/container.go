// Package container wires together a shared composition registry,
// dispatch/construct invokers, and interpreter into a running set of
// service.Context instances, and supervises their per-tick scheduling
// loops (spec SPEC_FULL §10.2, AMBIENT). It generalizes the teacher's
// Server: a mutex-guarded lifecycle flag, a context.WithCancel pair for
// shutdown signaling, and one background goroutine per long-running
// concern — here, one goroutine per service instead of one connection
// manager and one checkpoint ticker.
package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fiberkernel/composition"
	"fiberkernel/construct"
	"fiberkernel/diag"
	"fiberkernel/dispatch"
	"fiberkernel/fiber"
	"fiberkernel/frame"
	"fiberkernel/handle"
	"fiberkernel/service"
)

// Lifecycle is the container's coarse run state (spec SPEC_FULL §10.2,
// generalized from the teacher's Server.running bool into the three
// states its Shutdown sequence actually passes through).
type Lifecycle int

const (
	Running Lifecycle = iota
	ShuttingDown
	Terminated
)

func (l Lifecycle) String() string {
	switch l {
	case Running:
		return "Running"
	case ShuttingDown:
		return "ShuttingDown"
	case Terminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// Config controls the container's shared interpreter wiring and the
// per-service scheduling cadence. Zero-value OpBudget/TickInterval are
// replaced by DefaultOpBudget/DefaultTickInterval.
type Config struct {
	// OpBudget is the per-tick instruction budget handed to
	// frame.Interpreter.Run for every service on every tick.
	OpBudget int
	// TickInterval is how often each service's supervisor goroutine
	// calls Context.Tick.
	TickInterval time.Duration
	// Oracle answers subtype queries for guard matching (spec §4.5).
	// Nil is legal: every Guard.Matches check fails closed.
	Oracle handle.SubtypeOracle
	// Log receives lifecycle events. Nil disables logging.
	Log *diag.Log
	// Trace receives per-call execution events. Nil disables tracing.
	Trace *diag.Tracer
}

const (
	DefaultOpBudget     = 10_000
	DefaultTickInterval = 10 * time.Millisecond
)

func (c Config) withDefaults() Config {
	if c.OpBudget <= 0 {
		c.OpBudget = DefaultOpBudget
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	return c
}

// Container owns the shared composition registry and dispatch wiring,
// and supervises one goroutine per live service.Context, ticking it on
// Config.TickInterval until Shutdown cancels the shared context (spec
// SPEC_FULL §10.2).
type Container struct {
	cfg      Config
	registry *composition.Registry
	invoker  *dispatch.Invoker
	interp   *frame.Interpreter

	mu         sync.Mutex
	lifecycle  Lifecycle
	services   map[uuid.UUID]*service.Context
	runCtx     context.Context
	cancel     context.CancelFunc
	group      *errgroup.Group
}

// New returns a Container with an empty registry, ready to accept
// native registrations and CreateService calls.
func New(cfg Config) *Container {
	cfg = cfg.withDefaults()

	registry := composition.NewRegistry()
	invoker := dispatch.NewInvoker()
	ctor := construct.New(registry, invoker)
	interp := frame.New(frame.Hooks{
		Properties: dispatch.NewProperties(registry, invoker),
		Methods:    dispatch.NewMethods(registry, invoker),
		Natives:    dispatch.NewNatives(invoker),
		Construct:  ctor,
		Oracle:     cfg.Oracle,
	})

	runCtx, cancel := context.WithCancel(context.Background())
	group, runCtx := errgroup.WithContext(runCtx)

	return &Container{
		cfg:       cfg,
		registry:  registry,
		invoker:   invoker,
		interp:    interp,
		lifecycle: Running,
		services:  make(map[uuid.UUID]*service.Context),
		runCtx:    runCtx,
		cancel:    cancel,
		group:     group,
	}
}

// Registry returns the shared composition registry, for callers that
// need to Intern class definitions before constructing instances.
func (c *Container) Registry() *composition.Registry {
	return c.registry
}

// RegisterNative binds a native method/free-function handler, shared by
// every service this container schedules.
func (c *Container) RegisterNative(name string, h dispatch.NativeHandler) {
	c.invoker.Register(name, h)
}

// CreateService starts a new service.Context in the given re-entrancy
// mode and spawns its supervisor goroutine. It fails once the container
// has begun shutting down.
func (c *Container) CreateService(mode service.ReentrancyMode) (uuid.UUID, error) {
	c.mu.Lock()
	if c.lifecycle != Running {
		c.mu.Unlock()
		return uuid.Nil, fmt.Errorf("container: cannot create service, lifecycle is %s", c.lifecycle)
	}
	id := uuid.New()
	svc := service.NewContext(id, mode, c.interp)
	svc.OnUnhandledException = c.onUnhandledException
	c.services[id] = svc
	c.mu.Unlock()

	if c.cfg.Log != nil {
		c.cfg.Log.ServiceStarted(id.String(), mode.String())
	}

	c.group.Go(func() error {
		return c.runService(svc)
	})

	return id, nil
}

func (c *Container) onUnhandledException(ctx *service.Context, f *fiber.Fiber, exc *handle.Exception) {
	if c.cfg.Log != nil {
		c.cfg.Log.FiberFailed(ctx.ID.String(), f.ID.String(), exc)
	}
}

// runService is the per-service supervisor goroutine: tick on a fixed
// interval until the container's shared context is cancelled (spec
// SPEC_FULL §10.2, generalized from the teacher's checkpointLoop
// ticker-driven background goroutine).
func (c *Container) runService(svc *service.Context) error {
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.runCtx.Done():
			return nil
		case now := <-ticker.C:
			svc.Tick(now, c.cfg.OpBudget)
		}
	}
}

// Submit enqueues msg on the named service's inbound queue, returning
// the future its response will complete (spec §4.4).
func (c *Container) Submit(serviceID uuid.UUID, msg *service.Message) (*handle.Future, error) {
	c.mu.Lock()
	svc, ok := c.services[serviceID]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("container: unknown service %s", serviceID)
	}
	return svc.Submit(msg), nil
}

// Shutdown cancels every service's supervisor goroutine and waits for
// them to return, or for ctx to expire first (spec SPEC_FULL §10.2,
// generalized from the teacher's Shutdown/shutdown pair).
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if c.lifecycle != Running {
		c.mu.Unlock()
		return nil
	}
	c.lifecycle = ShuttingDown
	c.mu.Unlock()

	if c.cfg.Log != nil {
		c.cfg.Log.ContainerShuttingDown()
	}

	c.cancel()

	done := make(chan error, 1)
	go func() { done <- c.group.Wait() }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	c.mu.Lock()
	c.lifecycle = Terminated
	c.mu.Unlock()

	if c.cfg.Log != nil {
		c.cfg.Log.ContainerShutdownComplete()
	}

	return err
}
