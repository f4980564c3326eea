package handle

import "sync"

// Future is a not-yet-materialized result of a cross-service call (spec
// §4.4: "the future(s) to complete"). It is deliberately minimal: the
// service package completes it from its response queue, the deferred
// package resolves it into argument slots, and the frame package never
// touches it directly except through those two.
type Future struct {
	mu        sync.Mutex
	done      bool
	value     Value
	exception *Exception
	onReady   []func()
}

// NewFuture returns an unresolved future.
func NewFuture() *Future { return &Future{} }

// Complete resolves the future with a value. Completing an already-
// completed future is a no-op — completions are idempotent because a
// timed-out caller's future may already be resolved exceptionally before
// the real response arrives (spec §8 scenario 6).
func (f *Future) Complete(v Value) {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		return
	}
	f.done = true
	f.value = v
	hooks := f.onReady
	f.onReady = nil
	f.mu.Unlock()
	for _, h := range hooks {
		h()
	}
}

// CompleteExceptionally resolves the future with a pending exception
// (spec §7: "cross-service calls complete their future exceptionally").
func (f *Future) CompleteExceptionally(exc *Exception) {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		return
	}
	f.done = true
	f.exception = exc
	hooks := f.onReady
	f.onReady = nil
	f.mu.Unlock()
	for _, h := range hooks {
		h()
	}
}

// Poll reports readiness and, if ready, the outcome (value xor exception).
func (f *Future) Poll() (ready bool, v Value, exc *Exception) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done, f.value, f.exception
}

// OnReady registers a callback to run exactly once, synchronously, the
// moment the future completes (immediately, if it already has). The
// service package's response-queue drain (spec §4.3 step 1: "responses
// never execute user code — they only complete futures") uses this to
// wake waiting fibers without itself running interpreted code.
func (f *Future) OnReady(fn func()) {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		fn()
		return
	}
	f.onReady = append(f.onReady, fn)
	f.mu.Unlock()
}
