// Package diag implements the runtime's two diagnostic surfaces (spec
// SPEC_FULL §10.1, AMBIENT): a filtered per-call execution Tracer and a
// zerolog-backed structured Log for lifecycle/error events.
package diag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fiberkernel/handle"
)

// Tracer is filtered, per-call execution tracing, generalized from
// verb-call tracing to the op/call labels this runtime actually carries
// (frame.Frame.Label): construction, method invocation, native calls,
// property access.
type Tracer struct {
	enabled bool
	filters []string
	writer  io.Writer
	mu      sync.Mutex
}

// NewTracer returns a Tracer; a nil writer defaults to os.Stderr. An
// empty filter set traces everything.
func NewTracer(enabled bool, filters []string, writer io.Writer) *Tracer {
	if writer == nil {
		writer = os.Stderr
	}
	return &Tracer{enabled: enabled, filters: filters, writer: writer}
}

func (t *Tracer) matchesFilter(label string) bool {
	if len(t.filters) == 0 {
		return true
	}
	for _, pattern := range t.filters {
		if matched, _ := filepath.Match(pattern, label); matched {
			return true
		}
	}
	return false
}

// CallStart logs an op dispatch beginning (construct/invoke/property op).
func (t *Tracer) CallStart(label string, args []handle.Value) {
	if !t.enabled || !t.matchesFilter(label) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	argStrs := make([]string, len(args))
	for i, a := range args {
		argStrs[i] = fmt.Sprintf("%v", a)
	}
	fmt.Fprintf(t.writer, "[TRACE] CALL %s args=[%s]\n", label, strings.Join(argStrs, ", "))
}

// CallReturn logs a call's result.
func (t *Tracer) CallReturn(label string, result handle.Value) {
	if !t.enabled || !t.matchesFilter(label) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.writer, "[TRACE] RETURN %s => %v\n", label, result)
}

// Exception logs an exception raised during a call.
func (t *Tracer) Exception(label string, exc *handle.Exception) {
	if !t.enabled || !t.matchesFilter(label) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.writer, "[TRACE] EXCEPTION %s %s\n", label, exc.Error())
}

// Yield logs a fiber cooperatively yielding.
func (t *Tracer) Yield(label string) {
	if !t.enabled || !t.matchesFilter(label) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.writer, "[TRACE]   YIELD %s\n", label)
}
