package handle

import "testing"

func TestErrorCodeString(t *testing.T) {
	tests := []struct {
		code ErrorCode
		name string
	}{
		{ErrNone, "None"},
		{ErrReadOnly, "ReadOnly"},
		{ErrBounds, "Bounds"},
		{ErrTimeout, "Timeout"},
		{ErrCircularInitialization, "CircularInitialization"},
	}
	for _, tt := range tests {
		if got := tt.code.String(); got != tt.name {
			t.Errorf("%v.String() = %q, want %q", tt.code, got, tt.name)
		}
	}
}

func TestErrorCodeUncatchable(t *testing.T) {
	for _, c := range []ErrorCode{ErrUnknownOpcode, ErrCorruptConstantPool, ErrCircularInitialization, ErrIllegalStateTransition} {
		if !c.Uncatchable() {
			t.Errorf("%v should be uncatchable", c)
		}
	}
	for _, c := range []ErrorCode{ErrBounds, ErrTimeout, ErrUser, ErrReadOnly} {
		if c.Uncatchable() {
			t.Errorf("%v should be catchable", c)
		}
	}
}

func TestHandleFinalize(t *testing.T) {
	fm := NewFieldMap([]string{"x"}, []FieldID{0})
	h := New(CompositionRef(1), Payload{Fields: fm})
	if h.Access() != AccessStruct {
		t.Fatalf("new handle should start in struct access")
	}
	if !h.Mutable() {
		t.Fatalf("new handle should be mutable")
	}
	h.Finalize(true)
	if h.Access() != AccessPublic {
		t.Fatalf("Finalize should flip to public access")
	}
	if h.Mutable() {
		t.Fatalf("Finalize(true) should make the handle immutable")
	}
}

func TestFieldMapOrderPreserved(t *testing.T) {
	fm := NewFieldMap([]string{"a", "b", "c"}, []FieldID{0, 1, 2})
	fm.Set(1, BoolValue(true))
	order := fm.Order()
	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Fatalf("field order not preserved: %v", order)
	}
	v, ok := fm.Get(1)
	if !ok || !v.Truthy() {
		t.Fatalf("expected field 1 to be true, got %v ok=%v", v, ok)
	}
	if _, ok := fm.Get(2); ok {
		t.Fatalf("field 2 should be unassigned")
	}
}

func TestFieldMapClone(t *testing.T) {
	fm := NewFieldMap([]string{"a"}, []FieldID{0})
	fm.Set(0, BoolValue(true))
	cp := fm.Clone()
	cp.Set(0, BoolValue(false))
	orig, _ := fm.Get(0)
	cloned, _ := cp.Get(0)
	if !orig.Truthy() || cloned.Truthy() {
		t.Fatalf("clone should be independent: orig=%v cloned=%v", orig, cloned)
	}
}

func TestFutureCompletionIsIdempotent(t *testing.T) {
	f := NewFuture()
	calls := 0
	f.OnReady(func() { calls++ })
	f.Complete(BoolValue(true))
	f.Complete(BoolValue(false)) // second completion must be ignored
	ready, v, exc := f.Poll()
	if !ready || exc != nil {
		t.Fatalf("future should be ready with no exception")
	}
	if !v.Truthy() {
		t.Fatalf("future should keep its first value")
	}
	if calls != 1 {
		t.Fatalf("OnReady hook should fire exactly once, fired %d times", calls)
	}
}

func TestFutureOnReadyAfterCompletion(t *testing.T) {
	f := NewFuture()
	f.Complete(BoolValue(true))
	fired := false
	f.OnReady(func() { fired = true })
	if !fired {
		t.Fatalf("OnReady registered after completion should fire immediately")
	}
}
