package handle

// FieldID identifies a declared field by the composition's field table,
// not by name lookup at every access — name resolution happens once, in
// the composition package, which hands the frame package a FieldID.
type FieldID int

// FieldMap is a compound handle's payload: it preserves declared field
// order (spec §3: "Field maps preserve declared field order; lookup is by
// field identifier") while still supporting name-based lookup for the
// property dispatch surface and diagnostics.
type FieldMap struct {
	order  []FieldID
	names  []string
	values map[FieldID]Value
}

// NewFieldMap allocates a field map with every declared field present but
// unbound — spec §4.6 step 1: "all fields present, uninitialized".
func NewFieldMap(fields []string, ids []FieldID) *FieldMap {
	fm := &FieldMap{
		order:  append([]FieldID(nil), ids...),
		names:  append([]string(nil), fields...),
		values: make(map[FieldID]Value, len(ids)),
	}
	return fm
}

// Get returns the field's current value and whether it has been assigned.
func (fm *FieldMap) Get(id FieldID) (Value, bool) {
	v, ok := fm.values[id]
	return v, ok
}

// Set assigns a field in place. It never changes field order.
func (fm *FieldMap) Set(id FieldID, v Value) {
	fm.values[id] = v
}

// Order returns field ids in declaration order.
func (fm *FieldMap) Order() []FieldID { return fm.order }

// NameOf returns the declared name for a field id, for diagnostics and
// name-based property lookups (spec §4.7).
func (fm *FieldMap) NameOf(id FieldID) string {
	for i, fid := range fm.order {
		if fid == id {
			return fm.names[i]
		}
	}
	return ""
}

// Clone makes an independent copy of the field map — used when a handle
// crosses a service boundary by value (spec §5: "cross-service sends deep-
// copy or pass by value for immutables").
func (fm *FieldMap) Clone() *FieldMap {
	cp := &FieldMap{
		order:  append([]FieldID(nil), fm.order...),
		names:  append([]string(nil), fm.names...),
		values: make(map[FieldID]Value, len(fm.values)),
	}
	for k, v := range fm.values {
		cp.values[k] = v
	}
	return cp
}
