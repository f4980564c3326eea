// Package composition implements the runtime record for a class plus
// actual type arguments, and the arena that interns it (spec §3
// "Composition", §9 Design Notes).
package composition

import "fiberkernel/handle"

// MethodSignature identifies a method slot to resolve, independent of
// which composition in an inheritance chain actually defines it.
type MethodSignature string

// PropertyID identifies a declared property, resolved once by name at
// composition-build time (mirrors handle.FieldID for the backing field).
type PropertyID int

// MethodEntry is one link in a method's resolution chain: either bytecode
// (opaque to this package — the frame/bytecode packages own that shape)
// or a native handler name for the dispatch package's fast path (spec
// §4.7 "Native-method fast path").
type MethodEntry struct {
	DefiningClass string
	Native        bool
	NativeName    string // looked up in the dispatch package's handler table
	Code          any    // *bytecode.Program, opaque here to avoid import cycles

	// Finalizer is the scoped finalizer this entry anchors when it is a
	// constructor (spec §4.6 step 4). Nil if this constructor anchors
	// none. Known statically at composition-build time, not produced
	// dynamically by the call.
	Finalizer *MethodEntry
}

// PropertyDescriptor is a composition's cached knowledge about one
// property (spec §3 "Composition"): its backing field, optional accessor
// methods, whether it is reference-wrapped, read-only, or atomic.
type PropertyDescriptor struct {
	ID         PropertyID
	Field      handle.FieldID
	Getter     *MethodEntry
	Setter     *MethodEntry
	RefWrapped bool
	ReadOnly   bool
	Atomic     bool
}

// Composition is the dispatch-table record for one (class id, actual
// type argument list) pair (spec §3).
type Composition struct {
	Ref      handle.CompositionRef
	ClassID  string
	TypeArgs []string

	// Resolution caches.
	methods      map[MethodSignature][]MethodEntry // resolution chain, most-derived first
	properties   map[PropertyID]*PropertyDescriptor
	propByName   map[string]PropertyID
	fieldNames   []string
	fieldIDs     []handle.FieldID
	defaultCtors []MethodEntry // superclass-first order (spec §3)
	primaryCtor  *MethodEntry
	autoInit     *MethodEntry
	singleton    bool
	immutable    bool // flip to immutable, not just public, on construction success (spec §4.6 step 5)
	subtypeCache map[handle.TypeRef]bool
}

// ResolveMethod returns the method chain for a signature, most-derived
// entry first (spec §3: "method chain per method signature").
func (c *Composition) ResolveMethod(sig MethodSignature) ([]MethodEntry, bool) {
	chain, ok := c.methods[sig]
	return chain, ok
}

// ResolveProperty returns the cached descriptor for a property id.
func (c *Composition) ResolveProperty(id PropertyID) (*PropertyDescriptor, bool) {
	d, ok := c.properties[id]
	return d, ok
}

// PropertyByName resolves a property id by its declared name — used by
// ops that address properties textually (spec §4.7 is id-addressed at
// the dispatch layer; name resolution happens once here).
func (c *Composition) PropertyByName(name string) (PropertyID, bool) {
	id, ok := c.propByName[name]
	return id, ok
}

// DefaultConstructors returns the default-constructor chain in
// superclass-first order (spec §4.6 step 2).
func (c *Composition) DefaultConstructors() []MethodEntry {
	return c.defaultCtors
}

// PrimaryConstructor returns the composition's declared primary
// constructor K, if any (spec §4.6 step 3).
func (c *Composition) PrimaryConstructor() (*MethodEntry, bool) {
	if c.primaryCtor == nil {
		return nil, false
	}
	return c.primaryCtor, true
}

// ImmutablePostConstruct reports whether a successfully constructed
// instance should be marked immutable (not merely public) on completion
// (spec §4.6 step 5: "immutable where the declared composition says
// so").
func (c *Composition) ImmutablePostConstruct() bool { return c.immutable }

// AutoInitializer returns the composition's auto-initializer method, if
// any (spec §3: "optional auto-initializer method").
func (c *Composition) AutoInitializer() (*MethodEntry, bool) {
	if c.autoInit == nil {
		return nil, false
	}
	return c.autoInit, true
}

// IsSingleton reports whether this composition is a singleton identity
// (spec §3: "singleton flag"; spec §4.4 "Singleton initialization").
func (c *Composition) IsSingleton() bool { return c.singleton }

// NewFields allocates a fresh field map for instances of this composition
// (spec §4.6 step 1).
func (c *Composition) NewFields() *handle.FieldMap {
	return handle.NewFieldMap(c.fieldNames, c.fieldIDs)
}

// IsSubtype answers the cached subtype question, falling back to the
// oracle and caching the result (spec §3: "cached subtype answers").
func (c *Composition) IsSubtype(of handle.TypeRef, oracle handle.SubtypeOracle) bool {
	if c.subtypeCache == nil {
		c.subtypeCache = make(map[handle.TypeRef]bool)
	}
	if ans, ok := c.subtypeCache[of]; ok {
		return ans
	}
	self := handle.TypeRef{ClassID: c.ClassID, TypeArgs: c.TypeArgs}
	ans := oracle.IsSubtype(self, of)
	c.subtypeCache[of] = ans
	return ans
}
