package composition

import (
	"strings"
	"sync"

	"fiberkernel/handle"

	"golang.org/x/crypto/blake2b"
)

// Registry is the process-wide arena of interned compositions (spec §2
// item 2, §9 Design Notes: "Use an arena keyed by (class id, actual type
// arg list) with interning; handles reference compositions by stable
// index rather than pointer identity"). It is write-mostly-once and
// readable from every service; reads (Lookup, Resolve) take a shared
// read lock, so they never wait on each other (spec §5: "the composition registry ... [is]
// process-wide but write-mostly-once").
type Registry struct {
	mu      sync.RWMutex
	byRef   map[handle.CompositionRef]*Composition
	byDigest map[[32]byte]handle.CompositionRef
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byRef:    make(map[handle.CompositionRef]*Composition),
		byDigest: make(map[[32]byte]handle.CompositionRef),
	}
}

// internKey computes the stable cross-service-transportable digest for a
// (class id, actual type argument list) pair. blake2b-256 gives a fixed-
// size, collision-resistant key cheap enough to compute on every build
// call; transporting a composition between services only ever needs to
// carry this digest, never a pointer.
func internKey(classID string, typeArgs []string) [32]byte {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(classID))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(typeArgs, "\x1f")))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Lookup returns an already-interned composition for (classID, typeArgs),
// if one exists.
func (r *Registry) Lookup(classID string, typeArgs []string) (*Composition, bool) {
	key := internKey(classID, typeArgs)
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.byDigest[key]
	if !ok {
		return nil, false
	}
	return r.byRef[ref], true
}

// Resolve returns the composition for a stable ref (the only lookup path
// handles themselves use).
func (r *Registry) Resolve(ref handle.CompositionRef) (*Composition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byRef[ref]
	return c, ok
}

// Builder accumulates a composition's resolution tables before Intern
// publishes it into the registry. Separating build from publish keeps
// partially-built compositions invisible to other services (spec §5
// write-mostly-once discipline).
type Builder struct {
	classID      string
	typeArgs     []string
	fieldNames   []string
	fieldIDs     []handle.FieldID
	methods      map[MethodSignature][]MethodEntry
	properties   map[PropertyID]*PropertyDescriptor
	propByName   map[string]PropertyID
	defaultCtors []MethodEntry
	primaryCtor  *MethodEntry
	autoInit     *MethodEntry
	singleton    bool
	immutable    bool
}

// NewBuilder starts building a composition for classID + typeArgs.
func NewBuilder(classID string, typeArgs []string) *Builder {
	return &Builder{
		classID:    classID,
		typeArgs:   append([]string(nil), typeArgs...),
		methods:    make(map[MethodSignature][]MethodEntry),
		properties: make(map[PropertyID]*PropertyDescriptor),
		propByName: make(map[string]PropertyID),
	}
}

// Field declares a field in the given order, returning its id.
func (b *Builder) Field(name string) handle.FieldID {
	id := handle.FieldID(len(b.fieldIDs))
	b.fieldIDs = append(b.fieldIDs, id)
	b.fieldNames = append(b.fieldNames, name)
	return id
}

// Method appends an entry to a method's resolution chain. Entries added
// earlier resolve first (most-derived-first, per spec §3).
func (b *Builder) Method(sig MethodSignature, entry MethodEntry) {
	b.methods[sig] = append(b.methods[sig], entry)
}

// Property registers a property descriptor under a given name.
func (b *Builder) Property(name string, desc *PropertyDescriptor) {
	b.properties[desc.ID] = desc
	b.propByName[name] = desc.ID
}

// DefaultConstructor appends to the default-constructor chain. Callers
// must add them in superclass-first order (spec §4.6 step 2).
func (b *Builder) DefaultConstructor(entry MethodEntry) {
	b.defaultCtors = append(b.defaultCtors, entry)
}

// AutoInitializer sets the composition's auto-initializer.
func (b *Builder) AutoInitializer(entry MethodEntry) {
	b.autoInit = &entry
}

// PrimaryConstructor sets the composition's primary constructor K (spec
// §4.6 step 3).
func (b *Builder) PrimaryConstructor(entry MethodEntry) {
	b.primaryCtor = &entry
}

// Singleton marks the composition as a singleton identity (spec §4.4).
func (b *Builder) Singleton(v bool) { b.singleton = v }

// Immutable marks instances of this composition immutable (rather than
// merely public) on construction success (spec §4.6 step 5).
func (b *Builder) Immutable(v bool) { b.immutable = v }

// Intern publishes the built composition into the registry, returning its
// stable ref. Interning is idempotent: calling Intern twice for the same
// (classID, typeArgs) digest returns the first-built composition and
// discards the second build — this is what makes handles safe to compare
// by CompositionRef across services.
func (r *Registry) Intern(b *Builder) handle.CompositionRef {
	key := internKey(b.classID, b.typeArgs)

	r.mu.Lock()
	defer r.mu.Unlock()

	if ref, ok := r.byDigest[key]; ok {
		return ref
	}

	ref := handle.CompositionRef(len(r.byRef) + 1)
	r.byRef[ref] = &Composition{
		Ref:          ref,
		ClassID:      b.classID,
		TypeArgs:     b.typeArgs,
		methods:      b.methods,
		properties:   b.properties,
		propByName:   b.propByName,
		fieldNames:   b.fieldNames,
		fieldIDs:     b.fieldIDs,
		defaultCtors: b.defaultCtors,
		primaryCtor:  b.primaryCtor,
		autoInit:     b.autoInit,
		singleton:    b.singleton,
		immutable:    b.immutable,
	}
	r.byDigest[key] = ref
	return ref
}
