package shaper

import (
	"sync"
	"sync/atomic"
)

// attributeDict is the append-only bijection between AttributeId and
// attribute-name string (spec §3). Readers consult an atomically
// published snapshot without taking any lock; writers serialize through
// mu and publish a new snapshot on insert. Because entries are never
// removed or reassigned, a snapshot handed to a reader remains valid for
// the shaper's lifetime (spec §9: "arena-style allocator").
type attributeDict struct {
	mu      sync.Mutex
	byName  atomic.Pointer[map[string]AttributeId]
	byID    atomic.Pointer[[]string] // index 0 unused (NoAttribute)
	nextVal AttributeId
}

func newAttributeDict() *attributeDict {
	d := &attributeDict{nextVal: 1}
	byName := make(map[string]AttributeId)
	d.byName.Store(&byName)
	byID := make([]string, 1)
	d.byID.Store(&byID)
	return d
}

// lookupByName is the read-only, lock-free variant: it never creates.
func (d *attributeDict) lookupByName(name string) (AttributeId, bool) {
	m := *d.byName.Load()
	id, ok := m[name]
	return id, ok
}

// lookupByID is constant-time and lock-free.
func (d *attributeDict) lookupByID(id AttributeId) (string, bool) {
	s := *d.byID.Load()
	if id == NoAttribute || int(id) >= len(s) {
		return "", false
	}
	return s[id], true
}

// findOrCreate is idempotent: concurrent callers with the same name
// observe exactly one id and exactly one dictionary entry (spec §8
// "Attribute idempotence"). isLocked lets a caller that already holds a
// higher-level collection write lock skip the shaper's own mutex (spec
// §5).
func (d *attributeDict) findOrCreate(name string, isLocked bool) AttributeId {
	if id, ok := d.lookupByName(name); ok {
		return id
	}

	if !isLocked {
		d.mu.Lock()
		defer d.mu.Unlock()
	}

	// Re-check under the lock: another writer may have just inserted
	// this name while we waited (spec §7: "the shaper retries an insert
	// once if a concurrent thread wins the race (the winner's id is
	// returned)").
	if id, ok := d.lookupByName(name); ok {
		return id
	}

	id := d.nextVal
	d.nextVal++

	oldByName := *d.byName.Load()
	newByName := make(map[string]AttributeId, len(oldByName)+1)
	for k, v := range oldByName {
		newByName[k] = v
	}
	newByName[name] = id

	oldByID := *d.byID.Load()
	newByID := make([]string, len(oldByID), len(oldByID)+1)
	copy(newByID, oldByID)
	newByID = append(newByID, name)

	d.byID.Store(&newByID)
	d.byName.Store(&newByName)

	return id
}

// shapeDict is the append-only bijection between ShapeId and canonical
// Shape bytes (spec §3). Structured identically to attributeDict: a
// lock-free read path over an atomically published snapshot, and a
// mutex-serialized, copy-on-write insert path.
type shapeDict struct {
	mu         sync.Mutex
	byContent  atomic.Pointer[map[string]ShapeId]
	byID       atomic.Pointer[[]*Shape] // index 0 unused (NoShape)
	nextVal    ShapeId
}

func newShapeDict() *shapeDict {
	d := &shapeDict{nextVal: firstDynamicShapeID}
	byContent := make(map[string]ShapeId)
	d.byContent.Store(&byContent)
	byID := make([]*Shape, firstDynamicShapeID)
	d.byID.Store(&byID)
	return d
}

// registerBasic installs a pre-defined basic shape at a fixed id. Called
// only during shaper construction, before any concurrent access is
// possible.
func (d *shapeDict) registerBasic(id ShapeId, s *Shape) {
	byID := *d.byID.Load()
	byID[id] = s
}

func (d *shapeDict) lookupByID(id ShapeId) (*Shape, bool) {
	s := *d.byID.Load()
	if id == NoShape || int(id) >= len(s) || s[id] == nil {
		return nil, false
	}
	return s[id], true
}

func (d *shapeDict) lookupByContent(key string) (ShapeId, bool) {
	m := *d.byContent.Load()
	id, ok := m[key]
	return id, ok
}

// lookupByShape is the read-only variant of findOrCreate: it resolves
// shape's canonical content to an existing id without minting one.
func (d *shapeDict) lookupByShape(shape Shape) (ShapeId, bool) {
	return d.lookupByContent(string(shape.canonicalBytes()))
}

// findOrCreate interns shape by its canonical content key, returning the
// existing id if an equal shape was already seen (spec §3: "equal shapes
// produced from different documents yield the same id") or minting a new
// monotonic id otherwise.
func (d *shapeDict) findOrCreate(shape Shape, isLocked bool) ShapeId {
	key := string(shape.canonicalBytes())

	if id, ok := d.lookupByContent(key); ok {
		return id
	}

	if !isLocked {
		d.mu.Lock()
		defer d.mu.Unlock()
	}

	if id, ok := d.lookupByContent(key); ok {
		return id
	}

	id := d.nextVal
	d.nextVal++
	stored := shape

	oldByContent := *d.byContent.Load()
	newByContent := make(map[string]ShapeId, len(oldByContent)+1)
	for k, v := range oldByContent {
		newByContent[k] = v
	}
	newByContent[key] = id

	oldByID := *d.byID.Load()
	newByID := make([]*Shape, len(oldByID), len(oldByID)+1)
	copy(newByID, oldByID)
	newByID = append(newByID, &stored)

	d.byID.Store(&newByID)
	d.byContent.Store(&newByContent)

	return id
}
