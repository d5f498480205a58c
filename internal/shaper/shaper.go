package shaper

import (
	"log/slog"

	"github.com/dreamware/docshaper/internal/docerr"
)

// Shaper is the per-collection dictionary of interned attribute names and
// shapes, plus the encode/decode/accessor logic that operates over them
// (spec §4.1). A Shaper is safe for concurrent use: readers never block,
// writers (first insertion of a new shape or attribute) serialize through
// the dictionaries' internal mutexes.
type Shaper struct {
	attrs  *attributeDict
	shapes *shapeDict
	// accessors caches resolved (ShapeId, path) -> Accessor lookups.
	accessors *accessorCache
	log       *slog.Logger
}

// New creates a Shaper with the basic/primitive shapes pre-registered
// (spec §3: "a set of basic shape ids is reserved for primitive shapes").
func New(name string) *Shaper {
	sh := &Shaper{
		attrs:     newAttributeDict(),
		shapes:    newShapeDict(),
		accessors: newAccessorCache(),
		log:       slog.Default().With("component", "shaper", "collection", name),
	}
	sh.shapes.registerBasic(ShapeIDNull, &Shape{Kind: KindNull})
	sh.shapes.registerBasic(ShapeIDBool, &Shape{Kind: KindBool})
	sh.shapes.registerBasic(ShapeIDNumber, &Shape{Kind: KindNumber})
	sh.shapes.registerBasic(ShapeIDShortString, &Shape{Kind: KindShortString})
	sh.shapes.registerBasic(ShapeIDLongString, &Shape{Kind: KindLongString})
	sh.shapes.registerBasic(ShapeIDList, &Shape{Kind: KindList})
	sh.shapes.registerBasic(ShapeIDObject, &Shape{Kind: KindObject})
	return sh
}

// FindOrCreateAttribute interns name, returning its AttributeId. It is
// idempotent: concurrent calls with the same name return the same id
// (spec §8 "Attribute idempotence"). isLocked elides the shaper's
// internal mutex when the caller already holds a higher-level collection
// write lock (spec §5).
func (sh *Shaper) FindOrCreateAttribute(name string, isLocked bool) AttributeId {
	id := sh.attrs.findOrCreate(name, isLocked)
	return id
}

// LookupAttributeByName is the read-only variant: it never creates.
func (sh *Shaper) LookupAttributeByName(name string) (AttributeId, bool) {
	return sh.attrs.lookupByName(name)
}

// LookupAttributeByID returns the attribute name bound to id, if any.
func (sh *Shaper) LookupAttributeByID(id AttributeId) (string, bool) {
	return sh.attrs.lookupByID(id)
}

// FindOrCreateShape interns shape, returning its ShapeId. Identity is
// driven by the shape's canonical byte form, so structurally equal
// shapes collapse to one id regardless of which document produced them
// (spec §3, §8 "Shape identity").
func (sh *Shaper) FindOrCreateShape(shape Shape, isLocked bool) ShapeId {
	return sh.shapes.findOrCreate(shape, isLocked)
}

// LookupShape returns the Shape bound to id, if any, in constant time.
func (sh *Shaper) LookupShape(id ShapeId) (*Shape, bool) {
	return sh.shapes.lookupByID(id)
}

// fixedByteSize computes the static byte size of a fixed-sized shape,
// recursing into nested Object fields. Callers must already know (via
// Shape.IsFixedSized) that id refers to a fixed-sized shape; ok is false
// only if id is unknown to the dictionary, which would indicate a
// ShaperFailed-class corruption of the invariant "every id reachable from
// a ShapeId already exists in the shaper" (spec §3).
func (sh *Shaper) fixedByteSize(id ShapeId) (int, bool) {
	s, ok := sh.LookupShape(id)
	if !ok {
		return 0, false
	}
	if s.Kind != KindObject {
		return s.basicFixedSize(), true
	}
	total := 0
	for _, f := range s.Fixed {
		sz, ok := sh.fixedByteSize(f.Shape)
		if !ok {
			return 0, false
		}
		total += sz
	}
	return total, true
}

// badParameter is a convenience constructor for the common "unsupported
// value kind" failure (spec §4.1 "Failure semantics").
func badParameter(format string, args ...any) *docerr.Error {
	return docerr.New(docerr.BadParameter, format, args...)
}
