package shaper

import (
	"strings"
	"sync"
)

// AttributePath names a chain of nested attribute names to reach into a
// document, e.g. []string{"address", "city"} for doc.address.city.
type AttributePath []string

// Accessor is a resolved, reusable path into any document of a given
// root ShapeId: repeated application against many documents that share
// that shape skips attribute-name resolution on every call (spec §4.1
// accessor paragraph).
type Accessor struct {
	attrs []AttributeId
}

// Apply walks doc's bytes along the accessor's path, returning the
// sub-shape and sub-bytes at the end of the chain. ok is false if any
// step names an attribute absent from the document (the Absent
// sentinel of spec §4.1), or if doc's root shape doesn't match an
// object at any step.
func (a *Accessor) Apply(sh *Shaper, doc ShapedDocument) (ShapeId, []byte, bool) {
	shapeID, bytes := doc.ShapeId, doc.Bytes
	for _, attr := range a.attrs {
		childShape, childBytes, ok := sh.locateField(shapeID, bytes, attr)
		if !ok {
			return 0, nil, false
		}
		shapeID, bytes = childShape, childBytes
	}
	return shapeID, bytes, true
}

// accessorCache memoizes (ShapeId, path) -> *Accessor resolutions
// behind a single-flight-style load-or-store: concurrent first callers
// for the same key each resolve independently but only one result is
// kept, so no caller blocks on another's resolution (spec §5).
type accessorCache struct {
	m sync.Map // accessorKey -> *Accessor
}

type accessorKey struct {
	shape ShapeId
	path  string
}

func newAccessorCache() *accessorCache {
	return &accessorCache{}
}

// FindAccessor resolves path against the shaper's attribute dictionary,
// caching the result under (shapeID, path). shapeID only scopes the
// cache entry; the returned Accessor works against any document whose
// structure is consistent with that root shape. ok is false if any
// path component names an attribute the shaper has never interned.
func (sh *Shaper) FindAccessor(shapeID ShapeId, path AttributePath) (*Accessor, bool) {
	key := accessorKey{shape: shapeID, path: strings.Join(path, "\x00")}

	if v, ok := sh.accessors.m.Load(key); ok {
		return v.(*Accessor), true
	}

	attrs := make([]AttributeId, len(path))
	for i, name := range path {
		id, ok := sh.LookupAttributeByName(name)
		if !ok {
			return nil, false
		}
		attrs[i] = id
	}

	acc := &Accessor{attrs: attrs}
	actual, _ := sh.accessors.m.LoadOrStore(key, acc)
	return actual.(*Accessor), true
}

// Get resolves path against doc in one call, combining FindAccessor and
// Apply. Most callers that read the same path from many documents of
// one shape should call FindAccessor once and reuse the Accessor.
func (sh *Shaper) Get(doc ShapedDocument, path AttributePath) (ShapeId, []byte, bool) {
	acc, ok := sh.FindAccessor(doc.ShapeId, path)
	if !ok {
		return 0, nil, false
	}
	return acc.Apply(sh, doc)
}
