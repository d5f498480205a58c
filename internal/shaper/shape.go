package shaper

import "encoding/binary"

// ShapeKind discriminates the Shape variants of spec §3. Shape is modeled
// as a tagged variant (a base Kind plus kind-specific fields) rather than
// an inheritance hierarchy, matching the design note in spec §9: all
// variants are known at compile time and the encoder/decoder dispatch on
// the tag.
type ShapeKind uint8

const (
	KindNull ShapeKind = iota + 1
	KindBool
	KindNumber
	KindShortString
	KindLongString
	// KindList is the generic, heterogeneous list shape. It is reused
	// (via the basic ShapeIDList id) for every heterogeneous list and
	// for empty lists; the document bytes, not the shape record, carry
	// each element's concrete shape id.
	KindList
	KindHomogeneousList
	KindHomogeneousSizedList
	// KindObject covers both the basic empty-object shape (ShapeIDObject,
	// zero fixed and variable fields) and every minted non-empty object
	// shape, distinguished by their Fixed/Variable field lists.
	KindObject
)

// FieldShape is one (AttributeId, ShapeId) pair of an Object shape's
// fixed or variable block, always stored sorted by AttributeId.
type FieldShape struct {
	Attribute AttributeId
	Shape     ShapeId
}

// Shape is an immutable record describing a document layout (spec §3).
// Only the fields relevant to Kind are populated; the rest are zero.
type Shape struct {
	Kind ShapeKind

	// ElemShape is the element shape id for HomogeneousList and
	// HomogeneousSizedList.
	ElemShape ShapeId
	// ElemSize is the fixed per-element byte size for
	// HomogeneousSizedList only.
	ElemSize uint32

	// Fixed and Variable are an Object shape's field lists, each sorted
	// by AttributeId. A field lands in Fixed iff its own shape is
	// fixed-sized; otherwise it lands in Variable (spec §4.1 step 5).
	Fixed    []FieldShape
	Variable []FieldShape
}

// IsFixedSized reports whether every instance of this shape occupies the
// same number of bytes regardless of content. Primitives (other than
// long strings) and short strings are always fixed-sized; an Object is
// fixed-sized exactly when it has no variable-block fields (spec §4.1
// step 7: "fixed-sized" propagates from children). Lists are never
// fixed-sized: their encoded length depends on the runtime element
// count even when every element shares one shape and size.
func (s Shape) IsFixedSized() bool {
	switch s.Kind {
	case KindNull, KindBool, KindNumber, KindShortString:
		return true
	case KindObject:
		return len(s.Variable) == 0
	default:
		return false
	}
}

// basicFixedSize returns the static byte size for the basic fixed-sized
// kinds; it does not handle KindObject, whose size depends on its
// (possibly nested) fixed fields and is computed by the shaper via
// fixedByteSize.
func (s Shape) basicFixedSize() int {
	switch s.Kind {
	case KindNull:
		return 0
	case KindBool:
		return 1
	case KindNumber:
		return 8
	case KindShortString:
		return 1 + ShortStringCut
	default:
		return 0
	}
}

// canonicalBytes returns the exact byte image that identifies this
// shape's content for hashing and deduplication purposes (spec §6:
// "shape identity is the hash of those bytes"). Basic shapes never reach
// this path — they are pre-registered by id — so canonicalBytes only
// needs to distinguish HomogeneousList, HomogeneousSizedList and
// non-empty Object shapes.
func (s Shape) canonicalBytes() []byte {
	buf := []byte{byte(s.Kind)}
	switch s.Kind {
	case KindHomogeneousList:
		buf = appendU32(buf, uint32(s.ElemShape))
	case KindHomogeneousSizedList:
		buf = appendU32(buf, uint32(s.ElemShape))
		buf = appendU32(buf, s.ElemSize)
	case KindObject:
		buf = appendU32(buf, uint32(len(s.Fixed)))
		for _, f := range s.Fixed {
			buf = appendU32(buf, uint32(f.Attribute))
			buf = appendU32(buf, uint32(f.Shape))
		}
		buf = appendU32(buf, uint32(len(s.Variable)))
		for _, f := range s.Variable {
			buf = appendU32(buf, uint32(f.Attribute))
			buf = appendU32(buf, uint32(f.Shape))
		}
	}
	return buf
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}
