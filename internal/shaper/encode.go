package shaper

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/dreamware/docshaper/internal/docerr"
	"github.com/dreamware/docshaper/internal/value"
)

// ShapedDocument is the canonical on-wire and on-disk form of a document
// value: a ShapeId paired with a dense little-endian byte encoding that
// is fully recoverable given the ShapeId and this shaper's dictionary
// (spec §3).
type ShapedDocument struct {
	ShapeId ShapeId
	Bytes   []byte
}

// encoded is the internal bottom-up accumulator used while walking a
// Value: besides the shape and bytes produced for this sub-value, it
// records whether the sub-value is fixed-sized so the parent object can
// decide, per field, whether it belongs in the fixed or variable block
// (spec §4.1 steps 5 and 7).
type encoded struct {
	shapeID ShapeId
	bytes   []byte
	fixed   bool
}

// Encode converts v into a ShapedDocument, minting or looking up
// attribute and shape ids along the way depending on create (spec
// §4.1). It acquires the shaper's internal write lock as needed; use
// EncodeLocked from a caller that already holds a higher-level
// collection write lock.
func (sh *Shaper) Encode(v value.Value, create bool) (ShapedDocument, error) {
	return sh.encodeTop(v, create, false)
}

// EncodeLocked behaves like Encode but elides the shaper's internal
// mutex, for callers already serialized by an outer lock (spec §5).
func (sh *Shaper) EncodeLocked(v value.Value, create bool) (ShapedDocument, error) {
	return sh.encodeTop(v, create, true)
}

func (sh *Shaper) encodeTop(v value.Value, create, isLocked bool) (ShapedDocument, error) {
	enc, err := sh.encodeValue(v, create, isLocked, make(map[*value.Object]bool))
	if err != nil {
		return ShapedDocument{}, err
	}
	return ShapedDocument{ShapeId: enc.shapeID, Bytes: enc.bytes}, nil
}

func (sh *Shaper) encodeValue(v value.Value, create, isLocked bool, open map[*value.Object]bool) (encoded, error) {
	switch v.Kind {
	case value.KindNull:
		return encoded{shapeID: ShapeIDNull, fixed: true}, nil

	case value.KindBool:
		b := byte(0)
		if v.Bool {
			b = 1
		}
		return encoded{shapeID: ShapeIDBool, bytes: []byte{b}, fixed: true}, nil

	case value.KindNumber:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v.Num))
		return encoded{shapeID: ShapeIDNumber, bytes: buf, fixed: true}, nil

	case value.KindString:
		return sh.encodeString(v.Str), nil

	case value.KindList:
		elems := make([]encoded, len(v.List))
		for i, e := range v.List {
			enc, err := sh.encodeValue(e, create, isLocked, open)
			if err != nil {
				return encoded{}, err
			}
			elems[i] = enc
		}
		return sh.encodeList(elems, isLocked)

	case value.KindObject:
		return sh.encodeObject(v.Object, create, isLocked, open)

	default:
		return encoded{}, badParameter("unsupported value kind %v", v.Kind)
	}
}

func (sh *Shaper) encodeString(s string) encoded {
	raw := []byte(s)
	if len(raw) < ShortStringCut {
		buf := make([]byte, 1+ShortStringCut)
		buf[0] = byte(len(raw) + 1) // length includes the NUL terminator
		copy(buf[1:], raw)
		// buf[1+len(raw)] is already 0 (NUL terminator); remaining bytes
		// are the zero padding up to ShortStringCut.
		return encoded{shapeID: ShapeIDShortString, bytes: buf, fixed: true}
	}

	total := uint64(len(raw)) + 1
	buf := make([]byte, 8+int(total))
	binary.LittleEndian.PutUint64(buf[0:8], total)
	copy(buf[8:], raw)
	return encoded{shapeID: ShapeIDLongString, bytes: buf, fixed: false}
}

func (sh *Shaper) encodeList(elems []encoded, isLocked bool) (encoded, error) {
	count := len(elems)
	if count == 0 {
		return encoded{shapeID: ShapeIDList, bytes: appendU32(nil, 0), fixed: false}, nil
	}

	allSameShape := true
	allSameSize := true
	firstShape := elems[0].shapeID
	firstSize := len(elems[0].bytes)
	for _, e := range elems[1:] {
		if e.shapeID != firstShape {
			allSameShape = false
		}
		if len(e.bytes) != firstSize {
			allSameSize = false
		}
	}

	switch {
	case allSameShape && allSameSize:
		shapeID := sh.FindOrCreateShape(Shape{
			Kind:      KindHomogeneousSizedList,
			ElemShape: firstShape,
			ElemSize:  uint32(firstSize),
		}, isLocked)

		buf := appendU32(nil, uint32(count))
		for _, e := range elems {
			buf = append(buf, e.bytes...)
		}
		return encoded{shapeID: shapeID, bytes: buf, fixed: false}, nil

	case allSameShape:
		shapeID := sh.FindOrCreateShape(Shape{
			Kind:      KindHomogeneousList,
			ElemShape: firstShape,
		}, isLocked)

		offsets, elementBytes := buildOffsets(elems)
		buf := appendU32(nil, uint32(count))
		for _, o := range offsets {
			buf = appendU64(buf, o)
		}
		buf = append(buf, elementBytes...)
		return encoded{shapeID: shapeID, bytes: buf, fixed: false}, nil

	default:
		offsets, elementBytes := buildOffsets(elems)
		buf := appendU32(nil, uint32(count))
		for _, e := range elems {
			buf = appendU32(buf, uint32(e.shapeID))
		}
		for _, o := range offsets {
			buf = appendU64(buf, o)
		}
		buf = append(buf, elementBytes...)
		return encoded{shapeID: ShapeIDList, bytes: buf, fixed: false}, nil
	}
}

func buildOffsets(elems []encoded) ([]uint64, []byte) {
	offsets := make([]uint64, len(elems)+1)
	var data []byte
	cur := uint64(0)
	for i, e := range elems {
		offsets[i] = cur
		data = append(data, e.bytes...)
		cur += uint64(len(e.bytes))
	}
	offsets[len(elems)] = cur
	return offsets, data
}

type objectField struct {
	attr    AttributeId
	shapeID ShapeId
	bytes   []byte
	fixed   bool
}

func (sh *Shaper) encodeObject(obj *value.Object, create, isLocked bool, open map[*value.Object]bool) (encoded, error) {
	if obj == nil {
		obj = value.NewObject()
	}
	if open[obj] {
		return encoded{}, docerr.New(docerr.ShaperCycle, "cycle detected while encoding object graph")
	}
	open[obj] = true
	defer delete(open, obj)

	var fields []objectField
	for _, p := range obj.Props {
		if value.IsReservedName(p.Name) {
			continue
		}

		var attrID AttributeId
		if create {
			attrID = sh.FindOrCreateAttribute(p.Name, isLocked)
		} else {
			id, ok := sh.LookupAttributeByName(p.Name)
			if !ok {
				return encoded{}, docerr.New(docerr.NotFound, "attribute %q not interned", p.Name)
			}
			attrID = id
		}

		child, err := sh.encodeValue(p.Value, create, isLocked, open)
		if err != nil {
			return encoded{}, err
		}

		fields = append(fields, objectField{attr: attrID, shapeID: child.shapeID, bytes: child.bytes, fixed: child.fixed})
	}

	sort.SliceStable(fields, func(i, j int) bool { return fields[i].attr < fields[j].attr })

	var fixedFields, variableFields []objectField
	for _, f := range fields {
		if f.fixed {
			fixedFields = append(fixedFields, f)
		} else {
			variableFields = append(variableFields, f)
		}
	}

	var shapeID ShapeId
	if len(fixedFields) == 0 && len(variableFields) == 0 {
		shapeID = ShapeIDObject
	} else {
		shape := Shape{
			Kind:     KindObject,
			Fixed:    toFieldShapes(fixedFields),
			Variable: toFieldShapes(variableFields),
		}
		if create {
			shapeID = sh.FindOrCreateShape(shape, isLocked)
		} else {
			id, ok := sh.LookupShapeByContent(shape)
			if !ok {
				return encoded{}, docerr.New(docerr.NotFound, "object shape not interned")
			}
			shapeID = id
		}
	}

	var fixedBlock []byte
	for _, f := range fixedFields {
		fixedBlock = append(fixedBlock, f.bytes...)
	}

	variableOffsets := make([]uint64, len(variableFields)+1)
	var variableBlock []byte
	cur := uint64(0)
	for i, f := range variableFields {
		variableOffsets[i] = cur
		variableBlock = append(variableBlock, f.bytes...)
		cur += uint64(len(f.bytes))
	}
	variableOffsets[len(variableFields)] = cur

	buf := make([]byte, 0, 8*(len(variableFields)+1)+len(fixedBlock)+len(variableBlock))
	for _, o := range variableOffsets {
		buf = appendU64(buf, o)
	}
	buf = append(buf, fixedBlock...)
	buf = append(buf, variableBlock...)

	return encoded{shapeID: shapeID, bytes: buf, fixed: len(variableFields) == 0}, nil
}

func toFieldShapes(fields []objectField) []FieldShape {
	out := make([]FieldShape, len(fields))
	for i, f := range fields {
		out[i] = FieldShape{Attribute: f.attr, Shape: f.shapeID}
	}
	return out
}

func appendU64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// LookupShapeByContent returns the ShapeId already bound to shape's
// canonical content, without minting a new id (used by Encode when
// create=false; spec §4.1).
func (sh *Shaper) LookupShapeByContent(shape Shape) (ShapeId, bool) {
	return sh.shapes.lookupByShape(shape)
}
