package shaper

import (
	"encoding/binary"
	"math"

	"github.com/dreamware/docshaper/internal/docerr"
	"github.com/dreamware/docshaper/internal/value"
)

// Decode reverses Encode: given a ShapedDocument it reconstructs the
// original Value exactly, up to object property order (spec §8
// "round-trip"). Decode never mints attributes or shapes; an id
// referenced by doc that the shaper does not know about indicates the
// document was produced by (or intended for) a different shaper and is
// reported as ShaperFailed.
func (sh *Shaper) Decode(doc ShapedDocument) (value.Value, error) {
	return sh.decodeValue(doc.ShapeId, doc.Bytes)
}

func (sh *Shaper) decodeValue(shapeID ShapeId, bytes []byte) (value.Value, error) {
	shape, ok := sh.LookupShape(shapeID)
	if !ok {
		return value.Value{}, docerr.New(docerr.ShaperFailed, "unknown shape id %d", shapeID)
	}

	switch shape.Kind {
	case KindNull:
		return value.Null(), nil

	case KindBool:
		return value.Bool(bytes[0] != 0), nil

	case KindNumber:
		return value.Number(math.Float64frombits(binary.LittleEndian.Uint64(bytes[0:8]))), nil

	case KindShortString:
		l := int(bytes[0])
		return value.String(string(bytes[1 : 1+l-1])), nil

	case KindLongString:
		total := binary.LittleEndian.Uint64(bytes[0:8])
		return value.String(string(bytes[8 : 8+int(total)-1])), nil

	case KindList, KindHomogeneousList, KindHomogeneousSizedList:
		return sh.decodeList(shape, bytes)

	case KindObject:
		return sh.decodeObject(shape, bytes)

	default:
		return value.Value{}, docerr.New(docerr.ShaperFailed, "unknown shape kind %d", shape.Kind)
	}
}

func (sh *Shaper) decodeList(shape *Shape, bytes []byte) (value.Value, error) {
	count := int(binary.LittleEndian.Uint32(bytes[0:4]))
	elems := make([]value.Value, count)

	switch shape.Kind {
	case KindList:
		shapeIDsStart := 4
		offsetsStart := shapeIDsStart + count*4
		dataStart := offsetsStart + (count+1)*8
		for i := 0; i < count; i++ {
			elemShape := ShapeId(binary.LittleEndian.Uint32(bytes[shapeIDsStart+i*4 : shapeIDsStart+i*4+4]))
			o1 := binary.LittleEndian.Uint64(bytes[offsetsStart+i*8 : offsetsStart+i*8+8])
			o2 := binary.LittleEndian.Uint64(bytes[offsetsStart+(i+1)*8 : offsetsStart+(i+1)*8+8])
			v, err := sh.decodeValue(elemShape, bytes[dataStart+int(o1):dataStart+int(o2)])
			if err != nil {
				return value.Value{}, err
			}
			elems[i] = v
		}

	case KindHomogeneousList:
		offsetsStart := 4
		dataStart := offsetsStart + (count+1)*8
		for i := 0; i < count; i++ {
			o1 := binary.LittleEndian.Uint64(bytes[offsetsStart+i*8 : offsetsStart+i*8+8])
			o2 := binary.LittleEndian.Uint64(bytes[offsetsStart+(i+1)*8 : offsetsStart+(i+1)*8+8])
			v, err := sh.decodeValue(shape.ElemShape, bytes[dataStart+int(o1):dataStart+int(o2)])
			if err != nil {
				return value.Value{}, err
			}
			elems[i] = v
		}

	case KindHomogeneousSizedList:
		dataStart := 4
		elemSize := int(shape.ElemSize)
		for i := 0; i < count; i++ {
			start := dataStart + i*elemSize
			v, err := sh.decodeValue(shape.ElemShape, bytes[start:start+elemSize])
			if err != nil {
				return value.Value{}, err
			}
			elems[i] = v
		}
	}

	return value.List(elems...), nil
}

func (sh *Shaper) decodeObject(shape *Shape, bytes []byte) (value.Value, error) {
	fixedBlockStart := 8 * (len(shape.Variable) + 1)
	obj := value.NewObject()

	offset := 0
	for _, f := range shape.Fixed {
		sz, ok := sh.fixedByteSize(f.Shape)
		if !ok {
			return value.Value{}, docerr.New(docerr.ShaperFailed, "missing fixed shape %d", f.Shape)
		}
		v, err := sh.decodeValue(f.Shape, bytes[fixedBlockStart+offset:fixedBlockStart+offset+sz])
		if err != nil {
			return value.Value{}, err
		}
		name, ok := sh.LookupAttributeByID(f.Attribute)
		if !ok {
			return value.Value{}, docerr.New(docerr.ShaperFailed, "missing attribute %d", f.Attribute)
		}
		obj.Set(name, v)
		offset += sz
	}

	variableBlockStart := fixedBlockStart + offset
	for i, f := range shape.Variable {
		o1 := binary.LittleEndian.Uint64(bytes[i*8 : i*8+8])
		o2 := binary.LittleEndian.Uint64(bytes[(i+1)*8 : (i+1)*8+8])
		v, err := sh.decodeValue(f.Shape, bytes[variableBlockStart+int(o1):variableBlockStart+int(o2)])
		if err != nil {
			return value.Value{}, err
		}
		name, ok := sh.LookupAttributeByID(f.Attribute)
		if !ok {
			return value.Value{}, docerr.New(docerr.ShaperFailed, "missing attribute %d", f.Attribute)
		}
		obj.Set(name, v)
	}

	return value.ObjectValue(obj), nil
}

// locateField finds attr within the object shape shapeID's fixed or
// variable block and returns its child shape id and raw sub-bytes
// without decoding them to a Value. It backs the accessor cache's hot
// read path (spec §4.1 accessor paragraph).
func (sh *Shaper) locateField(shapeID ShapeId, bytes []byte, attr AttributeId) (ShapeId, []byte, bool) {
	shape, ok := sh.LookupShape(shapeID)
	if !ok || shape.Kind != KindObject {
		return 0, nil, false
	}

	fixedBlockStart := 8 * (len(shape.Variable) + 1)

	if idx, ok := findFieldIndex(shape.Fixed, attr); ok {
		offset := 0
		for i := 0; i < idx; i++ {
			sz, ok := sh.fixedByteSize(shape.Fixed[i].Shape)
			if !ok {
				return 0, nil, false
			}
			offset += sz
		}
		sz, ok := sh.fixedByteSize(shape.Fixed[idx].Shape)
		if !ok {
			return 0, nil, false
		}
		start := fixedBlockStart + offset
		return shape.Fixed[idx].Shape, bytes[start : start+sz], true
	}

	if idx, ok := findFieldIndex(shape.Variable, attr); ok {
		fixedBlockSize := 0
		for _, f := range shape.Fixed {
			sz, ok := sh.fixedByteSize(f.Shape)
			if !ok {
				return 0, nil, false
			}
			fixedBlockSize += sz
		}
		variableBlockStart := fixedBlockStart + fixedBlockSize

		o1 := binary.LittleEndian.Uint64(bytes[idx*8 : idx*8+8])
		o2 := binary.LittleEndian.Uint64(bytes[(idx+1)*8 : (idx+1)*8+8])
		start := variableBlockStart + int(o1)
		end := variableBlockStart + int(o2)
		return shape.Variable[idx].Shape, bytes[start:end], true
	}

	return 0, nil, false
}

// findFieldIndex binary-searches fields (sorted by Attribute, per
// encodeObject) for attr.
func findFieldIndex(fields []FieldShape, attr AttributeId) (int, bool) {
	lo, hi := 0, len(fields)
	for lo < hi {
		mid := (lo + hi) / 2
		if fields[mid].Attribute < attr {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(fields) && fields[lo].Attribute == attr {
		return lo, true
	}
	return 0, false
}
