package shaper

// AttributeId identifies an interned attribute name. Id 0 means "absent"
// (spec §3); valid ids start at 1 and are issued in strict monotonic
// order, never reused or reassigned for the shaper's lifetime.
type AttributeId uint32

// NoAttribute is the reserved "absent" attribute id.
const NoAttribute AttributeId = 0

// ShapeId identifies an interned Shape. A handful of low ids are
// reserved for the basic/primitive shapes (see the ShapeID* constants
// below); all other ids are minted in strict monotonic order as new
// shapes are observed.
type ShapeId uint32

// NoShape is the reserved "no shape" sentinel, never issued by
// findOrCreateShape.
const NoShape ShapeId = 0

// Basic shape ids, pre-registered when a Shaper is constructed. These
// shapes require no instance-specific parameters: a short string's shape
// is identical regardless of the string's content, and the generic list
// and (empty) object shapes carry their structural detail in the
// document bytes rather than in the shape record (spec §3, §4.1).
const (
	ShapeIDNull ShapeId = iota + 1
	ShapeIDBool
	ShapeIDNumber
	ShapeIDShortString
	ShapeIDLongString
	ShapeIDList
	ShapeIDObject

	firstDynamicShapeID = ShapeIDObject + 1
)

// ShortStringCut is the inline byte cut for short strings (spec §3: "up
// to a fixed cut, e.g. 8 bytes"). A UTF-8 string shapes as ShortString
// when its byte length is strictly less than this cut; otherwise it
// shapes as LongString.
const ShortStringCut = 8
