// Package value implements the in-memory document representation used
// before shaping and after decoding: a tagged variant mirroring the
// primitives a document may contain, plus ordered lists and objects.
//
// Value is the boundary type between the (out of scope) script runtime
// that converts user input into documents and the shaper, which turns a
// Value into a compact self-describing byte layout. See internal/shaper.
package value

import "fmt"

// Kind discriminates the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a tagged variant over the document primitives described in
// spec §3: Null, Bool, Number (float64), String, List (ordered Values)
// and Object (ordered name -> Value mapping with unique names).
//
// Only one of the typed fields is meaningful, selected by Kind. Value is
// intentionally a plain struct rather than an interface hierarchy: all
// variants are known ahead of time and dispatch is a switch on Kind.
type Value struct {
	Str    string
	List   []Value
	Object *Object
	Num    float64
	Kind   Kind
	Bool   bool
}

// Object is an ordered mapping from attribute name to Value. Names are
// unique within one Object; order is preserved as supplied so that the
// shaper can observe field declaration order before it sorts by
// AttributeId for canonical shape construction.
type Object struct {
	index map[string]int
	Props []Property
}

// Property is one (name, value) pair of an Object, in insertion order.
type Property struct {
	Name  string
	Value Value
}

// NewObject returns an empty, ready-to-use Object.
func NewObject() *Object {
	return &Object{index: make(map[string]int)}
}

// Set inserts or overwrites the named property, preserving the position
// of an existing property and appending new ones at the end.
func (o *Object) Set(name string, v Value) {
	if idx, ok := o.index[name]; ok {
		o.Props[idx].Value = v
		return
	}
	o.index[name] = len(o.Props)
	o.Props = append(o.Props, Property{Name: name, Value: v})
}

// Get returns the value for name and whether it was present.
func (o *Object) Get(name string) (Value, bool) {
	if o == nil {
		return Value{}, false
	}
	idx, ok := o.index[name]
	if !ok {
		return Value{}, false
	}
	return o.Props[idx].Value, true
}

// Len returns the number of properties.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.Props)
}

// Null returns the Null value.
func Null() Value { return Value{Kind: KindNull} }

// Bool returns a Bool value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Number returns a Number value.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// String returns a String value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// List returns a List value wrapping the given elements.
func List(elems ...Value) Value { return Value{Kind: KindList, List: elems} }

// ObjectValue wraps an *Object as a Value.
func ObjectValue(o *Object) Value { return Value{Kind: KindObject, Object: o} }

// IsReservedName reports whether name begins with '_', marking it as a
// reserved attribute name that the shaper strips before encoding (spec §3),
// except for the document-key attribute which callers handle themselves
// before invoking the shaper.
func IsReservedName(name string) bool {
	return len(name) > 0 && name[0] == '_'
}

// Equal performs a structural equality check, treating Object property
// order as insignificant (names are compared by content, not position) —
// used by tests to verify shaper round-trips per spec §8.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindNumber:
		return a.Num == b.Num
	case KindString:
		return a.Str == b.Str
	case KindList:
		if len(a.List) != len(b.List) {
			return false
		}
		for i := range a.List {
			if !Equal(a.List[i], b.List[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if a.Object.Len() != b.Object.Len() {
			return false
		}
		for _, p := range a.Object.Props {
			bv, ok := b.Object.Get(p.Name)
			if !ok || !Equal(p.Value, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
