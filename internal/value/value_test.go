package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectSetPreservesPositionOnOverwrite(t *testing.T) {
	o := NewObject()
	o.Set("a", Number(1))
	o.Set("b", Number(2))
	o.Set("a", Number(99))

	assert.Equal(t, 2, o.Len())
	assert.Equal(t, "a", o.Props[0].Name)
	got, ok := o.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 99.0, got.Num)
}

func TestObjectGetMissing(t *testing.T) {
	o := NewObject()
	_, ok := o.Get("missing")
	assert.False(t, ok)
}

func TestEqualIgnoresObjectPropertyOrder(t *testing.T) {
	a := NewObject()
	a.Set("x", Number(1))
	a.Set("y", String("hi"))

	b := NewObject()
	b.Set("y", String("hi"))
	b.Set("x", Number(1))

	assert.True(t, Equal(ObjectValue(a), ObjectValue(b)))
}

func TestEqualDetectsDifference(t *testing.T) {
	assert.False(t, Equal(Number(1), Number(2)))
	assert.False(t, Equal(List(Number(1)), List(Number(1), Number(2))))
	assert.True(t, Equal(Null(), Null()))
}

func TestIsReservedName(t *testing.T) {
	assert.True(t, IsReservedName("_key"))
	assert.False(t, IsReservedName("key"))
	assert.False(t, IsReservedName(""))
}
