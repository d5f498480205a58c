package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromJSONPreservesObjectKeyOrder(t *testing.T) {
	v, err := FromJSON([]byte(`{"c":1,"a":2,"b":3}`))
	require.NoError(t, err)
	require.Equal(t, KindObject, v.Kind)

	names := make([]string, v.Object.Len())
	for i, p := range v.Object.Props {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)
}

func TestFromJSONAllPrimitives(t *testing.T) {
	v, err := FromJSON([]byte(`{"n":null,"b":true,"num":3.5,"s":"hi","l":[1,2,3]}`))
	require.NoError(t, err)

	n, _ := v.Object.Get("n")
	assert.Equal(t, KindNull, n.Kind)
	b, _ := v.Object.Get("b")
	assert.True(t, b.Bool)
	num, _ := v.Object.Get("num")
	assert.Equal(t, 3.5, num.Num)
	s, _ := v.Object.Get("s")
	assert.Equal(t, "hi", s.Str)
	l, _ := v.Object.Get("l")
	assert.Len(t, l.List, 3)
}

func TestToJSONRoundTrip(t *testing.T) {
	o := NewObject()
	o.Set("name", String("Alice"))
	o.Set("age", Number(30))
	o.Set("tags", List(String("a"), String("b")))
	original := ObjectValue(o)

	data, err := ToJSON(original)
	require.NoError(t, err)

	restored, err := FromJSON(data)
	require.NoError(t, err)
	assert.True(t, Equal(original, restored))
}

func TestFromJSONRejectsTrailingData(t *testing.T) {
	_, err := FromJSON([]byte(`{"a":1} garbage`))
	assert.Error(t, err)
}

func TestFromJSONRejectsMalformed(t *testing.T) {
	_, err := FromJSON([]byte(`{"a":`))
	assert.Error(t, err)
}
