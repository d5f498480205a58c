package keygen

import (
	"testing"

	"github.com/dreamware/docshaper/internal/docerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateKey(t *testing.T) {
	assert.True(t, ValidateKey("abc-DEF_123:x"))
	assert.False(t, ValidateKey(""))
	assert.False(t, ValidateKey("has space"))
	assert.False(t, ValidateKey("has/slash"))

	tooLong := make([]byte, MaxKeyLength+1)
	for i := range tooLong {
		tooLong[i] = 'a'
	}
	assert.False(t, ValidateKey(string(tooLong)))
}

func TestValidateCollectionName(t *testing.T) {
	assert.True(t, ValidateCollectionName("_system"))
	assert.True(t, ValidateCollectionName("users-v2"))
	assert.False(t, ValidateCollectionName("-leading-dash"))
	assert.False(t, ValidateCollectionName(""))
}

func TestSplitDocumentID(t *testing.T) {
	c, k, ok := SplitDocumentID("users/abc123")
	require.True(t, ok)
	assert.Equal(t, "users", c)
	assert.Equal(t, "abc123", k)

	_, _, ok = SplitDocumentID("no-slash-here")
	assert.False(t, ok)

	_, _, ok = SplitDocumentID("users/has space")
	assert.False(t, ok)
}

func TestTraditionalGenerateFromTick(t *testing.T) {
	gen, err := New(Options{Type: typeTraditional})
	require.NoError(t, err)

	key, err := gen.Generate(1234, "", false)
	require.NoError(t, err)
	assert.Equal(t, "1234", key)
}

func TestTraditionalDisallowsUserKeyUnlessRestoring(t *testing.T) {
	allow := false
	gen, err := New(Options{Type: typeTraditional, AllowUserKeys: &allow})
	require.NoError(t, err)

	_, err = gen.Generate(0, "x", false)
	require.Error(t, err)
	assert.Equal(t, docerr.KeyUnexpected, docerr.CodeOf(err))

	key, err := gen.Generate(0, "x", true)
	require.NoError(t, err)
	assert.Equal(t, "x", key)
}

func TestAutoIncrementSequence(t *testing.T) {
	gen, err := New(Options{Type: typeAutoIncrement, Offset: 100, Increment: 7})
	require.NoError(t, err)

	want := []string{"100", "107", "114", "121"}
	for _, w := range want {
		key, err := gen.Generate(0, "", false)
		require.NoError(t, err)
		assert.Equal(t, w, key)
	}

	gen.Track("500")
	key, err := gen.Generate(0, "", false)
	require.NoError(t, err)
	assert.Equal(t, "506", key, "506 is the smallest value greater than the tracked 500 congruent to offset mod increment")
}

func TestAutoIncrementInvalidIncrement(t *testing.T) {
	_, err := New(Options{Type: typeAutoIncrement, Increment: 1 << 16})
	require.Error(t, err)
	assert.Equal(t, docerr.InvalidKeyGenerator, docerr.CodeOf(err))
}

func TestAutoIncrementUserKeyMustBeNumeric(t *testing.T) {
	gen, err := New(Options{Type: typeAutoIncrement})
	require.NoError(t, err)

	_, err = gen.Generate(0, "not-numeric", false)
	require.Error(t, err)
	assert.Equal(t, docerr.KeyBad, docerr.CodeOf(err))
}

func TestAutoIncrementRoundTripJSON(t *testing.T) {
	gen, err := New(Options{Type: typeAutoIncrement, Offset: 5, Increment: 3})
	require.NoError(t, err)

	data, err := ToJSON(gen)
	require.NoError(t, err)

	restored, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, gen.Options(), restored.Options())
}

func TestAutoIncrementRoundTripPreservesLastValue(t *testing.T) {
	gen, err := New(Options{Type: typeAutoIncrement, Offset: 5, Increment: 3})
	require.NoError(t, err)

	want, err := gen.Generate(0, "", false)
	require.NoError(t, err)

	data, err := ToJSON(gen)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"lastValue"`)

	restored, err := FromJSON(data)
	require.NoError(t, err)

	next, err := restored.Generate(0, "", false)
	require.NoError(t, err)
	assert.NotEqual(t, want, next, "restored generator must not reissue a value already handed out")

	gen2, err := New(Options{Type: typeAutoIncrement, Offset: 5, Increment: 3})
	require.NoError(t, err)
	_, err = gen2.Generate(0, "", false)
	require.NoError(t, err)
	replay, err := gen2.Generate(0, "", false)
	require.NoError(t, err)
	assert.Equal(t, replay, next, "restored generator resumes exactly where the original left off")
}

func TestUnknownGeneratorType(t *testing.T) {
	_, err := New(Options{Type: "bogus"})
	require.Error(t, err)
	assert.Equal(t, docerr.InvalidKeyGenerator, docerr.CodeOf(err))
}
