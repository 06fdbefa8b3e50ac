package row

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() Schema {
	return Schema{Fields: []Field{
		{Name: "id", Type: TypeInt64},
		{Name: "n", Type: TypeUtf8},
		{Name: "active", Type: TypeBool},
		{Name: "note", Type: TypeBlob},
	}}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := testSchema()
	values := []any{int64(42), "hello", true, []byte{1, 2, 3}}

	encoded, err := Encode(s, values)
	require.NoError(t, err)

	decoded, err := Decode(s, encoded)
	require.NoError(t, err)
	assert.Equal(t, values, decoded)
}

func TestNullsPreserved(t *testing.T) {
	s := testSchema()
	values := []any{int64(1), nil, nil, []byte("x")}

	encoded, err := Encode(s, values)
	require.NoError(t, err)

	decoded, err := Decode(s, encoded)
	require.NoError(t, err)
	assert.Equal(t, values, decoded)
}

func TestFingerprintMismatchRejected(t *testing.T) {
	s := testSchema()
	encoded, err := Encode(s, []any{int64(1), "a", true, []byte("b")})
	require.NoError(t, err)

	other := Schema{Fields: []Field{{Name: "id", Type: TypeInt64}}}
	_, err = Decode(other, encoded)
	assert.Error(t, err)
}

func TestVariableWidthByteIdentity(t *testing.T) {
	s := Schema{Fields: []Field{{Name: "note", Type: TypeBlob}}}
	original := []byte{0x00, 0xFF, 0x10, 0x00}

	encoded, err := Encode(s, []any{original})
	require.NoError(t, err)
	decoded, err := Decode(s, encoded)
	require.NoError(t, err)
	assert.Equal(t, original, decoded[0])
}
