package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeExpressionRoundTrips(t *testing.T) {
	expr := BinaryOp{
		Op:   OpGt,
		Left: ColumnRef{Name: "amount"},
		Right: UnaryOp{
			Op:      OpNeg,
			Operand: Constant{Value: int64(-10)},
		},
	}

	encoded, err := EncodeExpression(expr)
	require.NoError(t, err)

	decoded, err := DecodeExpression(encoded)
	require.NoError(t, err)
	assert.Equal(t, expr, decoded)
}

func TestEncodeExpressionRejectsUnsupportedNode(t *testing.T) {
	_, err := EncodeExpression(Wildcard{})
	require.Error(t, err)
}

func TestDecodeExpressionRejectsTrailingBytes(t *testing.T) {
	encoded, err := EncodeExpression(ColumnRef{Name: "id"})
	require.NoError(t, err)

	_, err = DecodeExpression(append(encoded, 0xFF))
	require.Error(t, err)
}

func TestDecodeExpressionRejectsTruncatedInput(t *testing.T) {
	encoded, err := EncodeExpression(ColumnRef{Name: "id"})
	require.NoError(t, err)

	_, err = DecodeExpression(encoded[:len(encoded)-1])
	require.Error(t, err)
}
