package diagnostic

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	d := Wrap(CodeTxnConflict, "commit failed", cause)

	require.ErrorIs(t, d, cause)
	assert.Equal(t, CodeTxnConflict, d.Code)
}

func TestWithFragmentRendersPosition(t *testing.T) {
	d := New(CodeNumberOutOfRange, "value out of range").
		WithFragment(Fragment{Text: "99999999999", Line: 3, Column: 12}).
		WithLabel("here")

	msg := d.Error()
	assert.Contains(t, msg, "NUMBER_002")
	assert.Contains(t, msg, "3:12")
	assert.Contains(t, msg, "here")
}

func TestInternalAlwaysLogs(t *testing.T) {
	var logged *Diagnostic
	SetInternalLogger(func(d *Diagnostic) { logged = d })
	t.Cleanup(func() { SetInternalLogger(func(d *Diagnostic) {}) })

	d := Internal("catalog inconsistency", nil)

	require.NotNil(t, logged)
	assert.Equal(t, CodeInternal, d.Code)
	assert.Same(t, d, logged)
}
