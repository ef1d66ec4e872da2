package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "mfgverify/pkg/domain-errors"
)

// TestParseManufacturerID_Invariants validates the parsing invariant:
// "identifiers are non-empty, bounded and otherwise kept verbatim".
func TestParseManufacturerID_Invariants(t *testing.T) {
	t.Run("accepts opaque identifiers verbatim", func(t *testing.T) {
		for _, in := range []string{"MAN001", "man001", "MAN 002", " MAN001\n", "MAN\x00001", string([]byte{0xff, 0xfe})} {
			id, err := ParseManufacturerID(in)
			require.NoErrorf(t, err, "input %q", in)
			assert.Equal(t, in, id.String())
		}
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := ParseManufacturerID("")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects over the length cap", func(t *testing.T) {
		_, err := ParseManufacturerID(strings.Repeat("M", maxManufacturerIDLength))
		require.NoError(t, err)
		_, err = ParseManufacturerID(strings.Repeat("M", maxManufacturerIDLength+1))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestParsePrincipal(t *testing.T) {
	p, err := ParsePrincipal("ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM")
	require.NoError(t, err)
	assert.False(t, p.IsZero())

	_, err = ParsePrincipal("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = ParsePrincipal(strings.Repeat("S", maxPrincipalLength+1))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestParseHeight(t *testing.T) {
	h, err := ParseHeight("12345")
	require.NoError(t, err)
	assert.Equal(t, Height(12345), h)
	assert.Equal(t, "12345", h.String())

	h, err = ParseHeight(" 7\n")
	require.NoError(t, err)
	assert.Equal(t, Height(7), h)

	for _, in := range []string{"0", "-1", "abc", "", "18446744073709551616"} {
		_, err := ParseHeight(in)
		assert.Truef(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), "input %q", in)
	}
}
