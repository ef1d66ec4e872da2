package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodes(t *testing.T) {
	t.Run("HasCode sees through wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", New(CodeNotFound, "manufacturer not found"))
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeConflict))
	})

	t.Run("plain errors are internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
		assert.False(t, HasCode(nil, CodeInternal))
	})

	t.Run("errors.Is compares code and message", func(t *testing.T) {
		err := New(CodeForbidden, "caller is not the registry admin")
		require.ErrorIs(t, err, New(CodeForbidden, "caller is not the registry admin"))
		assert.NotErrorIs(t, err, New(CodeForbidden, "other"))
	})

	t.Run("Wrap keeps the cause", func(t *testing.T) {
		cause := errors.New("dial tcp: refused")
		err := Wrap(cause, CodeInternal, "failed to read ledger height")
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "failed to read ledger height: dial tcp: refused", err.Error())
		assert.Nil(t, Wrap(nil, CodeInternal, "unused"))
	})
}

func TestContractCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   int
		inside bool
	}{
		{"unauthorized", New(CodeForbidden, "x"), 403, true},
		{"already exists", New(CodeConflict, "x"), 100, true},
		{"not found", New(CodeNotFound, "x"), 404, true},
		{"validation is outside the contract", New(CodeValidation, "x"), 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := ContractCode(tt.err)
			assert.Equal(t, tt.inside, ok)
			assert.Equal(t, tt.code, code)
		})
	}
}
