package domain

import (
	"strconv"
	"strings"
	"unicode"

	dErrors "mfgverify/pkg/domain-errors"
)

const (
	maxManufacturerIDLength = 128
	maxPrincipalLength      = 256
)

// ManufacturerID is the opaque key a manufacturer is registered under.
type ManufacturerID string

// Principal identifies the account on whose behalf an operation executes.
type Principal string

// Height is the externally supplied ledger height. Zero means "never".
type Height uint64

func (id ManufacturerID) String() string { return string(id) }
func (p Principal) String() string       { return string(p) }
func (h Height) String() string          { return strconv.FormatUint(uint64(h), 10) }

// IsZero reports whether the principal is unset.
func (p Principal) IsZero() bool { return p == "" }

// ParseManufacturerID accepts any non-empty identifier up to the length cap.
// The value is kept byte-for-byte: identifiers are opaque, case-sensitive and
// may contain spaces.
func ParseManufacturerID(s string) (ManufacturerID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "manufacturer id is required")
	}
	if len(s) > maxManufacturerIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "manufacturer id is too long")
	}
	return ManufacturerID(s), nil
}

// ParsePrincipal validates a caller or admin identity.
func ParsePrincipal(s string) (Principal, error) {
	if err := validateToken(s, maxPrincipalLength, "principal"); err != nil {
		return "", err
	}
	return Principal(s), nil
}

// ParseHeight parses a decimal ledger height. Zero is rejected since it is
// reserved for unverified records.
func ParseHeight(s string) (Height, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "height must be a non-negative integer")
	}
	if n == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "height must be positive")
	}
	return Height(n), nil
}

func validateToken(s string, maxLen int, what string) error {
	if s == "" {
		return dErrors.New(dErrors.CodeInvalidInput, what+" is required")
	}
	if len(s) > maxLen {
		return dErrors.New(dErrors.CodeInvalidInput, what+" is too long")
	}
	for _, r := range s {
		if r == unicode.ReplacementChar || unicode.IsSpace(r) || unicode.IsControl(r) {
			return dErrors.New(dErrors.CodeInvalidInput, what+" contains invalid characters")
		}
	}
	return nil
}
