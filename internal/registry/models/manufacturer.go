package models

import (
	"strings"
	"time"

	"mfgverify/pkg/domain"
	dErrors "mfgverify/pkg/domain-errors"
)

// Manufacturer is the registry record for one manufacturer identifier.
//
// Invariants:
//   - ID, Name, Address and LicenseNumber never change after construction
//   - Verified moves false -> true only, never back
//   - Verified == true iff VerificationHeight != 0
type Manufacturer struct {
	ID                 domain.ManufacturerID `json:"id"`
	Name               string                `json:"name"`
	Address            string                `json:"address"`
	LicenseNumber      string                `json:"license_number"`
	Verified           bool                  `json:"verified"`
	VerificationHeight domain.Height         `json:"verification_height"`
	RegisteredAt       time.Time             `json:"registered_at"`
}

// NewManufacturer builds an unverified record. The descriptive fields are
// stored exactly as given, empty values included.
func NewManufacturer(id domain.ManufacturerID, name, address, licenseNumber string, now time.Time) (*Manufacturer, error) {
	if id == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "manufacturer id cannot be empty")
	}
	return &Manufacturer{
		ID:            id,
		Name:          name,
		Address:       address,
		LicenseNumber: licenseNumber,
		RegisteredAt:  now,
	}, nil
}

// CanVerify checks that the record may record a verification at height.
// Returns an error if the transition is not allowed.
func (m *Manufacturer) CanVerify(height domain.Height) error {
	if height == 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "verification height must be positive")
	}
	return nil
}

// ApplyVerification marks the record verified at height. A record that is
// already verified keeps its original height. Reports whether anything changed.
func (m *Manufacturer) ApplyVerification(height domain.Height) bool {
	if m.Verified {
		return false
	}
	m.Verified = true
	m.VerificationHeight = height
	return true
}

// Verify validates and applies verification in one call.
func (m *Manufacturer) Verify(height domain.Height) (bool, error) {
	if err := m.CanVerify(height); err != nil {
		return false, err
	}
	return m.ApplyVerification(height), nil
}

// RegisterRequest is the input to a registration. Only the ID is checked;
// the other fields are opaque to the registry.
type RegisterRequest struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Address       string `json:"address"`
	LicenseNumber string `json:"license_number"`
}

// TransferAdminRequest names the principal that takes over administration.
type TransferAdminRequest struct {
	NewAdmin string `json:"new_admin"`
}

func (r *TransferAdminRequest) Normalize() {
	if r == nil {
		return
	}
	r.NewAdmin = strings.TrimSpace(r.NewAdmin)
}

func (r *TransferAdminRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if _, err := domain.ParsePrincipal(r.NewAdmin); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid new_admin")
	}
	return nil
}
