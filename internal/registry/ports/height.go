package ports

import (
	"context"

	"mfgverify/pkg/domain"
)

// HeightSource supplies the current ledger height.
// This is a hexagonal architecture port: the registry handler depends on this
// interface and adapters (manual counter, wall clock, Redis follower) implement it.
//
// The registry never reads a height from the request body; verifications are
// always stamped with whatever the configured source reports.
type HeightSource interface {
	// Current returns the height at which the next operation executes.
	// Implementations return a positive height or an error; never 0.
	Current(ctx context.Context) (domain.Height, error)
}
