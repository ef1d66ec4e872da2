// Package ledger provides the current-height sources the registry stamps
// verifications with. The ledger itself is external; these adapters only
// observe or simulate its height.
package ledger

import (
	"mfgverify/internal/registry/ports"
)

var (
	_ ports.HeightSource = (*Manual)(nil)
	_ ports.HeightSource = (*Clock)(nil)
	_ ports.HeightSource = (*RedisHeight)(nil)
)
