package endpoint

import (
	"context"

	"github.com/kondukto-io/portguard/internal/core/domain"
)

// Enumerator lists the active endpoints of one protocol. Entries that cannot
// be resolved are skipped; an error means the protocol could not be read at all.
type Enumerator interface {
	Enumerate(ctx context.Context, proto domain.Protocol) ([]domain.PortEvent, error)
}
