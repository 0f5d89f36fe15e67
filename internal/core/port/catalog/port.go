package catalog

import (
	"context"

	"github.com/kondukto-io/portguard/internal/core/domain"
)

// Repository persists learned catalog entries
type Repository interface {
	GetPortInfo(ctx context.Context, port uint32, proto domain.Protocol) (domain.PortInfo, error)
	ListPortInfo(ctx context.Context) ([]domain.PortInfo, error)
	SavePortInfo(ctx context.Context, info domain.PortInfo) error
}

// UseCase answers questions about ports
type UseCase interface {
	GetPortInfo(ctx context.Context, port uint32, proto domain.Protocol) (domain.PortInfo, error)
	IsKnownMalwarePort(ctx context.Context, port uint32, proto domain.Protocol) bool
	// MatchesSignature reports whether the pair is in the malware signature table
	MatchesSignature(port uint32, proto domain.Protocol) bool
	SearchByService(ctx context.Context, name string) ([]domain.PortInfo, error)
	MaliciousPorts(ctx context.Context) ([]domain.PortInfo, error)
	ByCategory(ctx context.Context, category domain.PortCategory) ([]domain.PortInfo, error)
	Import(ctx context.Context, entries []domain.PortInfo) error
}
