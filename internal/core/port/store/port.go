package store

import (
	"context"

	"github.com/kondukto-io/portguard/internal/core/domain"
	"github.com/kondukto-io/portguard/internal/core/port/catalog"
	"github.com/kondukto-io/portguard/internal/core/port/event"
	"github.com/kondukto-io/portguard/internal/core/port/rule"
)

// Repository is the persisted store of the application
type Repository interface {
	event.Repository
	rule.Repository
	catalog.Repository

	GetConfiguration(ctx context.Context) (domain.AppConfiguration, error)
	SaveConfiguration(ctx context.Context, cfg domain.AppConfiguration) error

	Initialize(ctx context.Context) error
	Backup(ctx context.Context, path string) error
	Restore(ctx context.Context, path string) error
	Size(ctx context.Context) (int64, error)
	Optimize(ctx context.Context) error
	Close() error
}
