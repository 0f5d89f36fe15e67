package event

import (
	"context"
	"time"

	"github.com/kondukto-io/portguard/internal/core/domain"
)

// Repository persists port events
type Repository interface {
	// SavePortEvent inserts or updates the event and returns its id
	SavePortEvent(ctx context.Context, event domain.PortEvent) (int64, error)
	GetPortEvent(ctx context.Context, id int64) (domain.PortEvent, error)
	ListPortEvents(ctx context.Context, offset, limit int) ([]domain.PortEvent, error)
	ListPortEventsByProcess(ctx context.Context, processName string) ([]domain.PortEvent, error)
	DeletePortEvent(ctx context.Context, id int64) error
	// DeletePortEventsBefore purges events older than cutoff and returns the count removed
	DeletePortEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
