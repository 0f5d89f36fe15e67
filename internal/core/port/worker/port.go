package worker

import (
	"context"

	"github.com/kondukto-io/portguard/internal/core/domain"
)

// UseCase is the port sampling worker
type UseCase interface {
	// Start takes the baseline snapshot and starts the sampling loop
	Start(ctx context.Context) error
	// Stop stops the loop and waits for the running cycle
	Stop()
	IsMonitoring() bool
	// Current returns the latest snapshot, false before the baseline is taken
	Current() (domain.Snapshot, bool)
	// Events returns the channel Opened/Closed events are delivered on
	Events() <-chan domain.PortEvent
}
