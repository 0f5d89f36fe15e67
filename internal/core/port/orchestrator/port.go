package orchestrator

import (
	"context"

	"github.com/kondukto-io/portguard/internal/core/domain"
)

// Decider chooses the automatic action for an opened port
type Decider interface {
	Decide(ctx context.Context, event domain.PortEvent, info domain.PortInfo) (domain.PolicyDecision, error)
}

// UseCase turns port events and operator actions into persistence,
// notifications and firewall rules
type UseCase interface {
	// Prepare initializes the store and reports startup health
	Prepare(ctx context.Context) error
	// Run consumes events and actions until both channels close or ctx is done
	Run(ctx context.Context, events <-chan domain.PortEvent, actions <-chan domain.OperatorAction) error
	// RunMaintenance runs retention and store optimization until ctx is done
	RunMaintenance(ctx context.Context) error

	HandleEvent(ctx context.Context, event domain.PortEvent)
	HandleAction(ctx context.Context, action domain.OperatorAction)
}
