package notifier

import (
	"context"

	"github.com/kondukto-io/portguard/internal/core/domain"
)

// Surface presents events and messages to the operator and relays their responses
type Surface interface {
	NotifyEvent(ctx context.Context, event domain.PortEvent, info *domain.PortInfo) error
	Info(ctx context.Context, title, message string) error
	Warning(ctx context.Context, title, message string) error
	Error(ctx context.Context, title, message string) error
	Enabled(ctx context.Context) bool
	Actions() <-chan domain.OperatorAction
}
