package notifier

import (
	"context"

	"go.uber.org/multierr"

	"github.com/kondukto-io/portguard/internal/core/domain"
	"github.com/kondukto-io/portguard/internal/core/port/notifier"
)

// Fanout delivers every notification to all of its surfaces and merges
// their operator actions into one channel
type Fanout struct {
	surfaces []notifier.Surface
	actions  chan domain.OperatorAction
}

var _ notifier.Surface = (*Fanout)(nil)

// NewFanout starts forwarding the actions of every surface until ctx is done
func NewFanout(ctx context.Context, surfaces ...notifier.Surface) *Fanout {
	f := &Fanout{
		surfaces: surfaces,
		actions:  make(chan domain.OperatorAction),
	}

	for _, s := range surfaces {
		go f.forward(ctx, s.Actions())
	}

	return f
}

func (f *Fanout) forward(ctx context.Context, in <-chan domain.OperatorAction) {
	for {
		select {
		case <-ctx.Done():
			return
		case a, ok := <-in:
			if !ok {
				return
			}

			select {
			case f.actions <- a:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (f *Fanout) NotifyEvent(ctx context.Context, e domain.PortEvent, info *domain.PortInfo) error {
	var errs error
	for _, s := range f.surfaces {
		errs = multierr.Append(errs, s.NotifyEvent(ctx, e, info))
	}

	return errs
}

func (f *Fanout) Info(ctx context.Context, title, message string) error {
	return f.each(func(s notifier.Surface) error { return s.Info(ctx, title, message) })
}

func (f *Fanout) Warning(ctx context.Context, title, message string) error {
	return f.each(func(s notifier.Surface) error { return s.Warning(ctx, title, message) })
}

func (f *Fanout) Error(ctx context.Context, title, message string) error {
	return f.each(func(s notifier.Surface) error { return s.Error(ctx, title, message) })
}

// Enabled reports whether any surface is enabled
func (f *Fanout) Enabled(ctx context.Context) bool {
	for _, s := range f.surfaces {
		if s.Enabled(ctx) {
			return true
		}
	}

	return false
}

func (f *Fanout) Actions() <-chan domain.OperatorAction {
	return f.actions
}

func (f *Fanout) each(fn func(notifier.Surface) error) error {
	var errs error
	for _, s := range f.surfaces {
		errs = multierr.Append(errs, fn(s))
	}

	return errs
}
