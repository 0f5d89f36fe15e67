package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kondukto-io/portguard/internal/core/domain"
	"github.com/kondukto-io/portguard/internal/core/port/catalog"
	"github.com/kondukto-io/portguard/internal/core/port/event"
	"github.com/kondukto-io/portguard/internal/core/port/notifier"
	"github.com/kondukto-io/portguard/internal/core/port/orchestrator"
	"github.com/kondukto-io/portguard/internal/core/port/risk"
	"github.com/kondukto-io/portguard/internal/core/port/rule"
	"github.com/kondukto-io/portguard/internal/telemetry"
	"github.com/kondukto-io/portguard/pkg/logger"
)

const (
	defaultLanes               = 8
	defaultLaneBuffer          = 64
	defaultMaintenanceInterval = time.Hour
	defaultOptimizeHour        = 2
)

// Store is the part of the persisted store the orchestrator uses
type Store interface {
	event.Repository
	Initialize(ctx context.Context) error
	Optimize(ctx context.Context) error
	SaveConfiguration(ctx context.Context, cfg domain.AppConfiguration) error
}

// Recorder receives a line for every handled event
type Recorder interface {
	WriteEvent(event domain.ReportEvent)
}

// Dependencies are the collaborators of the orchestrator
type Dependencies struct {
	Classifier risk.Classifier
	Catalog    catalog.UseCase
	Store      Store
	Notifier   notifier.Surface
	Rules      rule.UseCase
	Decider    orchestrator.Decider
	// Recorder is optional
	Recorder Recorder
}

// Options tunes the orchestrator
type Options struct {
	Lanes               int
	LaneBuffer          int
	MaintenanceInterval time.Duration
	// OptimizeHour is the local hour the store is optimized at, 2 when nil
	OptimizeHour *int
}

type useCase struct {
	deps Dependencies
	cfg  domain.AppConfiguration
	opts Options
	now  func() time.Time

	optimizeHour int
}

// New returns the policy orchestrator
func New(deps Dependencies, cfg domain.AppConfiguration, opts Options) orchestrator.UseCase {
	return newUseCase(deps, cfg, opts)
}

func newUseCase(deps Dependencies, cfg domain.AppConfiguration, opts Options) *useCase {
	if opts.Lanes <= 0 {
		opts.Lanes = defaultLanes
	}

	if opts.LaneBuffer <= 0 {
		opts.LaneBuffer = defaultLaneBuffer
	}

	if opts.MaintenanceInterval <= 0 {
		opts.MaintenanceInterval = defaultMaintenanceInterval
	}

	var optimizeHour = defaultOptimizeHour
	if h := opts.OptimizeHour; h != nil && *h >= 0 && *h <= 23 {
		optimizeHour = *h
	}

	return &useCase{
		deps:         deps,
		cfg:          cfg,
		opts:         opts,
		now:          time.Now,
		optimizeHour: optimizeHour,
	}
}

// Prepare initializes the store and warns about a disabled firewall or disabled notifications
func (u *useCase) Prepare(ctx context.Context) error {
	if err := u.deps.Store.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	if err := u.deps.Store.SaveConfiguration(ctx, u.cfg); err != nil {
		logger.Log.Warnf("failed to save configuration: %v", err)
	}

	enabled, err := u.deps.Rules.IsFirewallEnabled(ctx)
	switch {
	case err != nil:
		logger.Log.Warnf("failed to query firewall state: %v", err)
		u.warn(ctx, "Firewall state unknown", fmt.Sprintf("could not query the firewall: %v", err))
	case !enabled:
		logger.Log.Warn("firewall is disabled, rules will not be enforced")
		u.warn(ctx, "Firewall disabled", "the host firewall is disabled, rules will not be enforced")
	}

	if !u.cfg.EnableNotifications || !u.deps.Notifier.Enabled(ctx) {
		logger.Log.Warn("notifications are disabled")
	}

	return nil
}

// Run dispatches events and operator actions onto per-identity lanes until
// both channels are closed or ctx is done. Queued work is finished before returning.
func (u *useCase) Run(ctx context.Context, events <-chan domain.PortEvent, actions <-chan domain.OperatorAction) error {
	d := newDispatcher(u.opts.Lanes, u.opts.LaneBuffer)
	d.start()
	defer d.stop()

	var jobCtx = context.WithoutCancel(ctx)

	for events != nil || actions != nil {
		select {
		case <-ctx.Done():
			return nil

		case e, ok := <-events:
			if !ok {
				events = nil
				continue
			}

			if err := d.submit(ctx, e.Identity().Key(), func() { u.HandleEvent(jobCtx, e) }); err != nil {
				return nil
			}

		case a, ok := <-actions:
			if !ok {
				actions = nil
				continue
			}

			// the event lookup happens in the lane, actions on one event stay ordered
			if err := d.submit(ctx, actionKey(a), func() { u.HandleAction(jobCtx, a) }); err != nil {
				return nil
			}
		}
	}

	return nil
}

func actionKey(a domain.OperatorAction) string {
	return "event/" + strconv.FormatInt(a.EventID, 10)
}

// HandleEvent processes a single port event
func (u *useCase) HandleEvent(ctx context.Context, e domain.PortEvent) {
	switch e.EventType {
	case domain.PortEventOpened:
		u.handleOpened(ctx, e)
	case domain.PortEventClosed:
		u.handleClosed(ctx, e)
	default:
		logger.Log.Debugf("ignoring %s event for port %d", e.EventType, e.LocalPort)
	}
}

func (u *useCase) handleOpened(ctx context.Context, e domain.PortEvent) {
	e.RiskLevel = u.deps.Classifier.AnalyzeRisk(ctx, e)

	info, err := u.deps.Catalog.GetPortInfo(ctx, e.LocalPort, e.Protocol)
	if err != nil {
		logger.Log.Warnf("failed to get port info for %d/%s: %v", e.LocalPort, e.Protocol, err)
		info = domain.PortInfo{
			Port:        e.LocalPort,
			Protocol:    e.Protocol,
			ServiceName: domain.UnknownService,
			RiskLevel:   e.RiskLevel,
			Category:    domain.CategoryUnknown,
		}
	}

	e.Description = fmt.Sprintf("%s opened %s port %d (%s)", e.ProcessName, e.Protocol, e.LocalPort, info.ServiceName)
	u.persist(ctx, &e)

	telemetry.PortEvents.WithLabelValues(string(e.EventType), e.RiskLevel.String()).Inc()
	u.log(e).Info("port opened")

	if u.cfg.ShouldNotify(e.RiskLevel) && u.deps.Notifier.Enabled(ctx) {
		if err := u.deps.Notifier.NotifyEvent(ctx, e, &info); err != nil {
			logger.Log.Warnf("failed to notify event [%d]: %v", e.ID, err)
		}
	}

	var decision = domain.DecisionNone
	if u.cfg.AutoCreateRulesFromNotifications {
		decision = u.applyPolicy(ctx, &e, info)
	}

	u.record(e, decision)
}

func (u *useCase) applyPolicy(ctx context.Context, e *domain.PortEvent, info domain.PortInfo) domain.PolicyDecision {
	decision, err := u.deps.Decider.Decide(ctx, *e, info)
	if err != nil {
		logger.Log.Errorf("failed to evaluate auto rule policy for event [%d]: %v", e.ID, err)
		return domain.DecisionNone
	}

	telemetry.PolicyDecisions.WithLabelValues(string(decision)).Inc()

	switch decision {
	case domain.DecisionWarn:
		u.log(*e).Warn("port requires review")
		u.warn(ctx, fmt.Sprintf("%s risk port opened", e.RiskLevel),
			fmt.Sprintf("%s (pid %d) opened %s port %d, review required", e.ProcessName, e.ProcessID, e.Protocol, e.LocalPort))

	case domain.DecisionBlock:
		if _, err := u.deps.Rules.BlockProcessPort(ctx, e.ExecutablePath, e.LocalPort, e.Protocol); err != nil {
			logger.Log.Errorf("failed to block port %d for %s: %v", e.LocalPort, e.ExecutablePath, err)
			u.notifyError(ctx, "Automatic block failed", err)
			return decision
		}

		e.SetAllowed(false)
		u.persist(ctx, e)
		u.log(*e).Warn("port blocked automatically")

	case domain.DecisionAllow:
		if _, err := u.deps.Rules.AllowProcessPort(ctx, e.ExecutablePath, e.LocalPort, e.Protocol); err != nil {
			logger.Log.Errorf("failed to allow port %d for %s: %v", e.LocalPort, e.ExecutablePath, err)
			return decision
		}

		e.SetAllowed(true)
		u.persist(ctx, e)
		u.log(*e).Info("port allowed automatically")
	}

	return decision
}

func (u *useCase) handleClosed(ctx context.Context, e domain.PortEvent) {
	telemetry.PortEvents.WithLabelValues(string(e.EventType), e.RiskLevel.String()).Inc()
	u.log(e).Debug("port closed")

	if u.cfg.LogAllEvents {
		e.Description = fmt.Sprintf("%s closed %s port %d", e.ProcessName, e.Protocol, e.LocalPort)
		u.persist(ctx, &e)
	}

	u.record(e, domain.DecisionNone)
}

// HandleAction applies an operator response to a stored event
func (u *useCase) HandleAction(ctx context.Context, a domain.OperatorAction) {
	e, err := u.deps.Store.GetPortEvent(ctx, a.EventID)
	if err != nil {
		telemetry.OperatorActions.WithLabelValues(string(a.Type), "unknown_event").Inc()
		logger.Log.Warnf("dropping %s action for event [%d]: %v", a.Type, a.EventID, err)
		return
	}

	switch a.Type {
	case domain.OperatorAllow, domain.OperatorBlock:
		var (
			allow = a.Type == domain.OperatorAllow
			r     *domain.FirewallRule
		)

		if allow {
			r, err = u.deps.Rules.AllowProcessPort(ctx, e.ExecutablePath, e.LocalPort, e.Protocol)
		} else {
			r, err = u.deps.Rules.BlockProcessPort(ctx, e.ExecutablePath, e.LocalPort, e.Protocol)
		}

		telemetry.OperatorActions.WithLabelValues(string(a.Type), telemetry.Result(err)).Inc()
		if err != nil {
			logger.Log.Errorf("failed to %s port %d for event [%d]: %v", a.Type, e.LocalPort, e.ID, err)
			u.notifyError(ctx, "Firewall rule failed", err)
			return
		}

		e.SetAllowed(allow)
		u.persist(ctx, &e)

		if u.deps.Notifier.Enabled(ctx) {
			if err := u.deps.Notifier.Info(ctx, "Firewall rule created", r.Description); err != nil {
				logger.Log.Warnf("failed to send notification: %v", err)
			}
		}

		u.log(e).Infof("operator %s applied with rule [%s]", a.Type, r.Name)

	case domain.OperatorShowDetails:
		telemetry.OperatorActions.WithLabelValues(string(a.Type), "ok").Inc()
		u.log(e).Info("operator requested details")

	case domain.OperatorDismiss:
		telemetry.OperatorActions.WithLabelValues(string(a.Type), "ok").Inc()
		u.log(e).Debug("notification dismissed")

	default:
		logger.Log.Warnf("unknown operator action %q for event [%d]", a.Type, a.EventID)
	}
}

// RunMaintenance purges expired events and optimizes the store once a day.
// Cancellation is checked before and after every wait.
func (u *useCase) RunMaintenance(ctx context.Context) error {
	timer := time.NewTimer(u.opts.MaintenanceInterval)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		if ctx.Err() != nil {
			return nil
		}

		u.maintain(ctx)
		timer.Reset(u.opts.MaintenanceInterval)
	}
}

func (u *useCase) maintain(ctx context.Context) {
	var now = u.now()

	if u.cfg.MaxLogRetentionDays > 0 {
		cutoff := now.AddDate(0, 0, -u.cfg.MaxLogRetentionDays)

		n, err := u.deps.Store.DeletePortEventsBefore(ctx, cutoff)
		if err != nil {
			logger.Log.Errorf("failed to purge events older than %s: %v", cutoff.Format(time.RFC3339), err)
		} else if n > 0 {
			telemetry.EventsPurged.Add(float64(n))
			logger.Log.Infof("%d event(s) older than %d day(s) purged", n, u.cfg.MaxLogRetentionDays)
		}
	}

	if now.Hour() == u.optimizeHour {
		if err := u.deps.Store.Optimize(ctx); err != nil {
			logger.Log.Errorf("failed to optimize store: %v", err)
		} else {
			logger.Log.Info("store optimized")
		}
	}
}

func (u *useCase) persist(ctx context.Context, e *domain.PortEvent) {
	id, err := u.deps.Store.SavePortEvent(ctx, *e)
	if err != nil {
		logger.Log.Errorf("failed to save event for port %d: %v", e.LocalPort, err)
		return
	}

	e.ID = id
}

// warn is sent regardless of EnableNotifications, which only gates event notifications
func (u *useCase) warn(ctx context.Context, title, message string) {
	if !u.deps.Notifier.Enabled(ctx) {
		return
	}

	if err := u.deps.Notifier.Warning(ctx, title, message); err != nil {
		logger.Log.Warnf("failed to send warning: %v", err)
	}
}

func (u *useCase) notifyError(ctx context.Context, title string, cause error) {
	if !u.deps.Notifier.Enabled(ctx) {
		return
	}

	if err := u.deps.Notifier.Error(ctx, title, cause.Error()); err != nil {
		logger.Log.Warnf("failed to send error notification: %v", err)
	}
}

func (u *useCase) record(e domain.PortEvent, decision domain.PolicyDecision) {
	if u.deps.Recorder == nil {
		return
	}

	u.deps.Recorder.WriteEvent(domain.ReportEvent{
		Timestamp:   e.Timestamp,
		ProcessID:   e.ProcessID,
		ProcessName: e.ProcessName,
		Protocol:    e.Protocol,
		Address:     e.LocalAddress,
		Port:        e.LocalPort,
		EventType:   string(e.EventType),
		Risk:        e.RiskLevel.String(),
		Policy:      string(decision),
	})
}

func (u *useCase) log(e domain.PortEvent) *logrus.Entry {
	return logger.Log.WithFields(logrus.Fields{
		"id":    e.ID,
		"pid":   e.ProcessID,
		"comm":  e.ProcessName,
		"proto": e.Protocol,
		"port":  e.LocalPort,
		"risk":  e.RiskLevel,
	})
}
