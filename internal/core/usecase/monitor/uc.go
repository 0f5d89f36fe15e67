package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kondukto-io/portguard/internal/core/domain"
	"github.com/kondukto-io/portguard/internal/core/port/endpoint"
	"github.com/kondukto-io/portguard/internal/core/port/worker"
	"github.com/kondukto-io/portguard/internal/telemetry"
	"github.com/kondukto-io/portguard/pkg/logger"
)

const defaultEventBuffer = 256

// Options configures the sampler
type Options struct {
	Interval    time.Duration
	TCP         bool
	UDP         bool
	EventBuffer int
}

// OptionsFromConfig derives sampler options from the application configuration
func OptionsFromConfig(cfg domain.AppConfiguration) Options {
	return Options{
		Interval: time.Duration(cfg.MonitoringIntervalMs) * time.Millisecond,
		TCP:      cfg.MonitorTCPPorts,
		UDP:      cfg.MonitorUDPPorts,
	}
}

type useCase struct {
	enumerator endpoint.Enumerator
	opts       Options
	now        func() time.Time

	current atomic.Pointer[domain.Snapshot]
	events  chan domain.PortEvent

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New returns the port sampler
func New(enumerator endpoint.Enumerator, opts Options) worker.UseCase {
	return newUseCase(enumerator, opts)
}

func newUseCase(enumerator endpoint.Enumerator, opts Options) *useCase {
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}

	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}

	return &useCase{
		enumerator: enumerator,
		opts:       opts,
		now:        time.Now,
		events:     make(chan domain.PortEvent, opts.EventBuffer),
	}
}

func (u *useCase) Events() <-chan domain.PortEvent {
	return u.events
}

func (u *useCase) Current() (domain.Snapshot, bool) {
	s := u.current.Load()
	if s == nil {
		return domain.Snapshot{}, false
	}

	return *s, true
}

func (u *useCase) IsMonitoring() bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.running
}

// Start takes the baseline snapshot and starts the sampling loop. Endpoints
// present at start are not reported.
func (u *useCase) Start(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.running {
		return nil
	}

	if !u.opts.TCP && !u.opts.UDP {
		return errors.New("no protocol enabled for monitoring")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	u.cancel = cancel
	u.done = make(chan struct{})
	u.running = true

	u.cycle(loopCtx)

	go u.loop(loopCtx, u.done)

	logger.Log.WithFields(logrus.Fields{
		"interval": u.opts.Interval,
		"tcp":      u.opts.TCP,
		"udp":      u.opts.UDP,
	}).Info("port monitoring started")

	return nil
}

// Stop cancels the loop and waits for the in-flight cycle
func (u *useCase) Stop() {
	u.mu.Lock()
	if !u.running {
		u.mu.Unlock()
		return
	}

	u.cancel()
	done := u.done
	u.running = false
	u.mu.Unlock()

	<-done
	logger.Log.Info("port monitoring stopped")
}

func (u *useCase) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(u.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.cycle(ctx)
		}
	}
}

// cycle samples, diffs against the previous snapshot and publishes the events.
// A failed sample keeps the previous snapshot and publishes nothing.
func (u *useCase) cycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.SamplingCycles.WithLabelValues("failed").Inc()
			logger.Log.Errorf("sampling cycle panicked: %v", r)
		}
	}()

	previous := u.current.Load()

	var version uint64 = 1
	if previous != nil {
		version = previous.Version + 1
	}

	next, err := u.sample(ctx, version)
	if err != nil {
		telemetry.SamplingCycles.WithLabelValues("failed").Inc()
		logger.Log.Warnf("sampling failed, keeping previous snapshot: %v", err)
		return
	}

	u.current.Store(&next)
	telemetry.ObservedEndpoints.Set(float64(next.Len()))

	if previous == nil {
		telemetry.SamplingCycles.WithLabelValues("baseline").Inc()
		logger.Log.Debugf("baseline snapshot taken with %d endpoint(s)", next.Len())
		return
	}

	telemetry.SamplingCycles.WithLabelValues("ok").Inc()

	for _, e := range Diff(*previous, next, u.now()) {
		select {
		case u.events <- e:
		case <-ctx.Done():
			return
		}
	}
}

func (u *useCase) sample(ctx context.Context, version uint64) (domain.Snapshot, error) {
	var protocols []domain.Protocol
	if u.opts.TCP {
		protocols = append(protocols, domain.ProtocolTCP)
	}
	if u.opts.UDP {
		protocols = append(protocols, domain.ProtocolUDP)
	}

	var snapshot = domain.Snapshot{
		Version: version,
		TakenAt: u.now(),
		Entries: make(map[string]domain.PortEvent),
	}

	for _, proto := range protocols {
		entries, err := u.enumerator.Enumerate(ctx, proto)
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("failed to enumerate %s endpoints: %w", proto, err)
		}

		for _, e := range entries {
			e.Protocol = proto
			snapshot.Entries[e.Identity().Key()] = e
		}
	}

	return snapshot, nil
}
