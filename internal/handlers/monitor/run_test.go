package monitor

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kondukto-io/portguard/internal/config"
	"github.com/kondukto-io/portguard/internal/core/domain"
	"github.com/kondukto-io/portguard/internal/repository/firewall"
	"github.com/kondukto-io/portguard/internal/repository/store"
)

// scriptedEnumerator reports nothing on the first cycle and nginx on port 80 afterwards
type scriptedEnumerator struct {
	mu    sync.Mutex
	calls int
}

func (s *scriptedEnumerator) Enumerate(_ context.Context, proto domain.Protocol) ([]domain.PortEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.calls == 1 || proto != domain.ProtocolTCP {
		return nil, nil
	}

	return []domain.PortEvent{{
		ProcessID:      100,
		ProcessName:    "nginx",
		ExecutablePath: "/usr/sbin/nginx",
		UserName:       "www-data",
		LocalAddress:   "0.0.0.0",
		LocalPort:      80,
		Protocol:       domain.ProtocolTCP,
		Status:         domain.PortStatusListening,
	}}, nil
}

func testConfig(t *testing.T) config.Config {
	dir := t.TempDir()

	cfg := config.Default()
	cfg.App.MonitoringIntervalMs = domain.MinMonitoringIntervalMs
	cfg.App.MonitorUDPPorts = false
	cfg.Daemon.DatabasePath = filepath.Join(dir, "portguard.db")
	cfg.Daemon.BackupDir = filepath.Join(dir, "backups")
	cfg.Daemon.ReportFile = filepath.Join(dir, "portguard.out")
	cfg.Daemon.FirewallBackend = firewall.BackendMemory
	cfg.Daemon.ListenAddress = ""

	return cfg
}

func TestRun_AutoAllowsWellKnownPort(t *testing.T) {
	cfg := testConfig(t)

	reader, err := store.NewSQLiteAdapter(cfg.Daemon.DatabasePath)
	require.NoError(t, err)
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	defer cancel()
	go func() { done <- run(ctx, cfg, &scriptedEnumerator{}) }()

	require.Eventually(t, func() bool {
		rules, err := reader.ListFirewallRules(context.Background())
		return err == nil && len(rules) == 1
	}, 5*time.Second, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		events, err := reader.ListPortEvents(context.Background(), 0, 0)
		return err == nil && len(events) == 1 && events[0].Allowed != nil
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}

	rules, err := reader.ListFirewallRules(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.ActionAllow, rules[0].Action)
	assert.Equal(t, "/usr/sbin/nginx", rules[0].ProcessPath)

	events, err := reader.ListPortEvents(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, *events[0].Allowed)
	assert.Equal(t, domain.RiskLow, events[0].RiskLevel)

	stored, err := reader.GetConfiguration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cfg.App, stored)
}

func TestRun_InvalidBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Daemon.FirewallBackend = "pf"

	err := run(context.Background(), cfg, &scriptedEnumerator{})
	assert.Error(t, err)
}
