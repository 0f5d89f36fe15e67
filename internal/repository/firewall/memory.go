package firewall

import (
	"context"
	"sort"
	"sync"

	"github.com/kondukto-io/portguard/internal/core/domain"
)

// Memory is an in-process firewall surface
type Memory struct {
	mu       sync.RWMutex
	rules    map[string]domain.FirewallRule
	disabled bool
}

// NewMemory returns an empty, enabled in-process firewall
func NewMemory() *Memory {
	return &Memory{rules: make(map[string]domain.FirewallRule)}
}

func (m *Memory) Apply(_ context.Context, r domain.FirewallRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rules[r.Name] = r
	return nil
}

func (m *Memory) Remove(_ context.Context, r domain.FirewallRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.rules, r.Name)
	return nil
}

func (m *Memory) SetEnabled(ctx context.Context, r domain.FirewallRule, enabled bool) error {
	if !enabled {
		return m.Remove(ctx, r)
	}

	r.Enabled = true
	return m.Apply(ctx, r)
}

func (m *Memory) Enabled(context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return !m.disabled, nil
}

// SetFirewallEnabled switches the reported host firewall state
func (m *Memory) SetFirewallEnabled(enabled bool) {
	m.mu.Lock()
	m.disabled = !enabled
	m.mu.Unlock()
}

// Rules returns the applied rules sorted by name
func (m *Memory) Rules() []domain.FirewallRule {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rules := make([]domain.FirewallRule, 0, len(m.rules))
	for _, r := range m.rules {
		rules = append(rules, r)
	}

	sort.Slice(rules, func(i, j int) bool { return rules[i].Name < rules[j].Name })
	return rules
}
