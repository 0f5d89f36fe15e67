package firewall

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kondukto-io/portguard/internal/core/domain"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	a := domain.FirewallRule{Name: "portguard_2_x", Action: domain.ActionBlock}
	b := domain.FirewallRule{Name: "portguard_1_x", Action: domain.ActionAllow}

	require.NoError(t, m.Apply(ctx, a))
	require.NoError(t, m.Apply(ctx, b))
	require.NoError(t, m.Apply(ctx, b))

	rules := m.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, "portguard_1_x", rules[0].Name)

	require.NoError(t, m.SetEnabled(ctx, a, false))
	assert.Len(t, m.Rules(), 1)

	require.NoError(t, m.SetEnabled(ctx, a, true))
	assert.Len(t, m.Rules(), 2)

	require.NoError(t, m.Remove(ctx, a))
	require.NoError(t, m.Remove(ctx, a))
	assert.Len(t, m.Rules(), 1)

	enabled, err := m.Enabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)

	m.SetFirewallEnabled(false)
	enabled, _ = m.Enabled(ctx)
	assert.False(t, enabled)
}

func TestNew(t *testing.T) {
	s, err := New(BackendMemory)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = New("NETSH")
	require.NoError(t, err)
	assert.IsType(t, &Netsh{}, s)

	_, err = New("pf")
	assert.Error(t, err)
}
