package firewall

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kondukto-io/portguard/internal/core/domain"
)

type fakeSurface struct {
	mu        sync.Mutex
	rules     map[string]domain.FirewallRule
	applyErr  error
	removeErr map[string]error
	// rejects refuses rules with this action only
	rejects domain.RuleAction
	enabled bool
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{rules: make(map[string]domain.FirewallRule), removeErr: make(map[string]error), enabled: true}
}

func (f *fakeSurface) Apply(_ context.Context, r domain.FirewallRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.applyErr != nil {
		return f.applyErr
	}
	if f.rejects != "" && r.Action == f.rejects {
		return errors.New("rejected")
	}
	f.rules[r.Name] = r
	return nil
}

func (f *fakeSurface) Remove(_ context.Context, r domain.FirewallRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.removeErr[r.Name]; err != nil {
		return err
	}
	delete(f.rules, r.Name)
	return nil
}

func (f *fakeSurface) SetEnabled(ctx context.Context, r domain.FirewallRule, enabled bool) error {
	if enabled {
		return f.Apply(ctx, r)
	}
	return f.Remove(ctx, r)
}

func (f *fakeSurface) Enabled(context.Context) (bool, error) { return f.enabled, nil }

func (f *fakeSurface) has(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rules[name]
	return ok
}

func (f *fakeSurface) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rules)
}

type fakeRepo struct {
	mu      sync.Mutex
	rules   map[int64]domain.FirewallRule
	saveErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rules: make(map[int64]domain.FirewallRule)}
}

func (f *fakeRepo) SaveFirewallRule(_ context.Context, r domain.FirewallRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.saveErr != nil {
		return f.saveErr
	}
	f.rules[r.ID] = r
	return nil
}

func (f *fakeRepo) GetFirewallRule(_ context.Context, id int64) (domain.FirewallRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.rules[id]
	if !ok {
		return domain.FirewallRule{}, domain.ErrNotFound
	}
	return r, nil
}

func (f *fakeRepo) ListFirewallRules(context.Context) ([]domain.FirewallRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var list []domain.FirewallRule
	for _, r := range f.rules {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (f *fakeRepo) ListActiveFirewallRules(ctx context.Context) ([]domain.FirewallRule, error) {
	all, _ := f.ListFirewallRules(ctx)
	var list []domain.FirewallRule
	for _, r := range all {
		if r.Enabled {
			list = append(list, r)
		}
	}
	return list, nil
}

func (f *fakeRepo) DeleteFirewallRule(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.rules, id)
	return nil
}

func (f *fakeRepo) DeleteAllUserCreatedRules(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, r := range f.rules {
		if r.UserCreated {
			delete(f.rules, id)
		}
	}
	return nil
}

func (f *fakeRepo) NextRuleID(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var max int64
	for id := range f.rules {
		if id > max {
			max = id
		}
	}
	return max + 1, nil
}

type fakeBackuper struct{ paths []string }

func (f *fakeBackuper) Backup(_ context.Context, path string) error {
	f.paths = append(f.paths, path)
	return nil
}

func newManager(surface *fakeSurface, repo *fakeRepo) *useCase {
	uc := New(surface, repo, Options{}).(*useCase)
	uc.now = func() time.Time { return time.Date(2024, 5, 1, 10, 30, 0, 123000000, time.UTC) }
	return uc
}

func TestCreateDeleteRoundTrip(t *testing.T) {
	surface, repo := newFakeSurface(), newFakeRepo()
	uc := newManager(surface, repo)
	ctx := context.Background()

	r, err := uc.AllowProcessPort(ctx, "/usr/sbin/nginx", 80, domain.ProtocolTCP)
	require.NoError(t, err)

	assert.Equal(t, int64(1), r.ID)
	assert.Equal(t, "portguard_1_20240501103000.123", r.Name)
	assert.Equal(t, domain.ActionAllow, r.Action)
	assert.Equal(t, domain.DirectionBoth, r.Direction)
	assert.Equal(t, domain.ScopeProcessAndPort, r.Scope)
	assert.False(t, r.UserCreated)
	assert.Equal(t, "Allow nginx on TCP port 80", r.Description)
	assert.Equal(t, 1, surface.count())
	assert.Len(t, repo.rules, 1)

	require.NoError(t, uc.Delete(ctx, r.ID))
	assert.Equal(t, 0, surface.count())
	assert.Len(t, repo.rules, 0)
}

func TestCreate_ApplyFailureDoesNotPersist(t *testing.T) {
	surface, repo := newFakeSurface(), newFakeRepo()
	surface.applyErr = errors.New("access denied")
	uc := newManager(surface, repo)

	_, err := uc.BlockProcessPort(context.Background(), "/tmp/x", 4444, domain.ProtocolTCP)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFirewallApply)
	assert.Len(t, repo.rules, 0)
}

func TestCreate_SaveFailureRollsBack(t *testing.T) {
	surface, repo := newFakeSurface(), newFakeRepo()
	repo.saveErr = errors.New("database is locked")
	uc := newManager(surface, repo)

	_, err := uc.BlockProcessPort(context.Background(), "/tmp/x", 4444, domain.ProtocolTCP)
	require.Error(t, err)
	assert.Equal(t, 0, surface.count())
}

func TestCreate_UniqueNames(t *testing.T) {
	surface, repo := newFakeSurface(), newFakeRepo()
	uc := newManager(surface, repo)
	ctx := context.Background()

	a, err := uc.AllowProcessPort(ctx, "/usr/bin/a", 1000, domain.ProtocolTCP)
	require.NoError(t, err)
	require.NoError(t, uc.Delete(ctx, a.ID))

	b, err := uc.AllowProcessPort(ctx, "/usr/bin/b", 1001, domain.ProtocolTCP)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, a.Name, b.Name)
	assert.True(t, strings.HasPrefix(b.Name, domain.RuleNamePrefix))
}

func TestDelete_Missing(t *testing.T) {
	uc := newManager(newFakeSurface(), newFakeRepo())

	err := uc.Delete(context.Background(), 42)
	assert.True(t, IsNotFound(err))
}

func TestDelete_RemoveFailureKeepsRecord(t *testing.T) {
	surface, repo := newFakeSurface(), newFakeRepo()
	uc := newManager(surface, repo)
	ctx := context.Background()

	r, err := uc.AllowProcessPort(ctx, "/usr/sbin/nginx", 80, domain.ProtocolTCP)
	require.NoError(t, err)

	surface.removeErr[r.Name] = errors.New("busy")
	require.Error(t, uc.Delete(ctx, r.ID))
	assert.Len(t, repo.rules, 1)
}

func TestUpdate(t *testing.T) {
	surface, repo := newFakeSurface(), newFakeRepo()
	uc := newManager(surface, repo)
	ctx := context.Background()

	r, err := uc.AllowProcessPort(ctx, "/usr/sbin/nginx", 80, domain.ProtocolTCP)
	require.NoError(t, err)

	updated := *r
	updated.Action = domain.ActionBlock
	require.NoError(t, uc.Update(ctx, &updated))

	stored := repo.rules[r.ID]
	assert.Equal(t, domain.ActionBlock, stored.Action)
	assert.NotNil(t, stored.ModifiedAt)
	assert.Equal(t, 1, surface.count())

	surface.removeErr[updated.Name] = errors.New("busy")
	again := updated
	again.Action = domain.ActionAllow
	require.Error(t, uc.Update(ctx, &again))
	assert.Equal(t, domain.ActionBlock, repo.rules[r.ID].Action)
}

func TestUpdate_ApplyFailureReinstatesPreviousRule(t *testing.T) {
	surface, repo := newFakeSurface(), newFakeRepo()
	uc := newManager(surface, repo)
	ctx := context.Background()

	r, err := uc.AllowProcessPort(ctx, "/usr/sbin/nginx", 80, domain.ProtocolTCP)
	require.NoError(t, err)

	surface.rejects = domain.ActionBlock
	updated := *r
	updated.Action = domain.ActionBlock
	err = uc.Update(ctx, &updated)
	require.ErrorIs(t, err, domain.ErrFirewallApply)

	stored := repo.rules[r.ID]
	assert.Equal(t, domain.ActionAllow, stored.Action)
	assert.True(t, stored.Enabled)
	require.True(t, surface.has(r.Name))
	assert.Equal(t, domain.ActionAllow, surface.rules[r.Name].Action)
}

func TestUpdate_StoreMatchesSurfaceWhenReinstateFails(t *testing.T) {
	surface, repo := newFakeSurface(), newFakeRepo()
	uc := newManager(surface, repo)
	ctx := context.Background()

	r, err := uc.AllowProcessPort(ctx, "/usr/sbin/nginx", 80, domain.ProtocolTCP)
	require.NoError(t, err)

	surface.applyErr = errors.New("rejected")
	updated := *r
	updated.Action = domain.ActionBlock
	require.Error(t, uc.Update(ctx, &updated))

	stored := repo.rules[r.ID]
	assert.Equal(t, stored.Enabled, surface.has(stored.Name))
	assert.False(t, stored.Enabled)
	assert.Equal(t, 0, surface.count())
}

func TestUpdate_SaveFailureReinstatesPreviousRule(t *testing.T) {
	surface, repo := newFakeSurface(), newFakeRepo()
	uc := newManager(surface, repo)
	ctx := context.Background()

	r, err := uc.AllowProcessPort(ctx, "/usr/sbin/nginx", 80, domain.ProtocolTCP)
	require.NoError(t, err)

	repo.saveErr = errors.New("database is locked")
	updated := *r
	updated.Action = domain.ActionBlock
	require.Error(t, uc.Update(ctx, &updated))

	assert.Equal(t, domain.ActionAllow, repo.rules[r.ID].Action)
	require.True(t, surface.has(r.Name))
	assert.Equal(t, domain.ActionAllow, surface.rules[r.Name].Action)
}

func TestSetEnabled(t *testing.T) {
	surface, repo := newFakeSurface(), newFakeRepo()
	uc := newManager(surface, repo)
	ctx := context.Background()

	r, err := uc.AllowProcessPort(ctx, "/usr/sbin/nginx", 80, domain.ProtocolTCP)
	require.NoError(t, err)

	require.NoError(t, uc.SetEnabled(ctx, r.ID, false))
	assert.Equal(t, 0, surface.count())
	assert.False(t, repo.rules[r.ID].Enabled)

	active, err := uc.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, uc.SetEnabled(ctx, r.ID, true))
	assert.Equal(t, 1, surface.count())
}

func TestRestoreDefaultRules(t *testing.T) {
	surface, repo := newFakeSurface(), newFakeRepo()
	backups := &fakeBackuper{}
	uc := newManager(surface, repo)
	uc.opts = Options{BackupDir: "/var/backups/portguard", Backuper: backups}
	ctx := context.Background()

	for _, port := range []uint32{80, 443, 8080} {
		_, err := uc.AllowProcessPort(ctx, "/usr/sbin/nginx", port, domain.ProtocolTCP)
		require.NoError(t, err)
	}

	require.NoError(t, uc.RestoreDefaultRules(ctx))
	assert.Equal(t, 0, surface.count())
	assert.Len(t, repo.rules, 0)
	assert.Len(t, backups.paths, 4)
}

func TestRestoreDefaultRules_PartialFailure(t *testing.T) {
	surface, repo := newFakeSurface(), newFakeRepo()
	uc := newManager(surface, repo)
	ctx := context.Background()

	a, err := uc.AllowProcessPort(ctx, "/usr/sbin/nginx", 80, domain.ProtocolTCP)
	require.NoError(t, err)
	_, err = uc.AllowProcessPort(ctx, "/usr/sbin/nginx", 443, domain.ProtocolTCP)
	require.NoError(t, err)

	surface.removeErr[a.Name] = errors.New("busy")

	err = uc.RestoreDefaultRules(ctx)
	require.Error(t, err)
	assert.Len(t, repo.rules, 1)
	assert.Equal(t, 1, surface.count())
}

func TestIsFirewallEnabled(t *testing.T) {
	surface := newFakeSurface()
	surface.enabled = false
	uc := newManager(surface, newFakeRepo())

	enabled, err := uc.IsFirewallEnabled(context.Background())
	require.NoError(t, err)
	assert.False(t, enabled)
}
