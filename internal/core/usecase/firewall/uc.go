package firewall

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/kondukto-io/portguard/internal/core/domain"
	"github.com/kondukto-io/portguard/internal/core/port/rule"
	"github.com/kondukto-io/portguard/internal/telemetry"
	"github.com/kondukto-io/portguard/pkg/logger"
	"github.com/kondukto-io/portguard/pkg/utils"
)

// Backuper writes a copy of the store to the given path
type Backuper interface {
	Backup(ctx context.Context, path string) error
}

// Options configures the rule manager
type Options struct {
	// BackupDir enables a store backup after every successful mutation when set
	BackupDir string
	Backuper  Backuper
}

type useCase struct {
	surface rule.Surface
	repo    rule.Repository
	opts    Options
	now     func() time.Time

	// mu serializes every mutation of the external firewall and the rule store
	mu     sync.Mutex
	lastID int64
}

// New returns the firewall rule manager
func New(surface rule.Surface, repo rule.Repository, opts Options) rule.UseCase {
	return &useCase{
		surface: surface,
		repo:    repo,
		opts:    opts,
		now:     time.Now,
	}
}

// Create allocates an id, applies the rule externally and then persists it.
// Nothing is persisted when the firewall rejects the rule.
func (u *useCase) Create(ctx context.Context, r *domain.FirewallRule) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	err := u.create(ctx, r)
	telemetry.FirewallOperations.WithLabelValues("create", telemetry.Result(err)).Inc()
	if err != nil {
		return err
	}

	u.backup(ctx)
	return nil
}

func (u *useCase) create(ctx context.Context, r *domain.FirewallRule) error {
	id, err := u.allocateID(ctx)
	if err != nil {
		return err
	}

	r.ID = id
	r.CreatedAt = u.now()
	r.Name = domain.RuleName(r.ID, r.CreatedAt)

	if err := u.apply(ctx, *r); err != nil {
		return err
	}

	if err := u.repo.SaveFirewallRule(ctx, *r); err != nil {
		if rmErr := u.surface.Remove(ctx, *r); rmErr != nil {
			logger.Log.Errorf("failed to roll back firewall rule [%s]: %v", r.Name, rmErr)
		}
		return fmt.Errorf("failed to save firewall rule: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"rule":   r.Name,
		"action": r.Action,
		"port":   portField(r.LocalPort),
		"path":   r.ProcessPath,
	}).Info("firewall rule created")

	return nil
}

func (u *useCase) apply(ctx context.Context, r domain.FirewallRule) error {
	if !r.Enabled {
		return nil
	}

	if err := u.surface.Apply(ctx, r); err != nil {
		return fmt.Errorf("%w [%s]: %v", domain.ErrFirewallApply, r.Name, err)
	}

	return nil
}

// allocateID returns an id above every stored id and every id this manager handed out
func (u *useCase) allocateID(ctx context.Context) (int64, error) {
	next, err := u.repo.NextRuleID(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate rule id: %w", err)
	}

	if next <= u.lastID {
		next = u.lastID + 1
	}
	u.lastID = next

	return next, nil
}

// Delete removes the rule externally and then from the store
func (u *useCase) Delete(ctx context.Context, id int64) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	err := u.delete(ctx, id)
	telemetry.FirewallOperations.WithLabelValues("delete", telemetry.Result(err)).Inc()
	if err != nil {
		return err
	}

	u.backup(ctx)
	return nil
}

func (u *useCase) delete(ctx context.Context, id int64) error {
	r, err := u.repo.GetFirewallRule(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get firewall rule [%d]: %w", id, err)
	}

	if r.Enabled {
		if err := u.surface.Remove(ctx, r); err != nil {
			return fmt.Errorf("failed to remove firewall rule [%s]: %w", r.Name, err)
		}
	}

	if err := u.repo.DeleteFirewallRule(ctx, id); err != nil {
		return fmt.Errorf("failed to delete firewall rule [%d]: %w", id, err)
	}

	logger.Log.Infof("firewall rule [%s] deleted", r.Name)
	return nil
}

// Update replaces the rule by deleting and recreating it under the same id
func (u *useCase) Update(ctx context.Context, r *domain.FirewallRule) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	err := u.update(ctx, r)
	telemetry.FirewallOperations.WithLabelValues("update", telemetry.Result(err)).Inc()
	if err != nil {
		return err
	}

	u.backup(ctx)
	return nil
}

func (u *useCase) update(ctx context.Context, r *domain.FirewallRule) error {
	existing, err := u.repo.GetFirewallRule(ctx, r.ID)
	if err != nil {
		return fmt.Errorf("failed to get firewall rule [%d]: %w", r.ID, err)
	}

	if existing.Enabled {
		if err := u.surface.Remove(ctx, existing); err != nil {
			return fmt.Errorf("failed to remove firewall rule [%s]: %w", existing.Name, err)
		}
	}

	var modified = u.now()
	r.CreatedAt = existing.CreatedAt
	r.ModifiedAt = &modified
	r.Name = domain.RuleName(r.ID, r.CreatedAt)

	if err := u.apply(ctx, *r); err != nil {
		u.reinstate(ctx, existing)
		return err
	}

	if err := u.repo.SaveFirewallRule(ctx, *r); err != nil {
		if r.Enabled {
			if rmErr := u.surface.Remove(ctx, *r); rmErr != nil {
				logger.Log.Errorf("failed to roll back firewall rule [%s]: %v", r.Name, rmErr)
			}
		}
		u.reinstate(ctx, existing)
		return fmt.Errorf("failed to save firewall rule: %w", err)
	}

	logger.Log.Infof("firewall rule [%s] updated", r.Name)
	return nil
}

// reinstate re-applies a rule removed by a failed update. When the firewall
// refuses it as well, the stored rule is marked disabled so the store matches
// what is enforced.
func (u *useCase) reinstate(ctx context.Context, existing domain.FirewallRule) {
	if !existing.Enabled {
		return
	}

	err := u.surface.Apply(ctx, existing)
	if err == nil {
		return
	}

	logger.Log.Errorf("failed to reinstate firewall rule [%s], marking it disabled: %v", existing.Name, err)

	existing.Enabled = false
	if err := u.repo.SaveFirewallRule(ctx, existing); err != nil {
		logger.Log.Errorf("failed to save firewall rule [%s]: %v", existing.Name, err)
	}
}

// SetEnabled toggles the rule externally and then in the store
func (u *useCase) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	err := u.setEnabled(ctx, id, enabled)
	telemetry.FirewallOperations.WithLabelValues("toggle", telemetry.Result(err)).Inc()
	if err != nil {
		return err
	}

	u.backup(ctx)
	return nil
}

func (u *useCase) setEnabled(ctx context.Context, id int64, enabled bool) error {
	r, err := u.repo.GetFirewallRule(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get firewall rule [%d]: %w", id, err)
	}

	if r.Enabled == enabled {
		return nil
	}

	if err := u.surface.SetEnabled(ctx, r, enabled); err != nil {
		return fmt.Errorf("failed to toggle firewall rule [%s]: %w", r.Name, err)
	}

	var modified = u.now()
	r.Enabled = enabled
	r.ModifiedAt = &modified

	if err := u.repo.SaveFirewallRule(ctx, r); err != nil {
		return fmt.Errorf("failed to save firewall rule: %w", err)
	}

	logger.Log.Infof("firewall rule [%s] enabled=%t", r.Name, enabled)
	return nil
}

func (u *useCase) List(ctx context.Context) ([]domain.FirewallRule, error) {
	return u.repo.ListFirewallRules(ctx)
}

func (u *useCase) ListActive(ctx context.Context) ([]domain.FirewallRule, error) {
	return u.repo.ListActiveFirewallRules(ctx)
}

// AllowProcessPort creates an Allow rule for the executable on the port, both directions
func (u *useCase) AllowProcessPort(ctx context.Context, path string, port uint32, proto domain.Protocol) (*domain.FirewallRule, error) {
	return u.processPortRule(ctx, domain.ActionAllow, path, port, proto)
}

// BlockProcessPort creates a Block rule for the executable on the port, both directions
func (u *useCase) BlockProcessPort(ctx context.Context, path string, port uint32, proto domain.Protocol) (*domain.FirewallRule, error) {
	return u.processPortRule(ctx, domain.ActionBlock, path, port, proto)
}

func (u *useCase) processPortRule(ctx context.Context, action domain.RuleAction, path string, port uint32, proto domain.Protocol) (*domain.FirewallRule, error) {
	var localPort = port
	var r = &domain.FirewallRule{
		Description: fmt.Sprintf("%s %s on %s port %d", action, utils.BaseName(path), proto, port),
		Enabled:     true,
		Action:      action,
		Direction:   domain.DirectionBoth,
		Scope:       domain.ScopeProcessAndPort,
		ProcessPath: path,
		LocalPort:   &localPort,
		Protocol:    proto,
		UserCreated: false,
		Persistent:  true,
	}

	if err := u.Create(ctx, r); err != nil {
		return nil, err
	}

	return r, nil
}

func (u *useCase) IsFirewallEnabled(ctx context.Context) (bool, error) {
	return u.surface.Enabled(ctx)
}

// RestoreDefaultRules removes every application rule. Individual failures are
// combined; stored user-created rules are purged only when all removals succeed.
func (u *useCase) RestoreDefaultRules(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	rules, err := u.repo.ListFirewallRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to list firewall rules: %w", err)
	}

	var errs error
	for _, r := range rules {
		errs = multierr.Append(errs, u.delete(ctx, r.ID))
	}

	telemetry.FirewallOperations.WithLabelValues("restore", telemetry.Result(errs)).Inc()
	if errs != nil {
		return fmt.Errorf("failed to restore default rules (%d of %d failed): %w",
			len(multierr.Errors(errs)), len(rules), errs)
	}

	if err := u.repo.DeleteAllUserCreatedRules(ctx); err != nil {
		return fmt.Errorf("failed to delete user created rules: %w", err)
	}

	u.backup(ctx)
	logger.Log.Infof("%d firewall rule(s) removed", len(rules))
	return nil
}

func (u *useCase) backup(ctx context.Context) {
	if u.opts.BackupDir == "" || u.opts.Backuper == nil {
		return
	}

	var path = filepath.Join(u.opts.BackupDir, fmt.Sprintf("rules_%s.db", u.now().Format("20060102_150405.000")))
	if err := u.opts.Backuper.Backup(ctx, path); err != nil {
		logger.Log.Warnf("failed to back up rules: %v", err)
		return
	}

	logger.Log.Debugf("rules backed up to %s", path)
}

func portField(p *uint32) interface{} {
	if p == nil {
		return "any"
	}

	return *p
}

// IsNotFound reports whether err is caused by a missing rule
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
