package rule

import (
	"context"

	"github.com/kondukto-io/portguard/internal/core/domain"
)

// Repository persists firewall rules
type Repository interface {
	SaveFirewallRule(ctx context.Context, rule domain.FirewallRule) error
	GetFirewallRule(ctx context.Context, id int64) (domain.FirewallRule, error)
	ListFirewallRules(ctx context.Context) ([]domain.FirewallRule, error)
	ListActiveFirewallRules(ctx context.Context) ([]domain.FirewallRule, error)
	DeleteFirewallRule(ctx context.Context, id int64) error
	DeleteAllUserCreatedRules(ctx context.Context) error
	// NextRuleID returns an id greater than every stored rule id
	NextRuleID(ctx context.Context) (int64, error)
}

// Surface is the host firewall the rules are applied to.
// Rules are identified externally by their Name.
type Surface interface {
	Apply(ctx context.Context, rule domain.FirewallRule) error
	Remove(ctx context.Context, rule domain.FirewallRule) error
	SetEnabled(ctx context.Context, rule domain.FirewallRule, enabled bool) error
	Enabled(ctx context.Context) (bool, error)
}

// UseCase manages the lifecycle of application rules
type UseCase interface {
	Create(ctx context.Context, rule *domain.FirewallRule) error
	Update(ctx context.Context, rule *domain.FirewallRule) error
	Delete(ctx context.Context, id int64) error
	SetEnabled(ctx context.Context, id int64, enabled bool) error
	List(ctx context.Context) ([]domain.FirewallRule, error)
	ListActive(ctx context.Context) ([]domain.FirewallRule, error)
	AllowProcessPort(ctx context.Context, path string, port uint32, proto domain.Protocol) (*domain.FirewallRule, error)
	BlockProcessPort(ctx context.Context, path string, port uint32, proto domain.Protocol) (*domain.FirewallRule, error)
	IsFirewallEnabled(ctx context.Context) (bool, error)
	RestoreDefaultRules(ctx context.Context) error
}
