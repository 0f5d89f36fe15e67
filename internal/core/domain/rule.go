package domain

import (
	"fmt"
	"time"
)

// RuleNamePrefix prefixes the external name of every rule this tool creates
const RuleNamePrefix = "portguard_"

// RuleAction is the verdict a firewall rule applies
type RuleAction string

const (
	ActionAllow RuleAction = "Allow"
	ActionBlock RuleAction = "Block"
)

// RuleDirection is the traffic direction a rule matches
type RuleDirection string

const (
	DirectionInbound  RuleDirection = "Inbound"
	DirectionOutbound RuleDirection = "Outbound"
	DirectionBoth     RuleDirection = "Both"
)

// RuleScope describes which match criteria of a rule are significant
type RuleScope string

const (
	ScopeProcessAndPort   RuleScope = "ProcessAndPort"
	ScopeProcessAllPorts  RuleScope = "ProcessAllPorts"
	ScopePortAllProcesses RuleScope = "PortAllProcesses"
	ScopeCustom           RuleScope = "Custom"
)

// ValidScope reports whether s names a known rule scope
func ValidScope(s RuleScope) bool {
	switch s {
	case ScopeProcessAndPort, ScopeProcessAllPorts, ScopePortAllProcesses, ScopeCustom:
		return true
	}

	return false
}

// FirewallRule is an application-managed firewall rule
type FirewallRule struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	ModifiedAt  *time.Time    `json:"modified_at,omitempty"`
	Enabled     bool          `json:"enabled"`
	Action      RuleAction    `json:"action"`
	Direction   RuleDirection `json:"direction"`
	Scope       RuleScope     `json:"scope"`

	ProcessPath   string   `json:"process_path,omitempty"`
	ProcessID     *int32   `json:"process_id,omitempty"`
	LocalPort     *uint32  `json:"local_port,omitempty"`
	RemotePort    *uint32  `json:"remote_port,omitempty"`
	Protocol      Protocol `json:"protocol,omitempty"`
	LocalAddress  string   `json:"local_address,omitempty"`
	RemoteAddress string   `json:"remote_address,omitempty"`
	AddressRange  string   `json:"address_range,omitempty"`

	UserCreated bool     `json:"user_created"`
	Persistent  bool     `json:"persistent"`
	Tags        []string `json:"tags,omitempty"`
}

// RuleName builds the external rule name from the allocated id and creation time
func RuleName(id int64, createdAt time.Time) string {
	return fmt.Sprintf("%s%d_%s", RuleNamePrefix, id, createdAt.Format("20060102150405.000"))
}

// Directions expands DirectionBoth into its concrete directions
func (r FirewallRule) Directions() []RuleDirection {
	if r.Direction == DirectionBoth || r.Direction == "" {
		return []RuleDirection{DirectionInbound, DirectionOutbound}
	}

	return []RuleDirection{r.Direction}
}

// ScopedRule builds an operator rule in both directions whose match criteria
// follow scope. Criteria the scope does not use are dropped.
func ScopedRule(action RuleAction, scope RuleScope, path string, port *uint32, proto Protocol) (FirewallRule, error) {
	if scope == "" {
		scope = ScopeProcessAndPort
	}

	var r = FirewallRule{
		Enabled:     true,
		Action:      action,
		Direction:   DirectionBoth,
		Scope:       scope,
		UserCreated: true,
		Persistent:  true,
	}

	switch scope {
	case ScopeProcessAndPort:
		if path == "" || port == nil {
			return r, fmt.Errorf("scope %s requires an executable path and a port", scope)
		}
		r.ProcessPath, r.LocalPort, r.Protocol = path, port, proto
	case ScopeProcessAllPorts:
		if path == "" {
			return r, fmt.Errorf("scope %s requires an executable path", scope)
		}
		r.ProcessPath = path
	case ScopePortAllProcesses:
		if port == nil {
			return r, fmt.Errorf("scope %s requires a port", scope)
		}
		r.LocalPort, r.Protocol = port, proto
	case ScopeCustom:
		if path == "" && port == nil {
			return r, fmt.Errorf("scope %s requires an executable path or a port", scope)
		}
		r.ProcessPath, r.LocalPort = path, port
		if port != nil {
			r.Protocol = proto
		}
	default:
		return r, fmt.Errorf("unknown rule scope %q", scope)
	}

	return r, nil
}
