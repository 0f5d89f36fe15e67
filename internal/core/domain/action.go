package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a stored record does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidConfiguration is returned by AppConfiguration.Validate
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrFirewallApply is returned when the firewall surface rejects a rule
	ErrFirewallApply = errors.New("failed to apply firewall rule")
)

// OperatorActionType is the operator's response to a notification
type OperatorActionType string

const (
	OperatorAllow       OperatorActionType = "allow"
	OperatorBlock       OperatorActionType = "block"
	OperatorShowDetails OperatorActionType = "details"
	OperatorDismiss     OperatorActionType = "dismiss"
)

// ParseOperatorActionType parses an action name, case-insensitive
func ParseOperatorActionType(s string) (OperatorActionType, error) {
	switch t := OperatorActionType(strings.ToLower(strings.TrimSpace(s))); t {
	case OperatorAllow, OperatorBlock, OperatorShowDetails, OperatorDismiss:
		return t, nil
	}

	return "", fmt.Errorf("unknown operator action: %q", s)
}

// OperatorAction is an operator response referencing a stored event
type OperatorAction struct {
	EventID        int64              `json:"event_id"`
	Type           OperatorActionType `json:"action"`
	AdditionalData string             `json:"additional_data,omitempty"`
}

// PolicyDecision is the automatic action chosen for an opened port
type PolicyDecision string

const (
	DecisionNone  PolicyDecision = "none"
	DecisionAllow PolicyDecision = "allow"
	DecisionBlock PolicyDecision = "block"
	DecisionWarn  PolicyDecision = "warn"
)
