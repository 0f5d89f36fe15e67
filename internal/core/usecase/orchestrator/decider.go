package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kondukto-io/portguard/bundle"
	"github.com/kondukto-io/portguard/internal/core/domain"
	"github.com/kondukto-io/portguard/internal/core/port/orchestrator"
	"github.com/kondukto-io/portguard/pkg/policy"
)

// DecisionQuery is the rego query of the automatic rule policy
const DecisionQuery = "data.portguard.autorule.decision"

type decisionInput struct {
	Risk      string          `json:"risk"`
	WellKnown bool            `json:"well_known"`
	Malicious bool            `json:"malicious"`
	Port      uint32          `json:"port"`
	Protocol  domain.Protocol `json:"protocol"`
	Process   string          `json:"process"`
}

type regoDecider struct {
	policy *policy.Policy
}

// NewRegoDecider returns a decider evaluating the built-in rego policy
func NewRegoDecider(requireConfirmation bool) (orchestrator.Decider, error) {
	data, err := json.Marshal(map[string]interface{}{
		"require_confirmation": requireConfirmation,
	})
	if err != nil {
		return nil, err
	}

	p, err := policy.New(bundle.Bundle, data)
	if err != nil {
		return nil, fmt.Errorf("failed to load auto rule policy: %w", err)
	}
	p.AddQuery(DecisionQuery)

	return &regoDecider{policy: p}, nil
}

func (d *regoDecider) Decide(ctx context.Context, event domain.PortEvent, info domain.PortInfo) (domain.PolicyDecision, error) {
	input, err := json.Marshal(decisionInput{
		Risk:      event.RiskLevel.String(),
		WellKnown: info.WellKnown,
		Malicious: info.IsMalicious(),
		Port:      event.LocalPort,
		Protocol:  event.Protocol,
		Process:   event.ProcessName,
	})
	if err != nil {
		return domain.DecisionNone, err
	}

	result, err := d.policy.EvalString(ctx, input)
	if err != nil {
		return domain.DecisionNone, err
	}

	switch decision := domain.PolicyDecision(result); decision {
	case domain.DecisionAllow, domain.DecisionBlock, domain.DecisionWarn, domain.DecisionNone:
		return decision, nil
	case "":
		return domain.DecisionNone, nil
	default:
		return domain.DecisionNone, fmt.Errorf("unknown policy decision: %q", result)
	}
}
