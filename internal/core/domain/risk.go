package domain

import (
	"fmt"
	"strings"
)

// RiskLevel is an ordered risk classification. Low < Medium < High < Critical.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskCritical
)

var riskNames = map[RiskLevel]string{
	RiskLow:      "Low",
	RiskMedium:   "Medium",
	RiskHigh:     "High",
	RiskCritical: "Critical",
}

func (r RiskLevel) String() string {
	if n, ok := riskNames[r]; ok {
		return n
	}

	return fmt.Sprintf("RiskLevel(%d)", int(r))
}

// ParseRiskLevel parses a risk level name, case-insensitive
func ParseRiskLevel(s string) (RiskLevel, error) {
	for level, name := range riskNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return level, nil
		}
	}

	return RiskLow, fmt.Errorf("unknown risk level: %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (r RiskLevel) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (r *RiskLevel) UnmarshalText(text []byte) error {
	level, err := ParseRiskLevel(string(text))
	if err != nil {
		return err
	}

	*r = level
	return nil
}
