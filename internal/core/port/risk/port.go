package risk

import (
	"context"

	"github.com/kondukto-io/portguard/internal/core/domain"
)

// Classifier assigns a risk level to a port event
type Classifier interface {
	// AnalyzeRisk never fails; internal errors yield domain.RiskMedium
	AnalyzeRisk(ctx context.Context, event domain.PortEvent) domain.RiskLevel
	Score(ctx context.Context, event domain.PortEvent) (int, domain.PortInfo, error)
}
