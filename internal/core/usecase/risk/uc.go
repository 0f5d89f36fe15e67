package risk

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kondukto-io/portguard/internal/core/domain"
	"github.com/kondukto-io/portguard/internal/core/port/catalog"
	"github.com/kondukto-io/portguard/internal/core/port/risk"
	"github.com/kondukto-io/portguard/pkg/logger"
	"github.com/kondukto-io/portguard/pkg/utils"
)

// Scoring weights. These are product policy values.
const (
	ScoreBaselineLow      = 1
	ScoreBaselineMedium   = 3
	ScoreBaselineHigh     = 7
	ScoreBaselineCritical = 10

	ScoreMalwareAssociation = 5
	ScoreMalwareCategory    = 8
	ScoreNonStandardPort    = 2
	ScoreEphemeralPort      = 3
	ScoreSuspiciousPath     = 4
	ScoreSystemAccount      = 2
	ScoreMalwareSignature   = 10

	ThresholdCritical = 15
	ThresholdHigh     = 10
	ThresholdMedium   = 5

	wellKnownPortLimit = 1024
	ephemeralPortStart = 49152
)

var suspiciousDirs = []string{
	`\temp\`,
	`\tmp\`,
	`\appdata\local\temp\`,
	`\users\public\`,
	`\programdata\`,
	`\windows\temp\`,
	"/tmp/",
	"/var/tmp/",
	"/dev/shm/",
	"/run/user/",
	"/users/shared/",
}

var systemAccounts = []string{
	`nt authority\system`,
	`nt authority\local service`,
	`nt authority\network service`,
	"system",
	"root",
	"daemon",
	"nobody",
	"systemd-network",
	"systemd-resolve",
}

type useCase struct {
	catalog catalog.UseCase
}

// New returns the risk classifier backed by the given catalog
func New(catalogUC catalog.UseCase) risk.Classifier {
	return &useCase{catalog: catalogUC}
}

// AnalyzeRisk scores the event and maps the score to a level.
// Any failure during scoring yields Medium.
func (u *useCase) AnalyzeRisk(ctx context.Context, event domain.PortEvent) (level domain.RiskLevel) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorf("risk analysis panicked for port %d: %v", event.LocalPort, r)
			level = domain.RiskMedium
		}
	}()

	score, info, err := u.Score(ctx, event)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{
			"port":  event.LocalPort,
			"proto": event.Protocol,
		}).Warnf("risk analysis failed, falling back to medium: %v", err)
		return domain.RiskMedium
	}

	level = Level(score)

	// ports with a known malware association are never rated below High
	if info.IsMalicious() && level < domain.RiskHigh {
		level = domain.RiskHigh
	}

	return level
}

// Score returns the additive score of the event together with the catalog entry used
func (u *useCase) Score(ctx context.Context, event domain.PortEvent) (int, domain.PortInfo, error) {
	info, err := u.catalog.GetPortInfo(ctx, event.LocalPort, event.Protocol)
	if err != nil {
		return 0, domain.PortInfo{}, fmt.Errorf("failed to get port info: %w", err)
	}

	var score = baseline(info.RiskLevel)

	if len(info.MalwareAssociations) > 0 {
		score += ScoreMalwareAssociation
	}

	if info.Category == domain.CategoryMalware {
		score += ScoreMalwareCategory
	}

	if event.LocalPort > wellKnownPortLimit && !info.WellKnown {
		score += ScoreNonStandardPort
	}

	if event.LocalPort > ephemeralPortStart {
		score += ScoreEphemeralPort
	}

	if IsSuspiciousPath(event.ExecutablePath) {
		score += ScoreSuspiciousPath
	}

	if IsSystemAccount(event.UserName) && event.LocalPort > wellKnownPortLimit {
		score += ScoreSystemAccount
	}

	if u.catalog.MatchesSignature(event.LocalPort, event.Protocol) {
		score += ScoreMalwareSignature
	}

	return score, info, nil
}

// Level maps a score to a risk level
func Level(score int) domain.RiskLevel {
	switch {
	case score >= ThresholdCritical:
		return domain.RiskCritical
	case score >= ThresholdHigh:
		return domain.RiskHigh
	case score >= ThresholdMedium:
		return domain.RiskMedium
	}

	return domain.RiskLow
}

func baseline(level domain.RiskLevel) int {
	switch level {
	case domain.RiskMedium:
		return ScoreBaselineMedium
	case domain.RiskHigh:
		return ScoreBaselineHigh
	case domain.RiskCritical:
		return ScoreBaselineCritical
	}

	return ScoreBaselineLow
}

// IsSuspiciousPath reports whether the executable is unknown or lives in a
// transient or world-writable directory
func IsSuspiciousPath(path string) bool {
	if path == "" || strings.EqualFold(path, domain.UnknownValue) {
		return true
	}

	return utils.ContainsAnyFold(path, suspiciousDirs)
}

// IsSystemAccount reports whether the user is a system or service account
func IsSystemAccount(user string) bool {
	return utils.OneOfFold(strings.TrimSpace(user), systemAccounts)
}
