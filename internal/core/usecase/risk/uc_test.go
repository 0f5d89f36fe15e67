package risk

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kondukto-io/portguard/internal/core/domain"
	catalogusecase "github.com/kondukto-io/portguard/internal/core/usecase/catalog"
)

type stubCatalog struct {
	info      domain.PortInfo
	err       error
	signature bool
	panics    bool
}

func (s stubCatalog) GetPortInfo(context.Context, uint32, domain.Protocol) (domain.PortInfo, error) {
	if s.panics {
		panic("boom")
	}
	return s.info, s.err
}

func (s stubCatalog) IsKnownMalwarePort(context.Context, uint32, domain.Protocol) bool {
	return s.signature || s.info.IsMalicious()
}

func (s stubCatalog) MatchesSignature(uint32, domain.Protocol) bool { return s.signature }

func (s stubCatalog) SearchByService(context.Context, string) ([]domain.PortInfo, error) {
	return nil, nil
}

func (s stubCatalog) MaliciousPorts(context.Context) ([]domain.PortInfo, error) { return nil, nil }

func (s stubCatalog) ByCategory(context.Context, domain.PortCategory) ([]domain.PortInfo, error) {
	return nil, nil
}

func (s stubCatalog) Import(context.Context, []domain.PortInfo) error { return nil }

func event(port uint32, path, user string) domain.PortEvent {
	return domain.PortEvent{
		ProcessID:      100,
		ProcessName:    "proc",
		ExecutablePath: path,
		UserName:       user,
		LocalAddress:   "0.0.0.0",
		LocalPort:      port,
		Protocol:       domain.ProtocolTCP,
		Status:         domain.PortStatusListening,
		EventType:      domain.PortEventOpened,
	}
}

func TestAnalyzeRisk_Catalog(t *testing.T) {
	classifier := New(catalogusecase.New(nil))
	ctx := context.Background()

	var cases = map[string]struct {
		event    domain.PortEvent
		expected domain.RiskLevel
	}{
		"metasploit_default_port": {event(4444, "/usr/bin/nc", "alice"), domain.RiskCritical},
		"http_server":             {event(80, "/usr/sbin/nginx", "www-data"), domain.RiskLow},
		"ssh_as_root":             {event(22, "/usr/sbin/sshd", "root"), domain.RiskLow},
		"unknown_registered_port": {event(8080, "/opt/app/bin/server", "app"), domain.RiskMedium},
		"ephemeral_from_tmp":      {event(55000, "/tmp/x", "root"), domain.RiskCritical},
		"back_orifice_signature":  {event(31337, "/usr/local/bin/svc", "bob"), domain.RiskCritical},
		"unknown_executable":      {event(3000, domain.UnknownValue, "bob"), domain.RiskMedium},
	}

	for name, c := range cases {
		got := classifier.AnalyzeRisk(ctx, c.event)
		assert.Equal(t, c.expected, got, name)
	}
}

func TestScore_Factors(t *testing.T) {
	classifier := New(catalogusecase.New(nil))

	score, info, err := classifier.Score(context.Background(), event(4444, "/usr/bin/nc", "alice"))
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryMalware, info.Category)
	assert.Equal(t, ScoreBaselineCritical+ScoreMalwareAssociation+ScoreMalwareCategory+ScoreNonStandardPort+ScoreMalwareSignature, score)

	score, _, err = classifier.Score(context.Background(), event(55000, `C:\Users\Public\evil.exe`, `NT AUTHORITY\SYSTEM`))
	require.NoError(t, err)
	assert.Equal(t, ScoreBaselineHigh+ScoreNonStandardPort+ScoreEphemeralPort+ScoreSuspiciousPath+ScoreSystemAccount, score)
}

func TestAnalyzeRisk_MalwareAssociationAtLeastHigh(t *testing.T) {
	for _, baseline := range []domain.RiskLevel{domain.RiskLow, domain.RiskMedium, domain.RiskHigh, domain.RiskCritical} {
		classifier := New(stubCatalog{info: domain.PortInfo{
			Port:                80,
			Protocol:            domain.ProtocolTCP,
			RiskLevel:           baseline,
			WellKnown:           true,
			MalwareAssociations: []string{"SomeTrojan"},
		}})

		got := classifier.AnalyzeRisk(context.Background(), event(80, "/usr/sbin/nginx", "www-data"))
		assert.GreaterOrEqual(t, got, domain.RiskHigh, "baseline %s", baseline)
	}
}

func TestScore_Monotonic(t *testing.T) {
	ctx := context.Background()
	base := domain.PortInfo{Port: 2000, Protocol: domain.ProtocolTCP, RiskLevel: domain.RiskLow, WellKnown: true}
	plain := event(2000, "/usr/bin/app", "alice")

	baseScore, _, err := New(stubCatalog{info: base}).Score(ctx, plain)
	require.NoError(t, err)

	withAssociation := base
	withAssociation.MalwareAssociations = []string{"x"}

	withCategory := base
	withCategory.Category = domain.CategoryMalware

	notWellKnown := base
	notWellKnown.WellKnown = false

	var variants = map[string]struct {
		catalog stubCatalog
		event   domain.PortEvent
	}{
		"association":     {stubCatalog{info: withAssociation}, plain},
		"category":        {stubCatalog{info: withCategory}, plain},
		"non_standard":    {stubCatalog{info: notWellKnown}, plain},
		"suspicious_path": {stubCatalog{info: base}, event(2000, "/dev/shm/a", "alice")},
		"system_account":  {stubCatalog{info: base}, event(2000, "/usr/bin/app", "root")},
		"signature":       {stubCatalog{info: base, signature: true}, plain},
	}

	for name, v := range variants {
		score, _, err := New(v.catalog).Score(ctx, v.event)
		require.NoError(t, err, name)
		assert.Greater(t, score, baseScore, name)

		assert.GreaterOrEqual(t, New(v.catalog).AnalyzeRisk(ctx, v.event), New(stubCatalog{info: base}).AnalyzeRisk(ctx, plain), name)
	}
}

func TestAnalyzeRisk_FailSafe(t *testing.T) {
	ctx := context.Background()

	got := New(stubCatalog{err: errors.New("store unavailable")}).AnalyzeRisk(ctx, event(80, "/usr/sbin/nginx", "www-data"))
	assert.Equal(t, domain.RiskMedium, got)

	got = New(stubCatalog{panics: true}).AnalyzeRisk(ctx, event(80, "/usr/sbin/nginx", "www-data"))
	assert.Equal(t, domain.RiskMedium, got)
}

func TestLevel(t *testing.T) {
	assert.Equal(t, domain.RiskLow, Level(4))
	assert.Equal(t, domain.RiskMedium, Level(5))
	assert.Equal(t, domain.RiskHigh, Level(10))
	assert.Equal(t, domain.RiskCritical, Level(15))
}

func TestIsSuspiciousPath(t *testing.T) {
	assert.True(t, IsSuspiciousPath(""))
	assert.True(t, IsSuspiciousPath("unknown"))
	assert.True(t, IsSuspiciousPath(`C:\ProgramData\x\y.exe`))
	assert.True(t, IsSuspiciousPath("/var/tmp/miner"))
	assert.False(t, IsSuspiciousPath("/usr/bin/python3"))
	assert.False(t, IsSuspiciousPath(`C:\Program Files\App\app.exe`))
}
