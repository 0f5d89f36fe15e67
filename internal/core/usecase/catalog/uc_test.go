package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kondukto-io/portguard/internal/core/domain"
)

type fakeRepo struct {
	entries map[portKey]domain.PortInfo
	err     error
	reads   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{entries: make(map[portKey]domain.PortInfo)}
}

func (f *fakeRepo) GetPortInfo(_ context.Context, port uint32, proto domain.Protocol) (domain.PortInfo, error) {
	f.reads++
	if f.err != nil {
		return domain.PortInfo{}, f.err
	}

	info, ok := f.entries[portKey{port, proto}]
	if !ok {
		return domain.PortInfo{}, domain.ErrNotFound
	}

	return info, nil
}

func (f *fakeRepo) ListPortInfo(context.Context) ([]domain.PortInfo, error) {
	if f.err != nil {
		return nil, f.err
	}

	var list []domain.PortInfo
	for _, v := range f.entries {
		list = append(list, v)
	}

	return list, nil
}

func (f *fakeRepo) SavePortInfo(_ context.Context, info domain.PortInfo) error {
	f.entries[portKey{info.Port, info.Protocol}] = info
	return nil
}

func TestGetPortInfo_Static(t *testing.T) {
	uc := New(nil)

	info, err := uc.GetPortInfo(context.Background(), 4444, domain.ProtocolTCP)
	require.NoError(t, err)
	assert.Equal(t, domain.RiskCritical, info.RiskLevel)
	assert.Equal(t, domain.CategoryMalware, info.Category)
	assert.Contains(t, info.MalwareAssociations, "MetaSploit")

	info, err = uc.GetPortInfo(context.Background(), 53, domain.ProtocolUDP)
	require.NoError(t, err)
	assert.Equal(t, "DNS", info.ServiceName)
	assert.True(t, info.WellKnown)
}

func TestGetPortInfo_Synthesized(t *testing.T) {
	uc := New(nil)

	var cases = []struct {
		port     uint32
		expected domain.RiskLevel
	}{
		{port: 999, expected: domain.RiskLow},
		{port: 1024, expected: domain.RiskLow},
		{port: 1025, expected: domain.RiskMedium},
		{port: 49152, expected: domain.RiskMedium},
		{port: 49153, expected: domain.RiskHigh},
	}

	for _, c := range cases {
		info, err := uc.GetPortInfo(context.Background(), c.port, domain.ProtocolTCP)
		require.NoError(t, err)
		assert.Equal(t, c.expected, info.RiskLevel, "port %d", c.port)
		assert.Equal(t, domain.CategoryUnknown, info.Category)
		assert.Equal(t, domain.UnknownService, info.ServiceName)
		assert.False(t, info.WellKnown)
	}
}

func TestGetPortInfo_StorePrecedesSynthesis(t *testing.T) {
	repo := newFakeRepo()
	repo.entries[portKey{8080, domain.ProtocolTCP}] = domain.PortInfo{
		Port: 8080, Protocol: domain.ProtocolTCP, ServiceName: "HTTP-alt", WellKnown: true, Category: domain.CategoryWeb,
	}
	uc := New(repo)

	info, err := uc.GetPortInfo(context.Background(), 8080, domain.ProtocolTCP)
	require.NoError(t, err)
	assert.Equal(t, "HTTP-alt", info.ServiceName)
}

func TestGetPortInfo_StoreFailureDegrades(t *testing.T) {
	repo := newFakeRepo()
	repo.err = errors.New("disk I/O error")
	uc := New(repo)

	info, err := uc.GetPortInfo(context.Background(), 9000, domain.ProtocolTCP)
	require.NoError(t, err)
	assert.Equal(t, domain.UnknownService, info.ServiceName)
	assert.Equal(t, domain.RiskMedium, info.RiskLevel)
}

func TestIsKnownMalwarePort(t *testing.T) {
	uc := New(nil)
	ctx := context.Background()

	assert.True(t, uc.IsKnownMalwarePort(ctx, 31337, domain.ProtocolTCP))
	assert.True(t, uc.IsKnownMalwarePort(ctx, 4444, domain.ProtocolTCP))
	assert.False(t, uc.IsKnownMalwarePort(ctx, 4444, domain.ProtocolUDP))
	assert.False(t, uc.IsKnownMalwarePort(ctx, 443, domain.ProtocolTCP))
}

func TestMaliciousPorts(t *testing.T) {
	uc := New(nil)

	entries, err := uc.MaliciousPorts(context.Background())
	require.NoError(t, err)

	var ports []uint32
	for _, e := range entries {
		ports = append(ports, e.Port)
		assert.Equal(t, domain.RiskCritical, e.RiskLevel)
	}

	assert.Equal(t, []uint32{1234, 4444, 6666, 12345, 31337, 54321}, ports)
}

func TestSearchAndCategory(t *testing.T) {
	uc := New(nil)
	ctx := context.Background()

	found, err := uc.SearchByService(ctx, "imap")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, uint32(143), found[0].Port)
	assert.Equal(t, uint32(993), found[1].Port)

	dbs, err := uc.ByCategory(ctx, domain.CategoryDatabase)
	require.NoError(t, err)
	assert.Len(t, dbs, 3)
}

func TestImport(t *testing.T) {
	repo := newFakeRepo()
	uc := New(repo)
	ctx := context.Background()

	before, err := uc.GetPortInfo(ctx, 9200, domain.ProtocolTCP)
	require.NoError(t, err)
	assert.Equal(t, domain.UnknownService, before.ServiceName)

	err = uc.Import(ctx, []domain.PortInfo{{Port: 9200, ServiceName: "Elasticsearch", Category: domain.CategoryDatabase}})
	require.NoError(t, err)

	after, err := uc.GetPortInfo(ctx, 9200, domain.ProtocolTCP)
	require.NoError(t, err)
	assert.Equal(t, "Elasticsearch", after.ServiceName)

	assert.Error(t, uc.Import(ctx, []domain.PortInfo{{Port: 70000}}))
	assert.Error(t, New(nil).Import(ctx, nil))
}
