package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kondukto-io/portguard/internal/core/domain"
)

func entry(pid int32, port uint32, proto domain.Protocol) domain.PortEvent {
	return domain.PortEvent{
		ProcessID:      pid,
		ProcessName:    "proc",
		ExecutablePath: "/usr/bin/proc",
		UserName:       "alice",
		LocalAddress:   "0.0.0.0",
		LocalPort:      port,
		Protocol:       proto,
		Status:         domain.PortStatusListening,
	}
}

func snapshot(version uint64, entries ...domain.PortEvent) domain.Snapshot {
	s := domain.Snapshot{Version: version, Entries: make(map[string]domain.PortEvent)}
	for _, e := range entries {
		s.Entries[e.Identity().Key()] = e
	}

	return s
}

func TestDiff_Idempotent(t *testing.T) {
	s := snapshot(1, entry(1, 80, domain.ProtocolTCP), entry(2, 53, domain.ProtocolUDP))

	assert.Empty(t, Diff(s, s, time.Now()))
	assert.Empty(t, Diff(snapshot(1), snapshot(2), time.Now()))
}

func TestDiff_OpenedPort(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	events := Diff(snapshot(1), snapshot(2, entry(100, 4444, domain.ProtocolTCP)), now)

	require.Len(t, events, 1)
	assert.Equal(t, domain.PortEventOpened, events[0].EventType)
	assert.Equal(t, uint32(4444), events[0].LocalPort)
	assert.Equal(t, int32(100), events[0].ProcessID)
	assert.Equal(t, now, events[0].Timestamp)
}

func TestDiff_ClosedKeepsLastKnownAttributes(t *testing.T) {
	last := entry(7, 8080, domain.ProtocolTCP)
	last.ProcessName = "server"

	events := Diff(snapshot(1, last), snapshot(2), time.Now())

	require.Len(t, events, 1)
	assert.Equal(t, domain.PortEventClosed, events[0].EventType)
	assert.Equal(t, "server", events[0].ProcessName)
}

func TestDiff_AttributeChangeIsSilent(t *testing.T) {
	before := entry(7, 8080, domain.ProtocolTCP)
	after := before
	after.Status = domain.PortStatusEstablished
	after.ProcessName = "renamed"

	assert.Empty(t, Diff(snapshot(1, before), snapshot(2, after), time.Now()))
}

func TestDiff_DeterministicOrder(t *testing.T) {
	prev := snapshot(1, entry(1, 22, domain.ProtocolTCP))
	curr := snapshot(2, entry(3, 9000, domain.ProtocolTCP), entry(2, 53, domain.ProtocolUDP), entry(1, 443, domain.ProtocolTCP))

	first := Diff(prev, curr, time.Time{})
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Diff(prev, curr, time.Time{}))
	}

	require.Len(t, first, 4)
	assert.Equal(t, domain.PortEventClosed, first[3].EventType)
	assert.Equal(t, uint32(22), first[3].LocalPort)
}
