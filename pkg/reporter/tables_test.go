package reporter

import (
	"testing"
	"time"

	"github.com/kondukto-io/portguard/internal/core/domain"
)

func TestPrintTables(t *testing.T) {
	var port = uint32(80)
	var allowed = true

	// rendering must not panic on optional fields
	PrintEvents([]domain.PortEvent{
		{ID: 1, Timestamp: time.Now(), ProcessName: "nginx", LocalPort: 80, Allowed: &allowed},
		{ID: 2, Timestamp: time.Now(), ProcessName: "nc", LocalPort: 4444},
	})
	PrintRules([]domain.FirewallRule{
		{ID: 1, Name: "portguard_1_x", LocalPort: &port},
		{ID: 2, Name: "portguard_2_x"},
	})
	PrintPortInfo([]domain.PortInfo{
		{Port: 4444, Protocol: domain.ProtocolTCP, MalwareAssociations: []string{"Metasploit"}},
	})
}
