package reporter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/kondukto-io/portguard/internal/core/domain"
)

// PrintEvents prints stored port events
func PrintEvents(events []domain.PortEvent) {
	data := pterm.TableData{
		{"ID", "Time", "Pid", "Comm", "Proto", "Local", "Event", "Risk", "Allowed"},
	}

	for _, e := range events {
		allowed := "-"
		if e.Allowed != nil {
			allowed = strconv.FormatBool(*e.Allowed)
		}

		data = append(data, []string{
			strconv.FormatInt(e.ID, 10),
			e.Timestamp.Format("2006-01-02 15:04:05"),
			strconv.FormatInt(int64(e.ProcessID), 10),
			e.ProcessName,
			string(e.Protocol),
			fmt.Sprintf("%s:%d", e.LocalAddress, e.LocalPort),
			string(e.EventType),
			e.RiskLevel.String(),
			allowed,
		})
	}

	render(data)
}

// PrintRules prints firewall rules
func PrintRules(rules []domain.FirewallRule) {
	data := pterm.TableData{
		{"ID", "Name", "Action", "Direction", "Proto", "Port", "Process", "Enabled", "User"},
	}

	for _, r := range rules {
		port := "any"
		if r.LocalPort != nil {
			port = strconv.FormatUint(uint64(*r.LocalPort), 10)
		}

		data = append(data, []string{
			strconv.FormatInt(r.ID, 10),
			r.Name,
			string(r.Action),
			string(r.Direction),
			string(r.Protocol),
			port,
			r.ProcessPath,
			strconv.FormatBool(r.Enabled),
			strconv.FormatBool(r.UserCreated),
		})
	}

	render(data)
}

// PrintPortInfo prints catalog entries
func PrintPortInfo(entries []domain.PortInfo) {
	data := pterm.TableData{
		{"Port", "Proto", "Service", "Category", "Risk", "Malware"},
	}

	for _, p := range entries {
		data = append(data, []string{
			strconv.FormatUint(uint64(p.Port), 10),
			string(p.Protocol),
			p.ServiceName,
			string(p.Category),
			p.RiskLevel.String(),
			strings.Join(p.MalwareAssociations, ", "),
		})
	}

	render(data)
}
