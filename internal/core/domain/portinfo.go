package domain

// PortCategory groups well-known services
type PortCategory string

const (
	CategorySystem       PortCategory = "System"
	CategoryWeb          PortCategory = "Web"
	CategoryMail         PortCategory = "Mail"
	CategoryDatabase     PortCategory = "Database"
	CategoryFileTransfer PortCategory = "FileTransfer"
	CategoryRemoteAccess PortCategory = "RemoteAccess"
	CategoryGaming       PortCategory = "Gaming"
	CategoryMessaging    PortCategory = "Messaging"
	CategorySecurity     PortCategory = "Security"
	CategoryMalware      PortCategory = "Malware"
	CategoryUnknown      PortCategory = "Unknown"
)

// UnknownService is the service name of synthesized catalog entries
const UnknownService = "Unknown Service"

// PortInfo is the catalog knowledge about a (port, protocol) pair
type PortInfo struct {
	Port                uint32       `json:"port" yaml:"port"`
	Protocol            Protocol     `json:"protocol" yaml:"protocol"`
	ServiceName         string       `json:"service_name" yaml:"service_name"`
	Description         string       `json:"description,omitempty" yaml:"description,omitempty"`
	RiskLevel           RiskLevel    `json:"risk_level" yaml:"risk_level"`
	Category            PortCategory `json:"category" yaml:"category"`
	WellKnown           bool         `json:"well_known" yaml:"well_known"`
	CommonProcesses     []string     `json:"common_processes,omitempty" yaml:"common_processes,omitempty"`
	MalwareAssociations []string     `json:"malware_associations,omitempty" yaml:"malware_associations,omitempty"`
	SecurityNotes       string       `json:"security_notes,omitempty" yaml:"security_notes,omitempty"`
}

// IsMalicious reports whether the entry flags the port as malware related
func (p PortInfo) IsMalicious() bool {
	return len(p.MalwareAssociations) > 0 || p.Category == CategoryMalware
}
