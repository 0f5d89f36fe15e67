package domain

import (
	"fmt"
	"strings"
	"time"
)

// Protocol is the transport protocol of an endpoint
type Protocol string

const (
	// ProtocolTCP is the TCP protocol
	ProtocolTCP Protocol = "TCP"
	// ProtocolUDP is the UDP protocol
	ProtocolUDP Protocol = "UDP"
)

// ParseProtocol parses the given protocol name, case-insensitive
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(ProtocolTCP):
		return ProtocolTCP, nil
	case string(ProtocolUDP):
		return ProtocolUDP, nil
	}

	return "", fmt.Errorf("unknown protocol: %q", s)
}

// PortStatus is the socket state reported by the endpoint enumerator
type PortStatus string

const (
	PortStatusListening   PortStatus = "Listening"
	PortStatusEstablished PortStatus = "Established"
	PortStatusTimeWait    PortStatus = "TimeWait"
	PortStatusCloseWait   PortStatus = "CloseWait"
	PortStatusFinWait1    PortStatus = "FinWait1"
	PortStatusFinWait2    PortStatus = "FinWait2"
	PortStatusSynSent     PortStatus = "SynSent"
	PortStatusSynReceived PortStatus = "SynReceived"
	PortStatusClosed      PortStatus = "Closed"
	PortStatusUnknown     PortStatus = "Unknown"
)

// PortEventType is the kind of change a PortEvent describes
type PortEventType string

const (
	// PortEventOpened means the endpoint appeared since the previous snapshot
	PortEventOpened PortEventType = "Opened"
	// PortEventClosed means the endpoint disappeared since the previous snapshot
	PortEventClosed PortEventType = "Closed"
	// PortEventModified is reserved for attribute changes of a live endpoint
	PortEventModified PortEventType = "Modified"
)

// UnknownValue is used when a process attribute cannot be read
const UnknownValue = "Unknown"

// PortIdentity is the key under which endpoints are compared between snapshots
type PortIdentity struct {
	ProcessID    int32    `json:"pid"`
	LocalAddress string   `json:"local_address"`
	LocalPort    uint32   `json:"local_port"`
	Protocol     Protocol `json:"protocol"`
}

// Key returns a stable textual form of the identity
func (i PortIdentity) Key() string {
	return fmt.Sprintf("%s|%s|%d|%d", i.Protocol, i.LocalAddress, i.LocalPort, i.ProcessID)
}

// PortEvent represents an observed endpoint, or a change to one
type PortEvent struct {
	ID             int64         `json:"id"`
	Timestamp      time.Time     `json:"timestamp"`
	ProcessID      int32         `json:"pid"`
	ProcessName    string        `json:"process_name"`
	ExecutablePath string        `json:"executable_path"`
	UserName       string        `json:"user_name"`
	LocalAddress   string        `json:"local_address"`
	LocalPort      uint32        `json:"local_port"`
	RemoteAddress  string        `json:"remote_address,omitempty"`
	RemotePort     uint32        `json:"remote_port,omitempty"`
	Protocol       Protocol      `json:"protocol"`
	Status         PortStatus    `json:"status"`
	EventType      PortEventType `json:"event_type"`
	RiskLevel      RiskLevel     `json:"risk_level"`
	Description    string        `json:"description,omitempty"`
	// Allowed is unset until a rule decision is made for the event
	Allowed *bool `json:"allowed,omitempty"`
}

// Identity returns the comparison key of the event
func (e PortEvent) Identity() PortIdentity {
	return PortIdentity{
		ProcessID:    e.ProcessID,
		LocalAddress: e.LocalAddress,
		LocalPort:    e.LocalPort,
		Protocol:     e.Protocol,
	}
}

// SetAllowed records a rule decision on the event
func (e *PortEvent) SetAllowed(allowed bool) {
	e.Allowed = &allowed
}

// ReportEvent is a single line of the JSONL event report
type ReportEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	ProcessID   int32     `json:"pid"`
	ProcessName string    `json:"process_name"`
	Protocol    Protocol  `json:"proto"`
	Address     string    `json:"address"`
	Port        uint32    `json:"port"`
	EventType   string    `json:"event_type"`
	Risk        string    `json:"risk"`
	Policy      string    `json:"policy"`
}
