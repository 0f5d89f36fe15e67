package store

import (
	"time"

	"github.com/kondukto-io/portguard/internal/core/domain"
)

// PortEventModel is the GORM model for port events.
type PortEventModel struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	Timestamp      time.Time `gorm:"index"`
	ProcessID      int32
	ProcessName    string `gorm:"index"`
	ExecutablePath string
	UserName       string
	LocalAddress   string
	LocalPort      uint32 `gorm:"index"`
	RemoteAddress  string
	RemotePort     uint32
	Protocol       string
	Status         string
	EventType      string
	RiskLevel      int `gorm:"index"`
	Description    string
	Allowed        *bool
}

// FirewallRuleModel is the GORM model for firewall rules. Ids are assigned by the rule manager.
type FirewallRuleModel struct {
	ID            int64  `gorm:"primaryKey;autoIncrement:false"`
	Name          string `gorm:"uniqueIndex"`
	Description   string
	CreatedAt     time.Time
	ModifiedAt    *time.Time
	Enabled       bool `gorm:"index"`
	Action        string
	Direction     string
	Scope         string
	ProcessPath   string
	ProcessID     *int32
	LocalPort     *uint32
	RemotePort    *uint32
	Protocol      string
	LocalAddress  string
	RemoteAddress string
	AddressRange  string
	UserCreated   bool `gorm:"index"`
	Persistent    bool
	Tags          []string `gorm:"serializer:json"`
}

// PortInfoModel is the GORM model for learned catalog entries.
type PortInfoModel struct {
	Port                uint32 `gorm:"primaryKey;autoIncrement:false"`
	Protocol            string `gorm:"primaryKey"`
	ServiceName         string `gorm:"index"`
	Description         string
	RiskLevel           int
	Category            string `gorm:"index"`
	WellKnown           bool
	CommonProcesses     []string `gorm:"serializer:json"`
	MalwareAssociations []string `gorm:"serializer:json"`
	SecurityNotes       string
}

// ConfigModel stores the application configuration as a single JSON row.
type ConfigModel struct {
	ID        uint `gorm:"primaryKey"`
	Data      string
	UpdatedAt time.Time
}

const configRowID = 1

func toEventModel(e domain.PortEvent) PortEventModel {
	return PortEventModel{
		ID:             e.ID,
		Timestamp:      e.Timestamp,
		ProcessID:      e.ProcessID,
		ProcessName:    e.ProcessName,
		ExecutablePath: e.ExecutablePath,
		UserName:       e.UserName,
		LocalAddress:   e.LocalAddress,
		LocalPort:      e.LocalPort,
		RemoteAddress:  e.RemoteAddress,
		RemotePort:     e.RemotePort,
		Protocol:       string(e.Protocol),
		Status:         string(e.Status),
		EventType:      string(e.EventType),
		RiskLevel:      int(e.RiskLevel),
		Description:    e.Description,
		Allowed:        e.Allowed,
	}
}

func toEvent(m PortEventModel) domain.PortEvent {
	return domain.PortEvent{
		ID:             m.ID,
		Timestamp:      m.Timestamp,
		ProcessID:      m.ProcessID,
		ProcessName:    m.ProcessName,
		ExecutablePath: m.ExecutablePath,
		UserName:       m.UserName,
		LocalAddress:   m.LocalAddress,
		LocalPort:      m.LocalPort,
		RemoteAddress:  m.RemoteAddress,
		RemotePort:     m.RemotePort,
		Protocol:       domain.Protocol(m.Protocol),
		Status:         domain.PortStatus(m.Status),
		EventType:      domain.PortEventType(m.EventType),
		RiskLevel:      domain.RiskLevel(m.RiskLevel),
		Description:    m.Description,
		Allowed:        m.Allowed,
	}
}

func toRuleModel(r domain.FirewallRule) FirewallRuleModel {
	return FirewallRuleModel{
		ID:            r.ID,
		Name:          r.Name,
		Description:   r.Description,
		CreatedAt:     r.CreatedAt,
		ModifiedAt:    r.ModifiedAt,
		Enabled:       r.Enabled,
		Action:        string(r.Action),
		Direction:     string(r.Direction),
		Scope:         string(r.Scope),
		ProcessPath:   r.ProcessPath,
		ProcessID:     r.ProcessID,
		LocalPort:     r.LocalPort,
		RemotePort:    r.RemotePort,
		Protocol:      string(r.Protocol),
		LocalAddress:  r.LocalAddress,
		RemoteAddress: r.RemoteAddress,
		AddressRange:  r.AddressRange,
		UserCreated:   r.UserCreated,
		Persistent:    r.Persistent,
		Tags:          r.Tags,
	}
}

func toRule(m FirewallRuleModel) domain.FirewallRule {
	return domain.FirewallRule{
		ID:            m.ID,
		Name:          m.Name,
		Description:   m.Description,
		CreatedAt:     m.CreatedAt,
		ModifiedAt:    m.ModifiedAt,
		Enabled:       m.Enabled,
		Action:        domain.RuleAction(m.Action),
		Direction:     domain.RuleDirection(m.Direction),
		Scope:         domain.RuleScope(m.Scope),
		ProcessPath:   m.ProcessPath,
		ProcessID:     m.ProcessID,
		LocalPort:     m.LocalPort,
		RemotePort:    m.RemotePort,
		Protocol:      domain.Protocol(m.Protocol),
		LocalAddress:  m.LocalAddress,
		RemoteAddress: m.RemoteAddress,
		AddressRange:  m.AddressRange,
		UserCreated:   m.UserCreated,
		Persistent:    m.Persistent,
		Tags:          m.Tags,
	}
}

func toInfoModel(p domain.PortInfo) PortInfoModel {
	return PortInfoModel{
		Port:                p.Port,
		Protocol:            string(p.Protocol),
		ServiceName:         p.ServiceName,
		Description:         p.Description,
		RiskLevel:           int(p.RiskLevel),
		Category:            string(p.Category),
		WellKnown:           p.WellKnown,
		CommonProcesses:     p.CommonProcesses,
		MalwareAssociations: p.MalwareAssociations,
		SecurityNotes:       p.SecurityNotes,
	}
}

func toInfo(m PortInfoModel) domain.PortInfo {
	return domain.PortInfo{
		Port:                m.Port,
		Protocol:            domain.Protocol(m.Protocol),
		ServiceName:         m.ServiceName,
		Description:         m.Description,
		RiskLevel:           domain.RiskLevel(m.RiskLevel),
		Category:            domain.PortCategory(m.Category),
		WellKnown:           m.WellKnown,
		CommonProcesses:     m.CommonProcesses,
		MalwareAssociations: m.MalwareAssociations,
		SecurityNotes:       m.SecurityNotes,
	}
}
