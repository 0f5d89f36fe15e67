package domain

import "fmt"

const (
	// MinMonitoringIntervalMs is the lower bound of the sampling interval
	MinMonitoringIntervalMs = 100
	// MaxMonitoringIntervalMs is the upper bound of the sampling interval
	MaxMonitoringIntervalMs = 60000
)

// AppConfiguration is the runtime policy configuration
type AppConfiguration struct {
	EnableRealTimeMonitoring bool `json:"enable_real_time_monitoring" mapstructure:"enable_real_time_monitoring"`
	MonitoringIntervalMs     int  `json:"monitoring_interval_ms" mapstructure:"monitoring_interval_ms"`
	MonitorTCPPorts          bool `json:"monitor_tcp_ports" mapstructure:"monitor_tcp_ports"`
	MonitorUDPPorts          bool `json:"monitor_udp_ports" mapstructure:"monitor_udp_ports"`

	EnableNotifications           bool `json:"enable_notifications" mapstructure:"enable_notifications"`
	NotificationTimeoutSeconds    int  `json:"notification_timeout_seconds" mapstructure:"notification_timeout_seconds"`
	ShowLowRiskNotifications      bool `json:"show_low_risk_notifications" mapstructure:"show_low_risk_notifications"`
	ShowMediumRiskNotifications   bool `json:"show_medium_risk_notifications" mapstructure:"show_medium_risk_notifications"`
	ShowHighRiskNotifications     bool `json:"show_high_risk_notifications" mapstructure:"show_high_risk_notifications"`
	ShowCriticalRiskNotifications bool `json:"show_critical_risk_notifications" mapstructure:"show_critical_risk_notifications"`

	RequireConfirmationForCriticalActions bool `json:"require_confirmation_for_critical_actions" mapstructure:"require_confirmation_for_critical_actions"`
	LogAllEvents                          bool `json:"log_all_events" mapstructure:"log_all_events"`
	MaxLogRetentionDays                   int  `json:"max_log_retention_days" mapstructure:"max_log_retention_days"`

	AutoCreateRulesFromNotifications bool      `json:"auto_create_rules_from_notifications" mapstructure:"auto_create_rules_from_notifications"`
	DefaultRuleScope                 RuleScope `json:"default_rule_scope" mapstructure:"default_rule_scope"`
	BackupRulesOnChange              bool      `json:"backup_rules_on_change" mapstructure:"backup_rules_on_change"`
}

// DefaultAppConfiguration returns the configuration used when nothing is set
func DefaultAppConfiguration() AppConfiguration {
	return AppConfiguration{
		EnableRealTimeMonitoring:              true,
		MonitoringIntervalMs:                  1000,
		MonitorTCPPorts:                       true,
		MonitorUDPPorts:                       true,
		EnableNotifications:                   true,
		NotificationTimeoutSeconds:            10,
		ShowLowRiskNotifications:              false,
		ShowMediumRiskNotifications:           true,
		ShowHighRiskNotifications:             true,
		ShowCriticalRiskNotifications:         true,
		RequireConfirmationForCriticalActions: true,
		LogAllEvents:                          true,
		MaxLogRetentionDays:                   30,
		AutoCreateRulesFromNotifications:      true,
		DefaultRuleScope:                      ScopeProcessAndPort,
		BackupRulesOnChange:                   true,
	}
}

// Validate checks the configuration bounds
func (c AppConfiguration) Validate() error {
	if c.MonitoringIntervalMs < MinMonitoringIntervalMs || c.MonitoringIntervalMs > MaxMonitoringIntervalMs {
		return fmt.Errorf("%w: monitoring interval must be between %d and %d ms, got %d",
			ErrInvalidConfiguration, MinMonitoringIntervalMs, MaxMonitoringIntervalMs, c.MonitoringIntervalMs)
	}

	if c.MaxLogRetentionDays < 0 {
		return fmt.Errorf("%w: log retention days must not be negative", ErrInvalidConfiguration)
	}

	if c.NotificationTimeoutSeconds < 0 {
		return fmt.Errorf("%w: notification timeout must not be negative", ErrInvalidConfiguration)
	}

	if c.DefaultRuleScope != "" && !ValidScope(c.DefaultRuleScope) {
		return fmt.Errorf("%w: unknown rule scope %q", ErrInvalidConfiguration, c.DefaultRuleScope)
	}

	return nil
}

// ShouldNotify reports whether an event of the given risk passes the per-level toggles
func (c AppConfiguration) ShouldNotify(level RiskLevel) bool {
	if !c.EnableNotifications {
		return false
	}

	switch level {
	case RiskLow:
		return c.ShowLowRiskNotifications
	case RiskMedium:
		return c.ShowMediumRiskNotifications
	case RiskHigh:
		return c.ShowHighRiskNotifications
	case RiskCritical:
		return c.ShowCriticalRiskNotifications
	}

	return false
}
