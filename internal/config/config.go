package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kondukto-io/portguard/internal/core/domain"
)

const (
	// DefaultPath is read when no config file is given
	DefaultPath = "/etc/portguard/portguard.yaml"
	// EnvPrefix prefixes every environment override, e.g. PORTGUARD_DAEMON_LISTEN_ADDRESS
	EnvPrefix = "PORTGUARD"
)

// DaemonConfig holds the process level settings of the daemon
type DaemonConfig struct {
	DatabasePath        string        `json:"database_path" mapstructure:"database_path"`
	FirewallBackend     string        `json:"firewall_backend" mapstructure:"firewall_backend"`
	ListenAddress       string        `json:"listen_address" mapstructure:"listen_address"`
	MaintenanceInterval time.Duration `json:"maintenance_interval" mapstructure:"maintenance_interval"`
	OptimizeHour        int           `json:"optimize_hour" mapstructure:"optimize_hour"`
	BackupDir           string        `json:"backup_dir" mapstructure:"backup_dir"`
	ReportFile          string        `json:"report_file" mapstructure:"report_file"`
	PIDFile             string        `json:"pid_file" mapstructure:"pid_file"`
	Lanes               int           `json:"lanes" mapstructure:"lanes"`
	LogFormat           string        `json:"log_format" mapstructure:"log_format"`
}

// Config is the complete configuration of portguard
type Config struct {
	App    domain.AppConfiguration `json:"app" mapstructure:"app"`
	Daemon DaemonConfig            `json:"daemon" mapstructure:"daemon"`
}

// DefaultDaemonConfig returns the daemon settings used when nothing is set
func DefaultDaemonConfig() DaemonConfig {
	return DaemonConfig{
		DatabasePath:        "/var/lib/portguard/portguard.db",
		FirewallBackend:     "",
		ListenAddress:       "127.0.0.1:8970",
		MaintenanceInterval: time.Hour,
		OptimizeHour:        2,
		BackupDir:           "/var/lib/portguard/backups",
		ReportFile:          "/tmp/portguard.out",
		PIDFile:             "/var/run/portguard.pid",
		Lanes:               8,
		LogFormat:           "text",
	}
}

// Default returns the default configuration
func Default() Config {
	return Config{
		App:    domain.DefaultAppConfiguration(),
		Daemon: DefaultDaemonConfig(),
	}
}

// Load reads the configuration through the global viper instance, so cobra
// flags bound with viper.BindPFlag take precedence over the file.
func Load(path string) (Config, error) {
	return LoadWith(viper.GetViper(), path)
}

// LoadWith reads the configuration file at path into v, applies PORTGUARD_*
// environment overrides and validates the result. A missing file is only an
// error when path is not the default location.
func LoadWith(v *viper.Viper, path string) (Config, error) {
	if err := setDefaults(v); err != nil {
		return Config{}, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = DefaultPath
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if !(path == DefaultPath && errors.Is(err, fs.ErrNotExist)) {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks both the policy and the daemon settings
func (c Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}

	if c.Daemon.OptimizeHour < 0 || c.Daemon.OptimizeHour > 23 {
		return fmt.Errorf("%w: optimize hour must be between 0 and 23, got %d", domain.ErrInvalidConfiguration, c.Daemon.OptimizeHour)
	}

	if c.Daemon.MaintenanceInterval <= 0 {
		return fmt.Errorf("%w: maintenance interval must be positive", domain.ErrInvalidConfiguration)
	}

	if c.Daemon.DatabasePath == "" {
		return fmt.Errorf("%w: database path is required", domain.ErrInvalidConfiguration)
	}

	return nil
}

// Settings flattens the configuration into the key layout of the config file
func (c Config) Settings() (map[string]interface{}, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}

	var settings map[string]interface{}
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, err
	}

	if daemon, ok := settings["daemon"].(map[string]interface{}); ok {
		daemon["maintenance_interval"] = c.Daemon.MaintenanceInterval.String()
	}

	return settings, nil
}

// setDefaults registers every known key so environment overrides apply
func setDefaults(v *viper.Viper) error {
	settings, err := Default().Settings()
	if err != nil {
		return err
	}

	for section, values := range settings {
		for key, value := range values.(map[string]interface{}) {
			v.SetDefault(section+"."+key, value)
		}
	}

	return nil
}
