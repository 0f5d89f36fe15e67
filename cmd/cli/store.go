package cli

import (
	"github.com/kondukto-io/portguard/internal/config"
	"github.com/kondukto-io/portguard/internal/core/port/rule"
	firewallUC "github.com/kondukto-io/portguard/internal/core/usecase/firewall"
	"github.com/kondukto-io/portguard/internal/repository/firewall"
	"github.com/kondukto-io/portguard/internal/repository/store"
)

// openStore opens the configured database or quits
func openStore(cfg config.Config) *store.SQLiteAdapter {
	db, err := store.NewSQLiteAdapter(cfg.Daemon.DatabasePath)
	if err != nil {
		qwe(exitCodeError, err, "failed to open store")
	}

	return db
}

// newRuleManager returns the rule manager over the configured firewall backend or quits
func newRuleManager(cfg config.Config, db *store.SQLiteAdapter) rule.UseCase {
	surface, err := firewall.New(cfg.Daemon.FirewallBackend)
	if err != nil {
		qwe(exitCodeError, err, "failed to initialize firewall")
	}

	var opts = firewallUC.Options{Backuper: db}
	if cfg.App.BackupRulesOnChange {
		opts.BackupDir = cfg.Daemon.BackupDir
	}

	return firewallUC.New(surface, db, opts)
}
