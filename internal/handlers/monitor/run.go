package monitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/kondukto-io/portguard/internal/config"
	"github.com/kondukto-io/portguard/internal/core/port/endpoint"
	catalogUC "github.com/kondukto-io/portguard/internal/core/usecase/catalog"
	firewallUC "github.com/kondukto-io/portguard/internal/core/usecase/firewall"
	sampler "github.com/kondukto-io/portguard/internal/core/usecase/monitor"
	orchestratorUC "github.com/kondukto-io/portguard/internal/core/usecase/orchestrator"
	riskUC "github.com/kondukto-io/portguard/internal/core/usecase/risk"
	"github.com/kondukto-io/portguard/internal/handlers/api"
	"github.com/kondukto-io/portguard/internal/notifier"
	"github.com/kondukto-io/portguard/internal/repository/endpoints"
	"github.com/kondukto-io/portguard/internal/repository/firewall"
	"github.com/kondukto-io/portguard/internal/repository/store"
	"github.com/kondukto-io/portguard/internal/telemetry"
	"github.com/kondukto-io/portguard/pkg/logger"
	"github.com/kondukto-io/portguard/pkg/reporter"
	"github.com/kondukto-io/portguard/pkg/utils"
)

// Run starts the daemon and blocks until it receives a termination signal
func Run(cfg config.Config) error {
	if cfg.Daemon.FirewallBackend != firewall.BackendMemory && !utils.IsRoot() {
		return errors.New("you need root privileges to run this program")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)
	defer stop()

	return run(ctx, cfg, endpoints.New())
}

func run(ctx context.Context, cfg config.Config, enumerator endpoint.Enumerator) error {
	telemetry.InitMetrics()

	db, err := store.NewSQLiteAdapter(cfg.Daemon.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer db.Close()

	surface, err := firewall.New(cfg.Daemon.FirewallBackend)
	if err != nil {
		return err
	}

	var ruleOpts = firewallUC.Options{Backuper: db}
	if cfg.App.BackupRulesOnChange {
		ruleOpts.BackupDir = cfg.Daemon.BackupDir
	}

	var (
		catalog    = catalogUC.New(db)
		classifier = riskUC.New(catalog)
		rules      = firewallUC.New(surface, db, ruleOpts)
		hub        = api.NewHub(cfg.App)
		surfaces   = notifier.NewFanout(ctx, notifier.NewLog(cfg.App.EnableNotifications), hub)
	)

	decider, err := orchestratorUC.NewRegoDecider(cfg.App.RequireConfirmationForCriticalActions)
	if err != nil {
		return err
	}

	var deps = orchestratorUC.Dependencies{
		Classifier: classifier,
		Catalog:    catalog,
		Store:      db,
		Notifier:   surfaces,
		Rules:      rules,
		Decider:    decider,
	}

	report := reporter.NewReporter(cfg.Daemon.ReportFile)
	if report.Err != nil {
		logger.Log.Warnf("event report disabled: %v", report.Err)
	} else {
		deps.Recorder = report
		defer report.Close()
	}

	orchestrator := orchestratorUC.New(deps, cfg.App, orchestratorUC.Options{
		Lanes:               cfg.Daemon.Lanes,
		MaintenanceInterval: cfg.Daemon.MaintenanceInterval,
		OptimizeHour:        &cfg.Daemon.OptimizeHour,
	})

	if err := orchestrator.Prepare(ctx); err != nil {
		return err
	}

	monitor := sampler.New(enumerator, sampler.OptionsFromConfig(cfg.App))
	if cfg.App.EnableRealTimeMonitoring {
		if err := monitor.Start(ctx); err != nil {
			return fmt.Errorf("failed to start monitoring: %w", err)
		}
		defer monitor.Stop()
	} else {
		logger.Log.Warn("real time monitoring is disabled")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return orchestrator.Run(gctx, monitor.Events(), surfaces.Actions())
	})

	g.Go(func() error {
		return orchestrator.RunMaintenance(gctx)
	})

	if cfg.Daemon.ListenAddress != "" {
		server := &api.Server{
			Hub:     hub,
			Events:  db,
			Rules:   rules,
			Monitor: monitor,
		}

		g.Go(func() error {
			return server.ListenAndServe(gctx, cfg.Daemon.ListenAddress)
		})
	}

	logger.Log.Infof("portguard started (store: %s)", cfg.Daemon.DatabasePath)

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Log.Info("portguard stopped")
	return nil
}
