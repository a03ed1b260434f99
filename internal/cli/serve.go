package cli

import (
	"context"
	goerrors "errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/kleinvault/kleinvault/internal/api"
	"github.com/kleinvault/kleinvault/internal/browser"
	"github.com/kleinvault/kleinvault/internal/config"
	apperrors "github.com/kleinvault/kleinvault/internal/errors"
	"github.com/kleinvault/kleinvault/internal/logging"
	"github.com/kleinvault/kleinvault/internal/metrics"
	"github.com/kleinvault/kleinvault/internal/notify"
	"github.com/kleinvault/kleinvault/internal/orchestrator"
	"github.com/kleinvault/kleinvault/internal/profile"
	"github.com/kleinvault/kleinvault/internal/store"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s", "server", "run"},
	Short:   "Start the KleinVault server",
	Long: `Start the KleinVault server in main mode.

This command starts the HTTP server that accepts credential submissions,
schedules interactive login sessions and serves the accounts registry.

Example:
  kleinvault serve --config config.yaml --db ./data/accounts.db`,
	RunE: runServe,
}

var serveFlags struct {
	Host    string
	Port    int
	Timeout time.Duration
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.Host, "host", "", "Server host (overrides config)")
	serveCmd.Flags().IntVar(&serveFlags.Port, "port", 0, "Server port (overrides config)")
	serveCmd.Flags().DurationVar(&serveFlags.Timeout, "timeout", 30*time.Second, "Shutdown timeout")

	RootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if globalFlags.Verbose {
		log.Println("Starting KleinVault server...")
		log.Printf("Config path: %s", globalFlags.Config)
	}

	loader := config.NewLoader(globalFlags.Config)
	cfg, err := loader.Load()
	if err != nil {
		var notFound *apperrors.ErrConfigNotFound
		if !goerrors.As(err, &notFound) {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = config.Default()
		if globalFlags.Verbose {
			log.Printf("Config file not found, using defaults")
		}
	}

	if serveFlags.Host != "" {
		cfg.Server.Host = serveFlags.Host
	}
	if serveFlags.Port != 0 {
		cfg.Server.HTTPPort = serveFlags.Port
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Server.ShutdownTimeout = serveFlags.Timeout
	}

	logger := logging.NewLogger(
		logging.WithLevel(logging.LogLevel(cfg.Server.LogLevel)),
	)

	dbPath := cfg.Storage.DBPath
	if cmd.Flags().Changed("db") {
		dbPath = globalFlags.DBPath
	}

	profiles := profile.NewAllocator(cfg.Browser.ProfileRoot)

	sqliteStore, err := store.NewSQLiteStore(dbPath, store.Options{
		ProfilePath: profiles.Path,
		Logger:      logger,
		Retention: store.RetentionPolicy{
			Enabled:  cfg.Storage.Retention.Enabled,
			MaxAge:   cfg.Storage.Retention.MaxAge,
			Interval: cfg.Storage.Retention.Interval,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create SQLite store: %w", err)
	}

	if cfg.Storage.SeedDemoData {
		if err := sqliteStore.SeedDemoData(); err != nil {
			logger.Warn("demo data seeding failed", "error", err.Error())
		}
	}

	if globalFlags.Verbose {
		log.Printf("Database initialized at: %s", dbPath)
		log.Printf("Profile root: %s", profiles.Root())
	}

	m := metrics.NewMetrics("kleinvault")

	driver := browser.NewChromeDriver(
		browser.WithExecPath(cfg.Browser.ExecPath),
		browser.WithLocale(cfg.Browser.Locale),
		browser.WithDefaultDevice(cfg.Browser.DefaultDevice),
		browser.WithLogger(logger),
	)

	var notifier notify.Notifier = notify.Noop{}
	if cfg.Telegram.Enabled {
		notifier = notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)
	}

	orch := orchestrator.New(sqliteStore, driver, profiles, orchestrator.Config{
		LoginURL:        cfg.Browser.LoginURL,
		LoginMarker:     cfg.Browser.LoginMarker,
		DefaultDevice:   cfg.Browser.DefaultDevice,
		HeadlessTimeout: cfg.Browser.HeadlessTimeout,
	},
		orchestrator.WithLogger(logger),
		orchestrator.WithMetrics(m),
		orchestrator.WithNotifier(notifier),
	)

	server := api.NewServer(cfg.Server, cfg.API, sqliteStore, orch,
		api.WithLogger(logger),
		api.WithMetrics(m),
	)

	loader.SetOnChange(func(updated *config.Config) {
		logger.Info("configuration reloaded", "version", updated.Version)
	})
	if err := loader.StartWatcher(); err != nil {
		logger.Warn("config watcher not started", "error", err.Error())
	}
	defer loader.StopWatcher()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run()
	}()

	sigCh := api.SetupSignalHandler()

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Open browser windows are force-closed; jobs parked in
	// waiting_for_user stay there and are visible after restart.
	if err := orch.Close(ctx); err != nil {
		logger.Warn("orchestrator shutdown incomplete", "error", err.Error())
	}

	return server.Shutdown(ctx)
}
