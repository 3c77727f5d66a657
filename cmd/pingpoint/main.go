package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"pingpoint/internal/adapter"
	"pingpoint/internal/config"
	"pingpoint/internal/domain"
	"pingpoint/internal/enrich"
	"pingpoint/internal/handler"
	"pingpoint/internal/hub"
	"pingpoint/internal/logging"
	"pingpoint/internal/metrics"
	"pingpoint/internal/netdetect"
	"pingpoint/internal/notify"
	"pingpoint/internal/repository"
	"pingpoint/internal/repository/jsonfile"
	"pingpoint/internal/repository/sqlite"
	"pingpoint/internal/service"
	"pingpoint/internal/watcher"
)

func main() {
	configPath := flag.String("config", "", "config file path (default: search standard locations)")
	addr := flag.String("addr", "", "HTTP listen address (overrides server.addr)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, path, err := loadConfig(*configPath)
	if err != nil {
		bootLogger := logging.New("info")
		bootLogger.Fatal().Err(err).Str("path", path).Msg("failed to load config")
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logger := logging.New(cfg.Log.Level)
	if !cfg.EdgeMax.Configured() && len(cfg.Subnets) == 0 {
		subnets, err := netdetect.PrivateSubnets()
		if err != nil {
			logger.Warn().Err(err).Msg("subnet detection failed")
		}
		cfg.Subnets = subnets
		logger.Info().Strs("subnets", subnets).Msg("no router or subnets configured, using detected subnets")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("invalid config")
	}
	if path == "" {
		logger.Warn().Msg("no config file found, using defaults")
	} else {
		logger.Info().Str("path", path).Msg("config loaded")
	}

	live := config.NewLive(cfg, path)
	m := metrics.New()

	store, err := openStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("failed to open snapshot store")
	}
	defer store.Close()

	eventBus := service.NewEventBus()
	fingerbank := enrich.NewFingerbankClient(cfg.Fingerbank.APIKey, cfg.Fingerbank.BaseURL, logger)

	inv := service.NewInventory(store,
		service.WithThreshold(cfg.OfflineDebounceScans),
		service.WithNotifier(notify.NewWebhookNotifier(logger)),
		service.WithProber(&liveProber{live: live, logger: logger}),
		service.WithEnricher(fingerbank),
		service.WithEventBus(eventBus),
		service.WithMetrics(m),
		service.WithLogger(logger),
	)
	if err := inv.LoadSnapshot(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to load snapshot, starting with an empty inventory")
	} else {
		logger.Info().Int("devices", len(inv.ListDevices())).Msg("snapshot loaded")
	}

	registry := adapter.NewRegistry(func(ctx context.Context, source string, records []domain.DiscoveryRecord) {
		result := inv.Reconcile(ctx, records, live.Get().HomeAssistant.WebhookURL)
		logger.Info().Str("source", source).Int("seen", result.Seen).Int("events", len(result.Events)).Msg("scan reconciled")
	}, cfg.ScanInterval.Duration(), m, logger)

	if err := registerScanners(registry, live, logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to register scanners")
	}
	if err := registry.SetDefault(cfg.ScanSource); err != nil {
		logger.Fatal().Err(err).Msg("invalid scan source")
	}
	if err := registry.SetSchedule(cfg.ScanInterval.Duration(), cfg.ScanSchedule); err != nil {
		logger.Fatal().Err(err).Msg("invalid scan schedule")
	}

	live.OnChange(func(c *config.Config) {
		inv.SetThreshold(c.OfflineDebounceScans)
		fingerbank.SetCredentials(c.Fingerbank.APIKey, c.Fingerbank.BaseURL)
		if err := registry.SetSchedule(c.ScanInterval.Duration(), c.ScanSchedule); err != nil {
			logger.Error().Err(err).Msg("failed to apply scan schedule")
		}
		if err := registry.SetDefault(c.ScanSource); err != nil {
			logger.Error().Err(err).Msg("failed to apply scan source")
		}
		logger.Info().Msg("configuration applied")
	})

	if path != "" {
		w := watcher.New(path, func() { reloadConfig(live, path, logger) }, logger)
		go func() {
			if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("config watcher stopped")
			}
		}()
	}

	sseHub := hub.New(logger)
	go sseHub.Run(ctx)
	eventChan := make(chan domain.Event, 100)
	eventBus.Subscribe(eventChan)
	go sseHub.Forward(ctx, eventChan)

	registry.Start(ctx)

	h := handler.New(inv, registry, live, logger,
		handler.WithEvents(sseHub),
		handler.WithMetrics(m),
	)
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}

	registry.Stop()
	if err := inv.SaveSnapshot(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to save snapshot on shutdown")
	}

	logger.Info().Msg("stopped")
}

func loadConfig(explicit string) (*config.Config, string, error) {
	if explicit != "" {
		return config.LoadFromPath(explicit)
	}
	return config.Load()
}

// reloadConfig applies an edited config file. An invalid edit is logged and
// the running config is kept.
func reloadConfig(live *config.Live, path string, logger zerolog.Logger) {
	cfg, _, err := config.LoadFromPath(path)
	if err != nil {
		logger.Error().Err(err).Msg("failed to reload config")
		return
	}
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("reloaded config is invalid, keeping current")
		return
	}
	live.Set(cfg)
}

func openStore(cfg config.StorageConfig) (repository.SnapshotStore, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		store, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return jsonfile.New(cfg.Path), nil
	}
}
