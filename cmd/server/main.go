package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"studioflow/internal/api"
	"studioflow/internal/availability"
	"studioflow/internal/billing"
	"studioflow/internal/config"
	"studioflow/internal/crew"
	"studioflow/internal/database"
	"studioflow/internal/events"
	"studioflow/internal/metrics"
	"studioflow/internal/whatsapp"
	"studioflow/shared/notify"
	"studioflow/shared/reports"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("STUDIOFLOW_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.NewBus()
	engine := availability.NewEngine(db, logger)
	suggester := crew.NewSuggester(db, engine)
	reportGen := reports.NewGenerator(db, func() reports.ExcelWriter {
		return reports.NewExcelizeWriter()
	}, logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	composer := whatsapp.Composer{StudioName: "StudioFlow"}
	if cfg.Notifications.Enabled && cfg.WhatsApp.Enabled {
		notifications := buildNotifications(cfg, db, rdb, composer, &logger)
		notifications.Start()
		defer notifications.Stop()
		registerNotificationHandlers(bus, db, notifications, composer, logger)
	} else {
		logger.Info().Msg("notifications disabled")
	}

	refresher := billing.NewRefresher(billing.RefresherConfig{
		Location:  cfg.BillingTimezone(),
		DailyHour: cfg.Scheduling.BillingRefreshHour,
	}, db, bus, logger)
	go refresher.Start(ctx)

	var renewals *billing.RenewalService
	if cfg.Payments.Enabled {
		gateway := billing.NewGatewayClient(cfg.Payments.BaseURL, cfg.Payments.APIKey)
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := gateway.HealthCheck(checkCtx); err != nil {
			logger.Warn().Err(err).Msg("payment gateway unreachable")
		}
		cancel()
		renewals = billing.NewRenewalService(gateway, db, billing.DefaultPlans(), bus, logger)
	}

	backup := database.NewBackupService(cfg.Database.Path, database.BackupConfig{
		Enabled:       cfg.Backup.Enabled,
		Interval:      cfg.BackupInterval(),
		StoragePath:   cfg.Backup.Path,
		RetentionDays: cfg.Backup.RetentionDays,
	}, &logger)
	go backup.Start(ctx)

	server := api.NewHTTPServer(api.Options{
		Port:         cfg.ServerPort(),
		APIKey:       cfg.Server.APIKey,
		MaxRangeDays: cfg.MaxAvailabilityRange(),
	}, db, engine, suggester, reportGen, renewals, bus, rdb, logger)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown error")
		}
	}()

	logger.Info().Msg("studioflow started")
	if err := server.Start(); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

// buildNotifications wires the WhatsApp bridge into the reminder queue.
func buildNotifications(cfg *config.Config, db *database.DB, rdb *redis.Client, composer whatsapp.Composer, logger *zerolog.Logger) *notify.Service {
	bridge := whatsapp.NewBridgeClient(cfg.WhatsApp.BaseURL, cfg.WhatsApp.APIKey, cfg.WhatsApp.SenderID)
	if rdb != nil {
		bridge.UseRedisCache(rdb, cfg.WhatsAppCacheTTL())
	}

	notifyMetrics := notify.NewMetrics("studioflow")
	notifyLogger := notify.NewZerologLogger(*logger)

	sender := notify.NewSender(bridge, db, notify.SenderConfig{
		RatePerSecond: cfg.Notifications.RatePerSecond,
		Burst:         cfg.Notifications.Burst,
		Retry:         notify.DefaultRetryConfig(),
	}, notifyMetrics, notifyLogger)

	return notify.NewService(&notify.Config{
		CheckInterval:       cfg.NotificationCheckInterval(),
		ReminderHoursBefore: cfg.Notifications.ReminderHoursBefore,
		MaxConcurrentSends:  cfg.Notifications.MaxConcurrentSends,
		RetentionDays:       cfg.Notifications.RetentionDays,
	}, db, db, sender, composer, notifyMetrics, notifyLogger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
