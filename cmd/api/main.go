package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/pediatric-clinic-api/config"
	"github.com/jwalitptl/pediatric-clinic-api/internal/app"
	"github.com/jwalitptl/pediatric-clinic-api/internal/repository/mongodb"
	"github.com/jwalitptl/pediatric-clinic-api/internal/service/notification"
	"github.com/jwalitptl/pediatric-clinic-api/internal/worker"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/email"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/logger"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/metrics"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/ratelimit"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/storage"
	"github.com/jwalitptl/pediatric-clinic-api/pkg/telegram"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Setup(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	client, db, err := mongodb.Connect(ctx, cfg.Secrets.MongoURI, cfg.Mongo.Database, cfg.Mongo.ConnectTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}()

	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to create indexes")
	}

	m := metrics.NewMetrics("clinic")
	repos := mongodb.NewRepositories(db, m)

	assets, err := newStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize asset storage")
	}

	notifier := notification.NewService(
		email.NewClient(email.Config{
			Enabled:  cfg.Email.Enabled,
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Secrets.SMTPUser,
			Password: cfg.Secrets.SMTPPassword,
			From:     cfg.Email.From,
			Timeout:  cfg.Email.Timeout,
		}),
		telegram.NewClient(telegram.Config{
			Enabled:  cfg.Telegram.Enabled,
			BotToken: cfg.Secrets.TelegramBotToken,
			ChatID:   cfg.Secrets.TelegramChatID,
			BaseURL:  cfg.Telegram.BaseURL,
			Timeout:  cfg.Telegram.Timeout,
		}),
		m,
	)

	limits, closeLimits := newLimitStore(ctx, cfg)
	defer closeLimits()

	a := app.New(app.Deps{
		Config:     cfg,
		Repos:      repos,
		Assets:     storage.Instrument(assets, m),
		Notifier:   notifier,
		Limits:     limits,
		DB:         mongodb.Pinger{Client: client},
		Metrics:    m,
		Registerer: prometheus.DefaultRegisterer,
		Gatherer:   prometheus.DefaultGatherer,
	})

	cleanup := worker.NewAuditCleanupWorker(a.Audit, cfg.Audit.RetentionDays, cfg.Audit.CleanupInterval)
	go cleanup.Start(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      a.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Let queued emails and alerts finish before the process exits.
	notifier.Wait()
	log.Info().Msg("server exited")
}

func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.Storage.Driver == "s3" {
		return storage.NewS3Store(ctx, storage.S3Config{
			Endpoint:        cfg.Storage.Endpoint,
			Region:          cfg.Storage.Region,
			Bucket:          cfg.Storage.Bucket,
			AccessKeyID:     cfg.Secrets.S3AccessKeyID,
			SecretAccessKey: cfg.Secrets.S3SecretAccessKey,
			PublicBaseURL:   cfg.Storage.PublicBaseURL,
			UsePathStyle:    cfg.Storage.UsePathStyle,
		})
	}
	return storage.NewLocalStore(cfg.Server.UploadsDir, cfg.App.PublicURL+"/uploads")
}

// newLimitStore shares rate limit windows through Redis when REDIS_URL is set
// and falls back to process memory otherwise.
func newLimitStore(ctx context.Context, cfg *config.Config) (ratelimit.Store, func()) {
	if cfg.Secrets.RedisURL != "" {
		rdb, err := ratelimit.NewRedisClient(ctx, cfg.Secrets.RedisURL)
		if err == nil {
			log.Info().Msg("rate limiting with redis")
			return ratelimit.NewRedisStore(rdb, "ratelimit:"), func() { _ = rdb.Close() }
		}
		log.Warn().Err(err).Msg("redis unavailable, rate limiting in memory")
	}

	mem := ratelimit.NewMemoryStore(cfg.RateLimit.SweepInterval)
	return mem, mem.Close
}
