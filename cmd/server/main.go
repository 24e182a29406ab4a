package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/solidsystems/qr-trackr/pkg/adapters/cache"
	"github.com/solidsystems/qr-trackr/pkg/adapters/handler"
	"github.com/solidsystems/qr-trackr/pkg/adapters/qrimage"
	"github.com/solidsystems/qr-trackr/pkg/adapters/repository/sqlite"
	"github.com/solidsystems/qr-trackr/pkg/config"
	"github.com/solidsystems/qr-trackr/pkg/core/services"
	"github.com/solidsystems/qr-trackr/pkg/logger"
	"github.com/solidsystems/qr-trackr/pkg/ports"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.AppEnv, cfg.LogLevel)

	if cfg.IPHashKey == "" {
		logger.Warn().Msg("IP_HASH_KEY is empty, scan IP hashes are unkeyed")
	}

	// Initialize Repository
	repo, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Services
	qrService := services.NewQRCodeService(repo, cfg.BaseURL, cfg.FallbackURL, cfg.IPHashKey)
	postService := services.NewPostService(repo)
	scanQueue := services.NewScanQueue(qrService, cfg.ScanWorkers, cfg.ScanBuffer)

	var imageCache ports.ImageCache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisImageCache(ctx, cfg.RedisURL, cache.DefaultImageTTL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, QR images will not be cached")
		} else {
			defer rc.Close()
			imageCache = rc
		}
	}

	monitor := services.NewDestinationMonitor(repo, cfg.MonitorInterval)
	go monitor.Run(ctx)

	// Initialize Router
	mux := handler.NewRouter(cfg, handler.Deps{
		QRCodes: qrService,
		Posts:   postService,
		Scans:   scanQueue,
		Images:  qrimage.NewGenerator(imageCache),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("base_url", cfg.BaseURL).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	// Handlers are done enqueueing, drain the remaining scans.
	if err := scanQueue.Close(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("scan queue did not drain")
	}
	logger.Info().Msg("server stopped")
}
