package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/engagehub/submission/internal/auth"
	"github.com/engagehub/submission/internal/blobstore"
	"github.com/engagehub/submission/internal/config"
	"github.com/engagehub/submission/internal/core"
	"github.com/engagehub/submission/internal/logging"
	"github.com/engagehub/submission/internal/store"
	"github.com/engagehub/submission/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"blob_endpoint", cfg.Blob.Endpoint,
	)

	ctx := context.Background()
	pool, err := store.Connect(ctx, cfg.Database.URL, store.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	blobs, err := newBlobStore(ctx, cfg.Blob)
	if err != nil {
		slog.Error("failed to initialize blob storage", "error", err)
		os.Exit(1)
	}

	stores := store.New(pool)

	issuer, err := auth.NewTokenIssuer([]byte(cfg.Auth.JWTSecret), auth.IssuerOptions{
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
	})
	if err != nil {
		slog.Error("failed to create token issuer", "error", err)
		os.Exit(1)
	}
	authSvc := auth.NewService(stores.Users, issuer, stores.Audit)

	service := core.NewService(stores.Core(blobs), core.Options{
		MaxFileSize:       cfg.Upload.MaxFileSize,
		MaxRows:           cfg.Upload.MaxRows,
		BatchSize:         cfg.Upload.BatchSize,
		AllowedExtensions: cfg.Upload.AllowedExtensions,
		MaxConcurrent:     cfg.Upload.MaxConcurrent,
		MaxWaitTime:       cfg.Upload.MaxWaitTime,
	})

	server := web.NewServer(service, authSvc, stores.Audit)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active uploads to finish before closing the listener
		if status := service.Limiter().Status(); status.Active > 0 {
			slog.Info("waiting for uploads to complete", "active", status.Active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("uploads did not complete in time", "error", err)
			} else {
				slog.Info("all uploads completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	err = server.Start(cfg.Server.Addr(), web.Timeouts{
		Read:  cfg.Server.ReadTimeout,
		Write: cfg.Server.WriteTimeout,
		Idle:  cfg.Server.IdleTimeout,
	})
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// newBlobStore picks the upload storage backend: an S3-compatible bucket
// when an endpoint is configured, an in-process store otherwise.
func newBlobStore(ctx context.Context, cfg config.BlobConfig) (core.BlobStore, error) {
	if cfg.Endpoint == "" {
		slog.Warn("no blob endpoint configured, storing uploads in memory")
		return blobstore.NewMemory(), nil
	}

	m, err := blobstore.NewMinio(blobstore.MinioOptions{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		UseSSL:    cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	if err := m.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	slog.Info("blob storage ready", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
	return m, nil
}
