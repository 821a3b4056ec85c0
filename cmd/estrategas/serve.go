// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"estrategas/internal/access"
	"estrategas/internal/auth"
	"estrategas/internal/cache"
	"estrategas/internal/config"
	"estrategas/internal/content"
	"estrategas/internal/database"
	"estrategas/internal/handlers"
	"estrategas/internal/middleware"
	"estrategas/internal/render"
	"estrategas/internal/router"
	"estrategas/internal/session"
	"estrategas/internal/storage"
	"estrategas/internal/store"
	"estrategas/internal/upload"
)

// serve wires every dependency and runs the HTTP server until SIGINT or
// SIGTERM, then drains connections.
func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	slog.Info("configuration loaded", "env", cfg.Env, "addr", cfg.Addr())

	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(ctx, db); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	// Sessions and the page cache share one KV.
	var kv cache.KV
	if cfg.UseValkey() {
		client, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
		if err != nil {
			return err
		}
		defer client.Close()
		kv = cache.NewValkey(client)
	} else {
		slog.Warn("valkey not configured, sessions and page cache kept in memory")
		kv = cache.NewMemory()
	}

	// In non-development environments, mark cookies as Secure (HTTPS-only).
	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(kv, secureCookies)

	renderer, err := render.New()
	if err != nil {
		return fmt.Errorf("init templates: %w", err)
	}

	bucket, memBucket, err := openBucket(ctx, cfg)
	if err != nil {
		return err
	}

	postStore := store.NewPostStore(db)
	profileStore := store.NewProfileStore(db)
	sectionStore := store.NewSectionStore(db)
	identityStore := store.NewIdentityStore(db)

	repo := content.NewRepository(postStore, profileStore, sectionStore, content.WithTimeout(cfg.StoreTimeout))
	pipeline := upload.NewPipeline(bucket,
		upload.WithMaxSize(cfg.UploadMaxBytes),
		upload.WithConcurrency(cfg.UploadConcurrency),
	)
	pageCache := cache.NewPageCache(kv, cfg.PageCacheTTL)

	registry := access.NewRegistry()
	sweeper, err := registry.StartSweeper(cfg.GateSweep, cfg.GateMaxIdle)
	if err != nil {
		return err
	}
	defer sweeper.Stop()

	proxies, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		return err
	}
	limiter := middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow, middleware.WithTrustedProxies(proxies...))
	defer limiter.Stop()

	r := router.New(router.Deps{
		Sessions:      sessionStore,
		Registry:      registry,
		Profiles:      profileStore,
		Limiter:       limiter,
		Uploads:       memBucket,
		SecureCookies: secureCookies,
		Public:        handlers.NewPublic(renderer, sessionStore, repo, pageCache),
		Auth:          handlers.NewAuth(renderer, sessionStore, auth.NewService(identityStore), registry),
		Admin:         handlers.NewAdmin(renderer, sessionStore, repo, pipeline, pageCache),
	})

	// WriteTimeout covers admin saves that upload several images.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr(), "base_url", cfg.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	// Give active requests up to 30 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// openBucket returns the configured object store. With no driver set it
// returns an in-memory bucket, also returned as memBucket so the router
// can serve its objects.
func openBucket(ctx context.Context, cfg *config.Config) (bucket storage.Bucket, memBucket *storage.Memory, err error) {
	switch cfg.StorageDriver {
	case config.StorageS3:
		s3, err := storage.NewS3(storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			return nil, nil, err
		}
		slog.Info("s3 storage configured", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
		return s3, nil, nil

	case config.StorageMinIO:
		mc, err := storage.NewMinIO(storage.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
			PublicURL: cfg.MinIOPublicURL,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := mc.EnsureBucket(ctx); err != nil {
			return nil, nil, err
		}
		slog.Info("minio storage configured", "endpoint", cfg.MinIOEndpoint, "bucket", cfg.MinIOBucket)
		return mc, nil, nil

	default:
		slog.Warn("object storage not configured, uploads kept in memory")
		mem := storage.NewMemory(cfg.BaseURL + "/uploads")
		return mem, mem, nil
	}
}
