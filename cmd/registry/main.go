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

	"github.com/agentmanifest/registry/internal/api"
	"github.com/agentmanifest/registry/internal/catalog"
	"github.com/agentmanifest/registry/internal/config"
	"github.com/agentmanifest/registry/internal/github"
	"github.com/agentmanifest/registry/internal/listing"
	"github.com/agentmanifest/registry/internal/middleware"
	"github.com/agentmanifest/registry/internal/submission"
	"github.com/agentmanifest/registry/internal/sync"
	"github.com/agentmanifest/registry/internal/token"
	"github.com/agentmanifest/registry/internal/validator"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("starting agent manifest registry",
		"catalog_enabled", cfg.CatalogEnabled(),
		"probe_timeout", cfg.ProbeTimeout,
		"token_validity", cfg.TokenValidity,
	)

	// Credential issuer for passing validations
	issuer, err := token.NewIssuer(cfg.TokenSecret, cfg.TokenValidity, "")
	if err != nil {
		return fmt.Errorf("failed to initialize token issuer: %w", err)
	}

	// Validation engine
	engine := validator.New(validator.Config{
		Probe:               validator.NewProbe(cfg.ProbeTimeout, logger),
		Issuer:              issuer,
		BoilerplatePatterns: cfg.BoilerplatePatterns,
		Logger:              logger,
	})

	// Catalog-backed listing store, or an empty runtime-only store in
	// validate-only mode.
	var catalogStore *catalog.Store
	var catalogInfo api.CatalogInfo

	if cfg.CatalogEnabled() {
		ghAuth, err := github.NewAppAuth(
			cfg.GitHubAppID,
			cfg.GitHubAppPrivateKey,
			cfg.GitHubInstallationID,
		)
		if err != nil {
			return fmt.Errorf("failed to initialize GitHub App auth: %w", err)
		}

		catalogStore, err = catalog.New(catalog.Config{
			RepoURL:   cfg.CatalogRepoURL,
			Branch:    cfg.CatalogBranch,
			LocalPath: cfg.DataPath,
			Auth:      ghAuth,
			Logger:    logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create catalog store: %w", err)
		}

		cloneCtx, cloneCancel := context.WithTimeout(context.Background(), cfg.CloneTimeout)
		defer cloneCancel()

		logger.Info("cloning catalog repository", "timeout", cfg.CloneTimeout)
		if err := catalogStore.Clone(cloneCtx); err != nil {
			logger.Error("failed to clone catalog repository",
				"error", err,
				"repo_url", cfg.CatalogRepoURL,
				"timeout", cfg.CloneTimeout,
			)
			return fmt.Errorf("failed to clone catalog within %s: %w", cfg.CloneTimeout, err)
		}
		logger.Info("catalog cloned", "commit", catalogStore.CurrentCommit())
		catalogInfo = catalogStore
	}

	var listingCatalog listing.Catalog
	if catalogStore != nil {
		listingCatalog = catalogStore
	}
	listings, err := listing.New(listing.Config{
		Catalog:   listingCatalog,
		CacheSize: cfg.CacheSize,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize listing store: %w", err)
	}

	if cfg.CatalogEnabled() {
		if err := listings.LoadCatalog(); err != nil {
			logger.Error("failed to load index.yaml",
				"error", err,
				"message", "index.yaml is required - ensure CI generates it on merge",
			)
			return fmt.Errorf("failed to load catalog index: %w", err)
		}
		logger.Info("catalog index loaded", "listing_count", listings.Count())
	}

	// Background workers
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	// Submission tracker with TTL eviction
	submissions := submission.NewTracker(submission.DefaultTTL, logger)
	go submissions.Start(workerCtx)

	var webhook http.Handler
	if cfg.CatalogEnabled() {
		syncMgr := sync.NewManager(sync.Config{
			Store:        catalogStore,
			Listings:     listings,
			Engine:       engine,
			PollInterval: cfg.PollInterval,
			Debounce:     10 * time.Second,
			Logger:       logger,
		})
		go syncMgr.Start(workerCtx)

		webhook = sync.NewWebhookHandler(cfg.WebhookSecret, syncMgr, cfg.CatalogBranch, logger)
	}

	// Initialize observability
	shutdownTracer, err := middleware.InitTracer(cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	}

	// Initialize API router
	handlers := api.NewHandlers(engine, listings, submissions, catalogInfo, logger)
	router := api.NewRouter(handlers, webhook)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      middleware.Chain(router, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	workerCancel() // Stop sync manager and submission janitor

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if shutdownTracer != nil {
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown error", "error", err)
		}
	}

	logger.Info("server stopped gracefully")
	return nil
}
