package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/modsearch/internal/api"
	"github.com/dgallion1/modsearch/internal/config"
	"github.com/dgallion1/modsearch/internal/pipeline"
	"github.com/dgallion1/modsearch/internal/platform"
	"github.com/dgallion1/modsearch/internal/search"
	"github.com/dgallion1/modsearch/internal/store"
)

func main() {
	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))

	if err := cfg.ValidateServer(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.New(nil, cfg.OutputDir, cfg.ModuleListFilename)

	// Refresh is only available when platform credentials are configured.
	var (
		pc     *platform.Client
		remote pipeline.Remote
	)
	if err := cfg.ValidateRemote(); err != nil {
		log.Warn("platform client disabled, searching local definitions only", "reason", err)
	} else {
		pc = platform.NewClient(platform.ClientConfig{
			BaseURL:           cfg.BaseURL,
			DefinitionBaseURL: cfg.DefinitionBaseURL,
			GrantType:         cfg.GrantType,
			Username:          cfg.Username,
			Password:          cfg.Password,
			ClientID:          cfg.ClientID,
			ClientSecret:      cfg.ClientSecret,
			HTTPProxy:         cfg.HTTPProxy,
			HTTPSProxy:        cfg.HTTPSProxy,
			Timeout:           cfg.RequestTimeout,
		}, log)
		remote = pc
	}

	// Initialize pipeline.
	runner := pipeline.NewRunner(remote, st, search.NewSearcher(cfg.SearchOptions()), cfg.ApplicationID, cfg.DownloadConcurrency, log)
	orch := pipeline.NewOrchestrator(cfg, runner, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, st, pc, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if pc != nil {
			pc.Close()
		}
	}()

	log.Info("starting modsearch", "port", cfg.Port, "application_id", cfg.ApplicationID, "refresh_enabled", pc != nil)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
