package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/csg33k/freight-reports/internal/adapters/pdf"
	sqliteadapter "github.com/csg33k/freight-reports/internal/adapters/sqlite"
	"github.com/csg33k/freight-reports/internal/adapters/xlsx"
	"github.com/csg33k/freight-reports/internal/adapters/xolog"
	"github.com/csg33k/freight-reports/internal/config"
	"github.com/csg33k/freight-reports/internal/dashboard"
	"github.com/csg33k/freight-reports/internal/handlers"
	"github.com/csg33k/freight-reports/internal/ports"
	"github.com/csg33k/freight-reports/internal/syncer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := sqliteadapter.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer repo.Close()
	if cfg.AutoMigrate {
		if err := repo.Migrate(ctx); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
	}

	backend, err := xolog.New(xolog.Config{
		BaseURL:           cfg.APIURL,
		Email:             cfg.APIEmail,
		Password:          cfg.APIPassword,
		Timeout:           cfg.APITimeout,
		TokenTTL:          cfg.TokenTTL,
		DetailConcurrency: cfg.DetailConcurrency,
		Logger:            logger,
	})
	if err != nil {
		log.Fatalf("failed to configure backend client: %v", err)
	}

	svc := dashboard.NewService(dashboard.DefaultRegistry(), backend, repo, repo,
		map[string]ports.Exporter{
			"xlsx": xlsx.New(logger),
			"pdf":  pdf.New(),
		}, logger)

	// with SYNC_INTERVAL=0 the scheduler only runs passes queued from the UI
	scheduler := syncer.New(svc, cfg.SyncInterval, logger)
	scheduler.Start(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.New(svc, repo, scheduler, logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server.start", "addr", "http://localhost:"+cfg.Port, "db", cfg.DBPath, "backend", cfg.APIURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	logger.Info("server.shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server.shutdown_error", "error", err)
	}
	scheduler.Shutdown(5 * time.Second)
}
