package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/softstake/softstake_service/internal/api/routes"
	"github.com/softstake/softstake_service/internal/infrastructure/config"
	"github.com/softstake/softstake_service/internal/infrastructure/database"
	"github.com/softstake/softstake_service/internal/infrastructure/di"
	"github.com/softstake/softstake_service/internal/workers/volume_refresh"
	"github.com/softstake/softstake_service/pkg/graceful"
	"github.com/softstake/softstake_service/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)
	defer log.Sync()

	if err := database.RunMigrations(cfg.Database.URL); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	container, err := di.NewContainer(cfg, log)
	if err != nil {
		log.Fatal("Failed to build container", "error", err)
	}

	router := routes.SetupRoutes(container)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	shutdown := graceful.NewShutdownManager(server, container.Close, log)

	if cfg.Workers.VolumeRefreshEnabled {
		worker := volume_refresh.NewWorker(
			container.CommunityRepo,
			container.CommunityService,
			cfg.Workers.VolumeRefreshCron,
			log,
		)
		if err := worker.Start(context.Background()); err != nil {
			log.Fatal("Failed to start volume refresh worker", "error", err)
		}
		shutdown.Register(worker)
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", "error", err)
		}
	}()

	shutdown.WaitForShutdown()
}
