package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lysyi3m/buzz-comb/app/api"
	"github.com/lysyi3m/buzz-comb/app/cfg"
	"github.com/lysyi3m/buzz-comb/app/service"
	"github.com/lysyi3m/buzz-comb/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appCfg == nil {
		return
	}

	setupLogging(appCfg.Debug)

	slog.Info("Starting Buzz Comb server", "version", appCfg.Version)

	svc, err := service.Open(context.Background(), appCfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer svc.Close()

	scheduler, err := tasks.NewScheduler(svc.ConfigCache, svc.Tasks, tasks.SchedulerOptions{
		Interval:       time.Duration(appCfg.SchedulerInterval) * time.Second,
		WorkerCount:    appCfg.WorkerCount,
		ExportSchedule: appCfg.ExportSchedule,
		Location:       appCfg.Location(),
	})
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval", appCfg.SchedulerInterval, "export_schedule", appCfg.ExportSchedule)
	scheduler.Start()
	defer scheduler.Stop()

	if !appCfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := api.NewHandler(svc.ConfigCache, svc.TopicRepo, svc.ItemRepo, svc.Cache, scheduler, appCfg.Version, appCfg.BaseUrl, appCfg.Location())
	router := api.NewServer(handler, appCfg.APIAccessKey, promhttp.HandlerFor(svc.Registry, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port, "base_url", appCfg.BaseUrl)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Buzz Comb server shutdown complete")
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}
