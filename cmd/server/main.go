package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/AayuseX11/Ydlcoredownload/internal/api"
	"github.com/AayuseX11/Ydlcoredownload/internal/api/handler"
	"github.com/AayuseX11/Ydlcoredownload/internal/config"
	"github.com/AayuseX11/Ydlcoredownload/internal/downloader"
	"github.com/AayuseX11/Ydlcoredownload/internal/metrics"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ydlcore %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level, _ := cfg.Log.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting ydlcore",
		"version", Version,
		"build_time", BuildTime,
		"engine", cfg.Extractor.Engine,
	)

	// yt-dlp checks for updates on every run unless told otherwise.
	if cfg.YTDLP.NoUpdate {
		os.Setenv("YTDL_NO_UPDATE", "1")
	}

	extractor, err := downloader.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize extractor", "error", err)
		os.Exit(1)
	}

	m := metrics.New(nil)

	// Initialize handlers
	downloadHandler := handler.NewDownloadHandler(extractor, m, logger)
	healthHandler := handler.NewHealthHandler(extractor.Name())
	usageHandler := handler.NewUsageHandler(extractor.Name())

	// Setup router
	router := api.NewRouter(downloadHandler, healthHandler, usageHandler, m.Handler())

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Graceful shutdown. In-flight downloads get until the timeout to finish.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
