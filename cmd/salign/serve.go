package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/speech-align-viz/internal/cleanup"
	"github.com/codebuildervaibhav/speech-align-viz/internal/config"
	"github.com/codebuildervaibhav/speech-align-viz/internal/figure"
	"github.com/codebuildervaibhav/speech-align-viz/internal/queue"
	"github.com/codebuildervaibhav/speech-align-viz/internal/server"
	"github.com/codebuildervaibhav/speech-align-viz/internal/storage"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		host       string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			return serve(cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config/config.yaml", "Path to the YAML config file")
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host to bind")
	cmd.Flags().IntVar(&port, "port", 8000, "Port to bind")

	return cmd
}

func serve(cfg *config.Config) error {
	// Keep recent log lines for GET /api/logs
	logs := server.NewLogBuffer(server.DefaultLogLines)
	log.SetOutput(io.MultiWriter(os.Stderr, logs))

	log.Info("Initializing components...")

	cache, err := storage.NewCache(cfg.Cache.Dir)
	if err != nil {
		return err
	}

	db, err := storage.NewMetadataDB(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	// Cleanup scheduler
	scheduler := cleanup.NewScheduler(
		cache.Dir(),
		time.Duration(cfg.Cache.IntervalMinutes)*time.Minute,
		time.Duration(cfg.Cache.MaxAgeHours)*time.Hour,
	)
	scheduler.ExcludeDatabase(cfg.DatabasePath())
	scheduler.Start()
	defer scheduler.Stop()

	// Worker pool
	pool := queue.NewWorkerPool(cfg.Workers.Count, cache, db, figure.Options{
		Height:     cfg.Figure.Height,
		DPI:        cfg.Figure.DPI,
		MaxWidthPx: cfg.Figure.MaxWidthPx,
	})
	pool.Start()
	defer pool.Stop()

	app := server.New(cfg, server.Deps{Cache: cache, DB: db, Pool: pool, Logs: logs})

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Info("Shutting down gracefully...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Warn("Shutdown did not complete cleanly")
		}
	}()

	addr := cfg.Addr()
	log.WithFields(log.Fields{
		"addr":  addr,
		"cache": cache.Dir(),
	}).Info("Server starting")

	if err := app.Listen(addr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
