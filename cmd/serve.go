package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"apiworkbench/config"
	"apiworkbench/jobs"
	"apiworkbench/routes"
	"apiworkbench/services"
	"apiworkbench/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg.LogConfig()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().String("port", "", "port to listen on")
}

func serve(ctx context.Context, cfg *config.Config) error {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	utils.LogInfo("store ready", "driver", cfg.StorageDriver)

	container := routes.NewServiceContainer(st, routes.ContainerOptions{
		ExecutionTimeout: cfg.ExecutionTimeout,
	})

	if cfg.HistoryRetention > 0 {
		job, err := newRetentionJob(ctx, cfg, container.HistoryService)
		if err != nil {
			return err
		}
		go job.Start(ctx)
	}

	router := routes.NewRouter(container, cfg.AllowedOrigins, utils.Logger())
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.LogInfo("starting apiworkbench server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	utils.LogInfo("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newRetentionJob(ctx context.Context, cfg *config.Config, history *services.HistoryService) (*jobs.HistoryRetention, error) {
	var opts []jobs.RetentionOption
	if cfg.ArchivalEnabled() {
		archiver, err := services.NewB2Archiver(ctx, cfg.B2ApplicationKeyID, cfg.B2ApplicationKey, cfg.B2BucketName)
		if err != nil {
			return nil, err
		}
		opts = append(opts, jobs.WithArchiver(archiver))
	}
	return jobs.NewHistoryRetention(history, cfg.HistoryRetention, cfg.HistoryCleanupInterval, opts...), nil
}
