package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmehdipour/order-alert/internal/alert"
	"github.com/jmehdipour/order-alert/internal/config"
	"github.com/jmehdipour/order-alert/internal/db"
	httpSrv "github.com/jmehdipour/order-alert/internal/http"
	"github.com/jmehdipour/order-alert/internal/logger"
	"github.com/jmehdipour/order-alert/internal/metrics"
	"github.com/jmehdipour/order-alert/internal/repository"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP trigger (POST /v1/events)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		lg, err := logger.New(cfg.Log.Level)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer func() { _ = lg.Sync() }()

		metrics.MustRegister(prometheus.DefaultRegisterer)

		deps := httpSrv.Deps{
			Handler: alert.NewFromConfig(cfg, lg),
			Log:     lg,
		}

		// optional stores: an empty DSN/addr disables the feature
		if cfg.MySQL.DSN != "" {
			mysqlDB, err := db.NewMySQLConnection(cfg.MySQL)
			if err != nil {
				return fmt.Errorf("mysql connect: %w", err)
			}
			defer mysqlDB.Close()
			deps.Audit = repository.NewAlertsRepository(mysqlDB)
		}

		if cfg.ClickHouse.DSN != "" {
			chDB, err := db.NewClickHouseConnection(cfg.ClickHouse)
			if err != nil {
				return fmt.Errorf("clickhouse connect: %w", err)
			}
			defer func() { _ = chDB.Close() }()
			deps.Reports = repository.NewCHAlertsRepository(chDB)
		}

		if cfg.Redis.Addr != "" {
			redisClient, err := db.NewRedisClient(cfg.Redis)
			if err != nil {
				return fmt.Errorf("redis connect: %w", err)
			}
			defer func() { _ = redisClient.Close() }()
			deps.Redis = redisClient
		}

		server := httpSrv.NewServer(cfg, deps)

		errCh := make(chan error, 1)
		go func() {
			lg.Info("starting http trigger",
				zap.String("addr", cfg.HTTP.Addr),
				zap.Bool("audit", deps.Audit != nil),
				zap.Bool("reports", deps.Reports != nil),
				zap.Bool("rate_limit", deps.Redis != nil),
			)
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			lg.Info("signal received, shutting down", zap.String("signal", sig.String()))
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				lg.Error("http server exited", zap.Error(err))
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)

		return nil
	},
}
