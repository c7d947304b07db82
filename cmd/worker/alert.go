package worker

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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmehdipour/order-alert/internal/alert"
	"github.com/jmehdipour/order-alert/internal/config"
	"github.com/jmehdipour/order-alert/internal/db"
	"github.com/jmehdipour/order-alert/internal/kafka"
	"github.com/jmehdipour/order-alert/internal/logger"
	"github.com/jmehdipour/order-alert/internal/metrics"
	"github.com/jmehdipour/order-alert/internal/repository"
	"github.com/jmehdipour/order-alert/internal/worker"
)

var metricsAddr string

var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Consume order events from the stream and send threshold SMS alerts",
	RunE:  runAlert,
}

func init() {
	alertCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics on this address (disabled when empty)")
}

func runAlert(cmd *cobra.Command, args []string) error {
	// 1) load config
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
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

	// 2) kafka consumer (brokers or Event Hubs connection string)
	kc, err := kafka.FromAppConfig(cfg.Kafka)
	if err != nil {
		return err
	}
	consumer := kafka.NewConsumerFromConfig(kc)
	defer consumer.Close()

	// 3) optional audit trail
	var audit repository.AlertsRepository
	if cfg.MySQL.DSN != "" {
		dbx, err := db.NewMySQLConnection(cfg.MySQL)
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer dbx.Close()
		audit = repository.NewAlertsRepository(dbx)
	}

	w := worker.NewAlertWorker(consumer, alert.NewFromConfig(cfg, lg), audit, lg)

	// tune knobs
	if cfg.Worker.WorkerCount > 0 {
		w.Workers = cfg.Worker.WorkerCount
	}
	if cfg.Worker.BatchSize > 0 {
		w.BatchSize = cfg.Worker.BatchSize
	}
	if cfg.Worker.BatchWait > 0 {
		w.BatchWait = cfg.Worker.BatchWait
	}

	// 4) graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				lg.Error("metrics listener exited", zap.Error(err))
			}
		}()
		defer func() {
			shCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shCtx)
		}()
	}

	lg.Info("starting alert worker",
		zap.String("topic", kc.Topic),
		zap.String("group", kc.GroupID),
		zap.Strings("brokers", kc.Brokers),
		zap.Int("workers", w.Workers),
		zap.Int("batch_size", w.BatchSize),
		zap.Duration("batch_wait", w.BatchWait),
		zap.Bool("audit", audit != nil),
	)

	return w.Run(ctx)
}
