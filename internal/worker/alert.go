package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jmehdipour/order-alert/internal/alert"
	"github.com/jmehdipour/order-alert/internal/kafka"
	"github.com/jmehdipour/order-alert/internal/metrics"
	"github.com/jmehdipour/order-alert/internal/model"
	"github.com/jmehdipour/order-alert/internal/repository"
	"github.com/jmehdipour/order-alert/internal/util"
)

// MessageSource is the slice of kafka.Consumer the worker needs.
type MessageSource interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, m kafka.Message) error
}

// Processor runs one invocation; *alert.Handler implements it.
type Processor interface {
	Process(ctx context.Context, payload []byte, fields ...zap.Field) alert.Result
}

// AlertWorker is the stream trigger:
// - fetches order events from Kafka,
// - runs one handler invocation per message,
// - commits each partition up to its last contiguously finished offset,
// - batches audit rows into MySQL when an audit repository is set.
type AlertWorker struct {
	// Dependencies
	Consumer MessageSource
	Handler  Processor
	Audit    repository.AlertsRepository // nil disables the audit trail
	Log      *zap.Logger

	// Behavior
	Workers   int           // number of goroutines running invocations
	BatchSize int           // max buffered audit rows per flush
	BatchWait time.Duration // max time to wait before flush

	now     func() time.Time
	offsets *offsetTracker
}

// NewAlertWorker builds a worker with sane defaults.
func NewAlertWorker(
	consumer MessageSource,
	handler Processor,
	audit repository.AlertsRepository,
	log *zap.Logger,
) *AlertWorker {
	if log == nil {
		log = zap.NewNop()
	}
	return &AlertWorker{
		Consumer:  consumer,
		Handler:   handler,
		Audit:     audit,
		Log:       log,
		Workers:   8,
		BatchSize: 200,
		BatchWait: 300 * time.Millisecond,
		now:       time.Now,
		offsets:   newOffsetTracker(),
	}
}

// Run starts the worker and blocks until ctx is cancelled and in-flight
// invocations and the last audit flush have finished.
func (w *AlertWorker) Run(ctx context.Context) error {
	if w.Consumer == nil || w.Handler == nil {
		return errors.New("alert-worker: consumer and handler are required")
	}
	if w.Workers <= 0 {
		w.Workers = 8
	}
	if w.BatchSize <= 0 {
		w.BatchSize = 200
	}
	if w.BatchWait <= 0 {
		w.BatchWait = 300 * time.Millisecond
	}
	if w.now == nil {
		w.now = time.Now
	}
	if w.offsets == nil {
		w.offsets = newOffsetTracker()
	}

	// Channel for invocation records → batch writer
	var records chan model.AlertRecord
	writerDone := make(chan struct{})
	if w.Audit != nil {
		records = make(chan model.AlertRecord, w.BatchSize*2)
		go func() {
			defer close(writerDone)
			w.runBatchWriter(context.WithoutCancel(ctx), records)
		}()
	} else {
		close(writerDone)
	}

	msgCh := make(chan kafka.Message, w.Workers*2)

	// Fetcher goroutine
	go func() {
		defer close(msgCh)
		for {
			m, err := w.Consumer.Fetch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				w.Log.Error("kafka fetch failed", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(200 * time.Millisecond):
				}
				continue
			}

			w.offsets.track(m)

			select {
			case msgCh <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Start processors
	var wg sync.WaitGroup
	for i := 0; i < w.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.runProcessor(ctx, msgCh, records)
		}()
	}

	w.Log.Info("alert worker started",
		zap.Int("workers", w.Workers),
		zap.Bool("audit", w.Audit != nil),
	)

	// Block until shutdown, then drain
	<-ctx.Done()
	wg.Wait()
	if records != nil {
		close(records)
	}
	<-writerDone

	w.Log.Info("alert worker stopped")
	return nil
}

func (w *AlertWorker) runProcessor(ctx context.Context, in <-chan kafka.Message, out chan<- model.AlertRecord) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-in:
			if !ok || ctx.Err() != nil {
				// not handled, not committed: the hub redelivers it after restart
				return
			}
			w.processOne(ctx, m, out)
		}
	}
}

// processOne is one invocation: handle, observe, audit, commit.
// A started invocation runs to completion on shutdown; the provider's client
// timeout bounds it.
func (w *AlertWorker) processOne(ctx context.Context, m kafka.Message, out chan<- model.AlertRecord) {
	ctx = context.WithoutCancel(ctx)
	id := util.NewID()
	start := w.now()

	res := w.Handler.Process(ctx, m.Value,
		zap.String("invocation_id", id),
		zap.String("topic", m.Topic),
		zap.Int("partition", m.Partition),
		zap.Int64("offset", m.Offset),
	)

	metrics.InvocationsTotal.WithLabelValues(res.Outcome.String(), model.SourceKafka.String()).Inc()
	metrics.InvocationDuration.WithLabelValues(model.SourceKafka.String()).Observe(w.now().Sub(start).Seconds())

	if out != nil {
		out <- res.Record(id, model.SourceKafka, start)
	}

	// Every outcome is final. The commit position only advances past offsets
	// whose predecessors on the partition are done too.
	err := w.offsets.complete(m, func(upTo kafka.Message) error {
		return w.Consumer.Commit(ctx, upTo)
	})
	if err != nil {
		w.Log.Error("kafka commit failed",
			zap.Error(err),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
		)
	}
}

// runBatchWriter does size/time-based flush of audit rows until in is closed.
func (w *AlertWorker) runBatchWriter(ctx context.Context, in <-chan model.AlertRecord) {
	tick := time.NewTicker(w.BatchWait)
	defer tick.Stop()

	buf := make([]model.AlertRecord, 0, w.BatchSize)

	flush := func() {
		if len(buf) == 0 {
			return
		}

		fctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := w.Audit.InsertBatch(fctx, buf); err != nil {
			metrics.AuditFlushErrors.Inc()
			w.Log.Error("audit flush failed", zap.Error(err), zap.Int("rows", len(buf)))
		} else {
			w.Log.Debug("audit flushed", zap.Int("rows", len(buf)))
		}

		// rows are dropped on failure; the audit trail is best effort
		buf = buf[:0]
	}

	for {
		select {
		case rec, ok := <-in:
			if !ok {
				flush()
				return
			}
			buf = append(buf, rec)
			if len(buf) >= w.BatchSize {
				flush()
			}

		case <-tick.C:
			flush()
		}
	}
}
