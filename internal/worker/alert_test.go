package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jmehdipour/order-alert/internal/alert"
	"github.com/jmehdipour/order-alert/internal/kafka"
	"github.com/jmehdipour/order-alert/internal/model"
	"github.com/jmehdipour/order-alert/internal/notify"
)

type fakeSource struct {
	msgs     chan kafka.Message
	failOnce bool

	mu        sync.Mutex
	committed []int64
}

func newFakeSource(values ...string) *fakeSource {
	s := &fakeSource{msgs: make(chan kafka.Message, len(values))}
	for i, v := range values {
		s.msgs <- kafka.Message{Topic: "orders-stream", Offset: int64(i), Value: []byte(v)}
	}
	return s
}

func (s *fakeSource) Fetch(ctx context.Context) (kafka.Message, error) {
	s.mu.Lock()
	if s.failOnce {
		s.failOnce = false
		s.mu.Unlock()
		return kafka.Message{}, errors.New("broker unavailable")
	}
	s.mu.Unlock()

	select {
	case m := <-s.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (s *fakeSource) Commit(_ context.Context, m kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = append(s.committed, m.Offset)
	return nil
}

func (s *fakeSource) commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.committed)
}

func (s *fakeSource) committedOffsets() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.committed...)
}

// committedThrough reports whether the commit position reached offset.
func (s *fakeSource) committedThrough(offset int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.committed)
	return n > 0 && s.committed[n-1] >= offset
}

type fakeAudit struct {
	mu   sync.Mutex
	rows []model.AlertRecord
	err  error
}

func (a *fakeAudit) Insert(ctx context.Context, rec model.AlertRecord) error {
	return a.InsertBatch(ctx, []model.AlertRecord{rec})
}

func (a *fakeAudit) InsertBatch(_ context.Context, recs []model.AlertRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.rows = append(a.rows, recs...)
	return nil
}

func (a *fakeAudit) snapshot() []model.AlertRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.AlertRecord(nil), a.rows...)
}

type countingSender struct {
	mu    sync.Mutex
	calls int
}

func (s *countingSender) Send(context.Context, model.Credentials, model.NotificationRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return "SM1", nil
}

func runWorker(t *testing.T, w *AlertWorker, until func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, until, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestAlertWorker_ProcessesCommitsAndAudits(t *testing.T) {
	src := newFakeSource(
		`{"order_total": 150.0, "phone_number": "+447000000000"}`,
		`{"order_total": 50, "phone_number": "+447000000000"}`,
		`not json`,
	)
	sender := &countingSender{}
	h := alert.NewHandler(sender, notify.StaticCredentials{AccountSID: "AC", AuthToken: "t", FromNumber: "+1"})
	audit := &fakeAudit{}

	w := NewAlertWorker(src, h, audit, zap.NewNop())
	w.Workers = 2
	w.BatchWait = time.Hour // only the shutdown flush writes

	runWorker(t, w, func() bool { return src.committedThrough(2) })

	assert.Equal(t, 1, sender.calls)
	assert.IsIncreasing(t, src.committedOffsets())

	rows := audit.snapshot()
	require.Len(t, rows, 3)
	got := map[model.Outcome]int{}
	for _, r := range rows {
		got[r.Outcome]++
		assert.Equal(t, model.SourceKafka, r.Source)
		assert.Len(t, r.ID, 26)
	}
	assert.Equal(t, map[model.Outcome]int{
		model.OutcomeNotified:   1,
		model.OutcomeSkipped:    1,
		model.OutcomeParseError: 1,
	}, got)
}

func TestAlertWorker_FlushesOnBatchSize(t *testing.T) {
	src := newFakeSource(`{"order_total": 1}`, `{"order_total": 2}`)
	audit := &fakeAudit{}
	w := NewAlertWorker(src, alert.NewHandler(&countingSender{}, notify.StaticCredentials{}), audit, nil)
	w.Workers = 1
	w.BatchSize = 2
	w.BatchWait = time.Hour

	runWorker(t, w, func() bool { return len(audit.snapshot()) == 2 })
}

func TestAlertWorker_NoAuditAndFetchErrorRecovers(t *testing.T) {
	src := newFakeSource(`{"order_total": 500, "phone_number": "+447000000000"}`)
	src.failOnce = true
	sender := &countingSender{}
	// credentials missing: handled, committed, never sent
	w := NewAlertWorker(src, alert.NewHandler(sender, notify.StaticCredentials{}), nil, nil)

	runWorker(t, w, func() bool { return src.commits() == 1 })
	assert.Equal(t, 0, sender.calls)
}

func TestAlertWorker_AuditFailureDoesNotBlockCommits(t *testing.T) {
	src := newFakeSource(`{"order_total": 1}`, `{"order_total": 2}`, `{"order_total": 3}`)
	audit := &fakeAudit{err: errors.New("mysql gone")}
	w := NewAlertWorker(src, alert.NewHandler(&countingSender{}, notify.StaticCredentials{}), audit, nil)
	w.BatchSize = 1

	runWorker(t, w, func() bool { return src.committedThrough(2) })
	assert.Empty(t, audit.snapshot())
}

func TestAlertWorker_RequiresDependencies(t *testing.T) {
	w := NewAlertWorker(nil, nil, nil, nil)
	assert.Error(t, w.Run(context.Background()))
}

// blockingSender holds the provider call until released or its context ends.
type blockingSender struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingSender() *blockingSender {
	return &blockingSender{started: make(chan struct{}), release: make(chan struct{})}
}

func (s *blockingSender) Send(ctx context.Context, _ model.Credentials, _ model.NotificationRequest) (string, error) {
	s.once.Do(func() { close(s.started) })
	select {
	case <-s.release:
		return "SM9", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestAlertWorker_ShutdownFinishesInFlightSend(t *testing.T) {
	src := newFakeSource(`{"order_total": 150.0, "phone_number": "+447000000000"}`)
	sender := newBlockingSender()
	h := alert.NewHandler(sender, notify.StaticCredentials{AccountSID: "AC", AuthToken: "t", FromNumber: "+1"})
	audit := &fakeAudit{}

	w := NewAlertWorker(src, h, audit, zap.NewNop())
	w.Workers = 1

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case <-sender.started:
	case <-time.After(2 * time.Second):
		t.Fatal("send never started")
	}
	cancel()

	select {
	case <-done:
		t.Fatal("worker stopped before the in-flight send finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(sender.release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	assert.Equal(t, []int64{0}, src.committedOffsets())
	rows := audit.snapshot()
	require.Len(t, rows, 1)
	assert.Equal(t, model.OutcomeNotified, rows[0].Outcome)
	assert.Equal(t, "SM9", rows[0].MessageSID)
}

func TestAlertWorker_BufferedMessageAfterShutdownIsNotCommitted(t *testing.T) {
	src := newFakeSource()
	sender := &countingSender{}
	h := alert.NewHandler(sender, notify.StaticCredentials{AccountSID: "AC", AuthToken: "t", FromNumber: "+1"})
	w := NewAlertWorker(src, h, nil, nil)

	m := kafka.Message{Topic: "orders-stream", Offset: 7, Value: []byte(`{"order_total": 500, "phone_number": "+1"}`)}
	w.offsets.track(m)
	in := make(chan kafka.Message, 1)
	in <- m

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.runProcessor(ctx, in, nil)

	assert.Zero(t, src.commits())
	assert.Zero(t, sender.calls)
}
