package repository

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/order-alert/internal/model"
)

// AlertsRepository persists one audit row per handler invocation (MySQL).
type AlertsRepository interface {
	Insert(ctx context.Context, rec model.AlertRecord) error
	InsertBatch(ctx context.Context, recs []model.AlertRecord) error
}

type AlertsRepositoryImpl struct {
	db *sqlx.DB
}

func NewAlertsRepository(db *sqlx.DB) *AlertsRepositoryImpl {
	return &AlertsRepositoryImpl{db: db}
}

var _ AlertsRepository = (*AlertsRepositoryImpl)(nil)

func (r *AlertsRepositoryImpl) Insert(ctx context.Context, rec model.AlertRecord) error {
	return r.InsertBatch(ctx, []model.AlertRecord{rec})
}

// InsertBatch writes all rows with a single multi-row statement. Rows are keyed
// by invocation id, so re-flushing the same batch is a no-op.
func (r *AlertsRepositoryImpl) InsertBatch(ctx context.Context, recs []model.AlertRecord) error {
	if len(recs) == 0 {
		return nil
	}

	q, args := buildAlertsInsert(recs)
	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

const alertColumns = 8

func buildAlertsInsert(recs []model.AlertRecord) (string, []any) {
	var sb strings.Builder
	args := make([]any, 0, len(recs)*alertColumns)

	sb.WriteString(`INSERT INTO order_alerts (id, source, outcome, order_total, phone, message_sid, error, created_at) VALUES `)
	for i, rec := range recs {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			rec.ID, rec.Source.String(), rec.Outcome.String(), rec.OrderTotal,
			truncate(rec.Phone, 32), truncate(rec.MessageSID, 64), truncate(rec.Error, 1024), rec.CreatedAt.UTC(),
		)
	}
	sb.WriteString(` ON DUPLICATE KEY UPDATE id = id`)

	return sb.String(), args
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
