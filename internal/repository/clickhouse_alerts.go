package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/order-alert/internal/model"
)

// AlertFilter narrows a report query. Zero values mean "any".
type AlertFilter struct {
	Outcome model.Outcome
	Phone   string
	Limit   int
	Offset  int
}

// CHAlertsRepository lists audit rows from ClickHouse (final view).
type CHAlertsRepository interface {
	List(ctx context.Context, f AlertFilter) ([]model.AlertRecord, error)
}

type chAlertsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHAlertsRepository(ch *sqlx.DB) CHAlertsRepository {
	return &chAlertsRepository{ch: ch}
}

func (r *chAlertsRepository) List(ctx context.Context, f AlertFilter) ([]model.AlertRecord, error) {
	q, args := buildAlertsQuery(f)

	var rows []model.AlertRecord
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func buildAlertsQuery(f AlertFilter) (string, []any) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	q := `
		SELECT id, source, outcome, order_total, phone, message_sid, error, created_at
		FROM orderalert.order_alerts_latest
		WHERE 1 = 1
	`
	var args []any

	if f.Outcome != "" {
		q += " AND outcome = ?"
		args = append(args, f.Outcome.String())
	}
	if f.Phone != "" {
		q += " AND phone = ?"
		args = append(args, f.Phone)
	}

	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	return q, args
}
