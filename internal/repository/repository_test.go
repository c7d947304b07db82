package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jmehdipour/order-alert/internal/model"
)

func TestBuildAlertsInsert(t *testing.T) {
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.FixedZone("BST", 3600))
	recs := []model.AlertRecord{
		{ID: "01A", Source: model.SourceKafka, Outcome: model.OutcomeNotified, OrderTotal: 150, Phone: "+447000000000", MessageSID: "SM1", CreatedAt: at},
		{ID: "01B", Source: model.SourceHTTP, Outcome: model.OutcomeParseError, Error: strings.Repeat("x", 2000), CreatedAt: at},
	}

	q, args := buildAlertsInsert(recs)

	assert.Equal(t, 2, strings.Count(q, "(?, ?, ?, ?, ?, ?, ?, ?)"))
	assert.True(t, strings.HasSuffix(q, "ON DUPLICATE KEY UPDATE id = id"))
	assert.Len(t, args, 16)
	assert.Equal(t, []any{"01A", "kafka", "notified", 150.0, "+447000000000", "SM1", "", at.UTC()}, args[:8])
	assert.Len(t, args[14], 1024)
}

func TestBuildAlertsQuery(t *testing.T) {
	q, args := buildAlertsQuery(AlertFilter{})
	assert.NotContains(t, q, "outcome = ?")
	assert.Equal(t, []any{50, 0}, args)

	q, args = buildAlertsQuery(AlertFilter{Outcome: model.OutcomeSkipped, Phone: "+447000000000", Limit: 10, Offset: -3})
	assert.Contains(t, q, "AND outcome = ?")
	assert.Contains(t, q, "AND phone = ?")
	assert.Equal(t, []any{"skipped", "+447000000000", 10, 0}, args)

	_, args = buildAlertsQuery(AlertFilter{Limit: 5000})
	assert.Equal(t, []any{50, 0}, args)
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	// "£" is two bytes; cutting at 1 must drop it entirely
	assert.Equal(t, "", truncate("£5", 1))
	assert.Equal(t, "£", truncate("£5", 2))
}
