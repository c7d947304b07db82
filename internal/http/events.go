package http

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jmehdipour/order-alert/internal/metrics"
	"github.com/jmehdipour/order-alert/internal/model"
	"github.com/jmehdipour/order-alert/internal/repository"
	"github.com/jmehdipour/order-alert/internal/util"
)

// maxEventBytes bounds a single event body; Event Hubs caps events at 1MB too.
const maxEventBytes = 1 << 20

type eventResp struct {
	InvocationID string        `json:"invocation_id"`
	Outcome      model.Outcome `json:"outcome"`
	MessageSID   string        `json:"message_sid,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// triggerHandler runs one invocation per request. The body is the raw event.
// Every handled invocation answers 200: outcomes are reported, not raised.
func triggerHandler(proc Processor, audit repository.AlertsRepository, lg *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxEventBytes+1))
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "read body failed"})
		}
		if len(body) > maxEventBytes {
			return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": "event too large"})
		}

		ctx := c.Request().Context()
		id := util.NewID()
		start := time.Now()

		res := proc.Process(ctx, body,
			zap.String("invocation_id", id),
			zap.String("remote_ip", c.RealIP()),
		)

		metrics.InvocationsTotal.WithLabelValues(res.Outcome.String(), model.SourceHTTP.String()).Inc()
		metrics.InvocationDuration.WithLabelValues(model.SourceHTTP.String()).Observe(time.Since(start).Seconds())

		if audit != nil {
			if err := audit.Insert(ctx, res.Record(id, model.SourceHTTP, start)); err != nil {
				lg.Error("audit insert failed", zap.String("invocation_id", id), zap.Error(err))
			}
		}

		resp := eventResp{
			InvocationID: id,
			Outcome:      res.Outcome,
			MessageSID:   res.MessageSID,
		}
		if res.Err != nil {
			resp.Error = res.Err.Error()
		}

		return c.JSON(http.StatusOK, resp)
	}
}
