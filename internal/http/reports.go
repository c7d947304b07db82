package http

import (
	"net/http"
	"strconv"
	"strings"

	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jmehdipour/order-alert/internal/model"
	"github.com/jmehdipour/order-alert/internal/repository"
	"github.com/jmehdipour/order-alert/internal/util"
)

func listAlertsHandler(chRepo repository.CHAlertsRepository, lg *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		f := repository.AlertFilter{Limit: 50}

		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				f.Limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				f.Offset = n
			}
		}

		if raw := strings.TrimSpace(c.QueryParam("outcome")); raw != "" {
			o := model.Outcome(raw)
			if !o.Valid() {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid outcome"})
			}
			f.Outcome = o
		}

		f.Phone = util.NormalizePhone(c.QueryParam("phone"))

		rows, err := chRepo.List(c.Request().Context(), f)
		if err != nil {
			lg.Error("clickhouse list failed", zap.Error(err))

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   f.Limit,
			"offset":  f.Offset,
			"count":   len(rows),
			"results": rows,
		})
	}
}
