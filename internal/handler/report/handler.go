package report

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medipass-api/internal/handler"
	"github.com/jwalitptl/medipass-api/internal/service/report"
	apperrors "github.com/jwalitptl/medipass-api/pkg/errors"
)

type Handler struct {
	svc *report.Service
	loc *time.Location
}

func NewHandler(svc *report.Service, loc *time.Location) *Handler {
	return &Handler{svc: svc, loc: loc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/reports/summary", h.Summary)
}

// Summary reports totals, plus the closed period count when from and to are
// given. to covers its whole day.
func (h *Handler) Summary(c *gin.Context) {
	from, err := handler.OptionalDate(c.Query("from"), h.loc)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	to, err := handler.OptionalDate(c.Query("to"), h.loc)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	if (from == nil) != (to == nil) {
		handler.Fail(c, apperrors.BadRequest("from and to go together", nil))
		return
	}
	if to != nil {
		end := to.AddDate(0, 0, 1).Add(-time.Nanosecond)
		to = &end
		if to.Before(*from) {
			handler.Fail(c, apperrors.BadRequest("to is before from", nil))
			return
		}
	}
	handler.OK(c, h.svc.Summary(from, to))
}
