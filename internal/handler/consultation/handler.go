package consultation

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medipass-api/internal/handler"
	"github.com/jwalitptl/medipass-api/internal/model"
	"github.com/jwalitptl/medipass-api/internal/service/scheduling"
	apperrors "github.com/jwalitptl/medipass-api/pkg/errors"
)

type Handler struct {
	engine *scheduling.Service
	loc    *time.Location
}

func NewHandler(engine *scheduling.Service, loc *time.Location) *Handler {
	return &Handler{engine: engine, loc: loc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	consultations := r.Group("/consultations")
	{
		consultations.POST("", h.Book)
		consultations.GET("", h.List)
		consultations.GET("/:id", h.Get)

		consultations.POST("/:id/cancel", h.Cancel)
		consultations.POST("/:id/complete", h.Complete)
		consultations.PUT("/:id/observations", h.SetObservations)
		consultations.PUT("/:id/diagnosis", h.SetDiagnosis)
	}
}

// Book creates a consultation. Practitioners book for themselves; an
// administrator names the practitioner.
func (h *Handler) Book(c *gin.Context) {
	var req model.BookConsultationRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}
	start, err := handler.DateTime(req.Start, h.loc)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	actor := handler.ActorFrom(c)
	if actor != nil && actor.Kind() == model.KindPractitioner {
		if req.PractitionerID == 0 {
			req.PractitionerID = actor.PersonID()
		}
		if req.PractitionerID != actor.PersonID() {
			handler.Fail(c, scheduling.ErrNotOwner)
			return
		}
	}

	booked, err := h.engine.Book(c.Request.Context(), scheduling.BookingRequest{
		Start:           start,
		DurationMinutes: req.DurationMinutes,
		Reason:          req.Reason,
		PractitionerID:  req.PractitionerID,
		PatientID:       req.PatientID,
	})
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.Created(c, model.NewConsultationView(booked, h.engine.Now()))
}

// List filters by effective status and/or a date window; to is inclusive of its whole day.
func (h *Handler) List(c *gin.Context) {
	var f model.ConsultationFilters
	if err := c.ShouldBindQuery(&f); err != nil {
		handler.Fail(c, apperrors.BadRequest("invalid query", err))
		return
	}

	var status model.ConsultationStatus
	if f.Status != "" {
		var ok bool
		if status, ok = model.ParseStatus(f.Status); !ok {
			handler.Fail(c, apperrors.BadRequest("status must be scheduled, in_progress, completed or cancelled", nil))
			return
		}
	}

	var cs []model.Consultation
	if f.From != "" || f.To != "" {
		if f.From == "" || f.To == "" {
			handler.Fail(c, apperrors.BadRequest("from and to go together", nil))
			return
		}
		from, err := handler.Date(f.From, h.loc)
		if err != nil {
			handler.Fail(c, err)
			return
		}
		to, err := handler.Date(f.To, h.loc)
		if err != nil {
			handler.Fail(c, err)
			return
		}
		cs = h.engine.InRange(from, to.AddDate(0, 0, 1))
	} else {
		cs = h.engine.All()
	}

	now := h.engine.Now()
	out := make([]model.ConsultationView, 0, len(cs))
	for _, cons := range cs {
		v := model.NewConsultationView(cons, now)
		if status != "" && v.EffectiveStatus != status {
			continue
		}
		out = append(out, v)
	}
	handler.OK(c, out)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := handler.IDParam(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}
	cons, err := h.engine.Consultation(id)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, model.NewConsultationView(cons, h.engine.Now()))
}

func (h *Handler) Cancel(c *gin.Context) {
	h.mutate(c, h.engine.Cancel)
}

func (h *Handler) Complete(c *gin.Context) {
	h.mutate(c, h.engine.MarkCompleted)
}

func (h *Handler) SetObservations(c *gin.Context) {
	h.annotate(c, h.engine.SetObservations)
}

func (h *Handler) SetDiagnosis(c *gin.Context) {
	h.annotate(c, h.engine.SetDiagnosis)
}

func (h *Handler) annotate(c *gin.Context, apply func(ctx context.Context, id int, text string) error) {
	var req model.NoteRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}
	h.mutate(c, func(ctx context.Context, id int) error {
		return apply(ctx, id, req.Text)
	})
}

// mutate checks ownership, applies op and answers with the updated consultation.
func (h *Handler) mutate(c *gin.Context, op func(ctx context.Context, id int) error) {
	id, err := handler.IDParam(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}
	actor := handler.ActorFrom(c)
	if actor == nil {
		handler.Fail(c, apperrors.Unauthorized(nil))
		return
	}
	if err := h.engine.Authorize(actor, id); err != nil {
		handler.Fail(c, err)
		return
	}
	if err := op(c.Request.Context(), id); err != nil {
		handler.Fail(c, err)
		return
	}
	h.Get(c)
}
