package practitioner

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medipass-api/internal/handler"
	"github.com/jwalitptl/medipass-api/internal/model"
	"github.com/jwalitptl/medipass-api/internal/service/directory"
	"github.com/jwalitptl/medipass-api/internal/service/scheduling"
	apperrors "github.com/jwalitptl/medipass-api/pkg/errors"
)

type SecretHasher interface {
	HashSecret(secret string) (string, error)
}

type Handler struct {
	dir    *directory.Service
	engine *scheduling.Service
	hasher SecretHasher
	loc    *time.Location
}

func NewHandler(dir *directory.Service, engine *scheduling.Service, hasher SecretHasher, loc *time.Location) *Handler {
	return &Handler{dir: dir, engine: engine, hasher: hasher, loc: loc}
}

// RegisterRoutes mounts reads on r and management routes behind admin.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, admin gin.HandlerFunc) {
	practitioners := r.Group("/practitioners")
	{
		practitioners.POST("", admin, h.CreatePractitioner)
		practitioners.GET("", h.ListPractitioners)
		practitioners.GET("/:id", h.GetPractitioner)
		practitioners.DELETE("/:id", admin, h.RemovePractitioner)

		practitioners.GET("/:id/planning", h.Planning)
		practitioners.GET("/:id/upcoming", h.Upcoming)
	}
}

func (h *Handler) CreatePractitioner(c *gin.Context) {
	var req model.CreatePractitionerRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}
	hash, err := h.hasher.HashSecret(req.Secret)
	if err != nil {
		handler.Fail(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	p, err := h.dir.CreatePractitioner(c.Request.Context(), model.Practitioner{
		Person: model.Person{
			ID:         req.ID,
			FamilyName: req.FamilyName,
			GivenName:  req.GivenName,
			Email:      req.Email,
			Phone:      req.Phone,
		},
		Account:           model.Account{Login: req.Login, SecretHash: hash, Active: true},
		Specialty:         req.Specialty,
		LicenseNumber:     req.LicenseNumber,
		AvailabilityHours: req.AvailabilityHours,
	})
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.Created(c, p)
}

// ListPractitioners lists active practitioners, optionally of one specialty. A
// login filter answers with the single matching practitioner or 404.
func (h *Handler) ListPractitioners(c *gin.Context) {
	if login := strings.TrimSpace(c.Query("login")); login != "" {
		p, err := h.dir.PractitionerByLogin(login)
		if err != nil {
			handler.Fail(c, err)
			return
		}
		handler.OK(c, []model.Practitioner{p})
		return
	}
	if specialty := strings.TrimSpace(c.Query("specialty")); specialty != "" {
		handler.OK(c, h.dir.PractitionersBySpecialty(specialty))
		return
	}
	handler.OK(c, h.dir.Practitioners())
}

func (h *Handler) GetPractitioner(c *gin.Context) {
	id, err := handler.IDParam(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}
	p, err := h.dir.Practitioner(id)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, p)
}

// RemovePractitioner archives the practitioner; booked consultations are kept.
func (h *Handler) RemovePractitioner(c *gin.Context) {
	id, err := handler.IDParam(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}
	if err := h.dir.RemovePractitioner(c.Request.Context(), id); err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, gin.H{"id": id, "archived": true})
}

// Planning groups non-cancelled consultations by day for a day, a week
// (7 days from date) or the month containing date.
func (h *Handler) Planning(c *gin.Context) {
	id, err := handler.IDParam(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}
	if !h.dir.KnownPractitioner(id) {
		handler.Fail(c, directory.ErrPractitionerNotFound)
		return
	}

	day := model.StartOfDay(h.engine.Now().In(h.loc))
	if s := c.Query("date"); s != "" {
		if day, err = handler.Date(s, h.loc); err != nil {
			handler.Fail(c, err)
			return
		}
	}

	var plan []model.DayPlan
	switch c.DefaultQuery("view", "week") {
	case "day":
		plan = h.engine.PlanningForDay(id, day)
	case "week":
		plan = h.engine.PlanningForWeek(id, day)
	case "month":
		plan = h.engine.PlanningForMonth(id, day)
	default:
		handler.Fail(c, apperrors.BadRequest("view must be day, week or month", nil))
		return
	}
	handler.OK(c, plan)
}

func (h *Handler) Upcoming(c *gin.Context) {
	id, err := handler.IDParam(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}
	if !h.dir.KnownPractitioner(id) {
		handler.Fail(c, directory.ErrPractitionerNotFound)
		return
	}
	now := h.engine.Now()
	cs := h.engine.Upcoming(id)
	out := make([]model.ConsultationView, 0, len(cs))
	for _, cons := range cs {
		out = append(out, model.NewConsultationView(cons, now))
	}
	handler.OK(c, out)
}
