package patient

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

type Handler struct {
	dir    *directory.Service
	engine *scheduling.Service
	loc    *time.Location
}

func NewHandler(dir *directory.Service, engine *scheduling.Service, loc *time.Location) *Handler {
	return &Handler{dir: dir, engine: engine, loc: loc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.POST("", h.CreatePatient)
		patients.GET("", h.ListPatients)
		patients.GET("/search", h.SearchPatients)
		patients.GET("/:id", h.GetPatient)
		patients.PUT("/:id", h.UpdatePatient)

		patients.GET("/:id/history", h.ListHistory)
		patients.POST("/:id/history", h.AddHistoryEntry)
		patients.GET("/:id/consultations", h.ListConsultations)
	}
}

// View is a patient with derived age and record summary.
type View struct {
	model.Patient
	Age    *int                 `json:"age,omitempty"`
	Record *model.RecordSummary `json:"record,omitempty"`
}

func (h *Handler) view(p model.Patient) View {
	v := View{Patient: p}
	if age := p.Age(h.engine.Now()); age != model.AgeUnknown {
		v.Age = &age
	}
	if p.Record != nil {
		s := p.Record.Summary()
		v.Record = &s
	}
	return v
}

func (h *Handler) views(ps []model.Patient) []View {
	out := make([]View, 0, len(ps))
	for _, p := range ps {
		out = append(out, h.view(p))
	}
	return out
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var req model.CreatePatientRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}
	birth, err := handler.OptionalDate(req.BirthDate, h.loc)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	p, err := h.dir.CreatePatient(c.Request.Context(), model.Patient{
		Person: model.Person{
			ID:         req.ID,
			FamilyName: req.FamilyName,
			GivenName:  req.GivenName,
			BirthDate:  birth,
			Sex:        strings.ToUpper(req.Sex),
			Address:    req.Address,
			Phone:      req.Phone,
			Email:      req.Email,
		},
		NationalHealthID: req.NationalHealthID,
		BloodGroup:       req.BloodGroup,
	})
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.Created(c, h.view(p))
}

func (h *Handler) ListPatients(c *gin.Context) {
	handler.OK(c, h.views(h.dir.Patients()))
}

// SearchPatients matches on the exact full name, or lists a blood group.
func (h *Handler) SearchPatients(c *gin.Context) {
	var f model.PatientFilters
	if err := c.ShouldBindQuery(&f); err != nil {
		handler.Fail(c, apperrors.BadRequest("invalid query", err))
		return
	}

	switch {
	case f.FamilyName != "" && f.GivenName != "":
		p, err := h.dir.FindPatientByName(f.FamilyName, f.GivenName)
		if err != nil {
			handler.Fail(c, err)
			return
		}
		handler.OK(c, []View{h.view(p)})
	case f.BloodGroup != "":
		handler.OK(c, h.views(h.dir.PatientsByBloodGroup(f.BloodGroup)))
	default:
		handler.Fail(c, apperrors.BadRequest("give family and given names, or a blood group", nil))
	}
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, err := handler.IDParam(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}
	p, err := h.dir.Patient(id)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, h.view(p))
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	id, err := handler.IDParam(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}
	var req model.UpdatePatientRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}
	p, err := h.dir.UpdatePatient(c.Request.Context(), id, req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, h.view(p))
}

func (h *Handler) ListHistory(c *gin.Context) {
	id, err := handler.IDParam(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}
	if _, err := h.dir.Patient(id); err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, h.dir.History(id))
}

func (h *Handler) AddHistoryEntry(c *gin.Context) {
	id, err := handler.IDParam(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}
	var req model.AddHistoryEntryRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Fail(c, err)
		return
	}
	date, err := handler.Date(req.Date, h.loc)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	severity, err := model.ParseSeverity(req.Severity)
	if err != nil {
		handler.Fail(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	entry, err := h.dir.AddHistoryEntry(c.Request.Context(), id, model.HistoryEntry{
		Category:    req.Category,
		Description: req.Description,
		Date:        date,
		Severity:    severity,
		Active:      active,
	})
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.Created(c, entry)
}

func (h *Handler) ListConsultations(c *gin.Context) {
	id, err := handler.IDParam(c, "id")
	if err != nil {
		handler.Fail(c, err)
		return
	}
	if _, err := h.dir.Patient(id); err != nil {
		handler.Fail(c, err)
		return
	}
	now := h.engine.Now()
	cs := h.engine.ByPatient(id)
	out := make([]model.ConsultationView, 0, len(cs))
	for _, cons := range cs {
		out = append(out, model.NewConsultationView(cons, now))
	}
	handler.OK(c, out)
}
