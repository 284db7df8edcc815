package report

import (
	"math"
	"sort"
	"time"

	"github.com/jwalitptl/medipass-api/internal/model"
)

type ConsultationSource interface {
	All() []model.Consultation
	InPeriod(begin, end time.Time) []model.Consultation
	Now() time.Time
}

type PeopleSource interface {
	Patients() []model.Patient
	Practitioners() []model.Practitioner
}

// SpecialtyCount is one row of the practitioners-per-specialty breakdown.
type SpecialtyCount struct {
	Specialty string `json:"specialty"`
	Count     int    `json:"count"`
}

// Period is a closed reporting window.
type Period struct {
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
	Consultations int       `json:"consultations"`
}

type Summary struct {
	Patients       int                              `json:"patients"`
	Practitioners  int                              `json:"practitioners"`
	Consultations  int                              `json:"consultations"`
	Cancelled      int                              `json:"cancelled"`
	CompletionRate float64                          `json:"completion_rate"`
	BySpecialty    []SpecialtyCount                 `json:"by_specialty"`
	ByStatus       map[model.ConsultationStatus]int `json:"by_status"`
	Period         *Period                          `json:"period,omitempty"`
}

// Service computes read-only statistics. It never mutates its sources.
type Service struct {
	consultations ConsultationSource
	people        PeopleSource
}

func NewService(consultations ConsultationSource, people PeopleSource) *Service {
	return &Service{consultations: consultations, people: people}
}

// Summary reports totals; when from and to are both set the closed period
// count (from <= start <= to) is included.
func (s *Service) Summary(from, to *time.Time) Summary {
	all := s.consultations.All()
	practitioners := s.people.Practitioners()
	now := s.consultations.Now()

	sum := Summary{
		Patients:      len(s.people.Patients()),
		Practitioners: len(practitioners),
		Consultations: len(all),
		BySpecialty:   BySpecialty(practitioners),
		ByStatus:      map[model.ConsultationStatus]int{},
	}

	completed := 0
	for _, c := range all {
		sum.ByStatus[c.EffectiveStatus(now)]++
		switch c.Status {
		case model.StatusCancelled:
			sum.Cancelled++
		case model.StatusCompleted:
			completed++
		}
	}
	sum.CompletionRate = CompletionRate(completed, len(all)-sum.Cancelled)

	if from != nil && to != nil {
		sum.Period = &Period{
			From:          *from,
			To:            *to,
			Consultations: len(s.consultations.InPeriod(*from, *to)),
		}
	}
	return sum
}

// BySpecialty counts practitioners per specialty, most frequent first, then by name.
func BySpecialty(practitioners []model.Practitioner) []SpecialtyCount {
	counts := make(map[string]int)
	for _, p := range practitioners {
		counts[p.Specialty]++
	}
	out := make([]SpecialtyCount, 0, len(counts))
	for spec, n := range counts {
		out = append(out, SpecialtyCount{Specialty: spec, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Specialty < out[j].Specialty
	})
	return out
}

// CompletionRate is completed over non-cancelled consultations, as a percentage
// rounded to two decimals. Zero when nothing is countable.
func CompletionRate(completed, countable int) float64 {
	if countable <= 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(countable)*10000) / 100
}
