package scheduling

import (
	"fmt"
	"sort"
	"time"

	"github.com/jwalitptl/medipass-api/internal/model"
)

// All query methods return copies; callers may mutate them freely.

func (s *Service) Consultation(id int) (model.Consultation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.consultations[id]
	if !ok {
		return model.Consultation{}, fmt.Errorf("consultation %d: %w", id, ErrConsultationNotFound)
	}
	return *c, nil
}

// All returns every consultation in booking order, cancelled ones included.
func (s *Service) All() []model.Consultation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.order, nil)
}

// ByPatient follows the patient's record. Unknown patients yield an empty slice.
func (s *Service) ByPatient(patientID int) []model.Consultation {
	p, err := s.dir.Patient(patientID)
	if err != nil || p.Record == nil {
		return []model.Consultation{}
	}
	ids := p.Record.ConsultationIDs()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(ids, nil)
}

// ByPractitioner is the practitioner's full planning in registration order.
func (s *Service) ByPractitioner(practitionerID int) []model.Consultation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.planning.ids(practitionerID), nil)
}

// ByStatus matches on the effective status, so in_progress is derived from the clock
// and a consultation under way is not reported as scheduled.
func (s *Service) ByStatus(status model.ConsultationStatus) []model.Consultation {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.order, func(c *model.Consultation) bool {
		return c.EffectiveStatus(now) == status
	})
}

// InRange returns consultations starting in [begin, end), sorted by start.
func (s *Service) InRange(begin, end time.Time) []model.Consultation {
	s.mu.RLock()
	out := s.collect(s.order, func(c *model.Consultation) bool {
		return !c.Start.Before(begin) && c.Start.Before(end)
	})
	s.mu.RUnlock()
	sortByStart(out)
	return out
}

// InPeriod uses closed bounds: begin <= start <= end. Reports count this way.
func (s *Service) InPeriod(begin, end time.Time) []model.Consultation {
	s.mu.RLock()
	out := s.collect(s.order, func(c *model.Consultation) bool {
		return !c.Start.Before(begin) && !c.Start.After(end)
	})
	s.mu.RUnlock()
	sortByStart(out)
	return out
}

// Upcoming lists the practitioner's non-cancelled consultations starting after now.
func (s *Service) Upcoming(practitionerID int) []model.Consultation {
	now := s.now()
	s.mu.RLock()
	out := s.collect(s.planning.ids(practitionerID), func(c *model.Consultation) bool {
		return !c.IsCancelled() && c.Start.After(now)
	})
	s.mu.RUnlock()
	sortByStart(out)
	return out
}

// PlanningByDay groups the practitioner's active consultations starting in
// [begin, end) by calendar day. Days and the items within them ascend.
func (s *Service) PlanningByDay(practitionerID int, begin, end time.Time) []model.DayPlan {
	s.mu.RLock()
	active := s.collect(s.planning.ids(practitionerID), func(c *model.Consultation) bool {
		return !c.IsCancelled() && !c.Start.Before(begin) && c.Start.Before(end)
	})
	s.mu.RUnlock()
	return groupByDay(active)
}

func (s *Service) PlanningForDay(practitionerID int, day time.Time) []model.DayPlan {
	begin := model.StartOfDay(day)
	return s.PlanningByDay(practitionerID, begin, begin.AddDate(0, 0, 1))
}

// PlanningForWeek covers seven days from the given day.
func (s *Service) PlanningForWeek(practitionerID int, from time.Time) []model.DayPlan {
	begin := model.StartOfDay(from)
	return s.PlanningByDay(practitionerID, begin, begin.AddDate(0, 0, 7))
}

// PlanningForMonth covers the calendar month containing day.
func (s *Service) PlanningForMonth(practitionerID int, day time.Time) []model.DayPlan {
	y, m, _ := day.Date()
	begin := time.Date(y, m, 1, 0, 0, 0, 0, day.Location())
	return s.PlanningByDay(practitionerID, begin, begin.AddDate(0, 1, 0))
}

// collect must be called with s.mu held. Never returns nil.
func (s *Service) collect(ids []int, keep func(*model.Consultation) bool) []model.Consultation {
	out := make([]model.Consultation, 0, len(ids))
	for _, id := range ids {
		c, ok := s.consultations[id]
		if !ok {
			continue
		}
		if keep != nil && !keep(c) {
			continue
		}
		out = append(out, *c)
	}
	return out
}

func sortByStart(cs []model.Consultation) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Start.Equal(cs[j].Start) {
			return cs[i].ID < cs[j].ID
		}
		return cs[i].Start.Before(cs[j].Start)
	})
}

func groupByDay(cs []model.Consultation) []model.DayPlan {
	sortByStart(cs)
	plans := make([]model.DayPlan, 0)
	for _, c := range cs {
		day := model.StartOfDay(c.Start)
		if n := len(plans); n > 0 && plans[n-1].Day.Equal(day) {
			plans[n-1].Consultations = append(plans[n-1].Consultations, c)
			continue
		}
		plans = append(plans, model.DayPlan{Day: day, Consultations: []model.Consultation{c}})
	}
	return plans
}
