package scheduling

import (
	"github.com/jwalitptl/medipass-api/internal/model"
)

// RestoreResult counts consultations kept and dropped by Restore.
type RestoreResult struct {
	Loaded  int
	Skipped int
}

// Restore re-inserts stored consultations into the master store, the practitioner
// planning and the patient record. Rows with a duplicate id, an unknown practitioner
// or patient, or an unreadable status are skipped so the engine stays usable with
// partially loaded data. Consultations of archived practitioners are kept.
func (s *Service) Restore(consultations []model.Consultation) RestoreResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res RestoreResult
	scheduled := 0
	for _, c := range consultations {
		reason := s.restoreProblem(c)
		if reason != "" {
			s.log.Warn("skipping stored consultation", "consultation_id", c.ID, "reason", reason)
			s.countRestore("skipped")
			res.Skipped++
			continue
		}
		if err := s.dir.AttachConsultation(c.PatientID, c.ID); err != nil {
			s.log.Warn("skipping stored consultation", "consultation_id", c.ID, "reason", "unknown patient")
			s.countRestore("skipped")
			res.Skipped++
			continue
		}

		c.DurationMinutes = model.NormalizeDuration(c.DurationMinutes)
		c.Status, _ = model.ParseStatus(string(c.Status))
		// in_progress is never stored; older rows carrying it are still open
		if c.Status == model.StatusInProgress {
			c.Status = model.StatusScheduled
		}
		if c.Status == model.StatusScheduled {
			scheduled++
		}

		stored := c
		s.planning.add(c.PractitionerID, c.ID)
		s.consultations[c.ID] = &stored
		s.order = append(s.order, c.ID)
		s.ids.Observe(c.ID)
		s.countRestore("loaded")
		res.Loaded++
	}

	if s.metrics != nil {
		s.metrics.ScheduledGauge.Add(float64(scheduled))
	}
	s.log.Info("consultations restored", "loaded", res.Loaded, "skipped", res.Skipped)
	return res
}

func (s *Service) restoreProblem(c model.Consultation) string {
	if c.ID <= 0 {
		return "missing id"
	}
	if _, dup := s.consultations[c.ID]; dup {
		return "duplicate id"
	}
	if c.Start.IsZero() {
		return "missing start"
	}
	if _, ok := model.ParseStatus(string(c.Status)); !ok {
		return "unknown status"
	}
	if !s.dir.KnownPractitioner(c.PractitionerID) {
		return "unknown practitioner"
	}
	return ""
}

func (s *Service) countRestore(result string) {
	if s.metrics != nil {
		s.metrics.RestoredEntities.WithLabelValues("consultation", result).Inc()
	}
}

// Snapshot returns every consultation for persistence, in booking order.
func (s *Service) Snapshot() []model.Consultation {
	return s.All()
}
