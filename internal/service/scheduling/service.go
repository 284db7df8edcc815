package scheduling

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medipass-api/internal/model"
	"github.com/jwalitptl/medipass-api/pkg/logger"
	"github.com/jwalitptl/medipass-api/pkg/metrics"
)

// Directory is the subset of the people directory the engine resolves against.
type Directory interface {
	Practitioner(id int) (model.Practitioner, error)
	KnownPractitioner(id int) bool
	Patient(id int) (model.Patient, error)
	AttachConsultation(patientID, consultationID int) error
}

// Publisher receives consultation lifecycle events. Failures stay inside the publisher.
type Publisher interface {
	Publish(ctx context.Context, evt model.ConsultationEvent)
}

type Options struct {
	// DefaultDuration replaces non-positive durations, in minutes.
	DefaultDuration int
	// AllowPastBookings disables the start-in-the-past check.
	AllowPastBookings bool
	Now       func() time.Time
	Logger    *logger.Logger
	Metrics   *metrics.Metrics
	Publisher Publisher
}

type BookingRequest struct {
	Start           time.Time
	DurationMinutes int
	Reason          string
	PractitionerID  int
	PatientID       int
}

// Service is the canonical store of consultations. Practitioner plannings and
// patient records hold consultation ids into it.
type Service struct {
	mu sync.RWMutex

	dir           Directory
	consultations map[int]*model.Consultation
	order         []int
	planning      *availabilityIndex
	ids           *model.Sequence

	defaultDuration int
	allowPast       bool
	now             func() time.Time
	log             *logger.Logger
	metrics         *metrics.Metrics
	events          Publisher
}

func NewService(dir Directory, opts Options) *Service {
	s := &Service{
		dir:             dir,
		consultations:   make(map[int]*model.Consultation),
		planning:        newAvailabilityIndex(),
		ids:             model.NewSequence(1),
		defaultDuration: opts.DefaultDuration,
		allowPast:       opts.AllowPastBookings,
		now:             opts.Now,
		log:             opts.Logger,
		metrics:         opts.Metrics,
		events:          opts.Publisher,
	}
	if s.defaultDuration <= 0 {
		s.defaultDuration = model.DefaultDurationMinutes
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	return s
}

// Book validates the request and registers the consultation with the patient's
// record, the practitioner's planning and the master store, in that order. The
// checks and the three writes happen in one critical section.
func (s *Service) Book(ctx context.Context, req BookingRequest) (model.Consultation, error) {
	started := time.Now()
	c, err := s.book(req)
	s.observeBooking(err, started)
	if err != nil {
		s.log.WithContext(ctx).Debug("booking rejected",
			"practitioner_id", req.PractitionerID,
			"patient_id", req.PatientID,
			"error", err.Error(),
		)
		return model.Consultation{}, err
	}

	s.log.WithContext(ctx).Info("consultation booked",
		"consultation_id", c.ID,
		"practitioner_id", c.PractitionerID,
		"patient_id", c.PatientID,
		"start", c.Start.Format(model.DateTimeLayout),
	)
	s.publish(ctx, model.EventConsultationBooked, c)
	return c, nil
}

func (s *Service) book(req BookingRequest) (model.Consultation, error) {
	switch {
	case req.Start.IsZero():
		return model.Consultation{}, fmt.Errorf("start: %w", ErrMissingField)
	case req.PractitionerID <= 0:
		return model.Consultation{}, fmt.Errorf("practitioner: %w", ErrMissingField)
	case req.PatientID <= 0:
		return model.Consultation{}, fmt.Errorf("patient: %w", ErrMissingField)
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return model.Consultation{}, ErrBlankReason
	}
	if !s.allowPast && req.Start.Before(s.now()) {
		return model.Consultation{}, fmt.Errorf("%s: %w", req.Start.Format(model.DateTimeLayout), ErrStartInPast)
	}

	duration := req.DurationMinutes
	if duration <= 0 {
		duration = s.defaultDuration
	}
	candidate := model.NewInterval(req.Start, duration)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.dir.Practitioner(req.PractitionerID); err != nil {
		return model.Consultation{}, fmt.Errorf("practitioner %d: %w: %w", req.PractitionerID, ErrPractitionerNotFound, err)
	}
	patient, err := s.dir.Patient(req.PatientID)
	if err != nil {
		return model.Consultation{}, fmt.Errorf("patient %d: %w: %w", req.PatientID, ErrPatientNotFound, err)
	}

	if !s.planning.isAvailable(req.PractitionerID, candidate, s.lookup) {
		return model.Consultation{}, fmt.Errorf("practitioner %d at %s: %w",
			req.PractitionerID, req.Start.Format(model.DateTimeLayout), ErrPractitionerUnavailable)
	}
	if !slotFree(patient.Record.ConsultationIDs(), candidate, s.lookup) {
		return model.Consultation{}, fmt.Errorf("patient %d at %s: %w",
			req.PatientID, req.Start.Format(model.DateTimeLayout), ErrPatientUnavailable)
	}

	c := &model.Consultation{
		ID:              s.ids.Next(),
		Start:           req.Start,
		DurationMinutes: duration,
		Reason:          reason,
		Status:          model.StatusScheduled,
		PractitionerID:  req.PractitionerID,
		PatientID:       req.PatientID,
	}
	if err := s.dir.AttachConsultation(req.PatientID, c.ID); err != nil {
		return model.Consultation{}, fmt.Errorf("patient %d: %w: %w", req.PatientID, ErrPatientNotFound, err)
	}
	s.planning.add(c.PractitionerID, c.ID)
	s.consultations[c.ID] = c
	s.order = append(s.order, c.ID)

	if s.metrics != nil {
		s.metrics.ScheduledGauge.Inc()
	}
	return *c, nil
}

// Cancel marks the consultation cancelled. It stays in every planning and record.
// Cancelling twice is a no-op; a completed consultation cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, id int) error {
	return s.transition(ctx, id, model.StatusCancelled, model.EventConsultationCancelled)
}

// MarkCompleted is idempotent; a cancelled consultation cannot be completed.
func (s *Service) MarkCompleted(ctx context.Context, id int) error {
	return s.transition(ctx, id, model.StatusCompleted, model.EventConsultationCompleted)
}

func (s *Service) transition(ctx context.Context, id int, to model.ConsultationStatus, eventType string) error {
	s.mu.Lock()
	c, ok := s.consultations[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("consultation %d: %w", id, ErrConsultationNotFound)
	}
	if c.Status == to {
		s.mu.Unlock()
		return nil
	}
	if c.Status != model.StatusScheduled {
		from := c.Status
		s.mu.Unlock()
		return fmt.Errorf("consultation %d is %s, cannot become %s: %w", id, from, to, ErrInvalidTransition)
	}
	c.Status = to
	snapshot := *c
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.StatusTransitions.WithLabelValues(string(to)).Inc()
		s.metrics.ScheduledGauge.Dec()
	}
	s.log.WithContext(ctx).Info("consultation status changed", "consultation_id", id, "status", string(to))
	s.publish(ctx, eventType, snapshot)
	return nil
}

// SetObservations replaces the free-text observations. Allowed in any status.
func (s *Service) SetObservations(ctx context.Context, id int, text string) error {
	return s.annotate(ctx, id, model.EventConsultationAnnotated, func(c *model.Consultation) {
		c.Observations = text
	})
}

// SetDiagnosis replaces the free-text diagnosis. Allowed in any status.
func (s *Service) SetDiagnosis(ctx context.Context, id int, text string) error {
	return s.annotate(ctx, id, model.EventConsultationDiagnosed, func(c *model.Consultation) {
		c.Diagnosis = text
	})
}

func (s *Service) annotate(ctx context.Context, id int, eventType string, apply func(*model.Consultation)) error {
	s.mu.Lock()
	c, ok := s.consultations[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("consultation %d: %w", id, ErrConsultationNotFound)
	}
	apply(c)
	snapshot := *c
	s.mu.Unlock()

	s.publish(ctx, eventType, snapshot)
	return nil
}

// IsAvailable reports whether the practitioner has no active consultation overlapping
// [start, start+minutes).
func (s *Service) IsAvailable(practitionerID int, start time.Time, minutes int) bool {
	if minutes <= 0 {
		minutes = s.defaultDuration
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.planning.isAvailable(practitionerID, model.NewInterval(start, minutes), s.lookup)
}

// OwnedBy reports whether the consultation belongs to the practitioner.
func (s *Service) OwnedBy(id, practitionerID int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.consultations[id]
	if !ok {
		return false, fmt.Errorf("consultation %d: %w", id, ErrConsultationNotFound)
	}
	return c.PractitionerID == practitionerID, nil
}

// Authorize lets administrators act on any consultation and practitioners on their own.
func (s *Service) Authorize(actor model.Actor, id int) error {
	owned, err := s.OwnedBy(id, actor.PersonID())
	if err != nil {
		return err
	}
	if actor.Kind() == model.KindAdministrator || owned {
		return nil
	}
	return fmt.Errorf("consultation %d: %w", id, ErrNotOwner)
}

// Now is the engine clock, exposed so views derive in-progress status consistently.
func (s *Service) Now() time.Time {
	return s.now()
}

// lookup must be called with s.mu held.
func (s *Service) lookup(id int) (*model.Consultation, bool) {
	c, ok := s.consultations[id]
	return c, ok
}

func (s *Service) publish(ctx context.Context, eventType string, c model.Consultation) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, model.ConsultationEvent{
		ID:             uuid.New(),
		Type:           eventType,
		ConsultationID: c.ID,
		PractitionerID: c.PractitionerID,
		PatientID:      c.PatientID,
		Status:         c.Status,
		Start:          c.Start,
		OccurredAt:     s.now(),
	})
}

func (s *Service) observeBooking(err error, started time.Time) {
	if s.metrics == nil {
		return
	}
	outcome := "booked"
	switch {
	case err == nil:
	case IsValidation(err):
		outcome = "invalid"
	case IsConflict(err):
		outcome = "conflict"
	case IsNotFound(err):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	s.metrics.BookingAttempts.WithLabelValues(outcome).Inc()
	s.metrics.BookingLatency.Observe(time.Since(started).Seconds())
}
