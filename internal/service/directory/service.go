package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medipass-api/internal/model"
	"github.com/jwalitptl/medipass-api/pkg/logger"
)

var (
	ErrPatientNotFound       = errors.New("patient not found")
	ErrPractitionerNotFound  = errors.New("practitioner not found")
	ErrAdministratorNotFound = errors.New("administrator not found")
	ErrAccountNotFound       = errors.New("account not found")
	ErrDuplicateID           = errors.New("identifier already in use")
	ErrDuplicateLogin        = errors.New("login already in use")
	ErrInvalidPerson         = errors.New("invalid person")
	ErrInvalidHistoryEntry   = errors.New("invalid history entry")
)

// Publisher receives directory-level events. Implemented by the event service.
type Publisher interface {
	Publish(ctx context.Context, evt model.ConsultationEvent)
}

// Service is the canonical store of patients, practitioners and administrators.
type Service struct {
	mu sync.RWMutex

	patients       map[int]*model.Patient
	patientOrder   []int
	practitioners  map[int]*model.Practitioner
	practOrder     []int
	administrators map[int]*model.Administrator
	adminOrder     []int

	records *model.Sequence
	history *model.Sequence

	now    func() time.Time
	log    *logger.Logger
	events Publisher
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithLogger(l *logger.Logger) Option { return func(s *Service) { s.log = l } }

func WithPublisher(p Publisher) Option { return func(s *Service) { s.events = p } }

func NewService(opts ...Option) *Service {
	s := &Service{
		patients:       make(map[int]*model.Patient),
		practitioners:  make(map[int]*model.Practitioner),
		administrators: make(map[int]*model.Administrator),
		records:        model.NewSequence(1),
		history:        model.NewSequence(1),
		now:            time.Now,
		log:            logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// -- Patients --

// CreatePatient registers the patient and creates its medical record.
func (s *Service) CreatePatient(ctx context.Context, p model.Patient) (model.Patient, error) {
	if err := validatePerson(p.Person); err != nil {
		return model.Patient{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idTaken(p.ID) {
		return model.Patient{}, fmt.Errorf("patient %d: %w", p.ID, ErrDuplicateID)
	}

	p.Record = model.NewMedicalRecord(s.records.Next(), p.ID, s.now())
	stored := p
	s.patients[p.ID] = &stored
	s.patientOrder = append(s.patientOrder, p.ID)

	s.log.Info("patient created", "patient_id", p.ID, "record_id", p.Record.ID)
	return stored.Detached(), nil
}

func (s *Service) Patient(id int) (model.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok {
		return model.Patient{}, fmt.Errorf("patient %d: %w", id, ErrPatientNotFound)
	}
	return p.Detached(), nil
}

// FindPatientByName matches family and given names case-insensitively.
func (s *Service) FindPatientByName(family, given string) (model.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.patientOrder {
		if p := s.patients[id]; p.SameName(family, given) {
			return p.Detached(), nil
		}
	}
	return model.Patient{}, fmt.Errorf("patient %s %s: %w", family, given, ErrPatientNotFound)
}

func (s *Service) PatientsByBloodGroup(group string) []model.Patient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Patient, 0)
	for _, id := range s.patientOrder {
		if p := s.patients[id]; p.BloodGroup != "" && strings.EqualFold(p.BloodGroup, group) {
			out = append(out, p.Detached())
		}
	}
	return out
}

func (s *Service) Patients() []model.Patient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Patient, 0, len(s.patientOrder))
	for _, id := range s.patientOrder {
		out = append(out, s.patients[id].Detached())
	}
	return out
}

// UpdatePatient applies non-blank changes.
func (s *Service) UpdatePatient(ctx context.Context, id int, req model.UpdatePatientRequest) (model.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patients[id]
	if !ok {
		return model.Patient{}, fmt.Errorf("patient %d: %w", id, ErrPatientNotFound)
	}
	setIfNotBlank(&p.FamilyName, req.FamilyName)
	setIfNotBlank(&p.GivenName, req.GivenName)
	setIfNotBlank(&p.NationalHealthID, req.NationalHealthID)
	setIfNotBlank(&p.BloodGroup, req.BloodGroup)
	setIfNotBlank(&p.Address, req.Address)
	setIfNotBlank(&p.Phone, req.Phone)
	setIfNotBlank(&p.Email, req.Email)
	return p.Detached(), nil
}

// AddHistoryEntry appends a new entry to the patient's record and returns it with its identifier.
func (s *Service) AddHistoryEntry(ctx context.Context, patientID int, e model.HistoryEntry) (model.HistoryEntry, error) {
	if strings.TrimSpace(e.Category) == "" {
		return model.HistoryEntry{}, fmt.Errorf("category is required: %w", ErrInvalidHistoryEntry)
	}
	if e.Date.IsZero() {
		return model.HistoryEntry{}, fmt.Errorf("date is required: %w", ErrInvalidHistoryEntry)
	}
	sev, err := model.ParseSeverity(string(e.Severity))
	if err != nil {
		return model.HistoryEntry{}, fmt.Errorf("%v: %w", err, ErrInvalidHistoryEntry)
	}
	e.Severity = sev

	s.mu.RLock()
	p, ok := s.patients[patientID]
	s.mu.RUnlock()
	if !ok {
		return model.HistoryEntry{}, fmt.Errorf("patient %d: %w", patientID, ErrPatientNotFound)
	}

	e.ID = s.history.Next()
	p.Record.AddHistoryEntry(e)

	if s.events != nil {
		s.events.Publish(ctx, model.ConsultationEvent{
			ID:         uuid.New(),
			Type:       model.EventHistoryEntryRecorded,
			PatientID:  patientID,
			OccurredAt: s.now(),
		})
	}
	return e, nil
}

// AttachConsultation appends a consultation id to the patient's record. Only the
// scheduling engine writes consultation ids.
func (s *Service) AttachConsultation(patientID, consultationID int) error {
	s.mu.RLock()
	p, ok := s.patients[patientID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("patient %d: %w", patientID, ErrPatientNotFound)
	}
	p.Record.AddConsultation(consultationID)
	return nil
}

// History returns the patient's entries; an unknown patient yields an empty slice.
func (s *Service) History(patientID int) []model.HistoryEntry {
	s.mu.RLock()
	p, ok := s.patients[patientID]
	s.mu.RUnlock()
	if !ok {
		return []model.HistoryEntry{}
	}
	return p.Record.History()
}

// -- Practitioners --

func (s *Service) CreatePractitioner(ctx context.Context, p model.Practitioner) (model.Practitioner, error) {
	if err := validatePerson(p.Person); err != nil {
		return model.Practitioner{}, err
	}
	if strings.TrimSpace(p.Login) == "" {
		return model.Practitioner{}, fmt.Errorf("login is required: %w", ErrInvalidPerson)
	}
	if p.AvailabilityHours == "" {
		p.AvailabilityHours = model.DefaultAvailabilityHours
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idTaken(p.ID) {
		return model.Practitioner{}, fmt.Errorf("practitioner %d: %w", p.ID, ErrDuplicateID)
	}
	if s.loginTaken(p.Login) {
		return model.Practitioner{}, fmt.Errorf("practitioner %q: %w", p.Login, ErrDuplicateLogin)
	}

	p.Archived = false
	stored := p
	s.practitioners[p.ID] = &stored
	s.practOrder = append(s.practOrder, p.ID)

	s.log.Info("practitioner created", "practitioner_id", p.ID, "specialty", p.Specialty)
	return stored, nil
}

// Practitioner returns an active (non-archived) practitioner.
func (s *Service) Practitioner(id int) (model.Practitioner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.practitioners[id]
	if !ok || p.Archived {
		return model.Practitioner{}, fmt.Errorf("practitioner %d: %w", id, ErrPractitionerNotFound)
	}
	return *p, nil
}

// KnownPractitioner reports whether id was ever registered, archived ones included.
func (s *Service) KnownPractitioner(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.practitioners[id]
	return ok
}

// PractitionerByLogin resolves an active practitioner by login, case-insensitively.
func (s *Service) PractitionerByLogin(login string) (model.Practitioner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.practOrder {
		if p := s.practitioners[id]; !p.Archived && strings.EqualFold(p.Login, login) {
			return *p, nil
		}
	}
	return model.Practitioner{}, fmt.Errorf("practitioner %q: %w", login, ErrPractitionerNotFound)
}

func (s *Service) FindPractitionerByName(family, given string) (model.Practitioner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.practOrder {
		if p := s.practitioners[id]; !p.Archived && p.SameName(family, given) {
			return *p, nil
		}
	}
	return model.Practitioner{}, fmt.Errorf("practitioner %s %s: %w", family, given, ErrPractitionerNotFound)
}

func (s *Service) PractitionersBySpecialty(specialty string) []model.Practitioner {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Practitioner, 0)
	for _, id := range s.practOrder {
		if p := s.practitioners[id]; !p.Archived && strings.EqualFold(p.Specialty, specialty) {
			out = append(out, *p)
		}
	}
	return out
}

// Practitioners lists active practitioners.
func (s *Service) Practitioners() []model.Practitioner {
	return s.listPractitioners(false)
}

// AllPractitioners includes archived practitioners; used for persistence.
func (s *Service) AllPractitioners() []model.Practitioner {
	return s.listPractitioners(true)
}

func (s *Service) listPractitioners(withArchived bool) []model.Practitioner {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Practitioner, 0, len(s.practOrder))
	for _, id := range s.practOrder {
		p := s.practitioners[id]
		if p.Archived && !withArchived {
			continue
		}
		out = append(out, *p)
	}
	return out
}

// RemovePractitioner archives the practitioner. Their consultations are not touched.
func (s *Service) RemovePractitioner(ctx context.Context, id int) error {
	s.mu.Lock()
	p, ok := s.practitioners[id]
	if !ok || p.Archived {
		s.mu.Unlock()
		return fmt.Errorf("practitioner %d: %w", id, ErrPractitionerNotFound)
	}
	p.Archived = true
	p.Active = false
	s.mu.Unlock()

	s.log.Warn("practitioner archived, booked consultations retained", "practitioner_id", id)
	if s.events != nil {
		s.events.Publish(ctx, model.ConsultationEvent{
			ID:             uuid.New(),
			Type:           model.EventPractitionerArchived,
			PractitionerID: id,
			OccurredAt:     s.now(),
		})
	}
	return nil
}

// -- Administrators --

func (s *Service) CreateAdministrator(ctx context.Context, a model.Administrator) (model.Administrator, error) {
	if err := validatePerson(a.Person); err != nil {
		return model.Administrator{}, err
	}
	if strings.TrimSpace(a.Login) == "" {
		return model.Administrator{}, fmt.Errorf("login is required: %w", ErrInvalidPerson)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idTaken(a.ID) {
		return model.Administrator{}, fmt.Errorf("administrator %d: %w", a.ID, ErrDuplicateID)
	}
	if s.loginTaken(a.Login) {
		return model.Administrator{}, fmt.Errorf("administrator %q: %w", a.Login, ErrDuplicateLogin)
	}
	stored := a
	s.administrators[a.ID] = &stored
	s.adminOrder = append(s.adminOrder, a.ID)
	return stored, nil
}

func (s *Service) Administrator(id int) (model.Administrator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.administrators[id]
	if !ok {
		return model.Administrator{}, fmt.Errorf("administrator %d: %w", id, ErrAdministratorNotFound)
	}
	return *a, nil
}

func (s *Service) Administrators() []model.Administrator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Administrator, 0, len(s.adminOrder))
	for _, id := range s.adminOrder {
		out = append(out, *s.administrators[id])
	}
	return out
}

// -- Accounts --

// ActorByLogin resolves the account holder for a login, archived practitioners excluded.
func (s *Service) ActorByLogin(login string) (model.Actor, model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.practOrder {
		if p := s.practitioners[id]; !p.Archived && strings.EqualFold(p.Login, login) {
			cp := *p
			return &cp, cp.Account, nil
		}
	}
	for _, id := range s.adminOrder {
		if a := s.administrators[id]; strings.EqualFold(a.Login, login) {
			cp := *a
			return &cp, cp.Account, nil
		}
	}
	return nil, model.Account{}, fmt.Errorf("login %q: %w", login, ErrAccountNotFound)
}

func (s *Service) SetAccountActive(ctx context.Context, login string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.accountByLogin(login)
	if acc == nil {
		return fmt.Errorf("login %q: %w", login, ErrAccountNotFound)
	}
	acc.Active = active
	return nil
}

// SetContact updates email and phone when provided.
func (s *Service) SetContact(ctx context.Context, login string, req model.UpdateContactRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.practOrder {
		if p := s.practitioners[id]; strings.EqualFold(p.Login, login) {
			applyContact(&p.Person, req)
			return nil
		}
	}
	for _, id := range s.adminOrder {
		if a := s.administrators[id]; strings.EqualFold(a.Login, login) {
			applyContact(&a.Person, req)
			return nil
		}
	}
	return fmt.Errorf("login %q: %w", login, ErrAccountNotFound)
}

func (s *Service) accountByLogin(login string) *model.Account {
	for _, id := range s.practOrder {
		if p := s.practitioners[id]; strings.EqualFold(p.Login, login) {
			return &p.Account
		}
	}
	for _, id := range s.adminOrder {
		if a := s.administrators[id]; strings.EqualFold(a.Login, login) {
			return &a.Account
		}
	}
	return nil
}

// -- Restore --

// RestoreResult counts what a restore kept and dropped.
type RestoreResult struct {
	Patients       int
	Practitioners  int
	Administrators int
	Skipped        int
}

// Restore loads previously saved people. Rows that collide with existing identifiers
// or logins are skipped and logged; the rest are kept.
func (s *Service) Restore(patients []model.Patient, practitioners []model.Practitioner, admins []model.Administrator) RestoreResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res RestoreResult
	for _, p := range patients {
		if validatePerson(p.Person) != nil || s.idTaken(p.ID) {
			s.log.Warn("skipping stored patient", "patient_id", p.ID)
			res.Skipped++
			continue
		}
		if p.Record == nil {
			p.Record = model.NewMedicalRecord(s.records.Next(), p.ID, s.now())
		} else {
			s.records.Observe(p.Record.ID)
			for _, e := range p.Record.History() {
				s.history.Observe(e.ID)
			}
		}
		stored := p.Detached()
		s.patients[p.ID] = &stored
		s.patientOrder = append(s.patientOrder, p.ID)
		res.Patients++
	}
	for _, p := range practitioners {
		if validatePerson(p.Person) != nil || s.idTaken(p.ID) || s.loginTaken(p.Login) {
			s.log.Warn("skipping stored practitioner", "practitioner_id", p.ID)
			res.Skipped++
			continue
		}
		stored := p
		s.practitioners[p.ID] = &stored
		s.practOrder = append(s.practOrder, p.ID)
		res.Practitioners++
	}
	for _, a := range admins {
		if validatePerson(a.Person) != nil || s.idTaken(a.ID) || s.loginTaken(a.Login) {
			s.log.Warn("skipping stored administrator", "administrator_id", a.ID)
			res.Skipped++
			continue
		}
		stored := a
		s.administrators[a.ID] = &stored
		s.adminOrder = append(s.adminOrder, a.ID)
		res.Administrators++
	}
	return res
}

// -- helpers; callers hold s.mu --

func (s *Service) idTaken(id int) bool {
	if _, ok := s.patients[id]; ok {
		return true
	}
	if _, ok := s.practitioners[id]; ok {
		return true
	}
	_, ok := s.administrators[id]
	return ok
}

func (s *Service) loginTaken(login string) bool {
	return s.accountByLogin(login) != nil
}

func validatePerson(p model.Person) error {
	if p.ID <= 0 {
		return fmt.Errorf("identifier must be positive: %w", ErrInvalidPerson)
	}
	if strings.TrimSpace(p.FamilyName) == "" || strings.TrimSpace(p.GivenName) == "" {
		return fmt.Errorf("family and given names are required: %w", ErrInvalidPerson)
	}
	return nil
}

func setIfNotBlank(dst *string, v *string) {
	if v != nil && strings.TrimSpace(*v) != "" {
		*dst = strings.TrimSpace(*v)
	}
}

func applyContact(p *model.Person, req model.UpdateContactRequest) {
	if req.Email != nil {
		p.Email = *req.Email
	}
	if req.Phone != nil {
		p.Phone = *req.Phone
	}
}
