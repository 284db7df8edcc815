package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/medipass-api/internal/model"
	"github.com/jwalitptl/medipass-api/internal/repository"
	"github.com/jwalitptl/medipass-api/pkg/logger"
)

type personRow struct {
	Position   int          `db:"position"`
	ID         int          `db:"id"`
	FamilyName string       `db:"family_name"`
	GivenName  string       `db:"given_name"`
	BirthDate  sql.NullTime `db:"birth_date"`
	Sex        string       `db:"sex"`
	Address    string       `db:"address"`
	Phone      string       `db:"phone"`
	Email      string       `db:"email"`
}

type accountRow struct {
	Login      string `db:"login"`
	SecretHash string `db:"secret_hash"`
	Active     bool   `db:"active"`
}

type patientRow struct {
	personRow
	NationalHealthID string        `db:"national_health_id"`
	BloodGroup       string        `db:"blood_group"`
	RecordID         sql.NullInt64 `db:"record_id"`
	RecordCreatedAt  sql.NullTime  `db:"record_created_at"`
}

type practitionerRow struct {
	personRow
	accountRow
	Specialty         string `db:"specialty"`
	LicenseNumber     string `db:"license_number"`
	AvailabilityHours string `db:"availability_hours"`
	Archived          bool   `db:"archived"`
}

type administratorRow struct {
	personRow
	accountRow
	Scope string `db:"scope"`
}

type historyRow struct {
	Position    int       `db:"position"`
	ID          int       `db:"id"`
	PatientID   int       `db:"patient_id"`
	Category    string    `db:"category"`
	Description string    `db:"description"`
	OccurredOn  time.Time `db:"occurred_on"`
	Severity    string    `db:"severity"`
	Active      bool      `db:"active"`
}

type consultationRow struct {
	Position        int       `db:"position"`
	ID              int       `db:"id"`
	StartTime       time.Time `db:"start_time"`
	DurationMinutes int       `db:"duration_minutes"`
	Reason          string    `db:"reason"`
	Status          string    `db:"status"`
	Observations    string    `db:"observations"`
	Diagnosis       string    `db:"diagnosis"`
	PractitionerID  int       `db:"practitioner_id"`
	PatientID       int       `db:"patient_id"`
}

const (
	personColumns = `position, id, family_name, given_name, birth_date, sex, address, phone, email`
	personValues  = `:position, :id, :family_name, :given_name, :birth_date, :sex, :address, :phone, :email`

	insertPatient = `INSERT INTO patients (` + personColumns + `, national_health_id, blood_group, record_id, record_created_at)
		VALUES (` + personValues + `, :national_health_id, :blood_group, :record_id, :record_created_at)`
	insertPractitioner = `INSERT INTO practitioners (` + personColumns + `, login, secret_hash, active, specialty, license_number, availability_hours, archived)
		VALUES (` + personValues + `, :login, :secret_hash, :active, :specialty, :license_number, :availability_hours, :archived)`
	insertAdministrator = `INSERT INTO administrators (` + personColumns + `, login, secret_hash, active, scope)
		VALUES (` + personValues + `, :login, :secret_hash, :active, :scope)`
	insertHistory = `INSERT INTO history_entries (position, id, patient_id, category, description, occurred_on, severity, active)
		VALUES (:position, :id, :patient_id, :category, :description, :occurred_on, :severity, :active)`
	insertConsultation = `INSERT INTO consultations (position, id, start_time, duration_minutes, reason, status, observations, diagnosis, practitioner_id, patient_id)
		VALUES (:position, :id, :start_time, :duration_minutes, :reason, :status, :observations, :diagnosis, :practitioner_id, :patient_id)`

	clearSnapshot = `TRUNCATE consultations, history_entries, patients, practitioners, administrators`
)

// SnapshotStore keeps the snapshot in Postgres. Save replaces every table in one transaction.
type SnapshotStore struct {
	BaseRepository
	log *logger.Logger
}

func NewSnapshotStore(db *sqlx.DB, log *logger.Logger) *SnapshotStore {
	if log == nil {
		log = logger.Nop()
	}
	return &SnapshotStore{BaseRepository: NewBaseRepository(db), log: log}
}

var _ repository.SnapshotStore = (*SnapshotStore)(nil)

// Migrate creates the tables when missing.
func (s *SnapshotStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *SnapshotStore) Save(ctx context.Context, snap *repository.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("nil snapshot")
	}
	patients, history := patientRows(snap.Patients)

	return s.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, clearSnapshot); err != nil {
			return fmt.Errorf("failed to clear snapshot: %w", err)
		}
		batches := []struct {
			table string
			query string
			rows  interface{}
			n     int
		}{
			{"patients", insertPatient, patients, len(patients)},
			{"history_entries", insertHistory, history, len(history)},
			{"practitioners", insertPractitioner, practitionerRows(snap.Practitioners), len(snap.Practitioners)},
			{"administrators", insertAdministrator, administratorRows(snap.Administrators), len(snap.Administrators)},
			{"consultations", insertConsultation, consultationRows(snap.Consultations), len(snap.Consultations)},
		}
		for _, b := range batches {
			if b.n == 0 {
				continue
			}
			if _, err := tx.NamedExecContext(ctx, b.query, b.rows); err != nil {
				return fmt.Errorf("failed to insert %s: %w", b.table, err)
			}
		}
		return nil
	})
}

func (s *SnapshotStore) Load(ctx context.Context) (*repository.Snapshot, error) {
	var (
		patients      []patientRow
		history       []historyRow
		practitioners []practitionerRow
		admins        []administratorRow
		consultations []consultationRow
	)
	queries := []struct {
		dest  interface{}
		query string
	}{
		{&patients, `SELECT * FROM patients ORDER BY position`},
		{&history, `SELECT * FROM history_entries ORDER BY position`},
		{&practitioners, `SELECT * FROM practitioners ORDER BY position`},
		{&admins, `SELECT * FROM administrators ORDER BY position`},
		{&consultations, `SELECT * FROM consultations ORDER BY position`},
	}
	for _, q := range queries {
		if err := s.db.SelectContext(ctx, q.dest, q.query); err != nil {
			return nil, fmt.Errorf("failed to load snapshot: %w", err)
		}
	}

	snap := &repository.Snapshot{}
	records := make(map[int]*model.MedicalRecord, len(patients))
	for _, r := range patients {
		p := model.Patient{
			Person:           r.personRow.toModel(),
			NationalHealthID: r.NationalHealthID,
			BloodGroup:       r.BloodGroup,
		}
		if r.RecordID.Valid {
			p.Record = model.NewMedicalRecord(int(r.RecordID.Int64), p.ID, r.RecordCreatedAt.Time)
			records[p.ID] = p.Record
		}
		snap.Patients = append(snap.Patients, p)
	}
	for _, r := range history {
		rec, ok := records[r.PatientID]
		sev, err := model.ParseSeverity(r.Severity)
		if !ok || err != nil {
			s.log.Warn("skipping stored history entry", "entry_id", r.ID, "patient_id", r.PatientID)
			snap.Skipped++
			continue
		}
		rec.AddHistoryEntry(model.HistoryEntry{
			ID:          r.ID,
			Category:    r.Category,
			Description: r.Description,
			Date:        r.OccurredOn,
			Severity:    sev,
			Active:      r.Active,
		})
	}
	for _, r := range practitioners {
		snap.Practitioners = append(snap.Practitioners, model.Practitioner{
			Person:            r.personRow.toModel(),
			Account:           r.accountRow.toModel(),
			Specialty:         r.Specialty,
			LicenseNumber:     r.LicenseNumber,
			AvailabilityHours: r.AvailabilityHours,
			Archived:          r.Archived,
		})
	}
	for _, r := range admins {
		snap.Administrators = append(snap.Administrators, model.Administrator{
			Person:  r.personRow.toModel(),
			Account: r.accountRow.toModel(),
			Scope:   r.Scope,
		})
	}
	for _, r := range consultations {
		snap.Consultations = append(snap.Consultations, model.Consultation{
			ID:              r.ID,
			Start:           r.StartTime,
			DurationMinutes: r.DurationMinutes,
			Reason:          r.Reason,
			Status:          model.ConsultationStatus(r.Status),
			Observations:    r.Observations,
			Diagnosis:       r.Diagnosis,
			PractitionerID:  r.PractitionerID,
			PatientID:       r.PatientID,
		})
	}

	if len(patients)+len(practitioners)+len(admins)+len(consultations) == 0 {
		return nil, repository.ErrNoSnapshot
	}
	return snap, nil
}

func (r personRow) toModel() model.Person {
	p := model.Person{
		ID:         r.ID,
		FamilyName: r.FamilyName,
		GivenName:  r.GivenName,
		Sex:        r.Sex,
		Address:    r.Address,
		Phone:      r.Phone,
		Email:      r.Email,
	}
	if r.BirthDate.Valid {
		t := r.BirthDate.Time
		p.BirthDate = &t
	}
	return p
}

func (r accountRow) toModel() model.Account {
	return model.Account{Login: r.Login, SecretHash: r.SecretHash, Active: r.Active}
}

func newPersonRow(pos int, p model.Person) personRow {
	row := personRow{
		Position:   pos,
		ID:         p.ID,
		FamilyName: p.FamilyName,
		GivenName:  p.GivenName,
		Sex:        p.Sex,
		Address:    p.Address,
		Phone:      p.Phone,
		Email:      p.Email,
	}
	if p.BirthDate != nil {
		row.BirthDate = sql.NullTime{Time: *p.BirthDate, Valid: true}
	}
	return row
}

func newAccountRow(a model.Account) accountRow {
	return accountRow{Login: a.Login, SecretHash: a.SecretHash, Active: a.Active}
}

func patientRows(ps []model.Patient) ([]patientRow, []historyRow) {
	rows := make([]patientRow, 0, len(ps))
	var history []historyRow
	for i, p := range ps {
		row := patientRow{
			personRow:        newPersonRow(i, p.Person),
			NationalHealthID: p.NationalHealthID,
			BloodGroup:       p.BloodGroup,
		}
		if p.Record != nil {
			row.RecordID = sql.NullInt64{Int64: int64(p.Record.ID), Valid: true}
			row.RecordCreatedAt = sql.NullTime{Time: p.Record.CreatedAt, Valid: true}
			for _, h := range p.Record.History() {
				history = append(history, historyRow{
					Position:    len(history),
					ID:          h.ID,
					PatientID:   p.ID,
					Category:    h.Category,
					Description: h.Description,
					OccurredOn:  h.Date,
					Severity:    string(h.Severity),
					Active:      h.Active,
				})
			}
		}
		rows = append(rows, row)
	}
	return rows, history
}

func practitionerRows(ps []model.Practitioner) []practitionerRow {
	rows := make([]practitionerRow, 0, len(ps))
	for i, p := range ps {
		rows = append(rows, practitionerRow{
			personRow:         newPersonRow(i, p.Person),
			accountRow:        newAccountRow(p.Account),
			Specialty:         p.Specialty,
			LicenseNumber:     p.LicenseNumber,
			AvailabilityHours: p.AvailabilityHours,
			Archived:          p.Archived,
		})
	}
	return rows
}

func administratorRows(as []model.Administrator) []administratorRow {
	rows := make([]administratorRow, 0, len(as))
	for i, a := range as {
		rows = append(rows, administratorRow{
			personRow:  newPersonRow(i, a.Person),
			accountRow: newAccountRow(a.Account),
			Scope:      a.Scope,
		})
	}
	return rows
}

func consultationRows(cs []model.Consultation) []consultationRow {
	rows := make([]consultationRow, 0, len(cs))
	for i, c := range cs {
		rows = append(rows, consultationRow{
			Position:        i,
			ID:              c.ID,
			StartTime:       c.Start,
			DurationMinutes: c.DurationMinutes,
			Reason:          c.Reason,
			Status:          string(c.Status),
			Observations:    c.Observations,
			Diagnosis:       c.Diagnosis,
			PractitionerID:  c.PractitionerID,
			PatientID:       c.PatientID,
		})
	}
	return rows
}
