package flatfile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jwalitptl/medipass-api/internal/model"
	"github.com/jwalitptl/medipass-api/internal/repository"
	"github.com/jwalitptl/medipass-api/pkg/logger"
)

var (
	personHeader        = []string{"id", "family_name", "given_name", "birth_date", "sex", "address", "phone", "email"}
	accountHeader       = []string{"login", "secret_hash", "active"}
	patientHeader       = concat(personHeader, []string{"national_health_id", "blood_group", "record_id", "record_created_at"})
	practitionerHeader  = concat(personHeader, accountHeader, []string{"specialty", "license_number", "availability_hours", "archived"})
	administratorHeader = concat(personHeader, accountHeader, []string{"scope"})
	historyHeader       = []string{"id", "patient_id", "category", "description", "date", "severity", "active"}
	consultationHeader  = []string{"id", "start", "duration_minutes", "reason", "status", "observations", "diagnosis", "practitioner_id", "patient_id"}
)

func concat(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// -- encoding --

type encoder struct{}

func (encoder) person(p model.Person) []string {
	birth := ""
	if p.BirthDate != nil {
		birth = p.BirthDate.Format(model.DateLayout)
	}
	return []string{
		strconv.Itoa(p.ID),
		Sanitize(p.FamilyName),
		Sanitize(p.GivenName),
		birth,
		Sanitize(p.Sex),
		Sanitize(p.Address),
		Sanitize(p.Phone),
		Sanitize(p.Email),
	}
}

func (encoder) account(a model.Account) []string {
	return []string{Sanitize(a.Login), a.SecretHash, strconv.FormatBool(a.Active)}
}

func (e encoder) patients(ps []model.Patient) [][]string {
	rows := make([][]string, 0, len(ps))
	for _, p := range ps {
		recordID, created := "", ""
		if p.Record != nil {
			recordID = strconv.Itoa(p.Record.ID)
			created = p.Record.CreatedAt.Format(time.RFC3339)
		}
		rows = append(rows, concat(e.person(p.Person), []string{
			Sanitize(p.NationalHealthID),
			Sanitize(p.BloodGroup),
			recordID,
			created,
		}))
	}
	return rows
}

func (e encoder) practitioners(ps []model.Practitioner) [][]string {
	rows := make([][]string, 0, len(ps))
	for _, p := range ps {
		rows = append(rows, concat(e.person(p.Person), e.account(p.Account), []string{
			Sanitize(p.Specialty),
			Sanitize(p.LicenseNumber),
			Sanitize(p.AvailabilityHours),
			strconv.FormatBool(p.Archived),
		}))
	}
	return rows
}

func (e encoder) administrators(as []model.Administrator) [][]string {
	rows := make([][]string, 0, len(as))
	for _, a := range as {
		rows = append(rows, concat(e.person(a.Person), e.account(a.Account), []string{Sanitize(a.Scope)}))
	}
	return rows
}

func (encoder) history(ps []model.Patient) [][]string {
	var rows [][]string
	for _, p := range ps {
		if p.Record == nil {
			continue
		}
		for _, h := range p.Record.History() {
			rows = append(rows, []string{
				strconv.Itoa(h.ID),
				strconv.Itoa(p.ID),
				Sanitize(h.Category),
				Sanitize(h.Description),
				h.Date.Format(model.DateLayout),
				string(h.Severity),
				strconv.FormatBool(h.Active),
			})
		}
	}
	return rows
}

func (encoder) consultations(cs []model.Consultation) [][]string {
	rows := make([][]string, 0, len(cs))
	for _, c := range cs {
		rows = append(rows, []string{
			strconv.Itoa(c.ID),
			c.Start.Format(model.DateTimeLayout),
			strconv.Itoa(c.DurationMinutes),
			Sanitize(c.Reason),
			string(c.Status),
			Sanitize(c.Observations),
			Sanitize(c.Diagnosis),
			strconv.Itoa(c.PractitionerID),
			strconv.Itoa(c.PatientID),
		})
	}
	return rows
}

// -- decoding --

type decoder struct {
	loc  *time.Location
	log  *logger.Logger
	snap *repository.Snapshot
}

// row wraps one record and remembers the first field that failed to parse.
type row struct {
	fields []string
	loc    *time.Location
	err    error
}

func (r *row) str(i int) string {
	return strings.TrimSpace(r.fields[i])
}

func (r *row) num(i int) int {
	v, err := strconv.Atoi(r.str(i))
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("field %d: %w", i, err)
	}
	return v
}

// optNum treats an empty field as zero.
func (r *row) optNum(i int) int {
	if r.str(i) == "" {
		return 0
	}
	return r.num(i)
}

func (r *row) flag(i int) bool {
	v, err := strconv.ParseBool(r.str(i))
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("field %d: %w", i, err)
	}
	return v
}

func (r *row) when(i int, layout string) time.Time {
	t, err := time.ParseInLocation(layout, r.str(i), r.loc)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("field %d: %w", i, err)
	}
	return t
}

func (r *row) optDate(i int) *time.Time {
	if r.str(i) == "" {
		return nil
	}
	t := r.when(i, model.DateLayout)
	return &t
}

func (d *decoder) rows(name string, records [][]string, width int, fn func(*row)) {
	for n, rec := range records {
		if len(rec) < width {
			d.skip(name, n, fmt.Errorf("expected %d fields, got %d", width, len(rec)))
			continue
		}
		r := &row{fields: rec, loc: d.loc}
		fn(r)
		if r.err != nil {
			d.skip(name, n, r.err)
		}
	}
}

func (d *decoder) skip(name string, n int, err error) {
	d.snap.Skipped++
	d.log.Warn("skipping malformed row", "file", name, "row", n+1, "error", err.Error())
}

func (d *decoder) person(r *row) model.Person {
	return model.Person{
		ID:         r.num(0),
		FamilyName: r.str(1),
		GivenName:  r.str(2),
		BirthDate:  r.optDate(3),
		Sex:        r.str(4),
		Address:    r.str(5),
		Phone:      r.str(6),
		Email:      r.str(7),
	}
}

func (d *decoder) account(r *row, from int) model.Account {
	return model.Account{Login: r.str(from), SecretHash: r.str(from + 1), Active: r.flag(from + 2)}
}

func (d *decoder) patients(records, history [][]string) {
	byID := make(map[int]*model.MedicalRecord)
	d.rows(patientsFile, records, len(patientHeader), func(r *row) {
		p := model.Patient{
			Person:           d.person(r),
			NationalHealthID: r.str(8),
			BloodGroup:       r.str(9),
		}
		if recordID := r.optNum(10); recordID > 0 {
			p.Record = model.NewMedicalRecord(recordID, p.ID, r.when(11, time.RFC3339))
		}
		if r.err != nil {
			return
		}
		if p.Record != nil {
			byID[p.ID] = p.Record
		}
		d.snap.Patients = append(d.snap.Patients, p)
	})

	d.rows(historyFile, history, len(historyHeader), func(r *row) {
		patientID := r.num(1)
		entry := model.HistoryEntry{
			ID:          r.num(0),
			Category:    r.str(2),
			Description: r.str(3),
			Date:        r.when(4, model.DateLayout),
			Active:      r.flag(6),
		}
		sev, err := model.ParseSeverity(r.str(5))
		if err != nil && r.err == nil {
			r.err = err
		}
		entry.Severity = sev
		if r.err != nil {
			return
		}
		rec, ok := byID[patientID]
		if !ok {
			r.err = fmt.Errorf("no record for patient %d", patientID)
			return
		}
		rec.AddHistoryEntry(entry)
	})
}

func (d *decoder) practitioners(records [][]string) {
	d.rows(practitionersFile, records, len(practitionerHeader), func(r *row) {
		p := model.Practitioner{
			Person:            d.person(r),
			Account:           d.account(r, 8),
			Specialty:         r.str(11),
			LicenseNumber:     r.str(12),
			AvailabilityHours: r.str(13),
			Archived:          r.flag(14),
		}
		if r.err == nil {
			d.snap.Practitioners = append(d.snap.Practitioners, p)
		}
	})
}

func (d *decoder) administrators(records [][]string) {
	d.rows(administratorsFile, records, len(administratorHeader), func(r *row) {
		a := model.Administrator{
			Person:  d.person(r),
			Account: d.account(r, 8),
			Scope:   r.str(11),
		}
		if r.err == nil {
			d.snap.Administrators = append(d.snap.Administrators, a)
		}
	})
}

func (d *decoder) consultations(records [][]string) {
	d.rows(consultationsFile, records, len(consultationHeader), func(r *row) {
		c := model.Consultation{
			ID:              r.num(0),
			Start:           r.when(1, model.DateTimeLayout),
			DurationMinutes: r.num(2),
			Reason:          r.str(3),
			Status:          model.ConsultationStatus(r.str(4)),
			Observations:    r.str(5),
			Diagnosis:       r.str(6),
			PractitionerID:  r.num(7),
			PatientID:       r.num(8),
		}
		if r.err == nil {
			d.snap.Consultations = append(d.snap.Consultations, c)
		}
	})
}
