package model

// Patient is a person who owns exactly one medical record.
type Patient struct {
	Person
	NationalHealthID string `json:"national_health_id,omitempty" db:"national_health_id"`
	BloodGroup       string `json:"blood_group,omitempty" db:"blood_group"`

	// Record is set by the directory when the patient is created and never reassigned.
	Record *MedicalRecord `json:"-" db:"-"`
}

// Detached returns a copy of p whose record is not shared with p.
func (p Patient) Detached() Patient {
	p.Record = p.Record.Clone()
	return p
}

type CreatePatientRequest struct {
	ID               int    `json:"id" binding:"required,gt=0" validate:"gt=0"`
	FamilyName       string `json:"family_name" binding:"required" validate:"notblank"`
	GivenName        string `json:"given_name" binding:"required" validate:"notblank"`
	BirthDate        string `json:"birth_date"`
	Sex              string `json:"sex" validate:"omitempty,oneof=M F X m f x"`
	Address          string `json:"address"`
	Phone            string `json:"phone"`
	Email            string `json:"email" validate:"omitempty,email"`
	NationalHealthID string `json:"national_health_id"`
	BloodGroup       string `json:"blood_group"`
}

// UpdatePatientRequest carries optional changes; blank values leave fields untouched.
type UpdatePatientRequest struct {
	FamilyName       *string `json:"family_name"`
	GivenName        *string `json:"given_name"`
	NationalHealthID *string `json:"national_health_id"`
	BloodGroup       *string `json:"blood_group"`
	Address          *string `json:"address"`
	Phone            *string `json:"phone"`
	Email            *string `json:"email"`
}

type PatientFilters struct {
	FamilyName string `form:"family"`
	GivenName  string `form:"given"`
	BloodGroup string `form:"blood_group"`
}
