package model

// DefaultAvailabilityHours is the informational hours text given to new practitioners.
const DefaultAvailabilityHours = "9h-17h"

// Practitioner is a health professional holding a planning of consultations.
// The planning itself is kept by the scheduling service.
type Practitioner struct {
	Person
	Account
	Specialty         string `json:"specialty" db:"specialty"`
	LicenseNumber     string `json:"license_number" db:"license_number"`
	AvailabilityHours string `json:"availability_hours" db:"availability_hours"`
	// Archived practitioners were removed by an administrator; they stay resolvable
	// for consultations already booked with them.
	Archived bool `json:"archived,omitempty" db:"archived"`
}

func (p *Practitioner) Kind() Kind    { return KindPractitioner }
func (p *Practitioner) PersonID() int { return p.ID }
func (p *Practitioner) actor()        {}

// Administrator manages accounts and practitioners.
type Administrator struct {
	Person
	Account
	Scope string `json:"scope,omitempty" db:"scope"`
}

func (a *Administrator) Kind() Kind    { return KindAdministrator }
func (a *Administrator) PersonID() int { return a.ID }
func (a *Administrator) actor()        {}

type CreatePractitionerRequest struct {
	ID                int    `json:"id" binding:"required,gt=0" validate:"gt=0"`
	Login             string `json:"login" binding:"required" validate:"notblank"`
	Secret            string `json:"secret" binding:"required,min=8" validate:"min=8"`
	FamilyName        string `json:"family_name" binding:"required" validate:"notblank"`
	GivenName         string `json:"given_name" binding:"required" validate:"notblank"`
	Specialty         string `json:"specialty" binding:"required" validate:"notblank"`
	LicenseNumber     string `json:"license_number" binding:"required" validate:"notblank"`
	AvailabilityHours string `json:"availability_hours"`
	Email             string `json:"email" validate:"omitempty,email"`
	Phone             string `json:"phone"`
}

type UpdateContactRequest struct {
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}
