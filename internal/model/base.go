package model

import (
	"strings"
	"time"
)

// Kind identifies the role variant of a person known to the directory.
type Kind string

const (
	KindPatient       Kind = "patient"
	KindPractitioner  Kind = "practitioner"
	KindAdministrator Kind = "administrator"
)

// AgeUnknown is returned by Person.Age when no birth date is recorded.
const AgeUnknown = -1

// Person holds the demographic fields shared by every role variant.
type Person struct {
	ID         int        `json:"id" db:"id"`
	FamilyName string     `json:"family_name" db:"family_name"`
	GivenName  string     `json:"given_name" db:"given_name"`
	BirthDate  *time.Time `json:"birth_date,omitempty" db:"birth_date"`
	Sex        string     `json:"sex,omitempty" db:"sex"`
	Address    string     `json:"address,omitempty" db:"address"`
	Phone      string     `json:"phone,omitempty" db:"phone"`
	Email      string     `json:"email,omitempty" db:"email"`
}

// Age returns the completed years between the birth date and now, or AgeUnknown.
func (p Person) Age(now time.Time) int {
	if p.BirthDate == nil {
		return AgeUnknown
	}
	b := *p.BirthDate
	years := now.Year() - b.Year()
	if now.Month() < b.Month() || (now.Month() == b.Month() && now.Day() < b.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// FullName is "Family Given".
func (p Person) FullName() string {
	return strings.TrimSpace(p.FamilyName + " " + p.GivenName)
}

// SameName reports a case-insensitive exact match on both name parts.
func (p Person) SameName(family, given string) bool {
	return strings.EqualFold(p.FamilyName, family) && strings.EqualFold(p.GivenName, given)
}

// Account is the credential capability shared by practitioners and administrators.
type Account struct {
	Login      string `json:"login" db:"login"`
	SecretHash string `json:"-" db:"secret_hash"`
	Active     bool   `json:"active" db:"active"`
}

// Actor is an authenticated handle passed into the service layer. The set of
// implementations is closed: *Practitioner and *Administrator.
type Actor interface {
	Kind() Kind
	PersonID() int
	actor()
}
