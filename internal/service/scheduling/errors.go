package scheduling

import "errors"

// Validation errors
var (
	ErrMissingField = errors.New("required field missing")
	ErrBlankReason  = errors.New("reason must not be blank")
	ErrStartInPast  = errors.New("consultation cannot start in the past")
)

// Conflict errors
var (
	ErrPractitionerUnavailable = errors.New("practitioner already has a consultation in this slot")
	ErrPatientUnavailable      = errors.New("patient already has a consultation in this slot")
	ErrInvalidTransition       = errors.New("consultation status does not allow this change")
)

// Not-found errors
var (
	ErrConsultationNotFound = errors.New("consultation not found")
	ErrPractitionerNotFound = errors.New("practitioner not found")
	ErrPatientNotFound      = errors.New("patient not found")
)

// ErrNotOwner is returned when a practitioner acts on another practitioner's consultation.
var ErrNotOwner = errors.New("consultation belongs to another practitioner")

// IsConflict reports whether err is a slot conflict or a forbidden status change.
func IsConflict(err error) bool {
	return errors.Is(err, ErrPractitionerUnavailable) ||
		errors.Is(err, ErrPatientUnavailable) ||
		errors.Is(err, ErrInvalidTransition)
}

// IsValidation reports whether err stems from bad input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrBlankReason) ||
		errors.Is(err, ErrStartInPast)
}

// IsNotFound reports whether err names an unknown consultation, practitioner or patient.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrConsultationNotFound) ||
		errors.Is(err, ErrPractitionerNotFound) ||
		errors.Is(err, ErrPatientNotFound)
}
