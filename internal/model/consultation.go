package model

import (
	"strings"
	"time"
)

type ConsultationStatus string

const (
	StatusScheduled ConsultationStatus = "scheduled"
	// StatusInProgress is derived from the clock and never stored.
	StatusInProgress ConsultationStatus = "in_progress"
	StatusCompleted  ConsultationStatus = "completed"
	StatusCancelled  ConsultationStatus = "cancelled"
)

// ParseStatus accepts the four status names case-insensitively, with "-" or "_".
func ParseStatus(s string) (ConsultationStatus, bool) {
	norm := ConsultationStatus(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	switch norm {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return norm, true
	}
	return "", false
}

// DefaultDurationMinutes applies whenever a non-positive duration is supplied.
const DefaultDurationMinutes = 30

// NormalizeDuration keeps positive durations and replaces the rest with the default.
func NormalizeDuration(minutes int) int {
	if minutes <= 0 {
		return DefaultDurationMinutes
	}
	return minutes
}

// Consultation is an appointment between one practitioner and one patient.
type Consultation struct {
	ID              int                `json:"id" db:"id"`
	Start           time.Time          `json:"start" db:"start_time"`
	DurationMinutes int                `json:"duration_minutes" db:"duration_minutes"`
	Reason          string             `json:"reason" db:"reason"`
	Status          ConsultationStatus `json:"status" db:"status"`
	Observations    string             `json:"observations,omitempty" db:"observations"`
	Diagnosis       string             `json:"diagnosis,omitempty" db:"diagnosis"`
	PractitionerID  int                `json:"practitioner_id" db:"practitioner_id"`
	PatientID       int                `json:"patient_id" db:"patient_id"`
}

func (c Consultation) End() time.Time {
	return c.Start.Add(time.Duration(c.DurationMinutes) * time.Minute)
}

func (c Consultation) Interval() Interval {
	return Interval{Start: c.Start, End: c.End()}
}

func (c Consultation) IsCancelled() bool {
	return c.Status == StatusCancelled
}

// EffectiveStatus derives in_progress for a scheduled consultation whose interval contains now.
func (c Consultation) EffectiveStatus(now time.Time) ConsultationStatus {
	if c.Status == StatusScheduled && c.Interval().Contains(now) {
		return StatusInProgress
	}
	return c.Status
}

type BookConsultationRequest struct {
	Start           string `json:"start" binding:"required"`
	DurationMinutes int    `json:"duration_minutes"`
	Reason          string `json:"reason" binding:"required"`
	PractitionerID  int    `json:"practitioner_id"`
	PatientID       int    `json:"patient_id" binding:"required"`
}

type NoteRequest struct {
	Text string `json:"text"`
}

// ConsultationView is the wire shape of a consultation.
type ConsultationView struct {
	Consultation
	End             time.Time          `json:"end"`
	EffectiveStatus ConsultationStatus `json:"effective_status"`
}

func NewConsultationView(c Consultation, now time.Time) ConsultationView {
	return ConsultationView{Consultation: c, End: c.End(), EffectiveStatus: c.EffectiveStatus(now)}
}

type ConsultationFilters struct {
	Status string `form:"status"`
	From   string `form:"from"`
	To     string `form:"to"`
}

// DayPlan groups one calendar day's consultations, ascending by start.
type DayPlan struct {
	Day           time.Time      `json:"day"`
	Consultations []Consultation `json:"consultations"`
}
