package model

import (
	"time"

	"github.com/google/uuid"
)

// ConsultationEvent is published for every consultation lifecycle change.
type ConsultationEvent struct {
	ID             uuid.UUID          `json:"id"`
	Type           string             `json:"type"`
	ConsultationID int                `json:"consultation_id"`
	PractitionerID int                `json:"practitioner_id"`
	PatientID      int                `json:"patient_id"`
	Status         ConsultationStatus `json:"status"`
	Start          time.Time          `json:"start"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

const (
	EventConsultationBooked    = "consultation.booked"
	EventConsultationCancelled = "consultation.cancelled"
	EventConsultationCompleted = "consultation.completed"
	EventConsultationAnnotated = "consultation.annotated"
	EventConsultationDiagnosed = "consultation.diagnosed"
	EventPractitionerArchived  = "practitioner.archived"
	EventHistoryEntryRecorded  = "history.recorded"
)
