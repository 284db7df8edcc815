package model

import (
	"sync"
	"time"
)

// MedicalRecord is the per-patient aggregate of history entries and consultations.
// Consultations are held as identifiers into the scheduling service's store.
// Both sequences are append-only and keep insertion order.
type MedicalRecord struct {
	ID        int       `json:"id" db:"id"`
	PatientID int       `json:"patient_id" db:"patient_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	mu            sync.RWMutex
	history       []HistoryEntry
	consultations []int
}

func NewMedicalRecord(id, patientID int, createdAt time.Time) *MedicalRecord {
	return &MedicalRecord{
		ID:            id,
		PatientID:     patientID,
		CreatedAt:     createdAt,
		history:       make([]HistoryEntry, 0),
		consultations: make([]int, 0),
	}
}

func (r *MedicalRecord) AddHistoryEntry(e HistoryEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, e)
}

func (r *MedicalRecord) AddConsultation(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consultations = append(r.consultations, id)
}

// Clone returns a detached copy. Writes to it never reach r.
func (r *MedicalRecord) Clone() *MedicalRecord {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := NewMedicalRecord(r.ID, r.PatientID, r.CreatedAt)
	c.history = append(c.history, r.history...)
	c.consultations = append(c.consultations, r.consultations...)
	return c
}

// History returns a copy; never nil.
func (r *MedicalRecord) History() []HistoryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]HistoryEntry, len(r.history))
	copy(out, r.history)
	return out
}

// ConsultationIDs returns a copy; never nil.
func (r *MedicalRecord) ConsultationIDs() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int, len(r.consultations))
	copy(out, r.consultations)
	return out
}

// RecordSummary is the serializable view of a record.
type RecordSummary struct {
	ID                int            `json:"id"`
	PatientID         int            `json:"patient_id"`
	CreatedAt         time.Time      `json:"created_at"`
	History           []HistoryEntry `json:"history"`
	ConsultationCount int            `json:"consultation_count"`
}

func (r *MedicalRecord) Summary() RecordSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h := make([]HistoryEntry, len(r.history))
	copy(h, r.history)
	return RecordSummary{
		ID:                r.ID,
		PatientID:         r.PatientID,
		CreatedAt:         r.CreatedAt,
		History:           h,
		ConsultationCount: len(r.consultations),
	}
}
