package model

import (
	"fmt"
	"strings"
	"time"
)

type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// ParseSeverity accepts the enumerated values case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityMild:
		return SeverityMild, nil
	case SeverityModerate:
		return SeverityModerate, nil
	case SeveritySevere:
		return SeveritySevere, nil
	}
	return "", fmt.Errorf("invalid severity %q: must be mild, moderate or severe", s)
}

// HistoryEntry is a past medical fact (allergy, chronic condition, procedure, family history).
// Entries are never updated or deleted; corrections are new entries.
type HistoryEntry struct {
	ID          int       `json:"id" db:"id"`
	Category    string    `json:"category" db:"category"`
	Description string    `json:"description" db:"description"`
	Date        time.Time `json:"date" db:"occurred_on"`
	Severity    Severity  `json:"severity" db:"severity"`
	Active      bool      `json:"active" db:"active"`
}

type AddHistoryEntryRequest struct {
	Category    string `json:"category" binding:"required" validate:"notblank"`
	Description string `json:"description"`
	Date        string `json:"date" binding:"required"`
	Severity    string `json:"severity" binding:"required"`
	Active      *bool  `json:"active"`
}
