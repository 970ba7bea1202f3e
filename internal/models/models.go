// ABOUTME: Core data models for recorded streak reset attempts.
// ABOUTME: Provides constructor functions and type definitions for streakhub storage.
package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/2389-research/streakhub/internal/calendar"
)

// Reset outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// ResetRecord is one attempt to move a streak's start date.
type ResetRecord struct {
	ID          uuid.UUID
	EntityID    string
	Source      string // quick_pick, calendar, or date
	EventDate   calendar.Date
	StreakStart calendar.Date
	Outcome     string
	Error       string
	Duration    time.Duration
	CreatedAt   time.Time
	FilePath    string
}

// Succeeded reports whether the service call went through.
func (r *ResetRecord) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

// NewResetRecord creates a record with generated UUID. A nil callErr marks success.
func NewResetRecord(entityID, source string, eventDate, streakStart calendar.Date, createdAt time.Time, callErr error) *ResetRecord {
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	r := &ResetRecord{
		ID:          uuid.New(),
		EntityID:    entityID,
		Source:      source,
		EventDate:   eventDate,
		StreakStart: streakStart,
		Outcome:     OutcomeSuccess,
		CreatedAt:   createdAt,
	}
	if callErr != nil {
		r.Outcome = OutcomeFailed
		r.Error = callErr.Error()
	}
	return r
}
