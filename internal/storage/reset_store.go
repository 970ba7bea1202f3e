// ABOUTME: Interface definition for reset history storage.
// ABOUTME: Defines the contract for recording and listing streak reset attempts.
package storage

import (
	"github.com/2389-research/streakhub/internal/logger"
	"github.com/2389-research/streakhub/internal/models"
	"github.com/2389-research/streakhub/internal/resetflow"
)

// DefaultListLimit applies when ListOptions.Limit is zero.
const DefaultListLimit = 10

// ListOptions configures filtering for listing reset records.
type ListOptions struct {
	Limit    int    // 0 means DefaultListLimit, negative means no limit
	EntityID string // only records for this entity
}

// ResetStore defines operations for reset history persistence.
type ResetStore interface {
	// Record persists a reset attempt to disk.
	Record(rec *models.ResetRecord) error

	// List returns records newest first.
	List(opts ListOptions) ([]*models.ResetRecord, error)

	// Close releases any resources held by the store.
	Close() error
}

// RecordAttempts returns a reset-flow callback that persists every attempt to store.
// Write failures are logged and never affect the reset itself.
func RecordAttempts(store ResetStore) func(resetflow.Attempt) {
	return func(a resetflow.Attempt) {
		rec := models.NewResetRecord(a.Target, string(a.Source), a.EventDate, a.StreakStart, a.At, a.Err)
		rec.Duration = a.Duration
		if err := store.Record(rec); err != nil {
			logger.Warn("failed to record reset", "target", a.Target, "err", err)
		}
	}
}
