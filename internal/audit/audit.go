package audit

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/oredesk/oredesk/internal/models"
	"github.com/oredesk/oredesk/internal/session"
)

// Recorder keeps a local history of console-initiated mutations against the
// platform API. Recording is best-effort: a failed insert is logged and
// never fails the operation that triggered it.
type Recorder struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewRecorder creates an audit recorder
func NewRecorder(db *gorm.DB, logger zerolog.Logger) *Recorder {
	return &Recorder{db: db, logger: logger}
}

// Record writes one audit entry. outcome == nil means the mutation succeeded.
func (r *Recorder) Record(scope session.Scope, actor, action, resource, targetID string, outcome error) {
	entry := models.AuditEntry{
		Scope:    string(scope),
		Actor:    actor,
		Action:   action,
		Resource: resource,
		TargetID: targetID,
		Outcome:  "ok",
	}
	if outcome != nil {
		entry.Outcome = outcome.Error()
	}

	if err := r.db.Create(&entry).Error; err != nil {
		r.logger.Warn().Err(err).
			Str("action", action).
			Str("resource", resource).
			Msg("Failed to write audit entry")
	}
}

// Recent returns the newest entries, up to limit
func (r *Recorder) Recent(limit int) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	if err := r.db.Order("created_at DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}

// Prune deletes entries older than the retention window and returns how many
// were removed
func (r *Recorder) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	result := r.db.Where("created_at < ?", cutoff).Delete(&models.AuditEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune audit entries: %w", result.Error)
	}
	return result.RowsAffected, nil
}
