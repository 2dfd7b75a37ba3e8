package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// SessionRecord persists one credential slot. Exactly one row may exist per
// scope ("user" or "admin"); token and profile are always written together.
type SessionRecord struct {
	Scope     string    `json:"scope" gorm:"primaryKey;type:varchar(16)"`
	Token     string    `json:"-" gorm:"type:text;not null"` // sealed at rest when a session secret is configured
	Profile   string    `json:"-" gorm:"type:text;not null"` // JSON-serialized profile
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// AuditEntry records a console-initiated mutation against the platform API.
// This is local operator history, not a backend resource.
type AuditEntry struct {
	BaseModel
	Scope    string `json:"scope" gorm:"not null;index"`
	Actor    string `json:"actor"` // profile subject at the time of the action
	Action   string `json:"action" gorm:"not null"`
	Resource string `json:"resource" gorm:"not null;index"`
	TargetID string `json:"target_id"`
	Outcome  string `json:"outcome" gorm:"not null"` // "ok" or the error message
}

// CachedStat holds the last successfully fetched dashboard summary payload
// for a scope, refreshed by the background poller.
type CachedStat struct {
	BaseModel
	Scope     string    `json:"scope" gorm:"not null;uniqueIndex:idx_stat_scope_key"`
	Key       string    `json:"key" gorm:"not null;uniqueIndex:idx_stat_scope_key"`
	Payload   string    `json:"payload" gorm:"type:text;not null"` // raw JSON from the backend
	FetchedAt time.Time `json:"fetched_at" gorm:"not null"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&SessionRecord{}, &AuditEntry{}, &CachedStat{},
	)
}
