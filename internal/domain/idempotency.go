package domain

import "time"

// Idempotency records the outcome of a completed book creation keyed by the
// client-supplied Idempotency-Key. A retried POST with the same key replays
// the stored book instead of inserting a duplicate.
type Idempotency struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	Key       string    `gorm:"type:varchar(200);not null;uniqueIndex:ux_idempotency_key"`
	BookID    uint      `gorm:"not null"`
	Status    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
