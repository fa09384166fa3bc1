package models

import "time"

// IdempotencyKey makes run-trigger processing safe under Pub/Sub's
// at-least-once delivery. One row per (organization, handler, message).
type IdempotencyKey struct {
	ID             int     `gorm:"primary_key" json:"id"`
	OrganizationId string  `gorm:"size:64;not null;uniqueIndex:uniq_idem,priority:1" json:"organization_id"`
	HandlerName    string  `gorm:"size:100;not null;uniqueIndex:uniq_idem,priority:2" json:"handler_name"`
	MessageId      string  `gorm:"size:100;not null;uniqueIndex:uniq_idem,priority:3" json:"message_id"`
	Status         string  `gorm:"size:20;not null" json:"status"` // STARTED|SUCCEEDED|FAILED
	LastError      *string `gorm:"type:text" json:"last_error"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
