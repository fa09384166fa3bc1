package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/chainsight_backend/config"
	"bitbucket.org/mmdatafocus/chainsight_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RunTriggerRecord is the transactional outbox row for run triggers: ingestion
// writes it inside its own DB transaction, the dispatcher publishes to Pub/Sub
// after commit. At-least-once delivery; the consumer deduplicates via
// IdempotencyKey.
type RunTriggerRecord struct {
	ID             int           `gorm:"primary_key;index:idx_trigger_dispatch,priority:3" json:"id"`
	OrganizationId string        `gorm:"size:64;not null;index" json:"organization_id"`
	TriggerSource  TriggerSource `gorm:"type:enum('upload','document','schedule','manual');not null" json:"trigger_source"`
	ReferenceId    int           `json:"reference_id"`
	RequestedAt    time.Time     `gorm:"not null" json:"requested_at"`
	IsProcessed    bool          `gorm:"index;not null" json:"is_processed"`

	// Outbox metadata (publish happens after commit via dispatcher).
	PublishStatus    string     `gorm:"size:20;index;not null;default:'PENDING';index:idx_trigger_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_trigger_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`

	// Processing metadata (consumer side).
	LastProcessError *string    `gorm:"type:text" json:"last_process_error"`
	ProcessedAt      *time.Time `gorm:"index" json:"processed_at"`

	CorrelationId string    `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func ConvertToRunTriggerMessage(record RunTriggerRecord) config.RunTriggerMessage {
	return config.RunTriggerMessage{
		ID:             record.ID,
		OrganizationId: record.OrganizationId,
		TriggerSource:  string(record.TriggerSource),
		ReferenceId:    record.ReferenceId,
		RequestedAt:    record.RequestedAt,
		CorrelationId:  record.CorrelationId,
	}
}

// EnqueueRunTrigger writes the trigger record inside the caller's transaction
// but does NOT publish. Publishing is the outbox dispatcher's job, after
// commit.
func EnqueueRunTrigger(ctx context.Context, db *gorm.DB, organizationId string, source TriggerSource, referenceId int) error {
	record := RunTriggerRecord{
		OrganizationId: organizationId,
		TriggerSource:  source,
		ReferenceId:    referenceId,
		RequestedAt:    time.Now().UTC(),
		IsProcessed:    false,
		PublishStatus:  OutboxPublishStatusPending,
		CorrelationId:  correlationIdFromContextOrNew(ctx),
	}
	return db.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v := utils.GetCorrelationIdFromContext(ctx); v != "" {
			return v
		}
	}
	return uuid.NewString()
}
