package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/chainsight_backend/config"
)

// ScoringRun records one engine execution for one organization. Dashboard
// reads always hang off the latest Completed run; a Failed/TimedOut run leaves
// the prior run's outputs untouched ("stale but valid").
type ScoringRun struct {
	ID             int       `gorm:"primary_key" json:"id"`
	OrganizationId string    `gorm:"size:64;not null;index:idx_run_org_status,priority:1" json:"organization_id"`
	Status         RunStatus `gorm:"type:enum('Running','Completed','Failed','TimedOut');not null;index:idx_run_org_status,priority:2" json:"status"`
	TriggerSource  TriggerSource `gorm:"type:enum('upload','document','schedule','manual');not null" json:"trigger_source"`

	TransactionCount int `gorm:"not null;default:0" json:"transaction_count"`
	DocumentCount    int `gorm:"not null;default:0" json:"document_count"`
	MatchedCount     int `gorm:"not null;default:0" json:"matched_count"`
	UnmatchedCount   int `gorm:"not null;default:0" json:"unmatched_count"`

	FailureReason *string    `gorm:"type:text" json:"failure_reason"`
	StartedAt     time.Time  `gorm:"not null" json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at"`
	CorrelationId string     `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetLatestCompletedRun returns the newest Completed run, or gorm.ErrRecordNotFound.
func GetLatestCompletedRun(ctx context.Context, organizationId string) (*ScoringRun, error) {
	db := config.GetDB()
	var run ScoringRun
	err := db.WithContext(ctx).
		Where("organization_id = ? AND status = ?", organizationId, RunStatusCompleted).
		Order("id DESC").
		First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}
