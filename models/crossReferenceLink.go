package models

import (
	"time"
)

// CrossReferenceLink pairs one DocumentRecord with zero-or-one best-matching
// TransactionRecord for one run. Unmatched documents get an explicit link with
// confidence 0. Links are derived data, recomputed wholesale per run.
type CrossReferenceLink struct {
	ID             int    `gorm:"primary_key" json:"id"`
	OrganizationId string `gorm:"size:64;not null;index:idx_link_org_run,priority:1" json:"organization_id"`
	RunId          int    `gorm:"not null;index:idx_link_org_run,priority:2" json:"run_id"`

	DocumentRecordId    int  `gorm:"not null;index" json:"document_record_id"`
	TransactionRecordId *int `gorm:"index" json:"transaction_record_id"`

	Matched         bool          `gorm:"not null" json:"matched"`
	MatchConfidence float64       `gorm:"not null;default:0" json:"match_confidence"`
	MatchStrategy   MatchStrategy `gorm:"type:enum('ExactSku','FuzzySku','Unmatched');not null" json:"match_strategy"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
