package models

import (
	"time"
)

// DiscrepancyFinding holds the computed variance metrics of one link plus the
// severity classification. Derived, recomputable, never hand-edited.
//
// Metric pointers are nil when the metric is undefined (zero denominator);
// the finding then carries a FlaggedReason and severity high instead of a
// division result.
type DiscrepancyFinding struct {
	ID             int    `gorm:"primary_key" json:"id"`
	OrganizationId string `gorm:"size:64;not null;index:idx_finding_org_run,priority:1" json:"organization_id"`
	RunId          int    `gorm:"not null;index:idx_finding_org_run,priority:2" json:"run_id"`
	LinkId         int    `gorm:"not null;index" json:"link_id"`

	Sku         string  `gorm:"size:100" json:"sku"`
	ShipmentRef *string `gorm:"size:100" json:"shipment_ref"`

	CostVariancePct   *float64 `json:"cost_variance_pct"`
	QtyDiscrepancyPct *float64 `json:"quantity_discrepancy_pct"`
	DelayDays         *int     `json:"delay_days"`

	CostSeverity  Severity `gorm:"type:enum('none','low','medium','high','critical');not null;default:'none'" json:"cost_severity"`
	QtySeverity   Severity `gorm:"type:enum('none','low','medium','high','critical');not null;default:'none'" json:"qty_severity"`
	DelaySeverity Severity `gorm:"type:enum('none','low','medium','high','critical');not null;default:'none'" json:"delay_severity"`
	Severity      Severity `gorm:"type:enum('none','low','medium','high','critical');not null;default:'none';index" json:"severity"`

	// Unmatched marks findings that stand in for documents without a
	// transaction counterpart (always at least medium severity).
	Unmatched bool `gorm:"not null;default:0" json:"unmatched"`

	FlaggedReason *string `gorm:"size:255" json:"flagged_reason"`

	// DollarExposure weights the cost axis of the 4D score.
	DollarExposure float64 `gorm:"not null;default:0" json:"dollar_exposure"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
