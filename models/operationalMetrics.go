package models

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// OperationalMetrics are the raw operating rates supplied by the analytics
// side per organization: input to the service and capital sub-scores. One row
// per reporting snapshot; the engine reads the latest.
type OperationalMetrics struct {
	ID             int    `gorm:"primary_key" json:"id"`
	OrganizationId string `gorm:"size:64;not null;index" json:"organization_id"`

	// Rates in [0,1].
	OnTimeDeliveryRate float64 `gorm:"not null;default:0" json:"on_time_delivery_rate"`
	StockoutRate       float64 `gorm:"not null;default:0" json:"stockout_rate"`

	InventoryTurns float64 `gorm:"not null;default:0" json:"inventory_turns"`
	CashCycleDays  float64 `gorm:"not null;default:0" json:"cash_cycle_days"`

	ReportedAt time.Time `gorm:"not null;index" json:"reported_at"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// GetLatestOperationalMetrics returns the newest snapshot, or nil when the
// analytics side has not reported yet (the engine then scores on neutral
// operational inputs).
func GetLatestOperationalMetrics(ctx context.Context, db *gorm.DB, organizationId string) (*OperationalMetrics, error) {
	var m OperationalMetrics
	err := db.WithContext(ctx).
		Where("organization_id = ?", organizationId).
		Order("reported_at DESC, id DESC").
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}
