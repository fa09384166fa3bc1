package models

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Organization struct {
	ID       string `gorm:"primary_key;size:64" json:"id"`
	Name     string `gorm:"size:100;not null" json:"name"`
	Industry string `gorm:"size:100" json:"industry"`
	// BenchmarkCashCycleDays is the industry cash-conversion benchmark used by
	// the capital sub-score. Zero means "no benchmark known".
	BenchmarkCashCycleDays float64   `json:"benchmark_cash_cycle_days"`
	Timezone               string    `gorm:"size:50" json:"timezone"`
	IsActive               *bool     `gorm:"not null" json:"is_active"`
	CreatedAt              time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetOrganizationById(ctx context.Context, db *gorm.DB, id string) (*Organization, error) {
	var org Organization
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// ListActiveOrganizationIds is used by the scheduler and backfill tooling.
// Tenant scoping is bypassed by the caller (internal context).
func ListActiveOrganizationIds(ctx context.Context, db *gorm.DB) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).Model(&Organization{}).
		Where("is_active = 1").
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}
