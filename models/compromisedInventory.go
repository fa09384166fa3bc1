package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/chainsight_backend/config"
	"bitbucket.org/mmdatafocus/chainsight_backend/utils"
	"github.com/shopspring/decimal"
)

// CompromisedInventoryItem flags a SKU/shipment whose combined evidence says
// the inventory is unsellable, misrepresented or at risk. Created by the
// detector; marked resolved (never deleted) when a later run finds no
// corroborating evidence.
type CompromisedInventoryItem struct {
	ID             int    `gorm:"primary_key" json:"id"`
	OrganizationId string `gorm:"size:64;not null;index:idx_comp_org_status,priority:1" json:"organization_id"`
	RunId          int    `gorm:"not null;index" json:"run_id"`

	Sku         string  `gorm:"size:100;not null;index" json:"sku"`
	ShipmentRef *string `gorm:"size:100" json:"shipment_ref"`

	CompromisedQuantity decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"compromised_quantity"`
	EstimatedExposure   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"estimated_exposure"`

	RiskLevel RiskLevel `gorm:"type:enum('Low','Medium','High','Critical');not null" json:"risk_level"`

	// ContributingFindingIds is a JSON-encoded int list for auditability.
	ContributingFindingIds []byte `gorm:"type:blob" json:"contributing_finding_ids"`

	Status          CompromisedItemStatus `gorm:"type:enum('Active','Resolved');not null;default:'Active';index:idx_comp_org_status,priority:2" json:"status"`
	ResolvedByRunId *int                  `json:"resolved_by_run_id"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CompromisedInventorySummary is the dashboard aggregate next to the ranked list.
type CompromisedInventorySummary struct {
	TotalExposure        decimal.Decimal `json:"total_exposure"`
	AffectedProductCount int             `json:"affected_product_count"`
	OverallRiskLevel     RiskLevel       `json:"overall_risk_level"`
}

// GetCompromisedInventory returns the active items of the latest completed
// run, ranked by exposure descending, plus summary aggregates. The item list
// is cached per organization; the summary is derived from it.
func GetCompromisedInventory(ctx context.Context, organizationId string) ([]CompromisedInventoryItem, *CompromisedInventorySummary, error) {
	if cached, err := utils.RetrieveRedisList[CompromisedInventoryItem](organizationId); err == nil && cached != nil {
		items := make([]CompromisedInventoryItem, 0, len(cached))
		for _, item := range cached {
			items = append(items, *item)
		}
		return items, buildCompromisedSummary(items), nil
	}

	db := config.GetDB()
	var items []CompromisedInventoryItem
	err := db.WithContext(ctx).
		Where("organization_id = ? AND status = ?", organizationId, CompromisedItemStatusActive).
		Order("estimated_exposure DESC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, nil, err
	}
	_ = utils.StoreRedisList[CompromisedInventoryItem](items, organizationId)
	return items, buildCompromisedSummary(items), nil
}

func buildCompromisedSummary(items []CompromisedInventoryItem) *CompromisedInventorySummary {
	summary := &CompromisedInventorySummary{
		TotalExposure:    decimal.Zero,
		OverallRiskLevel: RiskLevelLow,
	}
	skus := make([]string, 0, len(items))
	for _, item := range items {
		summary.TotalExposure = summary.TotalExposure.Add(item.EstimatedExposure)
		skus = append(skus, item.Sku)
		if item.RiskLevel.Rank() > summary.OverallRiskLevel.Rank() {
			summary.OverallRiskLevel = item.RiskLevel
		}
	}
	summary.AffectedProductCount = len(utils.UniqueSlice(skus))
	return summary
}
