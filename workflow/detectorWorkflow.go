package workflow

import (
	"sort"

	"bitbucket.org/mmdatafocus/chainsight_backend/config"
	"bitbucket.org/mmdatafocus/chainsight_backend/models"
	"github.com/shopspring/decimal"
)

// CompromisedItem is the in-memory detector output before persistence.
type CompromisedItem struct {
	Sku         string
	ShipmentRef *string

	CompromisedQuantity decimal.Decimal
	EstimatedExposure   decimal.Decimal
	RiskLevel           models.RiskLevel

	ContributingFindingIds []int
}

// DetectCompromisedInventory applies the combined-evidence rule over the
// run's links and findings (index-aligned). A single noisy metric never flags
// inventory; it takes either correlated discrepancies on one link
// (quantity >= medium AND (cost >= medium OR delay >= high)) or an unmatched
// document whose declared value crosses the materiality threshold.
//
// Output is ranked by exposure descending with a deterministic SKU tie-break.
func DetectCompromisedInventory(cfg config.EngineConfig, links []LinkResult, findings []models.DiscrepancyFinding) []CompromisedItem {
	var items []CompromisedItem

	materiality := decimal.NewFromFloat(cfg.CompromisedMinExposureUsd)

	for i := range links {
		if i >= len(findings) {
			break
		}
		link := links[i]
		finding := findings[i]

		if link.Matched && link.Transaction != nil {
			if !matchedCompromisedRule(finding) {
				continue
			}
			qty := link.Document.DeclaredQuantity.Sub(link.Transaction.Quantity).Abs()
			unitCost := decimal.Max(link.Document.DeclaredUnitCost, link.Transaction.UnitCost)
			exposure := qty.Mul(unitCost)

			items = append(items, CompromisedItem{
				Sku:                    finding.Sku,
				ShipmentRef:            finding.ShipmentRef,
				CompromisedQuantity:    qty,
				EstimatedExposure:      exposure,
				RiskLevel:              riskFromSeverity(finding.Severity),
				ContributingFindingIds: []int{finding.ID},
			})
			continue
		}

		// Unmatched branch: material declared value with no transaction trail.
		declared := link.Document.DeclaredValue()
		if declared.LessThan(materiality) {
			continue
		}
		items = append(items, CompromisedItem{
			Sku:                    finding.Sku,
			ShipmentRef:            finding.ShipmentRef,
			CompromisedQuantity:    link.Document.DeclaredQuantity,
			EstimatedExposure:      declared,
			RiskLevel:              riskFromExposure(cfg, declared),
			ContributingFindingIds: []int{finding.ID},
		})
	}

	sort.SliceStable(items, func(a, b int) bool {
		if !items[a].EstimatedExposure.Equal(items[b].EstimatedExposure) {
			return items[a].EstimatedExposure.GreaterThan(items[b].EstimatedExposure)
		}
		return items[a].Sku < items[b].Sku
	})
	return items
}

func matchedCompromisedRule(f models.DiscrepancyFinding) bool {
	if !f.QtySeverity.AtLeast(models.SeverityMedium) {
		return false
	}
	return f.CostSeverity.AtLeast(models.SeverityMedium) || f.DelaySeverity.AtLeast(models.SeverityHigh)
}

func riskFromSeverity(s models.Severity) models.RiskLevel {
	switch {
	case s.AtLeast(models.SeverityCritical):
		return models.RiskLevelCritical
	case s.AtLeast(models.SeverityHigh):
		return models.RiskLevelHigh
	default:
		return models.RiskLevelMedium
	}
}

// riskFromExposure rates unmatched-document items: the only signal is the
// declared value itself.
func riskFromExposure(cfg config.EngineConfig, exposure decimal.Decimal) models.RiskLevel {
	materiality := cfg.CompromisedMinExposureUsd
	if materiality <= 0 {
		materiality = 1
	}
	ratio := exposure.InexactFloat64() / materiality
	switch {
	case ratio >= 10:
		return models.RiskLevelCritical
	case ratio >= 5:
		return models.RiskLevelHigh
	default:
		return models.RiskLevelMedium
	}
}
