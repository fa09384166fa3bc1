package workflow

import (
	"encoding/json"
	"fmt"

	"bitbucket.org/mmdatafocus/chainsight_backend/config"
	"bitbucket.org/mmdatafocus/chainsight_backend/models"
	"bitbucket.org/mmdatafocus/chainsight_backend/utils"
	"gorm.io/gorm"
)

// BuildRunAlerts converts the run's findings, score and detector output into
// open alerts. Pure builder; persistence happens in the run's single commit.
func BuildRunAlerts(cfg config.EngineConfig, organizationId string, runId int, findings []models.DiscrepancyFinding, score TriangleScoreResult, items []CompromisedItem, issues []DataQualityIssue) []models.Alert {
	var alerts []models.Alert
	rid := runId

	for i := range findings {
		f := findings[i]
		if !f.Severity.AtLeast(models.SeverityMedium) {
			continue
		}
		message := fmt.Sprintf("Discrepancy detected for SKU %s", f.Sku)
		if f.Unmatched {
			message = fmt.Sprintf("Document for SKU %s has no matching transaction record", f.Sku)
		}
		details, _ := json.Marshal(f)
		sku := f.Sku
		alerts = append(alerts, models.Alert{
			OrganizationId: organizationId,
			RunId:          &rid,
			Category:       models.AlertCategoryDiscrepancy,
			Severity:       f.Severity,
			Message:        message,
			Details:        details,
			State:          models.AlertStateOpen,
			Sku:            &sku,
			ShipmentRef:    f.ShipmentRef,
		})
	}

	alerts = append(alerts, scoreAlerts(cfg, organizationId, rid, score)...)

	for i := range items {
		item := items[i]
		details, _ := json.Marshal(item)
		sku := item.Sku
		alerts = append(alerts, models.Alert{
			OrganizationId: organizationId,
			RunId:          &rid,
			Category:       models.AlertCategoryCompromisedInventory,
			Severity:       severityFromRisk(item.RiskLevel),
			Message:        fmt.Sprintf("Compromised inventory: SKU %s, estimated exposure $%s", item.Sku, item.EstimatedExposure.StringFixed(2)),
			Details:        details,
			State:          models.AlertStateOpen,
			Sku:            &sku,
			ShipmentRef:    item.ShipmentRef,
		})
	}

	for _, issue := range issues {
		details, _ := json.Marshal(issue)
		alerts = append(alerts, models.Alert{
			OrganizationId: organizationId,
			RunId:          &rid,
			Category:       models.AlertCategoryDataQuality,
			Severity:       models.SeverityLow,
			Message:        fmt.Sprintf("Document record %d excluded from matching: %s", issue.DocumentRecordId, issue.Reason),
			Details:        details,
			State:          models.AlertStateOpen,
		})
	}

	return alerts
}

func scoreAlerts(cfg config.EngineConfig, organizationId string, runId int, score TriangleScoreResult) []models.Alert {
	axes := []struct {
		name       string
		value      float64
		findingIds []int
	}{
		{"Service", score.ServiceScore, score.ServiceFindingIds},
		{"Cost", score.CostScore, score.CostFindingIds},
		{"Capital", score.CapitalScore, nil},
		{"Document", score.DocumentScore, score.DocumentFindingIds},
		{"Combined", score.CombinedScore, nil},
	}

	var alerts []models.Alert
	for _, axis := range axes {
		if axis.value >= cfg.MediumRiskScoreThreshold {
			continue
		}
		severity := models.SeverityMedium
		if axis.value < cfg.HighRiskScoreThreshold {
			severity = models.SeverityHigh
		}
		details, _ := json.Marshal(map[string]interface{}{
			"axis":        axis.name,
			"score":       axis.value,
			"finding_ids": axis.findingIds,
		})
		rid := runId
		alerts = append(alerts, models.Alert{
			OrganizationId: organizationId,
			RunId:          &rid,
			Category:       models.AlertCategoryScoreThreshold,
			Severity:       severity,
			Message:        fmt.Sprintf("%s score %.1f is below the %s-risk threshold", axis.name, axis.value, riskWord(severity)),
			Details:        details,
			State:          models.AlertStateOpen,
		})
	}
	return alerts
}

func riskWord(s models.Severity) string {
	if s == models.SeverityHigh {
		return "high"
	}
	return "medium"
}

func severityFromRisk(r models.RiskLevel) models.Severity {
	switch r {
	case models.RiskLevelCritical:
		return models.SeverityCritical
	case models.RiskLevelHigh:
		return models.SeverityHigh
	default:
		return models.SeverityMedium
	}
}

// NewOperationalAlert records a run-level failure (timeout, upstream outage).
// Written outside the run transaction: the failed run's outputs are rolled
// back but the alert must survive.
func NewOperationalAlert(organizationId string, runId int, reason string) models.Alert {
	rid := runId
	return models.Alert{
		OrganizationId: organizationId,
		RunId:          &rid,
		Category:       models.AlertCategoryOperational,
		Severity:       models.SeverityHigh,
		Message:        "Scoring run aborted: " + reason,
		State:          models.AlertStateOpen,
	}
}

// ResolveClearedCompromisedAlerts appends a resolved alert for every open
// compromised-inventory alert whose SKU/shipment carries no evidence in the
// current run. History is never rewritten: the prior open alert stays as
// written and the new record points back at it via PriorAlertId.
func ResolveClearedCompromisedAlerts(tx *gorm.DB, organizationId string, runId int, currentItems []CompromisedItem) error {
	evidenced := make(map[string]bool, len(currentItems))
	for _, item := range currentItems {
		evidenced[compromisedKey(item.Sku, item.ShipmentRef)] = true
	}

	var openAlerts []models.Alert
	if err := tx.
		Where("organization_id = ? AND category = ? AND state = ?", organizationId, models.AlertCategoryCompromisedInventory, models.AlertStateOpen).
		Where("prior_alert_id IS NULL").
		Order("id ASC").
		Find(&openAlerts).Error; err != nil {
		return err
	}

	// Skip open alerts that already have a superseding resolved record.
	var supersededIds []int
	if err := tx.Model(&models.Alert{}).
		Where("organization_id = ? AND prior_alert_id IS NOT NULL", organizationId).
		Pluck("prior_alert_id", &supersededIds).Error; err != nil {
		return err
	}
	superseded := make(map[int]bool, len(supersededIds))
	for _, id := range supersededIds {
		superseded[id] = true
	}

	rid := runId
	for i := range openAlerts {
		prior := openAlerts[i]
		if superseded[prior.ID] {
			continue
		}
		sku := utils.DereferencePtr(prior.Sku)
		if evidenced[compromisedKey(sku, prior.ShipmentRef)] {
			continue
		}
		priorId := prior.ID
		cleared := models.Alert{
			OrganizationId: organizationId,
			RunId:          &rid,
			Category:       models.AlertCategoryCompromisedInventory,
			Severity:       models.SeverityNone,
			Message:        fmt.Sprintf("Compromised-inventory evidence cleared for SKU %s", sku),
			State:          models.AlertStateResolved,
			PriorAlertId:   &priorId,
			Sku:            prior.Sku,
			ShipmentRef:    prior.ShipmentRef,
		}
		if err := tx.Create(&cleared).Error; err != nil {
			return err
		}
	}
	return nil
}

func compromisedKey(sku string, shipmentRef *string) string {
	ref := ""
	if shipmentRef != nil {
		ref = *shipmentRef
	}
	return sku + "|" + ref
}
