package workflow

import (
	"bitbucket.org/mmdatafocus/chainsight_backend/config"
	"bitbucket.org/mmdatafocus/chainsight_backend/models"
	"github.com/shopspring/decimal"
)

const secondsPerDay = 86400

// EvaluateLink computes the variance metrics and severity classification for
// one resolution result. Pure function of the link and the config; no DB.
//
// Unmatched documents produce a finding with no metrics, at least medium
// severity (evidence of untracked inventory movement) and the declared value
// as exposure.
func EvaluateLink(cfg config.EngineConfig, organizationId string, runId int, link LinkResult) models.DiscrepancyFinding {
	doc := link.Document

	finding := models.DiscrepancyFinding{
		OrganizationId: organizationId,
		RunId:          runId,
		Sku:            displaySku(doc),
		ShipmentRef:    doc.ShipmentRef,
		CostSeverity:   models.SeverityNone,
		QtySeverity:    models.SeverityNone,
		DelaySeverity:  models.SeverityNone,
	}

	if !link.Matched || link.Transaction == nil {
		finding.Unmatched = true
		finding.Severity = models.SeverityMedium
		finding.DollarExposure = doc.DeclaredValue().InexactFloat64()
		reason := "no matching transaction record"
		finding.FlaggedReason = &reason
		return finding
	}

	txn := link.Transaction
	if txn.ShipmentRef != nil && finding.ShipmentRef == nil {
		finding.ShipmentRef = txn.ShipmentRef
	}

	// cost_variance_pct = (doc_cost - txn_cost) / txn_cost x 100.
	// Zero denominator: undefined, flag high instead of dividing.
	if txn.UnitCost.IsZero() {
		finding.CostSeverity = models.SeverityHigh
		reason := "transaction unit cost is zero; cost variance undefined"
		finding.FlaggedReason = &reason
	} else {
		pct := doc.DeclaredUnitCost.Sub(txn.UnitCost).
			Div(txn.UnitCost).
			Mul(decimal.NewFromInt(100)).
			InexactFloat64()
		finding.CostVariancePct = &pct
		finding.CostSeverity = classifyMagnitude(abs(pct), cfg.CostVarianceHighPct, cfg.CostVarianceMediumPct)
	}

	// quantity_discrepancy_pct = |doc_qty - txn_qty| / txn_qty x 100.
	if txn.Quantity.IsZero() {
		finding.QtySeverity = models.SeverityHigh
		if finding.FlaggedReason == nil {
			reason := "transaction quantity is zero; quantity discrepancy undefined"
			finding.FlaggedReason = &reason
		}
	} else {
		pct := doc.DeclaredQuantity.Sub(txn.Quantity).Abs().
			Div(txn.Quantity.Abs()).
			Mul(decimal.NewFromInt(100)).
			InexactFloat64()
		finding.QtyDiscrepancyPct = &pct
		finding.QtySeverity = classifyMagnitude(pct, cfg.QtyDiscrepancyHighPct, cfg.QtyDiscrepancyMediumPct)
	}

	// delay_days = transaction date - document shipment date. Negative means
	// early; no delay risk.
	delay := int(txn.TransactionDate.UTC().Unix()/secondsPerDay - doc.ShipmentDate.UTC().Unix()/secondsPerDay)
	finding.DelayDays = &delay
	if delay > cfg.DelayedShipmentDaysThreshold {
		finding.DelaySeverity = models.SeverityHigh
	}

	finding.Severity = models.MaxSeverity(finding.CostSeverity, finding.QtySeverity, finding.DelaySeverity)
	finding.DollarExposure = discrepancyExposure(doc, txn)
	return finding
}

// discrepancyExposure is the dollar delta between what the document declares
// and what the transaction records. Weights the cost axis of the score.
func discrepancyExposure(doc models.DocumentRecord, txn *models.TransactionRecord) float64 {
	declared := doc.DeclaredValue()
	recorded := txn.Quantity.Mul(txn.UnitCost)
	return declared.Sub(recorded).Abs().InexactFloat64()
}

func classifyMagnitude(value, high, medium float64) models.Severity {
	switch {
	case value > high:
		return models.SeverityHigh
	case value > medium:
		return models.SeverityMedium
	default:
		return models.SeverityNone
	}
}

func displaySku(doc models.DocumentRecord) string {
	if doc.Sku != nil && *doc.Sku != "" {
		return *doc.Sku
	}
	if doc.Description != nil && *doc.Description != "" {
		return *doc.Description
	}
	return ""
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
