package workflow

import (
	"testing"

	"bitbucket.org/mmdatafocus/chainsight_backend/config"
	"bitbucket.org/mmdatafocus/chainsight_backend/models"
)

func matchedLink(doc models.DocumentRecord, txn models.TransactionRecord) LinkResult {
	return LinkResult{
		Document:        doc,
		Transaction:     &txn,
		Matched:         true,
		MatchConfidence: 1,
		MatchStrategy:   models.MatchStrategyExactSku,
	}
}

func TestEvaluateLinkQuantityShortfall(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	doc := testDoc(1, "A-100", 100, 10, day(0))
	txn := testTxn(1, "A-100", 85, 10, day(0))

	f := EvaluateLink(cfg, "org-1", 7, matchedLink(doc, txn))

	if f.QtyDiscrepancyPct == nil {
		t.Fatalf("expected quantity discrepancy pct, got nil")
	}
	// |100-85|/85 x 100 = 17.647...
	if *f.QtyDiscrepancyPct < 17.6 || *f.QtyDiscrepancyPct > 17.7 {
		t.Fatalf("expected quantity discrepancy ~17.65%%, got %v", *f.QtyDiscrepancyPct)
	}
	if f.QtySeverity != models.SeverityHigh {
		t.Fatalf("15-unit shortfall on 85 received must classify high, got %s", f.QtySeverity)
	}
	if f.CostSeverity != models.SeverityNone {
		t.Fatalf("identical unit cost must classify none, got %s", f.CostSeverity)
	}
	if f.Severity != models.SeverityHigh {
		t.Fatalf("overall severity must be the max of the three, got %s", f.Severity)
	}
	// Exposure = |100x10 - 85x10| = 150.
	if f.DollarExposure != 150 {
		t.Fatalf("expected exposure 150, got %v", f.DollarExposure)
	}
}

func TestEvaluateLinkCostVarianceBands(t *testing.T) {
	cfg := config.DefaultEngineConfig() // high > 20, medium > 10

	cases := []struct {
		docCost  float64
		txnCost  float64
		severity models.Severity
	}{
		{10, 10, models.SeverityNone},
		{10.5, 10, models.SeverityNone},  // 5%
		{12, 10, models.SeverityMedium},  // 20% exactly: not above high
		{8, 10, models.SeverityMedium},   // -20%, magnitude counts
		{12.5, 10, models.SeverityHigh},  // 25%
		{5, 10, models.SeverityHigh},     // -50%
	}
	for _, tc := range cases {
		doc := testDoc(1, "A-100", 100, tc.docCost, day(0))
		txn := testTxn(1, "A-100", 100, tc.txnCost, day(0))
		f := EvaluateLink(cfg, "org-1", 1, matchedLink(doc, txn))
		if f.CostSeverity != tc.severity {
			t.Fatalf("doc cost %v vs txn cost %v expected %s, got %s (pct %v)",
				tc.docCost, tc.txnCost, tc.severity, f.CostSeverity, f.CostVariancePct)
		}
	}
}

func TestEvaluateLinkCostVarianceSign(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	doc := testDoc(1, "A-100", 100, 8, day(0))
	txn := testTxn(1, "A-100", 100, 10, day(0))

	f := EvaluateLink(cfg, "org-1", 1, matchedLink(doc, txn))
	if f.CostVariancePct == nil || *f.CostVariancePct != -20 {
		t.Fatalf("expected signed cost variance -20%%, got %v", f.CostVariancePct)
	}
}

func TestEvaluateLinkZeroUnitCost(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	doc := testDoc(1, "A-100", 100, 10, day(0))
	txn := testTxn(1, "A-100", 100, 0, day(0))

	f := EvaluateLink(cfg, "org-1", 1, matchedLink(doc, txn))
	if f.CostVariancePct != nil {
		t.Fatalf("zero-cost transaction must not produce a variance pct, got %v", *f.CostVariancePct)
	}
	if f.CostSeverity != models.SeverityHigh {
		t.Fatalf("undefined cost variance must classify high, got %s", f.CostSeverity)
	}
	if f.FlaggedReason == nil {
		t.Fatalf("undefined cost variance must carry a flagged reason")
	}
}

func TestEvaluateLinkZeroQuantity(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	doc := testDoc(1, "A-100", 100, 10, day(0))
	txn := testTxn(1, "A-100", 0, 10, day(0))

	f := EvaluateLink(cfg, "org-1", 1, matchedLink(doc, txn))
	if f.QtyDiscrepancyPct != nil {
		t.Fatalf("zero-quantity transaction must not produce a discrepancy pct")
	}
	if f.QtySeverity != models.SeverityHigh {
		t.Fatalf("undefined quantity discrepancy must classify high, got %s", f.QtySeverity)
	}
}

func TestEvaluateLinkDelayThreshold(t *testing.T) {
	cfg := config.DefaultEngineConfig() // threshold 45 days

	atThreshold := EvaluateLink(cfg, "org-1", 1, matchedLink(
		testDoc(1, "A-100", 100, 10, day(0)),
		testTxn(1, "A-100", 100, 10, day(cfg.DelayedShipmentDaysThreshold)),
	))
	if atThreshold.DelaySeverity != models.SeverityNone {
		t.Fatalf("delay at the threshold must not classify, got %s", atThreshold.DelaySeverity)
	}

	over := EvaluateLink(cfg, "org-1", 1, matchedLink(
		testDoc(1, "A-100", 100, 10, day(0)),
		testTxn(1, "A-100", 100, 10, day(cfg.DelayedShipmentDaysThreshold+1)),
	))
	if over.DelaySeverity != models.SeverityHigh {
		t.Fatalf("delay over the threshold must classify high, got %s", over.DelaySeverity)
	}
	if over.DelayDays == nil || *over.DelayDays != cfg.DelayedShipmentDaysThreshold+1 {
		t.Fatalf("expected delay of %d days, got %v", cfg.DelayedShipmentDaysThreshold+1, over.DelayDays)
	}
}

func TestEvaluateLinkEarlyShipmentNotDelayed(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	f := EvaluateLink(cfg, "org-1", 1, matchedLink(
		testDoc(1, "A-100", 100, 10, day(5)),
		testTxn(1, "A-100", 100, 10, day(0)),
	))
	if f.DelayDays == nil || *f.DelayDays != -5 {
		t.Fatalf("expected delay -5 days, got %v", f.DelayDays)
	}
	if f.DelaySeverity != models.SeverityNone {
		t.Fatalf("early shipment must not classify as delayed, got %s", f.DelaySeverity)
	}
}

func TestEvaluateLinkUnmatched(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	doc := testDoc(1, "A-100", 50, 100, day(0))
	f := EvaluateLink(cfg, "org-1", 1, LinkResult{
		Document:      doc,
		MatchStrategy: models.MatchStrategyUnmatched,
	})

	if !f.Unmatched {
		t.Fatalf("expected unmatched finding")
	}
	if !f.Severity.AtLeast(models.SeverityMedium) {
		t.Fatalf("unmatched document is at least medium severity, got %s", f.Severity)
	}
	if f.DollarExposure != 5000 {
		t.Fatalf("unmatched exposure equals declared value (5000), got %v", f.DollarExposure)
	}
	if f.CostVariancePct != nil || f.QtyDiscrepancyPct != nil || f.DelayDays != nil {
		t.Fatalf("unmatched finding must carry no variance metrics")
	}
	if f.FlaggedReason == nil {
		t.Fatalf("unmatched finding must carry a flagged reason")
	}
}

func TestEvaluateLinkShipmentRefFallsBackToTransaction(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	doc := testDoc(1, "A-100", 100, 10, day(0))
	txn := testTxn(1, "A-100", 100, 10, day(0))
	txn.ShipmentRef = strPtr("SHIP-9")

	f := EvaluateLink(cfg, "org-1", 1, matchedLink(doc, txn))
	if f.ShipmentRef == nil || *f.ShipmentRef != "SHIP-9" {
		t.Fatalf("expected shipment ref from transaction, got %v", f.ShipmentRef)
	}
}

func TestClassifyMagnitudeBoundaries(t *testing.T) {
	if got := classifyMagnitude(10, 20, 10); got != models.SeverityNone {
		t.Fatalf("value at the medium boundary must be none, got %s", got)
	}
	if got := classifyMagnitude(10.01, 20, 10); got != models.SeverityMedium {
		t.Fatalf("value just over the medium boundary must be medium, got %s", got)
	}
	if got := classifyMagnitude(20.01, 20, 10); got != models.SeverityHigh {
		t.Fatalf("value just over the high boundary must be high, got %s", got)
	}
}

func TestQuantityProximity(t *testing.T) {
	if got := quantityProximity(0, 0); got != 1 {
		t.Fatalf("two zero quantities are identical, expected 1, got %v", got)
	}
	if got := quantityProximity(100, 100); got != 1 {
		t.Fatalf("equal quantities expected 1, got %v", got)
	}
	if got := quantityProximity(100, 50); got != 0.5 {
		t.Fatalf("expected 0.5, got %v", got)
	}
	if got := quantityProximity(100, 0); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}
