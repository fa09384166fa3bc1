package workflow

import (
	"testing"

	"bitbucket.org/mmdatafocus/chainsight_backend/config"
	"bitbucket.org/mmdatafocus/chainsight_backend/models"
	"github.com/shopspring/decimal"
)

func runDetector(t *testing.T, cfg config.EngineConfig, links []LinkResult) ([]CompromisedItem, []models.DiscrepancyFinding) {
	t.Helper()
	findings := make([]models.DiscrepancyFinding, len(links))
	for i, link := range links {
		findings[i] = EvaluateLink(cfg, "org-1", 1, link)
		findings[i].ID = i + 1
	}
	return DetectCompromisedInventory(cfg, links, findings), findings
}

func TestHighCostVarianceAloneIsNotCompromised(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	// 50% cost variance but quantities agree: a pricing dispute, not missing
	// inventory.
	links := []LinkResult{matchedLink(
		testDoc(1, "A-100", 100, 15, day(0)),
		testTxn(1, "A-100", 100, 10, day(0)),
	)}

	items, findings := runDetector(t, cfg, links)
	if findings[0].CostSeverity != models.SeverityHigh {
		t.Fatalf("test premise broken: expected high cost severity, got %s", findings[0].CostSeverity)
	}
	if len(items) != 0 {
		t.Fatalf("cost variance alone must not flag inventory, got %+v", items)
	}
}

func TestQuantityAloneIsNotCompromised(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	// 15-unit shortfall but matching cost and on-time shipment.
	links := []LinkResult{matchedLink(
		testDoc(1, "A-100", 100, 10, day(0)),
		testTxn(1, "A-100", 85, 10, day(0)),
	)}

	items, findings := runDetector(t, cfg, links)
	if !findings[0].QtySeverity.AtLeast(models.SeverityMedium) {
		t.Fatalf("test premise broken: expected at least medium qty severity")
	}
	if len(items) != 0 {
		t.Fatalf("quantity discrepancy alone must not flag inventory, got %+v", items)
	}
}

func TestQuantityPlusCostIsCompromised(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	links := []LinkResult{matchedLink(
		testDoc(1, "A-100", 100, 12, day(0)), // +20% cost: medium
		testTxn(1, "A-100", 85, 10, day(0)),  // 17.6% qty: high
	)}

	items, _ := runDetector(t, cfg, links)
	if len(items) != 1 {
		t.Fatalf("correlated quantity+cost discrepancies must flag inventory, got %d items", len(items))
	}
	item := items[0]
	if !item.CompromisedQuantity.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("compromised quantity is |100-85| = 15, got %s", item.CompromisedQuantity)
	}
	// Exposure uses the higher unit cost: 15 x 12 = 180.
	if !item.EstimatedExposure.Equal(decimal.NewFromInt(180)) {
		t.Fatalf("expected exposure 180, got %s", item.EstimatedExposure)
	}
	if item.RiskLevel != models.RiskLevelHigh {
		t.Fatalf("high overall severity maps to high risk, got %s", item.RiskLevel)
	}
	if len(item.ContributingFindingIds) != 1 || item.ContributingFindingIds[0] != 1 {
		t.Fatalf("item must reference its contributing finding, got %v", item.ContributingFindingIds)
	}
}

func TestQuantityPlusDelayIsCompromised(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	links := []LinkResult{matchedLink(
		testDoc(1, "A-100", 100, 10, day(0)),
		testTxn(1, "A-100", 92, 10, day(cfg.DelayedShipmentDaysThreshold+5)), // 8.7% qty: medium; delayed
	)}

	items, findings := runDetector(t, cfg, links)
	if findings[0].DelaySeverity != models.SeverityHigh {
		t.Fatalf("test premise broken: expected delayed shipment")
	}
	if len(items) != 1 {
		t.Fatalf("quantity discrepancy with delayed shipment must flag inventory, got %d items", len(items))
	}
}

func TestUnmatchedDocumentMaterialityThreshold(t *testing.T) {
	cfg := config.DefaultEngineConfig() // materiality $1000

	below := []LinkResult{{
		Document:      testDoc(1, "A-100", 10, 99, day(0)), // $990
		MatchStrategy: models.MatchStrategyUnmatched,
	}}
	items, _ := runDetector(t, cfg, below)
	if len(items) != 0 {
		t.Fatalf("unmatched document below materiality must not flag inventory, got %+v", items)
	}

	above := []LinkResult{{
		Document:      testDoc(2, "B-200", 50, 100, day(0)), // $5000
		MatchStrategy: models.MatchStrategyUnmatched,
	}}
	items, _ = runDetector(t, cfg, above)
	if len(items) != 1 {
		t.Fatalf("unmatched document above materiality must flag inventory")
	}
	item := items[0]
	if !item.EstimatedExposure.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("unmatched exposure equals declared value, got %s", item.EstimatedExposure)
	}
	if !item.CompromisedQuantity.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unmatched compromised quantity equals declared quantity, got %s", item.CompromisedQuantity)
	}
	// $5000 / $1000 = 5x materiality -> high.
	if item.RiskLevel != models.RiskLevelHigh {
		t.Fatalf("expected high risk at 5x materiality, got %s", item.RiskLevel)
	}
}

func TestUnmatchedRiskTiers(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	cases := []struct {
		value float64
		risk  models.RiskLevel
	}{
		{2000, models.RiskLevelMedium},
		{5000, models.RiskLevelHigh},
		{10000, models.RiskLevelCritical},
	}
	for _, tc := range cases {
		links := []LinkResult{{
			Document:      testDoc(1, "A-100", 1, tc.value, day(0)),
			MatchStrategy: models.MatchStrategyUnmatched,
		}}
		items, _ := runDetector(t, cfg, links)
		if len(items) != 1 {
			t.Fatalf("declared value %v: expected one item", tc.value)
		}
		if items[0].RiskLevel != tc.risk {
			t.Fatalf("declared value %v: expected %s risk, got %s", tc.value, tc.risk, items[0].RiskLevel)
		}
	}
}

func TestItemsRankedByExposureDescending(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	links := []LinkResult{
		{Document: testDoc(1, "A-100", 20, 100, day(0)), MatchStrategy: models.MatchStrategyUnmatched}, // $2000
		{Document: testDoc(2, "B-200", 90, 100, day(0)), MatchStrategy: models.MatchStrategyUnmatched}, // $9000
		{Document: testDoc(3, "C-300", 50, 100, day(0)), MatchStrategy: models.MatchStrategyUnmatched}, // $5000
	}
	items, _ := runDetector(t, cfg, links)
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].Sku != "B-200" || items[1].Sku != "C-300" || items[2].Sku != "A-100" {
		t.Fatalf("items must rank by exposure descending, got %s, %s, %s", items[0].Sku, items[1].Sku, items[2].Sku)
	}
}

func TestExposureTieBreaksBySku(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	links := []LinkResult{
		{Document: testDoc(1, "Z-900", 20, 100, day(0)), MatchStrategy: models.MatchStrategyUnmatched},
		{Document: testDoc(2, "A-100", 20, 100, day(0)), MatchStrategy: models.MatchStrategyUnmatched},
	}
	items, _ := runDetector(t, cfg, links)
	if items[0].Sku != "A-100" {
		t.Fatalf("equal exposure must tie-break by SKU ascending, got %s first", items[0].Sku)
	}
}
