package workflow

import (
	"reflect"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/chainsight_backend/config"
	"bitbucket.org/mmdatafocus/chainsight_backend/models"
	"github.com/shopspring/decimal"
)

func strPtr(s string) *string { return &s }

func day(offset int) time.Time {
	return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func testTxn(id int, sku string, qty, cost float64, date time.Time) models.TransactionRecord {
	return models.TransactionRecord{
		ID:              id,
		OrganizationId:  "org-1",
		Sku:             sku,
		Quantity:        decimal.NewFromFloat(qty),
		UnitCost:        decimal.NewFromFloat(cost),
		Currency:        "USD",
		TransactionDate: date,
	}
}

func testDoc(id int, sku string, qty, cost float64, date time.Time) models.DocumentRecord {
	return models.DocumentRecord{
		ID:               id,
		OrganizationId:   "org-1",
		DocumentType:     models.DocumentTypeInvoice,
		Sku:              strPtr(sku),
		DeclaredQuantity: decimal.NewFromFloat(qty),
		DeclaredUnitCost: decimal.NewFromFloat(cost),
		ShipmentDate:     date,
	}
}

func TestNormalizeSku(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"WIDGET-1", "widget1"},
		{"widget 1", "widget1"},
		{"  A-100_b ", "a100b"},
		{"---", ""},
	}
	for _, tc := range cases {
		if got := normalizeSku(tc.in); got != tc.expected {
			t.Fatalf("normalizeSku(%q) expected %q, got %q", tc.in, tc.expected, got)
		}
	}
}

func TestSkuSimilarity(t *testing.T) {
	if got := skuSimilarity("widget1", "widget1"); got != 1 {
		t.Fatalf("identical keys expected similarity 1, got %v", got)
	}
	if got := skuSimilarity("widget1", "widget2"); got <= 0.7 || got >= 1 {
		t.Fatalf("one-character difference expected similarity in (0.7,1), got %v", got)
	}
	if got := skuSimilarity("", "widget1"); got != 0 {
		t.Fatalf("empty key expected similarity 0, got %v", got)
	}
}

func TestResolveCrossReferencesIsDeterministic(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	txns := []models.TransactionRecord{
		testTxn(1, "A-100", 100, 10, day(0)),
		testTxn(2, "A-100", 95, 10, day(1)),
		testTxn(3, "B-200", 50, 25, day(2)),
		testTxn(4, "C-300", 10, 99, day(3)),
	}
	docs := []models.DocumentRecord{
		testDoc(10, "A-100", 100, 10, day(0)),
		testDoc(11, "A-100", 96, 10, day(1)),
		testDoc(12, "B-200", 50, 25, day(2)),
	}

	first, firstIssues := ResolveCrossReferences(cfg, true, txns, docs)
	second, secondIssues := ResolveCrossReferences(cfg, true, txns, docs)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("resolution differs across identical runs:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	if !reflect.DeepEqual(firstIssues, secondIssues) {
		t.Fatalf("issues differ across identical runs")
	}
}

func TestTransactionClaimedAtMostOnce(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	txns := []models.TransactionRecord{
		testTxn(1, "A-100", 100, 10, day(0)),
	}
	docs := []models.DocumentRecord{
		testDoc(10, "A-100", 100, 10, day(0)),
		testDoc(11, "A-100", 100, 10, day(0)),
	}

	links, _ := ResolveCrossReferences(cfg, false, txns, docs)
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}
	if !links[0].Matched || links[0].Transaction == nil || links[0].Transaction.ID != 1 {
		t.Fatalf("first document should claim the transaction, got %+v", links[0])
	}
	if links[1].Matched {
		t.Fatalf("second document must not re-claim the transaction, got %+v", links[1])
	}
	if links[1].MatchStrategy != models.MatchStrategyUnmatched || links[1].MatchConfidence != 0 {
		t.Fatalf("unmatched link should carry Unmatched strategy and zero confidence, got %+v", links[1])
	}
}

func TestExactSkuBeatsFuzzyCandidate(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	txns := []models.TransactionRecord{
		// Fuzzy candidate with a perfect quantity.
		testTxn(1, "WIDGET-2", 100, 10, day(0)),
		// Exact candidate with a worse quantity.
		testTxn(2, "WIDGET-1", 80, 10, day(0)),
	}
	docs := []models.DocumentRecord{
		testDoc(10, "widget 1", 100, 10, day(0)),
	}

	links, _ := ResolveCrossReferences(cfg, true, txns, docs)
	if !links[0].Matched || links[0].Transaction.ID != 2 {
		t.Fatalf("exact SKU candidate must win over fuzzy candidates, got %+v", links[0])
	}
	if links[0].MatchStrategy != models.MatchStrategyExactSku {
		t.Fatalf("expected ExactSku strategy, got %s", links[0].MatchStrategy)
	}
}

func TestFuzzyMatchingGatedByFlag(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	txns := []models.TransactionRecord{
		testTxn(1, "WIDGET-2", 100, 10, day(0)),
	}
	docs := []models.DocumentRecord{
		testDoc(10, "WIDGET-1", 100, 10, day(0)),
	}

	links, _ := ResolveCrossReferences(cfg, false, txns, docs)
	if links[0].Matched {
		t.Fatalf("fuzzy-only candidate must stay unmatched when the flag is off")
	}

	links, _ = ResolveCrossReferences(cfg, true, txns, docs)
	if !links[0].Matched || links[0].MatchStrategy != models.MatchStrategyFuzzySku {
		t.Fatalf("expected fuzzy match when the flag is on, got %+v", links[0])
	}
}

func TestDateWindowExcludesDistantTransactions(t *testing.T) {
	cfg := config.DefaultEngineConfig() // window = 10 days
	txns := []models.TransactionRecord{
		testTxn(1, "A-100", 100, 10, day(cfg.MatchDateWindowDays+1)),
	}
	docs := []models.DocumentRecord{
		testDoc(10, "A-100", 100, 10, day(0)),
	}

	links, _ := ResolveCrossReferences(cfg, true, txns, docs)
	if links[0].Matched {
		t.Fatalf("transaction outside the date window must not match")
	}
}

func TestRankingTieBreakPrefersLowestId(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	// Identical SKU, quantity and date: scores tie, lower id must win.
	txns := []models.TransactionRecord{
		testTxn(7, "A-100", 100, 10, day(0)),
		testTxn(3, "A-100", 100, 10, day(0)),
	}
	docs := []models.DocumentRecord{
		testDoc(10, "A-100", 100, 10, day(0)),
	}

	links, _ := ResolveCrossReferences(cfg, false, txns, docs)
	if !links[0].Matched || links[0].Transaction.ID != 3 {
		t.Fatalf("score tie must break toward lowest transaction id, got %+v", links[0])
	}
}

func TestRankingTieBreakPrefersEarlierDate(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	// Same score components except id; dates chosen equidistant from the doc
	// so the date-proximity term ties.
	txns := []models.TransactionRecord{
		testTxn(1, "A-100", 100, 10, day(2)),
		testTxn(2, "A-100", 100, 10, day(-2)),
	}
	docs := []models.DocumentRecord{
		testDoc(10, "A-100", 100, 10, day(0)),
	}

	links, _ := ResolveCrossReferences(cfg, false, txns, docs)
	if !links[0].Matched || links[0].Transaction.ID != 2 {
		t.Fatalf("score tie must break toward the earlier transaction date, got %+v", links[0])
	}
}

func TestDocumentWithoutKeyBecomesDataQualityIssue(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	txns := []models.TransactionRecord{
		testTxn(1, "A-100", 100, 10, day(0)),
	}
	doc := models.DocumentRecord{
		ID:               42,
		OrganizationId:   "org-1",
		DocumentType:     models.DocumentTypePackingList,
		DeclaredQuantity: decimal.NewFromInt(5),
		DeclaredUnitCost: decimal.NewFromInt(100),
		ShipmentDate:     day(0),
	}

	links, issues := ResolveCrossReferences(cfg, true, txns, []models.DocumentRecord{doc})
	if len(links) != 0 {
		t.Fatalf("keyless document must be excluded from linking, got %d links", len(links))
	}
	if len(issues) != 1 || issues[0].DocumentRecordId != 42 {
		t.Fatalf("expected one data-quality issue for document 42, got %+v", issues)
	}
}

func TestLowConfidenceCandidateRejected(t *testing.T) {
	cfg := config.DefaultEngineConfig() // min confidence 0.6
	// Exact SKU (0.5 weight) but zero quantity proximity and worst-case date
	// proximity: total score 0.5 < 0.6.
	txns := []models.TransactionRecord{
		testTxn(1, "A-100", 0, 10, day(cfg.MatchDateWindowDays)),
	}
	docs := []models.DocumentRecord{
		testDoc(10, "A-100", 100, 10, day(0)),
	}

	links, _ := ResolveCrossReferences(cfg, false, txns, docs)
	if links[0].Matched {
		t.Fatalf("candidate below the acceptance threshold must stay unmatched, got confidence %v", links[0].MatchConfidence)
	}
}

func TestDescriptionFallbackKey(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	txns := []models.TransactionRecord{
		testTxn(1, "BLUE-WIDGET", 10, 5, day(0)),
	}
	doc := models.DocumentRecord{
		ID:               10,
		OrganizationId:   "org-1",
		DocumentType:     models.DocumentTypeInvoice,
		Description:      strPtr("Blue Widget"),
		DeclaredQuantity: decimal.NewFromInt(10),
		DeclaredUnitCost: decimal.NewFromInt(5),
		ShipmentDate:     day(0),
	}

	links, _ := ResolveCrossReferences(cfg, true, txns, []models.DocumentRecord{doc})
	if !links[0].Matched {
		t.Fatalf("description must serve as the matching key when SKU is absent")
	}
}

func TestTwelveDayLeadGapNeedsWiderWindow(t *testing.T) {
	// Invoice shipped 12 days before the ledger entry: outside the default
	// ±10-day window, so the date filter wins and the pair stays unlinked.
	// Operators who want such pairs linked raise MatchDateWindowDays.
	txns := []models.TransactionRecord{
		testTxn(1, "A100", 100, 10, day(0)),
	}
	docs := []models.DocumentRecord{
		testDoc(10, "A100", 85, 10, day(-12)),
	}

	cfg := config.DefaultEngineConfig()
	links, _ := ResolveCrossReferences(cfg, false, txns, docs)
	if links[0].Matched {
		t.Fatalf("12-day gap must not match inside the default window, got %+v", links[0])
	}

	cfg.MatchDateWindowDays = 14
	links, _ = ResolveCrossReferences(cfg, false, txns, docs)
	if !links[0].Matched || links[0].Transaction.ID != 1 {
		t.Fatalf("12-day gap must match inside a 14-day window, got %+v", links[0])
	}

	f := EvaluateLink(cfg, "org-1", 1, links[0])
	// |85-100|/100 x 100 = 15.
	if f.QtyDiscrepancyPct == nil || *f.QtyDiscrepancyPct != 15 {
		t.Fatalf("expected quantity discrepancy 15%%, got %+v", f.QtyDiscrepancyPct)
	}
	if f.QtySeverity != models.SeverityHigh {
		t.Fatalf("15%% shortfall must classify high, got %s", f.QtySeverity)
	}
	if f.CostSeverity != models.SeverityNone {
		t.Fatalf("identical unit cost must classify none, got %s", f.CostSeverity)
	}
	if f.DelayDays == nil || *f.DelayDays != 12 {
		t.Fatalf("expected 12 delay days, got %+v", f.DelayDays)
	}

	// Quantity alone does not satisfy the compound rule: cost is none and a
	// 12-day delay is well under the 45-day high bar.
	items := DetectCompromisedInventory(cfg, links, []models.DiscrepancyFinding{f})
	if len(items) != 0 {
		t.Fatalf("quantity-only evidence must not flag compromised inventory, got %+v", items)
	}
}

func TestConvertToLinkRow(t *testing.T) {
	txn := testTxn(5, "A-100", 100, 10, day(0))
	link := LinkResult{
		Document:        testDoc(9, "A-100", 100, 10, day(0)),
		Transaction:     &txn,
		Matched:         true,
		MatchConfidence: 0.93,
		MatchStrategy:   models.MatchStrategyExactSku,
	}
	row := ConvertToLinkRow("org-1", 77, link)
	if row.RunId != 77 || row.DocumentRecordId != 9 {
		t.Fatalf("unexpected row identifiers: %+v", row)
	}
	if row.TransactionRecordId == nil || *row.TransactionRecordId != 5 {
		t.Fatalf("expected transaction id 5, got %+v", row.TransactionRecordId)
	}

	unmatchedRow := ConvertToLinkRow("org-1", 77, LinkResult{
		Document:      testDoc(9, "A-100", 100, 10, day(0)),
		MatchStrategy: models.MatchStrategyUnmatched,
	})
	if unmatchedRow.TransactionRecordId != nil {
		t.Fatalf("unmatched row must carry a nil transaction id")
	}
}
