package workflow

import (
	"testing"

	"bitbucket.org/mmdatafocus/chainsight_backend/config"
	"bitbucket.org/mmdatafocus/chainsight_backend/models"
)

func floatPtr(v float64) *float64 { return &v }

func TestComputeTriangleScoreEmptyRun(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	result := ComputeTriangleScore(cfg, ScoreInput{})

	if result.ServiceScore != 100 || result.CostScore != 100 || result.CapitalScore != 100 || result.DocumentScore != 100 {
		t.Fatalf("empty run with no metrics must score 100 on every axis, got %+v", result)
	}
	if result.CombinedScore != 100 {
		t.Fatalf("expected combined 100, got %v", result.CombinedScore)
	}
	if result.ServiceFindingIds != nil || result.CostFindingIds != nil || result.DocumentFindingIds != nil {
		t.Fatalf("passing axes must carry no contributor lists")
	}
}

func TestScoresStayWithinBounds(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	var findings []models.DiscrepancyFinding
	for i := 0; i < 20; i++ {
		findings = append(findings, models.DiscrepancyFinding{
			ID:              i + 1,
			CostVariancePct: floatPtr(500),
			CostSeverity:    models.SeverityHigh,
			QtySeverity:     models.SeverityHigh,
			DelaySeverity:   models.SeverityHigh,
			Severity:        models.SeverityHigh,
			DollarExposure:  100000,
		})
	}
	input := ScoreInput{
		Findings: findings,
		Metrics: &models.OperationalMetrics{
			OnTimeDeliveryRate: 0,
			StockoutRate:       1,
			InventoryTurns:     0.1,
			CashCycleDays:      900,
		},
		Benchmark: 30,
	}

	result := ComputeTriangleScore(cfg, input)
	for name, v := range map[string]float64{
		"service":  result.ServiceScore,
		"cost":     result.CostScore,
		"capital":  result.CapitalScore,
		"document": result.DocumentScore,
		"combined": result.CombinedScore,
	} {
		if v < 0 || v > 100 {
			t.Fatalf("%s score out of [0,100]: %v", name, v)
		}
	}
	if result.ServiceScore != 0 {
		t.Fatalf("20 delay findings plus worst-case rates must floor the service score, got %v", result.ServiceScore)
	}
}

func TestCapitalScoreNeutralWithoutMetrics(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	result := ComputeTriangleScore(cfg, ScoreInput{
		Findings: []models.DiscrepancyFinding{
			{ID: 1, Severity: models.SeverityHigh, CostSeverity: models.SeverityHigh, CostVariancePct: floatPtr(50), DollarExposure: 1000},
		},
	})
	if result.CapitalScore != 100 {
		t.Fatalf("capital axis is neutral without operational metrics, got %v", result.CapitalScore)
	}
}

func TestCapitalScorePenalties(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	input := ScoreInput{
		Metrics: &models.OperationalMetrics{
			OnTimeDeliveryRate: 1,
			CashCycleDays:      90,
			InventoryTurns:     2,
		},
		Benchmark: 60,
	}
	result := ComputeTriangleScore(cfg, input)
	// Cycle: (90/60 - 1) x 50 = 25. Turns: (4 - 2) x 5 = 10.
	if result.CapitalScore != 65 {
		t.Fatalf("expected capital score 65, got %v", result.CapitalScore)
	}
}

func TestServiceScoreDelayPenalty(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	result := ComputeTriangleScore(cfg, ScoreInput{
		Findings: []models.DiscrepancyFinding{
			{ID: 1, DelaySeverity: models.SeverityHigh, Severity: models.SeverityHigh},
			{ID: 2, DelaySeverity: models.SeverityHigh, Severity: models.SeverityHigh},
			{ID: 3, DelaySeverity: models.SeverityNone},
		},
	})
	if result.ServiceScore != 70 {
		t.Fatalf("two delayed shipments at 15 points each: expected 70, got %v", result.ServiceScore)
	}
	if len(result.ServiceFindingIds) != 2 {
		t.Fatalf("expected 2 service contributors, got %v", result.ServiceFindingIds)
	}
}

func TestCostScoreWeightedByExposure(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	findings := []models.DiscrepancyFinding{
		{ID: 1, CostVariancePct: floatPtr(40), CostSeverity: models.SeverityHigh, DollarExposure: 100},
		{ID: 2, CostVariancePct: floatPtr(0), CostSeverity: models.SeverityNone, DollarExposure: 900},
	}
	result := ComputeTriangleScore(cfg, ScoreInput{Findings: findings})
	// Exposure-weighted: (40x100 + 0x900) / 1000 = 4 -> 96.
	if result.CostScore != 96 {
		t.Fatalf("expected exposure-weighted cost score 96, got %v", result.CostScore)
	}
}

func TestCostScoreUndefinedVarianceCountsAtHighThreshold(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	findings := []models.DiscrepancyFinding{
		// Undefined pct (zero-cost transaction) flagged high.
		{ID: 1, CostSeverity: models.SeverityHigh, DollarExposure: 100},
	}
	result := ComputeTriangleScore(cfg, ScoreInput{Findings: findings})
	if result.CostScore != 100-cfg.CostVarianceHighPct {
		t.Fatalf("undefined variance must weigh in at the high threshold, got %v", result.CostScore)
	}
}

func TestCostScoreIgnoresUnmatchedFindings(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	findings := []models.DiscrepancyFinding{
		{ID: 1, Unmatched: true, Severity: models.SeverityMedium, DollarExposure: 50000},
	}
	result := ComputeTriangleScore(cfg, ScoreInput{Findings: findings})
	if result.CostScore != 100 {
		t.Fatalf("unmatched findings belong to the document axis, not cost; got %v", result.CostScore)
	}
}

func TestDocumentScoreUnmatchedRatio(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	findings := []models.DiscrepancyFinding{
		{ID: 1, Unmatched: true, Severity: models.SeverityMedium},
		{ID: 2, Severity: models.SeverityNone},
	}
	result := ComputeTriangleScore(cfg, ScoreInput{Findings: findings})
	// Penalty: (0.5 x 0.6 + 0.2 x 0.4) x 100 = 38 -> 62.
	if result.DocumentScore != 62 {
		t.Fatalf("expected document score 62, got %v", result.DocumentScore)
	}
	if len(result.DocumentFindingIds) != 1 || result.DocumentFindingIds[0] != 1 {
		t.Fatalf("failing document axis must name the unmatched finding, got %v", result.DocumentFindingIds)
	}
}

func TestCombinedScoreIsMeanOfAxes(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	result := ComputeTriangleScore(cfg, ScoreInput{
		Findings: []models.DiscrepancyFinding{
			{ID: 1, DelaySeverity: models.SeverityHigh, Severity: models.SeverityHigh},
		},
	})
	expected := (result.ServiceScore + result.CostScore + result.CapitalScore + result.DocumentScore) / 4
	if result.CombinedScore != expected {
		t.Fatalf("combined must be the mean of the four axes: expected %v, got %v", expected, result.CombinedScore)
	}
}

func TestContributorListsOnlyOnFailingAxes(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	// One medium cost finding: cost score stays above the pass threshold.
	result := ComputeTriangleScore(cfg, ScoreInput{
		Findings: []models.DiscrepancyFinding{
			{ID: 1, CostVariancePct: floatPtr(12), CostSeverity: models.SeverityMedium, Severity: models.SeverityMedium, DollarExposure: 100},
		},
	})
	if result.CostScore < cfg.MediumRiskScoreThreshold {
		t.Fatalf("test premise broken: cost score %v should pass", result.CostScore)
	}
	if result.CostFindingIds != nil {
		t.Fatalf("passing cost axis must carry no contributors, got %v", result.CostFindingIds)
	}
}
