package workflow

import (
	"bitbucket.org/mmdatafocus/chainsight_backend/config"
	"bitbucket.org/mmdatafocus/chainsight_backend/models"
)

// ScoreInput is the complete input of one scoring pass: the run's findings
// plus the latest operational snapshot from the analytics side. Metrics may
// be nil (nothing reported yet); the engine then scores on neutral
// operational inputs. Benchmark is the organization's industry cash-cycle
// benchmark in days (0 = unknown).
type ScoreInput struct {
	Findings  []models.DiscrepancyFinding
	Metrics   *models.OperationalMetrics
	Benchmark float64
}

// TriangleScoreResult holds the four sub-scores, the combined score, and the
// finding ids dragging each failing axis below its pass threshold.
type TriangleScoreResult struct {
	ServiceScore  float64
	CostScore     float64
	CapitalScore  float64
	DocumentScore float64
	CombinedScore float64

	ServiceFindingIds  []int
	CostFindingIds     []int
	DocumentFindingIds []int
}

// Penalty weights for the service axis. Delay findings and operational rates
// both pull the score down; a delay-free org with perfect delivery scores 100.
const (
	serviceDelayPenalty    = 15.0
	serviceStockoutWeight  = 50.0
	serviceDeliveryWeight  = 30.0
	capitalCycleWeight     = 50.0
	capitalTurnsFloor      = 4.0
	capitalTurnsPenalty    = 5.0
	documentUnmatchedShare = 0.6
	documentSeverityShare  = 0.4
)

var severityWeight = map[models.Severity]float64{
	models.SeverityNone:     0,
	models.SeverityLow:      0.1,
	models.SeverityMedium:   0.4,
	models.SeverityHigh:     0.7,
	models.SeverityCritical: 1,
}

// ComputeTriangleScore derives the 4D score from the current run's findings
// only. It never reads a prior run's score: every sub-score must be
// reproducible from the same finding set, so regressions are visible instead
// of being averaged away.
func ComputeTriangleScore(cfg config.EngineConfig, input ScoreInput) TriangleScoreResult {
	result := TriangleScoreResult{
		ServiceScore:  computeServiceScore(input),
		CostScore:     computeCostScore(cfg, input.Findings),
		CapitalScore:  computeCapitalScore(input),
		DocumentScore: computeDocumentScore(input.Findings),
	}
	result.CombinedScore = clampScore((result.ServiceScore + result.CostScore + result.CapitalScore + result.DocumentScore) / 4)

	if result.ServiceScore < cfg.MediumRiskScoreThreshold {
		result.ServiceFindingIds = serviceContributors(input.Findings)
	}
	if result.CostScore < cfg.MediumRiskScoreThreshold {
		result.CostFindingIds = costContributors(input.Findings)
	}
	if result.DocumentScore < cfg.MediumRiskScoreThreshold {
		result.DocumentFindingIds = documentContributors(input.Findings)
	}
	return result
}

func computeServiceScore(input ScoreInput) float64 {
	score := 100.0
	for _, f := range input.Findings {
		if f.DelaySeverity.AtLeast(models.SeverityHigh) {
			score -= serviceDelayPenalty
		}
	}
	// Neutral inputs when the analytics side has not reported: no stockouts,
	// full on-time delivery.
	if input.Metrics != nil {
		score -= input.Metrics.StockoutRate * serviceStockoutWeight
		score -= (1 - input.Metrics.OnTimeDeliveryRate) * serviceDeliveryWeight
	}
	return clampScore(score)
}

// computeCostScore penalizes the exposure-weighted average cost variance.
// Findings whose variance is undefined (zero-cost transactions) count at the
// high threshold instead of being dropped.
func computeCostScore(cfg config.EngineConfig, findings []models.DiscrepancyFinding) float64 {
	var weightedVariance, totalExposure float64
	var varianceSum float64
	var count int

	for _, f := range findings {
		if f.Unmatched {
			continue
		}
		var pct float64
		switch {
		case f.CostVariancePct != nil:
			pct = abs(*f.CostVariancePct)
		case f.CostSeverity.AtLeast(models.SeverityHigh):
			pct = cfg.CostVarianceHighPct
		default:
			continue
		}
		weightedVariance += pct * f.DollarExposure
		totalExposure += f.DollarExposure
		varianceSum += pct
		count++
	}

	if count == 0 {
		return 100
	}

	avg := varianceSum / float64(count)
	if totalExposure > 0 {
		avg = weightedVariance / totalExposure
	}
	return clampScore(100 - avg)
}

// computeCapitalScore rates working-capital efficiency: cash-cycle length
// against the industry benchmark plus inventory turns. Not a function of
// document findings.
func computeCapitalScore(input ScoreInput) float64 {
	if input.Metrics == nil {
		return 100
	}
	score := 100.0
	if input.Benchmark > 0 && input.Metrics.CashCycleDays > input.Benchmark {
		ratio := input.Metrics.CashCycleDays / input.Benchmark
		score -= (ratio - 1) * capitalCycleWeight
	}
	if input.Metrics.InventoryTurns > 0 && input.Metrics.InventoryTurns < capitalTurnsFloor {
		score -= (capitalTurnsFloor - input.Metrics.InventoryTurns) * capitalTurnsPenalty
	}
	return clampScore(score)
}

// computeDocumentScore reflects trust in the document trail: the unmatched
// ratio plus the average severity weight across the run's findings.
func computeDocumentScore(findings []models.DiscrepancyFinding) float64 {
	if len(findings) == 0 {
		return 100
	}
	var unmatched int
	var weightSum float64
	for _, f := range findings {
		if f.Unmatched {
			unmatched++
		}
		weightSum += severityWeight[f.Severity]
	}
	unmatchedRatio := float64(unmatched) / float64(len(findings))
	avgWeight := weightSum / float64(len(findings))

	penalty := (unmatchedRatio*documentUnmatchedShare + avgWeight*documentSeverityShare) * 100
	return clampScore(100 - penalty)
}

func serviceContributors(findings []models.DiscrepancyFinding) []int {
	var ids []int
	for _, f := range findings {
		if f.DelaySeverity.AtLeast(models.SeverityHigh) {
			ids = append(ids, f.ID)
		}
	}
	return ids
}

func costContributors(findings []models.DiscrepancyFinding) []int {
	var ids []int
	for _, f := range findings {
		if f.Unmatched {
			continue
		}
		if f.CostSeverity.AtLeast(models.SeverityMedium) {
			ids = append(ids, f.ID)
		}
	}
	return ids
}

func documentContributors(findings []models.DiscrepancyFinding) []int {
	var ids []int
	for _, f := range findings {
		if f.Unmatched || f.Severity.AtLeast(models.SeverityMedium) {
			ids = append(ids, f.ID)
		}
	}
	return ids
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
