package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/chainsight_backend/config"
	"bitbucket.org/mmdatafocus/chainsight_backend/utils"
)

// TriangleScore is the per-run 4D health score of one organization: four
// sub-scores (service, cost, capital, document) in [0,100] plus the combined
// score. Superseded by the next run, never mutated; history is retained for
// the trend display.
type TriangleScore struct {
	ID             int    `gorm:"primary_key" json:"id"`
	OrganizationId string `gorm:"size:64;not null;index:idx_score_org_run,priority:1" json:"organization_id"`
	RunId          int    `gorm:"not null;index:idx_score_org_run,priority:2" json:"run_id"`

	ServiceScore  float64 `gorm:"not null" json:"service_score"`
	CostScore     float64 `gorm:"not null" json:"cost_score"`
	CapitalScore  float64 `gorm:"not null" json:"capital_score"`
	DocumentScore float64 `gorm:"not null" json:"document_score"`
	CombinedScore float64 `gorm:"not null" json:"combined_score"`

	// Per failing axis: the ids of the findings that dragged it below the
	// pass threshold (JSON-encoded int lists; empty when the axis passes).
	ServiceFindingIds  []byte `gorm:"type:blob" json:"service_finding_ids"`
	CostFindingIds     []byte `gorm:"type:blob" json:"cost_finding_ids"`
	DocumentFindingIds []byte `gorm:"type:blob" json:"document_finding_ids"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// CurrentTriangleScore is the dashboard read model for the latest completed
// run, cached in redis until the next run commits.
type CurrentTriangleScore struct {
	Score TriangleScore `json:"score"`
	Run   ScoringRun    `json:"run"`
}

const scoreHistoryDefaultLimit = 30

// GetCurrentTriangleScore returns the score of the latest completed run.
func GetCurrentTriangleScore(ctx context.Context, organizationId string) (*TriangleScore, *ScoringRun, error) {
	if cached, err := utils.RetrieveRedisOrg[CurrentTriangleScore](organizationId); err == nil && cached != nil {
		return &cached.Score, &cached.Run, nil
	}

	run, err := GetLatestCompletedRun(ctx, organizationId)
	if err != nil {
		return nil, nil, err
	}
	db := config.GetDB()
	var score TriangleScore
	if err := db.WithContext(ctx).
		Where("organization_id = ? AND run_id = ?", organizationId, run.ID).
		Take(&score).Error; err != nil {
		return nil, nil, err
	}
	_ = utils.StoreRedisOrg[CurrentTriangleScore](CurrentTriangleScore{Score: score, Run: *run}, organizationId)
	return &score, run, nil
}

// GetTriangleScoreHistory returns recent scores, newest first. The default
// window is cached per organization; custom limits go to the db.
func GetTriangleScoreHistory(ctx context.Context, organizationId string, limit int) ([]TriangleScore, error) {
	if limit <= 0 || limit > 100 {
		limit = scoreHistoryDefaultLimit
	}
	useCache := limit == scoreHistoryDefaultLimit
	if useCache {
		if cached, err := utils.RetrieveRedisList[TriangleScore](organizationId); err == nil && cached != nil {
			scores := make([]TriangleScore, 0, len(cached))
			for _, s := range cached {
				scores = append(scores, *s)
			}
			return scores, nil
		}
	}

	db := config.GetDB()
	var scores []TriangleScore
	err := db.WithContext(ctx).
		Joins("JOIN scoring_runs ON scoring_runs.id = triangle_scores.run_id").
		Where("triangle_scores.organization_id = ?", organizationId).
		Where("scoring_runs.status = ?", RunStatusCompleted).
		Order("triangle_scores.run_id DESC").
		Limit(limit).
		Find(&scores).Error
	if err == nil && useCache {
		_ = utils.StoreRedisList[TriangleScore](scores, organizationId)
	}
	return scores, err
}
