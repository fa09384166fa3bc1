package workflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/chainsight_backend/config"
	"bitbucket.org/mmdatafocus/chainsight_backend/models"
	"bitbucket.org/mmdatafocus/chainsight_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const runModule = "runWorkflow.go"

var ErrRunTimedOut = errors.New("scoring run exceeded wall-clock budget")

// runSnapshot is the arena of one run: the immutable input set fetched once
// at run start. No run ever reads another run's in-flight state.
type runSnapshot struct {
	Transactions []models.TransactionRecord
	Documents    []models.DocumentRecord
	Metrics      *models.OperationalMetrics
	Benchmark    float64
}

// ExecuteScoringRun runs the full engine pass for one organization: snapshot,
// parallel resolution, evaluation, scoring, detection, alerting, one
// persistence transaction. The whole run, snapshot included, executes under
// the per-organization MySQL advisory lock (redis lock in front as a
// fast-fail guard, held for the run's duration), so a run computing on an
// older snapshot can never commit after one that saw newer data. A timed-out
// or failed run leaves the previous run's outputs untouched and raises an
// operational alert; the dashboard keeps serving the latest completed run.
func ExecuteScoringRun(ctx context.Context, db *gorm.DB, logger *logrus.Logger, organizationId string, source models.TriggerSource) (int, error) {
	cfg := config.GetEngineConfig()
	fuzzyEnabled := config.FuzzySkuMatchEnabled()

	ctx = utils.SetOrganizationIdInContext(ctx, organizationId)
	ctx, correlationId := utils.EnsureCorrelationId(ctx)

	lockTtl := time.Duration(cfg.RunTimeoutMinutes)*time.Minute + time.Minute
	releaseLock, err := utils.OrganizationLock(ctx, organizationId, "intelligence", lockTtl, runModule, "ExecuteScoringRun")
	if err != nil {
		return 0, err
	}
	defer releaseLock()

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.RunTimeoutMinutes)*time.Minute)
	defer cancel()

	run := models.ScoringRun{
		OrganizationId: organizationId,
		Status:         models.RunStatusRunning,
		TriggerSource:  source,
		StartedAt:      time.Now().UTC(),
		CorrelationId:  correlationId,
	}
	if err := db.WithContext(ctx).Create(&run).Error; err != nil {
		config.LogError(logger, runModule, "ExecuteScoringRun", "Creating scoring run row", organizationId, err)
		return 0, err
	}

	runErr := db.WithContext(runCtx).Transaction(func(tx *gorm.DB) error {
		// GET_LOCK is connection-scoped; taking it on the transaction's
		// connection before the snapshot serializes the entire run.
		if err := AcquireOrganizationRunLock(tx, organizationId); err != nil {
			return err
		}
		defer ReleaseOrganizationRunLock(tx, organizationId)

		snapshot, err := loadRunSnapshot(runCtx, tx, organizationId)
		if err != nil {
			return err
		}

		candidates, err := scoreCandidatesParallel(runCtx, cfg, fuzzyEnabled, snapshot)
		if err != nil {
			return err
		}

		links, issues := assignLinks(cfg, snapshot.Documents, snapshot.Transactions, candidates)

		findings := make([]models.DiscrepancyFinding, len(links))
		for i := range links {
			findings[i] = EvaluateLink(cfg, organizationId, run.ID, links[i])
		}

		if err := runCtx.Err(); err != nil {
			return err
		}

		return persistRunResults(tx, cfg, organizationId, &run, snapshot, links, findings, issues)
	})
	if runErr != nil {
		abortRun(ctx, db, logger, &run, runErr)
		return run.ID, runErr
	}

	if err := models.InvalidateIntelligenceCache(organizationId); err != nil {
		config.LogError(logger, runModule, "ExecuteScoringRun", "Invalidating dashboard cache", organizationId, err)
	}
	return run.ID, nil
}

func loadRunSnapshot(ctx context.Context, tx *gorm.DB, organizationId string) (*runSnapshot, error) {
	txns, err := models.GetActiveTransactionRecords(ctx, tx, organizationId)
	if err != nil {
		return nil, fmt.Errorf("loading transaction snapshot: %w", err)
	}
	docs, err := models.GetDocumentRecords(ctx, tx, organizationId)
	if err != nil {
		return nil, fmt.Errorf("loading document snapshot: %w", err)
	}

	snapshot := &runSnapshot{Transactions: txns, Documents: docs}

	metrics, err := models.GetLatestOperationalMetrics(ctx, tx, organizationId)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("loading operational metrics: %w", err)
	}
	snapshot.Metrics = metrics

	org, err := models.GetOrganizationById(ctx, tx, organizationId)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("loading organization: %w", err)
	}
	if org != nil {
		snapshot.Benchmark = org.BenchmarkCashCycleDays
	}
	return snapshot, nil
}

// scoreCandidatesParallel fans per-document candidate scoring out over the
// bounded worker pool. Cancellation is cooperative: workers check the context
// between documents. The returned slice is index-aligned with the documents,
// so worker scheduling never affects the output.
func scoreCandidatesParallel(ctx context.Context, cfg config.EngineConfig, fuzzyEnabled bool, snapshot *runSnapshot) ([]documentCandidates, error) {
	docs := snapshot.Documents
	results := make([]documentCandidates, len(docs))

	poolSize := cfg.WorkerPoolSize
	if poolSize < 1 {
		poolSize = 1
	}
	if poolSize > len(docs) && len(docs) > 0 {
		poolSize = len(docs)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < poolSize; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					return
				}
				results[i] = scoreDocumentCandidates(cfg, fuzzyEnabled, i, docs[i], snapshot.Transactions)
			}
		}()
	}

feed:
	for i := range docs {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)

	// Synchronization barrier: aggregation only starts once every per-document
	// task has finished or bailed out.
	wg.Wait()

	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrRunTimedOut
		}
		return nil, err
	}
	return results, nil
}

// persistRunResults writes the whole run output on the run's transaction:
// links, findings, score, compromised items, alerts, and the run row flip to
// Completed. Either everything of this run becomes visible or nothing does.
func persistRunResults(tx *gorm.DB, cfg config.EngineConfig, organizationId string, run *models.ScoringRun, snapshot *runSnapshot, links []LinkResult, findings []models.DiscrepancyFinding, issues []DataQualityIssue) error {
	matched := 0
	for i := range links {
		row := ConvertToLinkRow(organizationId, run.ID, links[i])
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		findings[i].LinkId = row.ID
		if links[i].Matched {
			matched++
		}
	}

	for i := range findings {
		if err := tx.Create(&findings[i]).Error; err != nil {
			return err
		}
	}

	// Score and detect on the persisted findings so contributing finding
	// ids are real row ids, auditable from the dashboard.
	score := ComputeTriangleScore(cfg, ScoreInput{
		Findings:  findings,
		Metrics:   snapshot.Metrics,
		Benchmark: snapshot.Benchmark,
	})
	items := DetectCompromisedInventory(cfg, links, findings)

	scoreRow := models.TriangleScore{
		OrganizationId:     organizationId,
		RunId:              run.ID,
		ServiceScore:       score.ServiceScore,
		CostScore:          score.CostScore,
		CapitalScore:       score.CapitalScore,
		DocumentScore:      score.DocumentScore,
		CombinedScore:      score.CombinedScore,
		ServiceFindingIds:  encodeIdList(score.ServiceFindingIds),
		CostFindingIds:     encodeIdList(score.CostFindingIds),
		DocumentFindingIds: encodeIdList(score.DocumentFindingIds),
	}
	if err := tx.Create(&scoreRow).Error; err != nil {
		return err
	}

	// Supersede the previous run's active items: cleared (never deleted),
	// then re-insert the currently evidenced set for this run.
	if err := tx.Model(&models.CompromisedInventoryItem{}).
		Where("organization_id = ? AND status = ?", organizationId, models.CompromisedItemStatusActive).
		Updates(map[string]interface{}{
			"status":             models.CompromisedItemStatusResolved,
			"resolved_by_run_id": run.ID,
		}).Error; err != nil {
		return err
	}
	for _, item := range items {
		row := models.CompromisedInventoryItem{
			OrganizationId:         organizationId,
			RunId:                  run.ID,
			Sku:                    item.Sku,
			ShipmentRef:            item.ShipmentRef,
			CompromisedQuantity:    item.CompromisedQuantity,
			EstimatedExposure:      item.EstimatedExposure,
			RiskLevel:              item.RiskLevel,
			ContributingFindingIds: encodeIdList(item.ContributingFindingIds),
			Status:                 models.CompromisedItemStatusActive,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}

	if err := ResolveClearedCompromisedAlerts(tx, organizationId, run.ID, items); err != nil {
		return err
	}

	alerts := BuildRunAlerts(cfg, organizationId, run.ID, findings, score, items, issues)
	for i := range alerts {
		if err := tx.Create(&alerts[i]).Error; err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	return tx.Model(&models.ScoringRun{}).
		Where("id = ? AND status = ?", run.ID, models.RunStatusRunning).
		Updates(map[string]interface{}{
			"status":            models.RunStatusCompleted,
			"transaction_count": len(snapshot.Transactions),
			"document_count":    len(snapshot.Documents),
			"matched_count":     matched,
			"unmatched_count":   len(links) - matched,
			"completed_at":      &now,
		}).Error
}

// abortRun flips the run row to Failed/TimedOut and raises an operational
// alert. Uses the parent context: the run context may already be dead.
func abortRun(ctx context.Context, db *gorm.DB, logger *logrus.Logger, run *models.ScoringRun, cause error) {
	status := models.RunStatusFailed
	if errors.Is(cause, ErrRunTimedOut) || errors.Is(cause, context.DeadlineExceeded) {
		status = models.RunStatusTimedOut
	}
	reason := cause.Error()
	now := time.Now().UTC()

	if err := db.WithContext(ctx).Model(&models.ScoringRun{}).
		Where("id = ?", run.ID).
		Updates(map[string]interface{}{
			"status":         status,
			"failure_reason": &reason,
			"completed_at":   &now,
		}).Error; err != nil {
		config.LogError(logger, runModule, "abortRun", "Updating run status", run.ID, err)
	}

	alert := NewOperationalAlert(run.OrganizationId, run.ID, reason)
	if err := db.WithContext(ctx).Create(&alert).Error; err != nil {
		config.LogError(logger, runModule, "abortRun", "Creating operational alert", run.OrganizationId, err)
	}

	config.LogError(logger, runModule, "ExecuteScoringRun", "Scoring run aborted", run.OrganizationId, cause)
}

// ProcessRunTrigger is the Pub/Sub push consumer: deduplicates via the
// durable idempotency key, executes the run, marks the outbox row processed.
// Safe under at-least-once delivery.
func ProcessRunTrigger(ctx context.Context, db *gorm.DB, logger *logrus.Logger, msg config.RunTriggerMessage) error {
	handlerName := "RunTrigger"
	messageId := strconv.Itoa(msg.ID)

	if msg.CorrelationId != "" {
		ctx = utils.SetCorrelationIdInContext(ctx, msg.CorrelationId)
	}
	ctx = utils.SetSkipTenantScopeInContext(ctx)

	skip, err := BeginIdempotency(db.WithContext(ctx), msg.OrganizationId, handlerName, messageId)
	if err != nil {
		return err
	}
	if skip {
		return markTriggerProcessed(ctx, db, msg.ID, nil)
	}

	_, runErr := ExecuteScoringRun(ctx, db, logger, msg.OrganizationId, models.TriggerSource(msg.TriggerSource))
	if runErr != nil {
		_ = MarkIdempotencyFailed(db.WithContext(ctx), msg.OrganizationId, handlerName, messageId, runErr)
		_ = markTriggerProcessed(ctx, db, msg.ID, runErr)
		return runErr
	}

	if err := MarkIdempotencySucceeded(db.WithContext(ctx), msg.OrganizationId, handlerName, messageId); err != nil {
		return err
	}
	return markTriggerProcessed(ctx, db, msg.ID, nil)
}

func markTriggerProcessed(ctx context.Context, db *gorm.DB, triggerId int, processErr error) error {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"is_processed": true,
		"processed_at": &now,
	}
	if processErr != nil {
		msg := processErr.Error()
		updates["last_process_error"] = &msg
	}
	return db.WithContext(ctx).Model(&models.RunTriggerRecord{}).
		Where("id = ?", triggerId).
		Updates(updates).Error
}

func encodeIdList(ids []int) []byte {
	if len(ids) == 0 {
		return []byte("[]")
	}
	s, _ := utils.MarshalToJSON(ids)
	return []byte(s)
}
