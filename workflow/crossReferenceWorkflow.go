package workflow

import (
	"fmt"
	"sort"
	"strings"

	"bitbucket.org/mmdatafocus/chainsight_backend/config"
	"bitbucket.org/mmdatafocus/chainsight_backend/models"
	"github.com/agnivade/levenshtein"
)

// LinkResult is the in-memory resolution result for one document before
// persistence. Transaction points into the run's transaction snapshot when
// matched.
type LinkResult struct {
	Document    models.DocumentRecord
	Transaction *models.TransactionRecord

	Matched         bool
	MatchConfidence float64
	MatchStrategy   models.MatchStrategy
}

// DataQualityIssue reports a record excluded from matching. Surfaced as a
// low-severity alert, never a hard failure.
type DataQualityIssue struct {
	DocumentRecordId int
	Reason           string
}

type candidateScore struct {
	TransactionIndex int
	Score            float64
	Strategy         models.MatchStrategy
}

// documentCandidates is the per-document output of the parallel scoring phase.
// Ranking is fully deterministic so assignment never depends on worker order.
type documentCandidates struct {
	DocumentIndex int
	Skipped       bool
	SkipReason    string
	Ranked        []candidateScore
}

// normalizeSku lowercases and strips whitespace/punctuation, keeping only
// letters and digits.
func normalizeSku(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// skuSimilarity is a normalized Levenshtein ratio in [0,1] over normalized keys.
func skuSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	dist := levenshtein.ComputeDistance(a, b)
	sim := 1 - float64(dist)/float64(maxLen)
	if sim < 0 {
		return 0
	}
	return sim
}

// documentMatchKey is the normalized matching key: SKU when extracted, the
// line-item description otherwise.
func documentMatchKey(doc models.DocumentRecord) string {
	if doc.Sku != nil && *doc.Sku != "" {
		return normalizeSku(*doc.Sku)
	}
	if doc.Description != nil && *doc.Description != "" {
		return normalizeSku(*doc.Description)
	}
	return ""
}

func absDays(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// dayNumber collapses a timestamp to a whole-day ordinal so the date window
// never depends on time-of-day or timezone offsets inside a day.
func dayNumber(t int64) int {
	return int(t / 86400)
}

// scoreDocumentCandidates ranks the snapshot's transactions against one
// document. Pure: safe to fan out across the worker pool.
//
// Candidate filter: date within the configured window, SKU exact match first;
// fuzzy normalized comparison only when no exact candidate exists and the
// feature flag is on. Ranking: skuQuality x w_sku + qtyProximity x w_qty +
// dateProximity x w_date, sorted deterministically (score desc, earliest
// transaction date, lowest id).
func scoreDocumentCandidates(cfg config.EngineConfig, fuzzyEnabled bool, docIndex int, doc models.DocumentRecord, txns []models.TransactionRecord) documentCandidates {
	out := documentCandidates{DocumentIndex: docIndex}

	if !doc.HasMatchableKey() {
		out.Skipped = true
		out.SkipReason = "document has neither SKU nor description"
		return out
	}

	key := documentMatchKey(doc)
	if key == "" {
		out.Skipped = true
		out.SkipReason = "document matching key is empty after normalization"
		return out
	}

	window := cfg.MatchDateWindowDays
	docDay := dayNumber(doc.ShipmentDate.UTC().Unix())

	type scored struct {
		cs       candidateScore
		daysDiff int
	}
	var exact []scored
	var fuzzy []scored

	for i := range txns {
		txn := &txns[i]
		daysDiff := absDays(dayNumber(txn.TransactionDate.UTC().Unix()), docDay)
		if daysDiff > window {
			continue
		}

		txnKey := normalizeSku(txn.Sku)
		if txnKey == "" {
			continue
		}

		var skuQuality float64
		var strategy models.MatchStrategy
		if txnKey == key {
			skuQuality = 1
			strategy = models.MatchStrategyExactSku
		} else if fuzzyEnabled {
			skuQuality = skuSimilarity(txnKey, key)
			strategy = models.MatchStrategyFuzzySku
			if skuQuality == 0 {
				continue
			}
		} else {
			continue
		}

		qtyProximity := quantityProximity(doc.DeclaredQuantity.InexactFloat64(), txn.Quantity.InexactFloat64())
		dateProximity := 1 - float64(daysDiff)/float64(window)

		score := skuQuality*cfg.MatchSkuWeight + qtyProximity*cfg.MatchQtyWeight + dateProximity*cfg.MatchDateWeight
		s := scored{
			cs:       candidateScore{TransactionIndex: i, Score: score, Strategy: strategy},
			daysDiff: daysDiff,
		}
		if strategy == models.MatchStrategyExactSku {
			exact = append(exact, s)
		} else {
			fuzzy = append(fuzzy, s)
		}
	}

	// Exact first: fuzzy candidates only compete when no exact SKU candidate
	// exists inside the window.
	pool := exact
	if len(pool) == 0 {
		pool = fuzzy
	}

	sort.SliceStable(pool, func(a, b int) bool {
		if pool[a].cs.Score != pool[b].cs.Score {
			return pool[a].cs.Score > pool[b].cs.Score
		}
		ta := txns[pool[a].cs.TransactionIndex]
		tb := txns[pool[b].cs.TransactionIndex]
		if !ta.TransactionDate.Equal(tb.TransactionDate) {
			return ta.TransactionDate.Before(tb.TransactionDate)
		}
		return ta.ID < tb.ID
	})

	out.Ranked = make([]candidateScore, len(pool))
	for i, s := range pool {
		out.Ranked[i] = s.cs
	}
	return out
}

func quantityProximity(docQty, txnQty float64) float64 {
	if docQty < 0 {
		docQty = -docQty
	}
	if txnQty < 0 {
		txnQty = -txnQty
	}
	max := docQty
	if txnQty > max {
		max = txnQty
	}
	if max == 0 {
		return 1
	}
	diff := docQty - txnQty
	if diff < 0 {
		diff = -diff
	}
	return 1 - diff/max
}

// assignLinks performs the deterministic greedy assignment over the ranked
// candidate lists: documents in snapshot order, each claiming its best
// still-unclaimed candidate above the acceptance threshold. A transaction is
// the target of at most one link per run.
func assignLinks(cfg config.EngineConfig, docs []models.DocumentRecord, txns []models.TransactionRecord, candidates []documentCandidates) ([]LinkResult, []DataQualityIssue) {
	links := make([]LinkResult, 0, len(docs))
	var issues []DataQualityIssue
	claimed := make(map[int]bool, len(txns))

	byDoc := make(map[int]documentCandidates, len(candidates))
	for _, c := range candidates {
		byDoc[c.DocumentIndex] = c
	}

	for i := range docs {
		doc := docs[i]
		c, ok := byDoc[i]
		if !ok || c.Skipped {
			reason := "document excluded from matching"
			if ok {
				reason = c.SkipReason
			}
			issues = append(issues, DataQualityIssue{
				DocumentRecordId: doc.ID,
				Reason:           reason,
			})
			continue
		}

		var picked *candidateScore
		for j := range c.Ranked {
			cand := c.Ranked[j]
			if cand.Score < cfg.MatchMinConfidence {
				break
			}
			if claimed[cand.TransactionIndex] {
				continue
			}
			picked = &c.Ranked[j]
			break
		}

		if picked == nil {
			links = append(links, LinkResult{
				Document:        doc,
				Matched:         false,
				MatchConfidence: 0,
				MatchStrategy:   models.MatchStrategyUnmatched,
			})
			continue
		}

		claimed[picked.TransactionIndex] = true
		links = append(links, LinkResult{
			Document:        doc,
			Transaction:     &txns[picked.TransactionIndex],
			Matched:         true,
			MatchConfidence: picked.Score,
			MatchStrategy:   picked.Strategy,
		})
	}

	return links, issues
}

// ResolveCrossReferences runs the full resolution pass sequentially. The run
// orchestrator fans scoreDocumentCandidates out over the worker pool instead;
// both paths produce identical output for identical input.
func ResolveCrossReferences(cfg config.EngineConfig, fuzzyEnabled bool, txns []models.TransactionRecord, docs []models.DocumentRecord) ([]LinkResult, []DataQualityIssue) {
	candidates := make([]documentCandidates, len(docs))
	for i := range docs {
		candidates[i] = scoreDocumentCandidates(cfg, fuzzyEnabled, i, docs[i], txns)
	}
	return assignLinks(cfg, docs, txns, candidates)
}

// ConvertToLinkRow materializes the persistence row for one resolution result.
func ConvertToLinkRow(organizationId string, runId int, link LinkResult) models.CrossReferenceLink {
	row := models.CrossReferenceLink{
		OrganizationId:   organizationId,
		RunId:            runId,
		DocumentRecordId: link.Document.ID,
		Matched:          link.Matched,
		MatchConfidence:  link.MatchConfidence,
		MatchStrategy:    link.MatchStrategy,
	}
	if link.Transaction != nil {
		id := link.Transaction.ID
		row.TransactionRecordId = &id
	}
	return row
}

func (i DataQualityIssue) String() string {
	return fmt.Sprintf("document %d: %s", i.DocumentRecordId, i.Reason)
}
