package config

import (
	"os"
	"strings"
)

// FuzzySkuMatchEnabled controls whether the entity resolver falls back to
// normalized fuzzy SKU comparison when no exact SKU match exists.
//
// Set via env:
// - FUZZY_SKU_MATCH=true
func FuzzySkuMatchEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("FUZZY_SKU_MATCH")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// RunSchedulerEnabled controls the in-process periodic run scheduler.
// Disable it when runs are triggered by Cloud Scheduler instead.
//
// Set via env:
// - RUN_SCHEDULER_ENABLED=true
func RunSchedulerEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("RUN_SCHEDULER_ENABLED")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
