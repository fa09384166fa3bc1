package config

import (
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// EngineConfig holds the tunable thresholds of the cross-reference intelligence
// engine. Field defaults mirror the values running in the deployment config.
//
// Invalid values never reach the engine: LoadEngineConfig validates and falls
// back to defaults (with a warning) per offending field.
type EngineConfig struct {
	CostVarianceHighPct   float64 `json:"cost_variance_high_pct" validate:"gt=0,lte=1000"`
	CostVarianceMediumPct float64 `json:"cost_variance_medium_pct" validate:"gt=0,ltefield=CostVarianceHighPct"`

	QtyDiscrepancyHighPct   float64 `json:"qty_discrepancy_high_pct" validate:"gt=0,lte=1000"`
	QtyDiscrepancyMediumPct float64 `json:"qty_discrepancy_medium_pct" validate:"gt=0,ltefield=QtyDiscrepancyHighPct"`

	DelayedShipmentDaysThreshold int `json:"delayed_shipment_days_threshold" validate:"gt=0,lte=365"`

	HighRiskScoreThreshold   float64 `json:"high_risk_score_threshold" validate:"gte=0,lte=100"`
	MediumRiskScoreThreshold float64 `json:"medium_risk_score_threshold" validate:"gte=0,lte=100,gtefield=HighRiskScoreThreshold"`

	MatchDateWindowDays int     `json:"match_date_window_days" validate:"gt=0,lte=120"`
	MatchMinConfidence  float64 `json:"match_min_confidence" validate:"gt=0,lt=1"`

	CompromisedMinExposureUsd float64 `json:"compromised_min_exposure_usd" validate:"gte=0"`

	// Match ranking weights. Kept configurable pending real-data calibration.
	MatchSkuWeight  float64 `json:"match_sku_weight" validate:"gt=0,lt=1"`
	MatchQtyWeight  float64 `json:"match_qty_weight" validate:"gt=0,lt=1"`
	MatchDateWeight float64 `json:"match_date_weight" validate:"gt=0,lt=1"`

	WorkerPoolSize    int `json:"worker_pool_size" validate:"gte=1,lte=64"`
	RunTimeoutMinutes int `json:"run_timeout_minutes" validate:"gte=1,lte=120"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		CostVarianceHighPct:          20,
		CostVarianceMediumPct:        10,
		QtyDiscrepancyHighPct:        10,
		QtyDiscrepancyMediumPct:      5,
		DelayedShipmentDaysThreshold: 45,
		HighRiskScoreThreshold:       60,
		MediumRiskScoreThreshold:     80,
		MatchDateWindowDays:          10,
		MatchMinConfidence:           0.6,
		CompromisedMinExposureUsd:    1000,
		MatchSkuWeight:               0.5,
		MatchQtyWeight:               0.3,
		MatchDateWeight:              0.2,
		WorkerPoolSize:               8,
		RunTimeoutMinutes:            10,
	}
}

var (
	engineCfg     EngineConfig
	engineCfgOnce sync.Once
	validate      = validator.New()
)

// GetEngineConfig returns the process-wide engine config, loading it on first use.
func GetEngineConfig() EngineConfig {
	engineCfgOnce.Do(func() {
		engineCfg = LoadEngineConfig(GetLogger())
	})
	return engineCfg
}

// LoadEngineConfig reads ENGINE_CONFIG_JSON (a JSON object with the recognized
// option keys) over the defaults, validates the result, and resets any invalid
// field back to its default with a warning.
func LoadEngineConfig(logger *logrus.Logger) EngineConfig {
	cfg := DefaultEngineConfig()

	raw := strings.TrimSpace(os.Getenv("ENGINE_CONFIG_JSON"))
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			if logger != nil {
				LogWarn(logger, "engine.go", "LoadEngineConfig", "ENGINE_CONFIG_JSON is not valid JSON; using defaults", err.Error())
			}
			return DefaultEngineConfig()
		}
	}

	if err := validate.Struct(cfg); err != nil {
		def := DefaultEngineConfig()
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			if logger != nil {
				LogWarn(logger, "engine.go", "LoadEngineConfig", "engine config validation failed; using defaults", err.Error())
			}
			return def
		}
		for _, ve := range verrs {
			if logger != nil {
				LogWarn(logger, "engine.go", "LoadEngineConfig", "invalid engine config value; falling back to default", ve.Field()+" failed "+ve.Tag())
			}
			resetEngineField(&cfg, def, ve.Field())
		}
		// Cross-field rules may still be violated after per-field resets; be safe.
		if err := validate.Struct(cfg); err != nil {
			return def
		}
	}
	return cfg
}

func resetEngineField(cfg *EngineConfig, def EngineConfig, field string) {
	switch field {
	case "CostVarianceHighPct":
		cfg.CostVarianceHighPct = def.CostVarianceHighPct
	case "CostVarianceMediumPct":
		cfg.CostVarianceMediumPct = def.CostVarianceMediumPct
	case "QtyDiscrepancyHighPct":
		cfg.QtyDiscrepancyHighPct = def.QtyDiscrepancyHighPct
	case "QtyDiscrepancyMediumPct":
		cfg.QtyDiscrepancyMediumPct = def.QtyDiscrepancyMediumPct
	case "DelayedShipmentDaysThreshold":
		cfg.DelayedShipmentDaysThreshold = def.DelayedShipmentDaysThreshold
	case "HighRiskScoreThreshold":
		cfg.HighRiskScoreThreshold = def.HighRiskScoreThreshold
	case "MediumRiskScoreThreshold":
		cfg.MediumRiskScoreThreshold = def.MediumRiskScoreThreshold
	case "MatchDateWindowDays":
		cfg.MatchDateWindowDays = def.MatchDateWindowDays
	case "MatchMinConfidence":
		cfg.MatchMinConfidence = def.MatchMinConfidence
	case "CompromisedMinExposureUsd":
		cfg.CompromisedMinExposureUsd = def.CompromisedMinExposureUsd
	case "MatchSkuWeight":
		cfg.MatchSkuWeight = def.MatchSkuWeight
	case "MatchQtyWeight":
		cfg.MatchQtyWeight = def.MatchQtyWeight
	case "MatchDateWeight":
		cfg.MatchDateWeight = def.MatchDateWeight
	case "WorkerPoolSize":
		cfg.WorkerPoolSize = def.WorkerPoolSize
	case "RunTimeoutMinutes":
		cfg.RunTimeoutMinutes = def.RunTimeoutMinutes
	}
}
