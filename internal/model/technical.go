package model

import "time"

// SeriesMetrics carries the deterministic moving-average derived metrics.
// When Available is false every numeric field is meaningless and must not be
// read; downstream classification treats the ticker as StageUnknown.
type SeriesMetrics struct {
	Available bool `json:"available"`

	SMAFast      float64 `json:"sma_fast"`
	SMASlow      float64 `json:"sma_slow"`
	LastClose    float64 `json:"last_close"`
	SpreadPct    float64 `json:"sma_spread_pct"`
	ExtensionPct float64 `json:"price_extension_pct"`

	// Slope of the slow SMA over the trailing month, in percent.
	SlowSlopePct float64 `json:"sma_slow_slope_pct"`
	// Extension one month ago, used to detect reversion from an extended state.
	PrevExtensionPct float64 `json:"prev_extension_pct"`

	CrossDirection  string    `json:"cross_direction"` // "golden", "death" or "none"
	CrossDate       time.Time `json:"cross_date"`
	WeeksSinceCross int       `json:"weeks_since_cross"`
}

// CrossDirection values.
const (
	CrossGolden = "golden"
	CrossDeath  = "death"
	CrossNone   = "none"
)

// DarvasStatus enumerates the box state machine states.
type DarvasStatus string

const (
	DarvasForming    DarvasStatus = "forming"
	DarvasConfirmed  DarvasStatus = "confirmed"
	DarvasWithin     DarvasStatus = "within"
	DarvasBrokenUp   DarvasStatus = "broken_up"
	DarvasBrokenDown DarvasStatus = "broken_down"
)

// DarvasBox is the most recent box reported by the detector. Top and Bottom
// are nil while the box has not formed.
type DarvasBox struct {
	Top    *float64     `json:"top,omitempty"`
	Bottom *float64     `json:"bottom,omitempty"`
	Status DarvasStatus `json:"status"`
}

// ConsolidationState is recomputed each scan from the trailing window.
type ConsolidationState struct {
	WindowDays   int     `json:"window_days"`
	ATRRatio     float64 `json:"atr_ratio"`
	RangePct     float64 `json:"range_pct"`
	IsCompressed bool    `json:"is_compressed"`
}

// StageClassification labels where a ticker sits in the market cycle.
type StageClassification string

const (
	StageUnknown       StageClassification = "Unknown"
	Stage1Basing       StageClassification = "Stage 1 - Basing"
	Stage1To2          StageClassification = "Stage 1-2 Transition"
	StageEarly2        StageClassification = "Early Stage 2"
	StageMid2          StageClassification = "Mid Stage 2"
	StageLate2         StageClassification = "Late Stage 2"
	Stage3Topping      StageClassification = "Stage 3 - Topping"
	Stage4Declining    StageClassification = "Stage 4 - Declining"
)

// Stage2Analysis is the derived assessment attached to stage-2 family results.
type Stage2Analysis struct {
	Phase                       string     `json:"phase"`
	GoldenCrossDate             *time.Time `json:"golden_cross_date,omitempty"`
	WeeksSinceStage2Entry       int        `json:"weeks_since_stage_2_entry"`
	SMASpreadPct                float64    `json:"sma_spread_pct"`
	PriceExtensionFromSMA150Pct float64    `json:"price_extension_from_sma150_pct"`
	Assessment                  string     `json:"assessment"`
}

// TechnicalSnapshot bundles everything the deterministic side computed for a
// ticker. It is built before the external call and never depends on it.
type TechnicalSnapshot struct {
	Ticker        string              `json:"ticker"`
	Metrics       SeriesMetrics       `json:"metrics"`
	Stage         StageClassification `json:"stage_classification"`
	Stage2        *Stage2Analysis     `json:"stage_2_analysis,omitempty"`
	DarvasBox     DarvasBox           `json:"darvas_box"`
	Consolidation ConsolidationState  `json:"consolidation"`
	Weekly        WeeklySummary       `json:"weekly_summary"`
}
