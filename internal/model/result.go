package model

import "time"

// WatchlistTier buckets a result by actionability.
type WatchlistTier string

const (
	TierReadyNow  WatchlistTier = "Ready Now"
	TierSettingUp WatchlistTier = "Setting Up"
	TierNotYet    WatchlistTier = "Not Yet"
)

// Item-level statuses surfaced on ScanResult.
const (
	StatusComplete = "complete"
	StatusDegraded = "degraded"
	StatusSkipped  = "skipped"
)

// Enrichment carries the opaque context strings supplied by collaborators.
// The core passes them through to the classifier and into the result.
type Enrichment struct {
	Sector               string   `json:"sector"`
	SectorPerformance    string   `json:"sector_performance"`
	InstitutionalSummary string   `json:"institutional_summary"`
	EarningsProximity    string   `json:"earnings_proximity"`
	DaysToEarnings       *int     `json:"days_to_earnings,omitempty"`
	NewsHeadlines        []string `json:"news_headlines"`
}

// ScanResult is the final per-ticker aggregate. Immutable after construction.
type ScanResult struct {
	Ticker       string `json:"ticker"`
	Status       string `json:"status"`
	StatusReason string `json:"status_reason,omitempty"`

	BullishSignal    bool    `json:"bullish_signal"`
	ConfidenceScore  int     `json:"confidence_score"`
	SignalDivergence bool    `json:"signal_divergence"`
	RiskReward       *float64 `json:"risk_reward,omitempty"`

	StageClassification StageClassification `json:"stage_classification"`
	Stage2Analysis      *Stage2Analysis     `json:"stage_2_analysis,omitempty"`
	WatchlistTier       WatchlistTier       `json:"watchlist_tier"`

	DarvasBox     DarvasBox          `json:"darvas_box"`
	Consolidation ConsolidationState `json:"consolidation"`
	Weekly        WeeklySummary      `json:"weekly_summary"`

	MarketStructure   string            `json:"market_structure"`
	Patterns          []string          `json:"patterns"`
	TechnicalTriggers TechnicalTriggers `json:"technical_triggers"`
	VolumeAnalysis    string            `json:"volume_analysis"`
	Reasoning         string            `json:"reasoning"`

	Enrichment Enrichment `json:"enrichment"`

	ChartPath5Y string `json:"chart_path"`
	ChartPath1Y string `json:"chart_path_1y"`

	AnalyzedAt time.Time `json:"analyzed_at"`
}

// Actionable reports whether the result belongs in a notification.
func (r ScanResult) Actionable() bool {
	return r.WatchlistTier == TierReadyNow || r.WatchlistTier == TierSettingUp
}
