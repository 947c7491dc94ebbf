package patterns

import (
	"math"

	"stage-scanner/internal/model"
)

// ConsolidationConfig tunes the volatility-compression detector. Thresholds
// are configuration, not constants, so they can be tuned without a code
// change.
type ConsolidationConfig struct {
	// Window is the trailing ATR/range window in sessions.
	Window int
	// BaselineMultiple sets the baseline ATR lookback as a multiple of Window.
	BaselineMultiple int
	// CompressionRatio is the atr_ratio below which volatility counts as
	// compressed.
	CompressionRatio float64
	// RangeCeilingPct is the maximum high-low range (percent of price) for a
	// compressed window.
	RangeCeilingPct float64
}

// DefaultConsolidationConfig matches the standard 20-session setup.
func DefaultConsolidationConfig() ConsolidationConfig {
	return ConsolidationConfig{
		Window:           20,
		BaselineMultiple: 3,
		CompressionRatio: 0.5,
		RangeCeilingPct:  5,
	}
}

// DetectConsolidation computes the trailing ATR ratio and range of the
// series. It shrinks the window to whatever history exists rather than
// failing; with fewer than two bars the state is empty and not compressed.
func DetectConsolidation(series model.PriceSeries, cfg ConsolidationConfig) model.ConsolidationState {
	if cfg.Window <= 0 {
		cfg.Window = 20
	}
	if cfg.BaselineMultiple <= 1 {
		cfg.BaselineMultiple = 3
	}
	if len(series) < 2 {
		return model.ConsolidationState{}
	}

	ranges := trueRanges(series)

	window := cfg.Window
	if window > len(ranges) {
		window = len(ranges)
	}
	current := mean(ranges[len(ranges)-window:])

	baselineWindow := cfg.Window * cfg.BaselineMultiple
	if baselineWindow > len(ranges) {
		baselineWindow = len(ranges)
	}
	baseline := mean(ranges[len(ranges)-baselineWindow:])

	state := model.ConsolidationState{WindowDays: window}
	if baseline > 0 {
		state.ATRRatio = current / baseline
	}

	high, low := math.Inf(-1), math.Inf(1)
	for _, bar := range series[len(series)-window:] {
		high = math.Max(high, bar.High)
		low = math.Min(low, bar.Low)
	}
	if close := series.Last().Close; close > 0 {
		state.RangePct = (high - low) / close * 100
	}

	state.IsCompressed = state.ATRRatio < cfg.CompressionRatio && state.RangePct < cfg.RangeCeilingPct
	return state
}

// trueRanges returns TR per bar from the second bar onward: the greatest of
// high-low, |high-prevClose| and |low-prevClose|.
func trueRanges(series model.PriceSeries) []float64 {
	out := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		prevClose := series[i-1].Close
		tr := series[i].High - series[i].Low
		tr = math.Max(tr, math.Abs(series[i].High-prevClose))
		tr = math.Max(tr, math.Abs(series[i].Low-prevClose))
		out = append(out, tr)
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
