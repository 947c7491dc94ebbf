package stage

import (
	"fmt"
	"math"

	"stage-scanner/internal/model"
)

// Config holds the decision-table thresholds. All range checks use an
// inclusive lower bound and exclusive upper bound.
type Config struct {
	// CrossRecencyWeeks bounds how recent a golden cross must be to count as
	// "newly crossed" (typical range 4-8).
	CrossRecencyWeeks int

	EarlySpreadMin    float64
	EarlySpreadMax    float64
	EarlyExtensionMin float64
	EarlyExtensionMax float64

	MidSpreadMin float64
	MidSpreadMax float64

	// LateExtensionPct / LateSpreadPct mark the over-extended regime
	// (strictly greater-than).
	LateExtensionPct float64
	LateSpreadPct    float64

	// TransitionProximityPct is how far below the slow SMA price may sit
	// while still counting as an approach from below.
	TransitionProximityPct float64

	// BasingExtensionPct bounds |extension| for a basing range.
	BasingExtensionPct float64
	// FlatSlopePct is the slow-SMA monthly slope below which the average
	// counts as flat.
	FlatSlopePct float64
}

// DefaultConfig returns the thresholds from the stage-analysis playbook.
func DefaultConfig() Config {
	return Config{
		CrossRecencyWeeks:      6,
		EarlySpreadMin:         0,
		EarlySpreadMax:         8,
		EarlyExtensionMin:      5,
		EarlyExtensionMax:      15,
		MidSpreadMin:           8,
		MidSpreadMax:           15,
		LateExtensionPct:       15,
		LateSpreadPct:          10,
		TransitionProximityPct: 5,
		BasingExtensionPct:     5,
		FlatSlopePct:           0.5,
	}
}

// Classify maps series metrics to a stage label. The table is evaluated in
// order and the first match wins, so the narrow Early Stage 2 window takes
// precedence over the broader classifications it overlaps with.
func Classify(m model.SeriesMetrics, cfg Config) (model.StageClassification, *model.Stage2Analysis) {
	if !m.Available {
		return model.StageUnknown, nil
	}

	newlyCrossed := m.CrossDirection == model.CrossGolden && m.WeeksSinceCross <= cfg.CrossRecencyWeeks

	var stage model.StageClassification
	switch {
	case newlyCrossed &&
		inRange(m.SpreadPct, cfg.EarlySpreadMin, cfg.EarlySpreadMax) &&
		inRange(m.ExtensionPct, cfg.EarlyExtensionMin, cfg.EarlyExtensionMax):
		stage = model.StageEarly2

	case m.LastClose > m.SMASlow && m.SMAFast > m.SMASlow && !newlyCrossed &&
		inRange(m.SpreadPct, cfg.MidSpreadMin, cfg.MidSpreadMax) &&
		m.ExtensionPct < cfg.LateExtensionPct:
		stage = model.StageMid2

	case m.ExtensionPct > cfg.LateExtensionPct || m.SpreadPct > cfg.LateSpreadPct:
		stage = model.StageLate2

	case m.SMAFast < m.SMASlow &&
		m.ExtensionPct >= -cfg.TransitionProximityPct &&
		m.ExtensionPct > m.PrevExtensionPct:
		stage = model.Stage1To2

	case m.SlowSlopePct <= cfg.FlatSlopePct && math.Abs(m.ExtensionPct) < cfg.BasingExtensionPct:
		stage = model.Stage1Basing

	case m.LastClose < m.SMASlow && m.SlowSlopePct < -cfg.FlatSlopePct:
		stage = model.Stage4Declining

	case m.PrevExtensionPct > cfg.LateExtensionPct && m.ExtensionPct < m.PrevExtensionPct:
		stage = model.Stage3Topping

	default:
		stage = model.StageUnknown
	}

	return stage, analysisFor(stage, m)
}

// analysisFor builds the stage_2_analysis record for stage-2 family results.
func analysisFor(stage model.StageClassification, m model.SeriesMetrics) *model.Stage2Analysis {
	var phase string
	switch stage {
	case model.Stage1To2:
		phase = "Transition"
	case model.StageEarly2:
		phase = "Early"
	case model.StageMid2:
		phase = "Mid"
	case model.StageLate2:
		phase = "Late"
	default:
		return nil
	}

	a := &model.Stage2Analysis{
		Phase:                       phase,
		SMASpreadPct:                m.SpreadPct,
		PriceExtensionFromSMA150Pct: m.ExtensionPct,
	}
	if m.CrossDirection == model.CrossGolden {
		crossDate := m.CrossDate
		a.GoldenCrossDate = &crossDate
		a.WeeksSinceStage2Entry = m.WeeksSinceCross
	}
	a.Assessment = assess(phase, m)
	return a
}

func assess(phase string, m model.SeriesMetrics) string {
	switch phase {
	case "Transition":
		return fmt.Sprintf("Price reclaiming the 150-day SMA from below (extension %.1f%%); fast SMA has not yet crossed", m.ExtensionPct)
	case "Early":
		return fmt.Sprintf("Golden cross %d week(s) ago with spread %.1f%% and extension %.1f%%; early advance intact", m.WeeksSinceCross, m.SpreadPct, m.ExtensionPct)
	case "Mid":
		return fmt.Sprintf("Established advance, spread %.1f%%; watch for low-volume pullbacks to the fast SMA", m.SpreadPct)
	default:
		return fmt.Sprintf("Over-extended (extension %.1f%%, spread %.1f%%); chasing here is poor risk/reward", m.ExtensionPct, m.SpreadPct)
	}
}

// inRange reports lo <= v < hi.
func inRange(v, lo, hi float64) bool {
	return v >= lo && v < hi
}
