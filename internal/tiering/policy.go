package tiering

import (
	"stage-scanner/internal/model"
)

// Config holds the tiering thresholds.
type Config struct {
	// MinRiskReward is the minimum reward/risk ratio for Ready Now.
	MinRiskReward float64
	// EarningsBlackoutDays excludes tickers reporting within this many days.
	EarningsBlackoutDays int
	// PullbackProximityPct is how close (percent) price must sit to the fast
	// SMA to count as a Mid Stage 2 pullback.
	PullbackProximityPct float64
}

// DefaultConfig returns the standard 3:1 reward/risk, 7-day blackout policy.
func DefaultConfig() Config {
	return Config{MinRiskReward: 3, EarningsBlackoutDays: 7, PullbackProximityPct: 3}
}

// Inputs is everything the policy fuses. Verdict is nil when the external
// analysis failed; the policy degrades rather than erroring.
type Inputs struct {
	Stage          model.StageClassification
	Metrics        model.SeriesMetrics
	Verdict        *model.ExternalVerdict
	Darvas         model.DarvasBox
	Consolidation  model.ConsolidationState
	DaysToEarnings *int
}

// Decision is the policy output.
type Decision struct {
	Bullish bool
	Tier    model.WatchlistTier
	// RiskReward is nil when the technical triggers could not be parsed;
	// unknown risk/reward excludes a ticker from Ready Now (fail closed).
	RiskReward *float64
	// Divergence records a disagreement between the external model's raw
	// verdict and the deterministic rule. Diagnostic, never an error.
	Divergence bool
}

// Decide fuses the stage classification with the external verdict. The
// deterministic side always wins: Late Stage 2 is never bullish and never
// Ready Now, whatever the external model claims.
func Decide(in Inputs, cfg Config) Decision {
	d := Decision{Tier: model.TierNotYet}
	if in.Verdict != nil {
		d.RiskReward = RiskReward(in.Verdict.TechnicalTriggers)
	}

	d.Bullish = bullish(in)
	if in.Verdict != nil && in.Verdict.RawBullishSignal != d.Bullish {
		d.Divergence = true
	}

	// Explicit downgrades: Late Stage 2 stays Not Yet, and so does any
	// ticker whose external analysis failed. Setting Up and Ready Now both
	// require a verdict to fuse against.
	if in.Stage == model.StageLate2 || in.Verdict == nil {
		return d
	}

	if readyNow(in, cfg, d) {
		d.Tier = model.TierReadyNow
		return d
	}
	if settingUp(in, cfg) {
		d.Tier = model.TierSettingUp
	}
	return d
}

func bullish(in Inputs) bool {
	if in.Verdict == nil || in.Stage == model.StageLate2 {
		return false
	}
	switch in.Stage {
	case model.StageEarly2, model.Stage1To2:
		if in.Verdict.VolumeConfirmation {
			return true
		}
	}
	switch in.Stage {
	case model.StageEarly2, model.StageMid2:
		if in.Verdict.PullbackBounce {
			return true
		}
	}
	return false
}

func readyNow(in Inputs, cfg Config, d Decision) bool {
	if !d.Bullish {
		return false
	}
	if d.RiskReward == nil || *d.RiskReward < cfg.MinRiskReward {
		return false
	}
	if in.DaysToEarnings != nil && *in.DaysToEarnings >= 0 && *in.DaysToEarnings <= cfg.EarningsBlackoutDays {
		return false
	}
	confirmedBreakout := in.Darvas.Status == model.DarvasBrokenUp
	earlyWithVolume := in.Stage == model.StageEarly2 && in.Verdict != nil && in.Verdict.VolumeConfirmation
	return confirmedBreakout || earlyWithVolume
}

func settingUp(in Inputs, cfg Config) bool {
	switch in.Stage {
	case model.Stage1Basing:
		// Basing with the slow SMA flattening or turning up.
		return in.Metrics.Available && in.Metrics.SlowSlopePct >= 0
	case model.Stage1To2:
		// Transitioning without volume confirmation yet.
		return !in.Verdict.VolumeConfirmation
	case model.StageMid2:
		// Pullback to the fast SMA awaiting bounce confirmation.
		if !in.Metrics.Available || in.Metrics.SMAFast <= 0 {
			return false
		}
		proximity := (in.Metrics.LastClose - in.Metrics.SMAFast) / in.Metrics.SMAFast * 100
		if proximity < 0 {
			proximity = -proximity
		}
		return proximity <= cfg.PullbackProximityPct
	}
	return false
}
