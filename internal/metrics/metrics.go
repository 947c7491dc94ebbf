package metrics

import (
	"stage-scanner/internal/model"
)

// Config sets the moving-average periods. Values come from configuration,
// never package-level state, so Compute stays a pure function.
type Config struct {
	FastPeriod int
	SlowPeriod int
}

// DefaultConfig mirrors the classic Weinstein setup: 50/150 daily SMAs.
func DefaultConfig() Config {
	return Config{FastPeriod: 50, SlowPeriod: 150}
}

// slopeLookback is the number of sessions used for the slow-SMA slope and
// the previous-extension reading (roughly one trading month).
const slopeLookback = 21

// Compute derives SeriesMetrics from a price series. If the series is shorter
// than the slow period the result is marked unavailable and no numeric field
// is populated.
func Compute(series model.PriceSeries, cfg Config) model.SeriesMetrics {
	if cfg.SlowPeriod <= 0 || cfg.FastPeriod <= 0 || len(series) < cfg.SlowPeriod {
		return model.SeriesMetrics{Available: false, CrossDirection: model.CrossNone}
	}

	closes := series.Closes()
	n := len(closes)

	// diff[i] = smaFast - smaSlow at bar i, defined from slowPeriod-1 onward.
	diff := make([]float64, n)
	smaFast := SMASeries(closes, cfg.FastPeriod)
	smaSlow := SMASeries(closes, cfg.SlowPeriod)
	for i := cfg.SlowPeriod - 1; i < n; i++ {
		diff[i] = smaFast[i] - smaSlow[i]
	}

	last := n - 1
	m := model.SeriesMetrics{
		Available:      true,
		SMAFast:        smaFast[last],
		SMASlow:        smaSlow[last],
		LastClose:      closes[last],
		CrossDirection: model.CrossNone,
	}
	m.SpreadPct = (m.SMAFast - m.SMASlow) / m.SMASlow * 100
	m.ExtensionPct = (m.LastClose - m.SMASlow) / m.SMASlow * 100

	if prev := last - slopeLookback; prev >= cfg.SlowPeriod-1 {
		m.SlowSlopePct = (smaSlow[last] - smaSlow[prev]) / smaSlow[prev] * 100
		m.PrevExtensionPct = (closes[prev] - smaSlow[prev]) / smaSlow[prev] * 100
	}

	// Most recent crossover: scan backward for a sign change in (fast - slow).
	for i := last; i > cfg.SlowPeriod-1; i-- {
		if sign(diff[i]) != 0 && sign(diff[i]) != sign(diff[i-1]) {
			if diff[i] > 0 {
				m.CrossDirection = model.CrossGolden
			} else {
				m.CrossDirection = model.CrossDeath
			}
			m.CrossDate = series[i].Date
			m.WeeksSinceCross = int(series[last].Date.Sub(series[i].Date).Hours() / 24 / 7)
			break
		}
	}

	return m
}

// SMASeries returns the trailing simple moving average; entries before
// period-1 are zero and must not be read.
func SMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
