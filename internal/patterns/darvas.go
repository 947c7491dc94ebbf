package patterns

import (
	"stage-scanner/internal/model"
)

// DarvasConfig tunes the box detector.
type DarvasConfig struct {
	// BoxWindow is the number of consecutive sessions price must fail to
	// make a new high before a box top is set, and the number of sessions a
	// top must hold before the box confirms.
	BoxWindow int
}

// DefaultDarvasConfig returns the standard 3-session window.
func DefaultDarvasConfig() DarvasConfig {
	return DarvasConfig{BoxWindow: 3}
}

type darvasState int

const (
	stateSeeking darvasState = iota
	stateForming
	stateWithin
)

// DetectDarvas runs the box state machine over the series in a single
// forward pass and reports the most recent box. Older boxes are superseded,
// not retained. The function is pure: re-running it on the same series
// yields identical state.
func DetectDarvas(series model.PriceSeries, cfg DarvasConfig) model.DarvasBox {
	window := cfg.BoxWindow
	if window <= 0 {
		window = 3
	}
	if len(series) < window {
		return model.DarvasBox{Status: model.DarvasForming}
	}

	report := model.DarvasBox{Status: model.DarvasForming}

	state := stateSeeking
	candidateHigh := series[0].High
	sinceHigh := 0

	var top, bottom float64
	formingSessions := 0

	for _, bar := range series[1:] {
		switch state {
		case stateSeeking:
			if bar.High > candidateHigh {
				candidateHigh = bar.High
				sinceHigh = 0
				continue
			}
			sinceHigh++
			if sinceHigh >= window {
				state = stateForming
				top = candidateHigh
				bottom = bar.Low
				formingSessions = 0
				report = box(top, 0, model.DarvasForming)
				report.Bottom = nil
			}

		case stateForming:
			if bar.High > top {
				// Top invalidated before the box confirmed; start over.
				state = stateSeeking
				candidateHigh = bar.High
				sinceHigh = 0
				report = model.DarvasBox{Status: model.DarvasForming}
				continue
			}
			if bar.Low < bottom {
				bottom = bar.Low
			}
			formingSessions++
			if formingSessions >= window {
				state = stateWithin
				report = box(top, bottom, model.DarvasConfirmed)
			}

		case stateWithin:
			switch {
			case bar.Close > top:
				// Box breakout, bullish. A new box hunt begins immediately.
				report = box(top, bottom, model.DarvasBrokenUp)
				state = stateSeeking
				candidateHigh = bar.High
				sinceHigh = 0
			case bar.Close < bottom:
				report = box(top, bottom, model.DarvasBrokenDown)
				state = stateSeeking
				candidateHigh = bar.High
				sinceHigh = 0
			default:
				report = box(top, bottom, model.DarvasWithin)
			}
		}
	}

	return report
}

func box(top, bottom float64, status model.DarvasStatus) model.DarvasBox {
	t, b := top, bottom
	return model.DarvasBox{Top: &t, Bottom: &b, Status: status}
}
