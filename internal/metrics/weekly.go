package metrics

import (
	"fmt"
	"math"

	"stage-scanner/internal/model"
)

type weekBar struct {
	close  float64
	volume int64
}

// Weekly computes the weekly summary stats the classifier prompt receives.
// Works best-effort on short series instead of failing.
func Weekly(series model.PriceSeries) model.WeeklySummary {
	if len(series) == 0 {
		return model.WeeklySummary{FourWeekTrend: "Insufficient data"}
	}

	weeks := resampleWeekly(series)
	yearly := series.TrailingYear()

	latest := series.Last().Close
	high52, low52 := math.Inf(-1), math.Inf(1)
	for _, p := range yearly {
		high52 = math.Max(high52, p.High)
		low52 = math.Min(low52, p.Low)
	}

	summary := model.WeeklySummary{
		LatestClose:   round2(latest),
		High52w:       round2(high52),
		Low52w:        round2(low52),
		FourWeekTrend: "Insufficient data",
	}
	if high52 > 0 {
		summary.DistanceFrom52wHigh = fmt.Sprintf("%.1f%%", (1-latest/high52)*100)
	}
	if low52 > 0 {
		summary.DistanceFrom52wLow = fmt.Sprintf("%.1f%%", (latest/low52-1)*100)
	}

	// 20-week average volume.
	start := len(weeks) - 20
	if start < 0 {
		start = 0
	}
	if len(weeks) > start {
		var total int64
		for _, w := range weeks[start:] {
			total += w.volume
		}
		summary.AvgWeeklyVolume = total / int64(len(weeks)-start)
	}

	// 4-week trend: latest close against the weekly close four weeks back.
	if len(weeks) >= 5 {
		ref := weeks[len(weeks)-5].close
		if latest > ref {
			summary.FourWeekTrend = "Up"
		} else {
			summary.FourWeekTrend = "Down"
		}
	}

	return summary
}

// resampleWeekly buckets daily bars into ISO weeks, keeping the last close
// and the summed volume per week.
func resampleWeekly(series model.PriceSeries) []weekBar {
	var weeks []weekBar
	lastYear, lastWeek := -1, -1
	for _, p := range series {
		y, w := p.Date.ISOWeek()
		if y != lastYear || w != lastWeek {
			weeks = append(weeks, weekBar{})
			lastYear, lastWeek = y, w
		}
		cur := &weeks[len(weeks)-1]
		cur.close = p.Close
		cur.volume += p.Volume
	}
	return weeks
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
