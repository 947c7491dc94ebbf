package metrics

import (
	"testing"
)

func TestWeeklyEmptySeries(t *testing.T) {
	summary := Weekly(nil)
	if summary.FourWeekTrend != "Insufficient data" {
		t.Fatalf("空序列四周趋势应为 Insufficient data, 实际 %q", summary.FourWeekTrend)
	}
}

func TestWeeklyUpTrend(t *testing.T) {
	// 约十周的上升序列。
	closes := make([]float64, 70)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	series := dailySeries(closes)

	summary := Weekly(series)
	if summary.FourWeekTrend != "Up" {
		t.Fatalf("持续上涨的四周趋势应为 Up, 实际 %q", summary.FourWeekTrend)
	}
	if summary.LatestClose != 169 {
		t.Fatalf("最新收盘应为 169, 实际 %v", summary.LatestClose)
	}
	if summary.High52w != 169 || summary.Low52w != 100 {
		t.Fatalf("52 周高低点不正确: high=%v low=%v", summary.High52w, summary.Low52w)
	}
	if summary.DistanceFrom52wHigh != "0.0%" {
		t.Fatalf("收于高点时距离应为 0.0%%, 实际 %q", summary.DistanceFrom52wHigh)
	}
	if summary.AvgWeeklyVolume <= 0 {
		t.Fatalf("周均量应为正, 实际 %d", summary.AvgWeeklyVolume)
	}
}

func TestWeeklyDownTrend(t *testing.T) {
	closes := make([]float64, 70)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	summary := Weekly(dailySeries(closes))
	if summary.FourWeekTrend != "Down" {
		t.Fatalf("持续下跌的四周趋势应为 Down, 实际 %q", summary.FourWeekTrend)
	}
}
