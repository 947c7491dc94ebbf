package model

import (
	"errors"
	"time"
)

// PricePoint is a single daily OHLCV observation. Immutable once fetched.
type PricePoint struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceSeries is a chronologically ordered, date-unique sequence of daily bars.
type PriceSeries []PricePoint

var (
	// ErrEmptySeries indicates a series without any bars.
	ErrEmptySeries = errors.New("model: empty price series")
	// ErrUnorderedSeries indicates dates out of order or duplicated.
	ErrUnorderedSeries = errors.New("model: series dates must be strictly increasing")
)

// Validate checks the strictly-increasing, date-unique invariant.
func (s PriceSeries) Validate() error {
	if len(s) == 0 {
		return ErrEmptySeries
	}
	for i := 1; i < len(s); i++ {
		if !s[i].Date.After(s[i-1].Date) {
			return ErrUnorderedSeries
		}
	}
	return nil
}

// Closes returns the close column.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, p := range s {
		closes[i] = p.Close
	}
	return closes
}

// Last returns the most recent bar. The series must be non-empty.
func (s PriceSeries) Last() PricePoint {
	return s[len(s)-1]
}

// TrailingYear returns the bars covering the last 365 calendar days.
func (s PriceSeries) TrailingYear() PriceSeries {
	if len(s) == 0 {
		return s
	}
	cutoff := s.Last().Date.AddDate(-1, 0, 0)
	for i, p := range s {
		if !p.Date.Before(cutoff) {
			return s[i:]
		}
	}
	return s
}

// WeeklySummary holds the classifier-facing weekly statistics.
type WeeklySummary struct {
	LatestClose          float64 `json:"latest_close"`
	AvgWeeklyVolume      int64   `json:"avg_weekly_volume"`
	FourWeekTrend        string  `json:"4_week_trend"`
	DistanceFrom52wHigh  string  `json:"distance_from_52w_high"`
	DistanceFrom52wLow   string  `json:"distance_from_52w_low"`
	High52w              float64 `json:"52w_high"`
	Low52w               float64 `json:"52w_low"`
}
