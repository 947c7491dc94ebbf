package tiering

import (
	"strings"

	"github.com/shopspring/decimal"

	"stage-scanner/internal/model"
)

// RiskReward computes reward/risk from the classifier's price triggers:
// reward = target - entry, risk = entry - stop. Returns nil when any field
// is missing or unparseable, or when the levels make no sense (risk <= 0).
func RiskReward(t model.TechnicalTriggers) *float64 {
	entry, ok := parsePrice(t.EntryZone)
	if !ok {
		return nil
	}
	stop, ok := parsePrice(t.StopLoss)
	if !ok {
		return nil
	}
	target, ok := parsePrice(t.Target1)
	if !ok {
		return nil
	}

	risk := entry.Sub(stop)
	if risk.Sign() <= 0 {
		return nil
	}
	reward := target.Sub(entry)
	if reward.Sign() < 0 {
		return nil
	}

	ratio, _ := reward.Div(risk).Round(2).Float64()
	return &ratio
}

// parsePrice accepts "102.50", "$102.50", "98 - 101" and "98 to 101"
// (ranges resolve to their midpoint).
func parsePrice(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " to ", "-")

	if idx := strings.Index(s, "-"); idx > 0 {
		lo, err1 := decimal.NewFromString(strings.TrimSpace(s[:idx]))
		hi, err2 := decimal.NewFromString(strings.TrimSpace(s[idx+1:]))
		if err1 != nil || err2 != nil {
			return decimal.Decimal{}, false
		}
		return lo.Add(hi).Div(decimal.NewFromInt(2)), true
	}

	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return v, true
}
