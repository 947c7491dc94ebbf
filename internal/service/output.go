package service

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"stage-scanner/internal/model"
)

// WriteResults serialises scan results to a JSON file.
func WriteResults(path string, results []model.ScanResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}

var tierOrder = []model.WatchlistTier{model.TierReadyNow, model.TierSettingUp, model.TierNotYet}

// RenderSummary prints the tier-grouped scan summary.
func RenderSummary(w io.Writer, results []model.ScanResult) {
	groups := make(map[model.WatchlistTier][]model.ScanResult, len(tierOrder))
	for _, r := range results {
		tier := r.WatchlistTier
		if tier != model.TierReadyNow && tier != model.TierSettingUp {
			tier = model.TierNotYet
		}
		groups[tier] = append(groups[tier], r)
	}

	rule := strings.Repeat("=", 70)
	fmt.Fprintf(w, "%s\n  SCAN RESULTS\n%s\n", rule, rule)

	for _, tier := range tierOrder {
		group := groups[tier]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n  %s  (%d stocks)\n  %s\n", strings.ToUpper(string(tier)), len(group), strings.Repeat("-", 66))
		for _, r := range group {
			writeResultLines(w, r)
		}
	}

	bullish := 0
	for _, r := range results {
		if r.BullishSignal {
			bullish++
		}
	}
	fmt.Fprintf(w, "%s\n", rule)
	fmt.Fprintf(w, "  Total: %d/%d bullish signals\n", bullish, len(results))
	fmt.Fprintf(w, "  Ready Now: %d | Setting Up: %d | Not Yet: %d\n",
		len(groups[model.TierReadyNow]), len(groups[model.TierSettingUp]), len(groups[model.TierNotYet]))
	fmt.Fprintf(w, "%s\n", rule)
}

func writeResultLines(w io.Writer, r model.ScanResult) {
	signal := "---"
	if r.BullishSignal {
		signal = "BULLISH"
	}
	fmt.Fprintf(w, "  %-8s %8s  conf=%3d  %s\n", r.Ticker, signal, r.ConfidenceScore, valueOr(r.MarketStructure, "N/A"))

	if r.Status != "" && r.Status != model.StatusComplete {
		fmt.Fprintf(w, "           status: %s (%s)\n", r.Status, valueOr(r.StatusReason, "no reason"))
	}

	fmt.Fprintf(w, "           stage: %s | sector: %s | earnings: %s\n",
		r.StageClassification,
		valueOr(r.Enrichment.Sector, "N/A"),
		valueOr(r.Enrichment.EarningsProximity, "N/A"))

	if r.DarvasBox.Status != "" && r.DarvasBox.Top != nil {
		fmt.Fprintf(w, "           darvas: %s", r.DarvasBox.Status)
		if r.DarvasBox.Bottom != nil {
			fmt.Fprintf(w, " [%.2f - %.2f]", *r.DarvasBox.Bottom, *r.DarvasBox.Top)
		}
		fmt.Fprintln(w)
	}

	t := r.TechnicalTriggers
	if t.EntryZone != "" || t.StopLoss != "" || t.Target1 != "" {
		fmt.Fprintf(w, "           entry: %s  stop: %s  target: %s", t.EntryZone, t.StopLoss, t.Target1)
		if r.RiskReward != nil {
			fmt.Fprintf(w, "  r/r: %.2f", *r.RiskReward)
		}
		fmt.Fprintln(w)
	}

	if r.Reasoning != "" {
		fmt.Fprintf(w, "           %s\n", r.Reasoning)
	}
	fmt.Fprintln(w)
}

func valueOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
