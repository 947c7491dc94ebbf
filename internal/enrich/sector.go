package enrich

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"stage-scanner/internal/marketdata"
)

// sectorETFs maps the 11 GICS sectors to their SPDR proxies used for the
// heatmap.
var sectorETFs = map[string]string{
	"Technology":             "XLK",
	"Health Care":            "XLV",
	"Financials":             "XLF",
	"Consumer Discretionary": "XLY",
	"Consumer Staples":       "XLP",
	"Energy":                 "XLE",
	"Industrials":            "XLI",
	"Materials":              "XLB",
	"Utilities":              "XLU",
	"Real Estate":            "XLRE",
	"Communication Services": "XLC",
}

// SectorPerformance is one heatmap row.
type SectorPerformance struct {
	Sector      string  `json:"sector"`
	Return1MPct float64 `json:"1m_return"`
}

// Heatmap is the ranked sector performance snapshot. It is populated once
// per run before any per-ticker work begins and read-only afterwards.
type Heatmap struct {
	rows []SectorPerformance
	text string
}

// Rows returns the ranked sector rows.
func (h *Heatmap) Rows() []SectorPerformance { return h.rows }

// Text returns the plain rendering injected into classifier context.
func (h *Heatmap) Text() string { return h.text }

// FetchSectorHeatmap computes 1-month returns for all sector ETFs. Sectors
// whose fetch fails are skipped with a warning rather than failing the run.
func FetchSectorHeatmap(ctx context.Context, fetcher marketdata.Fetcher, logger zerolog.Logger) *Heatmap {
	log := logger.With().Str("component", "sector_heatmap").Logger()

	var rows []SectorPerformance
	for sector, symbol := range sectorETFs {
		series, err := fetcher.FetchSeries(ctx, symbol, "1mo")
		if err != nil || len(series) < 2 {
			log.Warn().Err(err).Str("sector", sector).Str("symbol", symbol).Msg("sector fetch failed, skipping")
			continue
		}
		first, last := series[0].Close, series.Last().Close
		if first <= 0 {
			continue
		}
		rows = append(rows, SectorPerformance{
			Sector:      sector,
			Return1MPct: (last/first - 1) * 100,
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Return1MPct > rows[j].Return1MPct })
	return &Heatmap{rows: rows, text: renderHeatmap(rows)}
}

func renderHeatmap(rows []SectorPerformance) string {
	if len(rows) == 0 {
		return "No sector data available"
	}
	var b strings.Builder
	b.WriteString("Sector Heatmap (1M return):")
	for rank, row := range rows {
		indicator := ""
		if row.Return1MPct > 0 {
			indicator = "+"
		}
		fmt.Fprintf(&b, "\n  %d. %-25s %s%.2f%%", rank+1, row.Sector, indicator, row.Return1MPct)
	}
	return b.String()
}
