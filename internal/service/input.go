package service

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// WatchlistEntry identifies one instrument to scan.
type WatchlistEntry struct {
	Ticker   string
	Exchange string
}

// Symbol returns the data-source symbol, suffixed with the exchange when set.
func (e WatchlistEntry) Symbol() string {
	if e.Exchange == "" {
		return e.Ticker
	}
	return e.Ticker + "." + e.Exchange
}

// ReadWatchlist parses a CSV file with header columns "ticker" and
// "exchange". Rows without a ticker are ignored.
func ReadWatchlist(path string) ([]WatchlistEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open watchlist: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse watchlist: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("watchlist %s is empty", path)
	}

	tickerCol, exchangeCol := -1, -1
	for i, name := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "ticker":
			tickerCol = i
		case "exchange":
			exchangeCol = i
		}
	}
	if tickerCol < 0 {
		return nil, fmt.Errorf("watchlist %s missing ticker column", path)
	}

	entries := make([]WatchlistEntry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if tickerCol >= len(row) {
			continue
		}
		ticker := strings.TrimSpace(row[tickerCol])
		if ticker == "" {
			continue
		}
		entry := WatchlistEntry{Ticker: ticker}
		if exchangeCol >= 0 && exchangeCol < len(row) {
			entry.Exchange = strings.TrimSpace(row[exchangeCol])
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
