package storage

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ScanRun summarises one batch execution.
type ScanRun struct {
	ID        int64
	StartedAt time.Time
	Processed int
	Succeeded int
	Failed    int
	Skipped   int
	CreatedAt time.Time
}

// ScanRecord is one persisted per-ticker result. Payload carries the full
// serialized ScanResult; the flattened columns exist for querying.
type ScanRecord struct {
	ID              int64
	RunID           int64
	Ticker          string
	BullishSignal   bool
	ConfidenceScore int
	Stage           string
	Tier            string
	Status          string
	RiskReward      *decimal.Decimal
	Payload         json.RawMessage
	CreatedAt       time.Time
}
