package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// TechnicalTriggers are the price levels proposed by the external classifier.
// Values arrive as free-form strings ("102.50", "$98 - $101") and are parsed
// by the tiering policy, never trusted as numbers here.
type TechnicalTriggers struct {
	EntryZone string `json:"entry_zone"`
	StopLoss  string `json:"stop_loss"`
	Target1   string `json:"target_1"`
}

// ExternalVerdict is the structured result of the vision analysis. It is
// untrusted input: callers must run Validate before using it.
type ExternalVerdict struct {
	RawBullishSignal   bool              `json:"bullish_signal"`
	ConfidenceScore    FlexInt           `json:"confidence_score"`
	MarketStructure    string            `json:"market_structure"`
	Patterns           []string          `json:"patterns_detected"`
	TechnicalTriggers  TechnicalTriggers `json:"technical_triggers"`
	VolumeAnalysis     string            `json:"volume_analysis"`
	VolumeConfirmation bool              `json:"volume_confirmation"`
	PullbackBounce     bool              `json:"pullback_bounce"`
	Reasoning          string            `json:"reasoning"`
}

// ErrVerdictInvalid indicates the verdict failed schema validation.
var ErrVerdictInvalid = errors.New("model: external verdict failed validation")

// Validate enforces the required-field checks at the trust boundary.
func (v *ExternalVerdict) Validate() error {
	if v == nil {
		return fmt.Errorf("%w: nil verdict", ErrVerdictInvalid)
	}
	if strings.TrimSpace(v.MarketStructure) == "" {
		return fmt.Errorf("%w: market_structure is required", ErrVerdictInvalid)
	}
	if strings.TrimSpace(v.Reasoning) == "" {
		return fmt.Errorf("%w: reasoning is required", ErrVerdictInvalid)
	}
	if v.ConfidenceScore < 0 || v.ConfidenceScore > 100 {
		return fmt.Errorf("%w: confidence_score %d out of range", ErrVerdictInvalid, v.ConfidenceScore)
	}
	return nil
}

// FlexInt decodes integers that the model sometimes returns quoted ("85").
type FlexInt int

// UnmarshalJSON accepts both 85 and "85".
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("confidence_score: expected number or string, got %s", string(data))
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("confidence_score: %w", err)
	}
	*f = FlexInt(n)
	return nil
}
