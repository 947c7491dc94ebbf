package analyzer

import (
	"errors"
	"strings"
	"testing"
)

const validVerdictJSON = `{
	"bullish_signal": true,
	"confidence_score": 85,
	"market_structure": "Uptrend with higher highs and higher lows",
	"patterns_detected": ["cup and handle"],
	"technical_triggers": {"entry_zone": "$102.50", "stop_loss": "$98", "target_1": "$115"},
	"volume_analysis": "Accumulation on up days",
	"volume_confirmation": true,
	"pullback_bounce": false,
	"reasoning": "Breakout from a six-week base on expanding volume."
}`

func TestParseVerdictSuccess(t *testing.T) {
	v, err := ParseVerdict(validVerdictJSON)
	if err != nil {
		t.Fatalf("合法响应不应报错: %v", err)
	}
	if !v.RawBullishSignal || int(v.ConfidenceScore) != 85 {
		t.Fatalf("字段解析不正确: %+v", v)
	}
	if !v.VolumeConfirmation || v.PullbackBounce {
		t.Fatalf("布尔确认字段解析不正确: %+v", v)
	}
	if v.TechnicalTriggers.EntryZone != "$102.50" {
		t.Fatalf("触发价应保持原文, 实际 %q", v.TechnicalTriggers.EntryZone)
	}
}

func TestParseVerdictQuotedConfidence(t *testing.T) {
	text := strings.Replace(validVerdictJSON, `"confidence_score": 85`, `"confidence_score": "72"`, 1)
	v, err := ParseVerdict(text)
	if err != nil {
		t.Fatalf("带引号的置信度应被接受: %v", err)
	}
	if int(v.ConfidenceScore) != 72 {
		t.Fatalf("置信度应为 72, 实际 %d", v.ConfidenceScore)
	}
}

func TestParseVerdictRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":              "",
		"not json":           "the stock looks bullish",
		"missing structure":  strings.Replace(validVerdictJSON, `"market_structure": "Uptrend with higher highs and higher lows"`, `"market_structure": ""`, 1),
		"missing reasoning":  strings.Replace(validVerdictJSON, `"reasoning": "Breakout from a six-week base on expanding volume."`, `"reasoning": " "`, 1),
		"confidence too big": strings.Replace(validVerdictJSON, `"confidence_score": 85`, `"confidence_score": 150`, 1),
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseVerdict(text); !errors.Is(err, ErrInvalidResponse) {
				t.Fatalf("应返回 ErrInvalidResponse, 实际 %v", err)
			}
		})
	}
}

func TestBuildPromptIncludesTickerAndContext(t *testing.T) {
	prompt := buildPrompt("NVDA", `{"weekly": "data"}`)
	if !strings.Contains(prompt, "NVDA") {
		t.Fatal("提示词应包含 ticker")
	}
	if !strings.Contains(prompt, `{"weekly": "data"}`) {
		t.Fatal("提示词应包含技术上下文")
	}
	for _, field := range []string{"bullish_signal", "confidence_score", "technical_triggers", "volume_confirmation", "pullback_bounce"} {
		if !strings.Contains(prompt, field) {
			t.Fatalf("提示词应声明 %s 字段", field)
		}
	}
}
