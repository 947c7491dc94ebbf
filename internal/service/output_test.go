package service

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stage-scanner/internal/model"
)

func TestWriteResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	results := []model.ScanResult{
		{Ticker: "AAPL", WatchlistTier: model.TierSettingUp, Status: model.StatusComplete},
	}

	if err := WriteResults(path, results); err != nil {
		t.Fatalf("写入结果失败: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取结果失败: %v", err)
	}
	var decoded []model.ScanResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("结果应为合法 JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Ticker != "AAPL" {
		t.Fatalf("回读内容不正确: %+v", decoded)
	}
}

func TestRenderSummaryGroupsByTier(t *testing.T) {
	var b strings.Builder
	RenderSummary(&b, []model.ScanResult{
		{Ticker: "NVDA", WatchlistTier: model.TierReadyNow, BullishSignal: true, ConfidenceScore: 90, MarketStructure: "Uptrend"},
		{Ticker: "MSFT", WatchlistTier: model.TierSettingUp, ConfidenceScore: 60},
		{Ticker: "IBM", WatchlistTier: model.TierNotYet},
		{Ticker: "GONE", Status: model.StatusSkipped, StatusReason: "no data", WatchlistTier: model.TierNotYet},
	})
	out := b.String()

	readyIdx := strings.Index(out, "READY NOW")
	settingIdx := strings.Index(out, "SETTING UP")
	notYetIdx := strings.Index(out, "NOT YET")
	if readyIdx < 0 || settingIdx < 0 || notYetIdx < 0 {
		t.Fatalf("应包含全部分组标题:\n%s", out)
	}
	if !(readyIdx < settingIdx && settingIdx < notYetIdx) {
		t.Fatalf("分组顺序应为 Ready Now -> Setting Up -> Not Yet:\n%s", out)
	}
	if !strings.Contains(out, "Total: 1/4 bullish signals") {
		t.Fatalf("看多计数不正确:\n%s", out)
	}
	if !strings.Contains(out, "no data") {
		t.Fatalf("跳过原因应出现在摘要中:\n%s", out)
	}
}

func TestRenderSummaryEmptyTierOmitted(t *testing.T) {
	var b strings.Builder
	RenderSummary(&b, []model.ScanResult{
		{Ticker: "IBM", WatchlistTier: model.TierNotYet},
	})
	out := b.String()
	if strings.Contains(out, "READY NOW") || strings.Contains(out, "SETTING UP") {
		t.Fatalf("空分组不应出现标题:\n%s", out)
	}
}
