package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"stage-scanner/internal/analyzer"
	"stage-scanner/internal/batch"
	"stage-scanner/internal/charts"
	"stage-scanner/internal/config"
	"stage-scanner/internal/model"
)

type stubFetcher struct {
	series map[string]model.PriceSeries
}

func (f *stubFetcher) FetchSeries(ctx context.Context, symbol, lookback string) (model.PriceSeries, error) {
	if series, ok := f.series[symbol]; ok {
		return series, nil
	}
	return nil, fmt.Errorf("no data for %s", symbol)
}

type stubEnricher struct{}

func (stubEnricher) Enrich(ctx context.Context, ticker string) model.Enrichment {
	return model.Enrichment{Sector: "Technology", EarningsProximity: "N/A"}
}

type stubRenderer struct{}

func (stubRenderer) Render(ticker string, series model.PriceSeries) (charts.Artifacts, error) {
	return charts.Artifacts{}, nil
}

type stubClassifier struct {
	verdicts map[string]*model.ExternalVerdict
	errs     map[string]error
}

func (c *stubClassifier) Classify(ctx context.Context, req analyzer.Request) (*model.ExternalVerdict, error) {
	if err, ok := c.errs[req.Ticker]; ok {
		return nil, err
	}
	if v, ok := c.verdicts[req.Ticker]; ok {
		return v, nil
	}
	return nil, errors.New("unexpected ticker")
}

func trendSeries(length int) model.PriceSeries {
	start := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	series := make(model.PriceSeries, length)
	for i := range series {
		price := 100 + float64(i)*0.2
		series[i] = model.PricePoint{
			Date:   start.AddDate(0, 0, i),
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 1000,
		}
	}
	return series
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Data.Lookback = "5y"
	cfg.Scanner.SMAFastPeriod = 50
	cfg.Scanner.SMASlowPeriod = 150
	cfg.Scanner.CrossRecencyWeeks = 6
	cfg.Scanner.EarlySpreadMax = 8
	cfg.Scanner.EarlyExtensionMin = 5
	cfg.Scanner.EarlyExtensionMax = 15
	cfg.Scanner.MidSpreadMin = 8
	cfg.Scanner.MidSpreadMax = 15
	cfg.Scanner.LateExtensionPct = 15
	cfg.Scanner.LateSpreadPct = 10
	cfg.Scanner.TransitionProximityPct = 5
	cfg.Scanner.BasingExtensionPct = 5
	cfg.Scanner.FlatSlopePct = 0.5
	cfg.Scanner.DarvasBoxWindow = 3
	cfg.Scanner.ATRWindow = 20
	cfg.Scanner.ATRBaselineMultiple = 3
	cfg.Scanner.ATRCompressionRatio = 0.5
	cfg.Scanner.RangeCeilingPct = 5
	cfg.Scanner.MinRiskReward = 3
	cfg.Scanner.EarningsBlackoutDays = 7
	cfg.Scanner.PullbackProximityPct = 3
	return cfg
}

func newTestService(fetcher *stubFetcher, classifier *stubClassifier) *Service {
	return New(testConfig(), Deps{
		Fetcher:    fetcher,
		Enricher:   stubEnricher{},
		Renderer:   stubRenderer{},
		Classifier: classifier,
		Batch:      batch.New(batch.Options{ServiceRetries: 0}, zerolog.Nop()),
	}, zerolog.Nop())
}

func TestScanSkipsUnfetchableTicker(t *testing.T) {
	fetcher := &stubFetcher{series: map[string]model.PriceSeries{
		"AAPL": trendSeries(200),
	}}
	classifier := &stubClassifier{verdicts: map[string]*model.ExternalVerdict{
		"AAPL": {
			RawBullishSignal: false,
			ConfidenceScore:  40,
			MarketStructure:  "Uptrend",
			Reasoning:        "Steady advance",
		},
	}}
	svc := newTestService(fetcher, classifier)

	report, err := svc.Scan(context.Background(), []WatchlistEntry{
		{Ticker: "AAPL"},
		{Ticker: "GONE"},
	})
	if err != nil {
		t.Fatalf("不可取数的股票不应导致整轮失败: %v", err)
	}

	if report.Skipped != 1 || report.Processed != 1 {
		t.Fatalf("计数不正确: %+v", report)
	}

	var skipped *model.ScanResult
	for i := range report.Results {
		if report.Results[i].Ticker == "GONE" {
			skipped = &report.Results[i]
		}
	}
	if skipped == nil {
		t.Fatal("被跳过的股票应出现在结果中")
	}
	if skipped.Status != model.StatusSkipped || skipped.StatusReason == "" {
		t.Fatalf("跳过结果应带状态和原因: %+v", skipped)
	}
	if skipped.WatchlistTier != model.TierNotYet {
		t.Fatalf("跳过结果应为 Not Yet, 实际 %s", skipped.WatchlistTier)
	}
}

func TestScanDegradesOnClassifierFailure(t *testing.T) {
	fetcher := &stubFetcher{series: map[string]model.PriceSeries{
		"AAPL": trendSeries(200),
	}}
	classifier := &stubClassifier{errs: map[string]error{
		"AAPL": errors.New("schema rejected"),
	}}
	svc := newTestService(fetcher, classifier)

	report, err := svc.Scan(context.Background(), []WatchlistEntry{{Ticker: "AAPL"}})
	if err != nil {
		t.Fatalf("外部分析失败不应导致整轮失败: %v", err)
	}
	if report.Failed != 1 || report.Succeeded != 0 {
		t.Fatalf("计数不正确: %+v", report)
	}

	res := report.Results[len(report.Results)-1]
	if res.Status != model.StatusDegraded {
		t.Fatalf("应降级为 degraded, 实际 %s", res.Status)
	}
	if res.StageClassification == "" {
		t.Fatal("降级结果仍应保留确定性阶段分类")
	}
	if res.BullishSignal {
		t.Fatal("无外部结论不应看多")
	}
	if res.WatchlistTier != model.TierNotYet {
		t.Fatalf("降级结果应标记 Not Yet, 实际 %s", res.WatchlistTier)
	}
	if res.Actionable() {
		t.Fatal("降级结果不应进入推送名单")
	}
}

func TestScanCompleteResult(t *testing.T) {
	fetcher := &stubFetcher{series: map[string]model.PriceSeries{
		"NVDA": trendSeries(200),
	}}
	classifier := &stubClassifier{verdicts: map[string]*model.ExternalVerdict{
		"NVDA": {
			RawBullishSignal: true,
			ConfidenceScore:  88,
			MarketStructure:  "Uptrend",
			TechnicalTriggers: model.TechnicalTriggers{
				EntryZone: "140", StopLoss: "135", Target1: "160",
			},
			VolumeConfirmation: true,
			Reasoning:          "Breakout with volume",
		},
	}}
	svc := newTestService(fetcher, classifier)

	report, err := svc.Scan(context.Background(), []WatchlistEntry{{Ticker: "NVDA"}})
	if err != nil {
		t.Fatalf("扫描不应报错: %v", err)
	}
	if report.Succeeded != 1 {
		t.Fatalf("应成功 1 项, 实际 %+v", report)
	}

	res := report.Results[0]
	if res.Status != model.StatusComplete {
		t.Fatalf("状态应为 complete, 实际 %s", res.Status)
	}
	if res.ConfidenceScore != 88 || res.MarketStructure != "Uptrend" {
		t.Fatalf("外部字段未透传: %+v", res)
	}
	if res.RiskReward == nil || *res.RiskReward != 4 {
		t.Fatalf("盈亏比应为 4, 实际 %v", res.RiskReward)
	}
	if res.Enrichment.Sector != "Technology" {
		t.Fatalf("补充数据未透传: %+v", res.Enrichment)
	}
	if res.AnalyzedAt.IsZero() {
		t.Fatal("应记录分析时间")
	}
}

func TestScanEmptyWatchlist(t *testing.T) {
	svc := newTestService(&stubFetcher{}, &stubClassifier{})
	if _, err := svc.Scan(context.Background(), nil); err == nil {
		t.Fatal("空清单应报错")
	}
}
