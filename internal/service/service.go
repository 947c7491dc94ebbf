package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"stage-scanner/internal/alerting"
	"stage-scanner/internal/analyzer"
	"stage-scanner/internal/batch"
	"stage-scanner/internal/charts"
	"stage-scanner/internal/config"
	"stage-scanner/internal/enrich"
	"stage-scanner/internal/marketdata"
	"stage-scanner/internal/metrics"
	"stage-scanner/internal/model"
	"stage-scanner/internal/patterns"
	"stage-scanner/internal/scheduler"
	"stage-scanner/internal/stage"
	"stage-scanner/internal/storage"
	"stage-scanner/internal/tiering"
)

// ChartRenderer produces the chart artifacts the vision classifier consumes.
type ChartRenderer interface {
	Render(ticker string, series model.PriceSeries) (charts.Artifacts, error)
}

// Deps wires the service collaborators. Store fields and Notifier may be nil;
// the corresponding phases are skipped.
type Deps struct {
	Fetcher    marketdata.Fetcher
	Enricher   enrich.Enricher
	Renderer   ChartRenderer
	Classifier analyzer.Classifier
	Batch      *batch.Orchestrator
	Runs       storage.RunStore
	Results    storage.ResultStore
	Notifier   alerting.Notifier
	Scheduler  *scheduler.Scheduler
}

// Service orchestrates the scan pipeline: fetch, deterministic analysis,
// chart rendering, enrichment, batched external classification, tiering,
// persistence and notification.
type Service struct {
	cfg    *config.Config
	deps   Deps
	logger zerolog.Logger
}

// Report summarises one completed scan cycle.
type Report struct {
	StartedAt time.Time
	Processed int
	Succeeded int
	Failed    int
	Skipped   int
	Results   []model.ScanResult
}

// New constructs the scan service.
func New(cfg *config.Config, deps Deps, logger zerolog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		deps:   deps,
		logger: logger.With().Str("component", "service").Logger(),
	}
}

// candidate is the per-ticker working state threaded through the phases.
type candidate struct {
	entry      WatchlistEntry
	snapshot   model.TechnicalSnapshot
	enrichment model.Enrichment
	artifacts  charts.Artifacts
	context    string
	verdict    *model.ExternalVerdict
	verdictErr error
}

// Run executes scan cycles on the configured schedule until ctx is cancelled.
func (s *Service) Run(ctx context.Context, entries []WatchlistEntry) error {
	if s.deps.Scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.deps.Scheduler.Run(ctx, func(ctx context.Context, cycle time.Time) error {
		report, err := s.Scan(ctx, entries)
		if err != nil {
			return err
		}
		return s.Publish(ctx, report)
	})
}

// Scan runs one full cycle over the watchlist and persists the outcome.
// A ticker that cannot be fetched is skipped with a reason; a ticker whose
// external analysis fails is degraded to its deterministic result. Neither
// aborts the cycle.
func (s *Service) Scan(ctx context.Context, entries []WatchlistEntry) (*Report, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("watchlist is empty")
	}

	report := &Report{StartedAt: time.Now().UTC()}
	s.logger.Info().Int("tickers", len(entries)).Msg("scan started")

	heatmap := enrich.FetchSectorHeatmap(ctx, s.deps.Fetcher, s.logger)

	candidates := make([]*candidate, 0, len(entries))
	for _, entry := range entries {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		c, skip := s.prepare(ctx, entry, heatmap)
		if skip != nil {
			report.Results = append(report.Results, *skip)
			report.Skipped++
			continue
		}
		candidates = append(candidates, c)
	}

	if err := s.classify(ctx, candidates); err != nil {
		return report, err
	}

	for _, c := range candidates {
		res := s.assemble(c)
		report.Results = append(report.Results, res)
		report.Processed++
		if res.Status == model.StatusComplete {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}

	if err := s.persist(ctx, report); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist scan results")
	}

	s.logger.Info().
		Int("processed", report.Processed).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Msg("scan complete")
	return report, nil
}

// Publish writes the results file, prints the tier-grouped summary, and
// dispatches notifications for actionable results.
func (s *Service) Publish(ctx context.Context, report *Report) error {
	if path := s.cfg.Output.Path; path != "" {
		if err := WriteResults(path, report.Results); err != nil {
			return err
		}
		s.logger.Info().Str("path", path).Msg("results written")
	}

	RenderSummary(os.Stdout, report.Results)

	if s.cfg.Alerting.Enabled && s.deps.Notifier != nil {
		if err := s.deps.Notifier.Notify(ctx, report.Results); err != nil {
			s.logger.Error().Err(err).Msg("failed to dispatch notifications")
		}
	}
	return nil
}

// prepare runs the deterministic, per-ticker phase. It returns either a
// candidate for classification or a skipped result.
func (s *Service) prepare(ctx context.Context, entry WatchlistEntry, heatmap *enrich.Heatmap) (*candidate, *model.ScanResult) {
	logger := s.logger.With().Str("ticker", entry.Ticker).Logger()

	series, err := s.deps.Fetcher.FetchSeries(ctx, entry.Symbol(), s.cfg.Data.Lookback)
	if err != nil {
		logger.Warn().Err(err).Msg("skipping ticker, fetch failed")
		return nil, &model.ScanResult{
			Ticker:              entry.Ticker,
			Status:              model.StatusSkipped,
			StatusReason:        err.Error(),
			StageClassification: model.StageUnknown,
			WatchlistTier:       model.TierNotYet,
			AnalyzedAt:          time.Now().UTC(),
		}
	}

	c := &candidate{entry: entry}
	c.snapshot = s.snapshot(entry.Ticker, series)

	artifacts, err := s.deps.Renderer.Render(entry.Ticker, series)
	if err != nil {
		// Charts are an input to the external classifier only; the
		// deterministic result survives without them.
		logger.Warn().Err(err).Msg("chart rendering failed")
	} else {
		c.artifacts = artifacts
	}

	c.enrichment = s.deps.Enricher.Enrich(ctx, entry.Ticker)
	enrich.SetSectorPerformance(&c.enrichment, heatmap)

	c.context = buildContext(c.snapshot, c.enrichment, heatmap.Text())
	return c, nil
}

// snapshot computes every deterministic signal for the series.
func (s *Service) snapshot(ticker string, series model.PriceSeries) model.TechnicalSnapshot {
	sc := s.cfg.Scanner

	m := metrics.Compute(series, metrics.Config{
		FastPeriod: sc.SMAFastPeriod,
		SlowPeriod: sc.SMASlowPeriod,
	})

	stageLabel, stage2 := stage.Classify(m, stage.Config{
		CrossRecencyWeeks:      sc.CrossRecencyWeeks,
		EarlySpreadMin:         sc.EarlySpreadMin,
		EarlySpreadMax:         sc.EarlySpreadMax,
		EarlyExtensionMin:      sc.EarlyExtensionMin,
		EarlyExtensionMax:      sc.EarlyExtensionMax,
		MidSpreadMin:           sc.MidSpreadMin,
		MidSpreadMax:           sc.MidSpreadMax,
		LateExtensionPct:       sc.LateExtensionPct,
		LateSpreadPct:          sc.LateSpreadPct,
		TransitionProximityPct: sc.TransitionProximityPct,
		BasingExtensionPct:     sc.BasingExtensionPct,
		FlatSlopePct:           sc.FlatSlopePct,
	})

	return model.TechnicalSnapshot{
		Ticker:  ticker,
		Metrics: m,
		Stage:   stageLabel,
		Stage2:  stage2,
		DarvasBox: patterns.DetectDarvas(series, patterns.DarvasConfig{
			BoxWindow: sc.DarvasBoxWindow,
		}),
		Consolidation: patterns.DetectConsolidation(series, patterns.ConsolidationConfig{
			Window:           sc.ATRWindow,
			BaselineMultiple: sc.ATRBaselineMultiple,
			CompressionRatio: sc.ATRCompressionRatio,
			RangeCeilingPct:  sc.RangeCeilingPct,
		}),
		Weekly: metrics.Weekly(series),
	}
}

// classify submits every candidate to the external model through the batch
// orchestrator. Per-item failures are recorded on the candidate; the batch
// itself only errors on cancellation.
func (s *Service) classify(ctx context.Context, candidates []*candidate) error {
	if len(candidates) == 0 {
		return nil
	}

	items := make([]batch.Item, len(candidates))
	for i, c := range candidates {
		c := c
		items[i] = batch.Item{
			Key: c.entry.Ticker,
			Do: func(ctx context.Context) error {
				verdict, err := s.deps.Classifier.Classify(ctx, analyzer.Request{
					Ticker:  c.entry.Ticker,
					Charts:  loadCharts(c.artifacts),
					Context: c.context,
				})
				if err != nil {
					return err
				}
				c.verdict = verdict
				return nil
			},
		}
	}

	summary, err := s.deps.Batch.Run(ctx, items)
	if err != nil {
		return err
	}

	failed := make(map[string]error, len(summary.Results))
	for _, res := range summary.Results {
		if res.State != batch.StateSucceeded {
			failed[res.Key] = res.Err
		}
	}
	for _, c := range candidates {
		if err, ok := failed[c.entry.Ticker]; ok {
			c.verdict = nil
			c.verdictErr = err
		}
	}
	return nil
}

// assemble fuses the deterministic snapshot and the external verdict into the
// final result.
func (s *Service) assemble(c *candidate) model.ScanResult {
	sc := s.cfg.Scanner
	decision := tiering.Decide(tiering.Inputs{
		Stage:          c.snapshot.Stage,
		Metrics:        c.snapshot.Metrics,
		Verdict:        c.verdict,
		Darvas:         c.snapshot.DarvasBox,
		Consolidation:  c.snapshot.Consolidation,
		DaysToEarnings: c.enrichment.DaysToEarnings,
	}, tiering.Config{
		MinRiskReward:        sc.MinRiskReward,
		EarningsBlackoutDays: sc.EarningsBlackoutDays,
		PullbackProximityPct: sc.PullbackProximityPct,
	})

	if decision.Divergence {
		s.logger.Warn().
			Str("ticker", c.entry.Ticker).
			Str("stage", string(c.snapshot.Stage)).
			Bool("deterministic_bullish", decision.Bullish).
			Msg("external verdict diverges from deterministic signal")
	}

	res := model.ScanResult{
		Ticker:              c.entry.Ticker,
		Status:              model.StatusComplete,
		BullishSignal:       decision.Bullish,
		SignalDivergence:    decision.Divergence,
		RiskReward:          decision.RiskReward,
		StageClassification: c.snapshot.Stage,
		Stage2Analysis:      c.snapshot.Stage2,
		WatchlistTier:       decision.Tier,
		DarvasBox:           c.snapshot.DarvasBox,
		Consolidation:       c.snapshot.Consolidation,
		Weekly:              c.snapshot.Weekly,
		Enrichment:          c.enrichment,
		ChartPath5Y:         c.artifacts.Path5Y,
		ChartPath1Y:         c.artifacts.Path1Y,
		AnalyzedAt:          time.Now().UTC(),
	}

	if c.verdict != nil {
		res.ConfidenceScore = int(c.verdict.ConfidenceScore)
		res.MarketStructure = c.verdict.MarketStructure
		res.Patterns = c.verdict.Patterns
		res.TechnicalTriggers = c.verdict.TechnicalTriggers
		res.VolumeAnalysis = c.verdict.VolumeAnalysis
		res.Reasoning = c.verdict.Reasoning
	} else {
		res.Status = model.StatusDegraded
		if c.verdictErr != nil {
			res.StatusReason = c.verdictErr.Error()
		} else {
			res.StatusReason = "external analysis unavailable"
		}
	}
	return res
}

func (s *Service) persist(ctx context.Context, report *Report) error {
	if s.deps.Runs == nil || s.deps.Results == nil {
		return nil
	}

	run, err := s.deps.Runs.InsertRun(ctx, storage.ScanRun{
		StartedAt: report.StartedAt,
		Processed: report.Processed,
		Succeeded: report.Succeeded,
		Failed:    report.Failed,
		Skipped:   report.Skipped,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotConfigured) {
			return nil
		}
		return err
	}

	for _, res := range report.Results {
		payload, marshalErr := json.Marshal(res)
		if marshalErr != nil {
			return fmt.Errorf("marshal result payload: %w", marshalErr)
		}
		rec := storage.ScanRecord{
			RunID:           run.ID,
			Ticker:          res.Ticker,
			BullishSignal:   res.BullishSignal,
			ConfidenceScore: res.ConfidenceScore,
			Stage:           string(res.StageClassification),
			Tier:            string(res.WatchlistTier),
			Status:          res.Status,
			Payload:         payload,
		}
		if res.RiskReward != nil {
			rr := decimal.NewFromFloat(*res.RiskReward)
			rec.RiskReward = &rr
		}
		if _, err := s.deps.Results.InsertResult(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// analysisContext mirrors the JSON context block handed to the external
// classifier alongside the chart images.
type analysisContext struct {
	TechnicalSummary     model.TechnicalSnapshot `json:"technical_summary"`
	SectorPerformance    string                  `json:"sector_performance"`
	InstitutionalSummary string                  `json:"institutional_summary"`
	EarningsProximity    string                  `json:"earnings_proximity"`
	NewsHeadlines        []string                `json:"news_headlines"`
	SectorHeatmap        string                  `json:"sector_heatmap"`
}

func buildContext(snapshot model.TechnicalSnapshot, e model.Enrichment, heatmap string) string {
	ctx := analysisContext{
		TechnicalSummary:     snapshot,
		SectorPerformance:    e.SectorPerformance,
		InstitutionalSummary: e.InstitutionalSummary,
		EarningsProximity:    e.EarningsProximity,
		NewsHeadlines:        e.NewsHeadlines,
		SectorHeatmap:        heatmap,
	}
	data, err := json.MarshalIndent(ctx, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}

// loadCharts reads the rendered chart files, 5-year context first. A missing
// file is tolerated; the classifier receives whatever rendered.
func loadCharts(artifacts charts.Artifacts) [][]byte {
	blobs := make([][]byte, 0, 2)
	for _, path := range []string{artifacts.Path5Y, artifacts.Path1Y} {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		blobs = append(blobs, data)
	}
	return blobs
}
