package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"stage-scanner/internal/alerting"
	"stage-scanner/internal/analyzer"
	"stage-scanner/internal/batch"
	"stage-scanner/internal/charts"
	"stage-scanner/internal/config"
	"stage-scanner/internal/enrich"
	"stage-scanner/internal/marketdata"
	"stage-scanner/internal/scheduler"
	"stage-scanner/internal/service"
	"stage-scanner/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// ScanOptions configure a single scan command.
type ScanOptions struct {
	WatchlistPath string
	OutputPath    string
	NoNotify      bool
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

func (a *App) newFetcher() *marketdata.Yahoo {
	return marketdata.NewYahoo(marketdata.YahooOptions{
		BaseURL:   a.Config.Data.BaseURL,
		Timeout:   a.Config.Data.RequestTimeout,
		UserAgent: a.Config.Data.UserAgent,
	}, a.Logger)
}

func (a *App) newEnricher() *enrich.Yahoo {
	return enrich.NewYahoo(enrich.YahooOptions{
		BaseURL:   a.Config.Data.BaseURL,
		Timeout:   a.Config.Data.RequestTimeout,
		UserAgent: a.Config.Data.UserAgent,
	}, a.Logger)
}

func (a *App) newAnalyzer(ctx context.Context) (analyzer.Classifier, error) {
	return analyzer.NewGemini(ctx, analyzer.GeminiOptions{
		APIKey:      a.Config.Gemini.APIKey,
		Model:       a.Config.Gemini.Model,
		Temperature: a.Config.Gemini.Temperature,
		Timeout:     a.Config.Gemini.RequestTimeout,
	}, a.Logger)
}

func (a *App) newBatch() *batch.Orchestrator {
	return batch.New(batch.Options{
		MinInterval:      a.Config.Batch.MinInterval,
		RateLimitRetries: a.Config.Batch.RateLimitRetries,
		RateLimitBase:    a.Config.Batch.RateLimitBase,
		ServiceRetries:   a.Config.Batch.ServiceRetries,
		ServiceBackoff:   a.Config.Batch.ServiceBackoff,
		IsRateLimited: func(err error) bool {
			return errors.Is(err, analyzer.ErrRateLimited)
		},
	}, a.Logger)
}

func (a *App) newRenderer() *charts.Renderer {
	return charts.New(charts.Options{
		Dir:       a.Config.Charts.Dir,
		Width:     a.Config.Charts.Width,
		Height:    a.Config.Charts.Height,
		SMAPeriod: a.Config.Scanner.SMASlowPeriod,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if !a.Config.Alerting.Enabled {
		return nil
	}
	cfg := a.Config.Alerting.Discord
	return alerting.NewDiscordNotifier(cfg.WebhookURL, cfg.Timeout, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newService(ctx context.Context, sched *scheduler.Scheduler, store *storage.Store, notifier alerting.Notifier) (*service.Service, error) {
	classifier, err := a.newAnalyzer(ctx)
	if err != nil {
		return nil, fmt.Errorf("create analyzer: %w", err)
	}

	deps := service.Deps{
		Fetcher:    a.newFetcher(),
		Enricher:   a.newEnricher(),
		Renderer:   a.newRenderer(),
		Classifier: classifier,
		Batch:      a.newBatch(),
		Notifier:   notifier,
		Scheduler:  sched,
	}
	if store != nil {
		deps.Runs = store
		deps.Results = store
	}

	return service.New(a.Config, deps, a.Logger), nil
}

// Scan executes a single scan cycle over the watchlist file.
func (a *App) Scan(ctx context.Context, opts ScanOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	entries, err := service.ReadWatchlist(opts.WatchlistPath)
	if err != nil {
		return err
	}
	a.Logger.Info().Int("tickers", len(entries)).Str("watchlist", opts.WatchlistPath).Msg("watchlist loaded")

	if opts.OutputPath != "" {
		a.Config.Output.Path = opts.OutputPath
	}
	if opts.NoNotify {
		a.Config.Alerting.Enabled = false
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	svc, err := a.newService(ctx, nil, store, a.newNotifier())
	if err != nil {
		return err
	}

	report, err := svc.Scan(ctx, entries)
	if err != nil {
		return err
	}
	return svc.Publish(ctx, report)
}

// Run executes the long-running scheduled scanner.
func (a *App) Run(ctx context.Context, opts ScanOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	entries, err := service.ReadWatchlist(opts.WatchlistPath)
	if err != nil {
		return err
	}
	if opts.OutputPath != "" {
		a.Config.Output.Path = opts.OutputPath
	}
	if opts.NoNotify {
		a.Config.Alerting.Enabled = false
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToStart,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	svc, err := a.newService(ctx, sched, store, a.newNotifier())
	if err != nil {
		return err
	}

	a.Logger.Info().Msg("starting scheduled scanner")
	err = svc.Run(ctx, entries)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("scanner terminated with error")
		return err
	}

	a.Logger.Info().Msg("scheduled scanner stopped")
	return nil
}

// Show prints the most recent persisted scan results.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("database.dsn not configured")
	}
	defer closeStore()

	records, err := store.ListRecentResults(ctx, opts.Limit)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("no scan results stored")
		return nil
	}

	for _, rec := range records {
		rr := "n/a"
		if rec.RiskReward != nil {
			rr = rec.RiskReward.StringFixed(2)
		}
		fmt.Printf("%s  %-8s  %-22s  %-10s  conf=%3d  r/r=%-6s  %s\n",
			rec.CreatedAt.Format("2006-01-02 15:04"),
			rec.Ticker,
			rec.Stage,
			rec.Tier,
			rec.ConfidenceScore,
			rr,
			rec.Status,
		)
	}
	return nil
}

// Heatmap fetches and prints the sector heatmap on its own.
func (a *App) Heatmap(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	heatmap := enrich.FetchSectorHeatmap(ctx, a.newFetcher(), a.Logger)
	fmt.Fprintln(os.Stdout, heatmap.Text())
	return nil
}
