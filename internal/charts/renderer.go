package charts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	chart "github.com/wcharczuk/go-chart/v2"

	"stage-scanner/internal/metrics"
	"stage-scanner/internal/model"
)

// Options configure chart rendering.
type Options struct {
	Dir       string
	Width     int
	Height    int
	SMAPeriod int
}

// Renderer writes the chart artifacts the vision classifier consumes: a
// 5-year context chart and a 1-year detail chart, each with close, the slow
// SMA overlay and volume on a secondary axis.
type Renderer struct {
	opts   Options
	logger zerolog.Logger
}

// Artifacts are the rendered chart file paths.
type Artifacts struct {
	Path5Y string
	Path1Y string
}

// New constructs a renderer.
func New(opts Options, logger zerolog.Logger) *Renderer {
	if opts.Width <= 0 {
		opts.Width = 1280
	}
	if opts.Height <= 0 {
		opts.Height = 720
	}
	if opts.SMAPeriod <= 0 {
		opts.SMAPeriod = 150
	}
	if opts.Dir == "" {
		opts.Dir = "charts"
	}
	return &Renderer{opts: opts, logger: logger.With().Str("component", "chart_renderer").Logger()}
}

// Render produces both chart files for the ticker.
func (r *Renderer) Render(ticker string, series model.PriceSeries) (Artifacts, error) {
	if len(series) == 0 {
		return Artifacts{}, fmt.Errorf("charts: empty series for %s", ticker)
	}
	if err := os.MkdirAll(r.opts.Dir, 0o755); err != nil {
		return Artifacts{}, fmt.Errorf("charts: create dir: %w", err)
	}

	slug := strings.ReplaceAll(ticker, ".", "_")
	artifacts := Artifacts{
		Path5Y: filepath.Join(r.opts.Dir, slug+"_5y.png"),
		Path1Y: filepath.Join(r.opts.Dir, slug+"_1y.png"),
	}

	if err := r.renderOne(artifacts.Path5Y, ticker+" - 5Y Daily", series); err != nil {
		return Artifacts{}, err
	}
	if err := r.renderOne(artifacts.Path1Y, ticker+" - 1Y Daily", series.TrailingYear()); err != nil {
		return Artifacts{}, err
	}

	r.logger.Debug().Str("ticker", ticker).Str("dir", r.opts.Dir).Msg("charts rendered")
	return artifacts, nil
}

func (r *Renderer) renderOne(path, title string, series model.PriceSeries) error {
	x := make([]time.Time, len(series))
	closes := make([]float64, len(series))
	volume := make([]float64, len(series))
	for i, p := range series {
		x[i] = p.Date
		closes[i] = p.Close
		volume[i] = float64(p.Volume)
	}

	graph := chart.Chart{
		Title:  title,
		Width:  r.opts.Width,
		Height: r.opts.Height,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name: "Price",
		},
		YAxisSecondary: chart.YAxis{
			Name: "Volume",
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Close",
				XValues: x,
				YValues: closes,
			},
			chart.TimeSeries{
				Name:    "Volume",
				XValues: x,
				YValues: volume,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}

	// SMA overlay only where enough history exists for the window.
	sma := metrics.SMASeries(closes, r.opts.SMAPeriod)
	if len(series) >= r.opts.SMAPeriod {
		start := r.opts.SMAPeriod - 1
		graph.Series = append(graph.Series, chart.TimeSeries{
			Name:    fmt.Sprintf("SMA %d", r.opts.SMAPeriod),
			XValues: x[start:],
			YValues: sma[start:],
		})
	}

	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("charts: create %s: %w", path, err)
	}
	defer file.Close()

	if err := graph.Render(chart.PNG, file); err != nil {
		return fmt.Errorf("charts: render %s: %w", path, err)
	}
	return nil
}
