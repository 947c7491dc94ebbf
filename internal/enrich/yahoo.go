package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stage-scanner/internal/model"
)

// YahooOptions parameterise the enrichment client.
type YahooOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	NewsCount int
}

// Yahoo pulls enrichment context from the Yahoo Finance summary and search
// endpoints.
type Yahoo struct {
	opts    YahooOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewYahoo builds the enrichment client.
func NewYahoo(opts YahooOptions, logger zerolog.Logger) *Yahoo {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}
	if opts.NewsCount <= 0 {
		opts.NewsCount = 5
	}
	return &Yahoo{
		opts:    opts,
		logger:  logger.With().Str("component", "enricher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			AssetProfile *struct {
				Sector string `json:"sector"`
			} `json:"assetProfile"`
			CalendarEvents *struct {
				Earnings struct {
					EarningsDate []struct {
						Raw int64  `json:"raw"`
						Fmt string `json:"fmt"`
					} `json:"earningsDate"`
				} `json:"earnings"`
			} `json:"calendarEvents"`
			InstitutionOwnership *struct {
				OwnershipList []struct {
					Organization string `json:"organization"`
					PctHeld      struct {
						Raw float64 `json:"raw"`
					} `json:"pctHeld"`
				} `json:"ownershipList"`
			} `json:"institutionOwnership"`
		} `json:"result"`
	} `json:"quoteSummary"`
}

type searchResponse struct {
	News []struct {
		Title     string `json:"title"`
		Publisher string `json:"publisher"`
	} `json:"news"`
}

// Enrich gathers the context fields. Every lookup degrades to "N/A" on
// failure; the scan itself never fails because enrichment data is missing.
func (y *Yahoo) Enrich(ctx context.Context, ticker string) model.Enrichment {
	enrichment := model.Enrichment{
		Sector:               "N/A",
		InstitutionalSummary: "N/A",
		EarningsProximity:    "N/A",
	}

	y.fillSummary(ctx, ticker, &enrichment)
	y.fillNews(ctx, ticker, &enrichment)
	return enrichment
}

// SetSectorPerformance attaches the heatmap row matching the ticker's sector.
func SetSectorPerformance(e *model.Enrichment, heatmap *Heatmap) {
	if heatmap == nil {
		return
	}
	for rank, row := range heatmap.Rows() {
		if row.Sector == e.Sector {
			e.SectorPerformance = fmt.Sprintf("%s: %+.2f%% 1M (rank %d/%d)",
				row.Sector, row.Return1MPct, rank+1, len(heatmap.Rows()))
			return
		}
	}
}

func (y *Yahoo) fillSummary(ctx context.Context, ticker string, e *model.Enrichment) {
	endpoint := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=assetProfile,calendarEvents,institutionOwnership",
		y.baseURL, url.PathEscape(ticker))

	var parsed quoteSummaryResponse
	if err := y.getJSON(ctx, endpoint, &parsed); err != nil {
		y.logger.Warn().Err(err).Str("ticker", ticker).Msg("quote summary unavailable")
		return
	}
	if len(parsed.QuoteSummary.Result) == 0 {
		return
	}
	result := parsed.QuoteSummary.Result[0]

	if result.AssetProfile != nil && result.AssetProfile.Sector != "" {
		e.Sector = result.AssetProfile.Sector
	}

	if result.CalendarEvents != nil && len(result.CalendarEvents.Earnings.EarningsDate) > 0 {
		next := result.CalendarEvents.Earnings.EarningsDate[0]
		if next.Raw > 0 {
			when := time.Unix(next.Raw, 0).UTC()
			days := int(time.Until(when).Hours() / 24)
			e.DaysToEarnings = &days
			e.EarningsProximity = fmt.Sprintf("%s (%d days)", when.Format("2006-01-02"), days)
		} else if next.Fmt != "" {
			e.EarningsProximity = next.Fmt
		}
	}

	if result.InstitutionOwnership != nil && len(result.InstitutionOwnership.OwnershipList) > 0 {
		var parts []string
		for i, holder := range result.InstitutionOwnership.OwnershipList {
			if i == 3 {
				break
			}
			parts = append(parts, fmt.Sprintf("%s (%.1f%%)", holder.Organization, holder.PctHeld.Raw*100))
		}
		e.InstitutionalSummary = "Top holders: " + strings.Join(parts, ", ")
	}
}

func (y *Yahoo) fillNews(ctx context.Context, ticker string, e *model.Enrichment) {
	endpoint := fmt.Sprintf("%s/v1/finance/search?q=%s&newsCount=%d&quotesCount=0",
		y.baseURL, url.QueryEscape(ticker), y.opts.NewsCount)

	var parsed searchResponse
	if err := y.getJSON(ctx, endpoint, &parsed); err != nil {
		y.logger.Warn().Err(err).Str("ticker", ticker).Msg("news lookup unavailable")
		return
	}
	for _, item := range parsed.News {
		headline := item.Title
		if item.Publisher != "" {
			headline = fmt.Sprintf("%s (%s)", item.Title, item.Publisher)
		}
		e.NewsHeadlines = append(e.NewsHeadlines, headline)
	}
}

func (y *Yahoo) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	ua := strings.TrimSpace(y.opts.UserAgent)
	if ua == "" {
		ua = "Mozilla/5.0"
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "application/json")

	resp, err := y.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, out)
}

var _ Enricher = (*Yahoo)(nil)
