package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stage-scanner/internal/model"
)

const (
	colorReadyNow  = 0x00FF00
	colorSettingUp = 0xFFFF00
)

// Notifier 定义扫描结果推送接口。
type Notifier interface {
	Notify(ctx context.Context, results []model.ScanResult) error
}

// DiscordNotifier 通过 Discord Webhook 推送扫描结果。
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
	logger     zerolog.Logger
}

// NewDiscordNotifier 构造 Discord 告警器。
func NewDiscordNotifier(webhookURL string, timeout time.Duration, logger zerolog.Logger) *DiscordNotifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &DiscordNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "alert_discord").Logger(),
	}
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedImage struct {
	URL string `json:"url"`
}

type embed struct {
	Title  string       `json:"title"`
	Color  int          `json:"color"`
	Fields []embedField `json:"fields"`
	Image  *embedImage  `json:"image,omitempty"`
}

// Notify sends actionable results to the webhook, one embed per ticker,
// with chart attachments when the rendered files exist on disk.
func (n *DiscordNotifier) Notify(ctx context.Context, results []model.ScanResult) error {
	actionable := make([]model.ScanResult, 0, len(results))
	for _, r := range results {
		if r.Actionable() {
			actionable = append(actionable, r)
		}
	}

	if len(actionable) == 0 {
		return n.sendContent(ctx, "Stage scan completed. No actionable signals detected.")
	}

	ready := 0
	for _, r := range actionable {
		if r.WatchlistTier == model.TierReadyNow {
			ready++
		}
	}
	summary := fmt.Sprintf("Stage scan found **%d** Ready Now and **%d** Setting Up signal(s):",
		ready, len(actionable)-ready)
	if err := n.sendContent(ctx, summary); err != nil {
		return err
	}

	for _, r := range actionable {
		if err := n.sendResult(ctx, r); err != nil {
			n.logger.Warn().Err(err).Str("ticker", r.Ticker).Msg("推送单票结果失败")
			continue
		}
		n.logger.Info().Str("ticker", r.Ticker).Str("tier", string(r.WatchlistTier)).Msg("告警已发送 (Discord)")
	}
	return nil
}

func (n *DiscordNotifier) sendContent(ctx context.Context, content string) error {
	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return n.do(req)
}

func (n *DiscordNotifier) sendResult(ctx context.Context, r model.ScanResult) error {
	payload := map[string]interface{}{"embeds": []embed{buildEmbed(r)}}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal embed payload: %w", err)
	}

	attachments := chartAttachments(r)
	if len(attachments) == 0 {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payloadJSON))
		if err != nil {
			return fmt.Errorf("create discord request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		return n.do(req)
	}

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	if err := writer.WriteField("payload_json", string(payloadJSON)); err != nil {
		return fmt.Errorf("write payload_json field: %w", err)
	}
	for i, path := range attachments {
		field := "file"
		if i > 0 {
			field = fmt.Sprintf("file%d", i+1)
		}
		if err := appendFile(writer, field, path); err != nil {
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, buf)
	if err != nil {
		return fmt.Errorf("create discord request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return n.do(req)
}

func (n *DiscordNotifier) do(req *http.Request) error {
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send discord request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord 响应码异常: %d", resp.StatusCode)
	}
	return nil
}

// chartAttachments returns existing chart files, 1y first so its
// attachment name matches the embed image reference.
func chartAttachments(r model.ScanResult) []string {
	paths := make([]string, 0, 2)
	if r.ChartPath1Y != "" {
		if _, err := os.Stat(r.ChartPath1Y); err == nil {
			paths = append(paths, r.ChartPath1Y)
		}
	}
	if r.ChartPath5Y != "" {
		if _, err := os.Stat(r.ChartPath5Y); err == nil {
			paths = append(paths, r.ChartPath5Y)
		}
	}
	return paths
}

func appendFile(writer *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open chart %s: %w", path, err)
	}
	defer f.Close()

	part, err := writer.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("copy chart %s: %w", path, err)
	}
	return nil
}

func buildEmbed(r model.ScanResult) embed {
	color := colorSettingUp
	if r.WatchlistTier == model.TierReadyNow {
		color = colorReadyNow
	}

	patterns := strings.Join(r.Patterns, ", ")
	if patterns == "" {
		patterns = "None"
	}

	e := embed{
		Title: fmt.Sprintf("%s: %s", r.WatchlistTier, r.Ticker),
		Color: color,
		Fields: []embedField{
			{Name: "Watchlist Tier", Value: string(r.WatchlistTier), Inline: true},
			{Name: "Confidence", Value: fmt.Sprintf("%d/100", r.ConfidenceScore), Inline: true},
			{Name: "Structure", Value: orNA(r.MarketStructure), Inline: true},
			{Name: "Stage", Value: orNA(string(r.StageClassification)), Inline: true},
			{Name: "Sector", Value: orNA(r.Enrichment.SectorPerformance), Inline: false},
			{Name: "Earnings", Value: orNA(r.Enrichment.EarningsProximity), Inline: true},
			{Name: "Patterns", Value: patterns, Inline: false},
			{Name: "Entry Zone", Value: orNA(r.TechnicalTriggers.EntryZone), Inline: true},
			{Name: "Stop Loss", Value: orNA(r.TechnicalTriggers.StopLoss), Inline: true},
			{Name: "Target", Value: orNA(r.TechnicalTriggers.Target1), Inline: true},
			{Name: "Volume", Value: orNA(r.VolumeAnalysis), Inline: false},
			{Name: "Reasoning", Value: orNA(truncate(r.Reasoning, 1024)), Inline: false},
		},
	}

	if r.ChartPath1Y != "" {
		e.Image = &embedImage{URL: "attachment://" + filepath.Base(r.ChartPath1Y)}
	} else if r.ChartPath5Y != "" {
		e.Image = &embedImage{URL: "attachment://" + filepath.Base(r.ChartPath5Y)}
	}
	return e
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

var _ Notifier = (*DiscordNotifier)(nil)
