// Package notify posts a short run summary to a Slack incoming webhook.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"teater-impact-report/internal/category"
	"teater-impact-report/internal/pipeline"
	"teater-impact-report/internal/window"
)

const (
	defaultTopUnits = 3
	defaultTimeout  = 10 * time.Second
)

var ErrNotConfigured = errors.New("slack webhook not configured")

type Config struct {
	WebhookURL string
	TopUnits   int
	Timeout    time.Duration
}

type Slack struct {
	url    string
	top    int
	client *http.Client
	logger *slog.Logger
}

func NewSlack(cfg Config, logger *slog.Logger) (*Slack, error) {
	if strings.TrimSpace(cfg.WebhookURL) == "" {
		return nil, ErrNotConfigured
	}
	top := cfg.TopUnits
	if top <= 0 {
		top = defaultTopUnits
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Slack{
		url:    cfg.WebhookURL,
		top:    top,
		client: &http.Client{Timeout: timeout},
		logger: logger.With("component", "notify"),
	}, nil
}

// Notify posts the summary of one run.
func (s *Slack) Notify(ctx context.Context, summary pipeline.SummaryTable, win window.Window) error {
	text := Summary(summary, win, s.top)
	msg := &slack.WebhookMessage{
		Text: text,
		Blocks: &slack.Blocks{BlockSet: []slack.Block{
			slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, "Daily TEATER Usage Report", false, false)),
			slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil),
		}},
	}
	if err := slack.PostWebhookCustomHTTPContext(ctx, s.url, s.client, msg); err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	s.logger.Info("slack summary posted", "units", len(summary.Units()))
	return nil
}

// Summary formats the plain-text digest of a summary table.
func Summary(summary pipeline.SummaryTable, win window.Window, top int) string {
	total := summary.TotalRow()

	var b strings.Builder
	fmt.Fprintf(&b, "*Window:* %s\n", win)
	fmt.Fprintf(&b, "*Units:* %d | *Total activities:* %d\n", len(summary.Units()), total.Total)

	parts := make([]string, 0, category.Count)
	for _, c := range category.All {
		parts = append(parts, fmt.Sprintf("%s %d", c.Label(), total.Totals[c]))
	}
	fmt.Fprintf(&b, "*By category:* %s\n", strings.Join(parts, ", "))

	units := summary.Units()
	if top > len(units) {
		top = len(units)
	}
	if top > 0 {
		b.WriteString("*Top units:*")
		for _, unit := range units[:top] {
			fmt.Fprintf(&b, "\n%d. %s (%d)", unit.Sequence, unit.UnitName, unit.Total)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
