// Package notify delivers failure alerts for scheduled pipeline runs.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"qapipe/internal/config"
	"qapipe/internal/pipeline"
	"qapipe/pkg/logx"
)

// Notifier sends run-failure alerts to a Telegram chat. A nil *Notifier is
// valid and drops every alert, so callers never need to branch on whether
// alerts are configured.
type Notifier struct {
	bot    *tele.Bot
	chatID int64
	log    logx.Logger
}

// New builds a Notifier from the alerts config. It returns (nil, nil) when
// the Telegram block is absent or disabled.
func New(cfg *config.AlertsConfig, log logx.Logger) (*Notifier, error) {
	if cfg == nil || cfg.Telegram == nil || !cfg.Telegram.Enabled {
		return nil, nil
	}
	tg := cfg.Telegram
	if strings.TrimSpace(tg.Token) == "" {
		return nil, fmt.Errorf("notify: telegram alerts enabled but token is empty")
	}
	if tg.ChatID == 0 {
		return nil, fmt.Errorf("notify: telegram alerts enabled but chat_id is empty")
	}

	// Send-only bot: no poller is attached, updates are never consumed.
	bot, err := tele.NewBot(tele.Settings{Token: tg.Token})
	if err != nil {
		return nil, fmt.Errorf("notify: create telegram bot: %w", err)
	}

	return &Notifier{bot: bot, chatID: tg.ChatID, log: log}, nil
}

// RunFailed reports a pipeline run that finished unsuccessfully. The report
// may be nil for operations that do not produce one.
func (n *Notifier) RunFailed(ctx context.Context, operation string, report *pipeline.Report) {
	if n == nil {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ qapipe: %s failed at %s\n", operation, time.Now().Format(time.RFC3339))
	if report != nil {
		fmt.Fprintf(&b, "run: %s\n", report.RunID)
		fmt.Fprintf(&b, "collection=%t training=%t evaluation=%d metric(s) deployment=%t\n",
			report.DataCollection, report.Training, len(report.Evaluation), report.Deployment)
	}

	if err := n.send(ctx, b.String()); err != nil {
		n.log.Warn("failed to deliver telegram alert",
			logx.String("operation", operation),
			logx.Err(err))
	}
}

func (n *Notifier) send(ctx context.Context, text string) error {
	if ctx != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	_, err := n.bot.Send(&tele.Chat{ID: n.chatID}, text, &tele.SendOptions{DisableWebPagePreview: true})
	return err
}
