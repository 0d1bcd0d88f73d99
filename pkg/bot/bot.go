// Package bot turns chat commands into scrapes and reports.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"memereport/pkg/metrics"
	"memereport/pkg/report"
	"memereport/pkg/telegram"
)

const (
	CmdScrape = "/scrapememes"
	CmdReport = "/getreport"

	MsgScraped      = "Top daily memes gathered 👍"
	MsgScrapeFailed = "Scraping failed, try again later."
	MsgGenerating   = "Generating a report... 📝"
	MsgNotReady     = "No memes found. Have you called /scrapememes?."
	MsgReportFailed = "Failed to generate the report."
	MsgHelp         = "Hello! Use /scrapememes followed by /getreport to get started."
)

type Bot struct {
	Scraper   Scraper
	Reports   Reports
	Messenger Messenger
	Log       *zap.SugaredLogger
}

func NewBot(s Scraper, r Reports, m Messenger, log *zap.SugaredLogger) *Bot {
	return &Bot{
		Scraper:   s,
		Reports:   r,
		Messenger: m,
		Log:       log,
	}
}

// Handle answers a single update. Failures of the underlying work are
// reported to the user; only failures to reply are returned.
func (b *Bot) Handle(ctx context.Context, u *telegram.Update) error {
	if u.Message == nil {
		return nil
	}
	chatID := replyTarget(u.Message)
	cmd := command(u.Message.Text)

	log := b.Log.With("update_id", u.UpdateID, "chat_id", chatID)
	log.Infow("command received", "text", u.Message.Text)

	switch cmd {
	case CmdScrape:
		metrics.BotCommands.WithLabelValues("scrapememes").Inc()
		return b.scrape(ctx, log, chatID)
	case CmdReport:
		metrics.BotCommands.WithLabelValues("getreport").Inc()
		return b.report(ctx, log, chatID)
	default:
		metrics.BotCommands.WithLabelValues("other").Inc()
		return b.say(ctx, chatID, MsgHelp)
	}
}

func (b *Bot) scrape(ctx context.Context, log *zap.SugaredLogger, chatID int64) error {
	saved, err := b.Scraper.Scrape(ctx)
	if err != nil {
		log.Errorf("bot: scrape failed: %v", err)
		return b.say(ctx, chatID, MsgScrapeFailed)
	}
	log.Infow("scrape done", "saved", saved)
	return b.say(ctx, chatID, MsgScraped)
}

func (b *Bot) report(ctx context.Context, log *zap.SugaredLogger, chatID int64) error {
	if err := b.say(ctx, chatID, MsgGenerating); err != nil {
		return err
	}

	rep, err := b.Reports.Today(ctx)
	switch {
	case errors.Is(err, report.ErrNotReady):
		return b.say(ctx, chatID, MsgNotReady)
	case err != nil:
		log.Errorf("bot: report failed: %v", err)
		return b.say(ctx, chatID, MsgReportFailed)
	}

	if err := b.Messenger.SendDocument(ctx, chatID, rep.Filename, rep.ContentType, rep.Body); err != nil {
		return fmt.Errorf("bot: failed sending report: %w", err)
	}
	return nil
}

func (b *Bot) say(ctx context.Context, chatID int64, text string) error {
	if err := b.Messenger.SendMessage(ctx, chatID, text); err != nil {
		return fmt.Errorf("bot: failed replying: %w", err)
	}
	return nil
}

// replyTarget is the sender, falling back to the chat for channel posts.
func replyTarget(m *telegram.Message) int64 {
	if m.From != nil {
		return m.From.ID
	}
	return m.Chat.ID
}

// command strips surrounding space and a trailing @botname.
func command(text string) string {
	cmd := strings.TrimSpace(text)
	if i := strings.IndexByte(cmd, '@'); i > 0 && strings.HasPrefix(cmd, "/") {
		cmd = cmd[:i]
	}
	return cmd
}
