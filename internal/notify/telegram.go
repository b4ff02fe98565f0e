package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"movie-roulette/internal/models"
	"movie-roulette/internal/service"
)

// Announcer pushes roulette winners and the daily curator pick to a
// Telegram chat. It also answers /pick so the pick can be requested on
// demand. The announcer is optional; when no bot token is configured the
// server simply runs without one.
type Announcer struct {
	bot      *tele.Bot
	chat     tele.Recipient
	discover *service.DiscoverService
}

// NewAnnouncer creates a new Announcer and registers the bot commands.
func NewAnnouncer(token string, chatID int64, discover *service.DiscoverService) (*Announcer, error) {
	bot, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	a := &Announcer{
		bot:      bot,
		chat:     tele.ChatID(chatID),
		discover: discover,
	}

	bot.Handle("/pick", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		pick, err := a.discover.CuratorPick(ctx)
		if err != nil {
			return c.Send(fmt.Sprintf("Could not fetch a pick: %v", err))
		}
		if pick == nil {
			return c.Send("Not enough rated history for a pick yet. Rate a few titles 4+ first.")
		}
		return c.Send(FormatPickMessage(pick), tele.ModeHTML)
	})

	return a, nil
}

// Start begins polling for bot commands. It blocks, so callers run it in
// a goroutine.
func (a *Announcer) Start() {
	a.bot.Start()
}

// Stop stops the bot poller.
func (a *Announcer) Stop() {
	a.bot.Stop()
}

// AnnounceWin sends the roulette winner to the configured chat.
func (a *Announcer) AnnounceWin(item models.MovieItem) error {
	if _, err := a.bot.Send(a.chat, FormatWinMessage(item), tele.ModeHTML); err != nil {
		return fmt.Errorf("failed to send win announcement: %w", err)
	}
	return nil
}

// AnnounceCuratorPick fetches today's curator pick and sends it to the
// configured chat. When there is not enough rated history yet, nothing is
// sent and no error is reported.
func (a *Announcer) AnnounceCuratorPick() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pick, err := a.discover.CuratorPick(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute curator pick: %w", err)
	}
	if pick == nil {
		return nil
	}

	if _, err := a.bot.Send(a.chat, FormatPickMessage(pick), tele.ModeHTML); err != nil {
		return fmt.Errorf("failed to send curator pick: %w", err)
	}
	return nil
}

// FormatWinMessage formats a roulette winner announcement.
// Exported for testing purposes
func FormatWinMessage(item models.MovieItem) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("🎰 <b>Tonight's pick: %s</b>\n", item.Title))

	if d := item.TMDBData; d != nil {
		if date := releaseYear(d); date != "" {
			sb.WriteString(fmt.Sprintf("📅 %s\n", date))
		}
		if d.VoteAverage > 0 {
			sb.WriteString(fmt.Sprintf("⭐ %.1f\n", d.VoteAverage))
		}
		if minutes, ok := d.EffectiveRuntime(); ok {
			sb.WriteString(fmt.Sprintf("⏱ %d min\n", minutes))
		}
		if d.Overview != "" {
			sb.WriteString("\n" + truncate(d.Overview, 300))
		}
	}

	return sb.String()
}

// FormatPickMessage formats the daily curator pick announcement.
// Exported for testing purposes
func FormatPickMessage(pick *service.CuratorPick) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("🎬 <b>Curator's pick: %s</b>\n", pick.Item.DisplayTitle()))
	sb.WriteString(fmt.Sprintf("💡 %s\n", pick.Because))

	if pick.Item.VoteAverage > 0 {
		sb.WriteString(fmt.Sprintf("⭐ %.1f\n", pick.Item.VoteAverage))
	}
	if pick.Item.Overview != "" {
		sb.WriteString("\n" + truncate(pick.Item.Overview, 300))
	}

	return sb.String()
}

func releaseYear(d *models.TMDBData) string {
	date := d.ReleaseDate
	if date == "" {
		date = d.FirstAirDate
	}
	if len(date) >= 4 {
		return date[:4]
	}
	return ""
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
