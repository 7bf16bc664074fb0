package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"perpscanner/internal/apperr"
	"perpscanner/internal/status"
	"perpscanner/internal/subscriber"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	actionMenu            = "menu"
	actionStatus          = "status"
	actionWatchlist       = "watchlist"
	actionWatchlistAdd    = "watchlist_add"
	actionWatchlistRemove = "watchlist_remove"
	removePrefix          = "remove_"

	maxRemoveButtons = 10
)

// Bot serves the button-driven watchlist menu over long polling.
type Bot struct {
	api         API
	registry    *subscriber.Registry
	engine      *status.EngineRef
	pollTimeout int
	logger      *zap.Logger
}

func NewBot(api API, registry *subscriber.Registry, engine *status.EngineRef, pollTimeout int, logger *zap.Logger) *Bot {
	return &Bot{
		api:         api,
		registry:    registry,
		engine:      engine,
		pollTimeout: pollTimeout,
		logger:      logger.Named("telegram"),
	}
}

func (b *Bot) Name() string { return "telegram-bot" }

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	commands := tgbotapi.NewSetMyCommands(tgbotapi.BotCommand{Command: "start", Description: "Open the scanner menu"})
	if _, err := b.api.Request(commands); err != nil {
		b.logger.Warn("set bot commands failed", zap.Error(err))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, upd)
		}
	}
}

// HandleUpdate dispatches one update. Handler failures are logged only.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.From != nil:
		b.handleMessage(ctx, upd.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	b.registry.Touch(userID)

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.reply(msg.Chat.ID, menuText(msg.From.FirstName), menuKeyboard())
		default:
			b.reply(msg.Chat.ID, "Use /start to open the menu.", nil)
		}
		return
	}

	sub, err := b.registry.SubmitText(ctx, userID, msg.Text)
	switch {
	case apperr.IsValidation(err):
		b.reply(msg.Chat.ID, "❌ <b>Invalid Symbol</b>\n\nPlease enter a valid symbol (e.g., BTCUSDT).", nil)
	case err != nil:
		b.logger.Error("submit text failed", zap.Int64("user", userID), zap.Error(err))
	case !sub.Handled:
		b.reply(msg.Chat.ID, fmt.Sprintf("Received: %s\n\nUse /start to see available actions.", escape(msg.Text)), nil)
	case sub.Result == subscriber.AlreadyPresent:
		b.reply(msg.Chat.ID, fmt.Sprintf("⚠️ <b>Already in Watchlist</b>\n\n%s is already in your watchlist.", escape(sub.Symbol)), nil)
	default:
		b.reply(msg.Chat.ID, fmt.Sprintf("✅ <b>Symbol Added</b>\n\n%s has been added to your watchlist.", escape(sub.Symbol)),
			watchlistKeyboard())
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		b.logger.Debug("answer callback failed", zap.Error(err))
	}
	if q.From == nil {
		return
	}
	userID := q.From.ID
	b.registry.Touch(userID)

	var (
		text     string
		keyboard *tgbotapi.InlineKeyboardMarkup
	)
	switch data := q.Data; {
	case data == actionMenu:
		text, keyboard = menuText(q.From.FirstName), menuKeyboard()
	case data == actionStatus:
		text, keyboard = b.statusText(), backKeyboard(actionMenu)
	case data == actionWatchlist:
		text, keyboard = watchlistText(b.registry.Watchlist(userID)), watchlistKeyboard()
	case data == actionWatchlistAdd:
		b.registry.BeginAdd(userID)
		text = "➕ <b>Add Symbol to Watchlist</b>\n\nSend me the symbol you want to add (e.g., BTCUSDT)"
	case data == actionWatchlistRemove:
		text, keyboard = removeMenu(b.registry.Watchlist(userID))
	case strings.HasPrefix(data, removePrefix):
		symbol := strings.TrimPrefix(data, removePrefix)
		if b.registry.Remove(ctx, userID, symbol) == subscriber.Removed {
			text = fmt.Sprintf("✅ <b>Symbol Removed</b>\n\n%s has been removed from your watchlist.", escape(symbol))
		} else {
			text = fmt.Sprintf("❌ <b>Symbol Not Found</b>\n\n%s was not in your watchlist.", escape(symbol))
		}
		keyboard = backKeyboard(actionWatchlist)
	default:
		text = "This action is not available."
	}

	if q.Message == nil {
		b.reply(userID, text, keyboard)
		return
	}
	edit := tgbotapi.NewEditMessageText(q.Message.Chat.ID, q.Message.MessageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = keyboard
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Warn("edit message failed", zap.Int64("user", userID), zap.Error(err))
	}
}

func (b *Bot) reply(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("reply failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func (b *Bot) statusText() string {
	e, ok := b.engine.Get()
	if !ok {
		return "⏳ <b>Scanner Status</b>\n\nThe scanner is starting up."
	}
	uptime := time.Since(e.StartedAt()).Truncate(time.Second)
	return fmt.Sprintf("📊 <b>Scanner Status</b>\n\n"+
		"🟢 <b>State:</b> %s\n"+
		"⏱️ <b>Uptime:</b> %s\n"+
		"🚨 <b>Alerts Sent:</b> %d\n"+
		"📈 <b>Symbols Tracked:</b> %d",
		e.State(), uptime, e.AlertsSent(), e.TrackedSymbols())
}
