package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"
)

func escape(s string) string { return html.EscapeString(s) }

func menuText(name string) string {
	if name == "" {
		name = "trader"
	}
	return fmt.Sprintf("🤖 <b>Bybit Scanner</b>\n\nWelcome, %s!\n\n"+
		"You receive alerts for every symbol on your watchlist.\nChoose an option below:", escape(name))
}

func menuKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⭐ My Watchlist", actionWatchlist),
			tgbotapi.NewInlineKeyboardButtonData("📊 Status", actionStatus),
		),
	)
	return &kb
}

func watchlistKeyboard() *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Add Symbol", actionWatchlistAdd),
			tgbotapi.NewInlineKeyboardButtonData("➖ Remove Symbol", actionWatchlistRemove),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Refresh", actionWatchlist),
			tgbotapi.NewInlineKeyboardButtonData("🔙 Menu", actionMenu),
		),
	)
	return &kb
}

func backKeyboard(action string) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔙 Back", action)),
	)
	return &kb
}

func watchlistText(symbols []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⭐ <b>My Watchlist</b>\n\n<b>📊 Tracked Symbols:</b> %d", len(symbols))
	if len(symbols) == 0 {
		b.WriteString("\n\n• No symbols in watchlist\n• Use 'Add Symbol' to start tracking")
	} else {
		b.WriteString("\n\n<b>🔍 Your Symbols:</b>")
		for i, sym := range symbols {
			fmt.Fprintf(&b, "\n%d. <b>%s</b>", i+1, escape(sym))
		}
	}
	fmt.Fprintf(&b, "\n\n⏰ <b>Last Updated:</b> %s", time.Now().UTC().Format("15:04:05"))
	return b.String()
}

func removeMenu(symbols []string) (string, *tgbotapi.InlineKeyboardMarkup) {
	if len(symbols) == 0 {
		return "➖ <b>Remove Symbol</b>\n\nYour watchlist is empty.", backKeyboard(actionWatchlist)
	}

	rows := lo.Map(lo.Subset(symbols, 0, maxRemoveButtons), func(sym string, _ int) []tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("❌ "+sym, removePrefix+sym))
	})
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔙 Back", actionWatchlist)))

	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return "➖ <b>Remove Symbol from Watchlist</b>\n\nSelect a symbol to remove:", &kb
}
