// Package telegram — управление ботом через Telegram: статус, переключатели,
// редактор символов и торговых параметров, история сделок. Все правки идут в
// торговый снапшот и подхватываются циклом на следующей границе бара.
package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kirillm/candle-bot/internal/config"
	"github.com/kirillm/candle-bot/internal/domain"
	"github.com/kirillm/candle-bot/pkg/utils"
)

const rateLimitPerSecond = 5

// Подсказки для правки общих торговых параметров
var tradingParamPrompts = map[string]string{
	"timeframe":           "⏱ Enter new timeframe (e.g., M1, M5, M15, M30, H1):",
	"min_movement_points": "🕯 Enter new min candle size (positive integer):",
	"multiplier":          "📏 Enter new multiplier (positive float):",
	"start_time":          "🕒 Enter new start time (HH:MM):",
	"end_time":            "🕒 Enter new end time (HH:MM):",
	"trade_mode":          "📊 Enter new trade mode (both, buy_only, or sell_only):",
}

// HistorySource отдает журнал для отчетных команд
type HistorySource interface {
	RecentSubmissions(limit int) ([]domain.SubmissionRecord, error)
	RecentCancellations(limit int) ([]domain.CancellationRecord, error)
}

type Bot struct {
	api      *tgbotapi.BotAPI
	store    *config.SnapshotStore
	editor   *Editor
	history  HistorySource
	auth     *AuthManager
	sessions *SessionManager
	logger   *utils.Logger
}

func NewBot(token, allowedUserIDs string, store *config.SnapshotStore, history HistorySource, logger *utils.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	logger.Info("Telegram bot authorized: @%s", api.Self.UserName)

	return &Bot{
		api:      api,
		store:    store,
		editor:   NewEditor(store),
		history:  history,
		auth:     NewAuthManager(allowedUserIDs),
		sessions: NewSessionManager(),
		logger:   logger,
	}, nil
}

// Run запускает обработку сообщений до отмены контекста
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.CallbackQuery != nil {
				b.handleCallback(update.CallbackQuery)
			}
			if update.Message != nil {
				b.handleMessage(update.Message)
			}
		}
	}
}

func (b *Bot) handleMessage(message *tgbotapi.Message) {
	userID := message.From.ID
	if !b.auth.IsAllowed(userID) {
		b.logger.Warn("unauthorized telegram access from user %d", userID)
		b.reply(message.Chat.ID, "⛔ Unauthorized")
		return
	}
	if err := b.auth.CheckRateLimit(userID, rateLimitPerSecond); err != nil {
		b.reply(message.Chat.ID, "⏳ "+err.Error())
		return
	}

	chatID := message.Chat.ID

	// Кнопка главного меню обрывает любой активный диалог
	if message.Text == "🏠 Main Menu" {
		b.sessions.End(chatID)
		b.sendMainMenu(chatID, "🏠 Main menu")
		return
	}

	if session, ok := b.sessions.Get(chatID); ok {
		reply, done := b.editor.Advance(session, message.Text)
		if done {
			b.sessions.End(chatID)
			b.sendMainMenu(chatID, reply)
		} else {
			b.reply(chatID, reply)
		}
		return
	}

	if message.IsCommand() {
		b.handleCommand(message)
		return
	}

	b.handleMenuButton(chatID, message.Text)
}

func (b *Bot) handleCommand(message *tgbotapi.Message) {
	switch message.Command() {
	case "start", "help":
		b.sendHelp(message.Chat.ID)
	case "status":
		b.handleStatus(message.Chat.ID)
	case "history":
		b.handleHistory(message.Chat.ID)
	case "cancellations":
		b.handleCancellations(message.Chat.ID)
	default:
		b.reply(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleMenuButton(chatID int64, text string) {
	switch text {
	case "📊 Status":
		b.handleStatus(chatID)
	case "⚙ Settings":
		b.sendSettingsMenu(chatID)
	case "📈 Symbols":
		b.sendSymbolsMenu(chatID)
	case "🔧 Trading Settings":
		b.sendTradingSettingsMenu(chatID)
	case "🆘 Help":
		b.sendHelp(chatID)
	case "➕ Add Symbol":
		b.sessions.Begin(chatID, actionAddSymbol)
		b.reply(chatID, "📥 Enter symbol name (e.g., EURUSD):")
	case "✏ Edit Symbol":
		b.startSymbolSelection(chatID, actionEditSymbol, "📝 Select symbol to edit:")
	case "🗑 Remove Symbol":
		b.startSymbolSelection(chatID, actionRemoveSymbol, "🗑 Select symbol to remove:")
	default:
		b.reply(chatID, "Use the menu buttons or /help")
	}
}

func (b *Bot) handleCallback(call *tgbotapi.CallbackQuery) {
	if !b.auth.IsAllowed(call.From.ID) {
		b.logger.Warn("unauthorized telegram callback from user %d", call.From.ID)
		return
	}

	// Message пуст, если исходное сообщение слишком старое для API
	if call.Message == nil {
		b.logger.Warn("callback %q has no source message, ignoring", call.Data)
		return
	}

	chatID := call.Message.Chat.ID
	var notice string

	switch {
	case call.Data == "toggle_bot":
		enabled, err := b.editor.ToggleBot()
		if err != nil {
			notice = fmt.Sprintf("Error: %v", err)
		} else if enabled {
			notice = "Bot enabled"
		} else {
			notice = "Bot disabled"
		}
	case call.Data == "toggle_counter":
		enabled, err := b.editor.ToggleCounter()
		if err != nil {
			notice = fmt.Sprintf("Error: %v", err)
		} else if enabled {
			notice = "Counter trade enabled"
		} else {
			notice = "Counter trade disabled"
		}
	case strings.HasPrefix(call.Data, "edit_trading_param_"):
		param := strings.TrimPrefix(call.Data, "edit_trading_param_")
		prompt, ok := tradingParamPrompts[param]
		if !ok {
			notice = "Invalid parameter"
			break
		}
		session := b.sessions.Begin(chatID, actionEditTrading)
		session.Param = param
		b.reply(chatID, prompt)
	}

	callback := tgbotapi.NewCallback(call.ID, notice)
	if _, err := b.api.Request(callback); err != nil {
		b.logger.Error("failed to answer callback query: %v", err)
	}
	if notice != "" {
		b.reply(chatID, notice)
	}
}

// startSymbolSelection открывает диалог выбора символа, показывая клавиатуру
// с настроенными символами
func (b *Bot) startSymbolSelection(chatID int64, action, prompt string) {
	cfg, err := b.store.Load()
	if err != nil {
		b.reply(chatID, "❌ Failed to read config")
		return
	}
	if len(cfg.Symbols) == 0 {
		b.sendMainMenu(chatID, "ℹ No symbols configured")
		return
	}

	b.sessions.Begin(chatID, action)

	keyboard := tgbotapi.NewReplyKeyboard()
	for _, sym := range cfg.Symbols {
		keyboard.Keyboard = append(keyboard.Keyboard, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(sym)))
	}
	keyboard.Keyboard = append(keyboard.Keyboard, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("🏠 Main Menu")))
	keyboard.ResizeKeyboard = true

	msg := tgbotapi.NewMessage(chatID, prompt)
	msg.ReplyMarkup = keyboard
	b.send(msg)
}

func (b *Bot) handleStatus(chatID int64) {
	cfg, err := b.store.Load()
	if err != nil {
		b.reply(chatID, fmt.Sprintf("❌ Error reading config: %v", err))
		return
	}
	b.reply(chatID, formatStatus(cfg))
}

func (b *Bot) handleHistory(chatID int64) {
	if b.history == nil {
		b.reply(chatID, "ℹ Journal is not configured")
		return
	}
	records, err := b.history.RecentSubmissions(10)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("❌ Error getting history: %v", err))
		return
	}
	if len(records) == 0 {
		b.reply(chatID, "ℹ No orders journaled yet")
		return
	}

	var sb strings.Builder
	sb.WriteString("📜 Recent orders\n")
	for _, rec := range records {
		fmt.Fprintf(&sb, "\n%s %s %s %s vol=%g price=%g magic=%d [%s]",
			rec.CreatedAt.Format("01-02 15:04"), rec.Symbol, rec.Side, rec.Kind,
			rec.Volume, rec.Price, rec.Magic, rec.Status)
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) handleCancellations(chatID int64) {
	if b.history == nil {
		b.reply(chatID, "ℹ Journal is not configured")
		return
	}
	records, err := b.history.RecentCancellations(10)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("❌ Error getting cancellations: %v", err))
		return
	}
	if len(records) == 0 {
		b.reply(chatID, "ℹ No cancellations journaled yet")
		return
	}

	var sb strings.Builder
	sb.WriteString("🗑 Recent cancellations\n")
	for _, rec := range records {
		status := "ok"
		if !rec.Success {
			status = "failed: " + rec.Reason
		}
		fmt.Fprintf(&sb, "\n%s %s ticket=%d magic=%d [%s]",
			rec.CreatedAt.Format("01-02 15:04"), rec.Symbol, rec.Ticket, rec.Magic, status)
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) sendSettingsMenu(chatID int64) {
	cfg, err := b.store.Load()
	if err != nil {
		b.reply(chatID, "❌ Failed to read config")
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🤖 Bot: %s", onOff(cfg.BotEnabled)), "toggle_bot"),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🔁 Counter: %s", onOff(cfg.CounterTradeEnabled)), "toggle_counter"),
		),
	)
	msg := tgbotapi.NewMessage(chatID, "⚙ Bot Settings")
	msg.ReplyMarkup = keyboard
	b.send(msg)
}

func (b *Bot) sendSymbolsMenu(chatID int64) {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("➕ Add Symbol"),
			tgbotapi.NewKeyboardButton("✏ Edit Symbol"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("🗑 Remove Symbol"),
			tgbotapi.NewKeyboardButton("🏠 Main Menu"),
		),
	)
	keyboard.ResizeKeyboard = true
	msg := tgbotapi.NewMessage(chatID, "📈 Symbol Management")
	msg.ReplyMarkup = keyboard
	b.send(msg)
}

func (b *Bot) sendTradingSettingsMenu(chatID int64) {
	cfg, err := b.store.Load()
	if err != nil {
		b.reply(chatID, "❌ Failed to read config")
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏱ Edit Timeframe", "edit_trading_param_timeframe"),
			tgbotapi.NewInlineKeyboardButtonData("🕯 Edit Min Candle Size", "edit_trading_param_min_movement_points"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📏 Edit Multiplier", "edit_trading_param_multiplier"),
			tgbotapi.NewInlineKeyboardButtonData("🕒 Edit Start Time", "edit_trading_param_start_time"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🕒 Edit End Time", "edit_trading_param_end_time"),
			tgbotapi.NewInlineKeyboardButtonData("📊 Edit Trade Mode", "edit_trading_param_trade_mode"),
		),
	)
	msg := tgbotapi.NewMessage(chatID, formatTradingSettings(cfg))
	msg.ReplyMarkup = keyboard
	b.send(msg)
}

func (b *Bot) sendHelp(chatID int64) {
	help := `🤖 Trading Bot Controller

Main Functions:
- 📊 Status: Show current settings
- ⚙ Settings: Toggle bot and counter trading
- 📈 Symbols: Manage trading symbols
- 🔧 Trading Settings: Configure trading parameters
- 🆘 Help: Show instructions

Commands:
/status - Current settings
/history - Recent journaled orders
/cancellations - Recent cancelled orders

Use the buttons below to navigate!`
	b.sendMainMenu(chatID, help)
}

// sendMainMenu отправляет сообщение с клавиатурой главного меню
func (b *Bot) sendMainMenu(chatID int64, text string) {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("📊 Status"),
			tgbotapi.NewKeyboardButton("⚙ Settings"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("📈 Symbols"),
			tgbotapi.NewKeyboardButton("🔧 Trading Settings"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("🆘 Help"),
		),
	)
	keyboard.ResizeKeyboard = true
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	b.send(msg)
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(msg tgbotapi.MessageConfig) {
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send telegram message: %v", err)
	}
}
