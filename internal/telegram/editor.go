package telegram

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kirillm/candle-bot/internal/config"
	"github.com/kirillm/candle-bot/internal/domain"
)

// Параметры символа, доступные в диалоге редактирования
var symbolParams = map[string]string{
	"volume":      "volume",
	"take profit": "tp",
	"stop loss":   "sl",
	"counter":     "counter",
	"tp counter":  "tp_counter",
	"sl counter":  "sl_counter",
}

// Параметры новых символов, которые не спрашиваются в диалоге добавления
const (
	defaultCounterDistance = 5.0
	defaultCounterTP       = 0.01
	defaultCounterSL       = 600.0
)

// Editor ведет многошаговые диалоги правки торгового снапшота. Каждый
// коммит идет через SnapshotStore.Update, так что параллельные правки и
// работающий торговый цикл видят согласованный файл.
type Editor struct {
	store     *config.SnapshotStore
	validator *Validator
}

func NewEditor(store *config.SnapshotStore) *Editor {
	return &Editor{
		store:     store,
		validator: NewValidator(),
	}
}

// Advance скармливает диалогу очередной ввод пользователя. done означает,
// что диалог закончен — успешно или после maxAttempts неверных вводов.
func (e *Editor) Advance(s *Session, input string) (reply string, done bool) {
	switch s.Action {
	case actionAddSymbol:
		return e.advanceAdd(s, input)
	case actionEditSymbol:
		return e.advanceEdit(s, input)
	case actionRemoveSymbol:
		return e.advanceRemove(s, input)
	case actionEditTrading:
		return e.advanceTradingParam(s, input)
	default:
		return "❌ Unknown action", true
	}
}

// retry считает неверный ввод; после maxAttempts диалог сбрасывается
func (e *Editor) retry(s *Session, msg string) (string, bool) {
	s.Attempts++
	if s.Attempts >= maxAttempts {
		return "❌ Too many invalid attempts, cancelled", true
	}
	return "❌ " + msg, false
}

func (e *Editor) advanceAdd(s *Session, input string) (string, bool) {
	switch s.Step {
	case 0:
		name, err := e.validator.ValidateSymbolName(input)
		if err != nil {
			return e.retry(s, err.Error())
		}
		cfg, cerr := e.store.Load()
		if cerr != nil {
			return "❌ Failed to read config", true
		}
		if _, exists := cfg.Settings[name]; exists {
			return fmt.Sprintf("❌ %s is already configured", name), true
		}
		s.Symbol = name
		s.Step = 1
		s.Attempts = 0
		return "💹 Enter trade volume:", false
	case 1:
		volume, err := e.validator.ValidatePositiveFloat(input)
		if err != nil {
			return e.retry(s, err.Error())
		}
		s.Draft.Volume = volume
		s.Step = 2
		s.Attempts = 0
		return "🎯 Enter Take Profit:", false
	case 2:
		tp, err := e.validator.ValidatePositiveFloat(input)
		if err != nil {
			return e.retry(s, err.Error())
		}
		s.Draft.TakeProfit = tp
		s.Step = 3
		s.Attempts = 0
		return "🛑 Enter Stop Loss:", false
	default:
		sl, err := e.validator.ValidatePositiveFloat(input)
		if err != nil {
			return e.retry(s, err.Error())
		}
		s.Draft.StopLoss = sl
		s.Draft.CounterDistance = defaultCounterDistance
		s.Draft.CounterTP = defaultCounterTP
		s.Draft.CounterSL = defaultCounterSL

		uerr := e.store.Update(func(cfg *domain.TradingConfig) error {
			cfg.Symbols = append(cfg.Symbols, s.Symbol)
			if cfg.Settings == nil {
				cfg.Settings = make(map[string]domain.SymbolSettings)
			}
			cfg.Settings[s.Symbol] = s.Draft
			return nil
		})
		if uerr != nil {
			return fmt.Sprintf("❌ Error: %v", uerr), true
		}
		return fmt.Sprintf("✅ %s added", s.Symbol), true
	}
}

func (e *Editor) advanceEdit(s *Session, input string) (string, bool) {
	switch s.Step {
	case 0:
		cfg, err := e.store.Load()
		if err != nil {
			return "❌ Failed to read config", true
		}
		name := strings.ToUpper(strings.TrimSpace(input))
		if _, ok := cfg.Settings[name]; !ok {
			return e.retry(s, "Symbol not found!")
		}
		s.Symbol = name
		s.Step = 1
		s.Attempts = 0
		return fmt.Sprintf("✏ Editing %s\nSelect parameter: Volume, Take Profit, Stop Loss, Counter, TP Counter, SL Counter", name), false
	case 1:
		param, ok := symbolParams[strings.ToLower(strings.TrimSpace(input))]
		if !ok {
			return e.retry(s, "Invalid parameter!")
		}
		s.Param = param
		s.Step = 2
		s.Attempts = 0
		return fmt.Sprintf("🆕 Enter new value for %s:", strings.TrimSpace(input)), false
	default:
		value, err := e.validator.ValidatePositiveFloat(input)
		if err != nil {
			return e.retry(s, err.Error())
		}
		uerr := e.store.Update(func(cfg *domain.TradingConfig) error {
			settings, ok := cfg.Settings[s.Symbol]
			if !ok {
				return fmt.Errorf("symbol %s no longer exists", s.Symbol)
			}
			switch s.Param {
			case "volume":
				settings.Volume = value
			case "tp":
				settings.TakeProfit = value
			case "sl":
				settings.StopLoss = value
			case "counter":
				settings.CounterDistance = value
			case "tp_counter":
				settings.CounterTP = value
			case "sl_counter":
				settings.CounterSL = value
			}
			cfg.Settings[s.Symbol] = settings
			return nil
		})
		if uerr != nil {
			return fmt.Sprintf("❌ Error: %v", uerr), true
		}
		return "✅ Updated successfully", true
	}
}

func (e *Editor) advanceRemove(s *Session, input string) (string, bool) {
	switch s.Step {
	case 0:
		cfg, err := e.store.Load()
		if err != nil {
			return "❌ Failed to read config", true
		}
		name := strings.ToUpper(strings.TrimSpace(input))
		if _, ok := cfg.Settings[name]; !ok {
			return e.retry(s, "Symbol not found!")
		}
		s.Symbol = name
		s.Step = 1
		s.Attempts = 0
		return fmt.Sprintf("Are you sure you want to remove %s? (yes/no)", name), false
	default:
		switch strings.ToLower(strings.TrimSpace(input)) {
		case "yes":
			uerr := e.store.Update(func(cfg *domain.TradingConfig) error {
				kept := cfg.Symbols[:0]
				for _, sym := range cfg.Symbols {
					if sym != s.Symbol {
						kept = append(kept, sym)
					}
				}
				cfg.Symbols = kept
				delete(cfg.Settings, s.Symbol)
				return nil
			})
			if uerr != nil {
				return fmt.Sprintf("❌ Error: %v", uerr), true
			}
			return fmt.Sprintf("✅ %s has been removed", s.Symbol), true
		case "no":
			return "Removal cancelled", true
		default:
			return e.retry(s, "Answer yes or no")
		}
	}
}

// advanceTradingParam — однострочные правки общих торговых параметров.
// Параметр выбран кнопкой до начала диалога, здесь только значение.
func (e *Editor) advanceTradingParam(s *Session, input string) (string, bool) {
	mutate, err := e.tradingMutation(s.Param, input)
	if err != nil {
		return e.retry(s, err.Error())
	}
	if uerr := e.store.Update(mutate); uerr != nil {
		return fmt.Sprintf("❌ Error: %v", uerr), true
	}
	return "✅ Updated successfully", true
}

func (e *Editor) tradingMutation(param, input string) (func(*domain.TradingConfig) error, error) {
	switch param {
	case "timeframe":
		tf, err := e.validator.ValidateTimeframe(input)
		if err != nil {
			return nil, err
		}
		return func(cfg *domain.TradingConfig) error { cfg.Timeframe = tf; return nil }, nil
	case "min_movement_points":
		points, err := e.validator.ValidatePositiveInt(input)
		if err != nil {
			return nil, err
		}
		return func(cfg *domain.TradingConfig) error { cfg.MinMovementPoints = points; return nil }, nil
	case "multiplier":
		m, err := e.validator.ValidatePositiveFloat(input)
		if err != nil {
			return nil, err
		}
		return func(cfg *domain.TradingConfig) error { cfg.Multiplier = m; return nil }, nil
	case "start_time":
		clock, err := e.validator.ValidateClock(input)
		if err != nil {
			return nil, err
		}
		return func(cfg *domain.TradingConfig) error { cfg.StartTime = clock; return nil }, nil
	case "end_time":
		clock, err := e.validator.ValidateClock(input)
		if err != nil {
			return nil, err
		}
		return func(cfg *domain.TradingConfig) error { cfg.EndTime = clock; return nil }, nil
	case "trade_mode":
		mode, err := e.validator.ValidateTradeMode(input)
		if err != nil {
			return nil, err
		}
		return func(cfg *domain.TradingConfig) error { cfg.TradeMode = mode; return nil }, nil
	default:
		return nil, fmt.Errorf("invalid parameter")
	}
}

// ToggleBot переключает флаг работы бота и возвращает новое состояние
func (e *Editor) ToggleBot() (bool, error) {
	var enabled bool
	err := e.store.Update(func(cfg *domain.TradingConfig) error {
		cfg.BotEnabled = !cfg.BotEnabled
		enabled = cfg.BotEnabled
		return nil
	})
	return enabled, err
}

// ToggleCounter переключает counter-торговлю и возвращает новое состояние
func (e *Editor) ToggleCounter() (bool, error) {
	var enabled bool
	err := e.store.Update(func(cfg *domain.TradingConfig) error {
		cfg.CounterTradeEnabled = !cfg.CounterTradeEnabled
		enabled = cfg.CounterTradeEnabled
		return nil
	})
	return enabled, err
}

func onOff(b bool) string {
	if b {
		return "✅ On"
	}
	return "❌ Off"
}

// formatStatus строит сводку текущего снапшота для команды Status
func formatStatus(cfg *domain.TradingConfig) string {
	var sb strings.Builder
	sb.WriteString("⚡ Bot Status\n\n")
	sb.WriteString("General:\n")
	fmt.Fprintf(&sb, "🤖 Bot: %s\n", onOff(cfg.BotEnabled))
	fmt.Fprintf(&sb, "🔁 Counter Trade: %s\n", onOff(cfg.CounterTradeEnabled))
	fmt.Fprintf(&sb, "⏱ Timeframe: %s\n", cfg.Timeframe)
	fmt.Fprintf(&sb, "🕯 Min Candle Size: %d points\n", cfg.MinMovementPoints)
	fmt.Fprintf(&sb, "📏 Multiplier: %g\n", cfg.Multiplier)
	fmt.Fprintf(&sb, "🕒 Trading Hours: %s - %s\n", cfg.StartTime, cfg.EndTime)
	fmt.Fprintf(&sb, "📊 Trade Mode: %s\n", cfg.TradeMode)

	fmt.Fprintf(&sb, "\nSymbols (%d):\n", len(cfg.Symbols))
	symbols := append([]string(nil), cfg.Symbols...)
	sort.Strings(symbols)
	for _, sym := range symbols {
		s, ok := cfg.Settings[sym]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "\n🔸 %s\n", sym)
		fmt.Fprintf(&sb, "- Volume: %g\n", s.Volume)
		fmt.Fprintf(&sb, "- TP/SL: %g/%g\n", s.TakeProfit, s.StopLoss)
		fmt.Fprintf(&sb, "- Counter: %g\n", s.CounterDistance)
		fmt.Fprintf(&sb, "- TP Counter: %g\n", s.CounterTP)
		fmt.Fprintf(&sb, "- SL Counter: %g\n", s.CounterSL)
	}
	return sb.String()
}

// formatTradingSettings строит сводку общих торговых параметров
func formatTradingSettings(cfg *domain.TradingConfig) string {
	var sb strings.Builder
	sb.WriteString("🔧 Trading Settings\n\n")
	fmt.Fprintf(&sb, "⏱ Timeframe: %s\n", cfg.Timeframe)
	fmt.Fprintf(&sb, "🕯 Min Candle Size: %d points\n", cfg.MinMovementPoints)
	fmt.Fprintf(&sb, "📏 Multiplier: %g\n", cfg.Multiplier)
	fmt.Fprintf(&sb, "🕒 Start Time: %s\n", cfg.StartTime)
	fmt.Fprintf(&sb, "🕒 End Time: %s\n", cfg.EndTime)
	fmt.Fprintf(&sb, "📊 Trade Mode: %s\n", cfg.TradeMode)
	return sb.String()
}
