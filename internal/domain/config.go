package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SymbolSettings — торговые параметры одного символа. Все поля tp/sl/counter —
// дистанции от цены входа, не абсолютные цены.
type SymbolSettings struct {
	Volume          float64 `yaml:"volume"`
	TakeProfit      float64 `yaml:"tp"`
	StopLoss        float64 `yaml:"sl"`
	CounterDistance float64 `yaml:"counter"`
	CounterTP       float64 `yaml:"tp_counter"`
	CounterSL       float64 `yaml:"sl_counter"`
}

// Validate проверяет параметры символа
func (s SymbolSettings) Validate() error {
	if s.Volume <= 0 {
		return fmt.Errorf("%w: volume must be positive", ErrInvalidInput)
	}
	for name, v := range map[string]float64{
		"tp":         s.TakeProfit,
		"sl":         s.StopLoss,
		"counter":    s.CounterDistance,
		"tp_counter": s.CounterTP,
		"sl_counter": s.CounterSL,
	} {
		if v <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidInput, name)
		}
	}
	return nil
}

// TradingConfig — снапшот торговой конфигурации, общий с редактором настроек
type TradingConfig struct {
	BotEnabled           bool                      `yaml:"bot_enabled"`
	Timeframe            Timeframe                 `yaml:"timeframe"`
	MinMovementPoints    int                       `yaml:"min_movement_points"`
	Multiplier           float64                   `yaml:"multiplier"`
	StartTime            string                    `yaml:"start_time"`
	EndTime              string                    `yaml:"end_time"`
	TradeMode            TradeMode                 `yaml:"trade_mode"`
	CounterTradeEnabled  bool                      `yaml:"counter_trade_enabled"`
	CounterOnFailedEntry bool                      `yaml:"counter_on_failed_entry"`
	Symbols              []string                  `yaml:"symbols"`
	Settings             map[string]SymbolSettings `yaml:"settings"`
}

// Validate проверяет снапшот целиком. Символ без настроек допустим: такой
// символ пропускается циклом, это не ошибка конфигурации.
func (c *TradingConfig) Validate() error {
	if !c.Timeframe.Valid() {
		return fmt.Errorf("%w: unsupported timeframe %q", ErrInvalidInput, c.Timeframe)
	}
	if !c.TradeMode.Valid() {
		return fmt.Errorf("%w: unsupported trade_mode %q", ErrInvalidInput, c.TradeMode)
	}
	if c.MinMovementPoints < 0 {
		return fmt.Errorf("%w: min_movement_points must be non-negative", ErrInvalidInput)
	}
	if c.Multiplier <= 0 {
		return fmt.Errorf("%w: multiplier must be positive", ErrInvalidInput)
	}
	if _, err := ParseClock(c.StartTime); err != nil {
		return fmt.Errorf("invalid start_time: %w", err)
	}
	if _, err := ParseClock(c.EndTime); err != nil {
		return fmt.Errorf("invalid end_time: %w", err)
	}
	for symbol, settings := range c.Settings {
		if err := settings.Validate(); err != nil {
			return fmt.Errorf("settings for %s: %w", symbol, err)
		}
	}
	return nil
}

// InWindow проверяет, попадает ли момент t в торговое окно (границы
// включительно). Окно задано по UTC, зона t значения не имеет. Снапшот
// должен быть провалидирован заранее.
func (c *TradingConfig) InWindow(t time.Time) bool {
	start, err := ParseClock(c.StartTime)
	if err != nil {
		return false
	}
	end, err := ParseClock(c.EndTime)
	if err != nil {
		return false
	}
	utc := t.UTC()
	minute := utc.Hour()*60 + utc.Minute()
	return start <= minute && minute <= end
}

// ParseClock разбирает время вида "HH:MM" в минуты от полуночи
func ParseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: time must be HH:MM, got %q", ErrInvalidInput, s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: invalid hour in %q", ErrInvalidInput, s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: invalid minute in %q", ErrInvalidInput, s)
	}
	return hour*60 + minute, nil
}
