package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kirillm/candle-bot/internal/domain"
)

// Validator проверяет пользовательский ввод редактора настроек до того, как
// он попадет в торговый снапшот
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateSymbolName проверяет имя символа: только буквы, приводится к
// верхнему регистру
func (v *Validator) ValidateSymbolName(input string) (string, error) {
	name := strings.TrimSpace(input)
	if name == "" {
		return "", fmt.Errorf("symbol name is required")
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return "", fmt.Errorf("use only letters (e.g., EURUSD)")
		}
	}
	return strings.ToUpper(name), nil
}

// ValidatePositiveFloat проверяет строго положительное число
func (v *Validator) ValidatePositiveFloat(input string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number")
	}
	if value <= 0 {
		return 0, fmt.Errorf("must be a positive number")
	}
	return value, nil
}

// ValidatePositiveInt проверяет строго положительное целое
func (v *Validator) ValidatePositiveInt(input string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, fmt.Errorf("invalid integer")
	}
	if value <= 0 {
		return 0, fmt.Errorf("must be a positive integer")
	}
	return value, nil
}

// ValidateTimeframe проверяет код таймфрейма
func (v *Validator) ValidateTimeframe(input string) (domain.Timeframe, error) {
	tf, err := domain.ParseTimeframe(strings.ToUpper(strings.TrimSpace(input)))
	if err != nil {
		return "", fmt.Errorf("invalid timeframe! Use e.g., M1, M5, M15, M30, H1")
	}
	return tf, nil
}

// ValidateClock проверяет время в формате HH:MM
func (v *Validator) ValidateClock(input string) (string, error) {
	value := strings.TrimSpace(input)
	if _, err := domain.ParseClock(value); err != nil {
		return "", fmt.Errorf("invalid time format! Use HH:MM")
	}
	return value, nil
}

// ValidateTradeMode проверяет режим торговли
func (v *Validator) ValidateTradeMode(input string) (domain.TradeMode, error) {
	mode := domain.TradeMode(strings.ToLower(strings.TrimSpace(input)))
	switch mode {
	case domain.TradeModeBoth, domain.TradeModeBuyOnly, domain.TradeModeSellOnly:
		return mode, nil
	default:
		return "", fmt.Errorf("must be 'both', 'buy_only', or 'sell_only'")
	}
}
