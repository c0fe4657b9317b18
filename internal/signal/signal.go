// Package signal классифицирует завершенный бар в торговый сигнал
package signal

import (
	"github.com/kirillm/candle-bot/internal/domain"
)

// Classify сравнивает движение бара с порогом minMovementPoints, выраженным
// в пунктах символа. Движение меньше порога — нейтральный бар, сделки нет.
// Классификация тотальна: любой бар дает ровно один из трех сигналов.
func Classify(bar domain.Bar, minMovementPoints int, point float64) domain.Signal {
	if bar.Size() < float64(minMovementPoints)*point {
		return domain.SignalNeutral
	}
	switch {
	case bar.Close > bar.Open:
		return domain.SignalBullish
	case bar.Close < bar.Open:
		return domain.SignalBearish
	default:
		// close == open при движении выше порога невозможно по построению,
		// но направления у такого бара все равно нет
		return domain.SignalNeutral
	}
}

// Actionable проверяет, разрешает ли режим торговли исполнение сигнала
func Actionable(s domain.Signal, mode domain.TradeMode) bool {
	switch s {
	case domain.SignalBullish:
		return mode.AllowsBuy()
	case domain.SignalBearish:
		return mode.AllowsSell()
	default:
		return false
	}
}
