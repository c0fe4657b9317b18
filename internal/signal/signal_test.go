package signal

import (
	"testing"

	"github.com/kirillm/candle-bot/internal/domain"
)

func bar(open, close float64) domain.Bar {
	return domain.Bar{Open: open, Close: close}
}

func TestClassify(t *testing.T) {
	const point = 0.0001

	tests := []struct {
		name      string
		bar       domain.Bar
		minPoints int
		want      domain.Signal
	}{
		// 50 пунктов движения при пороге 30
		{"bullish above threshold", bar(1.1000, 1.1050), 30, domain.SignalBullish},
		// 2 пункта при пороге 30
		{"small move is neutral", bar(1.1000, 1.1002), 30, domain.SignalNeutral},
		{"bearish above threshold", bar(1.1050, 1.1000), 30, domain.SignalBearish},
		{"doji is neutral", bar(1.1000, 1.1000), 30, domain.SignalNeutral},
		{"doji with zero threshold", bar(1.1000, 1.1000), 0, domain.SignalNeutral},
		{"zero threshold any move bullish", bar(1.1000, 1.1001), 0, domain.SignalBullish},
		{"zero threshold any move bearish", bar(1.1001, 1.1000), 0, domain.SignalBearish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.bar, tt.minPoints, point)
			if got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
			// Классификация идемпотентна
			if again := Classify(tt.bar, tt.minPoints, point); again != got {
				t.Errorf("Classify() second call = %v, first = %v", again, got)
			}
		})
	}
}

func TestClassifyThresholdEdge(t *testing.T) {
	// двоично-точные значения: порог 30 * 0.25 = 7.5, движение ровно 7.5
	const point = 0.25
	if got := Classify(bar(100, 107.5), 30, point); got != domain.SignalBullish {
		t.Errorf("move equal to threshold: Classify() = %v, want BULLISH", got)
	}
	if got := Classify(bar(100, 107.25), 30, point); got != domain.SignalNeutral {
		t.Errorf("move below threshold: Classify() = %v, want NEUTRAL", got)
	}
}

func TestActionable(t *testing.T) {
	tests := []struct {
		name   string
		signal domain.Signal
		mode   domain.TradeMode
		want   bool
	}{
		{"bullish both", domain.SignalBullish, domain.TradeModeBoth, true},
		{"bullish buy_only", domain.SignalBullish, domain.TradeModeBuyOnly, true},
		{"bullish sell_only", domain.SignalBullish, domain.TradeModeSellOnly, false},
		{"bearish both", domain.SignalBearish, domain.TradeModeBoth, true},
		{"bearish buy_only", domain.SignalBearish, domain.TradeModeBuyOnly, false},
		{"bearish sell_only", domain.SignalBearish, domain.TradeModeSellOnly, true},
		{"neutral never actionable", domain.SignalNeutral, domain.TradeModeBoth, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Actionable(tt.signal, tt.mode); got != tt.want {
				t.Errorf("Actionable(%v, %v) = %v, want %v", tt.signal, tt.mode, got, tt.want)
			}
		})
	}
}
