// Package trader исполняет торговый сигнал: рыночный ордер, навешивание
// TP/SL на залитую позицию и коррелированная counter-заявка в противоположную
// сторону.
package trader

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillm/candle-bot/internal/domain"
	"github.com/kirillm/candle-bot/internal/venue"
	"github.com/kirillm/candle-bot/pkg/utils"
)

// Journal пишет отправки ордеров в журнал. Ошибки журнала не должны влиять
// на торговый поток, реализация обязана их глотать и логировать сама.
type Journal interface {
	RecordSubmission(rec *domain.SubmissionRecord)
}

// Outcome — итог исполнения сигнала по одному символу
type Outcome struct {
	Magic         int64
	PrimaryPlaced bool
	EntryPrice    float64
	CounterPlaced bool
	CounterPrice  float64
}

type Trader struct {
	venue   venue.Gateway
	magics  *MagicCounter
	journal Journal
	logger  *utils.Logger
}

func New(gw venue.Gateway, magics *MagicCounter, journal Journal, logger *utils.Logger) *Trader {
	return &Trader{
		venue:   gw,
		magics:  magics,
		journal: journal,
		logger:  logger,
	}
}

// ExecuteSignal открывает основной ордер и, если разрешено, counter-заявку
// под тем же magic. Magic выделяется только после того, как тик получен и
// сигнал исполним: сбой до первой отправки не тратит id. Ошибка возвращается
// только для транспортных сбоев до первой отправки (символ пропускается в
// этом цикле); отказ площадки по самим ордерам логируется и не ретраится.
func (t *Trader) ExecuteSignal(
	ctx context.Context,
	symbol string,
	sig domain.Signal,
	settings domain.SymbolSettings,
	cfg *domain.TradingConfig,
) (Outcome, error) {
	var outcome Outcome

	tick, err := t.venue.GetTick(ctx, symbol)
	if err != nil {
		return outcome, fmt.Errorf("[%s] failed to get tick: %w", symbol, err)
	}

	var side string
	var quote float64
	switch sig {
	case domain.SignalBullish:
		side = domain.SideBuy
		quote = tick.Ask
	case domain.SignalBearish:
		side = domain.SideSell
		quote = tick.Bid
	default:
		return outcome, fmt.Errorf("[%s] signal %v is not executable: %w", symbol, sig, domain.ErrInvalidInput)
	}

	magic := t.magics.Next()
	outcome.Magic = magic

	entryPrice := t.openPrimary(ctx, symbol, side, quote, settings, magic, &outcome)

	// Counter-заявка требует режим both: она направлена против основного
	// ордера. После неудачного входа hedge ставится только при явно
	// включенном counter_on_failed_entry.
	if !cfg.CounterTradeEnabled || cfg.TradeMode != domain.TradeModeBoth {
		return outcome, nil
	}
	if !outcome.PrimaryPlaced && !cfg.CounterOnFailedEntry {
		t.logger.Info("[%s] primary order failed, counter trade suppressed", symbol)
		return outcome, nil
	}

	base := entryPrice
	if base == 0 {
		base = quote
	}
	t.placeCounter(ctx, symbol, side, base, settings, cfg.Multiplier, magic, &outcome)

	return outcome, nil
}

// openPrimary отправляет рыночный ордер и навешивает TP/SL на полученную
// позицию. Возвращает цену входа (0 — вход не состоялся).
func (t *Trader) openPrimary(
	ctx context.Context,
	symbol, side string,
	quote float64,
	settings domain.SymbolSettings,
	magic int64,
	outcome *Outcome,
) float64 {
	result, err := t.venue.SubmitMarketOrder(ctx, venue.MarketOrderSpec{
		Symbol:  symbol,
		Side:    side,
		Volume:  settings.Volume,
		Magic:   magic,
		Comment: domain.CommentPrimary,
	})
	if err != nil {
		t.logger.Error("[%s] failed to submit %s order: %v", symbol, side, err)
		t.record(magic, symbol, side, domain.OrderKindMarket, settings.Volume, quote, 0, 0,
			domain.StatusRejected, err.Error())
		return 0
	}
	if !result.Done() {
		t.logger.Error("[%s] %s order rejected: retcode=%d %s", symbol, side, result.Retcode, result.Reason)
		t.record(magic, symbol, side, domain.OrderKindMarket, settings.Volume, quote, 0, 0,
			domain.StatusRejected, fmt.Sprintf("retcode=%d %s", result.Retcode, result.Reason))
		return 0
	}

	fill := result.Price
	var takeProfit, stopLoss float64
	if side == domain.SideBuy {
		takeProfit = fill + settings.TakeProfit
		stopLoss = fill - settings.StopLoss
	} else {
		takeProfit = fill - settings.TakeProfit
		stopLoss = fill + settings.StopLoss
	}

	// Ошибка навешивания TP/SL логируется, но вход не откатывается и
	// повторно не отправляется
	if err := t.venue.ModifyPosition(ctx, result.PositionID, symbol, takeProfit, stopLoss); err != nil {
		t.logger.Error("[%s] failed to attach TP/SL to position %d: %v", symbol, result.PositionID, err)
	} else {
		t.logger.Info("[%s] opened %s at %v: tp=%v sl=%v magic=%d", symbol, side, fill, takeProfit, stopLoss, magic)
	}

	outcome.PrimaryPlaced = true
	outcome.EntryPrice = fill
	t.record(magic, symbol, side, domain.OrderKindMarket, settings.Volume, fill, takeProfit, stopLoss,
		domain.StatusFilled, "")
	return fill
}

// placeCounter ставит отложенную stop-заявку против основного направления
func (t *Trader) placeCounter(
	ctx context.Context,
	symbol, primarySide string,
	entryPrice float64,
	settings domain.SymbolSettings,
	multiplier float64,
	magic int64,
	outcome *Outcome,
) {
	var kind domain.OrderKind
	var side string
	var price, takeProfit, stopLoss float64
	if primarySide == domain.SideBuy {
		kind = domain.OrderKindSellStop
		side = domain.SideSell
		price = entryPrice - settings.CounterDistance
		takeProfit = price - settings.CounterTP
		stopLoss = entryPrice + settings.CounterSL
	} else {
		kind = domain.OrderKindBuyStop
		side = domain.SideBuy
		price = entryPrice + settings.CounterDistance
		takeProfit = price + settings.CounterTP
		stopLoss = entryPrice - settings.CounterSL
	}

	volume := settings.Volume * multiplier
	result, err := t.venue.SubmitPendingOrder(ctx, venue.PendingOrderSpec{
		Symbol:     symbol,
		Kind:       kind,
		Volume:     volume,
		Price:      price,
		TakeProfit: takeProfit,
		StopLoss:   stopLoss,
		Magic:      magic,
		Comment:    domain.CommentCounter,
	})
	if err != nil {
		t.logger.Error("[%s] failed to submit %s counter order: %v", symbol, kind, err)
		t.record(magic, symbol, side, kind, volume, price, takeProfit, stopLoss,
			domain.StatusRejected, err.Error())
		return
	}
	if !result.Done() {
		t.logger.Error("[%s] %s counter order rejected: retcode=%d %s", symbol, kind, result.Retcode, result.Reason)
		t.record(magic, symbol, side, kind, volume, price, takeProfit, stopLoss,
			domain.StatusRejected, fmt.Sprintf("retcode=%d %s", result.Retcode, result.Reason))
		return
	}

	t.logger.Info("[%s] placed %s counter at %v: volume=%v magic=%d", symbol, kind, price, volume, magic)
	outcome.CounterPlaced = true
	outcome.CounterPrice = price
	t.record(magic, symbol, side, kind, volume, price, takeProfit, stopLoss, domain.StatusPlaced, "")
}

func (t *Trader) record(magic int64, symbol, side string, kind domain.OrderKind, volume, price, tp, sl float64, status, reason string) {
	if t.journal == nil {
		return
	}
	t.journal.RecordSubmission(&domain.SubmissionRecord{
		Magic:      magic,
		Symbol:     symbol,
		Side:       side,
		Kind:       kind,
		Volume:     volume,
		Price:      price,
		TakeProfit: tp,
		StopLoss:   sl,
		Status:     status,
		Reason:     reason,
		CreatedAt:  time.Now().UTC(),
	})
}
