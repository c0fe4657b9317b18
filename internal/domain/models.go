package domain

import (
	"fmt"
	"math"
	"time"
)

// Timeframe — длительность бара в нотации терминала (M1, M5, M15, M30, H1)
type Timeframe string

const (
	TimeframeM1  Timeframe = "M1"
	TimeframeM5  Timeframe = "M5"
	TimeframeM15 Timeframe = "M15"
	TimeframeM30 Timeframe = "M30"
	TimeframeH1  Timeframe = "H1"
)

var timeframeDurations = map[Timeframe]time.Duration{
	TimeframeM1:  time.Minute,
	TimeframeM5:  5 * time.Minute,
	TimeframeM15: 15 * time.Minute,
	TimeframeM30: 30 * time.Minute,
	TimeframeH1:  time.Hour,
}

// ParseTimeframe разбирает строку таймфрейма
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if !tf.Valid() {
		return "", fmt.Errorf("%w: unsupported timeframe %q", ErrInvalidInput, s)
	}
	return tf, nil
}

func (t Timeframe) Valid() bool {
	_, ok := timeframeDurations[t]
	return ok
}

// Duration возвращает длительность одного бара
func (t Timeframe) Duration() time.Duration {
	return timeframeDurations[t]
}

// TradeMode ограничивает направление торговли
type TradeMode string

const (
	TradeModeBoth     TradeMode = "both"
	TradeModeBuyOnly  TradeMode = "buy_only"
	TradeModeSellOnly TradeMode = "sell_only"
)

func (m TradeMode) Valid() bool {
	return m == TradeModeBoth || m == TradeModeBuyOnly || m == TradeModeSellOnly
}

func (m TradeMode) AllowsBuy() bool {
	return m == TradeModeBoth || m == TradeModeBuyOnly
}

func (m TradeMode) AllowsSell() bool {
	return m == TradeModeBoth || m == TradeModeSellOnly
}

// Signal — направление закрытого бара
type Signal int

const (
	SignalNeutral Signal = iota
	SignalBullish
	SignalBearish
)

func (s Signal) String() string {
	switch s {
	case SignalBullish:
		return "BULLISH"
	case SignalBearish:
		return "BEARISH"
	default:
		return "NEUTRAL"
	}
}

// Bar — завершенный бар цены
type Bar struct {
	Open      float64
	Close     float64
	OpenTime  time.Time
	CloseTime time.Time
}

// Size возвращает абсолютное движение цены за бар
func (b Bar) Size() float64 {
	return math.Abs(b.Close - b.Open)
}

// Fresh проверяет, что бар закрылся не раньше чем два таймфрейма назад.
// Более старые бары считаются устаревшими и отбрасываются.
func (b Bar) Fresh(now time.Time, timeframe time.Duration) bool {
	return now.Sub(b.CloseTime) <= 2*timeframe
}

// Tick — текущие котировки символа
type Tick struct {
	Bid float64
	Ask float64
}

// SymbolInfo — метаданные символа у площадки
type SymbolInfo struct {
	Digits  int
	Point   float64
	Visible bool
}

// OrderKind — тип заявки
type OrderKind string

const (
	OrderKindMarket   OrderKind = "MARKET"
	OrderKindBuyStop  OrderKind = "BUY_STOP"
	OrderKindSellStop OrderKind = "SELL_STOP"
)

// Position — открытая позиция в терминах площадки. Авторитетное состояние
// принадлежит площадке, ядро его не кэширует между циклами.
type Position struct {
	Ticket     int64
	Magic      int64
	Symbol     string
	Side       string
	Volume     float64
	Price      float64
	TakeProfit float64
	StopLoss   float64
}

// Order — отложенная заявка в терминах площадки
type Order struct {
	Ticket     int64
	Magic      int64
	Symbol     string
	Kind       OrderKind
	Volume     float64
	Price      float64
	TakeProfit float64
	StopLoss   float64
}

// OrderResult — ответ площадки на торговый запрос
type OrderResult struct {
	Retcode    int
	Reason     string
	Price      float64
	PositionID int64
}

// Done проверяет, что площадка приняла запрос
func (r OrderResult) Done() bool {
	return r.Retcode == RetcodeDone
}

// SubmissionRecord — журнальная запись отправки ордера
type SubmissionRecord struct {
	ID         int64
	Magic      int64
	Symbol     string
	Side       string
	Kind       OrderKind
	Volume     float64
	Price      float64
	TakeProfit float64
	StopLoss   float64
	Status     string
	Reason     string
	CreatedAt  time.Time
}

// CancellationRecord — журнальная запись отмены осиротевшей заявки
type CancellationRecord struct {
	ID        int64
	Ticket    int64
	Magic     int64
	Symbol    string
	Success   bool
	Reason    string
	CreatedAt time.Time
}
