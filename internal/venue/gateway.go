package venue

import (
	"context"

	"github.com/kirillm/candle-bot/internal/domain"
)

// MarketOrderSpec — запрос немедленного рыночного ордера
type MarketOrderSpec struct {
	Symbol  string
	Side    string
	Volume  float64
	Magic   int64
	Comment string
}

// PendingOrderSpec — запрос отложенной stop-заявки
type PendingOrderSpec struct {
	Symbol     string
	Kind       domain.OrderKind
	Volume     float64
	Price      float64
	TakeProfit float64
	StopLoss   float64
	Magic      int64
	Comment    string
}

// Gateway — возможности торговой площадки, которые потребляет ядро.
// Реализация владеет сессией; ядро только читает состояние и отправляет
// мутирующие запросы. Ошибки транспорта возвращаются как error; отказ самой
// площадки по торговому запросу приходит в OrderResult с retcode и причиной.
type Gateway interface {
	// GetBars возвращает последние count баров, новейший первым.
	// Позиция 0 — текущий (незавершенный) бар, позиция 1 — предыдущий.
	GetBars(ctx context.Context, symbol string, timeframe domain.Timeframe, count int) ([]domain.Bar, error)
	GetTick(ctx context.Context, symbol string) (domain.Tick, error)
	GetSymbolInfo(ctx context.Context, symbol string) (domain.SymbolInfo, error)

	SubmitMarketOrder(ctx context.Context, spec MarketOrderSpec) (domain.OrderResult, error)
	ModifyPosition(ctx context.Context, positionID int64, symbol string, takeProfit, stopLoss float64) error
	SubmitPendingOrder(ctx context.Context, spec PendingOrderSpec) (domain.OrderResult, error)
	CancelOrder(ctx context.Context, ticket int64) error

	ListPositions(ctx context.Context) ([]domain.Position, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)

	IsConnected(ctx context.Context) bool
	Reconnect(ctx context.Context) error
}
