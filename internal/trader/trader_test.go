package trader

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillm/candle-bot/internal/domain"
	"github.com/kirillm/candle-bot/internal/venue"
	"github.com/kirillm/candle-bot/pkg/utils"
)

// fakeGateway — управляемая площадка для тестов trader
type fakeGateway struct {
	tick    domain.Tick
	tickErr error

	marketResult domain.OrderResult
	marketErr    error
	marketSpecs  []venue.MarketOrderSpec

	modifyErr   error
	modifyCalls []struct {
		PositionID int64
		TakeProfit float64
		StopLoss   float64
	}

	pendingResult domain.OrderResult
	pendingErr    error
	pendingSpecs  []venue.PendingOrderSpec

	positions []domain.Position
	orders    []domain.Order
}

func (f *fakeGateway) GetBars(ctx context.Context, symbol string, tf domain.Timeframe, count int) ([]domain.Bar, error) {
	return nil, nil
}

func (f *fakeGateway) GetTick(ctx context.Context, symbol string) (domain.Tick, error) {
	return f.tick, f.tickErr
}

func (f *fakeGateway) GetSymbolInfo(ctx context.Context, symbol string) (domain.SymbolInfo, error) {
	return domain.SymbolInfo{Digits: 5, Point: 0.00001, Visible: true}, nil
}

func (f *fakeGateway) SubmitMarketOrder(ctx context.Context, spec venue.MarketOrderSpec) (domain.OrderResult, error) {
	f.marketSpecs = append(f.marketSpecs, spec)
	return f.marketResult, f.marketErr
}

func (f *fakeGateway) ModifyPosition(ctx context.Context, positionID int64, symbol string, tp, sl float64) error {
	f.modifyCalls = append(f.modifyCalls, struct {
		PositionID int64
		TakeProfit float64
		StopLoss   float64
	}{positionID, tp, sl})
	return f.modifyErr
}

func (f *fakeGateway) SubmitPendingOrder(ctx context.Context, spec venue.PendingOrderSpec) (domain.OrderResult, error) {
	f.pendingSpecs = append(f.pendingSpecs, spec)
	return f.pendingResult, f.pendingErr
}

func (f *fakeGateway) CancelOrder(ctx context.Context, ticket int64) error { return nil }

func (f *fakeGateway) ListPositions(ctx context.Context) ([]domain.Position, error) {
	return f.positions, nil
}

func (f *fakeGateway) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return f.orders, nil
}

func (f *fakeGateway) IsConnected(ctx context.Context) bool { return true }
func (f *fakeGateway) Reconnect(ctx context.Context) error  { return nil }

type memJournal struct {
	records []*domain.SubmissionRecord
}

func (j *memJournal) RecordSubmission(rec *domain.SubmissionRecord) {
	j.records = append(j.records, rec)
}

func testSettings() domain.SymbolSettings {
	return domain.SymbolSettings{
		Volume:          0.1,
		TakeProfit:      0.0050,
		StopLoss:        0.0030,
		CounterDistance: 0.0020,
		CounterTP:       0.0040,
		CounterSL:       0.0025,
	}
}

func testConfig() *domain.TradingConfig {
	return &domain.TradingConfig{
		BotEnabled:          true,
		Timeframe:           domain.TimeframeM15,
		MinMovementPoints:   30,
		Multiplier:          2,
		StartTime:           "00:00",
		EndTime:             "23:59",
		TradeMode:           domain.TradeModeBoth,
		CounterTradeEnabled: true,
	}
}

func acceptedFill(price float64, positionID int64) domain.OrderResult {
	return domain.OrderResult{Retcode: domain.RetcodeDone, Price: price, PositionID: positionID}
}

func TestExecuteSignalBullishOpensBuyWithCounter(t *testing.T) {
	gw := &fakeGateway{
		tick:          domain.Tick{Bid: 1.1048, Ask: 1.1052},
		marketResult:  acceptedFill(1.1052, 777),
		pendingResult: domain.OrderResult{Retcode: domain.RetcodeDone},
	}
	journal := &memJournal{}
	tr := New(gw, NewMagicCounter(100005), journal, utils.NewLogger("error"))

	outcome, err := tr.ExecuteSignal(context.Background(), "EURUSD", domain.SignalBullish, testSettings(), testConfig())
	require.NoError(t, err)

	require.Len(t, gw.marketSpecs, 1)
	assert.Equal(t, domain.SideBuy, gw.marketSpecs[0].Side)
	assert.Equal(t, 0.1, gw.marketSpecs[0].Volume)
	assert.Equal(t, int64(100005), gw.marketSpecs[0].Magic)
	assert.Equal(t, domain.CommentPrimary, gw.marketSpecs[0].Comment)

	// TP/SL считаются от реальной цены заливки, не от котировки
	require.Len(t, gw.modifyCalls, 1)
	assert.Equal(t, int64(777), gw.modifyCalls[0].PositionID)
	assert.InDelta(t, 1.1102, gw.modifyCalls[0].TakeProfit, 1e-9)
	assert.InDelta(t, 1.1022, gw.modifyCalls[0].StopLoss, 1e-9)

	// counter: sell stop ниже входа, объем умножен, тот же magic
	require.Len(t, gw.pendingSpecs, 1)
	counter := gw.pendingSpecs[0]
	assert.Equal(t, domain.OrderKindSellStop, counter.Kind)
	assert.InDelta(t, 1.1032, counter.Price, 1e-9)
	assert.InDelta(t, 1.0992, counter.TakeProfit, 1e-9)
	assert.InDelta(t, 1.1077, counter.StopLoss, 1e-9)
	assert.InDelta(t, 0.2, counter.Volume, 1e-9)
	assert.Equal(t, int64(100005), counter.Magic)
	assert.Equal(t, domain.CommentCounter, counter.Comment)

	assert.True(t, outcome.PrimaryPlaced)
	assert.True(t, outcome.CounterPlaced)
	assert.InDelta(t, 1.1052, outcome.EntryPrice, 1e-9)

	require.Len(t, journal.records, 2)
	assert.Equal(t, domain.StatusFilled, journal.records[0].Status)
	assert.Equal(t, domain.StatusPlaced, journal.records[1].Status)
}

func TestExecuteSignalBearishOpensSellWithBuyStopCounter(t *testing.T) {
	gw := &fakeGateway{
		tick:          domain.Tick{Bid: 1.2000, Ask: 1.2004},
		marketResult:  acceptedFill(1.2000, 42),
		pendingResult: domain.OrderResult{Retcode: domain.RetcodeDone},
	}
	tr := New(gw, NewMagicCounter(100010), nil, utils.NewLogger("error"))

	outcome, err := tr.ExecuteSignal(context.Background(), "EURUSD", domain.SignalBearish, testSettings(), testConfig())
	require.NoError(t, err)
	assert.True(t, outcome.PrimaryPlaced)

	require.Len(t, gw.marketSpecs, 1)
	assert.Equal(t, domain.SideSell, gw.marketSpecs[0].Side)

	require.Len(t, gw.modifyCalls, 1)
	assert.InDelta(t, 1.1950, gw.modifyCalls[0].TakeProfit, 1e-9)
	assert.InDelta(t, 1.2030, gw.modifyCalls[0].StopLoss, 1e-9)

	require.Len(t, gw.pendingSpecs, 1)
	counter := gw.pendingSpecs[0]
	assert.Equal(t, domain.OrderKindBuyStop, counter.Kind)
	assert.InDelta(t, 1.2020, counter.Price, 1e-9)
	assert.InDelta(t, 1.2060, counter.TakeProfit, 1e-9)
	assert.InDelta(t, 1.1975, counter.StopLoss, 1e-9)
}

func TestExecuteSignalTickFailureReturnsError(t *testing.T) {
	gw := &fakeGateway{tickErr: errors.New("bridge timeout")}
	tr := New(gw, NewMagicCounter(100001), nil, utils.NewLogger("error"))

	_, err := tr.ExecuteSignal(context.Background(), "EURUSD", domain.SignalBullish, testSettings(), testConfig())
	require.Error(t, err)
	assert.Empty(t, gw.marketSpecs)
	assert.Empty(t, gw.pendingSpecs)

	// сбой тика не тратит id: после восстановления связи первый ордер
	// уходит с исходной затравкой
	gw.tickErr = nil
	gw.tick = domain.Tick{Bid: 1.1048, Ask: 1.1052}
	gw.marketResult = acceptedFill(1.1052, 5)
	gw.pendingResult = domain.OrderResult{Retcode: domain.RetcodeDone}

	outcome, err := tr.ExecuteSignal(context.Background(), "EURUSD", domain.SignalBullish, testSettings(), testConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(100001), outcome.Magic)
	require.Len(t, gw.marketSpecs, 1)
	assert.Equal(t, int64(100001), gw.marketSpecs[0].Magic)
}

func TestExecuteSignalRejectedPrimarySuppressesCounterByDefault(t *testing.T) {
	gw := &fakeGateway{
		tick:         domain.Tick{Bid: 1.1000, Ask: 1.1002},
		marketResult: domain.OrderResult{Retcode: 10019, Reason: "No money"},
	}
	journal := &memJournal{}
	tr := New(gw, NewMagicCounter(100002), journal, utils.NewLogger("error"))

	outcome, err := tr.ExecuteSignal(context.Background(), "EURUSD", domain.SignalBullish, testSettings(), testConfig())
	require.NoError(t, err)
	assert.False(t, outcome.PrimaryPlaced)
	assert.False(t, outcome.CounterPlaced)
	assert.Empty(t, gw.pendingSpecs)

	require.Len(t, journal.records, 1)
	assert.Equal(t, domain.StatusRejected, journal.records[0].Status)
	assert.Contains(t, journal.records[0].Reason, "10019")
}

func TestExecuteSignalCounterOnFailedEntryUsesQuote(t *testing.T) {
	gw := &fakeGateway{
		tick:          domain.Tick{Bid: 1.1000, Ask: 1.1002},
		marketResult:  domain.OrderResult{Retcode: 10019, Reason: "No money"},
		pendingResult: domain.OrderResult{Retcode: domain.RetcodeDone},
	}
	cfg := testConfig()
	cfg.CounterOnFailedEntry = true
	tr := New(gw, NewMagicCounter(100003), nil, utils.NewLogger("error"))

	outcome, err := tr.ExecuteSignal(context.Background(), "EURUSD", domain.SignalBullish, testSettings(), cfg)
	require.NoError(t, err)
	assert.False(t, outcome.PrimaryPlaced)
	assert.True(t, outcome.CounterPlaced)

	// вход не состоялся, дистанции считаются от котировки ask
	require.Len(t, gw.pendingSpecs, 1)
	assert.InDelta(t, 1.0982, gw.pendingSpecs[0].Price, 1e-9)
}

func TestExecuteSignalNoCounterOutsideBothMode(t *testing.T) {
	gw := &fakeGateway{
		tick:         domain.Tick{Bid: 1.1048, Ask: 1.1052},
		marketResult: acceptedFill(1.1052, 1),
	}
	cfg := testConfig()
	cfg.TradeMode = domain.TradeModeBuyOnly
	tr := New(gw, NewMagicCounter(100004), nil, utils.NewLogger("error"))

	outcome, err := tr.ExecuteSignal(context.Background(), "EURUSD", domain.SignalBullish, testSettings(), cfg)
	require.NoError(t, err)
	assert.True(t, outcome.PrimaryPlaced)
	assert.False(t, outcome.CounterPlaced)
	assert.Empty(t, gw.pendingSpecs)
}

func TestExecuteSignalCounterDisabled(t *testing.T) {
	gw := &fakeGateway{
		tick:         domain.Tick{Bid: 1.1048, Ask: 1.1052},
		marketResult: acceptedFill(1.1052, 1),
	}
	cfg := testConfig()
	cfg.CounterTradeEnabled = false
	tr := New(gw, NewMagicCounter(100004), nil, utils.NewLogger("error"))

	outcome, err := tr.ExecuteSignal(context.Background(), "EURUSD", domain.SignalBullish, testSettings(), cfg)
	require.NoError(t, err)
	assert.True(t, outcome.PrimaryPlaced)
	assert.Empty(t, gw.pendingSpecs)
}

func TestExecuteSignalModifyFailureKeepsPosition(t *testing.T) {
	gw := &fakeGateway{
		tick:          domain.Tick{Bid: 1.1048, Ask: 1.1052},
		marketResult:  acceptedFill(1.1052, 9),
		modifyErr:     errors.New("invalid stops"),
		pendingResult: domain.OrderResult{Retcode: domain.RetcodeDone},
	}
	tr := New(gw, NewMagicCounter(100006), nil, utils.NewLogger("error"))

	outcome, err := tr.ExecuteSignal(context.Background(), "EURUSD", domain.SignalBullish, testSettings(), testConfig())
	require.NoError(t, err)

	// позиция остается открытой без TP/SL, counter все равно ставится
	assert.True(t, outcome.PrimaryPlaced)
	assert.True(t, outcome.CounterPlaced)
}

func TestSeedMagicCounterFromVenueState(t *testing.T) {
	gw := &fakeGateway{
		positions: []domain.Position{{Ticket: 1, Magic: 100200}},
		orders:    []domain.Order{{Ticket: 2, Magic: 100500}},
	}

	counter, err := SeedMagicCounter(context.Background(), gw)
	require.NoError(t, err)
	assert.Equal(t, int64(100501), counter.Next())
	assert.Equal(t, int64(100502), counter.Next())
}

func TestSeedMagicCounterEmptyVenue(t *testing.T) {
	counter, err := SeedMagicCounter(context.Background(), &fakeGateway{})
	require.NoError(t, err)
	assert.Equal(t, int64(domain.MagicSeed), counter.Next())
}
