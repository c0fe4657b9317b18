// Package engine — циклический драйвер бота: дождаться границы бара,
// прочитать конфигурацию, прогнать символы через оценку сигнала и
// исполнение. Каждый цикл начинается с чистого листа — состояние между
// циклами живет только у площадки.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirillm/candle-bot/internal/domain"
	"github.com/kirillm/candle-bot/internal/scheduler"
	"github.com/kirillm/candle-bot/internal/signal"
	"github.com/kirillm/candle-bot/internal/trader"
	"github.com/kirillm/candle-bot/internal/venue"
	"github.com/kirillm/candle-bot/pkg/utils"
)

// ConfigSource отдает актуальный торговый снапшот. Load читается заново в
// каждом цикле: правки из редактора настроек подхватываются без рестарта.
type ConfigSource interface {
	Load() (*domain.TradingConfig, error)
}

// Executor исполняет торговый сигнал по символу. Корреляционный magic
// выделяет сам исполнитель, когда доходит до отправки ордера.
type Executor interface {
	ExecuteSignal(ctx context.Context, symbol string, sig domain.Signal, settings domain.SymbolSettings, cfg *domain.TradingConfig) (trader.Outcome, error)
}

// Sweeper выполняет один проход сверки осиротевших заявок
type Sweeper interface {
	Run(ctx context.Context) error
}

// Options — тайминги цикла
type Options struct {
	ReconcilePoll    time.Duration
	BarFetchRetries  int
	BarFetchDelay    time.Duration
	ReconnectBackoff time.Duration
	ErrorBackoff     time.Duration
	ConfigRetryDelay time.Duration
}

type Engine struct {
	venue      venue.Gateway
	configs    ConfigSource
	trader     Executor
	reconciler Sweeper
	logger     *utils.Logger
	opts       Options

	// подменяются в тестах
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(gw venue.Gateway, configs ConfigSource, exec Executor, rec Sweeper, logger *utils.Logger, opts Options) *Engine {
	return &Engine{
		venue:      gw,
		configs:    configs,
		trader:     exec,
		reconciler: rec,
		logger:     logger,
		opts:       opts,
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

// Run крутит циклы до отмены контекста. Паника или ошибка одного цикла не
// роняет процесс: цикл логируется и после паузы запускается следующий.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := e.runCycle(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			e.logger.Error("cycle failed: %v", err)
			if err := e.sleep(ctx, e.opts.ErrorBackoff); err != nil {
				return err
			}
		}
	}
}

func (e *Engine) runCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panicked: %v", r)
		}
	}()

	if !e.venue.IsConnected(ctx) {
		e.logger.Warn("venue connection lost, reconnecting")
		if rerr := e.venue.Reconnect(ctx); rerr != nil {
			e.logger.Error("reconnect failed: %v", rerr)
			return e.sleep(ctx, e.opts.ReconnectBackoff)
		}
		e.logger.Info("venue connection restored")
	}

	cfg, cerr := e.configs.Load()
	if cerr != nil {
		e.logger.Error("trading config unavailable: %v", cerr)
		return e.sleep(ctx, e.opts.ConfigRetryDelay)
	}

	// минимум один проход сверки за цикл, даже если граница уже наступила
	e.reconcileTick(ctx)

	boundary := scheduler.NextBoundary(e.now(), cfg.Timeframe.Duration())
	e.logger.Debug("waiting for bar boundary %s", boundary.Format("15:04:05"))
	if werr := scheduler.WaitForBoundary(ctx, boundary, e.opts.ReconcilePoll, e.reconcileTick); werr != nil {
		return werr
	}

	// граница достигнута: сверка уже шла во время ожидания, дальше — торговля
	if !cfg.BotEnabled {
		e.logger.Debug("bot disabled, skipping trading pass")
		return nil
	}
	if !cfg.InWindow(e.now()) {
		e.logger.Debug("outside trading window %s-%s", cfg.StartTime, cfg.EndTime)
		return nil
	}

	for _, symbol := range cfg.Symbols {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if perr := e.processSymbol(ctx, symbol, cfg); perr != nil {
			e.logger.Error("[%s] symbol pass failed: %v", symbol, perr)
		}
	}

	return nil
}

// reconcileTick вызывается планировщиком, пока цикл ждет границу бара
func (e *Engine) reconcileTick(ctx context.Context) {
	if err := e.reconciler.Run(ctx); err != nil {
		e.logger.Warn("reconcile pass failed: %v", err)
	}
}

// processSymbol — один символ одного цикла: метаданные, закрытый бар,
// классификация, исполнение. До трейдера сигнал доходит только после всех
// фильтров — нейтральный бар не тратит корреляционный id.
func (e *Engine) processSymbol(ctx context.Context, symbol string, cfg *domain.TradingConfig) error {
	settings, ok := cfg.Settings[symbol]
	if !ok {
		e.logger.Warn("[%s] listed in symbols but has no settings, skipping", symbol)
		return nil
	}

	info, err := e.venue.GetSymbolInfo(ctx, symbol)
	if err != nil {
		return err
	}
	if !info.Visible {
		e.logger.Warn("[%s] not visible in terminal, skipping", symbol)
		return nil
	}

	bar, err := e.fetchPreviousBar(ctx, symbol, cfg.Timeframe)
	if err != nil {
		return err
	}

	e.logger.Info("[%s] candle %.*f -> %.*f (%.1f points)",
		symbol, info.Digits, bar.Open, info.Digits, bar.Close, bar.Size()/info.Point)

	sig := signal.Classify(bar, cfg.MinMovementPoints, info.Point)
	if sig == domain.SignalNeutral {
		e.logger.Info("[%s] movement below threshold, no trade", symbol)
		return nil
	}
	if !signal.Actionable(sig, cfg.TradeMode) {
		e.logger.Info("[%s] %s signal blocked by trade mode %s", symbol, sig, cfg.TradeMode)
		return nil
	}

	outcome, err := e.trader.ExecuteSignal(ctx, symbol, sig, settings, cfg)
	if err != nil {
		return err
	}
	e.logger.Info("[%s] signal %s executed: primary=%v counter=%v magic=%d",
		symbol, sig, outcome.PrimaryPlaced, outcome.CounterPlaced, outcome.Magic)
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
