package engine

import (
	"context"
	"fmt"

	"github.com/kirillm/candle-bot/internal/domain"
)

// fetchPreviousBar достает последний закрытый бар символа. Площадка может
// отдать неполную историю сразу после переподключения, поэтому короткий
// ответ ретраится. Устаревший бар означает, что символ не торгуется прямо
// сейчас — ретраи бессмысленны, символ пропускается немедленно.
func (e *Engine) fetchPreviousBar(ctx context.Context, symbol string, timeframe domain.Timeframe) (domain.Bar, error) {
	duration := timeframe.Duration()

	for attempt := 1; attempt <= e.opts.BarFetchRetries; attempt++ {
		bars, err := e.venue.GetBars(ctx, symbol, timeframe, 2)
		if err != nil {
			e.logger.Warn("[%s] bar fetch attempt %d/%d failed: %v", symbol, attempt, e.opts.BarFetchRetries, err)
		} else if len(bars) < 2 {
			e.logger.Warn("[%s] bar fetch attempt %d/%d returned %d bars", symbol, attempt, e.opts.BarFetchRetries, len(bars))
		} else {
			current, prev := bars[0], bars[1]
			if !prev.Fresh(e.now(), duration) {
				return domain.Bar{}, fmt.Errorf("[%s] previous bar closed at %s: %w",
					symbol, prev.CloseTime.Format("15:04:05"), domain.ErrStaleBar)
			}
			if !current.OpenTime.Equal(prev.OpenTime.Add(duration)) {
				e.logger.Warn("[%s] bar sequence gap: previous opened at %s, current at %s",
					symbol, prev.OpenTime.Format("15:04:05"), current.OpenTime.Format("15:04:05"))
			}
			return prev, nil
		}

		if attempt < e.opts.BarFetchRetries {
			if err := e.sleep(ctx, e.opts.BarFetchDelay); err != nil {
				return domain.Bar{}, err
			}
		}
	}

	return domain.Bar{}, fmt.Errorf("[%s] no usable bars after %d attempts: %w",
		symbol, e.opts.BarFetchRetries, domain.ErrBarFetch)
}
