// Package scheduler выравнивает цикл по границам баров. Граница считается
// календарно (минута часа по модулю таймфрейма), а не накоплением интервалов,
// поэтому дрейф между циклами не копится.
package scheduler

import (
	"context"
	"time"
)

// NextBoundary возвращает наименьший момент >= now, кратный d от минутных
// границ эпохи. Момент, попавший точно на границу, возвращается как есть.
func NextBoundary(now time.Time, d time.Duration) time.Time {
	boundary := now.Truncate(d)
	if boundary.Equal(now) {
		return now
	}
	return boundary.Add(d)
}

// WaitForBoundary блокируется до boundary, вызывая fn каждые poll. Через fn
// подключается реконсилиация осиротевших заявок: она должна срабатывать
// каждые несколько секунд, а не раз в бар.
func WaitForBoundary(ctx context.Context, boundary time.Time, poll time.Duration, fn func(context.Context)) error {
	remaining := time.Until(boundary)
	if remaining <= 0 {
		return nil
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case <-ticker.C:
			if fn != nil {
				fn(ctx)
			}
		}
	}
}
