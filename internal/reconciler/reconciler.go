// Package reconciler снимает осиротевшие counter-заявки: отложенная заявка
// считается сиротой, когда среди открытых позиций больше нет позиции с ее
// magic (основная позиция закрылась по TP или SL).
package reconciler

import (
	"context"
	"time"

	"github.com/kirillm/candle-bot/internal/domain"
	"github.com/kirillm/candle-bot/internal/venue"
	"github.com/kirillm/candle-bot/pkg/utils"
)

// Journal пишет отмены в журнал. Ошибки журнала реализация глотает сама.
type Journal interface {
	RecordCancellation(rec *domain.CancellationRecord)
}

type Reconciler struct {
	venue   venue.Gateway
	journal Journal
	logger  *utils.Logger
}

func New(gw venue.Gateway, journal Journal, logger *utils.Logger) *Reconciler {
	return &Reconciler{
		venue:   gw,
		journal: journal,
		logger:  logger,
	}
}

// Run выполняет один проход сверки. Проход идемпотентен: повторный запуск на
// том же состоянии площадки ничего не отменяет. Неудачная отмена не
// ретраится внутри прохода — заявка останется сиротой и попадет под
// следующий проход.
func (r *Reconciler) Run(ctx context.Context) error {
	positions, err := r.venue.ListPositions(ctx)
	if err != nil {
		return err
	}
	orders, err := r.venue.ListOrders(ctx)
	if err != nil {
		return err
	}

	alive := make(map[int64]struct{}, len(positions))
	for _, p := range positions {
		alive[p.Magic] = struct{}{}
	}

	for _, o := range orders {
		if _, ok := alive[o.Magic]; ok {
			continue
		}
		if err := r.venue.CancelOrder(ctx, o.Ticket); err != nil {
			r.logger.Error("[%s] failed to cancel orphaned order %d (magic=%d): %v", o.Symbol, o.Ticket, o.Magic, err)
			r.record(o, false, err.Error())
			continue
		}
		r.logger.Info("[%s] cancelled orphaned order %d (magic=%d)", o.Symbol, o.Ticket, o.Magic)
		r.record(o, true, "")
	}

	return nil
}

func (r *Reconciler) record(o domain.Order, success bool, reason string) {
	if r.journal == nil {
		return
	}
	r.journal.RecordCancellation(&domain.CancellationRecord{
		Ticket:    o.Ticket,
		Magic:     o.Magic,
		Symbol:    o.Symbol,
		Success:   success,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	})
}
