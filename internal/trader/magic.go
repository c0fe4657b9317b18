package trader

import (
	"context"
	"fmt"
	"sync"

	"github.com/kirillm/candle-bot/internal/domain"
	"github.com/kirillm/candle-bot/internal/venue"
)

// MagicCounter выдает корреляционные id (magic) — строго возрастающие в
// пределах жизни процесса. Id связывает основной ордер, его counter-заявку и
// позицию, которую они порождают.
type MagicCounter struct {
	mu   sync.Mutex
	next int64
}

func NewMagicCounter(seed int64) *MagicCounter {
	return &MagicCounter{next: seed}
}

// SeedMagicCounter строит счетчик поверх живого состояния площадки: затравка
// строго больше максимального magic среди открытых позиций и отложенных
// заявок, чтобы id не переиспользовался, пока его ордера могут существовать.
func SeedMagicCounter(ctx context.Context, gw venue.Gateway) (*MagicCounter, error) {
	positions, err := gw.ListPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed magic counter: %w", err)
	}
	orders, err := gw.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed magic counter: %w", err)
	}

	var max int64
	for _, p := range positions {
		if p.Magic > max {
			max = p.Magic
		}
	}
	for _, o := range orders {
		if o.Magic > max {
			max = o.Magic
		}
	}

	if max == 0 {
		return NewMagicCounter(domain.MagicSeed), nil
	}
	return NewMagicCounter(max + 1), nil
}

// Next возвращает следующий id
func (c *MagicCounter) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	magic := c.next
	c.next++
	return magic
}
