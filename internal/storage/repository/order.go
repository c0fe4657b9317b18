package repository

import (
	"database/sql"

	"github.com/kirillm/candle-bot/internal/domain"
)

// OrderRepository реализует журнал отправленных ордеров
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository создает новый репозиторий журнала ордеров
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Save сохраняет запись об отправке ордера
func (r *OrderRepository) Save(rec *domain.SubmissionRecord) error {
	query := `
		INSERT INTO order_log (magic, symbol, side, kind, volume, price, take_profit, stop_loss, status, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	return r.db.QueryRow(
		query,
		rec.Magic,
		rec.Symbol,
		rec.Side,
		string(rec.Kind),
		rec.Volume,
		rec.Price,
		rec.TakeProfit,
		rec.StopLoss,
		rec.Status,
		rec.Reason,
		rec.CreatedAt,
	).Scan(&rec.ID)
}

// GetRecent получает последние N записей журнала по всем символам
func (r *OrderRepository) GetRecent(limit int) ([]domain.SubmissionRecord, error) {
	query := `
		SELECT id, magic, symbol, side, kind, volume, price, take_profit, stop_loss, status, reason, created_at
		FROM order_log
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.SubmissionRecord
	for rows.Next() {
		var rec domain.SubmissionRecord
		var kind string
		if err := rows.Scan(
			&rec.ID,
			&rec.Magic,
			&rec.Symbol,
			&rec.Side,
			&kind,
			&rec.Volume,
			&rec.Price,
			&rec.TakeProfit,
			&rec.StopLoss,
			&rec.Status,
			&rec.Reason,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Kind = domain.OrderKind(kind)
		records = append(records, rec)
	}
	return records, rows.Err()
}
