package repository

import (
	"database/sql"

	"github.com/kirillm/candle-bot/internal/domain"
)

// CancelRepository реализует журнал отмен осиротевших заявок
type CancelRepository struct {
	db *sql.DB
}

// NewCancelRepository создает новый репозиторий журнала отмен
func NewCancelRepository(db *sql.DB) *CancelRepository {
	return &CancelRepository{db: db}
}

// Save сохраняет запись об отмене заявки
func (r *CancelRepository) Save(rec *domain.CancellationRecord) error {
	query := `
		INSERT INTO cancel_log (ticket, magic, symbol, success, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return r.db.QueryRow(
		query,
		rec.Ticket,
		rec.Magic,
		rec.Symbol,
		rec.Success,
		rec.Reason,
		rec.CreatedAt,
	).Scan(&rec.ID)
}

// GetRecent получает последние N записей об отменах
func (r *CancelRepository) GetRecent(limit int) ([]domain.CancellationRecord, error) {
	query := `
		SELECT id, ticket, magic, symbol, success, reason, created_at
		FROM cancel_log
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.CancellationRecord
	for rows.Next() {
		var rec domain.CancellationRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.Ticket,
			&rec.Magic,
			&rec.Symbol,
			&rec.Success,
			&rec.Reason,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
