// Package storage — журнал торговой активности в PostgreSQL. Журнал
// вторичен по отношению к торговле: ошибка записи логируется и глотается,
// авторитетное состояние ордеров всегда остается у площадки.
package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/kirillm/candle-bot/internal/config"
	"github.com/kirillm/candle-bot/internal/domain"
	"github.com/kirillm/candle-bot/internal/storage/repository"
	"github.com/kirillm/candle-bot/pkg/utils"
)

// PostgresStorage является фасадом для работы с PostgreSQL через репозитории
type PostgresStorage struct {
	db      *sql.DB
	orders  *repository.OrderRepository
	cancels *repository.CancelRepository
	logger  *utils.Logger
}

func NewPostgresStorage(cfg config.DatabaseConfig, logger *utils.Logger) (*PostgresStorage, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	storage := &PostgresStorage{
		db:      db,
		orders:  repository.NewOrderRepository(db),
		cancels: repository.NewCancelRepository(db),
		logger:  logger,
	}

	if err := storage.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return storage, nil
}

func (s *PostgresStorage) migrate() error {
	migrations := []string{
		// Журнал отправленных ордеров: рыночные входы и counter-заявки
		`CREATE TABLE IF NOT EXISTS order_log (
			id SERIAL PRIMARY KEY,
			magic BIGINT NOT NULL,
			symbol VARCHAR(20) NOT NULL,
			side VARCHAR(10) NOT NULL,
			kind VARCHAR(20) NOT NULL,
			volume DECIMAL(20, 8) NOT NULL,
			price DECIMAL(20, 8) NOT NULL,
			take_profit DECIMAL(20, 8) NOT NULL DEFAULT 0,
			stop_loss DECIMAL(20, 8) NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_order_log_magic ON order_log(magic)`,
		// Журнал отмен осиротевших counter-заявок
		`CREATE TABLE IF NOT EXISTS cancel_log (
			id SERIAL PRIMARY KEY,
			ticket BIGINT NOT NULL,
			magic BIGINT NOT NULL,
			symbol VARCHAR(20) NOT NULL,
			success BOOLEAN NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// RecordSubmission пишет отправку ордера в журнал, глотая ошибки записи
func (s *PostgresStorage) RecordSubmission(rec *domain.SubmissionRecord) {
	if err := s.orders.Save(rec); err != nil {
		s.logger.Error("failed to journal order submission (magic=%d): %v", rec.Magic, err)
	}
}

// RecordCancellation пишет отмену заявки в журнал, глотая ошибки записи
func (s *PostgresStorage) RecordCancellation(rec *domain.CancellationRecord) {
	if err := s.cancels.Save(rec); err != nil {
		s.logger.Error("failed to journal order cancellation (ticket=%d): %v", rec.Ticket, err)
	}
}

// RecentSubmissions возвращает последние записи журнала для отчетов
func (s *PostgresStorage) RecentSubmissions(limit int) ([]domain.SubmissionRecord, error) {
	return s.orders.GetRecent(limit)
}

// RecentCancellations возвращает последние отмены для отчетов
func (s *PostgresStorage) RecentCancellations(limit int) ([]domain.CancellationRecord, error) {
	return s.cancels.GetRecent(limit)
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
