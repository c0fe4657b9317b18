package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/kirillm/candle-bot/internal/domain"
)

// SnapshotStore читает и пишет торговый снапшот. Файл разделен с редактором
// настроек, поэтому каждый доступ идет под advisory-блокировкой, а запись —
// через временный файл и атомарный rename. Частично записанный документ
// снаружи блокировки увидеть нельзя.
type SnapshotStore struct {
	path string
	lock *flock.Flock
}

func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Load читает снапшот. Любая причина, по которой валидный снапшот получить
// не удалось, сворачивается в ErrConfigUnavailable: для цикла это временное
// состояние, не повод падать.
func (s *SnapshotStore) Load() (*domain.TradingConfig, error) {
	if err := s.lock.Lock(); err != nil {
		return nil, fmt.Errorf("%w: lock: %v", domain.ErrConfigUnavailable, err)
	}
	defer s.lock.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrConfigUnavailable, s.path, err)
	}

	var cfg domain.TradingConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrConfigUnavailable, s.path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigUnavailable, err)
	}

	return &cfg, nil
}

// Store записывает снапшот атомарно под блокировкой
func (s *SnapshotStore) Store(cfg *domain.TradingConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock snapshot: %w", err)
	}
	defer s.lock.Unlock()

	return s.write(cfg)
}

// Update выполняет read-modify-write под одной блокировкой. Используется
// редактором настроек, чтобы параллельные правки не теряли друг друга.
func (s *SnapshotStore) Update(mutate func(*domain.TradingConfig) error) error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock snapshot: %w", err)
	}
	defer s.lock.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	var cfg domain.TradingConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}

	if err := mutate(&cfg); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	return s.write(&cfg)
}

func (s *SnapshotStore) write(cfg *domain.TradingConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
