package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillm/candle-bot/internal/domain"
)

func validTradingConfig() *domain.TradingConfig {
	return &domain.TradingConfig{
		BotEnabled:          true,
		Timeframe:           domain.TimeframeM15,
		MinMovementPoints:   30,
		Multiplier:          2,
		StartTime:           "09:00",
		EndTime:             "18:00",
		TradeMode:           domain.TradeModeBoth,
		CounterTradeEnabled: true,
		Symbols:             []string{"EURUSD"},
		Settings: map[string]domain.SymbolSettings{
			"EURUSD": {
				Volume: 0.1, TakeProfit: 0.005, StopLoss: 0.003,
				CounterDistance: 0.002, CounterTP: 0.004, CounterSL: 0.0025,
			},
		},
	}
}

func TestSnapshotStoreRoundTrip(t *testing.T) {
	store := NewSnapshotStore(filepath.Join(t.TempDir(), "config.yaml"))
	want := validTradingConfig()

	if err := store.Store(want); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Timeframe != want.Timeframe || got.TradeMode != want.TradeMode {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
	if got.Settings["EURUSD"] != want.Settings["EURUSD"] {
		t.Errorf("settings round trip mismatch: %+v", got.Settings["EURUSD"])
	}
}

func TestSnapshotStoreMissingFile(t *testing.T) {
	store := NewSnapshotStore(filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := store.Load()
	if !errors.Is(err, domain.ErrConfigUnavailable) {
		t.Errorf("Load() error = %v, want ErrConfigUnavailable", err)
	}
}

func TestSnapshotStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{not yaml: ["), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewSnapshotStore(path)
	if _, err := store.Load(); !errors.Is(err, domain.ErrConfigUnavailable) {
		t.Errorf("Load() error = %v, want ErrConfigUnavailable", err)
	}
}

func TestSnapshotStoreInvalidConfigRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	// синтаксически корректный, но невалидный снапшот
	if err := os.WriteFile(path, []byte("timeframe: M7\ntrade_mode: both\nmultiplier: 1\nstart_time: \"09:00\"\nend_time: \"18:00\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewSnapshotStore(path)
	if _, err := store.Load(); !errors.Is(err, domain.ErrConfigUnavailable) {
		t.Errorf("Load() error = %v, want ErrConfigUnavailable", err)
	}
}

func TestSnapshotStoreStoreRejectsInvalid(t *testing.T) {
	store := NewSnapshotStore(filepath.Join(t.TempDir(), "config.yaml"))
	cfg := validTradingConfig()
	cfg.Multiplier = -1

	if err := store.Store(cfg); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Store() error = %v, want ErrInvalidInput", err)
	}
}

func TestSnapshotStoreUpdate(t *testing.T) {
	store := NewSnapshotStore(filepath.Join(t.TempDir(), "config.yaml"))
	if err := store.Store(validTradingConfig()); err != nil {
		t.Fatal(err)
	}

	err := store.Update(func(cfg *domain.TradingConfig) error {
		cfg.BotEnabled = false
		cfg.MinMovementPoints = 50
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.BotEnabled || got.MinMovementPoints != 50 {
		t.Errorf("Update() not persisted: %+v", got)
	}
}

func TestSnapshotStoreUpdateRejectsInvalidMutation(t *testing.T) {
	store := NewSnapshotStore(filepath.Join(t.TempDir(), "config.yaml"))
	if err := store.Store(validTradingConfig()); err != nil {
		t.Fatal(err)
	}

	err := store.Update(func(cfg *domain.TradingConfig) error {
		cfg.Timeframe = "M7"
		return nil
	})
	if err == nil {
		t.Fatal("Update() should reject a mutation that breaks validation")
	}

	// файл не тронут
	got, lerr := store.Load()
	if lerr != nil {
		t.Fatal(lerr)
	}
	if got.Timeframe != domain.TimeframeM15 {
		t.Errorf("Timeframe = %v, want M15 after failed update", got.Timeframe)
	}
}

func TestSnapshotStoreUpdateMutationError(t *testing.T) {
	store := NewSnapshotStore(filepath.Join(t.TempDir(), "config.yaml"))
	if err := store.Store(validTradingConfig()); err != nil {
		t.Fatal(err)
	}

	wantErr := errors.New("user aborted")
	if err := store.Update(func(cfg *domain.TradingConfig) error { return wantErr }); !errors.Is(err, wantErr) {
		t.Errorf("Update() error = %v, want %v", err, wantErr)
	}
}
