package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func TestNextBoundary(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		d    time.Duration
		want time.Time
	}{
		{"15m mid-interval", ts("2025-03-10T10:07:00Z"), 15 * time.Minute, ts("2025-03-10T10:15:00Z")},
		{"15m exact boundary stays", ts("2025-03-10T10:15:00Z"), 15 * time.Minute, ts("2025-03-10T10:15:00Z")},
		{"15m one second past", ts("2025-03-10T10:15:01Z"), 15 * time.Minute, ts("2025-03-10T10:30:00Z")},
		{"1m with seconds", ts("2025-03-10T10:07:42Z"), time.Minute, ts("2025-03-10T10:08:00Z")},
		{"30m before half hour", ts("2025-03-10T10:29:59Z"), 30 * time.Minute, ts("2025-03-10T10:30:00Z")},
		{"1h mid-hour", ts("2025-03-10T10:07:00Z"), time.Hour, ts("2025-03-10T11:00:00Z")},
		{"5m crosses hour", ts("2025-03-10T10:57:30Z"), 5 * time.Minute, ts("2025-03-10T11:00:00Z")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextBoundary(tt.now, tt.d)
			if !got.Equal(tt.want) {
				t.Errorf("NextBoundary(%v, %v) = %v, want %v", tt.now, tt.d, got, tt.want)
			}
		})
	}
}

func TestNextBoundary_SubSecond(t *testing.T) {
	now := ts("2025-03-10T10:15:00Z").Add(250 * time.Millisecond)
	want := ts("2025-03-10T10:30:00Z")
	if got := NextBoundary(now, 15*time.Minute); !got.Equal(want) {
		t.Errorf("NextBoundary() = %v, want %v", got, want)
	}
}

func TestWaitForBoundary_InvokesPollFn(t *testing.T) {
	var calls int64
	boundary := time.Now().Add(120 * time.Millisecond)

	err := WaitForBoundary(context.Background(), boundary, 30*time.Millisecond, func(context.Context) {
		atomic.AddInt64(&calls, 1)
	})
	if err != nil {
		t.Fatalf("WaitForBoundary() error = %v", err)
	}

	got := atomic.LoadInt64(&calls)
	if got < 2 {
		t.Errorf("poll fn called %d times, want at least 2", got)
	}
	if time.Now().Before(boundary) {
		t.Error("WaitForBoundary() returned before the boundary")
	}
}

func TestWaitForBoundary_PastBoundaryReturnsImmediately(t *testing.T) {
	start := time.Now()
	err := WaitForBoundary(context.Background(), start.Add(-time.Second), time.Second, nil)
	if err != nil {
		t.Fatalf("WaitForBoundary() error = %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("WaitForBoundary() should not block for a past boundary")
	}
}

func TestWaitForBoundary_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	err := WaitForBoundary(ctx, time.Now().Add(time.Hour), 10*time.Millisecond, nil)
	if err != context.Canceled {
		t.Errorf("WaitForBoundary() error = %v, want context.Canceled", err)
	}
}
