package quota

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_IncrAndPeek(t *testing.T) {
	s := NewMemoryStore()
	defer s.Stop()

	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		got, err := s.Incr(ctx, "k1", time.Hour)
		if err != nil {
			t.Fatalf("Incr() error = %v", err)
		}
		if got != i {
			t.Errorf("Incr() = %d, want %d", got, i)
		}
	}

	val, err := s.Peek(ctx, "k1")
	if err != nil {
		t.Fatalf("Peek() error = %v", err)
	}
	if val != 3 {
		t.Errorf("Peek() = %d, want 3", val)
	}

	// 存在しないキーは0
	val, err = s.Peek(ctx, "missing")
	if err != nil {
		t.Fatalf("Peek() error = %v", err)
	}
	if val != 0 {
		t.Errorf("Peek(missing) = %d, want 0", val)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore()
	defer s.Stop()

	ctx := context.Background()

	if _, err := s.Incr(ctx, "k1", 10*time.Millisecond); err != nil {
		t.Fatalf("Incr() error = %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	val, err := s.Peek(ctx, "k1")
	if err != nil {
		t.Fatalf("Peek() error = %v", err)
	}
	if val != 0 {
		t.Errorf("失効後の Peek() = %d, want 0", val)
	}

	// 失効後のIncrは1から再スタート
	got, err := s.Incr(ctx, "k1", time.Hour)
	if err != nil {
		t.Fatalf("Incr() error = %v", err)
	}
	if got != 1 {
		t.Errorf("失効後の Incr() = %d, want 1", got)
	}
}

func TestMemoryStore_ConcurrentIncr(t *testing.T) {
	s := NewMemoryStore()
	defer s.Stop()

	ctx := context.Background()

	const goroutines = 50
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Incr(ctx, "shared", time.Hour); err != nil {
				t.Errorf("Incr() error = %v", err)
			}
		}()
	}
	wg.Wait()

	val, err := s.Peek(ctx, "shared")
	if err != nil {
		t.Fatalf("Peek() error = %v", err)
	}
	if val != goroutines {
		t.Errorf("並行Incr後の Peek() = %d, want %d", val, goroutines)
	}
}

func TestDayKey_UsesLocalDate(t *testing.T) {
	// UTC 2024-01-01 23:30 はAmsterdam（UTC+1）では翌日
	now := time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)
	ams, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Skip("tzdataが利用できない環境")
	}

	utcKey := DayKey("u1", "daily", now, time.UTC)
	amsKey := DayKey("u1", "daily", now, ams)

	if utcKey != "aiquota:u1:daily:2024-01-01" {
		t.Errorf("utcKey = %s", utcKey)
	}
	if amsKey != "aiquota:u1:daily:2024-01-02" {
		t.Errorf("amsKey = %s", amsKey)
	}
}

func TestUntilEndOfDay(t *testing.T) {
	now := time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC)
	d := UntilEndOfDay(now, time.UTC)
	if d != 2*time.Hour {
		t.Errorf("UntilEndOfDay = %v, want 2h", d)
	}
}
