package sequence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

// Mock objects
type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

type mockQuerier struct {
	mu      sync.Mutex
	current map[string]int64
	lastKey string
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		m.current = make(map[string]int64)
	}
	key, _ := args[0].(string)
	m.lastKey = key
	m.current[key]++
	return &mockRow{val: m.current[key]}
}

func TestNext_Sequential(t *testing.T) {
	q := &mockQuerier{}
	gen := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("RCP")
	period := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	num, err := gen.Next(ctx, cfg, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "RCP-2026-00001" {
		t.Errorf("expected RCP-2026-00001, got %s", num)
	}

	num, err = gen.Next(ctx, cfg, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "RCP-2026-00002" {
		t.Errorf("expected RCP-2026-00002, got %s", num)
	}

	if q.lastKey != "RCP_2026" {
		t.Errorf("expected key RCP_2026, got %s", q.lastKey)
	}
}

func TestNext_MonthlyReset(t *testing.T) {
	q := &mockQuerier{}
	gen := New(q)
	cfg := DefaultConfig("RCP")
	cfg.ResetPeriod = "month"

	march := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	april := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	if _, err := gen.Next(context.Background(), cfg, march); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	num, err := gen.Next(context.Background(), cfg, april)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// New month starts its own counter.
	if num != "RCP-2026-00001" {
		t.Errorf("expected RCP-2026-00001 after month rollover, got %s", num)
	}
}

func TestParseNumber(t *testing.T) {
	if n := ParseNumber("RCP-2026-00042"); n != 42 {
		t.Errorf("expected 42, got %d", n)
	}
	if n := ParseNumber("RCP-00007"); n != 7 {
		t.Errorf("expected 7, got %d", n)
	}
	if n := ParseNumber("garbage"); n != -1 {
		t.Errorf("expected -1, got %d", n)
	}
}
