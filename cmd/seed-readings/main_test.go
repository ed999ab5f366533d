package main

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/greenhouse-controller/internal/logic"
	"github.com/sweeney/greenhouse-controller/internal/store"
)

var t0 = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

func TestGenerateOnePerMinute(t *testing.T) {
	rs := generate(t0, t0.Add(time.Hour), rand.New(rand.NewSource(1)))

	if len(rs) != 61 {
		t.Fatalf("got %d readings, want 61", len(rs))
	}
	for i, r := range rs {
		if want := t0.Add(time.Duration(i) * time.Minute); !r.Timestamp.Equal(want) {
			t.Errorf("reading %d: timestamp %v, want %v", i, r.Timestamp, want)
		}
		if r.TempF < 50 || r.TempF > 100 {
			t.Errorf("reading %d: temp %v out of range", i, r.TempF)
		}
		if r.Humidity < 20 || r.Humidity > 100 {
			t.Errorf("reading %d: humidity %v out of range", i, r.Humidity)
		}
		if r.MoistureA < 0 || r.MoistureA > 100 || r.MoistureB < 0 || r.MoistureB > 100 {
			t.Errorf("reading %d: moisture out of range", i)
		}
		if r.FanSignal < 0 || r.FanSignal > 255 || r.FanSignal != float64(int(r.FanSignal)) {
			t.Errorf("reading %d: fan signal %v not an integer in 0..255", i, r.FanSignal)
		}
	}
}

func TestGenerateDeterministicForSeed(t *testing.T) {
	a := generate(t0, t0.Add(10*time.Minute), rand.New(rand.NewSource(42)))
	b := generate(t0, t0.Add(10*time.Minute), rand.New(rand.NewSource(42)))
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("reading %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestSeedStoreWritesTriggerSnapshots(t *testing.T) {
	mem := store.NewMemory()
	rs := []logic.Reading{
		{Timestamp: t0, TempF: 90, MoistureA: 50, MoistureB: 50},
		{Timestamp: t0.Add(time.Minute), TempF: 70, MoistureA: 50, MoistureB: 50},
	}
	n := 0
	newID := func() string {
		n++
		return fmt.Sprintf("seed-%d", n)
	}

	written, err := seedStore(context.Background(), mem, mem, rs, newID)
	if err != nil {
		t.Fatalf("seedStore: %v", err)
	}
	if written != 2 {
		t.Errorf("written: got %d, want 2", written)
	}

	entries, err := mem.RangeEntries(context.Background(), t0, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(entries) != 2*len(logic.Definitions) {
		t.Fatalf("entries: got %d, want %d", len(entries), 2*len(logic.Definitions))
	}

	states, _ := mem.LatestStates(context.Background())
	if states[logic.TriggerTemperatureCooldown] {
		t.Error("latest cooldown state should be false")
	}
}

func TestSeedStoreReadingsOnly(t *testing.T) {
	mem := store.NewMemory()
	rs := generate(t0, t0.Add(5*time.Minute), rand.New(rand.NewSource(7)))

	if _, err := seedStore(context.Background(), mem, nil, rs, nil); err != nil {
		t.Fatalf("seedStore: %v", err)
	}
	entries, _ := mem.RangeEntries(context.Background(), t0, t0.Add(time.Hour))
	if len(entries) != 0 {
		t.Errorf("expected no trigger entries, got %d", len(entries))
	}
}

func TestRunRequiresDSN(t *testing.T) {
	if err := run("", 7, 1, true, zap.NewNop()); err == nil {
		t.Error("expected error without DSN")
	}
	if err := run("postgres://localhost/x", 0, 1, true, zap.NewNop()); err == nil {
		t.Error("expected error for zero days")
	}
}
