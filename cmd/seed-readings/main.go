// Command seed-readings fills a PostgreSQL store with synthetic history: one
// reading per minute, plus a trigger log snapshot per reading when -triggers is set.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sweeney/greenhouse-controller/internal/logger"
	"github.com/sweeney/greenhouse-controller/internal/logic"
	"github.com/sweeney/greenhouse-controller/internal/store"
)

func main() {
	days := flag.Int("days", 7, "Days of history to generate, ending now")
	dsn := flag.String("database-url", os.Getenv("GREENHOUSE_DATABASE_URL"), "PostgreSQL DSN")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	triggers := flag.Bool("triggers", true, "Also write a trigger log snapshot per reading")
	flag.Parse()

	log, err := logger.New("info", "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(*dsn, *days, *seed, *triggers, log); err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}
}

func run(dsn string, days int, seed int64, triggers bool, log *zap.Logger) error {
	if dsn == "" {
		return errors.New("-database-url (or GREENHOUSE_DATABASE_URL) is required")
	}
	if days <= 0 {
		return fmt.Errorf("days must be positive, got %d", days)
	}

	ctx := context.Background()
	db, err := store.OpenPostgres(ctx, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	pg := store.NewPostgres(db, log)
	if err := pg.Migrate(ctx); err != nil {
		return err
	}

	end := time.Now().UTC().Truncate(time.Minute)
	start := end.Add(-time.Duration(days) * 24 * time.Hour)
	readings := generate(start, end, rand.New(rand.NewSource(seed)))

	var tl store.TriggerLog
	if triggers {
		tl = pg
	}
	n, err := seedStore(ctx, pg, tl, readings, uuid.NewString)
	if err != nil {
		return err
	}

	log.Info("seeded readings",
		zap.Int("readings", n),
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Bool("triggers", triggers))
	return nil
}

// seedStore appends every reading and, when tl is non-nil, one trigger log
// batch per reading. It returns the number of readings written.
func seedStore(ctx context.Context, rs store.ReadingStore, tl store.TriggerLog, readings []logic.Reading, newID func() string) (int, error) {
	for i, r := range readings {
		if err := rs.Append(ctx, r); err != nil {
			return i, err
		}
		if tl == nil {
			continue
		}

		id := newID()
		states := logic.Evaluate(r)
		entries := make([]logic.TriggerLogEntry, len(states))
		for j, s := range states {
			entries[j] = logic.TriggerLogEntry{
				Timestamp:    r.Timestamp,
				Trigger:      s.Name,
				Active:       s.Active,
				EvaluationID: id,
			}
		}
		if err := tl.AppendBatch(ctx, entries); err != nil {
			return i + 1, err
		}
	}
	return len(readings), nil
}

// generate returns one reading per minute in [start, end] with values spread
// around typical greenhouse conditions.
func generate(start, end time.Time, rng *rand.Rand) []logic.Reading {
	var out []logic.Reading
	for t := start; !t.After(end); t = t.Add(time.Minute) {
		temp := clamp(75+5*rng.NormFloat64(), 50, 100)
		humidity := clamp(65+10*rng.NormFloat64(), 20, 100)
		moistA := clamp(70+15*rng.NormFloat64(), 0, 100)
		moistB := clamp(72+15*rng.NormFloat64(), 0, 100)

		// The fan follows whichever of heat or humidity is further out of range.
		demand := math.Max(math.Max(0, temp-80)/5, math.Max(0, humidity-75)/15)
		fan := math.Trunc(clamp(demand*255, 0, 255))

		out = append(out, logic.Reading{
			Timestamp: t,
			TempF:     round2(temp),
			FanSignal: fan,
			MoistureA: round2(moistA),
			MoistureB: round2(moistB),
			Humidity:  round2(humidity),
		})
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
