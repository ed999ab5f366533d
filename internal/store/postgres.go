package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/sweeney/greenhouse-controller/internal/logic"
	"github.com/sweeney/greenhouse-controller/internal/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS sensor_readings (
	id          BIGSERIAL PRIMARY KEY,
	ts          TIMESTAMPTZ NOT NULL,
	temp_f      DOUBLE PRECISION,
	fan_signal  DOUBLE PRECISION,
	moisture_a  DOUBLE PRECISION,
	moisture_b  DOUBLE PRECISION,
	humidity    DOUBLE PRECISION
);
CREATE INDEX IF NOT EXISTS sensor_readings_ts_idx ON sensor_readings (ts);

CREATE TABLE IF NOT EXISTS trigger_log (
	id            BIGSERIAL PRIMARY KEY,
	ts            TIMESTAMPTZ NOT NULL,
	trigger_name  TEXT NOT NULL,
	active        BOOLEAN NOT NULL,
	evaluation_id UUID NOT NULL
);
CREATE INDEX IF NOT EXISTS trigger_log_ts_idx ON trigger_log (ts);
CREATE INDEX IF NOT EXISTS trigger_log_name_ts_idx ON trigger_log (trigger_name, ts DESC, id DESC);
`

// OpenPostgres opens and pings a PostgreSQL database.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Postgres is a ReadingStore and TriggerLog backed by PostgreSQL.
type Postgres struct {
	db     *sql.DB
	logger *zap.Logger
}

var (
	_ ReadingStore = (*Postgres)(nil)
	_ TriggerLog   = (*Postgres)(nil)
)

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB, logger *zap.Logger) *Postgres {
	return &Postgres{db: db, logger: logger}
}

// Migrate creates the tables and indexes if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func observe(query string, start time.Time) {
	metrics.DbLatencySeconds.WithLabelValues(query).Observe(time.Since(start).Seconds())
}

// Append inserts a reading.
func (p *Postgres) Append(ctx context.Context, r logic.Reading) error {
	defer observe("append_reading", time.Now())

	_, err := p.db.ExecContext(ctx,
		`INSERT INTO sensor_readings (ts, temp_f, fan_signal, moisture_a, moisture_b, humidity)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		r.Timestamp.UTC(), r.TempF, r.FanSignal, r.MoistureA, r.MoistureB, r.Humidity)
	if err != nil {
		metrics.PersistenceFailuresTotal.WithLabelValues("readings").Inc()
		return fmt.Errorf("%w: insert reading: %v", ErrPersistence, err)
	}
	return nil
}

const readingColumns = `ts, temp_f, fan_signal, moisture_a, moisture_b, humidity`

// Latest returns the newest reading by timestamp.
func (p *Postgres) Latest(ctx context.Context) (logic.Reading, bool, error) {
	defer observe("latest_reading", time.Now())

	row := p.db.QueryRowContext(ctx,
		`SELECT `+readingColumns+` FROM sensor_readings ORDER BY ts DESC, id DESC LIMIT 1`)
	r, err := scanReading(row)
	if err == sql.ErrNoRows {
		return logic.Reading{}, false, nil
	}
	if err != nil {
		return logic.Reading{}, false, fmt.Errorf("query latest reading: %w", err)
	}
	return r, true, nil
}

// Range returns readings within [start, end] in ascending order.
func (p *Postgres) Range(ctx context.Context, start, end time.Time) ([]logic.Reading, error) {
	defer observe("range_readings", time.Now())

	rows, err := p.db.QueryContext(ctx,
		`SELECT `+readingColumns+` FROM sensor_readings
		 WHERE ts >= $1 AND ts <= $2 ORDER BY ts ASC, id ASC`,
		start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var out []logic.Reading
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

// scanReading maps NULL sensor columns to 0.
func scanReading(s scanner) (logic.Reading, error) {
	var ts time.Time
	var temp, fan, moistA, moistB, hum sql.NullFloat64
	if err := s.Scan(&ts, &temp, &fan, &moistA, &moistB, &hum); err != nil {
		return logic.Reading{}, err
	}
	return logic.Reading{
		Timestamp: ts.UTC(),
		TempF:     temp.Float64,
		FanSignal: fan.Float64,
		MoistureA: moistA.Float64,
		MoistureB: moistB.Float64,
		Humidity:  hum.Float64,
	}, nil
}

// AppendBatch inserts one evaluation's entries in a single transaction.
func (p *Postgres) AppendBatch(ctx context.Context, entries []logic.TriggerLogEntry) (err error) {
	defer observe("append_trigger_batch", time.Now())
	defer func() {
		if err != nil {
			metrics.PersistenceFailuresTotal.WithLabelValues("trigger_log").Inc()
		}
	}()

	if len(entries) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin trigger batch: %v", ErrPersistence, err)
	}

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO trigger_log (ts, trigger_name, active, evaluation_id) VALUES ($1, $2, $3, $4)`,
			e.Timestamp.UTC(), e.Trigger, e.Active, e.EvaluationID); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				p.logger.Warn("trigger batch rollback failed", zap.Error(rbErr))
			}
			return fmt.Errorf("%w: insert trigger entry %s: %v", ErrPersistence, e.Trigger, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit trigger batch: %v", ErrPersistence, err)
	}
	return nil
}

// LatestStates returns the active flag of the newest entry per trigger.
func (p *Postgres) LatestStates(ctx context.Context) (logic.StateSet, error) {
	defer observe("latest_trigger_states", time.Now())

	rows, err := p.db.QueryContext(ctx,
		`SELECT DISTINCT ON (trigger_name) trigger_name, active
		 FROM trigger_log ORDER BY trigger_name, ts DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query trigger states: %w", err)
	}
	defer rows.Close()

	states := make(logic.StateSet)
	for rows.Next() {
		var (
			name   string
			active bool
		)
		if err := rows.Scan(&name, &active); err != nil {
			return nil, fmt.Errorf("scan trigger state: %w", err)
		}
		states[name] = active
	}
	return states, rows.Err()
}

// RangeEntries returns trigger log entries within [start, end] in ascending order.
func (p *Postgres) RangeEntries(ctx context.Context, start, end time.Time) ([]logic.TriggerLogEntry, error) {
	defer observe("range_trigger_log", time.Now())

	rows, err := p.db.QueryContext(ctx,
		`SELECT ts, trigger_name, active, evaluation_id FROM trigger_log
		 WHERE ts >= $1 AND ts <= $2 ORDER BY ts ASC, id ASC`,
		start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query trigger log: %w", err)
	}
	defer rows.Close()

	var out []logic.TriggerLogEntry
	for rows.Next() {
		var e logic.TriggerLogEntry
		if err := rows.Scan(&e.Timestamp, &e.Trigger, &e.Active, &e.EvaluationID); err != nil {
			return nil, fmt.Errorf("scan trigger entry: %w", err)
		}
		e.Timestamp = e.Timestamp.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
