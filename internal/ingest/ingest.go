// Package ingest moves controller lines from the transport into the reading store.
package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/greenhouse-controller/internal/logic"
	"github.com/sweeney/greenhouse-controller/internal/metrics"
	"github.com/sweeney/greenhouse-controller/internal/status"
	"github.com/sweeney/greenhouse-controller/internal/store"
)

// DefaultMaxLinesPerTick bounds how many buffered lines one tick drains.
const DefaultMaxLinesPerTick = 16

// LineReader yields complete lines from the controller.
// ok is false when no complete line arrived within the read timeout.
type LineReader interface {
	ReadLine() (line string, ok bool, err error)
}

// ReadingPublisher receives every stored reading.
type ReadingPublisher interface {
	PublishReading(r logic.Reading) error
}

// Loop is the ingestion loop. Only the loop reads from the transport.
type Loop struct {
	reader    LineReader
	readings  store.ReadingStore
	tracker   *status.Tracker
	publisher ReadingPublisher
	logger    *zap.Logger

	// Now stamps parsed readings. Defaults to time.Now.
	Now func() time.Time

	// MaxLinesPerTick bounds the lines handled per tick.
	MaxLinesPerTick int
}

// New creates a Loop. tracker and publisher may be nil.
func New(reader LineReader, readings store.ReadingStore, tracker *status.Tracker, publisher ReadingPublisher, logger *zap.Logger) *Loop {
	return &Loop{
		reader:          reader,
		readings:        readings,
		tracker:         tracker,
		publisher:       publisher,
		logger:          logger,
		Now:             time.Now,
		MaxLinesPerTick: DefaultMaxLinesPerTick,
	}
}

// Run calls Tick on every tick until ctx is cancelled.
func (l *Loop) Run(ctx context.Context, tick <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			l.Tick(ctx)
		}
	}
}

// Tick reads and handles the lines available now. Errors are logged and
// never escape; a panic inside the tick is recovered.
func (l *Loop) Tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IngestErrorsTotal.WithLabelValues("panic").Inc()
			l.logger.Error("ingestion tick panicked", zap.Any("panic", r))
		}
	}()

	for i := 0; i < l.MaxLinesPerTick; i++ {
		line, ok, err := l.reader.ReadLine()
		if err != nil {
			metrics.IngestErrorsTotal.WithLabelValues("read").Inc()
			l.logger.Warn("serial read failed", zap.Error(err))
			return
		}
		if !ok {
			return
		}
		l.handle(ctx, line)
	}
}

func (l *Loop) handle(ctx context.Context, line string) {
	r, err := logic.ParseLine(line, l.Now())
	if err != nil {
		metrics.ParseFailuresTotal.Inc()
		if l.tracker != nil {
			l.tracker.RecordParseFailure()
		}
		l.logger.Warn("discarding controller line", zap.String("line", line), zap.Error(err))
		return
	}

	if err := l.readings.Append(ctx, r); err != nil {
		metrics.IngestErrorsTotal.WithLabelValues("store").Inc()
		l.logger.Error("failed to store reading", zap.Error(err))
		return
	}

	metrics.ReadingsIngestedTotal.Inc()
	if l.tracker != nil {
		l.tracker.RecordReading(r)
	}

	if l.publisher != nil {
		if err := l.publisher.PublishReading(r); err != nil {
			metrics.IngestErrorsTotal.WithLabelValues("publish").Inc()
			l.logger.Warn("failed to publish reading", zap.Error(err))
		}
	}
}
