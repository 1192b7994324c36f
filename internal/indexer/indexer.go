// Package indexer rebuilds a search index from the relational source:
// recreate the index, stream rows, map them to documents and bulk load them
// in fixed-size chunks.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/francpeal/buscador/internal/domain"
	"github.com/francpeal/buscador/internal/mapper"
	"github.com/francpeal/buscador/pkg/logger"
)

// BulkThreshold is the number of (action, document) pairs sent per bulk request.
const BulkThreshold = 2000

const tracerName = "github.com/francpeal/buscador/internal/indexer"

// RowIterator is a forward-only, single-pass cursor over source rows.
type RowIterator interface {
	Next() bool
	Row() map[string]any
	Err() error
	Close()
}

// Source streams the rows of one entity.
type Source interface {
	Rows(ctx context.Context, e domain.Entity) (RowIterator, error)
}

// Sink is the index being rebuilt. Bulk must not retain the slice it is given.
type Sink interface {
	IndexName(e domain.Entity) string
	Recreate(ctx context.Context, e domain.Entity) error
	Bulk(ctx context.Context, e domain.Entity, actions []domain.BulkAction) error
}

// Publisher announces a completed rebuild.
type Publisher interface {
	PublishRebuilt(ctx context.Context, r *Report) error
}

// Locker guards an index against overlapping rebuilds. Acquire returns
// domain.ErrRebuildInProgress when the lock is held elsewhere.
type Locker interface {
	Acquire(ctx context.Context, index string) (release func(context.Context) error, err error)
}

// Report summarizes one entity rebuild.
type Report struct {
	RunID     string        `json:"run_id"`
	Entity    domain.Entity `json:"entity"`
	Index     string        `json:"index"`
	Documents int           `json:"documents"`
	Flushes   int           `json:"flushes"`
	Duration  time.Duration `json:"duration_ns"`
}

// Indexer runs rebuilds. It holds no per-run state and may be reused.
type Indexer struct {
	source    Source
	sink      Sink
	publisher Publisher
	locker    Locker
	metrics   *Metrics
	logger    *slog.Logger
}

// Option configures optional collaborators.
type Option func(*Indexer)

// WithPublisher announces each completed rebuild through p.
func WithPublisher(p Publisher) Option { return func(ix *Indexer) { ix.publisher = p } }

// WithLocker guards each rebuild with l.
func WithLocker(l Locker) Option { return func(ix *Indexer) { ix.locker = l } }

// WithMetrics records rebuild progress in m.
func WithMetrics(m *Metrics) Option { return func(ix *Indexer) { ix.metrics = m } }

// New creates an Indexer reading from source and writing to sink.
func New(source Source, sink Sink, log *slog.Logger, opts ...Option) *Indexer {
	ix := &Indexer{source: source, sink: sink, logger: log}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

type mapFunc func(map[string]any) (domain.BulkAction, error)

func mapperFor(e domain.Entity) (mapFunc, error) {
	switch e {
	case domain.EntityItem:
		return mapper.ItemAction, nil
	case domain.EntityClient:
		return mapper.ClientAction, nil
	}
	return nil, fmt.Errorf("rebuild: unknown entity %q", e)
}

// RebuildTarget rebuilds every entity of t in order, stopping at the first failure.
func (ix *Indexer) RebuildTarget(ctx context.Context, t domain.Target) ([]*Report, error) {
	entities := t.Entities()
	if len(entities) == 0 {
		return nil, fmt.Errorf("rebuild: unknown target %q", t)
	}
	reports := make([]*Report, 0, len(entities))
	for _, e := range entities {
		r, err := ix.Rebuild(ctx, e)
		if err != nil {
			return reports, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// Rebuild drops and recreates the index of e and loads every source row into
// it. The first error of any phase aborts the run and leaves the index
// partially loaded.
func (ix *Indexer) Rebuild(ctx context.Context, e domain.Entity) (report *Report, err error) {
	mapRow, err := mapperFor(e)
	if err != nil {
		return nil, err
	}

	index := ix.sink.IndexName(e)
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.WithContext(ctx, ix.logger).With(
		slog.String("entity", string(e)),
		slog.String("index", index),
	)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "indexer.Rebuild",
		trace.WithAttributes(
			attribute.String("search.entity", string(e)),
			attribute.String("search.index", index),
			attribute.String("search.run_id", runID),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			ix.metrics.failed(index)
			log.ErrorContext(ctx, "rebuild failed", slog.String("error", err.Error()))
		}
		span.End()
	}()

	if ix.locker != nil {
		release, lockErr := ix.locker.Acquire(ctx, index)
		if lockErr != nil {
			return nil, fmt.Errorf("rebuild %s: %w", index, lockErr)
		}
		defer func() {
			if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
				log.WarnContext(ctx, "release rebuild lock", slog.String("error", relErr.Error()))
			}
		}()
	}

	start := time.Now()
	log.InfoContext(ctx, "rebuild started")

	if err := ix.sink.Recreate(ctx, e); err != nil {
		return nil, fmt.Errorf("rebuild %s: recreate index: %w", index, err)
	}

	rows, err := ix.source.Rows(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("rebuild %s: open rows: %w", index, err)
	}
	defer rows.Close()

	report = &Report{RunID: runID, Entity: e, Index: index}
	buf := make([]domain.BulkAction, 0, BulkThreshold)

	for rows.Next() {
		action, err := mapRow(rows.Row())
		if err != nil {
			return nil, fmt.Errorf("rebuild %s: row %d: %w", index, report.Documents+1, err)
		}
		buf = append(buf, action)
		report.Documents++

		if len(buf) >= BulkThreshold {
			if err := ix.flush(ctx, e, index, buf, report); err != nil {
				return nil, err
			}
			buf = make([]domain.BulkAction, 0, BulkThreshold)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rebuild %s: read rows: %w", index, err)
	}
	if err := ix.flush(ctx, e, index, buf, report); err != nil {
		return nil, err
	}

	report.Duration = time.Since(start)
	log.InfoContext(ctx, "rebuild completed",
		slog.Int("documents", report.Documents),
		slog.Int("flushes", report.Flushes),
		slog.Duration("duration", report.Duration),
	)

	if ix.publisher != nil {
		if pubErr := ix.publisher.PublishRebuilt(ctx, report); pubErr != nil {
			log.WarnContext(ctx, "publish rebuild event", slog.String("error", pubErr.Error()))
		}
	}

	return report, nil
}

// flush sends buf as one bulk request. An empty buffer is a no-op.
func (ix *Indexer) flush(ctx context.Context, e domain.Entity, index string, buf []domain.BulkAction, r *Report) error {
	if len(buf) == 0 {
		return nil
	}
	start := time.Now()
	if err := ix.sink.Bulk(ctx, e, buf); err != nil {
		return fmt.Errorf("rebuild %s: flush %d: %w", index, r.Flushes+1, err)
	}
	r.Flushes++
	ix.metrics.flushed(index, len(buf), time.Since(start))
	return nil
}
