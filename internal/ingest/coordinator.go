package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"harvest/lib/chrono"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("harvest/ingest")
var itemCounter, _ = meter.Int64Counter(
	"harvest.items",
	metric.WithDescription("work items processed, by outcome"),
)

// Deduper decides whether the output of an item already exists. It is
// always consulted before the item is processed.
type Deduper interface {
	Exists(ctx context.Context, item WorkItem) (bool, error)
}

// Processor fetches, normalizes and commits a single item. A nil error is a
// success, an error matching IsSkip is a skip, anything else a failure.
type Processor interface {
	Process(ctx context.Context, item WorkItem) error
}

type FailureRecorder interface {
	LogFailure(entry FailureEntry) error
}

type DeduperFunc func(ctx context.Context, item WorkItem) (bool, error)

func (f DeduperFunc) Exists(ctx context.Context, item WorkItem) (bool, error) {
	return f(ctx, item)
}

type ProcessorFunc func(ctx context.Context, item WorkItem) error

func (f ProcessorFunc) Process(ctx context.Context, item WorkItem) error {
	return f(ctx, item)
}

// Coordinator drives one run over a source:
//
//	for each item: CHECK_EXISTS -> SKIP | PROCESS -> SUCCESS | FAILURE
//
// The run ends when the source is exhausted, the success target is reached
// or ctx is cancelled. Per-item failures never end the run.
type Coordinator struct {
	// Name labels logs and metrics of the run.
	Name      string
	Source    Source
	Dedupe    Deduper
	Processor Processor
	// Failures may be nil, failures are then only logged.
	Failures FailureRecorder
	Clock    chrono.TimeAPI
	// Workers is the number of items processed concurrently, values below 1
	// mean sequential processing.
	Workers int
	// Target stops the run once this many items succeeded, 0 means no target.
	Target int
	// OnOutcome is called from the coordinator goroutine after each item.
	OnOutcome func(item WorkItem, outcome Outcome, err error)

	locks *KeyLocks
}

type itemResult struct {
	item        WorkItem
	outcome     Outcome
	err         error
	interrupted bool
}

func (c *Coordinator) validate() error {
	if c.Source == nil {
		return fmt.Errorf("coordinator %s: no source", c.Name)
	}
	if c.Dedupe == nil {
		return fmt.Errorf("coordinator %s: no dedupe check", c.Name)
	}
	if c.Processor == nil {
		return fmt.Errorf("coordinator %s: no processor", c.Name)
	}
	return nil
}

// Run processes the source until a terminal condition and returns the
// final stats. The returned error is non-nil only when the source itself
// failed or ctx was cancelled, the stats are valid in both cases.
func (c *Coordinator) Run(ctx context.Context) (RunStats, error) {
	if err := c.validate(); err != nil {
		return RunStats{}, err
	}
	clock := c.Clock
	if clock == nil {
		clock = chrono.NewStandardTime(nil)
	}
	workers := c.Workers
	if workers < 1 {
		workers = 1
	}
	c.locks = NewKeyLocks()

	stats := RunStats{RunID: uuid.NewString(), Started: clock.Now()}

	ctx, span := tracer.Start(ctx, "coordinator:Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("pipeline", c.Name),
		attribute.String("run_id", stats.RunID),
		attribute.Int("workers", workers),
		attribute.Int("target", c.Target),
	)
	logger := slog.Default().With("pipeline", c.Name, "run_id", stats.RunID)
	logger.InfoContext(ctx, "run started", "workers", workers, "target", c.Target)

	jobs := make(chan WorkItem)
	results := make(chan itemResult, workers)
	done := make(chan struct{})
	for i := 0; i < workers; i++ {
		go func() {
			for item := range jobs {
				results <- c.handle(ctx, item)
			}
			done <- struct{}{}
		}()
	}

	apply := func(r itemResult) {
		if r.interrupted {
			logger.DebugContext(ctx, "item interrupted by cancellation", "key", r.item.Key)
			return
		}
		stats.record(r.outcome)
		c.report(ctx, logger, clock, r)
	}
	targetReached := func() bool {
		return c.Target > 0 && stats.Success >= c.Target
	}

	var runErr error
	inflight := 0
	for {
		if targetReached() {
			logger.InfoContext(ctx, "target reached", "target", c.Target)
			break
		}
		if ctx.Err() != nil {
			runErr = ctx.Err()
			break
		}
		// a free worker is needed, and with a target the in-flight items
		// must not be able to overshoot it
		if inflight >= workers || (c.Target > 0 && stats.Success+inflight >= c.Target) {
			apply(<-results)
			inflight--
			continue
		}

		item, err := c.Source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				runErr = ctx.Err()
			} else {
				runErr = fmt.Errorf("read work item: %w", err)
			}
			break
		}
		jobs <- item
		inflight++
	}
	close(jobs)
	for inflight > 0 {
		apply(<-results)
		inflight--
	}
	for i := 0; i < workers; i++ {
		<-done
	}

	stats.Finished = clock.Now()
	span.SetAttributes(
		attribute.Int("total", stats.Total),
		attribute.Int("success", stats.Success),
		attribute.Int("skipped", stats.Skipped),
		attribute.Int("failed", stats.Failed),
	)
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "run ended early")
		logger.WarnContext(ctx, "run ended early", "err", runErr, "stats", stats.String())
	} else {
		logger.InfoContext(ctx, "run finished", "stats", stats.String(), "duration", stats.Duration())
	}
	return stats, runErr
}

func (c *Coordinator) handle(ctx context.Context, item WorkItem) itemResult {
	if item.Key == "" {
		return itemResult{item: item, outcome: OutcomeSkipped, err: ErrMissingIdentifier}
	}
	if ctx.Err() != nil {
		return itemResult{item: item, interrupted: true}
	}

	unlock := c.locks.Lock(item.Key)
	defer unlock()

	exists, err := c.Dedupe.Exists(ctx, item)
	if err != nil {
		return itemResult{
			item:    item,
			outcome: OutcomeFailed,
			err:     &PersistError{Key: item.Key, Err: fmt.Errorf("existence check: %w", err)},
		}
	}
	if exists {
		return itemResult{item: item, outcome: OutcomeSkipped, err: ErrAlreadyExists}
	}

	err = c.Processor.Process(ctx, item)
	switch {
	case err == nil:
		return itemResult{item: item, outcome: OutcomeSuccess}
	case IsSkip(err):
		return itemResult{item: item, outcome: OutcomeSkipped, err: err}
	case ctx.Err() != nil:
		return itemResult{item: item, interrupted: true, err: err}
	default:
		return itemResult{item: item, outcome: OutcomeFailed, err: err}
	}
}

func (c *Coordinator) report(ctx context.Context, logger *slog.Logger, clock chrono.TimeAPI, r itemResult) {
	itemCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("pipeline", c.Name),
		attribute.String("outcome", r.outcome.String()),
	))

	switch r.outcome {
	case OutcomeSuccess:
		logger.InfoContext(ctx, "item committed", "key", r.item.Key, "label", r.item.Label)
	case OutcomeSkipped:
		logger.InfoContext(ctx, "item skipped", "key", r.item.Key, "label", r.item.Label, "reason", r.err)
	case OutcomeFailed:
		var persist *PersistError
		if errors.As(r.err, &persist) {
			logger.ErrorContext(ctx, "persistence failed", "key", r.item.Key, "err", r.err)
		} else {
			logger.WarnContext(ctx, "item failed", "key", r.item.Key, "label", r.item.Label, "err", r.err)
		}
		if c.Failures != nil {
			id := r.item.ID
			if id == "" {
				id = r.item.Key
			}
			err := c.Failures.LogFailure(FailureEntry{
				ItemID:       id,
				ItemLabel:    r.item.Label,
				SourceURL:    r.item.URL,
				ErrorMessage: r.err.Error(),
				Timestamp:    clock.Now(),
			})
			if err != nil {
				logger.ErrorContext(ctx, "failed to record failure", "key", r.item.Key, "err", err)
			}
		}
	}

	if c.OnOutcome != nil {
		c.OnOutcome(r.item, r.outcome, r.err)
	}
}
