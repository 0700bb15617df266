package search

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"booking_concierge_backend/internal/conversation/domain"
	"booking_concierge_backend/internal/conversation/ports"
	"booking_concierge_backend/platform/apperr"
	"booking_concierge_backend/platform/logger"
)

const maxParallelAlternatives = 4

// Runner executes catalog queries under per-call timeouts.
type Runner struct {
	searcher           ports.VehicleSearcher
	exactTimeout       time.Duration
	alternativeTimeout time.Duration
	log                *logger.Logger
}

// NewRunner creates a Runner.
func NewRunner(searcher ports.VehicleSearcher, exactTimeout, alternativeTimeout time.Duration, log *logger.Logger) *Runner {
	return &Runner{
		searcher:           searcher,
		exactTimeout:       exactTimeout,
		alternativeTimeout: alternativeTimeout,
		log:                log,
	}
}

type searchOutcome struct {
	options []domain.VehicleSearchOption
	err     error
}

// Exact runs the exact query. A timeout or failure fails the caller.
func (r *Runner) Exact(ctx context.Context, q domain.SearchQuery) ([]domain.VehicleSearchOption, error) {
	options, err := r.call(ctx, q, r.exactTimeout)
	if err != nil {
		return nil, err
	}
	return options, nil
}

// Alternatives runs the relaxed queries concurrently. Results are returned by
// query index; failed or timed-out queries yield nil and are logged.
func (r *Runner) Alternatives(ctx context.Context, queries []domain.SearchQuery) [][]domain.VehicleSearchOption {
	results := make([][]domain.VehicleSearchOption, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelAlternatives)

	for i, q := range queries {
		g.Go(func() error {
			options, err := r.call(gctx, q, r.alternativeTimeout)
			if err != nil {
				r.log.WithContext(ctx).ExternalCallFailed("vehicle_search", "alternative_query", err)
				return nil
			}
			results[i] = options
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// call runs one search in its own goroutine so a collaborator that ignores
// cancellation cannot hold the turn past the timeout. A late answer lands in
// the buffered channel and is dropped.
func (r *Runner) call(ctx context.Context, q domain.SearchQuery, timeout time.Duration) ([]domain.VehicleSearchOption, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan searchOutcome, 1)
	go func() {
		options, err := r.searcher.Search(callCtx, q)
		done <- searchOutcome{options: options, err: err}
	}()

	select {
	case out := <-done:
		if out.err == nil {
			return out.options, nil
		}
		if errors.Is(out.err, context.DeadlineExceeded) {
			return nil, apperr.Timeout("vehicle search timed out").WithOp("search.call")
		}
		return nil, apperr.ExternalService("vehicle search failed", out.err).WithOp("search.call")
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, apperr.Timeout("vehicle search timed out").WithOp("search.call")
		}
		return nil, apperr.ExternalService("vehicle search cancelled", callCtx.Err()).WithOp("search.call")
	}
}
