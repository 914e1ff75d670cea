package crawler

import (
	"context"
	"strings"

	"sjsage522/soldlistings/internal/listing"
	"sjsage522/soldlistings/logger"
	apperrors "sjsage522/soldlistings/pkg/errors"
)

// FallbackStrategy tries strategies in declared order. Each is attempted once;
// the first success wins and results are never merged.
type FallbackStrategy struct {
	strategies []Strategy
}

// NewFallbackStrategy creates a fallback over the given strategies
func NewFallbackStrategy(strategies ...Strategy) *FallbackStrategy {
	return &FallbackStrategy{strategies: strategies}
}

// GetName returns the joined names of the wrapped strategies
func (f *FallbackStrategy) GetName() string {
	names := make([]string, 0, len(f.strategies))
	for _, s := range f.strategies {
		names = append(names, s.GetName())
	}
	return strings.Join(names, ">")
}

// Acquire implements Strategy
func (f *FallbackStrategy) Acquire(ctx context.Context, query Query) ([]listing.RawItem, error) {
	items, _, err := f.AcquireNamed(ctx, query)
	return items, err
}

// AcquireNamed acquires like Acquire and also reports which strategy produced the items
func (f *FallbackStrategy) AcquireNamed(ctx context.Context, query Query) ([]listing.RawItem, string, error) {
	var lastErr error
	for i, s := range f.strategies {
		items, err := s.Acquire(ctx, query)
		if err == nil {
			return items, s.GetName(), nil
		}
		lastErr = err

		// only acquisition failures move on to the next strategy
		if !apperrors.IsAcquisition(err) || ctx.Err() != nil {
			return nil, s.GetName(), err
		}
		if i < len(f.strategies)-1 {
			logger.ForStrategy(s.GetName()).Warn().
				Err(err).
				Str("next", f.strategies[i+1].GetName()).
				Msg("Acquisition failed, falling back")
		}
	}
	if lastErr == nil {
		lastErr = apperrors.NewConfiguration("no acquisition strategy configured", nil)
	}
	return nil, f.GetName(), lastErr
}
