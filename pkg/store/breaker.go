package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig tunes the circuit breaker around a GraphStore.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	ReadyToTripRatio float64
}

// BreakerStore wraps a GraphStore with circuit breaking so a dead backend
// surfaces as ErrStoreUnavailable quickly instead of piling up timeouts.
// Scheduler backoff handles the retry side.
type BreakerStore struct {
	inner  GraphStore
	cb     *gobreaker.CircuitBreaker
	logger *slog.Logger
}

// NewBreakerStore wraps inner with a circuit breaker.
func NewBreakerStore(inner GraphStore, cfg BreakerConfig, logger *slog.Logger) *BreakerStore {
	if cfg.ReadyToTripRatio <= 0 {
		cfg.ReadyToTripRatio = 0.6
	}
	st := gobreaker.Settings{
		Name:        "graph-store",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= cfg.ReadyToTripRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("store circuit breaker state change",
				"name", name, "from", from.String(), "to", to.String())
		},
	}
	return &BreakerStore{
		inner:  inner,
		cb:     gobreaker.NewCircuitBreaker(st),
		logger: logger,
	}
}

func (b *BreakerStore) Search(ctx context.Context, query string, scope string, limit int) ([]Record, error) {
	result, err := b.cb.Execute(func() (any, error) {
		return b.inner.Search(ctx, query, scope, limit)
	})
	if err != nil {
		return nil, b.classify(err)
	}
	records, _ := result.([]Record)
	return records, nil
}

func (b *BreakerStore) RetrieveRecent(ctx context.Context, scope string, since time.Time, limit int) ([]Record, error) {
	result, err := b.cb.Execute(func() (any, error) {
		return b.inner.RetrieveRecent(ctx, scope, since, limit)
	})
	if err != nil {
		return nil, b.classify(err)
	}
	records, _ := result.([]Record)
	return records, nil
}

func (b *BreakerStore) AddRecord(ctx context.Context, name string, body map[string]any, scope string, at time.Time) (string, error) {
	result, err := b.cb.Execute(func() (any, error) {
		return b.inner.AddRecord(ctx, name, body, scope, at)
	})
	if err != nil {
		return "", b.classify(err)
	}
	id, _ := result.(string)
	return id, nil
}

// ExecuteRawQuery passes through when the inner store supports it. Raw
// queries go through the breaker too: an open circuit rejects them the same
// way it rejects scans.
func (b *BreakerStore) ExecuteRawQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	raw, ok := b.inner.(RawQuerier)
	if !ok {
		return nil, ErrRawQueriesDisabled
	}
	result, err := b.cb.Execute(func() (any, error) {
		return raw.ExecuteRawQuery(ctx, query, params)
	})
	if err != nil {
		return nil, b.classify(err)
	}
	rows, _ := result.([]map[string]any)
	return rows, nil
}

func (b *BreakerStore) Close() error { return b.inner.Close() }

func (b *BreakerStore) classify(err error) error {
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}

var _ GraphStore = (*BreakerStore)(nil)
