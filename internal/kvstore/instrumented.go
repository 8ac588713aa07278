package kvstore

import (
	"context"
	"errors"

	"cliqd/internal/observability"
)

type instrumented struct {
	next    Store
	backend string
	metrics *observability.StoreMetrics
}

// Instrument wraps next so every operation is counted, timed and traced.
func Instrument(next Store, backend string) Store {
	return &instrumented{
		next:    next,
		backend: backend,
		metrics: observability.NewStoreMetrics(backend),
	}
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return observability.ResultOK
	case errors.Is(err, ErrKeyNotFound):
		return observability.ResultMiss
	default:
		return observability.ResultError
	}
}

func (s *instrumented) observe(ctx context.Context, op, key string, fn func(context.Context) error) error {
	ctx, span := observability.TraceStoreOperation(ctx, s.backend, op, key)
	done := s.metrics.TrackOperation(op)
	err := fn(ctx)
	done(resultOf(err))
	if errors.Is(err, ErrKeyNotFound) {
		observability.EndSpan(span, nil)
	} else {
		observability.EndSpan(span, err)
	}
	return err
}

func (s *instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.observe(ctx, "get", key, func(ctx context.Context) error {
		var err error
		value, err = s.next.Get(ctx, key)
		return err
	})
	return value, err
}

func (s *instrumented) Put(ctx context.Context, key string, value []byte) error {
	return s.observe(ctx, "put", key, func(ctx context.Context) error {
		return s.next.Put(ctx, key, value)
	})
}

func (s *instrumented) Delete(ctx context.Context, key string) error {
	return s.observe(ctx, "delete", key, func(ctx context.Context) error {
		return s.next.Delete(ctx, key)
	})
}

func (s *instrumented) List(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.observe(ctx, "list", "", func(ctx context.Context) error {
		var err error
		keys, err = s.next.List(ctx)
		return err
	})
	return keys, err
}

func (s *instrumented) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.observe(ctx, "stats", "", func(ctx context.Context) error {
		var err error
		stats, err = s.next.Stats(ctx)
		return err
	})
	return stats, err
}

func (s *instrumented) Close() error {
	return s.next.Close()
}
