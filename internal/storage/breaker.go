package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"waypointd/internal/circuitbreaker"
	"waypointd/internal/coordinate"
)

// BreakerStore wraps a Store with a circuit breaker so a failing persistence
// upstream sheds load fast instead of stacking timeouts. An open circuit
// surfaces circuitbreaker.ErrOpen; callers treat it like any other upstream
// error and never retry here.
type BreakerStore struct {
	inner   Store
	breaker *circuitbreaker.Breaker
}

func NewBreakerStore(inner Store, breaker *circuitbreaker.Breaker) *BreakerStore {
	return &BreakerStore{inner: inner, breaker: breaker}
}

func (s *BreakerStore) Insert(ctx context.Context, rec coordinate.Record) (coordinate.Record, error) {
	var out coordinate.Record
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.inner.Insert(ctx, rec)
		return err
	})
	return out, err
}

func (s *BreakerStore) FindByName(ctx context.Context, guildID, name string) ([]coordinate.Record, error) {
	var out []coordinate.Record
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.inner.FindByName(ctx, guildID, name)
		return err
	})
	return out, err
}

func (s *BreakerStore) FindByID(ctx context.Context, guildID string, id uuid.UUID) (coordinate.Record, error) {
	var out coordinate.Record
	var lookupErr error
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		out, lookupErr = s.inner.FindByID(ctx, guildID, id)
		if errors.Is(lookupErr, ErrNotFound) {
			// A miss is a healthy upstream, not a failure.
			return nil
		}
		return lookupErr
	})
	if err != nil {
		return out, err
	}
	return out, lookupErr
}

func (s *BreakerStore) ListByGuild(ctx context.Context, guildID string) ([]coordinate.Record, error) {
	var out []coordinate.Record
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.inner.ListByGuild(ctx, guildID)
		return err
	})
	return out, err
}

func (s *BreakerStore) UpdateFields(ctx context.Context, guildID string, id uuid.UUID, patch FieldPatch) (coordinate.Record, error) {
	var out coordinate.Record
	var updateErr error
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		out, updateErr = s.inner.UpdateFields(ctx, guildID, id, patch)
		if errors.Is(updateErr, ErrNotFound) {
			return nil
		}
		return updateErr
	})
	if err != nil {
		return out, err
	}
	return out, updateErr
}

func (s *BreakerStore) DeleteByName(ctx context.Context, guildID, name string) (int64, error) {
	var out int64
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.inner.DeleteByName(ctx, guildID, name)
		return err
	})
	return out, err
}

func (s *BreakerStore) DeleteByID(ctx context.Context, guildID string, id uuid.UUID) (int64, error) {
	var out int64
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.inner.DeleteByID(ctx, guildID, id)
		return err
	})
	return out, err
}

func (s *BreakerStore) DeleteGuild(ctx context.Context, guildID string) (int64, error) {
	var out int64
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.inner.DeleteGuild(ctx, guildID)
		return err
	})
	return out, err
}
