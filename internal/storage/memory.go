package storage

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"waypointd/internal/coordinate"
)

// MemoryStore implements Store with an in-process map. It backs the "memory"
// storage driver and the package tests; semantics mirror PostgresStore,
// including tolerance of duplicate names.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]coordinate.Record
	lastTS  time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[uuid.UUID]coordinate.Record)}
}

// nextTimestamp returns a strictly increasing creation time so list order
// matches insertion order even when the wall clock does not advance between
// inserts. Callers must hold mu.
func (s *MemoryStore) nextTimestamp() time.Time {
	ts := time.Now().UTC()
	if !ts.After(s.lastTS) {
		ts = s.lastTS.Add(time.Nanosecond)
	}
	s.lastTS = ts
	return ts
}

func (s *MemoryStore) Insert(ctx context.Context, rec coordinate.Record) (coordinate.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = uuid.New()
	rec.CreatedAt = s.nextTimestamp()
	s.records[rec.ID] = rec
	return rec, nil
}

func (s *MemoryStore) FindByName(ctx context.Context, guildID, name string) ([]coordinate.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []coordinate.Record
	for _, rec := range s.records {
		if rec.GuildID == guildID && rec.Name == name {
			recs = append(recs, rec)
		}
	}
	sortRecords(recs)
	return recs, nil
}

func (s *MemoryStore) FindByID(ctx context.Context, guildID string, id uuid.UUID) (coordinate.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok || rec.GuildID != guildID {
		return coordinate.Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) ListByGuild(ctx context.Context, guildID string) ([]coordinate.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []coordinate.Record
	for _, rec := range s.records {
		if rec.GuildID == guildID {
			recs = append(recs, rec)
		}
	}
	sortRecords(recs)
	return recs, nil
}

func (s *MemoryStore) UpdateFields(ctx context.Context, guildID string, id uuid.UUID, patch FieldPatch) (coordinate.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || rec.GuildID != guildID {
		return coordinate.Record{}, ErrNotFound
	}
	if patch.Name != nil {
		rec.Name = *patch.Name
	}
	if patch.Position != nil {
		rec.Position = *patch.Position
	}
	if patch.Dimension != nil {
		rec.Dimension = *patch.Dimension
	}
	s.records[id] = rec
	return rec, nil
}

func (s *MemoryStore) DeleteByName(ctx context.Context, guildID, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, rec := range s.records {
		if rec.GuildID == guildID && rec.Name == name {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) DeleteByID(ctx context.Context, guildID string, id uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || rec.GuildID != guildID {
		return 0, nil
	}
	delete(s.records, id)
	return 1, nil
}

func (s *MemoryStore) DeleteGuild(ctx context.Context, guildID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, rec := range s.records {
		if rec.GuildID == guildID {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

func sortRecords(recs []coordinate.Record) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.Before(recs[j].CreatedAt)
		}
		return bytes.Compare(recs[i].ID[:], recs[j].ID[:]) < 0
	})
}
