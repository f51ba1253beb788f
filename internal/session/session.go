// Package session holds the ephemeral disambiguation state: when an
// operation matches more than one coordinate, the registry parks the pending
// action here and waits for the user to pick exactly one candidate. Sessions
// are bounded: an unanswered one times out and is discarded, so a user who
// walks away never leaks state.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"waypointd/internal/coordinate"
	"waypointd/internal/metrics"
)

// Action is the operation a pending session will perform once resolved.
type Action string

const (
	ActionDelete    Action = "delete"
	ActionOverwrite Action = "overwrite"
	ActionRename    Action = "rename"
)

var (
	// ErrNotFound is returned for unknown, expired, or foreign tokens. A
	// session is only visible to the user who opened it, so a wrong-user
	// lookup is indistinguishable from a missing one.
	ErrNotFound = errors.New("no pending selection")

	// ErrChoiceNotOffered is returned when the chosen ID is not among the
	// session's candidates.
	ErrChoiceNotOffered = errors.New("chosen record was not offered")
)

// Payload carries the deferred inputs of the pending action.
type Payload struct {
	NewName      string               // rename
	NewPosition  *coordinate.Position // overwrite
	NewDimension *string              // overwrite
}

// Pending is one open disambiguation question. It is bound to the user and
// guild that opened it and dies at ExpiresAt if never answered.
type Pending struct {
	Token      uuid.UUID
	GuildID    string
	UserID     string
	Action     Action
	Candidates []coordinate.Record
	Payload    Payload
	ExpiresAt  time.Time
}

type ownerKey struct {
	userID  string
	guildID string
}

// Manager tracks pending sessions. Each terminal transition (selected,
// cancelled, timed out) removes the session; nothing is ever persisted.
type Manager struct {
	ttl    time.Duration
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]Pending
	owners   map[ownerKey]uuid.UUID
}

// NewManager creates a Manager whose sessions expire ttl after being offered.
func NewManager(ttl time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		ttl:      ttl,
		logger:   logger,
		sessions: make(map[uuid.UUID]Pending),
		owners:   make(map[ownerKey]uuid.UUID),
	}
}

// Offer opens a session for the given pending action, assigning its token
// and deadline. A user holds at most one open session per guild; offering a
// new one silently discards the previous.
func (m *Manager) Offer(p Pending) Pending {
	p.Token = uuid.New()
	p.ExpiresAt = time.Now().Add(m.ttl)

	key := ownerKey{userID: p.UserID, guildID: p.GuildID}

	m.mu.Lock()
	defer m.mu.Unlock()

	if prevToken, ok := m.owners[key]; ok {
		if prev, ok := m.sessions[prevToken]; ok {
			m.remove(prev, "replaced")
		}
	}
	m.sessions[p.Token] = p
	m.owners[key] = p.Token
	metrics.SessionsActive.Inc()

	return p
}

// Select consumes the session and returns it together with the chosen
// candidate. The caller must be the session's owner and the chosen ID must
// be one of the offered candidates; a bad choice leaves the session open.
func (m *Manager) Select(token uuid.UUID, userID string, chosenID uuid.UUID) (Pending, coordinate.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.lookup(token, userID)
	if err != nil {
		return Pending{}, coordinate.Record{}, err
	}

	for _, rec := range p.Candidates {
		if rec.ID == chosenID {
			m.remove(p, "selected")
			return p, rec, nil
		}
	}
	return Pending{}, coordinate.Record{}, ErrChoiceNotOffered
}

// Cancel consumes the session with no action taken.
func (m *Manager) Cancel(token uuid.UUID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.lookup(token, userID)
	if err != nil {
		return err
	}
	m.remove(p, "cancelled")
	return nil
}

// lookup validates token ownership and expiry. Callers must hold mu.
// An expired session is reaped on sight rather than waiting for the janitor.
func (m *Manager) lookup(token uuid.UUID, userID string) (Pending, error) {
	p, ok := m.sessions[token]
	if !ok || p.UserID != userID {
		return Pending{}, ErrNotFound
	}
	if time.Now().After(p.ExpiresAt) {
		m.remove(p, "timed_out")
		return Pending{}, ErrNotFound
	}
	return p, nil
}

// remove deletes a session and records its terminal state. Callers must
// hold mu.
func (m *Manager) remove(p Pending, outcome string) {
	delete(m.sessions, p.Token)
	delete(m.owners, ownerKey{userID: p.UserID, guildID: p.GuildID})
	metrics.SessionsActive.Dec()
	metrics.SessionEnded(string(p.Action), outcome)
}

// Sweep expires every session whose deadline has passed and reports how many
// were reaped.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var reaped int
	for _, p := range m.sessions {
		if now.After(p.ExpiresAt) {
			m.remove(p, "timed_out")
			reaped++
		}
	}
	return reaped
}

// Run sweeps expired sessions on a fixed interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(time.Now()); n > 0 {
				m.logger.Info("expired pending selections", "count", n)
			}
		}
	}
}

// Len reports the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
