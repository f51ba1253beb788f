package session

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"waypointd/internal/coordinate"
)

func testManager(ttl time.Duration) *Manager {
	return NewManager(ttl, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func candidates(n int) []coordinate.Record {
	recs := make([]coordinate.Record, n)
	for i := range recs {
		recs[i] = coordinate.Record{
			ID:        uuid.New(),
			GuildID:   "g1",
			Name:      "Dup",
			Dimension: "overworld",
		}
	}
	return recs
}

func TestOfferAssignsTokenAndDeadline(t *testing.T) {
	m := testManager(time.Minute)

	p := m.Offer(Pending{GuildID: "g1", UserID: "u1", Action: ActionDelete, Candidates: candidates(2)})

	assert.NotEqual(t, uuid.Nil, p.Token)
	assert.WithinDuration(t, time.Now().Add(time.Minute), p.ExpiresAt, 5*time.Second)
	assert.Equal(t, 1, m.Len())
}

func TestSelectConsumesSession(t *testing.T) {
	m := testManager(time.Minute)
	cands := candidates(3)

	p := m.Offer(Pending{GuildID: "g1", UserID: "u1", Action: ActionRename, Candidates: cands,
		Payload: Payload{NewName: "Unique"}})

	got, chosen, err := m.Select(p.Token, "u1", cands[1].ID)
	require.NoError(t, err)
	assert.Equal(t, cands[1].ID, chosen.ID)
	assert.Equal(t, "Unique", got.Payload.NewName)
	assert.Equal(t, 0, m.Len())

	// Terminal: a second select finds nothing.
	_, _, err = m.Select(p.Token, "u1", cands[1].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSelectRejectsUnofferedChoice(t *testing.T) {
	m := testManager(time.Minute)

	p := m.Offer(Pending{GuildID: "g1", UserID: "u1", Action: ActionDelete, Candidates: candidates(2)})

	_, _, err := m.Select(p.Token, "u1", uuid.New())
	assert.ErrorIs(t, err, ErrChoiceNotOffered)

	// A bad choice leaves the session open.
	assert.Equal(t, 1, m.Len())
}

func TestSessionsAreInvisibleAcrossUsers(t *testing.T) {
	m := testManager(time.Minute)
	cands := candidates(2)

	p := m.Offer(Pending{GuildID: "g1", UserID: "owner", Action: ActionDelete, Candidates: cands})

	_, _, err := m.Select(p.Token, "someone-else", cands[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = m.Cancel(p.Token, "someone-else")
	assert.ErrorIs(t, err, ErrNotFound)

	// Still resolvable by the owner.
	_, _, err = m.Select(p.Token, "owner", cands[0].ID)
	assert.NoError(t, err)
}

func TestCancel(t *testing.T) {
	m := testManager(time.Minute)
	cands := candidates(2)

	p := m.Offer(Pending{GuildID: "g1", UserID: "u1", Action: ActionOverwrite, Candidates: cands})

	require.NoError(t, m.Cancel(p.Token, "u1"))
	assert.Equal(t, 0, m.Len())

	_, _, err := m.Select(p.Token, "u1", cands[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOfferReplacesPreviousSessionForSameOwner(t *testing.T) {
	m := testManager(time.Minute)
	first := candidates(2)
	second := candidates(2)

	p1 := m.Offer(Pending{GuildID: "g1", UserID: "u1", Action: ActionDelete, Candidates: first})
	p2 := m.Offer(Pending{GuildID: "g1", UserID: "u1", Action: ActionRename, Candidates: second})

	assert.Equal(t, 1, m.Len())

	_, _, err := m.Select(p1.Token, "u1", first[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = m.Select(p2.Token, "u1", second[0].ID)
	assert.NoError(t, err)
}

func TestOfferKeepsSessionsOfOtherOwners(t *testing.T) {
	m := testManager(time.Minute)

	m.Offer(Pending{GuildID: "g1", UserID: "u1", Action: ActionDelete, Candidates: candidates(2)})
	m.Offer(Pending{GuildID: "g2", UserID: "u1", Action: ActionDelete, Candidates: candidates(2)})
	m.Offer(Pending{GuildID: "g1", UserID: "u2", Action: ActionDelete, Candidates: candidates(2)})

	assert.Equal(t, 3, m.Len())
}

func TestSweepExpiresOverdueSessions(t *testing.T) {
	m := testManager(10 * time.Millisecond)
	cands := candidates(2)

	p := m.Offer(Pending{GuildID: "g1", UserID: "u1", Action: ActionDelete, Candidates: cands})

	reaped := m.Sweep(time.Now().Add(time.Second))
	assert.Equal(t, 1, reaped)
	assert.Equal(t, 0, m.Len())

	_, _, err := m.Select(p.Token, "u1", cands[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpiredSessionReapedOnLookup(t *testing.T) {
	m := testManager(time.Nanosecond)
	cands := candidates(2)

	p := m.Offer(Pending{GuildID: "g1", UserID: "u1", Action: ActionDelete, Candidates: cands})
	time.Sleep(time.Millisecond)

	// No sweep has run, but the deadline has passed.
	_, _, err := m.Select(p.Token, "u1", cands[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, m.Len())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := testManager(5 * time.Millisecond)
	m.Offer(Pending{GuildID: "g1", UserID: "u1", Action: ActionDelete, Candidates: candidates(2)})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()

	// Give the janitor a few ticks to reap the expired session.
	deadline := time.After(time.Second)
	for m.Len() > 0 {
		select {
		case <-deadline:
			t.Fatal("janitor never expired the session")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop on context cancel")
	}
}
