package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"waypointd/internal/coordinate"
)

func insertNamed(t *testing.T, s Store, guildID, name, dim string) coordinate.Record {
	t.Helper()
	rec, err := s.Insert(context.Background(), coordinate.Record{
		GuildID:   guildID,
		Name:      name,
		Position:  coordinate.Position{X: 1, Y: 2, Z: 3},
		Dimension: dim,
		Author:    coordinate.Author{ID: "u1", Name: "alice"},
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return rec
}

func TestMemoryInsertAssignsIdentity(t *testing.T) {
	s := NewMemoryStore()

	rec := insertNamed(t, s, "g1", "Base", "overworld")

	if rec.ID == uuid.Nil {
		t.Error("expected non-nil ID")
	}
	if rec.CreatedAt.IsZero() {
		t.Error("expected non-zero CreatedAt")
	}
}

func TestMemoryFindByName(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	insertNamed(t, s, "g1", "Base", "overworld")
	insertNamed(t, s, "g1", "Base", "nether") // duplicate names are allowed at the store level
	insertNamed(t, s, "g1", "Other", "overworld")
	insertNamed(t, s, "g2", "Base", "overworld")

	recs, err := s.FindByName(ctx, "g1", "Base")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len = %d, want 2", len(recs))
	}
	for _, rec := range recs {
		if rec.GuildID != "g1" || rec.Name != "Base" {
			t.Errorf("unexpected record %+v", rec)
		}
	}

	none, err := s.FindByName(ctx, "g1", "Missing")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("len = %d, want 0", len(none))
	}
}

func TestMemoryFindByID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	rec := insertNamed(t, s, "g1", "Base", "overworld")

	got, err := s.FindByID(ctx, "g1", rec.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.ID != rec.ID {
		t.Errorf("ID = %v, want %v", got.ID, rec.ID)
	}

	// A record is invisible from another guild, even with the right ID.
	if _, err := s.FindByID(ctx, "g2", rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-guild FindByID: %v, want ErrNotFound", err)
	}

	if _, err := s.FindByID(ctx, "g1", uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown FindByID: %v, want ErrNotFound", err)
	}
}

func TestMemoryListByGuildOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	names := []string{"Zulu", "Alpha", "Mike"}
	for _, n := range names {
		insertNamed(t, s, "g1", n, "overworld")
	}

	recs, err := s.ListByGuild(ctx, "g1")
	if err != nil {
		t.Fatalf("ListByGuild: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("len = %d, want 3", len(recs))
	}
	for i, rec := range recs {
		if rec.Name != names[i] {
			t.Errorf("recs[%d].Name = %q, want %q (insertion order)", i, rec.Name, names[i])
		}
	}
	for i := 1; i < len(recs); i++ {
		if recs[i].CreatedAt.Before(recs[i-1].CreatedAt) {
			t.Errorf("CreatedAt not ascending at index %d", i)
		}
	}
}

func TestMemoryUpdateFields(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	rec := insertNamed(t, s, "g1", "Base", "overworld")

	newName := "Base2"
	pos := coordinate.Position{X: 9, Y: 8, Z: 7}
	got, err := s.UpdateFields(ctx, "g1", rec.ID, FieldPatch{Name: &newName, Position: &pos})
	if err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if got.Name != "Base2" || got.Position != pos {
		t.Errorf("patched record = %+v", got)
	}
	if got.Dimension != "overworld" {
		t.Errorf("Dimension changed to %q", got.Dimension)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Error("CreatedAt changed")
	}

	// Empty patch behaves like a read.
	same, err := s.UpdateFields(ctx, "g1", rec.ID, FieldPatch{})
	if err != nil {
		t.Fatalf("UpdateFields empty: %v", err)
	}
	if same != got {
		t.Errorf("empty patch mutated record: %+v", same)
	}

	if _, err := s.UpdateFields(ctx, "g1", uuid.New(), FieldPatch{Name: &newName}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown UpdateFields: %v, want ErrNotFound", err)
	}
}

func TestMemoryDeletes(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	a := insertNamed(t, s, "g1", "Dup", "overworld")
	insertNamed(t, s, "g1", "Dup", "nether")
	insertNamed(t, s, "g1", "Keep", "overworld")
	insertNamed(t, s, "g2", "Dup", "overworld")

	n, err := s.DeleteByID(ctx, "g1", a.ID)
	if err != nil || n != 1 {
		t.Fatalf("DeleteByID = (%d, %v), want (1, nil)", n, err)
	}

	n, err = s.DeleteByName(ctx, "g1", "Dup")
	if err != nil || n != 1 {
		t.Fatalf("DeleteByName = (%d, %v), want (1, nil)", n, err)
	}

	n, err = s.DeleteGuild(ctx, "g1")
	if err != nil || n != 1 {
		t.Fatalf("DeleteGuild = (%d, %v), want (1, nil)", n, err)
	}

	// Guild g2 was untouched throughout.
	recs, err := s.FindByName(ctx, "g2", "Dup")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("g2 records = %d, want 1", len(recs))
	}

	n, err = s.DeleteGuild(ctx, "g1")
	if err != nil || n != 0 {
		t.Errorf("second DeleteGuild = (%d, %v), want (0, nil)", n, err)
	}
}
