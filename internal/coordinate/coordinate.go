package coordinate

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxNameLength is the maximum rune count of a coordinate name after trimming.
const MaxNameLength = 100

// Position is a marker's location in a world, in block units.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d, %d)", p.X, p.Y, p.Z)
}

// Author records who created a marker, for attribution in the presentation
// layer. AvatarURL may be empty.
type Author struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Record is a named location marker owned by one guild. ID, GuildID, and
// CreatedAt are fixed at creation; Name, Position, and Dimension may change
// through rename/overwrite.
type Record struct {
	ID        uuid.UUID `json:"id"`
	GuildID   string    `json:"guild_id"`
	Name      string    `json:"name"`
	Position  Position  `json:"position"`
	Dimension string    `json:"dimension"`
	Author    Author    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// Label renders the record the way selection menus display it:
// the name followed by position and dimension.
func (r Record) Label() string {
	return fmt.Sprintf("%s %s [%s]", r.Name, r.Position, r.Dimension)
}

// CanonicalName trims surrounding whitespace from a proposed name. Name
// uniqueness and all name lookups compare canonical forms, case-sensitively.
func CanonicalName(name string) string {
	return strings.TrimSpace(name)
}

// ValidateName checks a canonical name against the length bounds.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalid)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalid, MaxNameLength)
	}
	return nil
}

// ValidateNew checks a record about to be inserted. The store assigns ID and
// CreatedAt, so only caller-supplied fields are inspected here.
func ValidateNew(r Record) error {
	if r.GuildID == "" {
		return fmt.Errorf("%w: guild id is empty", ErrInvalid)
	}
	if err := ValidateName(r.Name); err != nil {
		return err
	}
	if strings.TrimSpace(r.Dimension) == "" {
		return fmt.Errorf("%w: dimension is empty", ErrInvalid)
	}
	if r.Author.ID == "" {
		return fmt.Errorf("%w: author id is empty", ErrInvalid)
	}
	if r.Author.Name == "" {
		return fmt.Errorf("%w: author name is empty", ErrInvalid)
	}
	return nil
}
