// Package style manages voice profiles, writing samples, and the
// searchable fragment index that backs retrieval-augmented styling.
package style

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for style operations.
var (
	// ErrNotFound indicates the requested profile or sample does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDimensionMismatch indicates a vector's dimensionality does not
	// match the vectors already stored for the profile. All vectors in one
	// index must come from the same embedding provider.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrOwnerMismatch indicates the profile does not belong to the caller.
	ErrOwnerMismatch = errors.New("profile owner mismatch")
)

// Level is an ordinal style intensity from 0 (never) to 4 (extensive).
// Values outside the range are treated as the moderate midpoint by the
// prompt composer, never as an error.
type Level int

// Ordinal bounds for Level.
const (
	LevelMin      Level = 0
	LevelModerate Level = 2
	LevelMax      Level = 4
)

// Preferences holds the structured style preferences of a voice profile.
// Nil pointer fields are absent: the composer omits them rather than
// silently defaulting.
type Preferences struct {
	ToneTags          []string `json:"tone_tags,omitempty"`
	CustomTones       []string `json:"custom_tones,omitempty"`
	Boldness          *Level   `json:"boldness,omitempty"`
	Spacing           *Level   `json:"spacing,omitempty"`
	EmojiUsage        *Level   `json:"emoji_usage,omitempty"`
	ListUsage         *Level   `json:"list_usage,omitempty"`
	MarkupRichness    *Level   `json:"markup_richness,omitempty"`
	HumorLevel        *Level   `json:"humor_level,omitempty"`
	MoralTone         string   `json:"moral_tone,omitempty"`
	EthicalBoundaries string   `json:"ethical_boundaries,omitempty"`
	PreferredStance   string   `json:"preferred_stance,omitempty"`
}

// Profile is a voice profile: a named set of style preferences owned by
// a user. At most one profile per owner is active at any time; the
// invariant is enforced by Store.SetActive.
type Profile struct {
	ID          uuid.UUID
	OwnerID     string
	Name        string
	Preferences Preferences
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Sample is an uploaded writing sample. Immutable after creation;
// deleting a sample cascades to its fragments.
type Sample struct {
	ID         uuid.UUID
	ProfileID  uuid.UUID
	FileName   string
	Text       string
	UploadedAt time.Time
}

// Fragment is a chunk of a writing sample together with its embedding
// vector. Fragments are never mutated after creation, only deleted with
// their sample or profile.
type Fragment struct {
	ID        uuid.UUID
	SampleID  uuid.UUID
	ProfileID uuid.UUID
	Text      string
	Vector    []float32
	Position  int // chunk order within the sample
}

// Scored pairs a fragment with its similarity to a query vector.
type Scored struct {
	Fragment
	Similarity float32
}

// DefaultTopK is the number of fragments retrieved per query when the
// caller does not specify k.
const DefaultTopK = 3
