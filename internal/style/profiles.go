package style

import (
	"context"

	"github.com/google/uuid"
)

// ProfileStore persists voice profiles and their writing samples.
// Profile editing itself is CRUD handled elsewhere; the operations here
// are the ones the generation and ingestion pipelines depend on.
type ProfileStore interface {
	// CreateProfile creates an inactive profile for owner.
	CreateProfile(ctx context.Context, ownerID, name string, prefs Preferences) (*Profile, error)

	// Profile returns a profile by ID, or ErrNotFound.
	Profile(ctx context.Context, id uuid.UUID) (*Profile, error)

	// ListProfiles returns all profiles of an owner.
	ListProfiles(ctx context.Context, ownerID string) ([]*Profile, error)

	// SetActive atomically deactivates every profile of the owner and
	// activates the given one. Idempotent: activating the already-active
	// profile leaves exactly one active. Returns ErrNotFound if the
	// profile does not exist, ErrOwnerMismatch if it belongs to someone
	// else.
	SetActive(ctx context.Context, ownerID string, profileID uuid.UUID) error

	// ActiveProfile returns the owner's active profile, or ErrNotFound
	// when no profile is active.
	ActiveProfile(ctx context.Context, ownerID string) (*Profile, error)

	// DeleteProfile removes a profile, cascading to its samples and
	// fragments.
	DeleteProfile(ctx context.Context, id uuid.UUID) error

	// CreateSample stores an uploaded writing sample.
	CreateSample(ctx context.Context, profileID uuid.UUID, fileName, text string) (*Sample, error)

	// DeleteSample removes a sample, cascading to its fragments.
	DeleteSample(ctx context.Context, id uuid.UUID) error
}
