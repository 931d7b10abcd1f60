package style

import (
	"context"

	"github.com/google/uuid"
)

// FragmentIndex is the append-mostly store of (fragment, vector) pairs.
// Writers (sample upload) must not block readers (retrieval during an
// unrelated generation).
type FragmentIndex interface {
	// Append adds fragments to the index. All fragments must carry
	// vectors of the same dimensionality as those already stored for
	// the profile; ErrDimensionMismatch otherwise.
	Append(ctx context.Context, fragments []Fragment) error

	// TopK returns up to k fragments of the profile ranked by descending
	// cosine similarity to the query vector. Ties preserve insertion
	// order.
	TopK(ctx context.Context, profileID uuid.UUID, query []float32, k int) ([]Scored, error)

	// DeleteByProfile removes every fragment of the profile. The only
	// removal operation besides cascading sample deletion.
	DeleteByProfile(ctx context.Context, profileID uuid.UUID) error
}
