package style

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryIndex is an in-process FragmentIndex. It backs tests and the
// no-database development mode; production uses the pgvector Store.
//
// Safe for concurrent use: appends take a write lock, queries a read
// lock, so uploads never block retrieval for other profiles.
type MemoryIndex struct {
	mu        sync.RWMutex
	fragments map[uuid.UUID][]Fragment // keyed by profile ID, insertion order
	dims      map[uuid.UUID]int        // dimension locked in by first append
}

// NewMemoryIndex creates an empty in-memory fragment index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		fragments: make(map[uuid.UUID][]Fragment),
		dims:      make(map[uuid.UUID]int),
	}
}

// Append implements FragmentIndex.
func (m *MemoryIndex) Append(_ context.Context, fragments []Fragment) error {
	if len(fragments) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, f := range fragments {
		dim, seen := m.dims[f.ProfileID]
		if seen && dim != len(f.Vector) {
			return fmt.Errorf("%w: profile %s has %d-dim vectors, got %d",
				ErrDimensionMismatch, f.ProfileID, dim, len(f.Vector))
		}
		if !seen {
			m.dims[f.ProfileID] = len(f.Vector)
		}
		m.fragments[f.ProfileID] = append(m.fragments[f.ProfileID], f)
	}
	return nil
}

// TopK implements FragmentIndex. Ranking is descending by cosine
// similarity; ties are broken by insertion order (stable sort).
func (m *MemoryIndex) TopK(_ context.Context, profileID uuid.UUID, query []float32, k int) ([]Scored, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.fragments[profileID]
	scored := make([]Scored, 0, len(stored))
	for _, f := range stored {
		scored = append(scored, Scored{Fragment: f, Similarity: Cosine(query, f.Vector)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// DeleteByProfile implements FragmentIndex.
func (m *MemoryIndex) DeleteByProfile(_ context.Context, profileID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.fragments, profileID)
	delete(m.dims, profileID)
	return nil
}

// DeleteBySample removes every fragment ingested from one sample,
// leaving fragments from the profile's other samples in place.
func (m *MemoryIndex) DeleteBySample(_ context.Context, sampleID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for profileID, stored := range m.fragments {
		kept := stored[:0]
		for _, f := range stored {
			if f.SampleID != sampleID {
				kept = append(kept, f)
			}
		}
		if len(kept) == 0 {
			delete(m.fragments, profileID)
		} else {
			m.fragments[profileID] = kept
		}
	}
	return nil
}

// Count returns the number of fragments stored for a profile.
func (m *MemoryIndex) Count(profileID uuid.UUID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.fragments[profileID])
}
