package style

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process ProfileStore for tests and the
// no-database development mode. Pair it with a MemoryIndex; DeleteProfile
// and DeleteSample cascade into the index when one is attached.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]*Profile
	samples  map[uuid.UUID]*Sample
	index    *MemoryIndex // optional, for cascade deletes
}

// NewMemoryStore creates an empty in-memory profile store. index may be
// nil if cascade deletion into a fragment index is not needed.
func NewMemoryStore(index *MemoryIndex) *MemoryStore {
	return &MemoryStore{
		profiles: make(map[uuid.UUID]*Profile),
		samples:  make(map[uuid.UUID]*Sample),
		index:    index,
	}
}

// CreateProfile implements ProfileStore.
func (m *MemoryStore) CreateProfile(_ context.Context, ownerID, name string, prefs Preferences) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	p := &Profile{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Name:        name,
		Preferences: prefs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.profiles[p.ID] = p
	cp := *p
	return &cp, nil
}

// Profile implements ProfileStore.
func (m *MemoryStore) Profile(_ context.Context, id uuid.UUID) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// ListProfiles implements ProfileStore.
func (m *MemoryStore) ListProfiles(_ context.Context, ownerID string) ([]*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Profile
	for _, p := range m.profiles {
		if p.OwnerID == ownerID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// SetActive implements ProfileStore. The whole deactivate-all-then-
// activate-one step runs under one lock, so readers never observe two
// active profiles.
func (m *MemoryStore) SetActive(_ context.Context, ownerID string, profileID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	target, ok := m.profiles[profileID]
	if !ok {
		return ErrNotFound
	}
	if target.OwnerID != ownerID {
		return ErrOwnerMismatch
	}

	for _, p := range m.profiles {
		if p.OwnerID == ownerID && p.Active {
			p.Active = false
			p.UpdatedAt = time.Now()
		}
	}
	target.Active = true
	target.UpdatedAt = time.Now()
	return nil
}

// ActiveProfile implements ProfileStore.
func (m *MemoryStore) ActiveProfile(_ context.Context, ownerID string) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.profiles {
		if p.OwnerID == ownerID && p.Active {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// DeleteProfile implements ProfileStore.
func (m *MemoryStore) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	for sid, s := range m.samples {
		if s.ProfileID == id {
			delete(m.samples, sid)
		}
	}
	delete(m.profiles, id)
	m.mu.Unlock()

	if m.index != nil {
		return m.index.DeleteByProfile(ctx, id)
	}
	return nil
}

// CreateSample implements ProfileStore.
func (m *MemoryStore) CreateSample(_ context.Context, profileID uuid.UUID, fileName, text string) (*Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.profiles[profileID]; !ok {
		return nil, ErrNotFound
	}
	s := &Sample{
		ID:         uuid.New(),
		ProfileID:  profileID,
		FileName:   fileName,
		Text:       text,
		UploadedAt: time.Now(),
	}
	m.samples[s.ID] = s
	cp := *s
	return &cp, nil
}

// DeleteSample implements ProfileStore.
func (m *MemoryStore) DeleteSample(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	delete(m.samples, id)
	m.mu.Unlock()

	if m.index != nil {
		return m.index.DeleteBySample(ctx, id)
	}
	return nil
}
