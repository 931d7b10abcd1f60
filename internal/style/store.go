package style

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Store is the PostgreSQL + pgvector implementation of ProfileStore and
// FragmentIndex.
//
// Safe for concurrent use by multiple goroutines.
type Store struct {
	pool      *pgxpool.Pool
	dimension int // vector column dimensionality
	logger    *slog.Logger
}

// Compile-time interface checks.
var (
	_ ProfileStore  = (*Store)(nil)
	_ FragmentIndex = (*Store)(nil)
)

// NewStore creates a Store. dimension must match the vector column in
// the style_fragments migration; appends with a different dimensionality
// are rejected with ErrDimensionMismatch before reaching the database.
func NewStore(pool *pgxpool.Pool, dimension int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, dimension: dimension, logger: logger}
}

// CreateProfile implements ProfileStore.
func (s *Store) CreateProfile(ctx context.Context, ownerID, name string, prefs Preferences) (*Profile, error) {
	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		return nil, fmt.Errorf("marshaling preferences: %w", err)
	}

	p := &Profile{ID: uuid.New(), OwnerID: ownerID, Name: name, Preferences: prefs}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO voice_profiles (id, owner_id, name, preferences)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		p.ID, ownerID, name, prefsJSON)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("creating profile: %w", err)
	}

	s.logger.Debug("created profile", "id", p.ID, "owner", ownerID)
	return p, nil
}

// Profile implements ProfileStore.
func (s *Store) Profile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, name, preferences, is_active, created_at, updated_at
		FROM voice_profiles WHERE id = $1`, id)

	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting profile %s: %w", id, err)
	}
	return p, nil
}

// ListProfiles implements ProfileStore.
func (s *Store) ListProfiles(ctx context.Context, ownerID string) ([]*Profile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, owner_id, name, preferences, is_active, created_at, updated_at
		FROM voice_profiles WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// SetActive implements ProfileStore. Deactivate-all and activate-one run
// in a single transaction so no reader ever observes zero or two active
// profiles for the owner.
func (s *Store) SetActive(ctx context.Context, ownerID string, profileID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning activation transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("activation rollback", "error", err)
		}
	}()

	var owner string
	if err := tx.QueryRow(ctx, `SELECT owner_id FROM voice_profiles WHERE id = $1 FOR UPDATE`, profileID).Scan(&owner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("locking profile %s: %w", profileID, err)
	}
	if owner != ownerID {
		return ErrOwnerMismatch
	}

	if _, err := tx.Exec(ctx, `
		UPDATE voice_profiles SET is_active = FALSE, updated_at = now()
		WHERE owner_id = $1 AND is_active`, ownerID); err != nil {
		return fmt.Errorf("deactivating profiles: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE voice_profiles SET is_active = TRUE, updated_at = now()
		WHERE id = $1`, profileID); err != nil {
		return fmt.Errorf("activating profile %s: %w", profileID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing activation: %w", err)
	}

	s.logger.Debug("activated profile", "id", profileID, "owner", ownerID)
	return nil
}

// ActiveProfile implements ProfileStore.
func (s *Store) ActiveProfile(ctx context.Context, ownerID string) (*Profile, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, name, preferences, is_active, created_at, updated_at
		FROM voice_profiles WHERE owner_id = $1 AND is_active`, ownerID)

	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting active profile: %w", err)
	}
	return p, nil
}

// DeleteProfile implements ProfileStore. Samples and fragments cascade
// via foreign keys.
func (s *Store) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM voice_profiles WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting profile %s: %w", id, err)
	}
	s.logger.Debug("deleted profile", "id", id)
	return nil
}

// CreateSample implements ProfileStore.
func (s *Store) CreateSample(ctx context.Context, profileID uuid.UUID, fileName, text string) (*Sample, error) {
	sample := &Sample{ID: uuid.New(), ProfileID: profileID, FileName: fileName, Text: text}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO writing_samples (id, profile_id, file_name, content)
		VALUES ($1, $2, $3, $4)
		RETURNING uploaded_at`,
		sample.ID, profileID, fileName, text)
	if err := row.Scan(&sample.UploadedAt); err != nil {
		return nil, fmt.Errorf("creating sample: %w", err)
	}

	s.logger.Debug("created sample", "id", sample.ID, "profile", profileID, "bytes", len(text))
	return sample, nil
}

// DeleteSample implements ProfileStore. Fragments cascade via foreign key.
func (s *Store) DeleteSample(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM writing_samples WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting sample %s: %w", id, err)
	}
	return nil
}

// Append implements FragmentIndex.
func (s *Store) Append(ctx context.Context, fragments []Fragment) error {
	if len(fragments) == 0 {
		return nil
	}
	for _, f := range fragments {
		if len(f.Vector) != s.dimension {
			return fmt.Errorf("%w: index stores %d-dim vectors, got %d",
				ErrDimensionMismatch, s.dimension, len(f.Vector))
		}
	}

	batch := &pgx.Batch{}
	for _, f := range fragments {
		batch.Queue(`
			INSERT INTO style_fragments (id, sample_id, profile_id, content, embedding, position)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			f.ID, f.SampleID, f.ProfileID, f.Text, pgvector.NewVector(f.Vector), f.Position)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer func() {
		_ = results.Close()
	}()
	for range fragments {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("inserting fragment: %w", err)
		}
	}

	s.logger.Debug("appended fragments", "count", len(fragments), "profile", fragments[0].ProfileID)
	return nil
}

// TopK implements FragmentIndex using the pgvector cosine distance
// operator; similarity = 1 - distance. Secondary ordering by creation
// time keeps ties stable in insertion order.
func (s *Store) TopK(ctx context.Context, profileID uuid.UUID, query []float32, k int) ([]Scored, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("%w: index stores %d-dim vectors, query has %d",
			ErrDimensionMismatch, s.dimension, len(query))
	}

	qv := pgvector.NewVector(query)
	rows, err := s.pool.Query(ctx, `
		SELECT id, sample_id, profile_id, content, embedding, position,
		       1 - (embedding <=> $2) AS similarity
		FROM style_fragments
		WHERE profile_id = $1
		ORDER BY embedding <=> $2, created_at
		LIMIT $3`, profileID, qv, k)
	if err != nil {
		return nil, fmt.Errorf("fragment search: %w", err)
	}
	defer rows.Close()

	var results []Scored
	for rows.Next() {
		var (
			f   Fragment
			vec pgvector.Vector
			sim float32
		)
		if err := rows.Scan(&f.ID, &f.SampleID, &f.ProfileID, &f.Text, &vec, &f.Position, &sim); err != nil {
			return nil, fmt.Errorf("scanning fragment: %w", err)
		}
		f.Vector = vec.Slice()
		results = append(results, Scored{Fragment: f, Similarity: sim})
	}
	return results, rows.Err()
}

// DeleteByProfile implements FragmentIndex.
func (s *Store) DeleteByProfile(ctx context.Context, profileID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM style_fragments WHERE profile_id = $1`, profileID); err != nil {
		return fmt.Errorf("deleting fragments for profile %s: %w", profileID, err)
	}
	return nil
}

// rowScanner abstracts pgx.Row and pgx.Rows for scanProfile.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	var (
		p         Profile
		prefsJSON []byte
	)
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &prefsJSON, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(prefsJSON, &p.Preferences); err != nil {
		return nil, fmt.Errorf("unmarshaling preferences: %w", err)
	}
	return &p, nil
}
