package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/inkvoice/inkvoice/internal/style"
	"github.com/inkvoice/inkvoice/internal/testutil"
)

func newFixture(t *testing.T) (*Service, *style.MemoryIndex, uuid.UUID) {
	t.Helper()

	index := style.NewMemoryIndex()
	profiles := style.NewMemoryStore(index)
	profile, err := profiles.CreateProfile(context.Background(), "owner-1", "casual", style.Preferences{})
	if err != nil {
		t.Fatalf("CreateProfile() error = %v", err)
	}
	svc := NewService(profiles, index, &testutil.HashEmbedder{Dim: 8}, nil)
	return svc, index, profile.ID
}

func TestUpload_FragmentCount(t *testing.T) {
	t.Parallel()

	svc, index, profileID := newFixture(t)

	// 2500 chars at size 1000 / overlap 200 must produce exactly 3
	// fragments: ceil((2500-200)/(1000-200)).
	text := strings.Repeat("a", 2500)
	res, err := svc.Upload(context.Background(), profileID, "sample.txt", text)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if res.Chunks != 3 || res.Fragments != 3 {
		t.Errorf("Upload() chunks = %d, fragments = %d, want 3 and 3", res.Chunks, res.Fragments)
	}
	if res.Sample == nil || res.Sample.ID == uuid.Nil {
		t.Error("Upload() must return the persisted sample")
	}
	if got := index.Count(profileID); got != 3 {
		t.Errorf("index holds %d fragments, want 3", got)
	}
}

func TestUpload_RetrievalOrdering(t *testing.T) {
	t.Parallel()

	svc, index, profileID := newFixture(t)
	embedder := &testutil.HashEmbedder{Dim: 8}

	text := "The quick brown fox. " + strings.Repeat("Filler prose about nothing in particular. ", 60)
	if _, err := svc.Upload(context.Background(), profileID, "s.txt", text); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	query, err := embedder.Embed(context.Background(), "quick brown fox")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	results, err := index.TopK(context.Background(), profileID, query, 3)
	if err != nil {
		t.Fatalf("TopK() error = %v", err)
	}
	if len(results) == 0 {
		t.Fatal("TopK() returned no fragments")
	}
	for i := 1; i < len(results); i++ {
		if results[i].Similarity > results[i-1].Similarity {
			t.Errorf("results not in descending similarity order at %d", i)
		}
	}
}

type flakyEmbedder struct {
	testutil.HashEmbedder
	calls int
}

func (e *flakyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.calls%2 == 0 {
		return nil, errors.New("embedding backend unavailable")
	}
	return e.HashEmbedder.Embed(ctx, text)
}

func TestUpload_SkipsFailedEmbeddings(t *testing.T) {
	t.Parallel()

	index := style.NewMemoryIndex()
	profiles := style.NewMemoryStore(index)
	profile, _ := profiles.CreateProfile(context.Background(), "owner-1", "p", style.Preferences{})

	svc := NewService(profiles, index, &flakyEmbedder{HashEmbedder: testutil.HashEmbedder{Dim: 8}}, nil)

	res, err := svc.Upload(context.Background(), profile.ID, "s.txt", strings.Repeat("b", 2500))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if res.Chunks != 3 {
		t.Fatalf("Upload() chunks = %d, want 3", res.Chunks)
	}
	// Every other embed fails; the upload still succeeds with the rest.
	if res.Fragments != 2 {
		t.Errorf("Upload() fragments = %d, want 2", res.Fragments)
	}
}

func TestUpload_EmptyText(t *testing.T) {
	t.Parallel()

	svc, _, profileID := newFixture(t)
	_, err := svc.Upload(context.Background(), profileID, "s.txt", "")
	if !errors.Is(err, ErrEmptySample) {
		t.Errorf("Upload(empty) error = %v, want ErrEmptySample", err)
	}
}

func TestUpload_UnknownProfile(t *testing.T) {
	t.Parallel()

	svc, _, _ := newFixture(t)
	_, err := svc.Upload(context.Background(), uuid.New(), "s.txt", "some text")
	if !errors.Is(err, style.ErrNotFound) {
		t.Errorf("Upload(unknown profile) error = %v, want style.ErrNotFound", err)
	}
}
