package style

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/inkvoice/inkvoice/internal/log"
)

// axisEmbedder maps known words to fixed axis vectors so similarity
// ordering in tests is predictable.
type axisEmbedder struct {
	fail bool
}

func (e *axisEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.fail {
		return nil, errors.New("embedder down")
	}
	switch text {
	case "alpha":
		return []float32{1, 0, 0}, nil
	case "beta":
		return []float32{0, 1, 0}, nil
	default:
		return []float32{0.6, 0.8, 0}, nil
	}
}

func (e *axisEmbedder) Dimension() int { return 3 }
func (e *axisEmbedder) Name() string   { return "axis" }

func TestRetriever_RanksByDescendingSimilarity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idx := NewMemoryIndex()
	profileID := uuid.New()

	err := idx.Append(ctx, []Fragment{
		frag(profileID, "about beta", []float32{0, 1, 0}, 0),
		frag(profileID, "about alpha", []float32{1, 0, 0}, 1),
		frag(profileID, "mixed", []float32{1, 1, 0}, 2),
	})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	r := NewRetriever(&axisEmbedder{}, idx, 3, log.NewNop())
	results, err := r.Retrieve(ctx, profileID, "alpha")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("Retrieve() returned %d results, want 3", len(results))
	}
	if results[0].Fragment.Text != "about alpha" {
		t.Errorf("top result = %q, want %q", results[0].Fragment.Text, "about alpha")
	}
	for i := 1; i < len(results); i++ {
		if results[i].Similarity > results[i-1].Similarity {
			t.Errorf("similarities not non-increasing at %d: %v > %v",
				i, results[i].Similarity, results[i-1].Similarity)
		}
	}
}

func TestRetriever_DefaultTopK(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idx := NewMemoryIndex()
	profileID := uuid.New()

	for i := 0; i < 6; i++ {
		if err := idx.Append(ctx, []Fragment{frag(profileID, "f", []float32{1, 0, 0}, i)}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	r := NewRetriever(&axisEmbedder{}, idx, 0, log.NewNop())
	results, err := r.Retrieve(ctx, profileID, "alpha")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(results) != DefaultTopK {
		t.Errorf("Retrieve() returned %d results, want default %d", len(results), DefaultTopK)
	}
}

func TestRetriever_EmbedderFailure(t *testing.T) {
	t.Parallel()

	r := NewRetriever(&axisEmbedder{fail: true}, NewMemoryIndex(), 3, log.NewNop())
	_, err := r.Retrieve(context.Background(), uuid.New(), "alpha")
	if err == nil {
		t.Fatal("Retrieve() expected error when embedder fails")
	}
}
