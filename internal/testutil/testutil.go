// Package testutil holds fakes shared by tests across packages.
package testutil

import (
	"context"
	"hash/fnv"
	"iter"
	"time"

	"github.com/inkvoice/inkvoice/internal/provider"
)

// ScriptedProvider replays a fixed sequence of deltas, optionally
// ending with an error. A positive Delay is inserted before each delta
// so tests can cancel mid-stream deterministically.
type ScriptedProvider struct {
	Deltas []string
	Err    error // yielded after the deltas, nil for clean end-of-stream
	Delay  time.Duration
	// Block, when set, makes the stream hang after the scripted deltas
	// until the context is cancelled. Used for idle-timeout tests.
	Block bool
}

var _ provider.Provider = (*ScriptedProvider)(nil)

func (p *ScriptedProvider) Name() string { return "scripted" }

func (p *ScriptedProvider) Stream(ctx context.Context, _ provider.Request) iter.Seq2[provider.Delta, error] {
	return func(yield func(provider.Delta, error) bool) {
		for _, d := range p.Deltas {
			if p.Delay > 0 {
				select {
				case <-time.After(p.Delay):
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
			if !yield(provider.Delta{Text: d}, nil) {
				return
			}
		}
		if p.Block {
			<-ctx.Done()
			return
		}
		if p.Err != nil {
			yield(provider.Delta{}, p.Err)
		}
	}
}

// HashEmbedder produces deterministic pseudo-embeddings so similarity
// ordering is stable across runs without a real model.
type HashEmbedder struct {
	Dim int
}

func (e *HashEmbedder) Name() string   { return "hash" }
func (e *HashEmbedder) Dimension() int { return e.Dim }

func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.Dim)
	h := fnv.New32a()
	for i := range vec {
		h.Write([]byte(text))
		h.Write([]byte{byte(i)})
		vec[i] = float32(h.Sum32()%1000)/1000 - 0.5
	}
	return vec, nil
}
