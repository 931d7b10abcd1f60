// Package provider defines the uniform streaming contract over
// interchangeable model vendors and the registry that selects an
// adapter for a configured model identifier.
//
// Adapters hide vendor differences: one vendor streams JSON-per-line
// server-sent events, another raw incremental text. Both expose the
// same delta sequence.
package provider

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"sync"
)

// Message roles on the provider wire.
type Role string

// Role values.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged turn of conversation history.
type Message struct {
	Role    Role
	Content string
}

// Request is a provider-neutral generation request.
type Request struct {
	Model    string
	System   string
	Messages []Message
}

// Delta is one incremental piece of streamed output.
type Delta struct {
	Text string
}

// Sentinel errors surfaced by adapters.
var (
	// ErrEmptyResponse indicates the provider stream terminated without
	// producing any text. A recoverable soft failure: the orchestrator
	// substitutes a user-visible fallback message.
	ErrEmptyResponse = errors.New("provider returned empty response")

	// ErrUnknownModel indicates no adapter is configured for the model.
	ErrUnknownModel = errors.New("unknown model")
)

// Provider streams text deltas for a request. The returned sequence
// yields (Delta, nil) for content and terminates after yielding a final
// (Delta{}, err) on failure. Breaking out of the sequence releases the
// underlying connection.
type Provider interface {
	Name() string
	Stream(ctx context.Context, req Request) iter.Seq2[Delta, error]
}

// Registry maps configured model identifiers to provider adapters.
// Selection is an explicit configuration lookup, never pattern matching
// on the model name.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Provider)}
}

// Register binds a model identifier to an adapter. Later registrations
// for the same model replace earlier ones.
func (r *Registry) Register(modelID string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[modelID] = p
}

// Lookup returns the adapter for modelID, or ErrUnknownModel.
func (r *Registry) Lookup(modelID string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.adapters[modelID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, modelID)
	}
	return p, nil
}

// Models returns the registered model identifiers, sorted.
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]string, 0, len(r.adapters))
	for m := range r.adapters {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}
