// Package generate runs the generation pipeline: it persists the user
// turn, composes a prompt from the active voice profile and retrieved
// style fragments, streams the provider's response, and guarantees the
// assistant turn is persisted exactly once however the stream ends.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inkvoice/inkvoice/internal/compose"
	"github.com/inkvoice/inkvoice/internal/convo"
	"github.com/inkvoice/inkvoice/internal/provider"
	"github.com/inkvoice/inkvoice/internal/style"
)

var (
	// ErrConversationBusy means a generation is already streaming into
	// the conversation.
	ErrConversationBusy = errors.New("a generation is already running for this conversation")
	// ErrNotOwner means the conversation belongs to someone else.
	ErrNotOwner = errors.New("conversation belongs to a different owner")
	// ErrGenerationFailed is returned by Run when the stream ended with
	// an error event.
	ErrGenerationFailed = errors.New("generation failed")

	errIdleTimeout = errors.New("provider stream idle timeout")
)

// fallbackContent replaces an empty provider response so an assistant
// message is never persisted blank.
const fallbackContent = "I wasn't able to produce a response. Please try again."

// errorReason is the only error text that crosses the transport. Vendor
// errors are logged, never shown verbatim.
const errorReason = "Something went wrong while generating a response. Please try again."

// DefaultIdleTimeout bounds how long the orchestrator waits between
// provider deltas before forcing a failure.
const DefaultIdleTimeout = 60 * time.Second

// persistTimeout bounds the finalize step's database writes, which run
// detached from the request context.
const persistTimeout = 10 * time.Second

// Retriever returns style fragments similar to a query. Satisfied by
// *style.Retriever.
type Retriever interface {
	Retrieve(ctx context.Context, profileID uuid.UUID, queryText string) ([]style.Scored, error)
}

// Params describes one generation request.
type Params struct {
	ConversationID uuid.UUID
	Owner          string
	UserText       string
	ModelID        string
	// VoiceProfileID overrides the owner's active profile when set.
	VoiceProfileID *uuid.UUID
}

// Orchestrator coordinates generations. One session may stream into a
// conversation at a time; the busy flag is held from Start until the
// session's finalize step completes.
type Orchestrator struct {
	store       convo.Store
	profiles    style.ProfileStore
	retriever   Retriever
	registry    *provider.Registry
	idleTimeout time.Duration
	logger      *slog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session // keyed by conversation ID
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithIdleTimeout overrides DefaultIdleTimeout.
func WithIdleTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.idleTimeout = d }
}

// WithRetriever enables style-fragment retrieval. Without one, prompts
// are composed from the profile's preferences alone.
func WithRetriever(r Retriever) Option {
	return func(o *Orchestrator) { o.retriever = r }
}

func New(store convo.Store, profiles style.ProfileStore, registry *provider.Registry, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		store:       store,
		profiles:    profiles,
		registry:    registry,
		idleTimeout: DefaultIdleTimeout,
		logger:      logger,
		sessions:    make(map[uuid.UUID]*Session),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start validates the request, persists the user message, and launches
// the streaming session. Validation failures and a failure to persist
// the user message abort the turn before any provider call.
func (o *Orchestrator) Start(ctx context.Context, p Params) (*Session, error) {
	if p.UserText == "" {
		return nil, convo.ErrEmptyContent
	}
	prov, err := o.registry.Lookup(p.ModelID)
	if err != nil {
		return nil, err
	}
	conv, err := o.store.Conversation(ctx, p.ConversationID)
	if err != nil {
		return nil, err
	}
	if conv.OwnerID != p.Owner {
		return nil, ErrNotOwner
	}

	history, err := o.store.Messages(ctx, p.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sess := newSession(p.ConversationID, cancel)

	o.mu.Lock()
	if _, busy := o.sessions[p.ConversationID]; busy {
		o.mu.Unlock()
		cancel()
		return nil, ErrConversationBusy
	}
	o.sessions[p.ConversationID] = sess
	o.mu.Unlock()

	profile := o.resolveProfile(ctx, p)

	// The user turn is durable before any network call.
	userMsg := convo.Message{
		ConversationID: p.ConversationID,
		Role:           provider.RoleUser,
		Content:        p.UserText,
	}
	if profile != nil {
		userMsg.VoiceProfileID = &profile.ID
	}
	if _, err := o.store.AppendMessage(ctx, userMsg); err != nil {
		o.release(sess)
		cancel()
		return nil, fmt.Errorf("persisting user message: %w", err)
	}
	if conv.Title == "" {
		if err := o.store.SetTitle(ctx, conv.ID, convo.TitleFromText(p.UserText)); err != nil {
			o.logger.Warn("setting conversation title", "conversation", conv.ID, "error", err)
		}
	}

	fragments := o.retrieve(ctx, profile, p.UserText)

	req := compose.Compose(profile, fragments, toProviderMessages(history), p.UserText)
	req.Model = p.ModelID

	o.logger.Info("generation started",
		"session", sess.ID,
		"conversation", p.ConversationID,
		"model", p.ModelID,
		"provider", prov.Name(),
		"fragments", len(fragments))

	go o.stream(runCtx, sess, prov, req, profile)
	return sess, nil
}

// Cancel signals the conversation's active session to stop. It reports
// whether a session was active; with none it is a no-op.
func (o *Orchestrator) Cancel(conversationID uuid.UUID) bool {
	o.mu.Lock()
	sess := o.sessions[conversationID]
	o.mu.Unlock()
	if sess == nil {
		return false
	}
	sess.Cancel()
	return true
}

// Run drains a full generation synchronously and returns the final text
// plus the persisted assistant message ID.
func (o *Orchestrator) Run(ctx context.Context, p Params) (string, uuid.UUID, error) {
	sess, err := o.Start(ctx, p)
	if err != nil {
		return "", uuid.Nil, err
	}

	// The session buffer, not the transport, is the text returned:
	// content events may be dropped past a slow consumer, the buffer
	// never is, and it is what finalize persists.
	var (
		msgID  uuid.UUID
		runErr error
	)
	for {
		select {
		case ev, ok := <-sess.Events():
			if !ok {
				<-sess.Done()
				return sess.text(), msgID, runErr
			}
			switch ev.Kind {
			case EventDone:
				msgID = ev.MessageID
			case EventError:
				runErr = fmt.Errorf("%w: %s", ErrGenerationFailed, ev.Reason)
			}
		case <-ctx.Done():
			sess.Cancel()
			<-sess.Done()
			return sess.text(), msgID, ctx.Err()
		}
	}
}

func (o *Orchestrator) resolveProfile(ctx context.Context, p Params) *style.Profile {
	var (
		profile *style.Profile
		err     error
	)
	if p.VoiceProfileID != nil {
		profile, err = o.profiles.Profile(ctx, *p.VoiceProfileID)
	} else {
		profile, err = o.profiles.ActiveProfile(ctx, p.Owner)
	}
	if err != nil {
		if !errors.Is(err, style.ErrNotFound) {
			o.logger.Warn("resolving voice profile, continuing without one", "error", err)
		}
		return nil
	}
	return profile
}

// retrieve degrades to no fragments on any failure: a broken index must
// not block generation.
func (o *Orchestrator) retrieve(ctx context.Context, profile *style.Profile, query string) []style.Scored {
	if profile == nil || o.retriever == nil {
		return nil
	}
	fragments, err := o.retriever.Retrieve(ctx, profile.ID, query)
	if err != nil {
		o.logger.Warn("style retrieval failed, continuing without fragments",
			"profile", profile.ID, "error", err)
		return nil
	}
	return fragments
}

// stream pumps provider deltas into the session until end-of-stream,
// error, cancellation, or idle timeout, then funnels into finalize.
func (o *Orchestrator) stream(ctx context.Context, sess *Session, prov provider.Provider, req provider.Request, profile *style.Profile) {
	type item struct {
		delta provider.Delta
		err   error
	}
	deltas := make(chan item)
	go func() {
		defer close(deltas)
		for d, err := range prov.Stream(ctx, req) {
			select {
			case deltas <- item{d, err}:
				if err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	timer := time.NewTimer(o.idleTimeout)
	defer timer.Stop()

	var (
		streamErr error
		cancelled bool
	)
loop:
	for {
		select {
		case it, ok := <-deltas:
			if !ok {
				// The pump also stops on cancellation; classify by the
				// context so a cancel is never mistaken for completion.
				cancelled = ctx.Err() != nil
				break loop
			}
			if it.err != nil {
				streamErr = it.err
				break loop
			}
			sess.append(it.delta.Text)
			sess.emit(Event{Kind: EventContent, Delta: it.delta.Text})
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(o.idleTimeout)
		case <-timer.C:
			streamErr = errIdleTimeout
			break loop
		case <-ctx.Done():
			cancelled = true
			break loop
		}
	}

	o.finalizeSession(sess, req.Model, profile, streamErr, cancelled)
}

// finalizeSession is the single exit path for a session. It persists at
// most one assistant message, emits the terminal event, and releases
// the conversation's busy flag. The sync.Once guarantees exactly-once
// semantics even if multiple paths race into it.
func (o *Orchestrator) finalizeSession(sess *Session, model string, profile *style.Profile, streamErr error, cancelled bool) {
	sess.once.Do(func() {
		defer close(sess.done)
		defer o.release(sess)
		defer close(sess.events)
		sess.cancel()

		text := sess.text()
		emptyResponse := errors.Is(streamErr, provider.ErrEmptyResponse)

		switch {
		case emptyResponse:
			// Soft failure: substitute the fallback and complete. The
			// substitution goes through the buffer so the session text
			// always matches what gets persisted.
			text = fallbackContent
			sess.append(text)
			sess.emit(Event{Kind: EventContent, Delta: text})
		case streamErr != nil:
			o.logger.Error("provider stream failed",
				"session", sess.ID,
				"conversation", sess.ConversationID,
				"error", streamErr,
				"partial_len", len(text))
		case cancelled:
			o.logger.Info("generation cancelled",
				"session", sess.ID,
				"conversation", sess.ConversationID,
				"partial_len", len(text))
		}

		var msgID uuid.UUID
		if text != "" {
			msgID = o.persistAssistant(sess, model, profile, text)
		}

		switch {
		case streamErr != nil && !emptyResponse:
			sess.emit(Event{Kind: EventError, Reason: errorReason})
		case cancelled:
			sess.emit(Event{Kind: EventReset})
			sess.emit(Event{Kind: EventDone, MessageID: msgID})
		default:
			sess.emit(Event{Kind: EventDone, MessageID: msgID})
		}
	})
}

// persistAssistant saves the assistant turn, retrying once. A second
// failure is logged as data loss: the client already saw the tokens, so
// the turn is not replayable.
func (o *Orchestrator) persistAssistant(sess *Session, model string, profile *style.Profile, text string) uuid.UUID {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	msg := convo.Message{
		ConversationID: sess.ConversationID,
		Role:           provider.RoleAssistant,
		Content:        text,
		Model:          model,
	}
	if profile != nil {
		msg.VoiceProfileID = &profile.ID
	}

	saved, err := o.store.AppendMessage(ctx, msg)
	if err != nil {
		o.logger.Warn("persisting assistant message failed, retrying",
			"session", sess.ID, "error", err)
		saved, err = o.store.AppendMessage(ctx, msg)
	}
	if err != nil {
		o.logger.Error("assistant message lost after retry",
			"session", sess.ID,
			"conversation", sess.ConversationID,
			"content_len", len(text),
			"error", err)
		return uuid.Nil
	}
	return saved.ID
}

func (o *Orchestrator) release(sess *Session) {
	o.mu.Lock()
	if o.sessions[sess.ConversationID] == sess {
		delete(o.sessions, sess.ConversationID)
	}
	o.mu.Unlock()
}

func toProviderMessages(msgs []convo.Message) []provider.Message {
	out := make([]provider.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, provider.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
