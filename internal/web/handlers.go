package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/inkvoice/inkvoice/internal/convo"
	"github.com/inkvoice/inkvoice/internal/generate"
	"github.com/inkvoice/inkvoice/internal/ingest"
	"github.com/inkvoice/inkvoice/internal/provider"
	"github.com/inkvoice/inkvoice/internal/style"
	"github.com/inkvoice/inkvoice/internal/web/sse"
)

// maxBodyBytes bounds request bodies; sample uploads are the largest.
const maxBodyBytes = 4 << 20

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, convo.ErrNotFound), errors.Is(err, style.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, generate.ErrNotOwner), errors.Is(err, style.ErrOwnerMismatch):
		status, msg = http.StatusForbidden, "forbidden"
	case errors.Is(err, generate.ErrConversationBusy):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, convo.ErrEmptyContent),
		errors.Is(err, provider.ErrUnknownModel),
		errors.Is(err, ingest.ErrEmptySample):
		status, msg = http.StatusBadRequest, err.Error()
	}
	respondJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	return true
}

func pathUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

type conversationResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func toConversationResponse(c convo.Conversation) conversationResponse {
	return conversationResponse{
		ID:        c.ID.String(),
		Title:     c.Title,
		CreatedAt: c.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		UpdatedAt: c.UpdatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := s.store.CreateConversation(r.Context(), s.owner(r), req.Title)
	if err != nil {
		s.logger.Error("creating conversation", "error", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toConversationResponse(c))
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListConversations(r.Context(), s.owner(r))
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]conversationResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toConversationResponse(c))
	}
	respondJSON(w, http.StatusOK, out)
}

type messageResponse struct {
	ID             string `json:"id"`
	Role           string `json:"role"`
	Content        string `json:"content"`
	Model          string `json:"model,omitempty"`
	VoiceProfileID string `json:"voiceProfileId,omitempty"`
	CreatedAt      string `json:"createdAt"`
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	if !s.authorizeConversation(w, r, id) {
		return
	}

	msgs, err := s.store.Messages(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		mr := messageResponse{
			ID:        m.ID.String(),
			Role:      string(m.Role),
			Content:   m.Content,
			Model:     m.Model,
			CreatedAt: m.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		}
		if m.VoiceProfileID != nil {
			mr.VoiceProfileID = m.VoiceProfileID.String()
		}
		out = append(out, mr)
	}
	respondJSON(w, http.StatusOK, out)
}

type generateRequest struct {
	ConversationID string `json:"conversationId,omitempty"`
	UserText       string `json:"userText"`
	ModelID        string `json:"modelId"`
	VoiceProfileID string `json:"voiceProfileId,omitempty"`
}

func (s *Server) generateParams(r *http.Request, conversationID uuid.UUID, req generateRequest) (generate.Params, error) {
	p := generate.Params{
		ConversationID: conversationID,
		Owner:          s.owner(r),
		UserText:       req.UserText,
		ModelID:        req.ModelID,
	}
	if req.VoiceProfileID != "" {
		id, err := uuid.Parse(req.VoiceProfileID)
		if err != nil {
			return generate.Params{}, errors.New("invalid voiceProfileId")
		}
		p.VoiceProfileID = &id
	}
	return p, nil
}

// handleGenerate streams a generation over SSE. The event order per
// session is content*, then an optional reset, then exactly one done or
// error.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	var req generateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	params, err := s.generateParams(r, id, req)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	sess, err := s.orch.Start(r.Context(), params)
	if err != nil {
		respondError(w, err)
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		// The session is already running; stop it so it finalizes.
		sess.Cancel()
		<-sess.Done()
		respondError(w, err)
		return
	}

	clientGone := r.Context().Done()
	for {
		select {
		case ev, open := <-sess.Events():
			if !open {
				return
			}
			if err := s.writeStreamEvent(writer, ev); err != nil {
				s.logger.Debug("client dropped SSE stream", "session", sess.ID, "error", err)
				sess.Cancel()
				<-sess.Done()
				return
			}
		case <-clientGone:
			// Disconnect is a cooperative cancel; the partial result is
			// still persisted by the finalize step.
			sess.Cancel()
			<-sess.Done()
			return
		}
	}
}

func (s *Server) writeStreamEvent(w *sse.Writer, ev generate.Event) error {
	switch ev.Kind {
	case generate.EventContent:
		return w.WriteContent(ev.Delta)
	case generate.EventReset:
		return w.WriteReset()
	case generate.EventDone:
		return w.WriteDone(ev.MessageID)
	case generate.EventError:
		return w.WriteError(ev.Reason)
	default:
		return nil
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	stopped := s.orch.Cancel(id)
	respondJSON(w, http.StatusOK, map[string]bool{"stopped": stopped})
}

// handleGenerateSync drains the stream server-side and returns the
// final text plus the persisted message ID.
func (s *Server) handleGenerateSync(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	conversationID, err := uuid.Parse(req.ConversationID)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversationId"})
		return
	}
	params, err := s.generateParams(r, conversationID, req)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	text, msgID, err := s.orch.Run(r.Context(), params)
	if err != nil {
		respondError(w, err)
		return
	}
	resp := map[string]string{"text": text}
	if msgID != uuid.Nil {
		resp["messageId"] = msgID.String()
	}
	respondJSON(w, http.StatusOK, resp)
}

type profileResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string            `json:"name"`
		Preferences style.Preferences `json:"preferences"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	p, err := s.profiles.CreateProfile(r.Context(), s.owner(r), req.Name, req.Preferences)
	if err != nil {
		s.logger.Error("creating profile", "error", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, profileResponse{ID: p.ID.String(), Name: p.Name, IsActive: p.Active})
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	list, err := s.profiles.ListProfiles(r.Context(), s.owner(r))
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]profileResponse, 0, len(list))
	for _, p := range list {
		out = append(out, profileResponse{ID: p.ID.String(), Name: p.Name, IsActive: p.Active})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleActivateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	if err := s.profiles.SetActive(r.Context(), s.owner(r), id); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"active": true})
}

func (s *Server) handleUploadSample(w http.ResponseWriter, r *http.Request) {
	if s.uploads == nil {
		respondJSON(w, http.StatusNotImplemented, map[string]string{"error": "sample upload is not configured"})
		return
	}
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	var req struct {
		FileName string `json:"fileName"`
		Text     string `json:"text"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.uploads.Upload(r.Context(), id, req.FileName, req.Text)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"sampleId":  res.Sample.ID.String(),
		"fragments": res.Fragments,
	})
}

// authorizeConversation rejects access to conversations of other
// owners before any work happens.
func (s *Server) authorizeConversation(w http.ResponseWriter, r *http.Request, id uuid.UUID) bool {
	c, err := s.store.Conversation(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return false
	}
	if c.OwnerID != s.owner(r) {
		respondError(w, generate.ErrNotOwner)
		return false
	}
	return true
}
