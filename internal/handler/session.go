package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nestdesk/stager/internal/logger"
	"github.com/nestdesk/stager/internal/staging"
	"github.com/nestdesk/stager/internal/web"
)

type openSessionRequest struct {
	IsProject bool                        `json:"isProject"`
	Images    []staging.PersistedImage    `json:"images"`
	Documents []staging.PersistedDocument `json:"documents"`
}

type openSessionResponse struct {
	SessionID string `json:"sessionId"`
}

// OpenSession creates a new edit session, pre-populated with the
// property's already persisted assets.
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")

	var body openSessionRequest
	if r.ContentLength > 0 {
		if err := web.DecodeValidate(r.Body, &body); err != nil {
			web.WriteError(w, err)
			return
		}
	}

	sess := h.Sessions.Open(tenant, body.IsProject, body.Images, body.Documents)
	logger.Log.Info("session opened",
		"tenant", tenant, "session", sess.ID,
		"images", len(body.Images), "documents", len(body.Documents))

	web.WriteJSONStatus(w, http.StatusCreated, openSessionResponse{SessionID: sess.ID})
}

// GetSession returns the current staging snapshot.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	web.WriteJSON(w, sess.Snapshot())
}

// DeleteSession abandons the session and releases everything it staged.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")
	id := chi.URLParam(r, "session")
	if err := h.Sessions.Close(tenant, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPreview serves the staged bytes behind a handle id, so the editor can
// show previews and thumbnails before anything is uploaded.
func (h *Handler) GetPreview(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := sess.Blob(chi.URLParam(r, "handle"))
	if err != nil {
		http.Error(w, "preview not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}
