package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nestdesk/stager/internal/domain"
	"github.com/nestdesk/stager/internal/web"
)

// Save reconciles the session's staged assets against the media boundary
// and persists the property. On success the session is gone; on failure it
// survives with whatever was durably committed, so the caller can retry.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")
	sessionID := chi.URLParam(r, "session")

	var form domain.PropertyForm
	if err := web.DecodeValidate(r.Body, &form); err != nil {
		web.WriteError(w, err)
		return
	}

	payload, err := h.Saver.Save(r.Context(), tenant, sessionID, callerToken(r), form)
	if err != nil {
		writeError(w, err)
		return
	}
	web.WriteJSON(w, payload)
}
