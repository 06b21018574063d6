package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nestdesk/stager/internal/web"
)

// AddDocument stages one document file. The form carries the document's
// type code and display name alongside the file; existingId replaces a
// previously staged document in place.
func (h *Handler) AddDocument(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.parseMultipart(w, r); err != nil {
		web.WriteError(w, err)
		return
	}

	typeCode := r.FormValue("typeCode")
	if typeCode == "" {
		http.Error(w, "typeCode is required", http.StatusBadRequest)
		return
	}
	displayName := r.FormValue("displayName")
	existingID := r.FormValue("existingId")

	files, err := readFormFiles(r, "file")
	if err != nil {
		web.WriteError(w, err)
		return
	}
	if len(files) != 1 {
		http.Error(w, "exactly one file is required", http.StatusBadRequest)
		return
	}

	asset, err := sess.AddDocument(typeCode, displayName, files[0], existingID)
	if err != nil {
		writeError(w, err)
		return
	}
	web.WriteJSONStatus(w, http.StatusCreated, asset)
}

// RemoveDocument discards a staged document by asset id or type code.
func (h *Handler) RemoveDocument(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := sess.RemoveDocument(chi.URLParam(r, "asset")); err != nil {
		writeError(w, err)
		return
	}
	web.WriteJSON(w, sess.Snapshot())
}
