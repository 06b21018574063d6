package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nestdesk/stager/internal/domain"
	"github.com/nestdesk/stager/internal/staging"
	"github.com/nestdesk/stager/internal/web"
)

type addImagesResponse struct {
	Added    []domain.StagedAsset   `json:"added"`
	Rejected []staging.RejectedFile `json:"rejected,omitempty"`
}

// AddImages stages the uploaded files into the session gallery. Files that
// fail validation are reported individually; the rest are still accepted.
func (h *Handler) AddImages(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.parseMultipart(w, r); err != nil {
		web.WriteError(w, err)
		return
	}
	files, err := readFormFiles(r, "files")
	if err != nil {
		web.WriteError(w, err)
		return
	}
	if len(files) == 0 {
		http.Error(w, "no files in request", http.StatusBadRequest)
		return
	}

	added, rejected, err := sess.AddImages(files)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if len(rejected) > 0 {
		status = http.StatusMultiStatus
	}
	web.WriteJSONStatus(w, status, addImagesResponse{Added: added, Rejected: rejected})
}

type positionRequest struct {
	Position *int `json:"position" validate:"required"`
}

// MoveImage splices the image to a new gallery position.
func (h *Handler) MoveImage(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body positionRequest
	if err := web.DecodeValidate(r.Body, &body); err != nil {
		web.WriteError(w, err)
		return
	}

	if err := sess.Reorder(chi.URLParam(r, "asset"), *body.Position); err != nil {
		writeError(w, err)
		return
	}
	web.WriteJSON(w, sess.Snapshot())
}

// SetMainImage marks the image as the gallery's main image.
func (h *Handler) SetMainImage(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := sess.SetMain(chi.URLParam(r, "asset")); err != nil {
		writeError(w, err)
		return
	}
	web.WriteJSON(w, sess.Snapshot())
}

// SetImageMeta updates the image's alt text and title.
func (h *Handler) SetImageMeta(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var meta domain.ImageMeta
	if err := web.Decode(r.Body, &meta); err != nil {
		web.WriteError(w, err)
		return
	}

	if err := sess.SetImageMeta(chi.URLParam(r, "asset"), meta); err != nil {
		writeError(w, err)
		return
	}
	web.WriteJSON(w, sess.Snapshot())
}

// RemoveImage discards the image from the gallery and releases its staged
// bytes.
func (h *Handler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := sess.Remove(chi.URLParam(r, "asset")); err != nil {
		writeError(w, err)
		return
	}
	web.WriteJSON(w, sess.Snapshot())
}
