package handler

import (
	"net/http"

	"github.com/nestdesk/stager/internal/save"
	"github.com/nestdesk/stager/internal/staging"
)

type Handler struct {
	Sessions *staging.Manager
	Saver    *save.Orchestrator

	// MaxRequestBytes caps multipart request bodies. Slightly above the
	// per-file cap so form overhead does not reject a max-size file.
	MaxRequestBytes int64
}

func New(sessions *staging.Manager, saver *save.Orchestrator, maxFileSizeBytes int64) *Handler {
	return &Handler{
		Sessions:        sessions,
		Saver:           saver,
		MaxRequestBytes: maxFileSizeBytes + 1<<20,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
