package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nestdesk/stager/internal/reconcile"
	"github.com/nestdesk/stager/internal/save"
	"github.com/nestdesk/stager/internal/staging"
	"github.com/nestdesk/stager/internal/validation"
	"github.com/nestdesk/stager/internal/web"
)

// session resolves the tenant-scoped session from the route params.
func (h *Handler) session(r *http.Request) (*staging.Session, error) {
	tenant := chi.URLParam(r, "tenant")
	id := chi.URLParam(r, "session")
	return h.Sessions.Get(tenant, id)
}

// callerToken returns the bearer token forwarded by the caller, if any.
// When empty, the api client falls back to the configured service token.
func callerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return after
	}
	return ""
}

// readFormFiles reads every multipart file under fieldName fully into
// memory. The request body is already capped by MaxBytesReader.
func readFormFiles(r *http.Request, fieldName string) ([]staging.File, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[fieldName]
	files := make([]staging.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, staging.File{Name: fh.Filename, Data: data})
	}
	return files, nil
}

func (h *Handler) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxRequestBytes)
	if err := r.ParseMultipartForm(h.MaxRequestBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return &web.Error{Message: "request body too large", StatusCode: http.StatusRequestEntityTooLarge}
		}
		return &web.Error{Message: "invalid multipart body", StatusCode: http.StatusBadRequest}
	}
	return nil
}

// writeError maps domain sentinel errors onto HTTP status codes before
// falling through to the generic web helper.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, staging.ErrSessionNotFound), errors.Is(err, staging.ErrSessionClosed):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, staging.ErrAssetNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, staging.ErrSaveInFlight):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, staging.ErrNoFilesAccepted),
		errors.Is(err, validation.ErrInvalidExtension),
		errors.Is(err, validation.ErrTooLarge):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, reconcile.ErrUpload), errors.Is(err, reconcile.ErrMismatch), errors.Is(err, save.ErrPersist):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		web.WriteError(w, err)
	}
}
