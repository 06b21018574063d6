package web

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/nestdesk/stager/internal/logger"
)

// WriteError maps an error to an HTTP response. *Error carries its own
// status code; anything else is a 500.
func WriteError(w http.ResponseWriter, err error) {
	if e, ok := err.(*Error); ok {
		http.Error(w, e.Message, e.StatusCode)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// WriteJSON encodes v as the response body with status code 200.
func WriteJSON(w http.ResponseWriter, v any) {
	WriteJSONStatus(w, http.StatusOK, v)
}

// WriteJSONStatus encodes v as the response body with the given status code.
func WriteJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error("failed to encode response", "error", err)
	}
}

// Decode parses the request body as JSON into body.
func Decode(r io.ReadCloser, body any) error {
	if err := json.NewDecoder(r).Decode(body); err != nil {
		return &Error{Message: "Body is invalid json", StatusCode: http.StatusBadRequest}
	}
	return nil
}

// DecodeValidate parses the request body as JSON and checks `validate` tags.
func DecodeValidate(r io.ReadCloser, body any) error {
	if err := Decode(r, body); err != nil {
		return err
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(body); err != nil {
		return &Error{Message: "Required fields missing", StatusCode: http.StatusBadRequest}
	}
	return nil
}
