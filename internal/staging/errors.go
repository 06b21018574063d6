package staging

import "errors"

var (
	// ErrSessionNotFound is returned for unknown or already closed sessions.
	ErrSessionNotFound = errors.New("edit session not found")
	// ErrSessionClosed is returned when operating on a torn-down session.
	ErrSessionClosed = errors.New("edit session closed")
	// ErrSaveInFlight is returned when a staging mutation arrives while a
	// save is reconciling. A reorder mid-upload would break the positional
	// correlation of the batch, so mutations are locked out entirely.
	ErrSaveInFlight = errors.New("save in flight, staging is locked")
	// ErrAssetNotFound is returned when an asset id is not in the session.
	ErrAssetNotFound = errors.New("asset not found")
	// ErrNoFilesAccepted is returned when every file in an add call failed
	// validation.
	ErrNoFilesAccepted = errors.New("no files accepted")
)
