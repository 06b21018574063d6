package validation

import "errors"

// ErrInvalidExtension is returned when a file's extension is not in the
// policy's whitelist.
var ErrInvalidExtension = errors.New("invalid file extension")

// ErrTooLarge is returned when a file exceeds the policy's size cap.
var ErrTooLarge = errors.New("file too large")
