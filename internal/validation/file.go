package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Policy describes what a staging population accepts. Images and documents
// carry different extension whitelists but share the size cap.
type Policy struct {
	AllowedExtensions map[string]bool
	MaxBytes          int64
}

// NewPolicy builds a Policy from a list of extensions (with leading dots,
// any case) and a size cap in bytes.
func NewPolicy(extensions []string, maxBytes int64) Policy {
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}
	return Policy{AllowedExtensions: allowed, MaxBytes: maxBytes}
}

// ValidateFile checks a candidate file against the policy. It is a pure
// function: the decision depends only on the file name and byte length.
func ValidateFile(filename string, sizeBytes int64, policy Policy) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !policy.AllowedExtensions[ext] {
		return fmt.Errorf("%w: %s (file: %s)", ErrInvalidExtension, ext, filename)
	}
	if sizeBytes > policy.MaxBytes {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d (file: %s)", ErrTooLarge, sizeBytes, policy.MaxBytes, filename)
	}
	return nil
}
