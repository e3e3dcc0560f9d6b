package errors

import (
	"unicode"
)

// ValidateNodeID validates a node ID arriving from outside the process
// (HTTP path parameters, manifest files, snapshot imports). IDs are
// opaque to the graph engine itself, but they travel through URLs, DOT
// documents and cache keys, so the shape rules are conservative:
//   - No empty IDs
//   - No control characters or null bytes
//   - Maximum length of 256 characters
func ValidateNodeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidDefinition, "node ID cannot be empty")
	}

	if len(id) > 256 {
		return New(ErrCodeInvalidDefinition, "node ID too long (max 256 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidDefinition, "node ID contains invalid control characters")
		}
	}

	return nil
}

// ValidateNodeIDs validates every ID in the list, reporting the first
// offender.
func ValidateNodeIDs(ids []string) error {
	for _, id := range ids {
		if err := ValidateNodeID(id); err != nil {
			return err
		}
	}
	return nil
}
