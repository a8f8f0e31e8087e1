package errors

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const maxPathLength = 4096

// ValidatePath checks a user-supplied file path (dataset, output, config).
// Absolute paths are allowed; empty paths, control characters and
// over-long paths are not.
func ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	return nil
}

// ValidateURL ensures a remote snapshot URL uses http or https.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}
	return nil
}

var iso2Regex = regexp.MustCompile(`^[A-Z]{2}$`)

// ValidateISO2 checks that code is two upper-case ASCII letters.
func ValidateISO2(code string) error {
	if !iso2Regex.MatchString(code) {
		return New(ErrCodeInvalidInput, "invalid country code %q (want two upper-case letters)", code)
	}
	return nil
}

// ValidateSessionID checks that id is a canonical UUID.
func ValidateSessionID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "session id cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil || len(id) != 36 {
		return New(ErrCodeInvalidInput, "invalid session id %q", id)
	}
	return nil
}
