package common

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
)

// GetAndValidateURLParam extracts, decodes, and validates a URL parameter from the request.
// Returns the decoded value with surrounding spaces trimmed, or an error if invalid.
// Validation rules:
// - Must not be empty after trimming whitespace
// - Must not contain tabs or line breaks; inner spaces are allowed since names contain them
func GetAndValidateURLParam(r *http.Request, paramName string) (string, error) {
	// Extract from chi router
	encodedValue := chi.URLParam(r, paramName)

	// Decode
	decoded, err := url.PathUnescape(encodedValue)
	if err != nil {
		return "", fmt.Errorf("invalid URL encoding in %s", paramName)
	}

	trimmed := strings.TrimSpace(decoded)
	if trimmed == "" {
		return "", fmt.Errorf("%s cannot be empty", paramName)
	}

	if strings.ContainsAny(trimmed, "\t\n\r") {
		return "", fmt.Errorf("%s cannot contain tabs or line breaks", paramName)
	}

	return trimmed, nil
}
