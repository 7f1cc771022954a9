package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is returned for non-2xx responses from a model provider.
type APIError struct {
	Provider   string
	StatusCode int

	// Code is the provider-specific status (e.g. "RESOURCE_EXHAUSTED").
	Code string

	// Message is the human readable error message.
	Message string

	// Raw is the unparsed response body.
	Raw []byte
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}

	var b strings.Builder
	if e.Provider != "" {
		b.WriteString(e.Provider)
		b.WriteString(": ")
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, "http %d", e.StatusCode)
	} else {
		b.WriteString("http error")
	}

	msg := strings.TrimSpace(e.Message)
	if msg == "" && e.StatusCode != 0 {
		msg = http.StatusText(e.StatusCode)
	}
	if msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}

	if code := strings.TrimSpace(e.Code); code != "" {
		b.WriteString(" (")
		b.WriteString(code)
		b.WriteString(")")
	}

	return b.String()
}

// AsAPIError reports whether err wraps an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsAuth reports whether err is a provider authentication failure.
func IsAuth(err error) bool {
	ae, ok := AsAPIError(err)
	if !ok {
		return false
	}
	return ae.StatusCode == http.StatusUnauthorized || ae.StatusCode == http.StatusForbidden
}

// IsQuota reports whether err is a provider rate limit or quota failure.
func IsQuota(err error) bool {
	ae, ok := AsAPIError(err)
	if !ok {
		return false
	}
	return ae.StatusCode == http.StatusTooManyRequests || ae.Code == "RESOURCE_EXHAUSTED"
}
