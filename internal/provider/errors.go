package provider

import (
	"errors"
	"fmt"
	"strings"
)

// maxErrorTextLen bounds the error description persisted on failed records.
const maxErrorTextLen = 500

// ProviderError classifies a failed provider call: transport error, timeout,
// or non-success response. It is never retried by the gateway itself.
type ProviderError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, "provider error")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return Truncate(strings.Join(parts, ": "))
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsProviderError reports whether err originated from a gateway call.
func IsProviderError(err error) bool {
	var providerErr *ProviderError
	return errors.As(err, &providerErr)
}

// Truncate bounds an error description to what is safe to persist.
func Truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxErrorTextLen {
		return s
	}
	return string(runes[:maxErrorTextLen])
}
