package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// maxDetailBytes bounds a raw error body kept as the user-facing detail.
const maxDetailBytes = 200

var (
	ErrEmptyClip      = errors.New("no audio to upload")
	ErrEmptyText      = errors.New("text cannot be empty")
	ErrEmptyQuery     = errors.New("query cannot be empty")
	ErrEmptyReference = errors.New("reference text cannot be empty")
	ErrMissingJobID   = errors.New("response did not include a job id")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	// Detail is the server's explanation, taken from a FastAPI {"detail": ...}
	// or a {"error": ..., "details": ...} body, or the raw body otherwise.
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api status %d", e.StatusCode)
	}
	return fmt.Sprintf("api status %d: %s", e.StatusCode, e.Detail)
}

// UserMessage returns the text shown to the user for this failure.
func (e *APIError) UserMessage() string {
	if e.Detail != "" {
		return e.Detail
	}
	switch {
	case e.StatusCode == http.StatusNotFound:
		return "The requested job was not found."
	case e.StatusCode == http.StatusServiceUnavailable:
		return "The service is temporarily unavailable."
	case e.StatusCode >= 500:
		return "The server encountered an error."
	default:
		return http.StatusText(e.StatusCode)
	}
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsUnavailable reports whether the backend refused work it cannot do right now.
func IsUnavailable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable
}

type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Error   string          `json:"error"`
	Details string          `json:"details"`
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if detail := detailText(eb.Detail); detail != "" {
			apiErr.Detail = detail
			return apiErr
		}
		if eb.Error != "" {
			apiErr.Detail = eb.Error
			if eb.Details != "" {
				apiErr.Detail += ": " + eb.Details
			}
			return apiErr
		}
	}

	apiErr.Detail = truncateDetail(strings.TrimSpace(string(body)))
	return apiErr
}

// truncateDetail cuts s to at most maxDetailBytes without splitting a rune.
func truncateDetail(s string) string {
	if len(s) <= maxDetailBytes {
		return s
	}
	cut := maxDetailBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// detailText accepts a plain string or FastAPI's validation list
// [{"loc": [...], "msg": "..."}].
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return string(raw)
}
