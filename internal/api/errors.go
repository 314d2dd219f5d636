package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrTransport covers everything that kept a request from producing a usable
// response: unreachable backend, open breaker, malformed JSON.
var ErrTransport = errors.New("backend request failed")

// Error is a non-2xx response from the backend.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Detail)
}

// UserMessage returns the backend detail verbatim when there is one and the
// fallback otherwise.
func UserMessage(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

// errorBody accepts both {"detail": ...} and the {"error": ...} shape.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Error  json.RawMessage `json:"error"`
}

func parseDetail(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	for _, raw := range []json.RawMessage{eb.Detail, eb.Error} {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		return strings.TrimSpace(string(raw))
	}
	return ""
}
