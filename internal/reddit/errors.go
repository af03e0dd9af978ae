package reddit

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors classifying service responses. Transport failures are
// wrapped as-is and treated as transient by callers.
var (
	ErrPermission  = errors.New("permission denied")
	ErrNotFound    = errors.New("content not found")
	ErrRateLimited = errors.New("rate limited")
)

func classifyStatus(status int, op, body string) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: %w", op, ErrPermission)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", op, ErrRateLimited)
	}
	return fmt.Errorf("%s failed with status %d: %s", op, status, body)
}
