package shared

import (
	"errors"

	"github.com/dealerdesk/dealerdesk/internal/platform/httpx"
)

var (
	// ErrNotFound indicates resource not found. Aliased so httpx.RespondError
	// maps it without every caller translating.
	ErrNotFound = httpx.ErrNotFound
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
