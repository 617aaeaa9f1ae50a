package keyrunes

import (
	"errors"
	"fmt"
)

// Sentinel errors for the outcomes a caller may want to branch on. Service
// failures are wrapped in an *APIError that unwraps to one of these, so
// errors.Is works regardless of how much context the message carries.
var (
	// ErrAuthentication covers invalid or missing credentials: an HTTP 401,
	// or calling an identity-requiring operation with no token held.
	ErrAuthentication = errors.New("authentication failed")

	// ErrAuthorization covers denied requests: an HTTP 403, or a guard
	// rejecting the subject's group/admin status.
	ErrAuthorization = errors.New("authorization denied")

	// ErrUserNotFound is returned for HTTP 404 responses.
	ErrUserNotFound = errors.New("user not found")

	// ErrGroupNotFound marks an absent group resource.
	ErrGroupNotFound = errors.New("group not found")

	// ErrNetwork covers transport-level failures: timeouts, refused
	// connections, DNS errors.
	ErrNetwork = errors.New("network failure")

	// ErrService is the catch-all for any other non-2xx response. The
	// wrapping *APIError carries the status code and raw body.
	ErrService = errors.New("service error")

	// ErrConfiguration signals a programming or setup mistake (no client
	// resolvable, empty subject id). Deliberately distinct from
	// ErrAuthorization: it means the check never ran, not that it failed.
	ErrConfiguration = errors.New("configuration error")

	// ErrValidation covers malformed local input, raised before any
	// network call is made.
	ErrValidation = errors.New("validation failed")
)

// APIError is a failed HTTP exchange with the Keyrunes service. Kind is one
// of the sentinel errors above and is exposed through Unwrap.
type APIError struct {
	Kind   error
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%v (status %d)", e.Kind, e.Status)
	}
	return fmt.Sprintf("%v (status %d): %s", e.Kind, e.Status, e.Body)
}

func (e *APIError) Unwrap() error { return e.Kind }
