package resolver

import (
	"errors"
	"fmt"

	"github.com/vijay-prabhu/mailcode/internal/auth"
	"github.com/vijay-prabhu/mailcode/internal/email"
)

var (
	// ErrMalformedInput means the alias is missing or not an address
	ErrMalformedInput = errors.New("missing or invalid alias")

	// ErrUnauthorized means the alias is outside the allow-list
	ErrUnauthorized = errors.New("alias not allowed")

	// ErrNeedsAuthorization means no valid mailbox credential exists; the
	// owner must go through the consent flow again
	ErrNeedsAuthorization = errors.New("mailbox authorization required")

	// ErrNotFound means no qualifying message is in the search window
	ErrNotFound = errors.New("no qualifying message")

	// ErrUpstream wraps provider failures other than credential rejection
	ErrUpstream = errors.New("mail provider error")
)

// Outcome returns the metrics label for a resolution error
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMalformedInput):
		return "bad_input"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNeedsAuthorization):
		return "needs_auth"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "upstream"
	}
}

// credentialError translates a token lifecycle failure
func credentialError(err error) error {
	if errors.Is(err, auth.ErrNoAuthorization) || errors.Is(err, auth.ErrInvalidGrant) {
		return fmt.Errorf("%w: %v", ErrNeedsAuthorization, err)
	}
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}

// providerError translates a provider call failure. A rejected token or
// refresh grant means re-authorization, never a retry.
func providerError(err error) error {
	if errors.Is(err, email.ErrCredentialRejected) || auth.IsInvalidGrant(err) {
		return fmt.Errorf("%w: %v", ErrNeedsAuthorization, err)
	}
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}
