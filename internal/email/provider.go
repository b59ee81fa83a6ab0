package email

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
)

// ErrCredentialRejected wraps provider errors caused by an access token
// the provider no longer accepts
var ErrCredentialRejected = errors.New("provider rejected credential")

// Provider defines the mailbox operations the resolver needs.
// Implementations are bound to one authorized credential.
type Provider interface {
	// ListMessages returns up to max messages matching a provider query.
	// Only ID and ThreadID are guaranteed to be set.
	ListMessages(ctx context.Context, query string, max int) ([]MessageSummary, error)

	// GetMetadata fetches headers and snippet without the body
	GetMetadata(ctx context.Context, id string) (*Message, error)

	// GetFull fetches the message including its decoded body
	GetFull(ctx context.Context, id string) (*Message, error)

	// GetProfile returns the authorized mailbox profile
	GetProfile(ctx context.Context) (*Profile, error)
}

// ProviderFactory binds a Provider to an access token source
type ProviderFactory interface {
	Provider(ctx context.Context, ts oauth2.TokenSource) (Provider, error)
}
