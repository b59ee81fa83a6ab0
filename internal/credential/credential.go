package credential

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"
)

// ErrNotFound is returned by Load when nothing has been stored yet
var ErrNotFound = errors.New("no stored credential")

// DefaultSubject keys a credential whose Google account is not known yet
// (seeded from a bare refresh token)
const DefaultSubject = "default"

// Credential is the delegated-access record for the single authorized
// mailbox. RefreshToken is the only field that must survive every write;
// AccessToken and Expiry are regenerated on refresh.
type Credential struct {
	Subject      string `json:"sub"`
	Email        string `json:"email,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token"`
	Expiry       int64  `json:"expiry"` // epoch millis, 0 when unknown
}

// ExpiryTime returns Expiry as a time, zero when unknown
func (c *Credential) ExpiryTime() time.Time {
	if c.Expiry == 0 {
		return time.Time{}
	}
	return time.UnixMilli(c.Expiry)
}

// NeedsRefresh reports whether the access token is missing or expires
// within margin of now
func (c *Credential) NeedsRefresh(now time.Time, margin time.Duration) bool {
	if c.AccessToken == "" {
		return true
	}
	return now.UnixMilli() > c.Expiry-margin.Milliseconds()
}

// Token converts the credential to an oauth2 token
func (c *Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       c.ExpiryTime(),
	}
}

// Merge returns c updated with a newer write. Empty fields of next keep
// the stored values, so a response without a refresh token never clears it.
func (c *Credential) Merge(next *Credential) *Credential {
	merged := *c
	if next.Subject != "" {
		merged.Subject = next.Subject
	}
	if next.Email != "" {
		merged.Email = next.Email
	}
	if next.RefreshToken != "" {
		merged.RefreshToken = next.RefreshToken
	}
	merged.AccessToken = next.AccessToken
	merged.Expiry = next.Expiry
	return &merged
}

// Store persists the credential of one deployment
type Store interface {
	// Load returns the stored credential or ErrNotFound
	Load(ctx context.Context) (*Credential, error)

	// Save replaces the stored credential
	Save(ctx context.Context, c *Credential) error

	Close() error
}

// Pinger is implemented by stores backed by a database or server
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks the service behind store. Local stores are always healthy.
func Ping(ctx context.Context, store Store) error {
	if p, ok := store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func subjectOf(c *Credential) string {
	if c.Subject == "" {
		return DefaultSubject
	}
	return c.Subject
}
