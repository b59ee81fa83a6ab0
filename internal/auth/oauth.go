package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/vijay-prabhu/mailcode/internal/credential"
)

// DefaultTokenLifetime is assumed when the token endpoint omits expires_in
const DefaultTokenLifetime = time.Hour

// OAuthClient performs the authorization-code and refresh flows against
// Google's token endpoint
type OAuthClient struct {
	config  *oauth2.Config
	timeout time.Duration
	now     func() time.Time
}

// NewOAuthClient wraps an oauth2 config (see gmail.NewOAuthConfig). Every
// token endpoint call is bounded by timeout.
func NewOAuthClient(config *oauth2.Config, timeout time.Duration) *OAuthClient {
	return &OAuthClient{config: config, timeout: timeout, now: time.Now}
}

// withTimeout bounds one token endpoint call. Resolutions run detached from
// the caller, so this is the only deadline the call gets.
func (c *OAuthClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// AuthURL builds the consent URL. Offline access and forced consent make
// Google issue a refresh token; loginHint preselects the account.
func (c *OAuthClient) AuthURL(state, loginHint string) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	}
	if loginHint != "" {
		opts = append(opts, oauth2.SetAuthURLParam("login_hint", loginHint))
	}
	return c.config.AuthCodeURL(state, opts...)
}

// Exchange trades an authorization code for a credential. The identity
// comes from the id_token when Google returns one.
func (c *OAuthClient) Exchange(ctx context.Context, code string) (*credential.Credential, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	tok, err := c.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	cred := &credential.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       expiryMillis(tok, c.now()),
	}

	if raw, ok := tok.Extra("id_token").(string); ok && raw != "" {
		id, err := ParseIDToken(raw)
		if err != nil {
			return nil, err
		}
		cred.Subject = id.Subject
		cred.Email = id.Email
	}

	return cred, nil
}

// Refresh obtains a new access token for a refresh token
func (c *OAuthClient) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	tok, err := c.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	return tok, nil
}

// IsInvalidGrant reports whether Google rejected the refresh token
// (revoked, expired or issued to another client)
func IsInvalidGrant(err error) bool {
	if err == nil {
		return false
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode == "invalid_grant" {
		return true
	}
	return strings.Contains(err.Error(), "invalid_grant")
}

// expiryMillis returns the token expiry in epoch millis. A response
// without expires_in gets DefaultTokenLifetime from now, so it is not
// refreshed on every request.
func expiryMillis(tok *oauth2.Token, now time.Time) int64 {
	if tok.Expiry.IsZero() {
		return now.Add(DefaultTokenLifetime).UnixMilli()
	}
	return tok.Expiry.UnixMilli()
}
