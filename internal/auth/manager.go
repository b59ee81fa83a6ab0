package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/vijay-prabhu/mailcode/internal/credential"
	"github.com/vijay-prabhu/mailcode/internal/metrics"
)

var (
	// ErrNoAuthorization means no usable credential is stored
	ErrNoAuthorization = errors.New("no mailbox authorization")

	// ErrInvalidGrant means Google rejected the stored refresh token and
	// the account owner must authorize again
	ErrInvalidGrant = errors.New("refresh token rejected")
)

// RefreshMargin is how long before expiry an access token is replaced
const RefreshMargin = 60 * time.Second

// Refresher exchanges a refresh token for a new access token
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// Exchanger trades an authorization code for a credential
type Exchanger interface {
	Exchange(ctx context.Context, code string) (*credential.Credential, error)
}

// Handle is an authorized, fresh credential ready for provider calls
type Handle struct {
	Credential  *credential.Credential
	TokenSource oauth2.TokenSource
}

// Status describes the stored authorization
type Status struct {
	Authorized bool
	Email      string
	Expiry     time.Time
}

// Manager owns the stored credential and refreshes it when needed.
// Concurrent callers may both refresh a near-expiry token; that is tolerated.
type Manager struct {
	store     credential.Store
	refresher Refresher
	exchanger Exchanger
	logger    *zap.Logger
	now       func() time.Time
}

// NewManager creates a token lifecycle manager
func NewManager(store credential.Store, refresher Refresher, exchanger Exchanger, logger *zap.Logger) *Manager {
	return &Manager{
		store:     store,
		refresher: refresher,
		exchanger: exchanger,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock overrides the time source
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// EnsureCredential loads the stored credential and refreshes the access
// token when it is missing or expires within RefreshMargin
func (m *Manager) EnsureCredential(ctx context.Context) (*Handle, error) {
	cred, err := m.store.Load(ctx)
	if errors.Is(err, credential.ErrNotFound) {
		return nil, ErrNoAuthorization
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	if cred.RefreshToken == "" {
		return nil, ErrNoAuthorization
	}

	if cred.NeedsRefresh(m.now(), RefreshMargin) {
		cred, err = m.refresh(ctx, cred)
		if err != nil {
			return nil, err
		}
	}

	return &Handle{
		Credential:  cred,
		TokenSource: oauth2.StaticTokenSource(cred.Token()),
	}, nil
}

func (m *Manager) refresh(ctx context.Context, cred *credential.Credential) (*credential.Credential, error) {
	tok, err := m.refresher.Refresh(ctx, cred.RefreshToken)
	metrics.RecordTokenRefresh(err)
	if err != nil {
		if IsInvalidGrant(err) {
			m.logger.Warn("refresh token rejected, re-authorization required",
				zap.String("email", cred.Email),
			)
			return nil, fmt.Errorf("%w: %v", ErrInvalidGrant, err)
		}
		return nil, err
	}

	next := cred.Merge(&credential.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       expiryMillis(tok, m.now()),
	})

	if err := m.store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed credential: %w", err)
	}

	m.logger.Debug("access token refreshed",
		zap.String("email", next.Email),
		zap.Time("expiry", next.ExpiryTime()),
	)
	return next, nil
}

// Authorize completes the consent flow. A response without a refresh
// token (consent already granted) keeps the stored one.
func (m *Manager) Authorize(ctx context.Context, code string) (*credential.Credential, error) {
	fresh, err := m.exchanger.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	stored, err := m.store.Load(ctx)
	if err != nil && !errors.Is(err, credential.ErrNotFound) {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}

	next := fresh
	if stored != nil {
		next = stored.Merge(fresh)
	}
	if next.RefreshToken == "" {
		return nil, fmt.Errorf("google returned no refresh token; revoke the app's access and authorize again")
	}

	if err := m.store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to persist credential: %w", err)
	}

	m.logger.Info("mailbox authorized", zap.String("email", next.Email))
	return next, nil
}

// Status reports the stored authorization. Store failures degrade to
// unauthorized.
func (m *Manager) Status(ctx context.Context) Status {
	cred, err := m.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, credential.ErrNotFound) {
			m.logger.Warn("failed to load credential for status", zap.Error(err))
		}
		return Status{}
	}

	return Status{
		Authorized: cred.RefreshToken != "",
		Email:      cred.Email,
		Expiry:     cred.ExpiryTime(),
	}
}
