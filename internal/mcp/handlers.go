package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vijay-prabhu/mailcode/internal/resolver"
)

func (s *Server) registerHandlers() {
	s.handlers["resolve_latest"] = s.handleResolveLatest
	s.handlers["auth_status"] = s.handleAuthStatus
}

type resolveLatestParams struct {
	Alias     string `json:"alias"`
	SkipCache bool   `json:"skip_cache"`
}

func (s *Server) handleResolveLatest(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p resolveLatestParams
	if params != nil {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
	}

	if strings.TrimSpace(p.Alias) == "" {
		return nil, fmt.Errorf("alias is required")
	}

	result, err := s.resolver.ResolveWithOptions(ctx, p.Alias, resolver.Options{SkipCache: p.SkipCache})
	if err != nil {
		s.logger.Info("mcp resolution failed", zap.String("alias", p.Alias), zap.Error(err))
		return nil, describe(err)
	}

	return result, nil
}

// describe turns pipeline errors into instructions for the assistant
func describe(err error) error {
	switch {
	case errors.Is(err, resolver.ErrMalformedInput):
		return fmt.Errorf("alias must be an email address")
	case errors.Is(err, resolver.ErrUnauthorized):
		return fmt.Errorf("alias is not in the allow-list")
	case errors.Is(err, resolver.ErrNeedsAuthorization):
		return fmt.Errorf("the mailbox needs authorization; ask the owner to run 'mailcode auth url' and complete the consent flow")
	case errors.Is(err, resolver.ErrNotFound):
		return fmt.Errorf("no access code or household email for this alias in the search window; check the alias")
	default:
		return fmt.Errorf("mail provider error: %w", err)
	}
}

type authStatusResult struct {
	Authorized bool       `json:"authorized"`
	Email      string     `json:"email,omitempty"`
	Expiry     *time.Time `json:"access_token_expiry,omitempty"`
}

func (s *Server) handleAuthStatus(ctx context.Context, params json.RawMessage) (interface{}, error) {
	st := s.status.Status(ctx)

	out := authStatusResult{Authorized: st.Authorized, Email: st.Email}
	if st.Authorized && st.Expiry.Unix() > 0 {
		expiry := st.Expiry
		out.Expiry = &expiry
	}
	return out, nil
}

func (s *Server) handleReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case authResourceURI:
		return s.getResourceAuth(ctx), nil
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

func (s *Server) getResourceAuth(ctx context.Context) string {
	st := s.status.Status(ctx)
	if !st.Authorized {
		return "Mailbox Authorization\n=====================\nNot authorized. Run 'mailcode auth url' to start.\n"
	}

	expiry := "refresh pending"
	if st.Expiry.Unix() > 0 {
		expiry = st.Expiry.Format(time.RFC3339)
	}

	return fmt.Sprintf(`Mailbox Authorization
=====================
Account:             %s
Access token expiry: %s
`, st.Email, expiry)
}
