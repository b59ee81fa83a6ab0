package server

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/vijay-prabhu/mailcode/internal/auth"
	"github.com/vijay-prabhu/mailcode/internal/email"
	"github.com/vijay-prabhu/mailcode/internal/resolver"
)

// errorResponse is the failure shape of every JSON endpoint
type errorResponse struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	NeedsAuth bool   `json:"needsAuth,omitempty"`
}

type statusResponse struct {
	OK         bool    `json:"ok"`
	Authorized bool    `json:"authorized"`
	Email      *string `json:"email"`
}

type authURLResponse struct {
	OK  bool   `json:"ok"`
	URL string `json:"url"`
}

type whoamiResponse struct {
	OK            bool   `json:"ok"`
	EmailAddress  string `json:"emailAddress"`
	MessagesTotal int64  `json:"messagesTotal"`
}

type latestRequest struct {
	Alias string `json:"alias"`
}

type latestResponse struct {
	OK bool `json:"ok"`
	*email.ResolvedResult
}

// healthz reports liveness, and the credential store's reachability when
// it lives in a database or server
func (s *Server) healthz(c *fiber.Ctx) error {
	if s.deps.Health != nil {
		if err := s.deps.Health(c.UserContext()); err != nil {
			requestLog(c, s.logger).Warn("health check failed", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// authStatus never fails; a broken store reads as unauthorized
func (s *Server) authStatus(c *fiber.Ctx) error {
	st := s.deps.Auth.Status(c.UserContext())

	resp := statusResponse{OK: true, Authorized: st.Authorized}
	if st.Authorized && st.Email != "" {
		e := st.Email
		resp.Email = &e
	}
	return c.JSON(resp)
}

// authURL sends the caller to the consent page, or returns its URL to
// clients asking for JSON
func (s *Server) authURL(c *fiber.Ctx) error {
	state, err := s.deps.State.Issue()
	if err != nil {
		return fmt.Errorf("failed to issue state: %w", err)
	}

	url := s.deps.OAuth.AuthURL(state, strings.TrimSpace(c.Query("email")))

	if strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMEApplicationJSON) {
		return c.JSON(authURLResponse{OK: true, URL: url})
	}
	return c.Redirect(url, fiber.StatusFound)
}

func (s *Server) oauthCallback(c *fiber.Ctx) error {
	log := requestLog(c, s.logger)

	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).SendString(`Missing "code".`)
	}
	if err := s.deps.State.Verify(c.Query("state")); err != nil {
		log.Warn("rejected oauth callback", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).SendString(`Invalid or expired "state".`)
	}

	cred, err := s.deps.Auth.Authorize(c.UserContext(), code)
	if err != nil {
		log.Error("oauth code exchange failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to exchange the authorization code.")
	}
	log.Info("oauth callback completed", zap.String("email", cred.Email))

	back := html.EscapeString(s.cfg.FrontendOrigin)
	c.Type("html", "utf-8")
	return c.SendString(fmt.Sprintf(
		`<h2>Authorized.</h2><p>You can close this tab and go back to <a href="%s">%s</a>.</p>`,
		back, back,
	))
}

func (s *Server) whoami(c *fiber.Ctx) error {
	ctx := c.UserContext()
	log := requestLog(c, s.logger)

	handle, err := s.deps.Auth.EnsureCredential(ctx)
	if err != nil {
		if errors.Is(err, auth.ErrNoAuthorization) || errors.Is(err, auth.ErrInvalidGrant) {
			return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{Error: "not authorized"})
		}
		log.Error("failed to ensure credential", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "could not load the profile"})
	}

	provider, err := s.deps.Providers.Provider(ctx, handle.TokenSource)
	if err != nil {
		log.Error("failed to create provider", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "could not load the profile"})
	}

	profile, err := provider.GetProfile(ctx)
	if err != nil {
		if errors.Is(err, email.ErrCredentialRejected) {
			return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{Error: "not authorized"})
		}
		log.Error("failed to get profile", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "could not load the profile"})
	}

	return c.JSON(whoamiResponse{
		OK:            true,
		EmailAddress:  profile.EmailAddress,
		MessagesTotal: profile.MessagesTotal,
	})
}

func (s *Server) latest(c *fiber.Ctx) error {
	var req latestRequest
	if err := c.BodyParser(&req); err != nil {
		req = latestRequest{}
	}

	result, err := s.deps.Resolver.ResolveLatest(c.UserContext(), req.Alias)
	if err != nil {
		return s.resolveError(c, err)
	}

	return c.JSON(latestResponse{OK: true, ResolvedResult: result})
}

// resolveError maps pipeline failures to HTTP statuses
func (s *Server) resolveError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, resolver.ErrMalformedInput):
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "missing alias"})
	case errors.Is(err, resolver.ErrUnauthorized):
		return c.Status(fiber.StatusForbidden).JSON(errorResponse{Error: "alias not allowed"})
	case errors.Is(err, resolver.ErrNeedsAuthorization):
		return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{NeedsAuth: true})
	case errors.Is(err, resolver.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{
			Error: "no recent qualifying message for this alias; check the address",
		})
	default:
		requestLog(c, s.logger).Error("resolution failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "mail provider error"})
	}
}
