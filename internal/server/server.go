package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vijay-prabhu/mailcode/internal/auth"
	"github.com/vijay-prabhu/mailcode/internal/config"
	"github.com/vijay-prabhu/mailcode/internal/credential"
	"github.com/vijay-prabhu/mailcode/internal/email"
)

// Resolver resolves the latest qualifying message for an alias
type Resolver interface {
	ResolveLatest(ctx context.Context, alias string) (*email.ResolvedResult, error)
}

// Authorizer owns the mailbox credential
type Authorizer interface {
	EnsureCredential(ctx context.Context) (*auth.Handle, error)
	Authorize(ctx context.Context, code string) (*credential.Credential, error)
	Status(ctx context.Context) auth.Status
}

// ConsentURL builds the provider consent page URL
type ConsentURL interface {
	AuthURL(state, loginHint string) string
}

// Deps are the collaborators of the HTTP API
type Deps struct {
	Resolver  Resolver
	Auth      Authorizer
	OAuth     ConsentURL
	State     *auth.StateSigner
	Providers email.ProviderFactory
	Health    func(ctx context.Context) error // optional backing-store check for /healthz
	Logger    *zap.Logger
}

// Server is the HTTP JSON API
type Server struct {
	app    *fiber.App
	cfg    config.ServerConfig
	deps   Deps
	logger *zap.Logger
}

// New creates the server and registers every route
func New(cfg config.ServerConfig, d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	s := &Server{
		cfg:    cfg,
		deps:   d,
		logger: d.Logger,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "mailcode",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.routes()

	return s
}

func (s *Server) routes() {
	s.app.Use(recover.New())
	s.app.Use(requestLogger(s.logger))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: s.cfg.FrontendOrigin,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Accept",
	}))

	s.app.Get("/healthz", s.healthz)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := s.app.Group("/api")

	api.Get("/auth/status", s.authStatus)
	api.Get("/auth", s.authURL)
	api.Get("/oauth2/auth", s.authURL)
	api.Get("/oauth2/callback", s.oauthCallback)
	api.Get("/whoami", s.whoami)

	api.Post("/mail/latest", s.latest)
}

// App exposes the underlying fiber app for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until Shutdown is called
func (s *Server) Listen() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.logger.Info("http server listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(s.cfg.ShutdownTimeout())
}

// handleError renders errors that escaped a handler as JSON
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else {
		requestLog(c, s.logger).Error("unhandled error", zap.Error(err))
	}

	return c.Status(code).JSON(errorResponse{Error: msg})
}
