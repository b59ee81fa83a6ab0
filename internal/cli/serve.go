package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vijay-prabhu/mailcode/internal/auth"
	"github.com/vijay-prabhu/mailcode/internal/credential"
	"github.com/vijay-prabhu/mailcode/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve starts the HTTP JSON API used by the web frontend:

  GET  /api/auth/status      authorization state
  GET  /api/auth             start Google authorization
  GET  /api/oauth2/callback  OAuth redirect target
  GET  /api/whoami           authorized mailbox profile
  POST /api/mail/latest      latest code or household link for {"alias": "..."}
  GET  /healthz, /metrics`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if servePort > 0 {
		a.cfg.Server.Port = servePort
	}

	signer, err := auth.NewStateSigner(a.cfg.OAuth.StateSecret)
	if err != nil {
		return err
	}
	if a.cfg.OAuth.StateSecret == "" {
		a.logger.Warn("oauth.state_secret not set, authorization links will not survive a restart")
	}

	srv := server.New(a.cfg.Server, server.Deps{
		Resolver:  a.resolver,
		Auth:      a.manager,
		OAuth:     a.oauth,
		State:     signer,
		Providers: a.gmail,
		Health: func(ctx context.Context) error {
			return credential.Ping(ctx, a.store)
		},
		Logger: a.logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen()
	}()

	fmt.Fprintf(os.Stderr, "API ready on http://localhost:%d\n", a.cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server stopped: %w", err)
	case sig := <-quit:
		a.logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	if err := srv.Shutdown(); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
