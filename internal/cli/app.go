package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vijay-prabhu/mailcode/internal/allowlist"
	"github.com/vijay-prabhu/mailcode/internal/auth"
	"github.com/vijay-prabhu/mailcode/internal/cache"
	"github.com/vijay-prabhu/mailcode/internal/classifier"
	"github.com/vijay-prabhu/mailcode/internal/config"
	"github.com/vijay-prabhu/mailcode/internal/credential"
	"github.com/vijay-prabhu/mailcode/internal/email/gmail"
	"github.com/vijay-prabhu/mailcode/internal/logger"
	"github.com/vijay-prabhu/mailcode/internal/resolver"
)

// app holds the wired components shared by the commands
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	redis    *redis.Client
	store    credential.Store
	oauth    *auth.OAuthClient
	manager  *auth.Manager
	gmail    *gmail.Client
	resolver *resolver.Resolver
}

// newApp loads configuration and wires every component
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: log}

	if cfg.Store.Backend == "redis" || cfg.Cache.Backend == "redis" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
	}

	a.store, err = credential.Open(ctx, cfg.Store, a.redis, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	seeded, err := credential.Seed(ctx, a.store, cfg.Store.SeedRefreshToken)
	if err != nil {
		a.Close()
		return nil, err
	}
	if seeded {
		log.Info("credential store seeded from configured refresh token")
	}

	oauthConfig, err := gmail.NewOAuthConfig(gmail.OAuthSettings{
		ClientID:        cfg.OAuth.ClientID,
		ClientSecret:    cfg.OAuth.ClientSecret,
		RedirectURL:     cfg.OAuth.RedirectURI,
		CredentialsPath: cfg.OAuth.CredentialsPath,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.oauth = auth.NewOAuthClient(oauthConfig, cfg.Search.CallTimeout())
	a.manager = auth.NewManager(a.store, a.oauth, a.oauth, log)
	a.gmail = gmail.NewClient(cfg.Search.CallTimeout(), log)

	var resultCache cache.Cache = cache.NewMemory(cfg.Cache.TTL())
	if cfg.Cache.Backend == "redis" {
		resultCache = cache.NewRedis(a.redis, cfg.Cache.TTL())
	}

	allow := allowlist.New(cfg.AllowList)
	if allow.Empty() {
		log.Warn("allow-list is empty, every alias will be rejected")
	}

	a.resolver = resolver.New(cfg.Search, cfg.Cache.DedupeInflight, resolver.Deps{
		AllowList:   allow,
		Cache:       resultCache,
		Credentials: a.manager,
		Providers:   a.gmail,
		Classifier:  classifier.Default(),
		Logger:      log,
	})

	return a, nil
}

// Close releases the store and the redis connection
func (a *app) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}
