package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// envOverrides mirrors the environment variables a container deployment sets.
// Empty values leave the file/default value untouched.
type envOverrides struct {
	Port             int      `envconfig:"PORT"`
	FrontendOrigin   string   `envconfig:"FRONTEND_ORIGIN"`
	ClientID         string   `envconfig:"GOOGLE_CLIENT_ID"`
	ClientSecret     string   `envconfig:"GOOGLE_CLIENT_SECRET"`
	RedirectURI      string   `envconfig:"OAUTH_REDIRECT_URI"`
	StateSecret      string   `envconfig:"OAUTH_STATE_SECRET"`
	AllowBase        string   `envconfig:"ALLOW_BASE"`
	AllowExtra       []string `envconfig:"ALLOW_EXTRA"`
	TokenStore       string   `envconfig:"TOKEN_STORE"`
	TokenPath        string   `envconfig:"TOKEN_PATH"`
	DatabaseURL      string   `envconfig:"DATABASE_URL"`
	RedisAddr        string   `envconfig:"REDIS_ADDR"`
	SeedRefreshToken string   `envconfig:"GMAIL_REFRESH_TOKEN"`
	LogLevel         string   `envconfig:"LOG_LEVEL"`
}

// Load reads the configuration file (if present), applies environment
// overrides and validates the result
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		expandedPath, err := expandPath(path)
		if err != nil {
			return nil, fmt.Errorf("failed to expand config path: %w", err)
		}

		data, err := os.ReadFile(expandedPath)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
			// Env-only deployments have no config file
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// A missing .env is fine, we read the process environment either way
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, fmt.Errorf("failed to expand paths: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads config or exits with error
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// applyEnv overlays non-empty environment variables onto the config
func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return err
	}

	if env.Port != 0 {
		c.Server.Port = env.Port
	}
	setIfNotEmpty(&c.Server.FrontendOrigin, env.FrontendOrigin)
	setIfNotEmpty(&c.OAuth.ClientID, env.ClientID)
	setIfNotEmpty(&c.OAuth.ClientSecret, env.ClientSecret)
	setIfNotEmpty(&c.OAuth.RedirectURI, env.RedirectURI)
	setIfNotEmpty(&c.OAuth.StateSecret, env.StateSecret)
	setIfNotEmpty(&c.AllowList.Base, env.AllowBase)
	if extra := trimAll(env.AllowExtra); len(extra) > 0 {
		c.AllowList.Extra = extra
	}
	setIfNotEmpty(&c.Store.Backend, env.TokenStore)
	setIfNotEmpty(&c.Store.FilePath, env.TokenPath)
	setIfNotEmpty(&c.Store.PostgresURL, env.DatabaseURL)
	setIfNotEmpty(&c.Redis.Addr, env.RedisAddr)
	setIfNotEmpty(&c.Store.SeedRefreshToken, env.SeedRefreshToken)
	setIfNotEmpty(&c.Log.Level, env.LogLevel)

	return nil
}

func setIfNotEmpty(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// trimAll trims entries and drops the empty ones
func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// expandPath expands ~ to home directory
func expandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, path[1:]), nil
}

// expandPaths expands ~ in all path fields
func (c *Config) expandPaths() error {
	paths := []*string{
		&c.OAuth.CredentialsPath,
		&c.Store.FilePath,
		&c.Store.SQLitePath,
		&c.Store.EncryptionKeyPath,
	}

	for _, p := range paths {
		expanded, err := expandPath(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}

	return nil
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, errors.New("server.port must be between 1 and 65535"))
	}
	if c.Server.ShutdownTimeoutSeconds < 0 {
		errs = append(errs, errors.New("server.shutdown_timeout_seconds must not be negative"))
	}

	// OAuth validation
	if c.OAuth.CredentialsPath == "" {
		if c.OAuth.ClientID == "" {
			errs = append(errs, errors.New("oauth.client_id is required (or oauth.credentials_path)"))
		}
		if c.OAuth.ClientSecret == "" {
			errs = append(errs, errors.New("oauth.client_secret is required (or oauth.credentials_path)"))
		}
	}
	if c.OAuth.RedirectURI == "" {
		errs = append(errs, errors.New("oauth.redirect_uri is required"))
	}

	// Search validation
	if len(c.Search.Senders) == 0 {
		errs = append(errs, errors.New("search.senders must list at least one sender"))
	}
	if c.Search.NewerThanDays < 1 {
		errs = append(errs, errors.New("search.newer_than_days must be at least 1"))
	}
	if c.Search.MaxCandidates < 1 || c.Search.MaxCandidates > 100 {
		errs = append(errs, errors.New("search.max_candidates must be between 1 and 100"))
	}
	if c.Search.FullFetchFallback < 0 || c.Search.FullFetchFallback > c.Search.MaxCandidates {
		errs = append(errs, errors.New("search.full_fetch_fallback must be between 0 and search.max_candidates"))
	}
	if c.Search.CallTimeoutSeconds < 1 {
		errs = append(errs, errors.New("search.call_timeout_seconds must be at least 1"))
	}
	if c.Search.MetadataConcurrency < 1 {
		errs = append(errs, errors.New("search.metadata_concurrency must be at least 1"))
	}

	// Cache validation
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		errs = append(errs, fmt.Errorf("cache.backend must be 'memory' or 'redis', got '%s'", c.Cache.Backend))
	}
	if c.Cache.TTLSeconds < 1 {
		errs = append(errs, errors.New("cache.ttl_seconds must be at least 1"))
	}

	// Store validation
	switch c.Store.Backend {
	case "file":
		if c.Store.FilePath == "" {
			errs = append(errs, errors.New("store.file_path is required for the file backend"))
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite backend"))
		}
	case "postgres":
		if c.Store.PostgresURL == "" {
			errs = append(errs, errors.New("store.postgres_url is required for the postgres backend"))
		}
	case "keyring":
		if c.Store.KeyringService == "" {
			errs = append(errs, errors.New("store.keyring_service is required for the keyring backend"))
		}
	case "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("store.backend must be one of file, sqlite, postgres, redis, keyring, memory; got '%s'", c.Store.Backend))
	}

	if (c.Store.Backend == "redis" || c.Cache.Backend == "redis") && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required when a redis backend is selected"))
	}

	// Log validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error; got '%s'", c.Log.Level))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// EnsureDirectories creates the directories used by file based backends
func (c *Config) EnsureDirectories() error {
	var dirs []string
	switch c.Store.Backend {
	case "file":
		dirs = append(dirs, filepath.Dir(c.Store.FilePath))
	case "sqlite":
		dirs = append(dirs, filepath.Dir(c.Store.SQLitePath))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
