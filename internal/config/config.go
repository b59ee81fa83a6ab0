package config

import "time"

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	OAuth     OAuthConfig     `toml:"oauth"`
	AllowList AllowListConfig `toml:"allowlist"`
	Search    SearchConfig    `toml:"search"`
	Cache     CacheConfig     `toml:"cache"`
	Store     StoreConfig     `toml:"store"`
	Redis     RedisConfig     `toml:"redis"`
	Log       LogConfig       `toml:"log"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Port                   int    `toml:"port"`
	FrontendOrigin         string `toml:"frontend_origin"`
	ShutdownTimeoutSeconds int    `toml:"shutdown_timeout_seconds"`
}

// ShutdownTimeout returns the graceful shutdown window as a duration
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

// OAuthConfig contains Google OAuth client settings.
// CredentialsPath, when set, points at a client-secret JSON downloaded from
// the Google console and takes precedence over ClientID/ClientSecret.
type OAuthConfig struct {
	ClientID        string `toml:"client_id"`
	ClientSecret    string `toml:"client_secret"`
	RedirectURI     string `toml:"redirect_uri"`
	CredentialsPath string `toml:"credentials_path"`
	StateSecret     string `toml:"state_secret"`
}

// AllowListConfig lists the aliases permitted to query the pipeline
type AllowListConfig struct {
	Base  string   `toml:"base"`
	Extra []string `toml:"extra"`
}

// SearchConfig describes the candidate query and the fetch budget
type SearchConfig struct {
	Senders             []string `toml:"senders"`
	SubjectKeywords     []string `toml:"subject_keywords"`
	NewerThanDays       int      `toml:"newer_than_days"`
	MaxCandidates       int      `toml:"max_candidates"`
	FullFetchFallback   int      `toml:"full_fetch_fallback"`
	CallTimeoutSeconds  int      `toml:"call_timeout_seconds"`
	MetadataConcurrency int      `toml:"metadata_concurrency"`
}

// CallTimeout returns the per provider call timeout
func (s SearchConfig) CallTimeout() time.Duration {
	return time.Duration(s.CallTimeoutSeconds) * time.Second
}

// CacheConfig contains result cache settings
type CacheConfig struct {
	Backend        string `toml:"backend"`
	TTLSeconds     int    `toml:"ttl_seconds"`
	DedupeInflight bool   `toml:"dedupe_inflight"`
}

// TTL returns the cache lifetime as a duration
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// StoreConfig selects and configures the credential store backend
type StoreConfig struct {
	Backend           string `toml:"backend"`
	FilePath          string `toml:"file_path"`
	SQLitePath        string `toml:"sqlite_path"`
	PostgresURL       string `toml:"postgres_url"`
	EncryptionKeyPath string `toml:"encryption_key_path"`
	KeyringService    string `toml:"keyring_service"`
	// Refresh token used to seed an empty store (deployments without durable storage)
	SeedRefreshToken string `toml:"seed_refresh_token"`
}

// RedisConfig contains redis connection settings, shared by the redis
// credential store and the redis result cache
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// LogConfig contains logger settings
type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                   3001,
			FrontendOrigin:         "http://localhost:5173",
			ShutdownTimeoutSeconds: 10,
		},
		Search: SearchConfig{
			Senders: []string{
				"netflix.com",
				"account.netflix.com",
				"mailer.netflix.com",
				"no-reply@account.netflix.com",
				"info@account.netflix.com",
				"member@mailer.netflix.com",
				"accounts@netflix.com",
			},
			SubjectKeywords: []string{
				"código",
				"acceso",
				"acceso temporal",
				"verificación",
				"viaje",
				"hogar",
				"inicia sesión",
				"inicio de sesión",
				"access",
				"verify",
				"travel",
				"household",
			},
			NewerThanDays:       2,
			MaxCandidates:       15,
			FullFetchFallback:   3,
			CallTimeoutSeconds:  15,
			MetadataConcurrency: 5,
		},
		Cache: CacheConfig{
			Backend:        "memory",
			TTLSeconds:     60,
			DedupeInflight: true,
		},
		Store: StoreConfig{
			Backend:        "file",
			FilePath:       "~/.local/share/mailcode/token.json",
			SQLitePath:     "~/.local/share/mailcode/mailcode.db",
			KeyringService: "mailcode",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
