package credential

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vijay-prabhu/mailcode/internal/config"
	"github.com/vijay-prabhu/mailcode/internal/database"
)

// Open builds the backend selected by cfg.Backend. rdb is only used by the
// redis backend and may be nil otherwise.
func Open(ctx context.Context, cfg config.StoreConfig, rdb *redis.Client, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(), nil

	case "file", "":
		return NewFileStore(cfg.FilePath, cfg.EncryptionKeyPath)

	case "sqlite":
		db, err := database.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(db), nil

	case "postgres":
		return NewPostgresStore(ctx, cfg.PostgresURL, logger)

	case "redis":
		if rdb == nil {
			return nil, errors.New("redis credential store needs a redis client")
		}
		return NewRedisStore(rdb), nil

	case "keyring":
		return NewKeyringStore(cfg.KeyringService, filepath.Join(filepath.Dir(cfg.FilePath), "keyring"))

	default:
		return nil, fmt.Errorf("unknown credential store backend %q", cfg.Backend)
	}
}

// Seed saves a refresh-token-only credential when the store is empty.
// The zero expiry forces a refresh on first use. Reports whether a seed
// was written.
func Seed(ctx context.Context, store Store, refreshToken string) (bool, error) {
	if refreshToken == "" {
		return false, nil
	}

	_, err := store.Load(ctx)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	seed := &Credential{Subject: DefaultSubject, RefreshToken: refreshToken}
	if err := store.Save(ctx, seed); err != nil {
		return false, fmt.Errorf("failed to seed credential: %w", err)
	}
	return true, nil
}
