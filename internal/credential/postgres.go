package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS google_tokens (
    sub           TEXT PRIMARY KEY,
    email         TEXT,
    access_token  TEXT,
    refresh_token TEXT NOT NULL,
    expiry        BIGINT NOT NULL DEFAULT 0,
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore keeps the credential in a google_tokens table
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore connects to dsn and ensures the table exists
func NewPostgresStore(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse db config: %w", err)
	}

	poolCfg.MaxConns = 4
	poolCfg.MinConns = 1
	poolCfg.MaxConnIdleTime = time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	if _, err := pool.Exec(connectCtx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create google_tokens: %w", err)
	}

	logger.Info("PostgreSQL credential store ready",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("db", poolCfg.ConnConfig.Database),
	)
	return &PostgresStore{db: pool}, nil
}

func (s *PostgresStore) Load(ctx context.Context) (*Credential, error) {
	query := `
        SELECT sub, COALESCE(email, ''), COALESCE(access_token, ''), refresh_token, expiry
        FROM google_tokens
        ORDER BY updated_at DESC
        LIMIT 1
    `
	var c Credential
	err := s.db.QueryRow(ctx, query).Scan(&c.Subject, &c.Email, &c.AccessToken, &c.RefreshToken, &c.Expiry)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	if c.RefreshToken == "" {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *PostgresStore) Save(ctx context.Context, c *Credential) error {
	query := `
        INSERT INTO google_tokens (sub, email, access_token, refresh_token, expiry, updated_at)
        VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, NOW())
        ON CONFLICT (sub) DO UPDATE SET
            email = COALESCE(EXCLUDED.email, google_tokens.email),
            access_token = EXCLUDED.access_token,
            refresh_token = COALESCE(NULLIF(EXCLUDED.refresh_token, ''), google_tokens.refresh_token),
            expiry = EXCLUDED.expiry,
            updated_at = NOW()
    `
	sub := subjectOf(c)
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, query, sub, c.Email, c.AccessToken, c.RefreshToken, c.Expiry); err != nil {
			return err
		}
		// A seeded credential is superseded once the account is known
		if sub != DefaultSubject {
			if _, err := tx.Exec(ctx, `DELETE FROM google_tokens WHERE sub = $1`, DefaultSubject); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// Ping checks the database connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
