package credential

import (
	"context"
	"fmt"

	"github.com/vijay-prabhu/mailcode/internal/database"
)

// SQLiteStore keeps the credential in the local sqlite database
type SQLiteStore struct {
	db *database.DB
}

// NewSQLiteStore wraps an open database
func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Load(ctx context.Context) (*Credential, error) {
	rec, err := s.db.GetLatestToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	if rec == nil || rec.RefreshToken == "" {
		return nil, ErrNotFound
	}

	c := &Credential{
		Subject:      rec.Subject,
		RefreshToken: rec.RefreshToken,
		Expiry:       rec.Expiry,
	}
	if rec.Email != nil {
		c.Email = *rec.Email
	}
	if rec.AccessToken != nil {
		c.AccessToken = *rec.AccessToken
	}
	return c, nil
}

func (s *SQLiteStore) Save(ctx context.Context, c *Credential) error {
	rec := &database.TokenRecord{
		Subject:      subjectOf(c),
		Email:        &c.Email,
		AccessToken:  &c.AccessToken,
		RefreshToken: c.RefreshToken,
		Expiry:       c.Expiry,
	}
	var superseded string
	if rec.Subject != DefaultSubject {
		superseded = DefaultSubject
	}
	if err := s.db.SaveToken(ctx, rec, superseded); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// Ping checks the database connection
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.Health(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
