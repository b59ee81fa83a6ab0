package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// GetLatestToken returns the most recently written credential row, or nil
// if the table is empty
func (db *DB) GetLatestToken(ctx context.Context) (*TokenRecord, error) {
	r := &TokenRecord{}
	var email, accessToken sql.NullString

	err := db.QueryRowContext(ctx, `
		SELECT sub, email, access_token, refresh_token, expiry, created_at, updated_at
		FROM google_tokens
		ORDER BY updated_at DESC LIMIT 1
	`).Scan(
		&r.Subject, &email, &accessToken, &r.RefreshToken, &r.Expiry, &r.CreatedAt, &r.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	r.Email = StringPtr(email)
	r.AccessToken = StringPtr(accessToken)
	return r, nil
}

// querier is satisfied by both *DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SaveToken inserts or replaces the credential row for r.Subject and
// removes the row of superseded in the same transaction (a seeded
// credential replaced by the one of a known Google account). An empty
// refresh token never overwrites a stored one.
func (db *DB) SaveToken(ctx context.Context, r *TokenRecord, superseded string) error {
	return db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := upsertToken(ctx, tx, r); err != nil {
			return err
		}
		if superseded == "" || superseded == r.Subject {
			return nil
		}
		_, err := deleteToken(ctx, tx, superseded)
		return err
	})
}

func upsertToken(ctx context.Context, q querier, r *TokenRecord) error {
	if r.Subject == "" {
		return fmt.Errorf("token subject is required")
	}

	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	_, err := q.ExecContext(ctx, `
		INSERT INTO google_tokens (
			sub, email, access_token, refresh_token, expiry, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sub) DO UPDATE SET
			email = COALESCE(excluded.email, google_tokens.email),
			access_token = excluded.access_token,
			refresh_token = CASE
				WHEN excluded.refresh_token = '' THEN google_tokens.refresh_token
				ELSE excluded.refresh_token
			END,
			expiry = excluded.expiry,
			updated_at = excluded.updated_at
	`,
		r.Subject, NullString(r.Email), NullString(r.AccessToken), r.RefreshToken,
		r.Expiry, r.CreatedAt, r.UpdatedAt,
	)
	return err
}

func deleteToken(ctx context.Context, q querier, sub string) (bool, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM google_tokens WHERE sub = ?`, sub)
	if err != nil {
		return false, err
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}
