package database

import (
	"database/sql"
	"time"
)

// TokenRecord is one row of google_tokens
type TokenRecord struct {
	Subject      string    `json:"sub"`
	Email        *string   `json:"email,omitempty"`
	AccessToken  *string   `json:"-"`
	RefreshToken string    `json:"-"`
	Expiry       int64     `json:"expiry"` // epoch millis
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NullString is a helper to convert *string to sql.NullString
func NullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// StringPtr converts sql.NullString to *string
func StringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
