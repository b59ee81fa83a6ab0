package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func strPtr(s string) *string { return &s }

func TestOpen(t *testing.T) {
	db := setupTestDB(t)

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='google_tokens'").Scan(&count)
	if err != nil {
		t.Fatalf("failed to query tables: %v", err)
	}
	if count != 1 {
		t.Errorf("expected google_tokens table to exist")
	}

	// Running migrations twice must be harmless
	if err := db.migrate(); err != nil {
		t.Errorf("second migrate() error = %v", err)
	}
}

func countTokens(t *testing.T, db *DB) int {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM google_tokens").Scan(&n); err != nil {
		t.Fatalf("failed to count tokens: %v", err)
	}
	return n
}

func TestSaveToken(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	latest, err := db.GetLatestToken(ctx)
	if err != nil {
		t.Fatalf("GetLatestToken failed: %v", err)
	}
	if latest != nil {
		t.Fatalf("expected no token in empty table, got %+v", latest)
	}

	rec := &TokenRecord{
		Subject:      "1234",
		Email:        strPtr("owner@gmail.com"),
		AccessToken:  strPtr("ya29.first"),
		RefreshToken: "1//refresh",
		Expiry:       1700000000000,
	}
	if err := db.SaveToken(ctx, rec, ""); err != nil {
		t.Fatalf("SaveToken failed: %v", err)
	}

	fetched, err := db.GetLatestToken(ctx)
	if err != nil {
		t.Fatalf("GetLatestToken failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected token row")
	}
	if fetched.RefreshToken != "1//refresh" || fetched.Expiry != 1700000000000 {
		t.Errorf("unexpected row: %+v", fetched)
	}
	if fetched.Email == nil || *fetched.Email != "owner@gmail.com" {
		t.Errorf("Email = %v", fetched.Email)
	}

	// A refresh result without a refresh token keeps the stored one
	time.Sleep(5 * time.Millisecond)
	refreshed := &TokenRecord{
		Subject:     "1234",
		AccessToken: strPtr("ya29.second"),
		Expiry:      1700003600000,
	}
	if err := db.SaveToken(ctx, refreshed, ""); err != nil {
		t.Fatalf("SaveToken (refresh) failed: %v", err)
	}

	fetched, err = db.GetLatestToken(ctx)
	if err != nil {
		t.Fatalf("GetLatestToken failed: %v", err)
	}
	if fetched.RefreshToken != "1//refresh" {
		t.Errorf("RefreshToken = %q, want preserved value", fetched.RefreshToken)
	}
	if fetched.AccessToken == nil || *fetched.AccessToken != "ya29.second" {
		t.Errorf("AccessToken = %v, want ya29.second", fetched.AccessToken)
	}
	if fetched.Email == nil || *fetched.Email != "owner@gmail.com" {
		t.Errorf("Email should survive a refresh, got %v", fetched.Email)
	}
	if n := countTokens(t, db); n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}
}

func TestSaveToken_RemovesSuperseded(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.SaveToken(ctx, &TokenRecord{Subject: "default", RefreshToken: "1//seed"}, ""); err != nil {
		t.Fatalf("SaveToken (seed) failed: %v", err)
	}
	if err := db.SaveToken(ctx, &TokenRecord{Subject: "1234", RefreshToken: "1//real"}, "default"); err != nil {
		t.Fatalf("SaveToken failed: %v", err)
	}

	if n := countTokens(t, db); n != 1 {
		t.Fatalf("rows = %d, want only the account row", n)
	}
	latest, err := db.GetLatestToken(ctx)
	if err != nil {
		t.Fatalf("GetLatestToken failed: %v", err)
	}
	if latest.Subject != "1234" || latest.RefreshToken != "1//real" {
		t.Errorf("latest = %s/%s", latest.Subject, latest.RefreshToken)
	}

	// Nothing left to supersede is not an error
	if err := db.SaveToken(ctx, &TokenRecord{Subject: "1234", RefreshToken: "1//real"}, "default"); err != nil {
		t.Errorf("SaveToken without a superseded row failed: %v", err)
	}
}

func TestSaveToken_RequiresSubject(t *testing.T) {
	db := setupTestDB(t)

	err := db.SaveToken(context.Background(), &TokenRecord{RefreshToken: "x"}, "default")
	if err == nil {
		t.Error("expected error for empty subject")
	}
	if n := countTokens(t, db); n != 0 {
		t.Errorf("rows = %d, want 0 after a failed save", n)
	}
}

func TestGetLatestToken_NewestWins(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.SaveToken(ctx, &TokenRecord{Subject: "old", RefreshToken: "r1"}, ""); err != nil {
		t.Fatalf("SaveToken failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := db.SaveToken(ctx, &TokenRecord{Subject: "new", RefreshToken: "r2"}, ""); err != nil {
		t.Fatalf("SaveToken failed: %v", err)
	}

	latest, err := db.GetLatestToken(ctx)
	if err != nil {
		t.Fatalf("GetLatestToken failed: %v", err)
	}
	if latest.Subject != "new" {
		t.Errorf("Subject = %q, want new", latest.Subject)
	}
}

func TestHealth(t *testing.T) {
	db := setupTestDB(t)

	if err := db.Health(context.Background()); err != nil {
		t.Errorf("Health() error = %v", err)
	}

	db.Close()
	if err := db.Health(context.Background()); err == nil {
		t.Error("Health() on a closed database should fail")
	}
}
