package gmail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/vijay-prabhu/mailcode/internal/email"
)

func newTestProvider(t *testing.T, handler http.Handler) *Provider {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(2*time.Second, zap.NewNop(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test"})
	p, err := client.Provider(context.Background(), ts)
	if err != nil {
		t.Fatalf("Provider() error = %v", err)
	}
	return p.(*Provider)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestProvider_ListMessages(t *testing.T) {
	var gotQuery, gotMax string

	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotMax = r.URL.Query().Get("maxResults")
		writeJSON(w, map[string]any{
			"messages": []map[string]string{
				{"id": "a", "threadId": "ta"},
				{"id": "b", "threadId": "tb"},
			},
		})
	})

	p := newTestProvider(t, mux)

	got, err := p.ListMessages(context.Background(), "subject:(codigo) newer_than:2d", 15)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ThreadID != "tb" {
		t.Errorf("ListMessages() = %+v", got)
	}
	if gotQuery != "subject:(codigo) newer_than:2d" {
		t.Errorf("q = %q", gotQuery)
	}
	if gotMax != "15" {
		t.Errorf("maxResults = %q, want 15", gotMax)
	}
}

func TestProvider_GetMetadataAndFull(t *testing.T) {
	var formats []string

	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/messages/m1", func(w http.ResponseWriter, r *http.Request) {
		format := r.URL.Query().Get("format")
		formats = append(formats, format)

		payload := map[string]any{
			"mimeType": "multipart/alternative",
			"headers": []map[string]string{
				{"name": "Subject", "value": "Tu código de acceso temporal"},
				{"name": "To", "value": "owner@gmail.com"},
			},
		}
		if format == "full" {
			payload["parts"] = []map[string]any{
				{"mimeType": "text/html", "body": map[string]string{"data": encode("<p>code</p>")}},
			}
		}

		writeJSON(w, map[string]any{
			"id":           "m1",
			"threadId":     "t1",
			"internalDate": "1700000000000",
			"snippet":      "Ingresa este código",
			"payload":      payload,
		})
	})

	p := newTestProvider(t, mux)
	ctx := context.Background()

	meta, err := p.GetMetadata(ctx, "m1")
	if err != nil {
		t.Fatalf("GetMetadata() error = %v", err)
	}
	if meta.InternalDate != 1700000000000 {
		t.Errorf("InternalDate = %d", meta.InternalDate)
	}
	if meta.Headers.Subject != "Tu código de acceso temporal" {
		t.Errorf("Subject = %q", meta.Headers.Subject)
	}
	if !meta.Body.IsEmpty() {
		t.Error("metadata fetch should not carry a body")
	}

	full, err := p.GetFull(ctx, "m1")
	if err != nil {
		t.Fatalf("GetFull() error = %v", err)
	}
	if full.Body.HTML != "<p>code</p>" {
		t.Errorf("HTML = %q", full.Body.HTML)
	}

	if len(formats) != 2 || formats[0] != "metadata" || formats[1] != "full" {
		t.Errorf("formats = %v, want [metadata full]", formats)
	}
}

func TestProvider_GetProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/profile", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"emailAddress": "owner@gmail.com", "messagesTotal": 42})
	})

	p := newTestProvider(t, mux)

	profile, err := p.GetProfile(context.Background())
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if profile.EmailAddress != "owner@gmail.com" || profile.MessagesTotal != 42 {
		t.Errorf("GetProfile() = %+v", profile)
	}
}

func TestProvider_Unauthorized(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/profile", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"code":401,"message":"Invalid Credentials"}}`)
	})

	p := newTestProvider(t, mux)

	_, err := p.GetProfile(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsUnauthorized(err) {
		t.Errorf("IsUnauthorized(%v) = false, want true", err)
	}
	if !errors.Is(err, email.ErrCredentialRejected) {
		t.Errorf("error = %v, want ErrCredentialRejected", err)
	}
}

func TestProvider_BreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/profile", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	p := newTestProvider(t, mux)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := p.GetProfile(ctx); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}

	_, err := p.GetProfile(ctx)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
	if hits.Load() != 5 {
		t.Errorf("server hits = %d, want 5 (open breaker must short-circuit)", hits.Load())
	}
}

func TestTripsBreaker(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", &googleapi.Error{Code: 429}, true},
		{"server error", &googleapi.Error{Code: 503}, true},
		{"not found", &googleapi.Error{Code: 404}, false},
		{"unauthorized", &googleapi.Error{Code: 401}, false},
		{"wrapped bad request", fmt.Errorf("get: %w", &googleapi.Error{Code: 400}), false},
		{"token refresh rejected", &oauth2.RetrieveError{ErrorCode: "invalid_grant"}, false},
		{"caller canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"network", errors.New("connection reset"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tripsBreaker(tt.err); got != tt.want {
				t.Errorf("tripsBreaker(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
