package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestStateSigner_RoundTrip(t *testing.T) {
	s, err := NewStateSigner("test-secret")
	if err != nil {
		t.Fatalf("NewStateSigner() error = %v", err)
	}

	state, err := s.Issue()
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if err := s.Verify(state); err != nil {
		t.Errorf("Verify() error = %v", err)
	}

	other, _ := s.Issue()
	if other == state {
		t.Error("two states should carry different nonces")
	}
}

func TestStateSigner_Rejects(t *testing.T) {
	s, _ := NewStateSigner("test-secret")
	valid, _ := s.Issue()

	otherKey, _ := NewStateSigner("another-secret")
	forged, _ := otherKey.Issue()

	expiredSigner, _ := NewStateSigner("test-secret")
	expiredSigner.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, _ := expiredSigner.Issue()

	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	tests := []struct {
		name  string
		state string
	}{
		{"missing", ""},
		{"garbage", "not-a-token"},
		{"wrong key", forged},
		{"expired", expired},
		{"tampered payload", tampered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Verify(tt.state)
			if !errors.Is(err, ErrInvalidState) {
				t.Errorf("Verify() error = %v, want ErrInvalidState", err)
			}
		})
	}
}

func TestStateSigner_RandomSecret(t *testing.T) {
	a, err := NewStateSigner("")
	if err != nil {
		t.Fatalf("NewStateSigner() error = %v", err)
	}
	b, _ := NewStateSigner("")

	state, _ := a.Issue()
	if err := a.Verify(state); err != nil {
		t.Errorf("Verify() with own random secret error = %v", err)
	}
	if err := b.Verify(state); err == nil {
		t.Error("random secrets must differ between signers")
	}
}
