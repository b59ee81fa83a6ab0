package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidState is returned when the OAuth state parameter is missing,
// forged or expired
var ErrInvalidState = errors.New("invalid oauth state")

// stateTTL bounds how long a user may sit on the consent screen
const stateTTL = 10 * time.Minute

// StateSigner issues and verifies the OAuth state parameter as a signed
// HS256 token carrying a random nonce
type StateSigner struct {
	secret []byte
	now    func() time.Time
}

// NewStateSigner creates a signer. An empty secret generates a random one,
// which invalidates outstanding states on restart.
func NewStateSigner(secret string) (*StateSigner, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate state secret: %w", err)
		}
	}
	return &StateSigner{secret: key, now: time.Now}, nil
}

// Issue returns a fresh state value
func (s *StateSigner) Issue() (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := s.now()
	claims := jwt.MapClaims{
		"nonce": hex.EncodeToString(nonce),
		"iat":   now.Unix(),
		"exp":   now.Add(stateTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks signature and expiry of a state value
func (s *StateSigner) Verify(state string) error {
	if state == "" {
		return fmt.Errorf("%w: missing", ErrInvalidState)
	}

	token, err := jwt.Parse(state, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if !token.Valid {
		return ErrInvalidState
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ErrInvalidState
	}
	if nonce, _ := claims["nonce"].(string); nonce == "" {
		return fmt.Errorf("%w: no nonce", ErrInvalidState)
	}

	return nil
}
