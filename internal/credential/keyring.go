package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const keyringItem = "google-credential"

// KeyringStore keeps the credential in the system keyring
type KeyringStore struct {
	ring keyring.Keyring
}

// NewKeyringStore opens the system keyring under service. fileDir backs
// the encrypted-file fallback on hosts without a keyring daemon.
func NewKeyringStore(service, fileDir string) (*KeyringStore, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: service,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(service + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return newKeyringStore(ring), nil
}

func newKeyringStore(ring keyring.Keyring) *KeyringStore {
	return &KeyringStore{ring: ring}
}

func (s *KeyringStore) Load(ctx context.Context) (*Credential, error) {
	item, err := s.ring.Get(keyringItem)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting credential %q: %w", keyringItem, err)
	}

	var c Credential
	if err := json.Unmarshal(item.Data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse credential: %w", err)
	}
	if c.RefreshToken == "" {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *KeyringStore) Save(ctx context.Context, c *Credential) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	err = s.ring.Set(keyring.Item{
		Key:         keyringItem,
		Data:        data,
		Label:       "mailcode Google credential",
		Description: "OAuth refresh token for the mailbox",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", keyringItem, err)
	}
	return nil
}

func (s *KeyringStore) Close() error { return nil }
