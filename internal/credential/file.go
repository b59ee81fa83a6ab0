package credential

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

// FileStore keeps a JSON snapshot of the credential on disk, optionally
// sealed with XChaCha20-Poly1305
type FileStore struct {
	path string
	key  []byte // nil: plaintext

	mu sync.Mutex
}

// NewFileStore creates a file store. A non-empty keyPath enables at-rest
// encryption; the key file is created with a random key if missing.
func NewFileStore(path, keyPath string) (*FileStore, error) {
	s := &FileStore{path: path}

	if keyPath != "" {
		key, err := loadOrCreateKey(keyPath)
		if err != nil {
			return nil, err
		}
		s.key = key
	}

	return s, nil
}

func (s *FileStore) Load(ctx context.Context) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	if s.key != nil {
		data, err = unseal(s.key, data)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt credential file: %w", err)
		}
	}

	var c Credential
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse credential file: %w", err)
	}
	if c.RefreshToken == "" {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *FileStore) Save(ctx context.Context, c *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	if s.key != nil {
		data, err = seal(s.key, data)
		if err != nil {
			return fmt.Errorf("failed to encrypt credential: %w", err)
		}
	}

	return writeFileAtomic(s.path, data)
}

func (s *FileStore) Close() error { return nil }

// writeFileAtomic writes to a temp file in the same directory and renames
// it over the target so readers never see a partial snapshot
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credential: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set credential permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace credential file: %w", err)
	}
	return nil
}

func loadOrCreateKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err == nil {
		if len(key) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("encryption key %s must be %d bytes, got %d", path, chacha20poly1305.KeySize, len(key))
		}
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read encryption key: %w", err)
	}

	key = make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate encryption key: %w", err)
	}
	if err := writeFileAtomic(path, key); err != nil {
		return nil, err
	}
	return key, nil
}

// seal prefixes the ciphertext with its random nonce
func seal(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func unseal(key, sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}

	if len(sealed) < aead.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	return aead.Open(nil, nonce, ciphertext, nil)
}
