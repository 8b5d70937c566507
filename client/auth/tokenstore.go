// Package auth manages the session lifecycle: challenge/sign/verify login,
// durable token storage and the gating-network authorization signature.
package auth

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/therealharpaljadeja/lens-it/client/errors"
)

// Storage slot names for the session token pair. Fixed so a restarted client
// finds the previous session.
const (
	AccessTokenSlot  = "lensAPIAccessToken"
	RefreshTokenSlot = "lensAPIRefreshToken"
)

// TokenStore is the durable client storage for the session token pair.
// Both tokens are saved together and cleared together on disconnect.
type TokenStore interface {
	SaveTokens(access, refresh string) error
	AccessToken() (string, bool)
	RefreshToken() (string, bool)
	Clear() error
}

// MemoryTokenStore keeps tokens in process memory. Sessions do not survive
// a restart.
type MemoryTokenStore struct {
	mu      sync.RWMutex
	access  string
	refresh string
}

// NewMemoryTokenStore returns an empty in-memory store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

// SaveTokens stores both tokens atomically.
func (s *MemoryTokenStore) SaveTokens(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = access
	s.refresh = refresh
	return nil
}

// AccessToken returns the stored access token, if any.
func (s *MemoryTokenStore) AccessToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access, s.access != ""
}

// RefreshToken returns the stored refresh token, if any.
func (s *MemoryTokenStore) RefreshToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh, s.refresh != ""
}

// Clear drops both tokens.
func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
	s.refresh = ""
	return nil
}

// FileTokenStore persists tokens as files under a directory so the session
// survives client restarts. Files are mode 0600.
type FileTokenStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileTokenStore creates the directory if needed and returns a store
// rooted there.
func NewFileTokenStore(dir string) (*FileTokenStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.WrapError(err, errors.ErrInvalidConfig, "failed to create token directory %s", dir)
	}
	return &FileTokenStore{dir: dir}, nil
}

// SaveTokens writes both slots.
func (s *FileTokenStore) SaveTokens(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.slotPath(AccessTokenSlot), []byte(access), 0o600); err != nil {
		return errors.WrapError(err, errors.ErrStorageError, "failed to write access token")
	}
	if err := os.WriteFile(s.slotPath(RefreshTokenSlot), []byte(refresh), 0o600); err != nil {
		return errors.WrapError(err, errors.ErrStorageError, "failed to write refresh token")
	}
	return nil
}

// AccessToken reads the access slot.
func (s *FileTokenStore) AccessToken() (string, bool) {
	return s.readSlot(AccessTokenSlot)
}

// RefreshToken reads the refresh slot.
func (s *FileTokenStore) RefreshToken() (string, bool) {
	return s.readSlot(RefreshTokenSlot)
}

func (s *FileTokenStore) readSlot(slot string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.slotPath(slot))
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(string(data))
	return token, token != ""
}

// Clear removes both slots. Missing files are not an error.
func (s *FileTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, slot := range []string{AccessTokenSlot, RefreshTokenSlot} {
		if err := os.Remove(s.slotPath(slot)); err != nil && !os.IsNotExist(err) {
			return errors.WrapError(err, errors.ErrStorageError, "failed to clear token slot %s", slot)
		}
	}
	return nil
}

func (s *FileTokenStore) slotPath(slot string) string {
	return filepath.Join(s.dir, slot)
}
