// Package aead provides the authenticated content cipher used for gated
// publications, following NIST SP 800-38D for encryption and integrity.
package aead

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

const (
	// NonceSize defines the standard 96-bit nonce size for optimal GCM performance
	NonceSize = 12
	// TagSize defines the 128-bit authentication tag size for GCM
	TagSize = 16
	// KeySize defines the AES-256 key size
	KeySize = 32
)

// ContentCipher wraps AES-GCM operations with secure defaults. One cipher
// instance corresponds to one symmetric publication key.
type ContentCipher struct {
	gcm cipher.AEAD
}

// GenerateKey produces a fresh 256-bit symmetric key for a single publication.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return key, nil
}

// NewContentCipher creates a new AES-GCM cipher with the provided 256-bit key
func NewContentCipher(key []byte) (*ContentCipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key size: expected %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM mode: %w", err)
	}

	return &ContentCipher{gcm: gcm}, nil
}

// Seal encrypts plaintext with additional authenticated data (AAD) using AES-GCM
// Returns nonce + ciphertext + tag concatenated for easy storage
func (c *ContentCipher) Seal(plaintext, aad []byte) ([]byte, error) {
	// Generate cryptographically secure random nonce
	nonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Encrypt with GCM (includes authentication tag)
	ciphertext := c.gcm.Seal(nil, nonce, plaintext, aad)

	// Prepend nonce to ciphertext for transport
	result := make([]byte, NonceSize+len(ciphertext))
	copy(result[:NonceSize], nonce)
	copy(result[NonceSize:], ciphertext)

	return result, nil
}

// Open decrypts and authenticates ciphertext with AAD using AES-GCM
// Expects input format: nonce + ciphertext + tag
func (c *ContentCipher) Open(data, aad []byte) ([]byte, error) {
	if len(data) < NonceSize+TagSize {
		return nil, fmt.Errorf("invalid ciphertext length: minimum %d bytes required", NonceSize+TagSize)
	}

	// Extract nonce and ciphertext
	nonce := data[:NonceSize]
	ciphertext := data[NonceSize:]

	// Decrypt and verify authentication tag
	plaintext, err := c.gcm.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("decryption and authentication failed: %w", err)
	}

	return plaintext, nil
}

// generateNonce creates a cryptographically secure 96-bit nonce
func generateNonce() ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return nonce, nil
}
