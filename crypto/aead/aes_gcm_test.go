package aead

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateKey(t *testing.T) {
	key1, err := GenerateKey()
	require.NoError(t, err)
	require.Len(t, key1, KeySize)

	key2, err := GenerateKey()
	require.NoError(t, err)
	require.NotEqual(t, key1, key2, "keys must be unique")
}

func TestNewContentCipherKeySize(t *testing.T) {
	tests := []struct {
		name    string
		keyLen  int
		wantErr bool
	}{
		{"valid 256-bit key", 32, false},
		{"short key", 16, true},
		{"empty key", 0, true},
		{"oversized key", 64, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewContentCipher(make([]byte, tt.keyLen))
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	cipher, err := NewContentCipher(key)
	require.NoError(t, err)

	tests := []struct {
		name      string
		plaintext []byte
		aad       []byte
	}{
		{"plain text", []byte("hello gated world"), nil},
		{"with aad", []byte("content"), []byte("bundle-id")},
		{"empty plaintext", []byte{}, nil},
		{"binary content", bytes.Repeat([]byte{0x00, 0xff}, 512), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sealed, err := cipher.Seal(tt.plaintext, tt.aad)
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(sealed), NonceSize+TagSize)

			opened, err := cipher.Open(sealed, tt.aad)
			require.NoError(t, err)
			require.Equal(t, tt.plaintext, append([]byte{}, opened...))
		})
	}
}

func TestOpenRejectsTampering(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	cipher, err := NewContentCipher(key)
	require.NoError(t, err)

	sealed, err := cipher.Seal([]byte("secret"), nil)
	require.NoError(t, err)

	t.Run("flipped ciphertext byte", func(t *testing.T) {
		tampered := append([]byte{}, sealed...)
		tampered[len(tampered)-1] ^= 0x01
		_, err := cipher.Open(tampered, nil)
		require.Error(t, err)
	})

	t.Run("wrong aad", func(t *testing.T) {
		_, err := cipher.Open(sealed, []byte("other"))
		require.Error(t, err)
	})

	t.Run("wrong key", func(t *testing.T) {
		otherKey, err := GenerateKey()
		require.NoError(t, err)
		other, err := NewContentCipher(otherKey)
		require.NoError(t, err)

		_, err = other.Open(sealed, nil)
		require.Error(t, err)
	})

	t.Run("truncated input", func(t *testing.T) {
		_, err := cipher.Open(sealed[:NonceSize+TagSize-1], nil)
		require.Error(t, err)
	})
}

func TestSealProducesFreshNonces(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	cipher, err := NewContentCipher(key)
	require.NoError(t, err)

	a, err := cipher.Seal([]byte("same plaintext"), nil)
	require.NoError(t, err)
	b, err := cipher.Seal([]byte("same plaintext"), nil)
	require.NoError(t, err)

	require.NotEqual(t, a[:NonceSize], b[:NonceSize])
	require.NotEqual(t, a, b)
}
