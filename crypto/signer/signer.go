// Package signer provides the wallet signature capability: personal-message
// signing for login challenges and EIP-712 typed-data signing for
// meta-transactions.
package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// SignatureLength is the byte length of a packed ECDSA signature (r || s || v).
const SignatureLength = 65

// Signer abstracts the wallet. Implementations may hold a local key or proxy
// to an external signing device.
type Signer interface {
	// Address returns the account the signatures recover to.
	Address() common.Address

	// SignMessage signs msg with the Ethereum personal-message prefix
	// ("\x19Ethereum Signed Message:\n" + length), as eth_sign does.
	SignMessage(ctx context.Context, msg []byte) ([]byte, error)

	// SignTypedData signs an EIP-712 structured payload.
	SignTypedData(ctx context.Context, typedData apitypes.TypedData) ([]byte, error)
}

// LocalSigner signs with an in-process secp256k1 private key.
type LocalSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewLocalSigner wraps a secp256k1 private key.
func NewLocalSigner(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

// NewLocalSignerFromHex parses a hex-encoded private key.
func NewLocalSignerFromHex(hexKey string) (*LocalSigner, error) {
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return NewLocalSigner(key), nil
}

// Address returns the account address derived from the key.
func (s *LocalSigner) Address() common.Address {
	return s.address
}

// SignMessage signs msg with the personal-message prefix and returns a
// 65-byte signature with v in {27, 28}.
func (s *LocalSigner) SignMessage(_ context.Context, msg []byte) ([]byte, error) {
	hash := accounts.TextHash(msg)

	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}

	// Transform V from 0/1 to 27/28 per yellow paper convention.
	sig[64] += 27
	return sig, nil
}

// SignTypedData hashes the EIP-712 payload and signs the digest, returning a
// 65-byte signature with v in {27, 28}.
func (s *LocalSigner) SignTypedData(_ context.Context, typedData apitypes.TypedData) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("failed to hash typed data: %w", err)
	}

	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign typed data: %w", err)
	}

	sig[64] += 27
	return sig, nil
}

// SplitSignature splits a packed 65-byte signature into its (v, r, s)
// components for on-chain verification.
func SplitSignature(sig []byte) (v uint8, r [32]byte, s [32]byte, err error) {
	if len(sig) != SignatureLength {
		return 0, r, s, fmt.Errorf("invalid signature length: expected %d bytes, got %d", SignatureLength, len(sig))
	}

	copy(r[:], sig[:32])
	copy(s[:], sig[32:64])
	v = sig[64]

	if v < 27 {
		v += 27
	}

	return v, r, s, nil
}
