// Package decrypt requests key release for gated bundles and decrypts them
// for authorized viewers.
package decrypt

import (
	"context"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"sync"

	"cosmossdk.io/log"

	"github.com/therealharpaljadeja/lens-it/client/errors"
	"github.com/therealharpaljadeja/lens-it/client/gating"
	"github.com/therealharpaljadeja/lens-it/client/publish"
	"github.com/therealharpaljadeja/lens-it/crypto/aead"
	"github.com/therealharpaljadeja/lens-it/types/storage"
)

// Gate decrypts gated bundles. Plaintext already shown in this session is
// cached by bundle ref so key release is not re-requested for it.
type Gate struct {
	store   storage.Store
	network gating.Network
	chain   string
	logger  log.Logger

	mu    sync.Mutex
	cache map[string]string
}

// NewGate wires a decryption gate.
func NewGate(store storage.Store, network gating.Network, chain string, logger log.Logger) *Gate {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Gate{
		store:   store,
		network: network,
		chain:   chain,
		logger:  logger,
		cache:   map[string]string{},
	}
}

// Decrypt fetches the bundle at bundleRef, requests key release with the
// viewer's authorization and returns the plaintext. A viewer not covered by
// the stored condition tree gets AccessDenied; that is the expected answer
// for unauthorized viewers, not a fault.
func (g *Gate) Decrypt(ctx context.Context, bundleRef string, viewerAuth gating.AuthSig) (string, error) {
	g.mu.Lock()
	if plaintext, ok := g.cache[bundleRef]; ok {
		g.mu.Unlock()
		return plaintext, nil
	}
	g.mu.Unlock()

	data, err := g.store.Get(ctx, bundleRef)
	if err != nil {
		return "", err
	}

	var bundle publish.Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return "", errors.WrapError(err, errors.ErrStorageError, "malformed bundle at %s", bundleRef)
	}
	if bundle.Conditions.Empty() {
		return "", errors.ErrStorageError.Wrapf("bundle %s carries no access conditions", bundleRef)
	}

	key, err := g.network.GetEncryptionKey(ctx, bundle.Conditions, bundle.EncryptedSymmetricKey, viewerAuth, g.chain)
	if err != nil {
		if stderrors.Is(err, errors.ErrAccessDenied) {
			return "", err
		}
		return "", errors.WrapError(err, errors.ErrGatingNetworkError, "key release failed for %s", bundleRef)
	}

	blob, err := base64.StdEncoding.DecodeString(bundle.EncryptedData)
	if err != nil {
		return "", errors.WrapError(err, errors.ErrStorageError, "malformed ciphertext in %s", bundleRef)
	}

	cipher, err := aead.NewContentCipher(key)
	if err != nil {
		return "", errors.WrapError(err, errors.ErrGatingNetworkError, "released key is unusable")
	}

	plaintext, err := cipher.Open(blob, nil)
	if err != nil {
		return "", errors.WrapError(err, errors.ErrGatingNetworkError, "released key failed to decrypt %s", bundleRef)
	}

	g.mu.Lock()
	g.cache[bundleRef] = string(plaintext)
	g.mu.Unlock()

	g.logger.Debug("bundle decrypted", "bundle_ref", bundleRef, "viewer", viewerAuth.Address)

	return string(plaintext), nil
}

// Forget drops a cached plaintext, forcing the next Decrypt to re-request
// key release.
func (g *Gate) Forget(bundleRef string) {
	g.mu.Lock()
	delete(g.cache, bundleRef)
	g.mu.Unlock()
}

// Reset clears the session cache entirely.
func (g *Gate) Reset() {
	g.mu.Lock()
	g.cache = map[string]string{}
	g.mu.Unlock()
}
