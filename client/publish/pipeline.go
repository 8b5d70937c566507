package publish

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/common"

	"github.com/therealharpaljadeja/lens-it/client/errors"
	"github.com/therealharpaljadeja/lens-it/client/gating"
	"github.com/therealharpaljadeja/lens-it/client/graph"
	"github.com/therealharpaljadeja/lens-it/client/tx"
	"github.com/therealharpaljadeja/lens-it/crypto/aead"
	"github.com/therealharpaljadeja/lens-it/types/storage"
)

// AuthorContext identifies the publishing profile and the handles allowed
// to read.
type AuthorContext struct {
	Profile graph.Profile
	Handles []string
}

// Result is everything a successful publish produced. Returned once the
// post submission succeeds; indexing confirmation is a separate follow-up.
type Result struct {
	Manifest    Manifest
	ManifestRef string
	BundleRef   string
	KeyHandle   string
	TxHash      common.Hash
}

// GatingAuthSigner supplies the caller's gating-network authorization.
type GatingAuthSigner interface {
	SignGatingAuth(ctx context.Context) (gating.AuthSig, error)
}

// Submitter submits the final post meta-transaction.
type Submitter interface {
	Submit(ctx context.Context, p tx.Params) (common.Hash, error)
}

// Pipeline runs the gated-publication flow. Steps are strictly sequential;
// each step's output feeds the next and each is a distinct failure boundary.
type Pipeline struct {
	network   gating.Network
	store     storage.Store
	auth      GatingAuthSigner
	submitter Submitter
	chain     string
	appID     string
	logger    log.Logger
}

// NewPipeline wires the publication pipeline.
func NewPipeline(network gating.Network, store storage.Store, auth GatingAuthSigner, submitter Submitter, chain, appID string, logger log.Logger) *Pipeline {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Pipeline{
		network:   network,
		store:     store,
		auth:      auth,
		submitter: submitter,
		chain:     chain,
		appID:     appID,
		logger:    logger,
	}
}

// Publish encrypts content, gates the key behind tree, stores bundle and
// manifest, and submits the post. An empty tree or empty content fails
// before any network call.
func (p *Pipeline) Publish(ctx context.Context, content string, tree *gating.Tree, author AuthorContext) (*Result, error) {
	content = trimify(content)
	if content == "" {
		return nil, errors.ErrEmptyContent.Wrap("nothing to publish")
	}

	if tree.Empty() {
		return nil, errors.ErrNoAccessConditions.Wrap("approve at least one reader before publishing gated content")
	}

	key, err := aead.GenerateKey()
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrGatingNetworkError, "key generation failed")
	}

	cipher, err := aead.NewContentCipher(key)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrGatingNetworkError, "cipher setup failed")
	}

	blob, err := cipher.Seal([]byte(content), nil)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrGatingNetworkError, "encryption failed")
	}

	authSig, err := p.auth.SignGatingAuth(ctx)
	if err != nil {
		return nil, err
	}

	keyHandle, err := p.network.SaveEncryptionKey(ctx, tree, key, authSig, p.chain)
	if err != nil {
		return nil, err
	}

	bundle := Bundle{
		EncryptedData:         base64.StdEncoding.EncodeToString(blob),
		EncryptedSymmetricKey: keyHandle,
		Conditions:            tree,
	}

	bundleJSON, err := json.Marshal(bundle)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrStorageError, "failed to encode bundle")
	}

	bundleRef, err := p.store.Put(ctx, bundleJSON)
	if err != nil {
		return nil, err
	}

	manifest := buildManifest(p.appID, author.Profile.Handle, bundleRef, author.Handles)

	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrStorageError, "failed to encode manifest")
	}

	manifestRef, err := p.store.Put(ctx, manifestJSON)
	if err != nil {
		return nil, err
	}

	p.logger.Info("publication stored",
		"bundle_ref", bundleRef,
		"manifest_ref", manifestRef,
		"readers", tree.LeafCount(),
	)

	hash, err := p.submitter.Submit(ctx, tx.PostParams{
		ProfileID:  author.Profile.ID,
		ContentURI: manifestRef,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Manifest:    manifest,
		ManifestRef: manifestRef,
		BundleRef:   bundleRef,
		KeyHandle:   keyHandle,
		TxHash:      hash,
	}, nil
}
