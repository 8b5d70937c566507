package publish

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/therealharpaljadeja/lens-it/client/errors"
	"github.com/therealharpaljadeja/lens-it/client/gating"
	"github.com/therealharpaljadeja/lens-it/client/graph"
	"github.com/therealharpaljadeja/lens-it/client/tx"
	"github.com/therealharpaljadeja/lens-it/crypto/aead"
)

type memStore struct {
	objects map[string][]byte
	puts    int
	fail    bool
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (s *memStore) Put(_ context.Context, data []byte) (string, error) {
	if s.fail {
		return "", errors.ErrStorageError.Wrap("node unreachable")
	}
	s.puts++
	ref := fmt.Sprintf("ipfs://object-%d", s.puts)
	s.objects[ref] = data
	return ref, nil
}

func (s *memStore) Get(_ context.Context, ref string) ([]byte, error) {
	data, ok := s.objects[ref]
	if !ok {
		return nil, errors.ErrStorageError.Wrapf("no object at %s", ref)
	}
	return data, nil
}

type fakeNetwork struct {
	saves int
	keys  map[string][]byte
	fail  bool
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{keys: map[string][]byte{}}
}

func (n *fakeNetwork) SaveEncryptionKey(_ context.Context, _ *gating.Tree, key []byte, _ gating.AuthSig, _ string) (string, error) {
	if n.fail {
		return "", errors.ErrGatingNetworkError.Wrap("nodes unreachable")
	}
	n.saves++
	handle := fmt.Sprintf("key-handle-%d", n.saves)
	n.keys[handle] = append([]byte{}, key...)
	return handle, nil
}

func (n *fakeNetwork) GetEncryptionKey(_ context.Context, _ *gating.Tree, handle string, _ gating.AuthSig, _ string) ([]byte, error) {
	key, ok := n.keys[handle]
	if !ok {
		return nil, errors.ErrGatingNetworkError.Wrap("unknown handle")
	}
	return key, nil
}

type fakeAuthSigner struct {
	err   error
	calls int
}

func (f *fakeAuthSigner) SignGatingAuth(_ context.Context) (gating.AuthSig, error) {
	f.calls++
	if f.err != nil {
		return gating.AuthSig{}, f.err
	}
	return gating.AuthSig{
		Sig:           "0xsig",
		DerivedVia:    "web3.eth.personal.sign",
		SignedMessage: "msg",
		Address:       "0x2222222222222222222222222222222222222222",
	}, nil
}

type fakeSubmitter struct {
	err    error
	last   tx.Params
	called int
}

func (f *fakeSubmitter) Submit(_ context.Context, p tx.Params) (common.Hash, error) {
	f.called++
	f.last = p
	if f.err != nil {
		return common.Hash{}, f.err
	}
	return common.HexToHash("0xbeef"), nil
}

type PipelineTestSuite struct {
	suite.Suite

	store     *memStore
	network   *fakeNetwork
	auth      *fakeAuthSigner
	submitter *fakeSubmitter
	pipeline  *Pipeline
	tree      *gating.Tree
	author    AuthorContext
}

func TestPipelineTestSuite(t *testing.T) {
	suite.Run(t, new(PipelineTestSuite))
}

func (s *PipelineTestSuite) SetupTest() {
	s.store = newMemStore()
	s.network = newFakeNetwork()
	s.auth = &fakeAuthSigner{}
	s.submitter = &fakeSubmitter{}
	s.pipeline = NewPipeline(s.network, s.store, s.auth, s.submitter, "mumbai", "lens-it-working", nil)

	s.tree = testTree("1", "42")
	s.author = AuthorContext{
		Profile: graph.Profile{ID: "0x05", Handle: "publisher.lens"},
		Handles: []string{"alice", "bob"},
	}
}

func testTree(tokenIDs ...string) *gating.Tree {
	var nodes []map[string]any
	for _, id := range tokenIDs {
		nodes = append(nodes, map[string]any{
			"leaf": map[string]any{
				"contractAddress": "0x60Ae865ee4C725cd04353b5AAb364553f56ceF82",
				"functionName":    "ownerOf",
				"functionParams":  []string{id},
				"chain":           "mumbai",
				"returnValueTest": map[string]string{"comparator": "=", "value": ":userAddress"},
			},
		})
	}

	root := nodes[0]
	for _, n := range nodes[1:] {
		root = map[string]any{"or": map[string]any{"left": root, "right": n}}
	}

	raw, err := json.Marshal(root)
	if err != nil {
		panic(err)
	}

	tree := gating.NewTree()
	if err := json.Unmarshal(raw, tree); err != nil {
		panic(err)
	}
	return tree
}

func (s *PipelineTestSuite) TestEmptyContentFailsBeforeAnyNetworkCall() {
	for _, content := range []string{"", "   ", "\n\n  \n"} {
		_, err := s.pipeline.Publish(context.Background(), content, s.tree, s.author)
		s.Require().ErrorIs(err, errors.ErrEmptyContent)
	}

	s.Require().Zero(s.network.saves)
	s.Require().Zero(s.store.puts)
	s.Require().Zero(s.auth.calls)
	s.Require().Zero(s.submitter.called)
}

func (s *PipelineTestSuite) TestEmptyTreeFailsBeforeAnyNetworkCall() {
	for _, tree := range []*gating.Tree{nil, gating.NewTree()} {
		_, err := s.pipeline.Publish(context.Background(), "secret content", tree, s.author)
		s.Require().ErrorIs(err, errors.ErrNoAccessConditions)
	}

	s.Require().Zero(s.network.saves, "no key must be gated")
	s.Require().Zero(s.store.puts, "no partial bundle must be stored")
	s.Require().Zero(s.submitter.called)
}

func (s *PipelineTestSuite) TestPublishStoresBundleAndManifest() {
	result, err := s.pipeline.Publish(context.Background(), "the secret plan", s.tree, s.author)
	s.Require().NoError(err)

	// Bundle: ciphertext + key handle + conditions, stored as one object.
	raw, err := s.store.Get(context.Background(), result.BundleRef)
	s.Require().NoError(err)

	var bundle Bundle
	s.Require().NoError(json.Unmarshal(raw, &bundle))
	s.Require().Equal(result.KeyHandle, bundle.EncryptedSymmetricKey)
	s.Require().Equal(2, bundle.Conditions.LeafCount())

	blob, err := base64.StdEncoding.DecodeString(bundle.EncryptedData)
	s.Require().NoError(err)
	s.Require().GreaterOrEqual(len(blob), aead.NonceSize+aead.TagSize)

	key := s.network.keys[result.KeyHandle]
	cipher, err := aead.NewContentCipher(key)
	s.Require().NoError(err)
	plaintext, err := cipher.Open(blob, nil)
	s.Require().NoError(err)
	s.Require().Equal("the secret plan", string(plaintext))

	// Manifest: public metadata pointing at the bundle.
	s.Require().Equal(ManifestVersion, result.Manifest.Version)
	s.Require().Equal("lens-it-working", result.Manifest.AppID)
	s.Require().Equal("Published by @publisher.lens", result.Manifest.Name)
	s.Require().Len(result.Manifest.Attributes, 1)
	s.Require().Equal(ContentLocationTrait, result.Manifest.Attributes[0].TraitType)
	s.Require().Equal(result.BundleRef, result.Manifest.Attributes[0].Value)
	s.Require().Contains(result.Manifest.Content, "@alice")
	s.Require().Contains(result.Manifest.Content, "@bob")

	_, err = uuid.Parse(result.Manifest.MetadataID)
	s.Require().NoError(err)

	stored, err := s.store.Get(context.Background(), result.ManifestRef)
	s.Require().NoError(err)
	var storedManifest Manifest
	s.Require().NoError(json.Unmarshal(stored, &storedManifest))
	s.Require().Equal(result.Manifest, storedManifest)

	// The post action carries the manifest ref as content URI.
	post, ok := s.submitter.last.(tx.PostParams)
	s.Require().True(ok)
	s.Require().Equal("0x05", post.ProfileID)
	s.Require().Equal(result.ManifestRef, post.ContentURI)
	s.Require().Equal(common.HexToHash("0xbeef"), result.TxHash)
}

func (s *PipelineTestSuite) TestEachPublishUsesFreshKey() {
	first, err := s.pipeline.Publish(context.Background(), "one", s.tree, s.author)
	s.Require().NoError(err)
	second, err := s.pipeline.Publish(context.Background(), "two", s.tree, s.author)
	s.Require().NoError(err)

	s.Require().NotEqual(first.KeyHandle, second.KeyHandle)
	s.Require().NotEqual(s.network.keys[first.KeyHandle], s.network.keys[second.KeyHandle])
}

func (s *PipelineTestSuite) TestGatingAuthFailureStopsPipeline() {
	s.auth.err = errors.ErrAuthRejected

	_, err := s.pipeline.Publish(context.Background(), "secret", s.tree, s.author)
	s.Require().ErrorIs(err, errors.ErrAuthRejected)
	s.Require().Zero(s.network.saves)
	s.Require().Zero(s.store.puts)
}

func (s *PipelineTestSuite) TestGatingNetworkFailure() {
	s.network.fail = true

	_, err := s.pipeline.Publish(context.Background(), "secret", s.tree, s.author)
	s.Require().ErrorIs(err, errors.ErrGatingNetworkError)
	s.Require().Zero(s.store.puts, "no partial bundle after a gating failure")
	s.Require().Zero(s.submitter.called)
}

func (s *PipelineTestSuite) TestStorageFailure() {
	s.store.fail = true

	_, err := s.pipeline.Publish(context.Background(), "secret", s.tree, s.author)
	s.Require().ErrorIs(err, errors.ErrStorageError)
	s.Require().Zero(s.submitter.called)
}

func (s *PipelineTestSuite) TestSubmissionFailure() {
	s.submitter.err = errors.ErrChainSubmissionError.Wrap("revert")

	_, err := s.pipeline.Publish(context.Background(), "secret", s.tree, s.author)
	s.Require().ErrorIs(err, errors.ErrChainSubmissionError)
}

func TestTrimify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"surrounding whitespace", "  hello \n", "hello"},
		{"blank line runs", "a\n\n\n\nb", "a\n\nb"},
		{"blank lines with spaces", "a\n   \nb", "a\n\nb"},
		{"only whitespace", " \n \n ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, trimify(tt.in))
		})
	}
}

func TestManifestBundleRef(t *testing.T) {
	m := Manifest{Attributes: []Attribute{
		{TraitType: "other", Value: "x"},
		{TraitType: ContentLocationTrait, Value: "ipfs://bundle"},
	}}
	require.Equal(t, "ipfs://bundle", m.BundleRef())

	require.Empty(t, Manifest{}.BundleRef())
}
