package decrypt

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/suite"

	"github.com/therealharpaljadeja/lens-it/client/errors"
	"github.com/therealharpaljadeja/lens-it/client/gating"
	"github.com/therealharpaljadeja/lens-it/client/graph"
	"github.com/therealharpaljadeja/lens-it/client/publish"
	"github.com/therealharpaljadeja/lens-it/client/tx"
)

type memStore struct {
	objects map[string][]byte
	puts    int
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (s *memStore) Put(_ context.Context, data []byte) (string, error) {
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

// enforcingNetwork releases a key only to callers owning one of the identity
// tokens in the submitted tree, mirroring the real network's predicate
// evaluation.
type enforcingNetwork struct {
	owners map[string]string // token id -> owner address
	keys   map[string][]byte
	trees  map[string]string // handle -> tree JSON at save time
	saves  int
	gets   int
}

func newEnforcingNetwork(owners map[string]string) *enforcingNetwork {
	return &enforcingNetwork{
		owners: owners,
		keys:   map[string][]byte{},
		trees:  map[string]string{},
	}
}

func (n *enforcingNetwork) SaveEncryptionKey(_ context.Context, tree *gating.Tree, key []byte, _ gating.AuthSig, _ string) (string, error) {
	n.saves++
	handle := fmt.Sprintf("key-handle-%d", n.saves)
	n.keys[handle] = append([]byte{}, key...)

	treeJSON, err := json.Marshal(tree)
	if err != nil {
		return "", err
	}
	n.trees[handle] = string(treeJSON)
	return handle, nil
}

func (n *enforcingNetwork) GetEncryptionKey(_ context.Context, tree *gating.Tree, handle string, auth gating.AuthSig, _ string) ([]byte, error) {
	n.gets++

	key, ok := n.keys[handle]
	if !ok {
		return nil, errors.ErrGatingNetworkError.Wrap("unknown key handle")
	}

	// The reconstructed tree must match the one gated at save time.
	treeJSON, err := json.Marshal(tree)
	if err != nil {
		return nil, err
	}
	if string(treeJSON) != n.trees[handle] {
		return nil, errors.ErrAccessDenied.Wrap("condition tree mismatch")
	}

	for _, leaf := range tree.Leaves() {
		if len(leaf.FunctionParams) == 0 {
			continue
		}
		if n.owners[leaf.FunctionParams[0]] == auth.Address {
			return key, nil
		}
	}
	return nil, errors.ErrAccessDenied.Wrap("caller owns no approved identity")
}

type fakeAuthSigner struct{}

func (fakeAuthSigner) SignGatingAuth(_ context.Context) (gating.AuthSig, error) {
	return viewerAuth("0x9999999999999999999999999999999999999999"), nil
}

func viewerAuth(address string) gating.AuthSig {
	return gating.AuthSig{
		Sig:           "0xsig",
		DerivedVia:    "web3.eth.personal.sign",
		SignedMessage: "msg",
		Address:       address,
	}
}

type fakeSubmitter struct{}

func (fakeSubmitter) Submit(_ context.Context, _ tx.Params) (common.Hash, error) {
	return common.HexToHash("0xbeef"), nil
}

const (
	aliceOwner    = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	bobOwner      = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	strangerOwner = "0xcccccccccccccccccccccccccccccccccccccccc"
)

type GateTestSuite struct {
	suite.Suite

	store    *memStore
	network  *enforcingNetwork
	pipeline *publish.Pipeline
	gate     *Gate
	tree     *gating.Tree
}

func TestGateTestSuite(t *testing.T) {
	suite.Run(t, new(GateTestSuite))
}

func (s *GateTestSuite) SetupTest() {
	s.store = newMemStore()
	s.network = newEnforcingNetwork(map[string]string{
		"1":  aliceOwner, // alice's identity token
		"42": bobOwner,   // bob's identity token
	})
	s.pipeline = publish.NewPipeline(s.network, s.store, fakeAuthSigner{}, fakeSubmitter{}, "mumbai", "lens-it-working", nil)
	s.gate = NewGate(s.store, s.network, "mumbai", nil)
	s.tree = testTree("1", "42")
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

func (s *GateTestSuite) publishContent(content string) string {
	result, err := s.pipeline.Publish(context.Background(), content, s.tree, publish.AuthorContext{
		Profile: graph.Profile{ID: "0x05", Handle: "publisher.lens"},
		Handles: []string{"alice", "bob"},
	})
	s.Require().NoError(err)
	return result.BundleRef
}

func (s *GateTestSuite) TestRoundTripForAuthorizedViewer() {
	contents := []string{
		"the secret plan",
		"multi\nline\ncontent",
		"unicode ✔ content",
	}

	for _, content := range contents {
		bundleRef := s.publishContent(content)

		plaintext, err := s.gate.Decrypt(context.Background(), bundleRef, viewerAuth(bobOwner))
		s.Require().NoError(err)
		s.Require().Equal(content, plaintext)
	}
}

func (s *GateTestSuite) TestEitherLeafGrantsAccess() {
	bundleRef := s.publishContent("visible to both")

	plaintext, err := s.gate.Decrypt(context.Background(), bundleRef, viewerAuth(aliceOwner))
	s.Require().NoError(err)
	s.Require().Equal("visible to both", plaintext)

	s.gate.Reset()

	plaintext, err = s.gate.Decrypt(context.Background(), bundleRef, viewerAuth(bobOwner))
	s.Require().NoError(err)
	s.Require().Equal("visible to both", plaintext)
}

func (s *GateTestSuite) TestUnauthorizedViewerNeverGetsPlaintext() {
	bundleRef := s.publishContent("not for strangers")

	plaintext, err := s.gate.Decrypt(context.Background(), bundleRef, viewerAuth(strangerOwner))
	s.Require().ErrorIs(err, errors.ErrAccessDenied)
	s.Require().Empty(plaintext)
}

func (s *GateTestSuite) TestDecryptedContentIsCached() {
	bundleRef := s.publishContent("cache me")

	_, err := s.gate.Decrypt(context.Background(), bundleRef, viewerAuth(bobOwner))
	s.Require().NoError(err)
	s.Require().Equal(1, s.network.gets)

	plaintext, err := s.gate.Decrypt(context.Background(), bundleRef, viewerAuth(bobOwner))
	s.Require().NoError(err)
	s.Require().Equal("cache me", plaintext)
	s.Require().Equal(1, s.network.gets, "cached plaintext must not re-request key release")
}

func (s *GateTestSuite) TestDenialIsNotCached() {
	bundleRef := s.publishContent("still gated")

	_, err := s.gate.Decrypt(context.Background(), bundleRef, viewerAuth(strangerOwner))
	s.Require().ErrorIs(err, errors.ErrAccessDenied)

	// A later authorized request still succeeds.
	plaintext, err := s.gate.Decrypt(context.Background(), bundleRef, viewerAuth(aliceOwner))
	s.Require().NoError(err)
	s.Require().Equal("still gated", plaintext)
}

func (s *GateTestSuite) TestForgetDropsCacheEntry() {
	bundleRef := s.publishContent("short lived")

	_, err := s.gate.Decrypt(context.Background(), bundleRef, viewerAuth(bobOwner))
	s.Require().NoError(err)

	s.gate.Forget(bundleRef)

	_, err = s.gate.Decrypt(context.Background(), bundleRef, viewerAuth(bobOwner))
	s.Require().NoError(err)
	s.Require().Equal(2, s.network.gets)
}

func (s *GateTestSuite) TestMissingBundle() {
	_, err := s.gate.Decrypt(context.Background(), "ipfs://missing", viewerAuth(bobOwner))
	s.Require().ErrorIs(err, errors.ErrStorageError)
}

func (s *GateTestSuite) TestMalformedBundle() {
	ref, err := s.store.Put(context.Background(), []byte("not json"))
	s.Require().NoError(err)

	_, err = s.gate.Decrypt(context.Background(), ref, viewerAuth(bobOwner))
	s.Require().ErrorIs(err, errors.ErrStorageError)
}

func (s *GateTestSuite) TestTamperedCiphertext() {
	bundleRef := s.publishContent("integrity matters")

	raw, err := s.store.Get(context.Background(), bundleRef)
	s.Require().NoError(err)

	var bundle publish.Bundle
	s.Require().NoError(json.Unmarshal(raw, &bundle))

	blob, err := base64.StdEncoding.DecodeString(bundle.EncryptedData)
	s.Require().NoError(err)
	blob[len(blob)-1] ^= 0x01
	bundle.EncryptedData = base64.StdEncoding.EncodeToString(blob)

	tampered, err := json.Marshal(bundle)
	s.Require().NoError(err)
	s.store.objects[bundleRef] = tampered

	_, err = s.gate.Decrypt(context.Background(), bundleRef, viewerAuth(bobOwner))
	s.Require().ErrorIs(err, errors.ErrGatingNetworkError)
}
