// Package gating builds access-control condition trees and talks to the
// key-release network that enforces them.
package gating

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"cosmossdk.io/log"

	"github.com/therealharpaljadeja/lens-it/client/errors"
)

// ReturnValueTest compares a contract call's return value against an
// expected value. ":userAddress" is substituted by the gating network with
// the caller's verified address.
type ReturnValueTest struct {
	Comparator string `json:"comparator"`
	Value      string `json:"value"`
}

// Leaf is one ownership predicate: the caller must be the current owner of
// the identity token named by FunctionParams[0].
type Leaf struct {
	ContractAddress string          `json:"contractAddress"`
	FunctionName    string          `json:"functionName"`
	FunctionParams  []string        `json:"functionParams"`
	Chain           string          `json:"chain"`
	ReturnValueTest ReturnValueTest `json:"returnValueTest"`
}

// Or combines two subtrees; the condition holds when either side does.
type Or struct {
	Left  *Node `json:"left"`
	Right *Node `json:"right"`
}

// Node is one vertex of the condition tree: exactly one of Leaf or Or is set.
type Node struct {
	Leaf *Leaf `json:"leaf,omitempty"`
	Or   *Or   `json:"or,omitempty"`
}

// Tree is a boolean-OR tree of ownership predicates. The zero value is the
// empty tree; content must not be published gated against an empty tree.
// Built left-to-right: the first identity is a single leaf, each subsequent
// identity wraps the existing tree as Or(tree, leaf).
type Tree struct {
	root    *Node
	members map[string]struct{} // identity token ids present as leaves
}

// NewTree returns an empty condition tree.
func NewTree() *Tree {
	return &Tree{members: map[string]struct{}{}}
}

// Empty reports whether the tree has no conditions.
func (t *Tree) Empty() bool {
	return t == nil || t.root == nil
}

// Contains reports whether the identity token id is already a leaf.
func (t *Tree) Contains(tokenID string) bool {
	if t == nil {
		return false
	}
	_, ok := t.members[tokenID]
	return ok
}

// LeafCount returns the number of ownership predicates in the tree.
func (t *Tree) LeafCount() int {
	if t == nil {
		return 0
	}
	return len(t.members)
}

// Leaves returns every predicate in left-to-right insertion order.
func (t *Tree) Leaves() []Leaf {
	if t.Empty() {
		return nil
	}
	var out []Leaf
	collectLeaves(t.root, &out)
	return out
}

func collectLeaves(n *Node, out *[]Leaf) {
	if n == nil {
		return
	}
	if n.Leaf != nil {
		*out = append(*out, *n.Leaf)
		return
	}
	if n.Or != nil {
		collectLeaves(n.Or.Left, out)
		collectLeaves(n.Or.Right, out)
	}
}

// withLeaf returns a new tree extended by leaf. Existing nodes are shared;
// they are never mutated after construction.
func (t *Tree) withLeaf(tokenID string, leaf Leaf) *Tree {
	members := make(map[string]struct{}, len(t.members)+1)
	for id := range t.members {
		members[id] = struct{}{}
	}
	members[tokenID] = struct{}{}

	node := &Node{Leaf: &leaf}
	next := &Tree{members: members}
	if t.root == nil {
		next.root = node
	} else {
		next.root = &Node{Or: &Or{Left: t.root, Right: node}}
	}
	return next
}

// MarshalJSON encodes the tree as its root node. Embedded verbatim in stored
// bundles so a later decrypt reconstructs the identical request.
func (t *Tree) MarshalJSON() ([]byte, error) {
	if t.Empty() {
		return []byte("null"), nil
	}
	return json.Marshal(t.root)
}

// UnmarshalJSON decodes a root node and rebuilds leaf membership.
func (t *Tree) UnmarshalJSON(data []byte) error {
	t.root = nil
	t.members = map[string]struct{}{}

	if string(data) == "null" {
		return nil
	}

	var root Node
	if err := json.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("failed to decode condition tree: %w", err)
	}
	t.root = &root

	for _, leaf := range t.Leaves() {
		if len(leaf.FunctionParams) > 0 {
			t.members[leaf.FunctionParams[0]] = struct{}{}
		}
	}
	return nil
}

// ProfileResolver resolves a handle to its on-chain profile id. An empty id
// means the handle is unknown.
type ProfileResolver interface {
	ProfileIDByHandle(ctx context.Context, handle string) (string, error)
}

// ConditionBuilder resolves handles to identity tokens and grows condition
// trees one ownership predicate at a time.
type ConditionBuilder struct {
	api      ProfileResolver
	registry string // identity-registry contract exposing ownerOf
	chain    string // gating network chain label
	logger   log.Logger
}

// NewConditionBuilder creates a builder bound to the identity registry
// contract and gating chain label.
func NewConditionBuilder(api ProfileResolver, registry, chain string, logger log.Logger) *ConditionBuilder {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &ConditionBuilder{api: api, registry: registry, chain: chain, logger: logger}
}

// AddHandle resolves handle and returns a new tree extended with its
// ownership predicate. The input tree is never modified; on failure it
// remains the caller's valid tree. Re-adding a handle already present fails
// with DuplicateCondition.
func (b *ConditionBuilder) AddHandle(ctx context.Context, tree *Tree, handle string) (*Tree, error) {
	if tree == nil {
		tree = NewTree()
	}

	id, err := b.api.ProfileIDByHandle(ctx, handle)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrUnknownHandle, "failed to resolve handle %q", handle)
	}
	if id == "" {
		return nil, errors.ErrUnknownHandle.Wrapf("handle %q", handle)
	}

	tokenID, err := TokenID(id)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrUnknownHandle, "bad profile id for %q", handle)
	}

	if tree.Contains(tokenID) {
		return nil, errors.ErrDuplicateCondition.Wrapf("handle %q (token %s)", handle, tokenID)
	}

	b.logger.Debug("adding access condition", "handle", handle, "token_id", tokenID)

	leaf := Leaf{
		ContractAddress: b.registry,
		FunctionName:    "ownerOf",
		FunctionParams:  []string{tokenID},
		Chain:           b.chain,
		ReturnValueTest: ReturnValueTest{
			Comparator: "=",
			Value:      ":userAddress",
		},
	}

	return tree.withLeaf(tokenID, leaf), nil
}

// TokenID converts a hex profile id (e.g. "0x01") to the decimal token id
// used in ownerOf calls.
func TokenID(profileID string) (string, error) {
	raw := strings.TrimPrefix(profileID, "0x")
	n, ok := new(big.Int).SetString(raw, 16)
	if !ok {
		return "", fmt.Errorf("invalid profile id %q", profileID)
	}
	return n.String(), nil
}
