package gating

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/therealharpaljadeja/lens-it/client/errors"
)

// AuthSig is the signed authorization a caller presents to the gating
// network. DerivedVia names the signing scheme so the network can recover
// Address from Sig over SignedMessage.
type AuthSig struct {
	Sig           string `json:"sig"`
	DerivedVia    string `json:"derivedVia"`
	SignedMessage string `json:"signedMessage"`
	Address       string `json:"address"`
}

// Network is the key-release capability. SaveEncryptionKey gates a symmetric
// key behind a condition tree and returns an opaque handle; GetEncryptionKey
// releases the key to callers satisfying the tree.
type Network interface {
	SaveEncryptionKey(ctx context.Context, tree *Tree, symmetricKey []byte, auth AuthSig, chain string) (string, error)
	GetEncryptionKey(ctx context.Context, tree *Tree, keyHandle string, auth AuthSig, chain string) ([]byte, error)
}

// HTTPNetwork talks to a gating node over HTTP.
type HTTPNetwork struct {
	endpoint string
	client   *http.Client
}

// NewHTTPNetwork wraps a gating node endpoint.
func NewHTTPNetwork(endpoint string, client *http.Client) *HTTPNetwork {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPNetwork{endpoint: endpoint, client: client}
}

type saveKeyRequest struct {
	Conditions   *Tree   `json:"accessControlConditions"`
	SymmetricKey string  `json:"symmetricKey"`
	AuthSig      AuthSig `json:"authSig"`
	Chain        string  `json:"chain"`
}

type saveKeyResponse struct {
	EncryptedSymmetricKey string `json:"encryptedSymmetricKey"`
}

type getKeyRequest struct {
	Conditions *Tree   `json:"accessControlConditions"`
	ToDecrypt  string  `json:"toDecrypt"`
	AuthSig    AuthSig `json:"authSig"`
	Chain      string  `json:"chain"`
}

type getKeyResponse struct {
	SymmetricKey string `json:"symmetricKey"`
}

// SaveEncryptionKey submits the key and condition tree, returning the
// network's opaque key handle.
func (n *HTTPNetwork) SaveEncryptionKey(ctx context.Context, tree *Tree, symmetricKey []byte, auth AuthSig, chain string) (string, error) {
	req := saveKeyRequest{
		Conditions:   tree,
		SymmetricKey: base64.StdEncoding.EncodeToString(symmetricKey),
		AuthSig:      auth,
		Chain:        chain,
	}

	var resp saveKeyResponse
	if err := n.post(ctx, "/encryption/store", req, &resp); err != nil {
		return "", err
	}
	if resp.EncryptedSymmetricKey == "" {
		return "", errors.ErrGatingNetworkError.Wrap("network returned empty key handle")
	}
	return resp.EncryptedSymmetricKey, nil
}

// GetEncryptionKey requests key release. A denial maps to AccessDenied;
// transport and server failures map to GatingNetworkError.
func (n *HTTPNetwork) GetEncryptionKey(ctx context.Context, tree *Tree, keyHandle string, auth AuthSig, chain string) ([]byte, error) {
	req := getKeyRequest{
		Conditions: tree,
		ToDecrypt:  keyHandle,
		AuthSig:    auth,
		Chain:      chain,
	}

	var resp getKeyResponse
	if err := n.post(ctx, "/encryption/retrieve", req, &resp); err != nil {
		return nil, err
	}

	key, err := base64.StdEncoding.DecodeString(resp.SymmetricKey)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrGatingNetworkError, "malformed key in response")
	}
	return key, nil
}

func (n *HTTPNetwork) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.WrapError(err, errors.ErrGatingNetworkError, "failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return errors.WrapError(err, errors.ErrGatingNetworkError, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return errors.WrapError(err, errors.ErrGatingNetworkError, "gating network request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.ErrAccessDenied.Wrapf("gating network declined (status %d)", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.ErrGatingNetworkError.Wrapf("status %d: %s", resp.StatusCode, string(msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.WrapError(err, errors.ErrGatingNetworkError, "failed to decode response")
	}
	return nil
}

var _ Network = (*HTTPNetwork)(nil)

// String summarizes an AuthSig for logs without leaking the signature.
func (a AuthSig) String() string {
	return fmt.Sprintf("AuthSig{address: %s, derivedVia: %s}", a.Address, a.DerivedVia)
}
