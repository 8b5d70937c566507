package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ipfs/boxo/files"
	"github.com/ipfs/boxo/path"
	"github.com/ipfs/kubo/client/rpc"

	"github.com/therealharpaljadeja/lens-it/client/errors"
)

// NodeStore reads and writes through a kubo node's RPC API. Content written
// through it stays pinned on the node.
type NodeStore struct {
	api *rpc.HttpApi
}

// NewNodeStore connects to a kubo RPC endpoint, e.g. "http://localhost:5001".
func NewNodeStore(endpoint string) (*NodeStore, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrInvalidConfig, "invalid IPFS API endpoint %q", endpoint)
	}

	api, err := rpc.NewURLApiWithClient(u.String(), http.DefaultClient)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrStorageError, "failed to connect to IPFS node")
	}

	return &NodeStore{api: api}, nil
}

// NewLocalNodeStore connects to the local kubo node via its default API address.
func NewLocalNodeStore() (*NodeStore, error) {
	api, err := rpc.NewLocalApi()
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrStorageError, "failed to connect to local IPFS node")
	}
	return &NodeStore{api: api}, nil
}

// Put adds data as a single UnixFS file and returns its ipfs:// ref.
func (s *NodeStore) Put(ctx context.Context, data []byte) (string, error) {
	file := files.NewBytesFile(data)

	p, err := s.api.Unixfs().Add(ctx, file)
	if err != nil {
		return "", errors.WrapError(err, errors.ErrStorageError, "failed to add content")
	}

	return FormatRef(p.RootCid().String()), nil
}

// Get fetches the file behind ref and returns its raw bytes.
func (s *NodeStore) Get(ctx context.Context, ref string) ([]byte, error) {
	c, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}

	p, err := path.NewPath("/ipfs/" + c)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrStorageError, "invalid content path")
	}

	node, err := s.api.Unixfs().Get(ctx, p)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrStorageError, "failed to fetch content %s", ref)
	}

	file, ok := node.(files.File)
	if !ok {
		return nil, errors.ErrStorageError.Wrapf("unexpected node type: %T", node)
	}

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, file); err != nil {
		return nil, errors.WrapError(err, errors.ErrStorageError, "failed to read content %s", ref)
	}

	return buf.Bytes(), nil
}

// GatewayStore reads content through an HTTP gateway. It cannot write.
type GatewayStore struct {
	gateway string
	client  *http.Client
}

// NewGatewayStore wraps an IPFS HTTP gateway, e.g. "https://lens.infura-ipfs.io".
func NewGatewayStore(gateway string, client *http.Client) *GatewayStore {
	if client == nil {
		client = http.DefaultClient
	}
	return &GatewayStore{gateway: gateway, client: client}
}

// Put is unsupported on a read-only gateway.
func (s *GatewayStore) Put(_ context.Context, _ []byte) (string, error) {
	return "", errors.ErrStorageError.Wrap("gateway store is read-only")
}

// Get fetches the file behind ref from the gateway's /ipfs/ path.
func (s *GatewayStore) Get(ctx context.Context, ref string) ([]byte, error) {
	c, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/ipfs/%s", s.gateway, c), nil)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrStorageError, "failed to build gateway request")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrStorageError, "gateway request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.ErrStorageError.Wrapf("gateway returned status %d for %s", resp.StatusCode, ref)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrStorageError, "failed to read gateway response")
	}

	return data, nil
}
