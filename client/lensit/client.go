// Package lensit wires the full client: session authentication, condition
// building, encrypted publishing, meta-transaction submission, indexing
// monitoring and decryption, configured per network.
package lensit

import (
	"crypto/ecdsa"
	"math/big"
	"net/http"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/common"

	"github.com/therealharpaljadeja/lens-it/client/auth"
	"github.com/therealharpaljadeja/lens-it/client/config"
	"github.com/therealharpaljadeja/lens-it/client/decrypt"
	"github.com/therealharpaljadeja/lens-it/client/errors"
	"github.com/therealharpaljadeja/lens-it/client/gating"
	"github.com/therealharpaljadeja/lens-it/client/graph"
	"github.com/therealharpaljadeja/lens-it/client/profiles"
	"github.com/therealharpaljadeja/lens-it/client/publish"
	"github.com/therealharpaljadeja/lens-it/client/tx"
	"github.com/therealharpaljadeja/lens-it/crypto/signer"
	"github.com/therealharpaljadeja/lens-it/types/storage"
)

// Client is the assembled SDK surface.
type Client interface {
	// Auth returns the session authenticator.
	Auth() *auth.Authenticator

	// Graph returns the social-graph API boundary.
	Graph() graph.API

	// Profiles returns the identity snapshot store.
	Profiles() *profiles.Store

	// ProfileLoader returns the loader filling the profile store.
	ProfileLoader() *profiles.Loader

	// Conditions returns the access-condition builder.
	Conditions() *gating.ConditionBuilder

	// Publisher returns the encrypted publication pipeline.
	Publisher() *publish.Pipeline

	// Decrypter returns the decryption gate.
	Decrypter() *decrypt.Gate

	// Transactions returns the meta-transaction builder.
	Transactions() *tx.Builder

	// Monitor returns the indexing monitor.
	Monitor() *tx.Monitor

	// Config returns the effective client configuration.
	Config() *config.ClientConfig

	// Disconnect clears the session, cached authorizations and loaded
	// profiles. Submitted transactions are unaffected.
	Disconnect() error
}

type client struct {
	cfg *config.ClientConfig

	authn     *auth.Authenticator
	api       graph.API
	profStore *profiles.Store
	loader    *profiles.Loader
	builder   *gating.ConditionBuilder
	pipeline  *publish.Pipeline
	gate      *decrypt.Gate
	txBuilder *tx.Builder
	monitor   *tx.Monitor
}

type clientOptions struct {
	signer     signer.Signer
	key        *ecdsa.PrivateKey
	store      storage.Store
	network    gating.Network
	hub        tx.HubClient
	tokenStore auth.TokenStore
	httpClient *http.Client
	logger     log.Logger
}

// ClientOption customizes the assembled client.
type ClientOption func(*clientOptions)

// WithPrivateKey installs a local wallet key. The key signs challenges and
// typed data, and pays gas on relayed submissions.
func WithPrivateKey(key *ecdsa.PrivateKey) ClientOption {
	return func(o *clientOptions) {
		o.key = key
		o.signer = signer.NewLocalSigner(key)
	}
}

// WithSigner installs a custom wallet signer. A hub client must then be
// provided separately, since relayed submissions need a gas-paying key.
func WithSigner(s signer.Signer) ClientOption {
	return func(o *clientOptions) { o.signer = s }
}

// WithStore overrides the content-addressed storage backend.
func WithStore(s storage.Store) ClientOption {
	return func(o *clientOptions) { o.store = s }
}

// WithGatingNetwork overrides the key-release network client.
func WithGatingNetwork(n gating.Network) ClientOption {
	return func(o *clientOptions) { o.network = n }
}

// WithHubClient overrides the chain contract client.
func WithHubClient(h tx.HubClient) ClientOption {
	return func(o *clientOptions) { o.hub = h }
}

// WithTokenStore overrides the durable session token store.
func WithTokenStore(ts auth.TokenStore) ClientOption {
	return func(o *clientOptions) { o.tokenStore = ts }
}

// WithHTTPClient overrides the HTTP client used for API, gating and gateway
// requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(o *clientOptions) { o.httpClient = hc }
}

// WithLogger sets the logger shared by all components.
func WithLogger(l log.Logger) ClientOption {
	return func(o *clientOptions) { o.logger = l }
}

// New assembles a client for the configured network.
func New(cfg *config.ClientConfig, opts ...ClientOption) (Client, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.signer == nil {
		return nil, errors.ErrMissingConfig.Wrap("a wallet signer is required; use WithPrivateKey or WithSigner")
	}
	if o.logger == nil {
		o.logger = log.NewNopLogger()
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: cfg.Network.RequestTimeout}
	}

	tokenStore := o.tokenStore
	if tokenStore == nil {
		if cfg.TokenDir != "" {
			fs, err := auth.NewFileTokenStore(cfg.TokenDir)
			if err != nil {
				return nil, err
			}
			tokenStore = fs
		} else {
			tokenStore = auth.NewMemoryTokenStore()
		}
	}

	api := graph.NewClient(cfg.Network.GraphAPI,
		graph.WithTokenSource(tokenStore),
		graph.WithHTTPClient(o.httpClient),
		graph.WithLogger(o.logger),
	)

	authn := auth.NewAuthenticator(api, o.signer, tokenStore, o.logger)

	network := o.network
	if network == nil {
		network = gating.NewHTTPNetwork(cfg.Network.GatingAPI, o.httpClient)
	}

	store := o.store
	if store == nil {
		var err error
		store, err = buildStore(&cfg.Network, o.httpClient)
		if err != nil {
			return nil, err
		}
	}

	hub := o.hub
	if hub == nil {
		if o.key == nil {
			return nil, errors.ErrMissingConfig.Wrap("a hub client requires a private key; use WithPrivateKey or WithHubClient")
		}
		var err error
		hub, err = tx.NewEthHubClient(
			cfg.Network.ChainRPC,
			common.HexToAddress(cfg.Network.HubContract),
			big.NewInt(cfg.Network.ChainID),
			o.key,
		)
		if err != nil {
			return nil, err
		}
	}

	profStore := profiles.NewStore()
	txBuilder := tx.NewBuilder(api, authn, o.signer, hub, tx.WithLogger(o.logger))

	c := &client{
		cfg:       cfg,
		authn:     authn,
		api:       api,
		profStore: profStore,
		loader:    profiles.NewLoader(api, authn, profStore, o.logger),
		builder:   gating.NewConditionBuilder(api, cfg.Network.HubContract, cfg.Network.GatingChain, o.logger),
		txBuilder: txBuilder,
		monitor:   tx.NewMonitor(api, o.logger),
		gate:      decrypt.NewGate(store, network, cfg.Network.GatingChain, o.logger),
		pipeline: publish.NewPipeline(
			network, store, authn, txBuilder,
			cfg.Network.GatingChain, cfg.Network.AppID, o.logger,
		),
	}

	return c, nil
}

// buildStore picks the storage backend: a kubo node when configured, the
// read-only gateway otherwise.
func buildStore(nc *config.NetworkConfig, hc *http.Client) (storage.Store, error) {
	if nc.IPFSAPI != "" {
		return storage.NewNodeStore(nc.IPFSAPI)
	}
	return storage.NewGatewayStore(nc.IPFSGateway, hc), nil
}

func (c *client) Auth() *auth.Authenticator            { return c.authn }
func (c *client) Graph() graph.API                     { return c.api }
func (c *client) Profiles() *profiles.Store            { return c.profStore }
func (c *client) ProfileLoader() *profiles.Loader      { return c.loader }
func (c *client) Conditions() *gating.ConditionBuilder { return c.builder }
func (c *client) Publisher() *publish.Pipeline         { return c.pipeline }
func (c *client) Decrypter() *decrypt.Gate             { return c.gate }
func (c *client) Transactions() *tx.Builder            { return c.txBuilder }
func (c *client) Monitor() *tx.Monitor                 { return c.monitor }
func (c *client) Config() *config.ClientConfig         { return c.cfg }

func (c *client) Disconnect() error {
	c.gate.Reset()
	c.profStore.Replace(nil, -1)
	return c.authn.Disconnect()
}
