// Package config provides network configuration and connection settings for the lens-it client SDK.
package config

import (
	"fmt"
	"time"

	"github.com/therealharpaljadeja/lens-it/client/errors"
)

// NetworkConfig defines the configuration for connecting to a Lens-style network
// and its companion services (gating network, content storage, chain RPC).
type NetworkConfig struct {
	// Network identification
	ChainID   int64  `json:"chain_id"`
	Name      string `json:"name"`
	NetworkID string `json:"network_id"`

	// Endpoints
	GraphAPI  string `json:"graph_api"`  // social-graph GraphQL endpoint
	ChainRPC  string `json:"chain_rpc"`  // EVM JSON-RPC endpoint
	GatingAPI string `json:"gating_api"` // key-release network endpoint

	// Gating network chain label, e.g. "mumbai"
	GatingChain string `json:"gating_chain"`

	// Content storage
	IPFSAPI     string `json:"ipfs_api,omitempty"`     // kubo RPC endpoint (write path)
	IPFSGateway string `json:"ipfs_gateway,omitempty"` // HTTP gateway (read path)

	// Hub contract address accepting the *WithSig methods
	HubContract string `json:"hub_contract"`

	// Application identifier stamped into publication manifests
	AppID string `json:"app_id"`

	// Connection settings
	RequestTimeout time.Duration `json:"request_timeout"`

	// Indexing poll settings
	PollInterval    time.Duration `json:"poll_interval"`
	MaxPollAttempts int           `json:"max_poll_attempts"`
}

// ClientConfig defines the overall configuration for the lens-it client.
type ClientConfig struct {
	// Network configuration
	Network NetworkConfig `json:"network"`

	// Token storage directory for the durable session store.
	// Empty means tokens live in memory only.
	TokenDir string `json:"token_dir,omitempty"`

	// Logging configuration
	LogLevel  string `json:"log_level,omitempty"`  // debug, info, warn, error
	LogFormat string `json:"log_format,omitempty"` // json, text
}

// DefaultConfig returns a default client configuration using the Mumbai testnet.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		Network:   MumbaiNetwork(),
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// MumbaiConfig returns a client configuration for the Mumbai testnet.
func MumbaiConfig() *ClientConfig {
	config := DefaultConfig()
	config.Network = MumbaiNetwork()
	return config
}

// PolygonConfig returns a client configuration for Polygon mainnet.
func PolygonConfig() *ClientConfig {
	config := DefaultConfig()
	config.Network = PolygonNetwork()
	return config
}

// LocalConfig returns a client configuration for local development.
func LocalConfig() *ClientConfig {
	config := DefaultConfig()
	config.Network = LocalNetwork()
	return config
}

// MumbaiNetwork returns the network configuration for the Mumbai testnet.
func MumbaiNetwork() NetworkConfig {
	return NetworkConfig{
		ChainID:   80001,
		Name:      "Polygon Mumbai",
		NetworkID: "mumbai",

		GraphAPI:  "https://api-mumbai.lens.dev",
		ChainRPC:  "https://rpc-mumbai.maticvigil.com",
		GatingAPI: "https://gate.litprotocol.com",

		GatingChain: "mumbai",

		IPFSAPI:     "https://ipfs.infura.io:5001",
		IPFSGateway: "https://lens.infura-ipfs.io",

		HubContract: "0x60Ae865ee4C725cd04353b5AAb364553f56ceF82",

		AppID: "lens-it-working",

		RequestTimeout: 30 * time.Second,

		PollInterval:    1500 * time.Millisecond,
		MaxPollAttempts: 40,
	}
}

// PolygonNetwork returns the network configuration for Polygon mainnet.
func PolygonNetwork() NetworkConfig {
	return NetworkConfig{
		ChainID:   137,
		Name:      "Polygon Mainnet",
		NetworkID: "polygon",

		GraphAPI:  "https://api.lens.dev",
		ChainRPC:  "https://polygon-rpc.com",
		GatingAPI: "https://gate.litprotocol.com",

		GatingChain: "polygon",

		IPFSAPI:     "https://ipfs.infura.io:5001",
		IPFSGateway: "https://lens.infura-ipfs.io",

		HubContract: "0xDb46d1Dc155634FbC732f92E853b10B288AD5a1d",

		AppID: "lens-it-working",

		RequestTimeout: 30 * time.Second,

		PollInterval:    1500 * time.Millisecond,
		MaxPollAttempts: 40,
	}
}

// LocalNetwork returns the network configuration for local development.
func LocalNetwork() NetworkConfig {
	return NetworkConfig{
		ChainID:   31337,
		Name:      "Local Devnet",
		NetworkID: "local",

		GraphAPI:  "http://localhost:4000",
		ChainRPC:  "http://localhost:8545",
		GatingAPI: "http://localhost:7470",

		GatingChain: "localhost",

		IPFSAPI:     "http://localhost:5001",
		IPFSGateway: "http://localhost:8080",

		HubContract: "0x5FbDB2315678afecb367f032d93F642f64180aa3",

		AppID: "lens-it-working",

		RequestTimeout: 10 * time.Second,

		PollInterval:    250 * time.Millisecond,
		MaxPollAttempts: 20,
	}
}

// Validate checks if the network configuration is valid.
func (nc *NetworkConfig) Validate() error {
	if nc.ChainID <= 0 {
		return errors.ErrMissingConfig.Wrap("chain ID is required")
	}

	if nc.GraphAPI == "" {
		return errors.ErrMissingConfig.Wrap("graph API endpoint is required")
	}

	if nc.GatingAPI == "" {
		return errors.ErrMissingConfig.Wrap("gating API endpoint is required")
	}

	if nc.GatingChain == "" {
		return errors.ErrMissingConfig.Wrap("gating chain label is required")
	}

	if nc.HubContract == "" {
		return errors.ErrMissingConfig.Wrap("hub contract address is required")
	}

	if nc.IPFSAPI == "" && nc.IPFSGateway == "" {
		return errors.ErrMissingConfig.Wrap("at least one storage endpoint (IPFS API or gateway) is required")
	}

	if nc.RequestTimeout <= 0 {
		nc.RequestTimeout = 30 * time.Second // Default value
	}

	if nc.PollInterval <= 0 {
		nc.PollInterval = 1500 * time.Millisecond // Default value
	}

	if nc.MaxPollAttempts <= 0 {
		nc.MaxPollAttempts = 40 // Default value
	}

	return nil
}

// Validate checks if the client configuration is valid.
func (cc *ClientConfig) Validate() error {
	if err := cc.Network.Validate(); err != nil {
		return errors.WrapError(err, errors.ErrInvalidConfig, "network config validation failed")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if cc.LogLevel != "" && !validLogLevels[cc.LogLevel] {
		return errors.ErrInvalidConfig.Wrapf("invalid log level: %s", cc.LogLevel)
	}

	// Validate log format
	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}

	if cc.LogFormat != "" && !validLogFormats[cc.LogFormat] {
		return errors.ErrInvalidConfig.Wrapf("invalid log format: %s", cc.LogFormat)
	}

	return nil
}

// IsTestnet returns true if the network is a test network.
func (nc *NetworkConfig) IsTestnet() bool {
	return nc.NetworkID == "mumbai" || nc.NetworkID == "local"
}

// IsMainnet returns true if the network is the main network.
func (nc *NetworkConfig) IsMainnet() bool {
	return nc.NetworkID == "polygon"
}

// GetNetworkByChainID returns a pre-configured network by chain ID.
func GetNetworkByChainID(chainID int64) (NetworkConfig, bool) {
	networks := map[int64]NetworkConfig{
		80001: MumbaiNetwork(),
		137:   PolygonNetwork(),
		31337: LocalNetwork(),
	}

	network, exists := networks[chainID]
	return network, exists
}

// String returns a human-readable summary of the network.
func (nc *NetworkConfig) String() string {
	return fmt.Sprintf("%s (chain %d, %s)", nc.Name, nc.ChainID, nc.GraphAPI)
}
