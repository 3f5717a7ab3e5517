// Package chains provides the chain module interfaces that turn network
// profiles into live connections.
package chains

import (
	"context"
	"math/big"
	"time"

	"github.com/pendergraft/netprofile/internal/profile"
)

// Chain represents a blockchain ecosystem (EVM today)
type Chain interface {
	// Metadata
	Name() string        // "evm"
	DisplayName() string // "Ethereum/EVM"

	// Connect opens a connection for a network profile.
	Connect(ctx context.Context, n profile.Network, opts ConnectOptions) (Provider, error)
}

// Provider is an open connection to one network.
type Provider interface {
	// Accounts returns the derived wallet accounts. Empty for direct
	// profiles and for connections opened without a wallet.
	Accounts() []Account

	Probe(ctx context.Context) (*ProbeResult, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	AwaitConfirmations(ctx context.Context, txHash string) (*Receipt, error)

	Close()
}

// ConnectOptions configures Connect
type ConnectOptions struct {
	// Mnemonic overrides the profile's mnemonic, e.g. when it was prompted
	// for interactively.
	Mnemonic string
	// WithoutWallet skips HD wallet derivation. Probing needs only the
	// endpoint.
	WithoutWallet bool
}

// Account is one address derived from the provider's mnemonic
type Account struct {
	Index   int64  `json:"index"`
	Path    string `json:"path"`
	Address string `json:"address"`
}

// ProbeResult describes what a network endpoint reported
type ProbeResult struct {
	Network          string        `json:"network"`
	Endpoint         string        `json:"endpoint"` // template form, never the resolved URL
	ExpectedID       string        `json:"expectedNetworkId,omitempty"`
	RemoteNetworkID  uint64        `json:"remoteNetworkId"`
	ChainID          uint64        `json:"chainId"`
	BlockNumber      uint64        `json:"blockNumber"`
	GasPrice         string        `json:"gasPrice"` // wei, decimal
	GasPriceFromNode bool          `json:"gasPriceFromNode"`
	Matches          bool          `json:"matches"`
	Accounts         []Account     `json:"accounts,omitempty"`
	Latency          time.Duration `json:"latency"`
}

// Receipt is a transaction that reached the required confirmations
type Receipt struct {
	TxHash        string `json:"txHash"`
	BlockNumber   uint64 `json:"blockNumber"`
	Confirmations uint64 `json:"confirmations"`

	// Status is nil when the node reports no status (pre-Byzantium).
	Status *uint64 `json:"status,omitempty"`
}
