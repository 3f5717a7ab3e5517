// Package evm provides the EVM chain module for Ethereum and compatible chains.
package evm

import (
	"context"

	"github.com/pendergraft/netprofile/internal/chains"
	"github.com/pendergraft/netprofile/internal/profile"
)

// Chain implements the chains.Chain interface for EVM-compatible blockchains
type Chain struct{}

// NewChain creates a new EVM chain module
func NewChain() *Chain {
	return &Chain{}
}

// Name returns the chain identifier
func (c *Chain) Name() string {
	return "evm"
}

// DisplayName returns a human-readable name
func (c *Chain) DisplayName() string {
	return "Ethereum/EVM"
}

// Connect opens a provider for the network profile
func (c *Chain) Connect(ctx context.Context, n profile.Network, opts chains.ConnectOptions) (chains.Provider, error) {
	return NewProvider(ctx, n, opts)
}
