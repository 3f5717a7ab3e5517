package evm

import (
	"context"
	"fmt"
	"math/big"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/pendergraft/netprofile/internal/chains"
	"github.com/pendergraft/netprofile/internal/profile"
)

// DefaultPollingInterval applies when a profile leaves polling_interval unset.
const DefaultPollingInterval = 4 * time.Second

// DefaultTimeoutBlocks applies when a profile leaves timeout_blocks unset.
const DefaultTimeoutBlocks = 50

// Provider is a connection to one network profile. Provider profiles carry
// the accounts derived from their mnemonic.
type Provider struct {
	network  profile.Network
	endpoint string // resolved, may embed an API key
	display  string // safe to print
	rpc      *rpc.Client
	eth      *ethclient.Client
	accounts []chains.Account
}

var _ chains.Provider = (*Provider)(nil)

// NewProvider builds a connection for a profile. Direct profiles connect to
// http://host:port without a wallet. Provider profiles resolve their URL and
// derive accounts from the mnemonic unless opts.WithoutWallet is set.
func NewProvider(ctx context.Context, n profile.Network, opts chains.ConnectOptions) (*Provider, error) {
	p := &Provider{network: n}

	switch n.Kind() {
	case profile.KindDirect:
		p.endpoint = "http://" + net.JoinHostPort(n.Host, strconv.Itoa(n.Port))
		p.display = p.endpoint
	case profile.KindProvider:
		spec := n.Provider
		if !spec.URL.Resolved() {
			return nil, fmt.Errorf("%w: %s needs %s", ErrMissingSecret, n.Name, strings.Join(spec.URL.Missing(), ", "))
		}
		p.endpoint = spec.URL.Reveal()
		p.display = spec.URL.String()

		if !opts.WithoutWallet {
			mnemonic := opts.Mnemonic
			if mnemonic == "" {
				if !spec.Mnemonic.Resolved() {
					return nil, fmt.Errorf("%w: %s needs %s", ErrMissingSecret, n.Name, strings.Join(spec.Mnemonic.Missing(), ", "))
				}
				mnemonic = spec.Mnemonic.Reveal()
			}
			accts, err := DeriveAccounts(mnemonic, spec.DerivationPath, spec.AddressIndex, spec.NumAddresses)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", n.Name, err)
			}
			p.accounts = accts
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProfile, n.Name)
	}

	client, err := rpc.DialContext(ctx, p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", p.display, p.redact(err))
	}
	p.rpc = client
	p.eth = ethclient.NewClient(client)
	return p, nil
}

// Network returns the profile the provider was built from.
func (p *Provider) Network() profile.Network { return p.network }

// Endpoint returns the endpoint in printable form.
func (p *Provider) Endpoint() string { return p.display }

// Accounts returns the derived wallet accounts.
func (p *Provider) Accounts() []chains.Account {
	out := make([]chains.Account, len(p.accounts))
	copy(out, p.accounts)
	return out
}

// Close releases the underlying RPC client.
func (p *Provider) Close() {
	p.rpc.Close()
}

// Probe queries the node for its identity and head and checks the remote
// network id against the profile.
func (p *Provider) Probe(ctx context.Context) (*chains.ProbeResult, error) {
	start := time.Now()

	netID, err := p.eth.NetworkID(ctx)
	if err != nil {
		return nil, fmt.Errorf("net_version: %w", p.redact(err))
	}
	chainID, err := p.eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("eth_chainId: %w", p.redact(err))
	}
	head, err := p.eth.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("eth_blockNumber: %w", p.redact(err))
	}
	gasPrice, err := p.GasPrice(ctx)
	if err != nil {
		return nil, err
	}

	return &chains.ProbeResult{
		Network:          p.network.Name,
		Endpoint:         p.display,
		ExpectedID:       p.network.NetworkID.String(),
		RemoteNetworkID:  netID.Uint64(),
		ChainID:          chainID.Uint64(),
		BlockNumber:      head,
		GasPrice:         gasPrice.String(),
		GasPriceFromNode: p.network.GasPrice <= 0,
		Matches:          p.network.NetworkID.Matches(netID.Uint64()),
		Accounts:         p.Accounts(),
		Latency:          time.Since(start),
	}, nil
}

// CheckNetwork returns ErrNetworkMismatch when the probe disagrees with the
// profile's network id.
func CheckNetwork(res *chains.ProbeResult) error {
	if res.Matches {
		return nil
	}
	return fmt.Errorf("%w: %s expects %s, node reports %d", ErrNetworkMismatch, res.Network, res.ExpectedID, res.RemoteNetworkID)
}

// GasPrice returns the profile's fixed gas price, or the node's suggestion
// when the profile sets none.
func (p *Provider) GasPrice(ctx context.Context) (*big.Int, error) {
	if p.network.GasPrice > 0 {
		return big.NewInt(p.network.GasPrice), nil
	}
	price, err := p.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("eth_gasPrice: %w", p.redact(err))
	}
	return price, nil
}

func (p *Provider) pollingInterval() time.Duration {
	if p.network.Provider != nil && p.network.Provider.PollingInterval > 0 {
		return time.Duration(p.network.Provider.PollingInterval) * time.Millisecond
	}
	return DefaultPollingInterval
}

func (p *Provider) redact(err error) error {
	if p.endpoint == p.display {
		return err
	}
	return redact(err, p.endpoint, p.display)
}
