// Package profile loads, validates and compares deployment network profiles.
//
// A Document is built once by Load or Parse and is read-only afterwards.
// Accessors hand out copies so callers cannot mutate the loaded profiles.
package profile

import (
	"maps"
	"slices"

	"github.com/google/uuid"
)

// Defaults applied to provider profiles that leave the HD wallet options unset.
const (
	DefaultDerivationPath = "m/44'/60'/0'/0/"
	DefaultNumAddresses   = 1
)

// Kind identifies how a network profile connects.
type Kind string

const (
	KindDirect   Kind = "direct"
	KindProvider Kind = "provider"
	// KindInvalid is reported for profiles that declare both or neither.
	KindInvalid Kind = "invalid"
)

// Document is a complete deployment configuration.
type Document struct {
	Source   string
	Format   Format
	Revision uuid.UUID

	networks   map[string]Network
	testRunner map[string]any
	compilers  Compilers
	env        map[string]EnvDoc

	// keys records which top-level keys were present in the source.
	keys map[string]bool
}

// Network is a named profile describing how to reach one blockchain network.
type Network struct {
	Name string

	Host      string
	Port      int
	NetworkID NetworkID

	Provider *ProviderSpec

	Confirmations int64
	TimeoutBlocks int64
	SkipDryRun    bool
	GasPrice      int64
}

// ProviderSpec describes a wallet-backed provider built from a mnemonic
// phrase and an RPC endpoint.
type ProviderSpec struct {
	Mnemonic        Secret
	URL             Secret
	PollingInterval int64 // milliseconds
	DerivationPath  string
	AddressIndex    int64
	NumAddresses    int64
}

// Compilers holds compiler selection.
type Compilers struct {
	Solc SolcCompiler
}

// SolcCompiler selects the Solidity compiler.
type SolcCompiler struct {
	Version string
}

// EnvDoc documents an environment variable referenced by the document.
type EnvDoc struct {
	Description string `toml:"description" yaml:"description" json:"description"`
	Required    bool   `toml:"required" yaml:"required" json:"required"`
}

// Kind reports whether the profile is a direct or a provider profile.
func (n Network) Kind() Kind {
	direct := n.Host != "" || n.Port != 0
	switch {
	case direct && n.Provider == nil:
		return KindDirect
	case !direct && n.Provider != nil:
		return KindProvider
	default:
		return KindInvalid
	}
}

// Variables returns the environment variables the profile references.
func (n Network) Variables() []string {
	if n.Provider == nil {
		return nil
	}
	vars := append(n.Provider.Mnemonic.Variables(), n.Provider.URL.Variables()...)
	slices.Sort(vars)
	return slices.Compact(vars)
}

// Network returns a copy of the named profile.
func (d *Document) Network(name string) (Network, bool) {
	n, ok := d.networks[name]
	if !ok {
		return Network{}, false
	}
	return n.clone(), true
}

// NetworkNames returns the declared network names in sorted order.
func (d *Document) NetworkNames() []string {
	return slices.Sorted(maps.Keys(d.networks))
}

// Networks returns copies of all profiles, sorted by name.
func (d *Document) Networks() []Network {
	names := d.NetworkNames()
	out := make([]Network, 0, len(names))
	for _, name := range names {
		out = append(out, d.networks[name].clone())
	}
	return out
}

// Compiler returns the compiler selection.
func (d *Document) Compiler() Compilers {
	return d.compilers
}

// TestRunner returns a copy of the test-runner options.
func (d *Document) TestRunner() map[string]any {
	return maps.Clone(d.testRunner)
}

// EnvDocs returns a copy of the documented environment variables.
func (d *Document) EnvDocs() map[string]EnvDoc {
	return maps.Clone(d.env)
}

// ReferencedVariables returns every environment variable referenced by any
// network, sorted and de-duplicated.
func (d *Document) ReferencedVariables() []string {
	var vars []string
	for _, n := range d.networks {
		vars = append(vars, n.Variables()...)
	}
	slices.Sort(vars)
	return slices.Compact(vars)
}

// HasKey reports whether the top-level key was present in the source.
func (d *Document) HasKey(key string) bool {
	return d.keys[key]
}

func (n Network) clone() Network {
	if n.Provider != nil {
		p := *n.Provider
		n.Provider = &p
	}
	return n
}
