package domain

// Summary is one network in a listing.
type Summary struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	NetworkID string `json:"networkId,omitempty"`
	// Endpoint is host:port for direct profiles and the URL template for
	// provider profiles.
	Endpoint string `json:"endpoint"`
	// Ready reports whether every variable the profile references is set
	// where the document was loaded.
	Ready bool `json:"ready"`
}

// Detail is the full view of one network profile. Secrets appear by
// template only.
type Detail struct {
	Summary
	Host          string           `json:"host,omitempty"`
	Port          int              `json:"port,omitempty"`
	Provider      *ProviderDetail  `json:"provider,omitempty"`
	Confirmations int64            `json:"confirmations,omitempty"`
	TimeoutBlocks int64            `json:"timeoutBlocks,omitempty"`
	SkipDryRun    bool             `json:"skipDryRun,omitempty"`
	GasPrice      int64            `json:"gasPrice,omitempty"`
	Variables     []VariableStatus `json:"variables,omitempty"`
	Issues        []IssueDetail    `json:"issues,omitempty"`
}

// ProviderDetail describes a wallet-backed provider.
type ProviderDetail struct {
	Mnemonic        string `json:"mnemonic"`
	URL             string `json:"url"`
	PollingInterval int64  `json:"pollingInterval,omitempty"`
	DerivationPath  string `json:"derivationPath"`
	AddressIndex    int64  `json:"addressIndex"`
	NumAddresses    int64  `json:"numAddresses"`
}

// IssueDetail is a validation finding scoped to one network.
type IssueDetail struct {
	Severity string `json:"severity"`
	Field    string `json:"field,omitempty"`
	Message  string `json:"message"`
}

// VariableStatus describes one environment variable the document relies on.
type VariableStatus struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Documented  bool     `json:"documented"`
	Set         bool     `json:"set"`
	Networks    []string `json:"networks,omitempty"`
}

// EnvReport lists the variables referenced by the document.
type EnvReport struct {
	Variables []VariableStatus `json:"variables"`
}

// DocumentInfo identifies the loaded document.
type DocumentInfo struct {
	Source   string `json:"source"`
	Format   string `json:"format"`
	Revision string `json:"revision"`
	Compiler string `json:"compiler"`
	Networks int    `json:"networks"`
}
