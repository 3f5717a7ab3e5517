package profile

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/pendergraft/netprofile/internal/validation"
)

// Severity grades a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// KnownVariables documents the environment variables the shipped documents
// rely on. A document may document further variables in its env table.
var KnownVariables = map[string]string{
	"MNEMONIC_TEST":          "seed phrase of the wallet used on test networks",
	"MNEMONIC_PROD":          "seed phrase of the wallet used on production networks",
	"INFURA_API_KEY_SEPOLIA": "Sepolia RPC endpoint URL including its API key",
	"INFURA_API_KEY_POLYGON": "Infura API key for the Polygon endpoints",
}

// maxChildIndex bounds the non-hardened BIP-32 indexes an account range
// may use.
const maxChildIndex = 1 << 31

// Issue is one finding of Validate.
type Issue struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Network  string   `json:"network,omitempty" yaml:"network,omitempty"`
	Field    string   `json:"field,omitempty" yaml:"field,omitempty"`
	Message  string   `json:"message" yaml:"message"`
}

func (i Issue) String() string {
	var b strings.Builder
	b.WriteString(string(i.Severity))
	b.WriteString(": ")
	switch {
	case i.Network != "" && i.Field != "":
		fmt.Fprintf(&b, "networks.%s.%s: ", i.Network, i.Field)
	case i.Network != "":
		fmt.Fprintf(&b, "networks.%s: ", i.Network)
	case i.Field != "":
		fmt.Fprintf(&b, "%s: ", i.Field)
	}
	b.WriteString(i.Message)
	return b.String()
}

// Report collects the issues found in one document.
type Report struct {
	Source   string  `json:"source,omitempty" yaml:"source,omitempty"`
	Revision string  `json:"revision" yaml:"revision"`
	Issues   []Issue `json:"issues" yaml:"issues"`
}

// Errors returns the error-severity issues.
func (r *Report) Errors() []Issue { return r.filter(SeverityError) }

// Warnings returns the warning-severity issues.
func (r *Report) Warnings() []Issue { return r.filter(SeverityWarning) }

// Valid reports whether the document has no error-severity issues.
func (r *Report) Valid() bool { return len(r.Errors()) == 0 }

// Err returns nil for a valid document, otherwise an error wrapping
// ErrInvalidDocument that lists the errors.
func (r *Report) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.String()
	}
	return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
}

func (r *Report) filter(sev Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}

func (r *Report) add(sev Severity, network, field, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{
		Severity: sev,
		Network:  network,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
	})
}

// ValidateOptions tunes Validate.
type ValidateOptions struct {
	// CheckEnvironment warns about referenced variables that are unset.
	// Leave it off when the document was parsed against an environment
	// other than the one it will run in.
	CheckEnvironment bool
}

// Validate checks a document against the profile invariants.
func Validate(doc *Document, opts ValidateOptions) *Report {
	r := &Report{
		Source:   doc.Source,
		Revision: doc.Revision.String(),
		Issues:   []Issue{},
	}

	for _, key := range []string{"networks", "mocha", "compilers.solc.version"} {
		if !doc.HasKey(key) {
			r.add(SeverityError, "", key, "required key is missing")
		}
	}
	if doc.HasKey("networks") && len(doc.networks) == 0 {
		r.add(SeverityWarning, "", "networks", "no networks declared")
	}

	for _, n := range doc.Networks() {
		validateNetwork(r, n, opts)
	}

	if doc.HasKey("compilers.solc.version") {
		if err := validation.ValidateCompilerVersion(doc.compilers.Solc.Version); err != nil {
			r.add(SeverityError, "", "compilers.solc.version", "%v", err)
		}
	}

	for _, name := range doc.ReferencedVariables() {
		if _, ok := doc.env[name]; ok {
			continue
		}
		if _, ok := KnownVariables[name]; ok {
			continue
		}
		r.add(SeverityError, "", "env."+name, "environment variable is referenced but not documented")
	}
	for _, name := range slices.Sorted(maps.Keys(doc.env)) {
		if err := validation.ValidateEnvName(name); err != nil {
			r.add(SeverityError, "", "env."+name, "%v", err)
		}
	}

	return r
}

func validateNetwork(r *Report, n Network, opts ValidateOptions) {
	name := n.Name
	if err := validation.ValidateNetworkName(name); err != nil {
		r.add(SeverityError, name, "", "%v", err)
	}

	switch n.Kind() {
	case KindDirect:
		if n.Host == "" {
			r.add(SeverityError, name, "host", "direct connection requires host")
		} else if err := validation.ValidateHost(n.Host); err != nil {
			r.add(SeverityError, name, "host", "%v", err)
		}
		if n.Port == 0 {
			r.add(SeverityError, name, "port", "direct connection requires port")
		} else if err := validation.ValidatePort(n.Port); err != nil {
			r.add(SeverityError, name, "port", "%v", err)
		}
		if !n.NetworkID.IsSet() {
			r.add(SeverityError, name, "network_id", "direct connection requires network_id")
		}
	case KindProvider:
		validateProvider(r, name, n.Provider, opts)
		if !n.NetworkID.IsSet() {
			r.add(SeverityWarning, name, "network_id", "not set; the remote network cannot be verified")
		}
	default:
		if n.Provider != nil {
			r.add(SeverityError, name, "", "declares both direct connection parameters and a provider")
		} else {
			r.add(SeverityError, name, "", "declares neither direct connection parameters nor a provider")
		}
	}

	nonNegative := []struct {
		field string
		value int64
	}{
		{"confirmations", n.Confirmations},
		{"timeout_blocks", n.TimeoutBlocks},
		{"gas_price", n.GasPrice},
	}
	for _, f := range nonNegative {
		if f.value < 0 {
			r.add(SeverityError, name, f.field, "must be a non-negative integer, got %d", f.value)
		}
	}
}

func validateProvider(r *Report, name string, p *ProviderSpec, opts ValidateOptions) {
	switch {
	case p.Mnemonic.IsZero():
		r.add(SeverityError, name, "provider.mnemonic", "is required")
	case p.Mnemonic.IsLiteral():
		r.add(SeverityError, name, "provider.mnemonic", "must be read from an environment variable, not written in the document")
	}

	switch {
	case p.URL.IsZero():
		r.add(SeverityError, name, "provider.url", "is required")
	case p.URL.Resolved():
		if err := validation.ValidateEndpoint(p.URL.Reveal()); err != nil {
			// The resolved URL may embed an API key, so only the template is named.
			r.add(SeverityError, name, "provider.url", "%s does not resolve to a valid endpoint", p.URL)
		}
	}

	if p.PollingInterval < 0 {
		r.add(SeverityError, name, "provider.polling_interval", "must be a non-negative integer, got %d", p.PollingInterval)
	}
	if err := validation.ValidateDerivationPath(p.DerivationPath); err != nil {
		r.add(SeverityError, name, "provider.derivation_path", "%v", err)
	}
	if p.AddressIndex < 0 {
		r.add(SeverityError, name, "provider.address_index", "must be a non-negative integer, got %d", p.AddressIndex)
	}
	if p.NumAddresses < 1 {
		r.add(SeverityError, name, "provider.num_addresses", "must be at least 1, got %d", p.NumAddresses)
	}
	if p.AddressIndex >= 0 && p.NumAddresses >= 1 && p.AddressIndex+p.NumAddresses > maxChildIndex {
		r.add(SeverityError, name, "provider.address_index", "address_index + num_addresses must not exceed %d, got %d", maxChildIndex, p.AddressIndex+p.NumAddresses)
	}

	if opts.CheckEnvironment {
		missing := append(p.Mnemonic.Missing(), p.URL.Missing()...)
		for _, v := range missing {
			r.add(SeverityWarning, name, "provider", "environment variable %s is not set", v)
		}
	}
}
