// Package domain contains the business logic for serving network profiles.
package domain

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/pendergraft/netprofile/internal/chains"
	"github.com/pendergraft/netprofile/internal/chains/evm"
	"github.com/pendergraft/netprofile/internal/observability/metrics"
	"github.com/pendergraft/netprofile/internal/profile"
)

// Common errors returned by the networks service.
var (
	ErrNotFound         = errors.New("network not found")
	ErrInvalidDocument  = errors.New("invalid document")
	ErrNotConfigured    = errors.New("network is missing required secrets")
	ErrProbeFailed      = errors.New("probe failed")
	ErrUnsupportedProbe = errors.New("network cannot be probed")
)

// DefaultProbeTimeout bounds a probe when the service is built without one.
const DefaultProbeTimeout = 10 * time.Second

// Service defines the networks service interface.
type Service interface {
	// Info identifies the loaded document.
	Info(ctx context.Context) DocumentInfo

	// List lists the declared networks in name order.
	List(ctx context.Context) ([]Summary, error)

	// Get returns one network.
	Get(ctx context.Context, name string) (*Detail, error)

	// Compilers returns the compiler selection.
	Compilers(ctx context.Context) (profile.Compilers, error)

	// Environment reports the referenced environment variables.
	Environment(ctx context.Context) (*EnvReport, error)

	// Report validates the loaded document.
	Report(ctx context.Context) (*profile.Report, error)

	// Validate validates an uploaded document. Uploaded documents are never
	// resolved against the server's environment.
	Validate(ctx context.Context, data []byte, format profile.Format) (*profile.Report, error)

	// Probe connects to a network and reports what the node says.
	Probe(ctx context.Context, name string) (*chains.ProbeResult, error)
}

// Options configures the service.
type Options struct {
	ProbeTimeout time.Duration
}

type service struct {
	doc   *profile.Document
	env   profile.Environment
	chain chains.Chain
	opts  Options
}

// NewService creates a new networks service over an immutable document.
// env is the environment the document was resolved against.
func NewService(doc *profile.Document, env profile.Environment, chain chains.Chain, opts Options) Service {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	return &service{doc: doc, env: env, chain: chain, opts: opts}
}

func (s *service) Info(ctx context.Context) DocumentInfo {
	return DocumentInfo{
		Source:   s.doc.Source,
		Format:   string(s.doc.Format),
		Revision: s.doc.Revision.String(),
		Compiler: s.doc.Compiler().Solc.Version,
		Networks: len(s.doc.NetworkNames()),
	}
}

// List lists the declared networks in name order.
func (s *service) List(ctx context.Context) ([]Summary, error) {
	networks := s.doc.Networks()
	out := make([]Summary, 0, len(networks))
	for _, n := range networks {
		out = append(out, s.summary(n))
	}
	return out, nil
}

// Get returns one network.
func (s *service) Get(ctx context.Context, name string) (*Detail, error) {
	n, ok := s.doc.Network(name)
	if !ok {
		metrics.NetworkLookup("not_found")
		return nil, ErrNotFound
	}
	metrics.NetworkLookup("found")

	d := &Detail{
		Summary:       s.summary(n),
		Host:          n.Host,
		Port:          n.Port,
		Confirmations: n.Confirmations,
		TimeoutBlocks: n.TimeoutBlocks,
		SkipDryRun:    n.SkipDryRun,
		GasPrice:      n.GasPrice,
	}
	if p := n.Provider; p != nil {
		d.Provider = &ProviderDetail{
			Mnemonic:        p.Mnemonic.String(),
			URL:             p.URL.String(),
			PollingInterval: p.PollingInterval,
			DerivationPath:  p.DerivationPath,
			AddressIndex:    p.AddressIndex,
			NumAddresses:    p.NumAddresses,
		}
	}

	docs := s.doc.EnvDocs()
	for _, v := range n.Variables() {
		d.Variables = append(d.Variables, s.variable(v, docs))
	}

	report := profile.Validate(s.doc, profile.ValidateOptions{CheckEnvironment: true})
	for _, issue := range report.Issues {
		if issue.Network == name {
			d.Issues = append(d.Issues, IssueDetail{
				Severity: string(issue.Severity),
				Field:    issue.Field,
				Message:  issue.Message,
			})
		}
	}
	return d, nil
}

// Compilers returns the compiler selection.
func (s *service) Compilers(ctx context.Context) (profile.Compilers, error) {
	return s.doc.Compiler(), nil
}

// Environment reports every referenced or documented variable.
func (s *service) Environment(ctx context.Context) (*EnvReport, error) {
	docs := s.doc.EnvDocs()
	users := make(map[string][]string)
	for _, n := range s.doc.Networks() {
		for _, v := range n.Variables() {
			users[v] = append(users[v], n.Name)
		}
	}
	for name := range docs {
		if _, ok := users[name]; !ok {
			users[name] = nil
		}
	}

	report := &EnvReport{Variables: []VariableStatus{}}
	for _, name := range slices.Sorted(maps.Keys(users)) {
		v := s.variable(name, docs)
		v.Networks = users[name]
		report.Variables = append(report.Variables, v)
	}
	return report, nil
}

// Report validates the loaded document.
func (s *service) Report(ctx context.Context) (*profile.Report, error) {
	return profile.Validate(s.doc, profile.ValidateOptions{CheckEnvironment: true}), nil
}

// Validate validates an uploaded document.
func (s *service) Validate(ctx context.Context, data []byte, format profile.Format) (*profile.Report, error) {
	doc, err := profile.Parse(data, format, profile.WithEnvironment(profile.EmptyEnvironment))
	if err != nil {
		metrics.DocumentValidation("unparseable")
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	report := profile.Validate(doc, profile.ValidateOptions{})
	if report.Valid() {
		metrics.DocumentValidation("valid")
	} else {
		metrics.DocumentValidation("invalid")
	}
	return report, nil
}

// Probe connects to a network and reports what the node says. The
// connection is opened without a wallet.
func (s *service) Probe(ctx context.Context, name string) (*chains.ProbeResult, error) {
	n, ok := s.doc.Network(name)
	if !ok {
		return nil, ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.ProbeTimeout)
	defer cancel()

	p, err := s.chain.Connect(ctx, n, chains.ConnectOptions{WithoutWallet: true})
	if err != nil {
		metrics.NetworkProbe(name, "error")
		switch {
		case errors.Is(err, evm.ErrMissingSecret):
			return nil, fmt.Errorf("%w: %v", ErrNotConfigured, err)
		case errors.Is(err, evm.ErrUnsupportedProfile):
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedProbe, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrProbeFailed, err)
		}
	}
	defer p.Close()

	res, err := p.Probe(ctx)
	if err != nil {
		metrics.NetworkProbe(name, "error")
		return nil, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}
	if res.Matches {
		metrics.NetworkProbe(name, "match")
	} else {
		metrics.NetworkProbe(name, "mismatch")
	}
	return res, nil
}

func (s *service) summary(n profile.Network) Summary {
	sum := Summary{
		Name:      n.Name,
		Kind:      string(n.Kind()),
		NetworkID: n.NetworkID.String(),
		Ready:     true,
	}
	switch {
	case n.Provider != nil:
		sum.Endpoint = n.Provider.URL.String()
		sum.Ready = n.Provider.URL.Resolved() && n.Provider.Mnemonic.Resolved()
	case n.Host != "" || n.Port != 0:
		sum.Endpoint = fmt.Sprintf("%s:%d", n.Host, n.Port)
	}
	return sum
}

func (s *service) variable(name string, docs map[string]profile.EnvDoc) VariableStatus {
	v := VariableStatus{Name: name}
	if d, ok := docs[name]; ok {
		v.Documented = true
		v.Description = d.Description
	} else if desc, ok := profile.KnownVariables[name]; ok {
		v.Documented = true
		v.Description = desc
	}
	val, ok := s.env.Lookup(name)
	v.Set = ok && val != ""
	return v
}
