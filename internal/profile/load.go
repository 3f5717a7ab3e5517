package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// revisionNamespace scopes document revision UUIDs.
var revisionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/pendergraft/netprofile/revision"))

// rawDocument is the on-disk shape shared by all formats.
type rawDocument struct {
	Networks  map[string]rawNetwork `toml:"networks" yaml:"networks" json:"networks"`
	Mocha     map[string]any        `toml:"mocha" yaml:"mocha" json:"mocha"`
	Compilers rawCompilers          `toml:"compilers" yaml:"compilers" json:"compilers"`
	Env       map[string]EnvDoc     `toml:"env" yaml:"env" json:"env"`
}

type rawCompilers struct {
	Solc struct {
		Version string `toml:"version" yaml:"version" json:"version"`
	} `toml:"solc" yaml:"solc" json:"solc"`
}

type rawNetwork struct {
	Host          string       `toml:"host" yaml:"host" json:"host"`
	Port          rawPort      `toml:"port" yaml:"port" json:"port"`
	NetworkID     NetworkID    `toml:"network_id" yaml:"network_id" json:"network_id"`
	Provider      *rawProvider `toml:"provider" yaml:"provider" json:"provider"`
	Confirmations int64        `toml:"confirmations" yaml:"confirmations" json:"confirmations"`
	TimeoutBlocks int64        `toml:"timeout_blocks" yaml:"timeout_blocks" json:"timeout_blocks"`
	SkipDryRun    bool         `toml:"skip_dry_run" yaml:"skip_dry_run" json:"skip_dry_run"`
	GasPrice      int64        `toml:"gas_price" yaml:"gas_price" json:"gas_price"`
}

type rawProvider struct {
	Mnemonic        string `toml:"mnemonic" yaml:"mnemonic" json:"mnemonic"`
	URL             string `toml:"url" yaml:"url" json:"url"`
	PollingInterval int64  `toml:"polling_interval" yaml:"polling_interval" json:"polling_interval"`
	DerivationPath  string `toml:"derivation_path" yaml:"derivation_path" json:"derivation_path"`
	AddressIndex    int64  `toml:"address_index" yaml:"address_index" json:"address_index"`
	NumAddresses    *int64 `toml:"num_addresses" yaml:"num_addresses" json:"num_addresses"`
}

// Option configures Load and Parse.
type Option func(*loadOptions)

type loadOptions struct {
	env Environment
}

// WithEnvironment sets the environment secrets are resolved against. The
// default is the process environment.
func WithEnvironment(env Environment) Option {
	return func(o *loadOptions) {
		o.env = env
	}
}

// Load reads and decodes the document at path. The format is picked from
// the file extension.
func Load(path string, opts ...Option) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(data, format, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// Parse decodes a document from data.
func Parse(data []byte, format Format, opts ...Option) (*Document, error) {
	o := loadOptions{env: ProcessEnvironment{}}
	for _, opt := range opts {
		opt(&o)
	}

	switch format {
	case FormatTOML, FormatYAML, FormatJSON:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	keys, err := topLevelKeys(data, format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	var raw rawDocument
	switch format {
	case FormatTOML:
		_, err = toml.Decode(string(data), &raw)
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	case FormatJSON:
		if dup, ok, derr := duplicateJSONNetwork(data); derr != nil {
			err = derr
		} else if ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateNetwork, dup)
		}
		if err == nil {
			err = json.Unmarshal(data, &raw)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	doc := &Document{
		Format:     format,
		Revision:   uuid.NewSHA1(revisionNamespace, data),
		networks:   make(map[string]Network, len(raw.Networks)),
		testRunner: raw.Mocha,
		compilers:  Compilers{Solc: SolcCompiler{Version: raw.Compilers.Solc.Version}},
		env:        raw.Env,
		keys:       keys,
	}
	for name, rn := range raw.Networks {
		doc.networks[name] = rn.build(name, o.env)
	}
	return doc, nil
}

func (rn rawNetwork) build(name string, env Environment) Network {
	n := Network{
		Name:          name,
		Host:          rn.Host,
		Port:          int(rn.Port),
		NetworkID:     rn.NetworkID,
		Confirmations: rn.Confirmations,
		TimeoutBlocks: rn.TimeoutBlocks,
		SkipDryRun:    rn.SkipDryRun,
		GasPrice:      rn.GasPrice,
	}
	if rp := rn.Provider; rp != nil {
		p := &ProviderSpec{
			Mnemonic:        NewSecret(rp.Mnemonic, env),
			URL:             NewSecret(rp.URL, env),
			PollingInterval: rp.PollingInterval,
			DerivationPath:  rp.DerivationPath,
			AddressIndex:    rp.AddressIndex,
			NumAddresses:    DefaultNumAddresses,
		}
		if p.DerivationPath == "" {
			p.DerivationPath = DefaultDerivationPath
		}
		if rp.NumAddresses != nil {
			p.NumAddresses = *rp.NumAddresses
		}
		n.Provider = p
	}
	return n
}

// topLevelKeys records which top-level keys a document declares, so that
// an empty table can be told apart from a missing one.
func topLevelKeys(data []byte, format Format) (map[string]bool, error) {
	var top map[string]any
	var err error
	switch format {
	case FormatTOML:
		err = toml.Unmarshal(data, &top)
	case FormatYAML:
		err = yaml.Unmarshal(data, &top)
	case FormatJSON:
		err = json.Unmarshal(data, &top)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	keys := make(map[string]bool, len(top))
	for k, v := range top {
		keys[k] = true
		if k == "compilers" {
			if m, ok := v.(map[string]any); ok {
				if solc, ok := m["solc"].(map[string]any); ok {
					if _, ok := solc["version"]; ok {
						keys["compilers.solc.version"] = true
					}
				}
			}
		}
	}
	return keys, nil
}

// duplicateJSONNetwork reports the first network name declared twice.
// encoding/json keeps the last duplicate silently.
func duplicateJSONNetwork(data []byte) (string, bool, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return "", false, err
	}
	raw, ok := top["networks"]
	if !ok {
		return "", false, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return "", false, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return "", false, nil
	}
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return "", false, err
		}
		name, _ := tok.(string)
		if seen[name] {
			return name, true, nil
		}
		seen[name] = true
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return "", false, err
		}
	}
	return "", false, nil
}
