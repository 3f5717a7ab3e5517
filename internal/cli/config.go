package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pendergraft/netprofile/internal/profile"
)

// CLIConfig is the per-user CLI configuration (~/.netprofile/config.yaml)
type CLIConfig struct {
	Server string `yaml:"server"`
}

func cliConfigPath() string {
	return filepath.Join(credentialsDir(), "config.yaml")
}

func loadCLIConfig() (*CLIConfig, error) {
	data, err := os.ReadFile(cliConfigPath())
	if err != nil {
		return nil, err
	}
	var cfg CLIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", cliConfigPath(), err)
	}
	return &cfg, nil
}

func createConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	cmd.AddCommand(createConfigInitCmd())
	cmd.AddCommand(createConfigShowCmd())

	return cmd
}

// starter document shapes, encoded with the TOML encoder
type starterDocument struct {
	Networks  map[string]starterNetwork `toml:"networks"`
	Mocha     map[string]any            `toml:"mocha"`
	Compilers starterCompilers          `toml:"compilers"`
	Env       map[string]profile.EnvDoc `toml:"env,omitempty"`
}

type starterNetwork struct {
	Host      string           `toml:"host,omitempty"`
	Port      int              `toml:"port,omitempty"`
	NetworkID any              `toml:"network_id,omitempty"`
	Provider  *starterProvider `toml:"provider,omitempty"`
}

type starterProvider struct {
	Mnemonic string `toml:"mnemonic"`
	URL      string `toml:"url"`
}

type starterCompilers struct {
	Solc struct {
		Version string `toml:"version"`
	} `toml:"solc"`
}

type initOptions struct {
	path      string
	host      string
	port      int
	networkID string
	solc      string
	provider  string
	chainID   uint64
	force     bool
}

func createConfigInitCmd() *cobra.Command {
	opts := initOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a starter profile document",
		Long: `Create a profile document with a local development network.

With --provider a second, wallet-backed network is added whose mnemonic and
endpoint are read from MNEMONIC_<NAME> and RPC_URL_<NAME>. Nothing secret is
written to the file.

EXAMPLES:
  netprofile config init
  netprofile config init --provider sepolia --chain-id 11155111
  netprofile config init --config deploy/networks.toml --force
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.path = getDocumentPath()
			return runConfigInit(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "127.0.0.1", "development node host")
	cmd.Flags().IntVar(&opts.port, "port", 8545, "development node port")
	cmd.Flags().StringVar(&opts.networkID, "network-id", "*", "development network id, * for any")
	cmd.Flags().StringVar(&opts.solc, "solc", "0.8.19", "Solidity compiler version")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "also add a wallet-backed network with this name")
	cmd.Flags().Uint64Var(&opts.chainID, "chain-id", 0, "network id of the --provider network")
	cmd.Flags().BoolVar(&opts.force, "force", false, "overwrite an existing document")

	return cmd
}

func starterVariable(prefix, network string) string {
	name := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(network))
	return prefix + "_" + name
}

func buildStarter(opts initOptions) ([]byte, error) {
	doc := starterDocument{
		Networks: map[string]starterNetwork{
			"development": {Host: opts.host, Port: opts.port, NetworkID: opts.networkID},
		},
		Mocha: map[string]any{},
	}
	doc.Compilers.Solc.Version = opts.solc

	if opts.provider != "" {
		if _, exists := doc.Networks[opts.provider]; exists {
			return nil, fmt.Errorf("--provider %q collides with the direct network of that name", opts.provider)
		}
		mnemonicVar := starterVariable("MNEMONIC", opts.provider)
		urlVar := starterVariable("RPC_URL", opts.provider)
		n := starterNetwork{
			Provider: &starterProvider{
				Mnemonic: "${" + mnemonicVar + "}",
				URL:      "${" + urlVar + "}",
			},
		}
		if opts.chainID > 0 {
			n.NetworkID = opts.chainID
		}
		doc.Networks[opts.provider] = n
		doc.Env = map[string]profile.EnvDoc{
			mnemonicVar: {Description: "seed phrase of the " + opts.provider + " deployer wallet", Required: true},
			urlVar:      {Description: opts.provider + " RPC endpoint URL", Required: true},
		}
	}

	var buf bytes.Buffer
	buf.WriteString("# Deployment network profiles.\n")
	buf.WriteString("# Secrets are referenced as ${NAME} and resolved from the environment or .env.\n\n")
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, err
	}

	// The starter must pass its own checks.
	parsed, err := profile.Parse(buf.Bytes(), profile.FormatTOML, profile.WithEnvironment(profile.EmptyEnvironment))
	if err != nil {
		return nil, err
	}
	if err := profile.Validate(parsed, profile.ValidateOptions{}).Err(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func runConfigInit(w io.Writer, opts initOptions) error {
	if format, err := profile.FormatFromPath(opts.path); err != nil {
		return err
	} else if format != profile.FormatTOML {
		return fmt.Errorf("config init writes TOML; %s is %s", opts.path, format)
	}

	if _, err := os.Stat(opts.path); err == nil && !opts.force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", opts.path)
	}

	data, err := buildStarter(opts)
	if err != nil {
		return fmt.Errorf("building starter document: %w", err)
	}

	if dir := filepath.Dir(opts.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
	}
	if err := renameio.WriteFile(opts.path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", opts.path, err)
	}

	fmt.Fprintf(w, "Created %s\n", opts.path)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Next steps:")
	fmt.Fprintf(w, "  1. Edit %s to add your networks\n", opts.path)
	fmt.Fprintln(w, "  2. Put the referenced variables in .env (never commit it)")
	fmt.Fprintln(w, "  3. Run 'netprofile validate --check-env'")
	return nil
}

func createConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the effective CLI configuration",
		Long: `Display where the CLI reads its settings from and what it resolved.

Order of precedence: command line flags, environment variables
(NETPROFILE_CONFIG, NETPROFILE_SERVER, NETPROFILE_API_KEY), then
~/.netprofile/config.yaml and ~/.netprofile/credentials.

EXAMPLES:
  netprofile config show
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout())
		},
	}
}

type effectiveConfig struct {
	Document    string   `json:"document" yaml:"document"`
	Dotenv      []string `json:"dotenv" yaml:"dotenv"`
	Server      string   `json:"server" yaml:"server"`
	APIKey      string   `json:"apiKey" yaml:"apiKey"`
	ConfigFile  string   `json:"configFile" yaml:"configFile"`
	Credentials string   `json:"credentials" yaml:"credentials"`
}

func runConfigShow(w io.Writer) error {
	eff := effectiveConfig{
		Document:    getDocumentPath(),
		Dotenv:      dotenvFiles,
		Server:      getServer(),
		APIKey:      "(not set)",
		ConfigFile:  cliConfigPath(),
		Credentials: credentialsFilePath(),
	}
	if key := getAPIKey(); key != "" {
		eff.APIKey = maskAPIKey(key)
	}
	if _, err := loadCLIConfig(); errors.Is(err, fs.ErrNotExist) {
		eff.ConfigFile += " (not found)"
	} else if err != nil {
		eff.ConfigFile += " (" + err.Error() + ")"
	}

	return render(w, eff, func(w io.Writer) error {
		fmt.Fprintf(w, "document:     %s\n", eff.Document)
		fmt.Fprintf(w, "dotenv:       %s\n", strings.Join(eff.Dotenv, ", "))
		fmt.Fprintf(w, "server:       %s\n", eff.Server)
		fmt.Fprintf(w, "api key:      %s\n", eff.APIKey)
		fmt.Fprintf(w, "config file:  %s\n", eff.ConfigFile)
		fmt.Fprintf(w, "credentials:  %s\n", eff.Credentials)
		return nil
	})
}
