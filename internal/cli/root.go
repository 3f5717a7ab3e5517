package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const defaultDocument = "netprofile.toml"

var (
	cfgFile     string
	dotenvFiles []string
	server      string
	apiKey      string
	output      string
)

// Execute runs the CLI
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "netprofile",
		Short: "Inspect, validate and probe deployment network profiles",
		Long: `netprofile reads a deployment network profile document (TOML, YAML or JSON),
checks it, and connects to the networks it declares.

Secrets such as mnemonics and RPC keys are referenced as ${VARIABLE} and
resolved from the environment, layered over .env files. They are never
printed.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "profile document (default: $NETPROFILE_CONFIG or "+defaultDocument+")")
	rootCmd.PersistentFlags().StringSliceVar(&dotenvFiles, "dotenv", []string{".env"}, "dotenv files layered under the process environment")
	rootCmd.PersistentFlags().StringVar(&server, "server", "", "server URL for remote commands (default: $NETPROFILE_SERVER)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for remote commands (default: $NETPROFILE_API_KEY)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "text", "output format: text, json or yaml")

	rootCmd.AddCommand(createValidateCmd())
	rootCmd.AddCommand(createNetworksCmd())
	rootCmd.AddCommand(createEnvCmd())
	rootCmd.AddCommand(createCompareCmd())
	rootCmd.AddCommand(createProbeCmd())
	rootCmd.AddCommand(createAwaitCmd())
	rootCmd.AddCommand(createConfigCmd())
	rootCmd.AddCommand(createAuthCmd())
	rootCmd.AddCommand(createRemoteCmd())

	return rootCmd
}

// getDocumentPath returns the document path from flag, env, or the default
func getDocumentPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if env := os.Getenv("NETPROFILE_CONFIG"); env != "" {
		return env
	}
	return defaultDocument
}

// getServer returns the server URL from flag, env, the CLI config file, or the default
func getServer() string {
	if server != "" {
		return strings.TrimRight(server, "/")
	}
	if env := os.Getenv("NETPROFILE_SERVER"); env != "" {
		return strings.TrimRight(env, "/")
	}
	if cfg, err := loadCLIConfig(); err == nil && cfg.Server != "" {
		return strings.TrimRight(cfg.Server, "/")
	}
	return "http://localhost:8080"
}

// getAPIKey returns the API key from flag, env, or the credentials file
func getAPIKey() string {
	if apiKey != "" {
		return apiKey
	}
	if env := os.Getenv("NETPROFILE_API_KEY"); env != "" {
		return env
	}
	return getCredential(getServer())
}
