package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pendergraft/netprofile/pkg/client"
)

// Credentials stores API keys per server
type Credentials struct {
	Servers map[string]ServerCredential `yaml:"servers"`
}

// ServerCredential stores credentials for a single server
type ServerCredential struct {
	APIKey string `yaml:"api_key"`
	Name   string `yaml:"name,omitempty"`
}

func createAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication commands",
	}

	cmd.AddCommand(createAuthLoginCmd())
	cmd.AddCommand(createAuthLogoutCmd())
	cmd.AddCommand(createAuthStatusCmd())

	return cmd
}

func createAuthLoginCmd() *cobra.Command {
	var serverFlag string
	var apiKeyFlag string
	var nameFlag string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with a netprofile server",
		Long: `Save an API key for a netprofile server.

The key is checked against the server, then stored in ~/.netprofile/credentials
with owner-only permissions.

EXAMPLES:
  # Interactive login (prompts for the API key)
  netprofile auth login

  # Login to a specific server
  netprofile auth login --server https://profiles.example.com

  # Non-interactive login (for CI)
  netprofile auth login --api-key $NETPROFILE_API_KEY
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogin(cmd.Context(), cmd.OutOrStdout(), serverFlag, apiKeyFlag, nameFlag)
		},
	}

	cmd.Flags().StringVar(&serverFlag, "server", "", "server URL (default from config)")
	cmd.Flags().StringVar(&apiKeyFlag, "api-key", "", "API key (prompts if not provided)")
	cmd.Flags().StringVar(&nameFlag, "name", "", "label stored with the key")

	return cmd
}

func createAuthLogoutCmd() *cobra.Command {
	var serverFlag string
	var allFlag bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Clear credentials",
		Long: `Remove saved credentials for a server.

EXAMPLES:
  netprofile auth logout
  netprofile auth logout --server https://profiles.example.com
  netprofile auth logout --all
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogout(cmd.OutOrStdout(), serverFlag, allFlag)
		},
	}

	cmd.Flags().StringVar(&serverFlag, "server", "", "server URL (default from config)")
	cmd.Flags().BoolVar(&allFlag, "all", false, "clear all credentials")

	return cmd
}

func createAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthStatus(cmd.OutOrStdout())
		},
	}
}

func runAuthLogin(ctx context.Context, w io.Writer, serverURL, key, name string) error {
	if serverURL == "" {
		serverURL = getServer()
	}

	if key == "" {
		var err error
		key, err = promptSecret(w, fmt.Sprintf("Enter API key for %s: ", serverURL))
		if err != nil {
			return fmt.Errorf("reading API key: %w", err)
		}
	}
	if key == "" {
		return errors.New("API key cannot be empty")
	}

	fmt.Fprintf(w, "Validating credentials with %s...\n", serverURL)
	valid, err := validateAPIKey(ctx, serverURL, key)
	if err != nil {
		return fmt.Errorf("validating credentials: %w", err)
	}
	if !valid {
		return errors.New("invalid API key")
	}

	if err := saveCredential(serverURL, ServerCredential{APIKey: key, Name: name}); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}

	fmt.Fprintf(w, "Authenticated to %s (key: %s)\n", serverURL, maskAPIKey(key))
	fmt.Fprintf(w, "Credentials saved to %s\n", credentialsFilePath())
	return nil
}

func runAuthLogout(w io.Writer, serverURL string, all bool) error {
	if all {
		if err := os.Remove(credentialsFilePath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing credentials: %w", err)
		}
		fmt.Fprintln(w, "All credentials cleared")
		return nil
	}

	if serverURL == "" {
		serverURL = getServer()
	}

	creds, err := loadCredentials()
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(w, "No credentials found for %s\n", serverURL)
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if _, ok := creds.Servers[serverURL]; !ok {
		fmt.Fprintf(w, "No credentials found for %s\n", serverURL)
		return nil
	}
	delete(creds.Servers, serverURL)

	if err := writeCredentials(creds); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	fmt.Fprintf(w, "Logged out from %s\n", serverURL)
	return nil
}

func runAuthStatus(w io.Writer) error {
	creds, err := loadCredentials()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading credentials: %w", err)
	}
	if creds == nil || len(creds.Servers) == 0 {
		fmt.Fprintln(w, "Not authenticated to any servers")
		fmt.Fprintln(w, "\nRun 'netprofile auth login' to authenticate")
		return nil
	}

	fmt.Fprintln(w, "Authenticated servers:")
	servers := make([]string, 0, len(creds.Servers))
	for s := range creds.Servers {
		servers = append(servers, s)
	}
	slices.Sort(servers)
	for _, s := range servers {
		cred := creds.Servers[s]
		if cred.Name != "" {
			fmt.Fprintf(w, "  %s (%s, key: %s)\n", s, cred.Name, maskAPIKey(cred.APIKey))
		} else {
			fmt.Fprintf(w, "  %s (key: %s)\n", s, maskAPIKey(cred.APIKey))
		}
	}
	return nil
}

// Credential file helpers

// configHome is overridden by tests.
var configHome = func() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func credentialsDir() string {
	return filepath.Join(configHome(), ".netprofile")
}

func credentialsFilePath() string {
	return filepath.Join(credentialsDir(), "credentials")
}

func loadCredentials() (*Credentials, error) {
	data, err := os.ReadFile(credentialsFilePath())
	if err != nil {
		return nil, err
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	if creds.Servers == nil {
		creds.Servers = make(map[string]ServerCredential)
	}
	return &creds, nil
}

func writeCredentials(creds *Credentials) error {
	if err := os.MkdirAll(credentialsDir(), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(creds)
	if err != nil {
		return err
	}
	return renameio.WriteFile(credentialsFilePath(), data, 0o600)
}

func saveCredential(serverURL string, cred ServerCredential) error {
	creds, err := loadCredentials()
	if errors.Is(err, fs.ErrNotExist) {
		creds = &Credentials{Servers: make(map[string]ServerCredential)}
	} else if err != nil {
		return err
	}
	creds.Servers[serverURL] = cred
	return writeCredentials(creds)
}

func getCredential(serverURL string) string {
	creds, err := loadCredentials()
	if err != nil {
		return ""
	}
	return creds.Servers[serverURL].APIKey
}

// validateAPIKey posts an empty document to the validate endpoint, which
// sits behind authentication. Only an UNAUTHORIZED answer rejects the key.
func validateAPIKey(ctx context.Context, serverURL, key string) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	_, err := client.New(serverURL, key).Validate(ctx, nil, "")
	var apiErr *client.APIError
	switch {
	case err == nil:
		return true, nil
	case errors.As(err, &apiErr):
		return apiErr.Code != "UNAUTHORIZED", nil
	default:
		return false, err
	}
}

func maskAPIKey(key string) string {
	if len(key) <= 12 {
		return "****"
	}
	return key[:10] + "..." + key[len(key)-4:]
}
