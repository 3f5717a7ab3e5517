//go:build e2e

package e2e

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pendergraft/netprofile/internal/auth"
	"github.com/pendergraft/netprofile/internal/chains/evm"
	"github.com/pendergraft/netprofile/internal/config"
	"github.com/pendergraft/netprofile/internal/profile"
	"github.com/pendergraft/netprofile/internal/server"
	"github.com/pendergraft/netprofile/pkg/client"
)

const (
	anvilImage    = "ghcr.io/foundry-rs/foundry:latest"
	anvilChainID  = 31337
	anvilMnemonic = "test test test test test test test test test test test junk"
	// first account of anvilMnemonic
	anvilAccount0 = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	anvilKey0     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
)

// TestContext holds shared test infrastructure
type TestContext struct {
	Node        testcontainers.Container
	NodeHost    string
	NodePort    int
	DocumentDir string
	Document    *profile.Document
	TestServer  *httptest.Server
	APIKey      string
}

func (c *TestContext) nodeURL() string {
	return fmt.Sprintf("http://%s:%d", c.NodeHost, c.NodePort)
}

// nodeEnv is the environment the served document is resolved against.
func (c *TestContext) nodeEnv() profile.Environment {
	return profile.MapEnvironment{
		"MNEMONIC_TEST": anvilMnemonic,
		"ANVIL_URL":     c.nodeURL(),
	}
}

// setupAnvilE starts an anvil node that mines a block every second.
func setupAnvilE(ctx context.Context) (testcontainers.Container, string, int, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        anvilImage,
			Entrypoint:   []string{"anvil"},
			Cmd:          []string{"--host", "0.0.0.0", "--block-time", "1", "--chain-id", fmt.Sprint(anvilChainID)},
			ExposedPorts: []string{"8545/tcp"},
			WaitingFor:   wait.ForLog("Listening on").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, "", 0, fmt.Errorf("failed to start anvil container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", 0, fmt.Errorf("failed to get anvil host: %w", err)
	}
	port, err := container.MappedPort(ctx, "8545/tcp")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", 0, fmt.Errorf("failed to get anvil port: %w", err)
	}

	return container, host, port.Int(), nil
}

// writeDocumentE writes a document with a direct, a provider and a
// misconfigured network, all pointing at the node.
func writeDocumentE(dir, host string, port int) (*profile.Document, error) {
	data := fmt.Sprintf(`[networks.development]
host = %q
port = %d
network_id = %d

[networks.anvil]
network_id = %d
confirmations = 2
timeout_blocks = 30

[networks.anvil.provider]
mnemonic = "${MNEMONIC_TEST}"
url = "${ANVIL_URL}"
polling_interval = 250
num_addresses = 3

[networks.drifted]
host = %q
port = %d
network_id = 1

[mocha]

[compilers.solc]
version = "0.8.19"

[env.ANVIL_URL]
description = "RPC endpoint of the local anvil node"
required = true
`, host, port, anvilChainID, anvilChainID, host, port)

	path := filepath.Join(dir, "netprofile.toml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return nil, err
	}
	return profile.Load(path, profile.WithEnvironment(testCtx.nodeEnv()))
}

// startServerE starts the netprofile server in process with API key auth
func startServerE(doc *profile.Document, env profile.Environment) (*httptest.Server, string, error) {
	key, err := auth.GenerateAPIKey()
	if err != nil {
		return nil, "", err
	}

	cfg := &config.Config{
		Server:    config.ServerConfig{Port: 8080, Host: "0.0.0.0"},
		Auth:      config.AuthConfig{Type: "api-key", APIKeyHashes: []string{auth.HashAPIKey(key)}},
		Logging:   config.LoggingConfig{Level: "debug", Format: "text"},
		RateLimit: config.RateLimitConfig{Enabled: false},
		Security:  config.SecurityConfig{FilterEnabled: true, MaxBodySizeMB: 1},
		Proxy:     config.ProxyConfig{TrustProxy: false},
		Probe:     config.ProbeConfig{Timeout: 10 * time.Second},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if os.Getenv("E2E_VERBOSE") != "" {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	srv, err := server.New(cfg, doc, env, evm.NewChain(), logger)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create server: %w", err)
	}
	return httptest.NewServer(srv.Handler()), key, nil
}

// newClient creates a new API client for the test server
func newClient(testServer *httptest.Server, apiKey string) *client.Client {
	return client.New(testServer.URL, apiKey)
}

// sendTransfer sends 1 gwei from the first anvil account to itself and
// returns the transaction hash.
func sendTransfer(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	eth, err := ethclient.DialContext(ctx, testCtx.nodeURL())
	require.NoError(t, err)
	defer eth.Close()

	key, err := crypto.HexToECDSA(anvilKey0)
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(*key.Public().(*ecdsa.PublicKey))
	require.Equal(t, common.HexToAddress(anvilAccount0), from)

	nonce, err := eth.PendingNonceAt(ctx, from)
	require.NoError(t, err)
	gasPrice, err := eth.SuggestGasPrice(ctx)
	require.NoError(t, err)

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &from,
		Value:    big.NewInt(1_000_000_000),
		Gas:      21000,
		GasPrice: gasPrice,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(anvilChainID)), key)
	require.NoError(t, err)
	require.NoError(t, eth.SendTransaction(ctx, signed))

	return signed.Hash().Hex()
}

// assertHTTPError asserts that an error is an APIError with the expected code
func assertHTTPError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	require.Error(t, err, "Expected an error")
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr), "Error should be an APIError")
	require.Equal(t, expectedCode, apiErr.Code, "Error code mismatch")
}
