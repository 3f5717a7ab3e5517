//go:build e2e

package e2e

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/netprofile/pkg/client"
)

// TestNetworks_Get tests the served view of each network
func TestNetworks_Get(t *testing.T) {
	c := newClient(testCtx.TestServer, "")
	ctx := context.Background()

	t.Run("provider network shows templates only", func(t *testing.T) {
		n, err := c.GetNetwork(ctx, "anvil")
		require.NoError(t, err)
		assert.Equal(t, "provider", n.Kind)
		assert.True(t, n.Ready)
		require.NotNil(t, n.Provider)
		assert.Equal(t, "${MNEMONIC_TEST}", n.Provider.Mnemonic)
		assert.Equal(t, "${ANVIL_URL}", n.Provider.URL)
		assert.Equal(t, int64(3), n.Provider.NumAddresses)
	})

	t.Run("direct network", func(t *testing.T) {
		n, err := c.GetNetwork(ctx, "development")
		require.NoError(t, err)
		assert.Equal(t, "direct", n.Kind)
		assert.Equal(t, testCtx.NodePort, n.Port)
	})

	t.Run("unknown network", func(t *testing.T) {
		_, err := c.GetNetwork(ctx, "mainnet")
		assert.True(t, client.IsNotFound(err))
	})
}

// TestNetworks_Environment tests that variable state is reported without values
func TestNetworks_Environment(t *testing.T) {
	vars, err := newClient(testCtx.TestServer, "").Environment(context.Background())
	require.NoError(t, err)

	byName := map[string]client.Variable{}
	for _, v := range vars {
		byName[v.Name] = v
	}
	require.Contains(t, byName, "ANVIL_URL")
	assert.True(t, byName["ANVIL_URL"].Set)
	assert.True(t, byName["ANVIL_URL"].Documented)
	assert.Equal(t, []string{"anvil"}, byName["ANVIL_URL"].Networks)
}

// TestNetworks_Probe tests probing the node through the server
func TestNetworks_Probe(t *testing.T) {
	c := newClient(testCtx.TestServer, testCtx.APIKey)
	ctx := context.Background()

	for _, name := range []string{"development", "anvil"} {
		t.Run(name+" matches the node", func(t *testing.T) {
			res, err := c.Probe(ctx, name)
			require.NoError(t, err)
			assert.True(t, res.Matches)
			assert.Equal(t, uint64(anvilChainID), res.RemoteNetworkID)
			assert.Equal(t, uint64(anvilChainID), res.ChainID)
			assert.NotEmpty(t, res.GasPrice)
			assert.NotContains(t, res.Endpoint, "junk")
		})
	}

	t.Run("drifted network is reported, not hidden", func(t *testing.T) {
		res, err := c.Probe(ctx, "drifted")
		require.NoError(t, err)
		assert.False(t, res.Matches)
		assert.Equal(t, "1", res.ExpectedID)
		assert.Equal(t, uint64(anvilChainID), res.RemoteNetworkID)
	})
}

// TestNetworks_Validate tests uploading the shipped documents for validation
func TestNetworks_Validate(t *testing.T) {
	c := newClient(testCtx.TestServer, testCtx.APIKey)

	for _, path := range []string{"../../configs/netprofile.toml", "../../configs/netprofile.polygon.toml"} {
		t.Run(path, func(t *testing.T) {
			data, err := os.ReadFile(path)
			require.NoError(t, err)

			report, err := c.Validate(context.Background(), data, "toml")
			require.NoError(t, err)
			assert.True(t, report.Valid, "issues: %v", report.Issues)
		})
	}

	t.Run("invalid upload", func(t *testing.T) {
		report, err := c.Validate(context.Background(), []byte("networks: {}\n"), "yaml")
		require.NoError(t, err)
		assert.False(t, report.Valid)
		assert.Equal(t, 2, report.Errors)
	})
}
