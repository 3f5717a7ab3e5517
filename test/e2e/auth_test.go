//go:build e2e

package e2e

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAuth_UnauthenticatedRead tests that read endpoints work without authentication
func TestAuth_UnauthenticatedRead(t *testing.T) {
	c := newClient(testCtx.TestServer, "")
	ctx := context.Background()

	t.Run("info", func(t *testing.T) {
		info, err := c.Info(ctx)
		require.NoError(t, err)
		assert.Equal(t, "toml", info.Format)
		assert.Equal(t, testCtx.Document.Revision.String(), info.Revision)
		assert.Equal(t, 3, info.Networks)
	})

	t.Run("list networks", func(t *testing.T) {
		list, err := c.ListNetworks(ctx)
		require.NoError(t, err)
		require.Len(t, list.Data, 3)
		assert.Equal(t, "anvil", list.Data[0].Name)
	})

	t.Run("report", func(t *testing.T) {
		report, err := c.Report(ctx)
		require.NoError(t, err)
		assert.True(t, report.Valid)
	})
}

// TestAuth_UnauthenticatedWriteRejected tests that write operations require authentication
func TestAuth_UnauthenticatedWriteRejected(t *testing.T) {
	ctx := context.Background()

	t.Run("probe without auth", func(t *testing.T) {
		_, err := newClient(testCtx.TestServer, "").Probe(ctx, "development")
		assertHTTPError(t, err, "UNAUTHORIZED")
	})

	t.Run("validate with a wrong key", func(t *testing.T) {
		_, err := newClient(testCtx.TestServer, "np_key_wrong").Validate(ctx, []byte("[mocha]\n"), "toml")
		assertHTTPError(t, err, "UNAUTHORIZED")
	})
}

// TestAuth_BearerToken tests that the key is also accepted as a bearer token
func TestAuth_BearerToken(t *testing.T) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost,
		testCtx.TestServer.URL+"/api/v1/validate", strings.NewReader("[mocha]\n"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testCtx.APIKey)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
