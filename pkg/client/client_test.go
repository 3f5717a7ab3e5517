package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ListNetworks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/networks", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))

		json.NewEncoder(w).Encode(map[string]any{
			"document": map[string]any{"source": "netprofile.toml", "revision": "abc", "networks": 2},
			"data": []map[string]any{
				{"name": "development", "kind": "direct", "networkId": "5777", "endpoint": "127.0.0.1:7545", "ready": true},
				{"name": "sepolia", "kind": "provider", "endpoint": "${INFURA_API_KEY_SEPOLIA}"},
			},
		})
	}))
	defer server.Close()

	resp, err := New(server.URL+"/", "test-key").ListNetworks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.Document.Revision)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "development", resp.Data[0].Name)
	assert.True(t, resp.Data[0].Ready)
	assert.Equal(t, "${INFURA_API_KEY_SEPOLIA}", resp.Data[1].Endpoint)
}

func TestClient_GetNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/networks/polygon", r.URL.Path)
		assert.Empty(t, r.Header.Get("X-API-Key"))
		json.NewEncoder(w).Encode(map[string]any{
			"name":          "polygon",
			"kind":          "provider",
			"confirmations": 2,
			"timeoutBlocks": 200,
			"gasPrice":      40000000000,
			"provider": map[string]any{
				"mnemonic":       "${MNEMONIC_PROD}",
				"url":            "https://polygon-mainnet.infura.io/v3/${INFURA_API_KEY_POLYGON}",
				"derivationPath": "m/44'/60'/0'/0/",
				"numAddresses":   1,
			},
		})
	}))
	defer server.Close()

	n, err := New(server.URL, "").GetNetwork(context.Background(), "polygon")
	require.NoError(t, err)
	assert.Equal(t, "polygon", n.Name)
	assert.Equal(t, int64(200), n.TimeoutBlocks)
	require.NotNil(t, n.Provider)
	assert.Equal(t, "${MNEMONIC_PROD}", n.Provider.Mnemonic)
}

func TestClient_Validate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/validate", r.URL.Path)
		assert.Equal(t, "yaml", r.URL.Query().Get("format"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "networks: {}\n", string(body))

		json.NewEncoder(w).Encode(map[string]any{
			"revision": "r1",
			"valid":    false,
			"errors":   1,
			"issues":   []map[string]any{{"severity": "error", "field": "mocha", "message": "required key is missing"}},
		})
	}))
	defer server.Close()

	report, err := New(server.URL, "k").Validate(context.Background(), []byte("networks: {}\n"), "yaml")
	require.NoError(t, err)
	assert.False(t, report.Valid)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "mocha", report.Issues[0].Field)
}

func TestClient_Probe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/networks/sepolia/probe", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"network":         "sepolia",
			"remoteNetworkId": 11155111,
			"chainId":         11155111,
			"blockNumber":     42,
			"gasPrice":        "1000000000",
			"matches":         true,
		})
	}))
	defer server.Close()

	res, err := New(server.URL, "k").Probe(context.Background(), "sepolia")
	require.NoError(t, err)
	assert.True(t, res.Matches)
	assert.Equal(t, uint64(42), res.BlockNumber)
}

func TestClient_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/networks/mainnet":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"code": "NOT_FOUND", "message": "Network not found"},
			})
		default:
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream exploded"))
		}
	}))
	defer server.Close()

	c := New(server.URL, "")

	_, err := c.GetNetwork(context.Background(), "mainnet")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
	assert.Equal(t, "NOT_FOUND: Network not found", err.Error())

	_, err = c.Report(context.Background())
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "HTTP_502", apiErr.Code)
	assert.False(t, IsNotFound(err))
}

func TestClient_EnvironmentAndCompilers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/env":
			json.NewEncoder(w).Encode(map[string]any{
				"variables": []map[string]any{{"name": "MNEMONIC_TEST", "documented": true, "set": false}},
			})
		case "/api/v1/compilers":
			json.NewEncoder(w).Encode(map[string]any{"solc": map[string]any{"version": "0.8.19"}})
		case "/api/v1/":
			json.NewEncoder(w).Encode(map[string]any{"source": "netprofile.toml", "networks": 2})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := New(server.URL, "")
	vars, err := c.Environment(context.Background())
	require.NoError(t, err)
	require.Len(t, vars, 1)
	assert.False(t, vars[0].Set)

	comp, err := c.Compilers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.8.19", comp.Solc.Version)

	info, err := c.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, info.Networks)
}
