// Package client provides a Go client for the netprofile API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a netprofile API client
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// New creates a new netprofile client
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// DocumentInfo identifies the document a server serves
type DocumentInfo struct {
	Source   string `json:"source"`
	Format   string `json:"format"`
	Revision string `json:"revision"`
	Compiler string `json:"compiler"`
	Networks int    `json:"networks"`
}

// NetworkSummary is one network in a listing
type NetworkSummary struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	NetworkID string `json:"networkId,omitempty"`
	Endpoint  string `json:"endpoint"`
	Ready     bool   `json:"ready"`
}

// Network is the full view of one network. Secrets appear by template only.
type Network struct {
	NetworkSummary
	Host          string     `json:"host,omitempty"`
	Port          int        `json:"port,omitempty"`
	Provider      *Provider  `json:"provider,omitempty"`
	Confirmations int64      `json:"confirmations,omitempty"`
	TimeoutBlocks int64      `json:"timeoutBlocks,omitempty"`
	SkipDryRun    bool       `json:"skipDryRun,omitempty"`
	GasPrice      int64      `json:"gasPrice,omitempty"`
	Variables     []Variable `json:"variables,omitempty"`
	Issues        []Issue    `json:"issues,omitempty"`
}

// Provider describes a wallet-backed provider
type Provider struct {
	Mnemonic        string `json:"mnemonic"`
	URL             string `json:"url"`
	PollingInterval int64  `json:"pollingInterval,omitempty"`
	DerivationPath  string `json:"derivationPath"`
	AddressIndex    int64  `json:"addressIndex"`
	NumAddresses    int64  `json:"numAddresses"`
}

// Variable is an environment variable the document references
type Variable struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Documented  bool     `json:"documented"`
	Set         bool     `json:"set"`
	Networks    []string `json:"networks,omitempty"`
}

// Issue is one validation finding
type Issue struct {
	Severity string `json:"severity"`
	Network  string `json:"network,omitempty"`
	Field    string `json:"field,omitempty"`
	Message  string `json:"message"`
}

// Report is the result of validating a document
type Report struct {
	Source   string  `json:"source,omitempty"`
	Revision string  `json:"revision"`
	Valid    bool    `json:"valid"`
	Errors   int     `json:"errors"`
	Warnings int     `json:"warnings"`
	Issues   []Issue `json:"issues"`
}

// ProbeResult is what a probed network reported
type ProbeResult struct {
	Network          string        `json:"network"`
	Endpoint         string        `json:"endpoint"`
	ExpectedID       string        `json:"expectedNetworkId,omitempty"`
	RemoteNetworkID  uint64        `json:"remoteNetworkId"`
	ChainID          uint64        `json:"chainId"`
	BlockNumber      uint64        `json:"blockNumber"`
	GasPrice         string        `json:"gasPrice"`
	GasPriceFromNode bool          `json:"gasPriceFromNode"`
	Matches          bool          `json:"matches"`
	Latency          time.Duration `json:"latency"`
}

// ListNetworksResponse is the response for listing networks
type ListNetworksResponse struct {
	Document DocumentInfo     `json:"document"`
	Data     []NetworkSummary `json:"data"`
}

// Compilers is the compiler selection of the document
type Compilers struct {
	Solc struct {
		Version string `json:"version"`
	} `json:"solc"`
}

// APIError represents an API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Info returns the served document's identity.
func (c *Client) Info(ctx context.Context) (*DocumentInfo, error) {
	var resp DocumentInfo
	if err := c.get(ctx, "/api/v1/", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListNetworks lists the served networks in name order.
func (c *Client) ListNetworks(ctx context.Context) (*ListNetworksResponse, error) {
	var resp ListNetworksResponse
	if err := c.get(ctx, "/api/v1/networks", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetNetwork returns one network.
func (c *Client) GetNetwork(ctx context.Context, name string) (*Network, error) {
	var resp Network
	if err := c.get(ctx, "/api/v1/networks/"+url.PathEscape(name), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Compilers returns the compiler selection.
func (c *Client) Compilers(ctx context.Context) (*Compilers, error) {
	var resp Compilers
	if err := c.get(ctx, "/api/v1/compilers", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Environment lists the variables the served document references.
func (c *Client) Environment(ctx context.Context) ([]Variable, error) {
	var resp struct {
		Variables []Variable `json:"variables"`
	}
	if err := c.get(ctx, "/api/v1/env", &resp); err != nil {
		return nil, err
	}
	return resp.Variables, nil
}

// Report returns the validation report of the served document.
func (c *Client) Report(ctx context.Context) (*Report, error) {
	var resp Report
	if err := c.get(ctx, "/api/v1/report", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Validate uploads a document for validation. format is toml, yaml or json.
// The server never resolves the document's secrets.
func (c *Client) Validate(ctx context.Context, document []byte, format string) (*Report, error) {
	path := "/api/v1/validate"
	if format != "" {
		path += "?format=" + url.QueryEscape(format)
	}
	var resp Report
	if err := c.postRaw(ctx, path, document, "text/plain", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Probe asks the server to contact a network and report what it finds.
func (c *Client) Probe(ctx context.Context, name string) (*ProbeResult, error) {
	var resp ProbeResult
	if err := c.postRaw(ctx, "/api/v1/networks/"+url.PathEscape(name)+"/probe", nil, "", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, result)
}

func (c *Client) postRaw(ctx context.Context, path string, body []byte, contentType string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.parseError(resp)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
}

func (c *Client) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var errResp struct {
		Error APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Code == "" {
		return &APIError{Status: resp.StatusCode, Code: "HTTP_" + fmt.Sprint(resp.StatusCode), Message: resp.Status}
	}
	errResp.Error.Status = resp.StatusCode
	return &errResp.Error
}
