// Package pin provides the IPFS pin-service upload collaborator.
package pin

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"
)

// Client timeouts.
const (
	clientTimeout         = 60 * time.Second
	dialTimeout           = 10 * time.Second
	tlsHandshakeTimeout   = 10 * time.Second
	responseHeaderTimeout = 30 * time.Second
)

// Client talks to an IPFS pinning API (Infura-style /api/v0/add) with
// basic auth derived from the configured key pair.
type Client struct {
	http       *http.Client
	apiURL     string
	gatewayURL string
	authHeader string
}

// New creates a Client. gatewayURL is the public gateway base used to
// build the returned content URLs.
func New(apiURL, gatewayURL, apiKey, apiSecret string) *Client {
	authHeader := "Basic " + base64.StdEncoding.EncodeToString([]byte(apiKey+":"+apiSecret))

	return &Client{
		http: &http.Client{
			Timeout: clientTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   dialTimeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   tlsHandshakeTimeout,
				ResponseHeaderTimeout: responseHeaderTimeout,
				MaxIdleConns:          10,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		gatewayURL: strings.TrimSuffix(gatewayURL, "/"),
		authHeader: authHeader,
	}
}

// addResponse is the pin API's response for a stored object.
type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Add uploads the content, pins it, and returns its gateway URL.
func (c *Client) Add(ctx context.Context, filename string, data io.Reader) (string, error) {
	var buf strings.Builder
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build pin request: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return "", fmt.Errorf("read upload content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build pin request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/api/v0/add", strings.NewReader(buf.String()))
	if err != nil {
		return "", fmt.Errorf("build pin request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", c.authHeader)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("pin service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("pin service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var added addResponse
	if err := json.NewDecoder(resp.Body).Decode(&added); err != nil {
		return "", fmt.Errorf("decode pin response: %w", err)
	}
	if added.Hash == "" {
		return "", fmt.Errorf("pin service returned no hash")
	}

	return c.gatewayURL + "/" + added.Hash, nil
}
