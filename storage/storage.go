// Package storage provides the content-addressed storage client used to
// publish and fetch encrypted message blobs through an IPFS node and
// gateway.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// DefaultGateway is the public gateway content is fetched through when no
// override is configured.
const DefaultGateway = "https://ipfs-gateway.v8-bellecour.iex.ec"

// Client uploads blobs to an IPFS node and fetches them back through a
// gateway.
type Client struct {
	uploadURL  string
	gatewayURL string
	httpClient *http.Client
}

// NewClient creates a storage client. uploadURL is the IPFS node API
// endpoint, gatewayURL the public read gateway.
func NewClient(uploadURL, gatewayURL string) *Client {
	if gatewayURL == "" {
		gatewayURL = DefaultGateway
	}
	return &Client{
		uploadURL:  strings.TrimRight(uploadURL, "/"),
		gatewayURL: strings.TrimRight(gatewayURL, "/"),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// ContentMultiaddr returns the multiaddr locator for a CID.
func ContentMultiaddr(cid string) string {
	return "/ipfs/" + cid
}

// Add uploads a blob and returns its CID.
func (c *Client) Add(ctx context.Context, data []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "content")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL+"/api/v0/add", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("upload failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var addResp struct {
		Hash string `json:"Hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&addResp); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	if addResp.Hash == "" {
		return "", fmt.Errorf("upload response carries no CID")
	}
	return addResp.Hash, nil
}

// Get fetches a blob by its multiaddr through the gateway. Legacy /p2p/
// locators are rewritten to /ipfs/.
func (c *Client) Get(ctx context.Context, multiaddr string) ([]byte, error) {
	path := strings.Replace(multiaddr, "/p2p/", "/ipfs/", 1)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.gatewayURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to load content from %s%s: status %d", c.gatewayURL, path, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
