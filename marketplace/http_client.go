package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// APIClient implements Orderbook against the marketplace REST API
// (the iExec market API, or the demo gateway from cmd/demo-market).
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates an orderbook client for the given market API base
// URL.
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type datasetOrderbookResponse struct {
	OK     bool                    `json:"ok"`
	Count  int                     `json:"count"`
	Orders []PublishedDatasetOrder `json:"orders"`
}

type appOrderbookResponse struct {
	OK     bool                `json:"ok"`
	Count  int                 `json:"count"`
	Orders []PublishedAppOrder `json:"orders"`
}

type workerpoolOrderbookResponse struct {
	OK     bool                       `json:"ok"`
	Count  int                        `json:"count"`
	Orders []PublishedWorkerpoolOrder `json:"orders"`
}

// FetchDatasetOrderbook implements Orderbook.
func (c *APIClient) FetchDatasetOrderbook(ctx context.Context, q DatasetOrderbookQuery) ([]PublishedDatasetOrder, error) {
	params := url.Values{}
	setParam(params, "dataset", string(q.Dataset))
	setParam(params, "app", string(q.App))
	setParam(params, "requester", string(q.Requester))

	var resp datasetOrderbookResponse
	if err := c.get(ctx, "/datasetorders", params, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// FetchAppOrderbook implements Orderbook.
func (c *APIClient) FetchAppOrderbook(ctx context.Context, q AppOrderbookQuery) ([]PublishedAppOrder, error) {
	params := url.Values{}
	setParam(params, "app", string(q.App))
	setParam(params, "workerpool", string(q.Workerpool))
	setParam(params, "minTag", strings.Join(q.MinTag, ","))
	setParam(params, "maxTag", strings.Join(q.MaxTag, ","))

	var resp appOrderbookResponse
	if err := c.get(ctx, "/apporders", params, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// FetchWorkerpoolOrderbook implements Orderbook.
func (c *APIClient) FetchWorkerpoolOrderbook(ctx context.Context, q WorkerpoolOrderbookQuery) ([]PublishedWorkerpoolOrder, error) {
	params := url.Values{}
	setParam(params, "workerpool", string(q.Workerpool))
	setParam(params, "app", string(q.App))
	setParam(params, "dataset", string(q.Dataset))
	setParam(params, "requester", string(q.Requester))
	if q.RequesterStrict {
		params.Set("isRequesterStrict", "true")
	}
	setParam(params, "minTag", strings.Join(q.MinTag, ","))
	setParam(params, "maxTag", strings.Join(q.MaxTag, ","))
	params.Set("category", strconv.FormatUint(uint64(q.Category), 10))

	var resp workerpoolOrderbookResponse
	if err := c.get(ctx, "/workerpoolorders", params, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

func (c *APIClient) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ProtocolError{Op: "marketplace API unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &ProtocolError{
			Op:  "marketplace API error",
			Err: fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

func setParam(params url.Values, key, value string) {
	if value != "" {
		params.Set(key, value)
	}
}
