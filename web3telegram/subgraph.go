package web3telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iExecBlockchainComputing/web3telegram-sdk/marketplace"
)

// telegramChatIDSchema is the schema entry a protected data must carry to
// be usable by the dapp.
const telegramChatIDSchema = "telegram_chatId:string"

// SubgraphClient queries the dataprotector subgraph for protected-data
// schemas. It satisfies ProtectedDataIndex.
type SubgraphClient struct {
	url        string
	httpClient *http.Client
}

// NewSubgraphClient builds a subgraph client against a GraphQL endpoint.
func NewSubgraphClient(url string) *SubgraphClient {
	return &SubgraphClient{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

const protectedDataQuery = `query ($id: String!, $schema: [String!]!) {
  protectedDatas(where: {id: $id, schema_contains: $schema}) {
    id
  }
}`

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type protectedDataResponse struct {
	Data struct {
		ProtectedDatas []struct {
			ID string `json:"id"`
		} `json:"protectedDatas"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// IsValidProtectedData reports whether the dataset is indexed with the
// telegram chat id schema entry.
func (c *SubgraphClient) IsValidProtectedData(ctx context.Context, dataset marketplace.Address) (bool, error) {
	body, err := json.Marshal(graphqlRequest{
		Query: protectedDataQuery,
		Variables: map[string]any{
			"id":     string(dataset),
			"schema": []string{telegramChatIDSchema},
		},
	})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, &marketplace.ProtocolError{Op: "subgraph query", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, &marketplace.ProtocolError{Op: "subgraph query", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, &marketplace.ProtocolError{Op: "subgraph query", Err: err}
	}
	var decoded protectedDataResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return false, &marketplace.ProtocolError{Op: "subgraph query", Err: err}
	}
	if len(decoded.Errors) > 0 {
		return false, &marketplace.ProtocolError{Op: "subgraph query", Err: fmt.Errorf("%s", decoded.Errors[0].Message)}
	}

	return len(decoded.Data.ProtectedDatas) > 0, nil
}

// checkProtectedData rejects datasets whose schema lacks the telegram
// chat id entry.
func (c *Client) checkProtectedData(ctx context.Context, dataset marketplace.Address) error {
	ok, err := c.index.IsValidProtectedData(ctx, dataset)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("This protected data does not contain %q in its schema.", telegramChatIDSchema)
	}
	return nil
}
