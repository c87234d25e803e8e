package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iExecBlockchainComputing/web3telegram-sdk/marketplace"
	"github.com/iExecBlockchainComputing/web3telegram-sdk/telegram"
)

func newTestGateway(t *testing.T) (*Gateway, *httptest.Server) {
	t.Helper()

	gateway, err := NewGateway(marketplace.NewMemoryOrderStore())
	require.NoError(t, err)

	r := chi.NewRouter()
	gateway.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return gateway, srv
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestGatewayServesPublishedOrders(t *testing.T) {
	_, srv := newTestGateway(t)

	resp := postJSON(t, srv.URL+"/datasetorders", marketplace.PublishedDatasetOrder{
		OrderMeta: marketplace.OrderMeta{OrderHash: "0xhash1", Remaining: 3, Status: "open"},
		Order: marketplace.DatasetOrder{
			Dataset:      "0x2222222222222222222222222222222222222222",
			DatasetPrice: 1,
			Tag:          marketplace.TeeScone,
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The SDK's orderbook client reads the order back.
	client := marketplace.NewAPIClient(srv.URL)
	orders, err := client.FetchDatasetOrderbook(context.Background(), marketplace.DatasetOrderbookQuery{
		Dataset: "0x2222222222222222222222222222222222222222",
	})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, uint64(1), orders[0].Order.DatasetPrice)
	assert.Equal(t, uint(3), orders[0].Remaining)
}

func TestGatewayFiltersWorkerpoolOrdersByTag(t *testing.T) {
	_, srv := newTestGateway(t)

	wp := marketplace.Address("0x3333333333333333333333333333333333333333")
	postJSON(t, srv.URL+"/workerpoolorders", marketplace.PublishedWorkerpoolOrder{
		OrderMeta: marketplace.OrderMeta{OrderHash: "0xwp1", Remaining: 1},
		Order:     marketplace.WorkerpoolOrder{Workerpool: wp, Tag: marketplace.TeeScone},
	})
	postJSON(t, srv.URL+"/workerpoolorders", marketplace.PublishedWorkerpoolOrder{
		OrderMeta: marketplace.OrderMeta{OrderHash: "0xwp2", Remaining: 1},
		Order:     marketplace.WorkerpoolOrder{Workerpool: wp},
	})

	client := marketplace.NewAPIClient(srv.URL)
	orders, err := client.FetchWorkerpoolOrderbook(context.Background(), marketplace.WorkerpoolOrderbookQuery{
		Workerpool: wp,
		MinTag:     marketplace.TeeScone,
		MaxTag:     marketplace.TeeScone,
	})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "0xwp1", orders[0].OrderHash)
}

func TestGatewayMockTelegramAPI(t *testing.T) {
	gateway, srv := newTestGateway(t)

	// The worker-side dispatcher delivers through the mock endpoint.
	dispatcher, err := telegram.NewDispatcher(telegram.Config{
		BotToken:   "123456:demo",
		APIBaseURL: srv.URL,
	}, telegram.WithSleep(func(ctx context.Context, d time.Duration) error { return nil }))
	require.NoError(t, err)

	err = dispatcher.SendMessage(context.Background(), "987654321", "Alice", "hello from the demo")
	require.NoError(t, err)

	require.Len(t, gateway.messages, 1)
	assert.Equal(t, "123456:demo", gateway.messages[0].BotToken)
	assert.Equal(t, "987654321", gateway.messages[0].ChatID)
	assert.Contains(t, gateway.messages[0].Text, "hello from the demo")

	resp, err := http.Get(srv.URL + "/messages")
	require.NoError(t, err)
	defer resp.Body.Close()
	var listing struct {
		OK    bool `json:"ok"`
		Count int  `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	assert.True(t, listing.OK)
	assert.Equal(t, 1, listing.Count)
}

func TestGatewayRejectsEmptySendMessage(t *testing.T) {
	_, srv := newTestGateway(t)

	resp := postJSON(t, srv.URL+"/bot123:demo/sendMessage", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGatewaySeedsFromStore(t *testing.T) {
	store := marketplace.NewMemoryOrderStore()
	require.NoError(t, store.SaveAppOrder(context.Background(), marketplace.PublishedAppOrder{
		OrderMeta: marketplace.OrderMeta{OrderHash: "0xapp", Remaining: 1},
		Order: marketplace.AppOrder{
			App: "0x8b0011bdbdfa1b78809fb1df4dc55f4d56704186",
			Tag: marketplace.TeeScone,
		},
	}))

	gateway, err := NewGateway(store)
	require.NoError(t, err)

	orders, err := gateway.mock.FetchAppOrderbook(context.Background(), marketplace.AppOrderbookQuery{
		App: "0x8b0011bdbdfa1b78809fb1df4dc55f4d56704186",
	})
	require.NoError(t, err)
	require.Len(t, orders, 1)
}
