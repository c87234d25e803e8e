package marketplace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func TestAPIClientFetchesOrderbooks(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/datasetorders", func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, string(testDataset), req.URL.Query().Get("dataset"))
		require.Equal(t, string(testApp), req.URL.Query().Get("app"))
		json.NewEncoder(w).Encode(datasetOrderbookResponse{
			OK:    true,
			Count: 1,
			Orders: []PublishedDatasetOrder{{
				OrderMeta: OrderMeta{OrderHash: "0xabc", Remaining: 1},
				Order:     DatasetOrder{Dataset: testDataset, DatasetPrice: 3},
			}},
		})
	})
	r.Get("/workerpoolorders", func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, "true", req.URL.Query().Get("isRequesterStrict"))
		require.Equal(t, "tee,scone", req.URL.Query().Get("minTag"))
		require.Equal(t, "0", req.URL.Query().Get("category"))
		json.NewEncoder(w).Encode(workerpoolOrderbookResponse{OK: true})
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	client := NewAPIClient(srv.URL)
	ctx := context.Background()

	orders, err := client.FetchDatasetOrderbook(ctx, DatasetOrderbookQuery{Dataset: testDataset, App: testApp})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, uint64(3), orders[0].Order.DatasetPrice)

	_, err = client.FetchWorkerpoolOrderbook(ctx, WorkerpoolOrderbookQuery{
		Workerpool:      testWorkerpool,
		RequesterStrict: true,
		MinTag:          TeeScone,
		MaxTag:          TeeScone,
	})
	require.NoError(t, err)
}

func TestAPIClientClassifiesServerFailuresAsProtocolErrors(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/apporders", func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "database down", http.StatusServiceUnavailable)
	})
	r.Get("/datasetorders", func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "bad query", http.StatusBadRequest)
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	client := NewAPIClient(srv.URL)
	ctx := context.Background()

	_, err := client.FetchAppOrderbook(ctx, AppOrderbookQuery{App: testApp})
	require.Error(t, err)
	require.True(t, IsProtocolError(err))

	// Client-side errors are plain errors, not protocol errors.
	_, err = client.FetchDatasetOrderbook(ctx, DatasetOrderbookQuery{Dataset: testDataset})
	require.Error(t, err)
	require.False(t, IsProtocolError(err))

	// Unreachable endpoint is a protocol error.
	srv.Close()
	_, err = client.FetchAppOrderbook(ctx, AppOrderbookQuery{App: testApp})
	require.Error(t, err)
	require.True(t, IsProtocolError(err))
}
