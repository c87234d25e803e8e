package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iExecBlockchainComputing/web3telegram-sdk/marketplace"
)

// Gateway serves the demo orderbook and the mock Telegram API. Published
// orders are persisted through the OrderStore and filtered by a mock
// marketplace client, so query semantics match the real orderbook.
type Gateway struct {
	store marketplace.OrderStore
	mock  *marketplace.MockClient

	mu       sync.Mutex
	messages []TelegramMessage
}

// TelegramMessage is one message captured by the mock Telegram endpoint.
type TelegramMessage struct {
	BotToken string `json:"botToken"`
	ChatID   string `json:"chat_id"`
	Text     string `json:"text"`
	SentAt   string `json:"sentAt"`
}

// NewGateway creates a gateway, seeding the orderbook from the store.
func NewGateway(store marketplace.OrderStore) (*Gateway, error) {
	mock := marketplace.NewMockClient("")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	datasetOrders, err := store.LoadDatasetOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading dataset orders: %w", err)
	}
	appOrders, err := store.LoadAppOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading app orders: %w", err)
	}
	workerpoolOrders, err := store.LoadWorkerpoolOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading workerpool orders: %w", err)
	}
	mock.DatasetOrders = datasetOrders
	mock.AppOrders = appOrders
	mock.WorkerpoolOrders = workerpoolOrders

	return &Gateway{store: store, mock: mock}, nil
}

// RegisterRoutes registers all HTTP routes.
func (g *Gateway) RegisterRoutes(r chi.Router) {
	r.Get("/datasetorders", g.handleDatasetOrders)
	r.Get("/apporders", g.handleAppOrders)
	r.Get("/workerpoolorders", g.handleWorkerpoolOrders)

	r.Post("/datasetorders", g.handlePublishDatasetOrder)
	r.Post("/apporders", g.handlePublishAppOrder)
	r.Post("/workerpoolorders", g.handlePublishWorkerpoolOrder)

	// Mock Telegram API.
	r.Post("/bot{token}/sendMessage", g.handleSendMessage)
	r.Get("/messages", g.handleMessages)

	r.Get("/health", g.handleHealth)
}

func (g *Gateway) handleDatasetOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orders, err := g.mock.FetchDatasetOrderbook(r.Context(), marketplace.DatasetOrderbookQuery{
		Dataset:   marketplace.Address(q.Get("dataset")),
		App:       marketplace.Address(q.Get("app")),
		Requester: marketplace.Address(q.Get("requester")),
	})
	writeOrderbook(w, len(orders), orders, err)
}

func (g *Gateway) handleAppOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orders, err := g.mock.FetchAppOrderbook(r.Context(), marketplace.AppOrderbookQuery{
		App:        marketplace.Address(q.Get("app")),
		Workerpool: marketplace.Address(q.Get("workerpool")),
		MinTag:     parseTag(q.Get("minTag")),
		MaxTag:     parseTag(q.Get("maxTag")),
	})
	writeOrderbook(w, len(orders), orders, err)
}

func (g *Gateway) handleWorkerpoolOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category, _ := strconv.ParseUint(q.Get("category"), 10, 32)
	orders, err := g.mock.FetchWorkerpoolOrderbook(r.Context(), marketplace.WorkerpoolOrderbookQuery{
		Workerpool:      marketplace.Address(q.Get("workerpool")),
		App:             marketplace.Address(q.Get("app")),
		Dataset:         marketplace.Address(q.Get("dataset")),
		Requester:       marketplace.Address(q.Get("requester")),
		RequesterStrict: q.Get("isRequesterStrict") == "true",
		MinTag:          parseTag(q.Get("minTag")),
		MaxTag:          parseTag(q.Get("maxTag")),
		Category:        uint(category),
	})
	writeOrderbook(w, len(orders), orders, err)
}

func (g *Gateway) handlePublishDatasetOrder(w http.ResponseWriter, r *http.Request) {
	var order marketplace.PublishedDatasetOrder
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := g.store.SaveDatasetOrder(r.Context(), order); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	g.mock.PublishDatasetOrder(order.Order, order.Remaining)
	writeJSON(w, map[string]any{"ok": true, "orderHash": order.OrderHash})
}

func (g *Gateway) handlePublishAppOrder(w http.ResponseWriter, r *http.Request) {
	var order marketplace.PublishedAppOrder
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := g.store.SaveAppOrder(r.Context(), order); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	g.mock.PublishAppOrder(order.Order, order.Remaining)
	writeJSON(w, map[string]any{"ok": true, "orderHash": order.OrderHash})
}

func (g *Gateway) handlePublishWorkerpoolOrder(w http.ResponseWriter, r *http.Request) {
	var order marketplace.PublishedWorkerpoolOrder
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := g.store.SaveWorkerpoolOrder(r.Context(), order); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	g.mock.PublishWorkerpoolOrder(order.Order, order.Remaining)
	writeJSON(w, map[string]any{"ok": true, "orderHash": order.OrderHash})
}

// handleSendMessage mimics the Telegram bot API sendMessage method and
// records the delivery for inspection through /messages.
func (g *Gateway) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ChatID string `json:"chat_id"`
		Text   string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]any{"ok": false, "description": "Bad Request: " + err.Error()})
		return
	}
	if body.ChatID == "" || body.Text == "" {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]any{"ok": false, "description": "Bad Request: chat_id and text are required"})
		return
	}

	g.mu.Lock()
	g.messages = append(g.messages, TelegramMessage{
		BotToken: chi.URLParam(r, "token"),
		ChatID:   body.ChatID,
		Text:     body.Text,
		SentAt:   time.Now().UTC().Format(time.RFC3339),
	})
	messageID := len(g.messages)
	g.mu.Unlock()

	writeJSON(w, map[string]any{"ok": true, "result": map[string]any{"message_id": messageID}})
}

func (g *Gateway) handleMessages(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	messages := append([]TelegramMessage{}, g.messages...)
	g.mu.Unlock()
	writeJSON(w, map[string]any{"ok": true, "count": len(messages), "messages": messages})
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"ok": true})
}

func writeOrderbook(w http.ResponseWriter, count int, orders any, err error) {
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "count": count, "orders": orders})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

func parseTag(raw string) marketplace.Tag {
	if raw == "" {
		return nil
	}
	return marketplace.Tag(strings.Split(raw, ","))
}
