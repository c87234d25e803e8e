package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// recordingSleep collects requested sleep durations without waiting.
type recordingSleep struct {
	mu        sync.Mutex
	durations []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations = append(r.durations, d)
	return ctx.Err()
}

func (r *recordingSleep) total() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum time.Duration
	for _, d := range r.durations {
		sum += d
	}
	return sum
}

func newTestDispatcher(t *testing.T, apiURL string, maxRetries int) (*Dispatcher, *recordingSleep) {
	t.Helper()

	sleeper := &recordingSleep{}
	d, err := NewDispatcher(Config{
		BotToken:          "test-token",
		APIBaseURL:        apiURL,
		MaxRetries:        maxRetries,
		InitialRetryDelay: time.Second,
		QuiescenceDelay:   time.Millisecond,
	}, WithSleep(sleeper.sleep))
	require.NoError(t, err)
	return d, sleeper
}

func TestSendMessageSuccess(t *testing.T) {
	var got map[string]string

	r := chi.NewRouter()
	r.Post("/bot{token}/sendMessage", func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, "test-token", chi.URLParam(req, "token"))
		require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	d, _ := newTestDispatcher(t, srv.URL, 2)
	err := d.SendMessage(context.Background(), "123456", "Alice", "hello there")
	require.NoError(t, err)

	require.Equal(t, "123456", got["chat_id"])
	require.Equal(t, "Message from: Alice\nhello there", got["text"])
	require.Equal(t, "HTML", got["parse_mode"])
}

func TestSendMessageDefaultsSenderName(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		json.NewDecoder(req.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d, _ := newTestDispatcher(t, srv.URL, 2)
	require.NoError(t, d.SendMessage(context.Background(), "@somehandle", "", "ping"))
	require.Equal(t, "Message from: "+DefaultSenderName+"\nping", got["text"])
}

func TestRetryAfterHeaderIsHonored(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d, sleeper := newTestDispatcher(t, srv.URL, 2)
	err := d.SendMessage(context.Background(), "123", "Alice", "hello")
	require.NoError(t, err)

	require.Equal(t, 2, attempts)
	require.GreaterOrEqual(t, sleeper.total(), 2*time.Second)
}

func TestPersistentRateLimitExhaustsBudget(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d, sleeper := newTestDispatcher(t, srv.URL, 2)
	err := d.SendMessage(context.Background(), "123", "Alice", "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limit exceeded after 3 attempts")

	// 1 initial + maxRetries retries.
	require.Equal(t, 3, attempts)

	// Without Retry-After the backoff is exponential: 1s then 2s.
	require.GreaterOrEqual(t, sleeper.total(), 3*time.Second)
}

func TestOtherHTTPErrorsAreTerminal(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": "Bad Request: chat not found"})
	}))
	defer srv.Close()

	d, _ := newTestDispatcher(t, srv.URL, 5)
	err := d.SendMessage(context.Background(), "badchat", "Alice", "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "chat not found")
	require.Equal(t, 1, attempts, "non-429 failures must not be retried")
}

func TestTransportErrorsRetryThenFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {}))
	srv.Close() // connection refused from now on

	d, _ := newTestDispatcher(t, srv.URL, 2)
	err := d.SendMessage(context.Background(), "123", "Alice", "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to reach telegram API after 3 attempts")
}

func TestSendMessageValidatesInput(t *testing.T) {
	d, _ := newTestDispatcher(t, "http://localhost:0", 0)

	require.Error(t, d.SendMessage(context.Background(), "", "Alice", "hello"))
	require.Error(t, d.SendMessage(context.Background(), "123", "Alice", "   "))

	_, err := NewDispatcher(Config{BotToken: "  "})
	require.Error(t, err)
}

func TestTransitionFunction(t *testing.T) {
	cfg := Config{MaxRetries: 1, InitialRetryDelay: time.Second}

	m := machine{state: stateSending}

	// Success is final.
	require.Equal(t, stateSuccess, transition(m, outcome{kind: outcomeSuccess}, cfg).state)

	// First 429 waits, second exhausts the budget.
	m = transition(m, outcome{kind: outcomeRateLimited}, cfg)
	require.Equal(t, stateWaiting, m.state)
	require.Equal(t, time.Second, m.wait)

	m.state = stateSending
	m = transition(m, outcome{kind: outcomeRateLimited}, cfg)
	require.Equal(t, stateTerminal, m.state)
	require.Error(t, m.err)

	// Retry-After overrides the exponential backoff.
	m = machine{state: stateSending}
	m = transition(m, outcome{kind: outcomeRateLimited, retryAfter: 7 * time.Second}, cfg)
	require.Equal(t, 7*time.Second, m.wait)

	// Transport failures run on their own budget.
	m = machine{state: stateSending, rateAttempts: 1}
	m = transition(m, outcome{kind: outcomeTransport, err: errors.New("dial refused")}, cfg)
	require.Equal(t, stateWaiting, m.state)

	// Terminal outcomes carry their error.
	m = machine{state: stateSending}
	m = transition(m, outcome{kind: outcomeTerminal, err: errors.New("bad token")}, cfg)
	require.Equal(t, stateTerminal, m.state)
	require.EqualError(t, m.err, "bad token")
}
