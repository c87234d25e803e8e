package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultAPIBaseURL is the production Telegram Bot API endpoint.
const DefaultAPIBaseURL = "https://api.telegram.org"

// DefaultSenderName prefixes messages when the requester did not set one.
const DefaultSenderName = "Web3Telegram Dapp"

// Config parameterizes a Dispatcher.
type Config struct {
	// BotToken authenticates against the Bot API. Required.
	BotToken string

	// APIBaseURL overrides the Bot API endpoint (tests, demo gateway).
	APIBaseURL string

	// MaxRetries bounds retries after the first attempt, separately for
	// rate limiting and transport failures. Defaults to 2 (3 attempts).
	MaxRetries int

	// InitialRetryDelay seeds the exponential backoff. Defaults to 1s.
	InitialRetryDelay time.Duration

	// QuiescenceDelay is waited before every attempt, including the
	// first, bounding the outbound rate regardless of provider
	// throttling. Defaults to 500ms.
	QuiescenceDelay time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.APIBaseURL == "" {
		out.APIBaseURL = DefaultAPIBaseURL
	}
	if out.MaxRetries == 0 {
		out.MaxRetries = 2
	}
	if out.InitialRetryDelay == 0 {
		out.InitialRetryDelay = time.Second
	}
	if out.QuiescenceDelay == 0 {
		out.QuiescenceDelay = 500 * time.Millisecond
	}
	return out
}

// SleepFunc suspends until the duration elapses or the context is
// cancelled. Injected in tests to avoid real timers.
type SleepFunc func(ctx context.Context, d time.Duration) error

func realSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Dispatcher sends messages through the Telegram Bot API.
type Dispatcher struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	sleep      SleepFunc
	log        *slog.Logger
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.httpClient = c }
}

// WithSleep replaces the sleep primitive.
func WithSleep(s SleepFunc) Option {
	return func(d *Dispatcher) { d.sleep = s }
}

// WithLogger attaches a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// NewDispatcher creates a dispatcher. The quiescence delay also feeds a
// rate limiter shared by all sends through this dispatcher, so parallel
// bulk slots cannot exceed one request per delay interval overall.
func NewDispatcher(cfg Config, opts ...Option) (*Dispatcher, error) {
	if strings.TrimSpace(cfg.BotToken) == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	normalized := cfg.withDefaults()
	d := &Dispatcher{
		cfg:        normalized,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(normalized.QuiescenceDelay), 1),
		sleep:      realSleep,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// SendMessage delivers content to the chat, prefixed with the sender
// name. A nil return is the success signal; any error is terminal.
func (d *Dispatcher) SendMessage(ctx context.Context, chatID, senderName, content string) error {
	if strings.TrimSpace(chatID) == "" {
		return fmt.Errorf("chat id is required")
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("message content is required")
	}
	if senderName == "" {
		senderName = DefaultSenderName
	}

	text := fmt.Sprintf("Message from: %s\n%s", senderName, content)

	m := machine{state: stateIdle}
	for {
		switch m.state {
		case stateIdle, stateWaiting:
			if err := d.sleep(ctx, m.wait); err != nil {
				return err
			}
			if err := d.sleep(ctx, d.cfg.QuiescenceDelay); err != nil {
				return err
			}
			if err := d.limiter.Wait(ctx); err != nil {
				return err
			}
			m.state = stateSending

		case stateSending:
			o := d.attempt(ctx, chatID, text)
			m = transition(m, o, d.cfg)
			if m.state == stateWaiting {
				d.log.Debug("telegram send retrying",
					"chat_id", chatID, "wait", m.wait,
					"rate_attempts", m.rateAttempts, "transport_attempts", m.transportAttempts)
			}

		case stateSuccess:
			return nil

		case stateTerminal:
			return m.err
		}
	}
}

func (d *Dispatcher) attempt(ctx context.Context, chatID, text string) outcome {
	payload, _ := json.Marshal(map[string]string{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	})

	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(d.cfg.APIBaseURL, "/"), d.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return outcome{kind: outcomeTerminal, err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return outcome{kind: outcomeTransport, err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return outcome{kind: outcomeSuccess}

	case resp.StatusCode == http.StatusTooManyRequests:
		return outcome{kind: outcomeRateLimited, retryAfter: parseRetryAfter(resp)}

	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		desc := telegramErrorDescription(body)
		return outcome{
			kind: outcomeTerminal,
			err:  fmt.Errorf("telegram API error %d: %s", resp.StatusCode, desc),
		}
	}
}

func parseRetryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func telegramErrorDescription(body []byte) string {
	var apiErr struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Description != "" {
		return apiErr.Description
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return "no description"
}
