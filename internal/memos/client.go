// Package memos is a small client for the MemOS memory service. Memories are
// partitioned by user id only; every request carries a fresh conversation id.
package memos

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"github.com/tidwall/sjson"

	"github.com/chris/dayplan/internal/llm"
	"github.com/chris/dayplan/internal/logger"
)

var (
	// ErrStatus indicates the service answered with a non-200 status.
	ErrStatus = errors.New("memory service error status")

	// ErrCircuitOpen indicates recent calls failed and the breaker is rejecting requests.
	ErrCircuitOpen = errors.New("memory service circuit open")
)

// retryStatuses are retried with backoff; any other non-200 status fails at once.
var retryStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

type Config struct {
	BaseURL    string
	APIKey     string
	UserID     string
	VerifySSL  bool
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration // base delay, doubled per retry
}

type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.UserID == "" {
		cfg.UserID = "user_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: !cfg.VerifySSL}

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		// Open after 5 consecutive failures, half-open after 30s.
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "memory_service",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

// UserID returns the memory partition this client writes to.
func (c *Client) UserID() string { return c.cfg.UserID }

// AddConversation stores messages in the user's memory.
func (c *Client) AddConversation(ctx context.Context, messages []llm.Message) (Result, error) {
	body, err := c.body("messages", messages)
	if err != nil {
		return Result{}, err
	}
	res, err := c.post(ctx, "/add/message", body)
	if err != nil {
		return Result{}, fmt.Errorf("adding conversation: %w", err)
	}
	return res, nil
}

// SearchMemory retrieves memories relevant to query.
func (c *Client) SearchMemory(ctx context.Context, query string) (Result, error) {
	body, err := c.body("query", query)
	if err != nil {
		return Result{}, err
	}
	res, err := c.post(ctx, "/search/memory", body)
	if err != nil {
		return Result{}, fmt.Errorf("searching memory: %w", err)
	}
	return res, nil
}

func (c *Client) body(key string, value any) (string, error) {
	body, err := sjson.Set(`{}`, key, value)
	if err == nil {
		body, err = sjson.Set(body, "user_id", c.cfg.UserID)
	}
	if err == nil {
		body, err = sjson.Set(body, "conversation_id", NewConversationID())
	}
	if err != nil {
		return "", fmt.Errorf("building request body: %w", err)
	}
	return body, nil
}

func (c *Client) post(ctx context.Context, path, body string) (Result, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.postWithRetry(ctx, path, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Result{}, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return Result{}, err
	}
	return out.(Result), nil
}

func (c *Client) postWithRetry(ctx context.Context, path, body string) (Result, error) {
	var lastErr error
	attempts := 1 + c.cfg.MaxRetries

	for i := 0; i < attempts; i++ {
		if i > 0 {
			delay := c.cfg.Backoff << (i - 1)
			logger.Debug("retrying memory request", "path", path, "attempt", i+1, "delay", delay, "err", lastErr)
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		res, retry, err := c.do(ctx, path, body)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
	}
	return Result{}, lastErr
}

// do performs a single request. retry reports whether the failure is transient.
func (c *Client) do(ctx context.Context, path, body string) (res Result, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader([]byte(body)))
	if err != nil {
		return Result{}, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Reused connections to some deployments end in EOF.
	req.Header.Set("Connection", "close")
	req.Close = true
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Token "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, true, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Result{}, retryStatuses[resp.StatusCode], fmt.Errorf("%w: %d %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return NewResult(string(respBody)), false, nil
}

func (c *Client) url(path string) string {
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.cfg.BaseURL + path
}

// NewConversationID returns an id of the form session_<10 hex>.
func NewConversationID() string {
	return "session_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}
