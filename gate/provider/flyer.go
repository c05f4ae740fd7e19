package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/m3rciful/subgate/core/logger"
	"github.com/m3rciful/subgate/core/netutil"
	"github.com/m3rciful/subgate/gate/metrics"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public Flyer API endpoint.
	DefaultBaseURL = "https://api.flyerservice.io"

	opGetTasks  = "get_tasks"
	opCheckTask = "check_task"

	maxBodyBytes = 1 << 20
)

// FlyerOptions configures NewFlyerClient. Zero values select defaults.
type FlyerOptions struct {
	Key     string
	BaseURL string
	Timeout time.Duration
	// RequestsPerSecond paces outbound calls; <= 0 disables pacing.
	RequestsPerSecond float64
	Burst             int

	HTTPClient *http.Client
	Metrics    *metrics.Recorder
}

// FlyerClient is a Provider backed by the Flyer HTTP API.
type FlyerClient struct {
	key     string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	metrics *metrics.Recorder
}

// NewFlyerClient builds a client; the key is required.
func NewFlyerClient(opts FlyerOptions) (*FlyerClient, error) {
	key := strings.TrimSpace(opts.Key)
	if key == "" {
		return nil, fmt.Errorf("provider: flyer key is required")
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = netutil.BuildHTTPClient(netutil.ClientOptions{
			Timeout:      opts.Timeout,
			MaxRetries:   1,
			RetryBackoff: 300 * time.Millisecond,
		})
	}
	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return &FlyerClient{
		key:     key,
		baseURL: base,
		http:    client,
		limiter: limiter,
		metrics: opts.Metrics,
	}, nil
}

type getTasksRequest struct {
	Key          string `json:"key"`
	UserID       int64  `json:"user_id"`
	LanguageCode string `json:"language_code,omitempty"`
	Limit        int    `json:"limit"`
}

type checkTaskRequest struct {
	Key       string `json:"key"`
	UserID    int64  `json:"user_id"`
	Signature string `json:"signature"`
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// GetTasks implements Provider. Items that do not decode or carry no
// signature are dropped; the rest are returned in provider order.
func (c *FlyerClient) GetTasks(ctx context.Context, userID int64, locale string, limit int) ([]Task, error) {
	raw, err := c.call(ctx, opGetTasks, getTasksRequest{
		Key:          c.key,
		UserID:       userID,
		LanguageCode: locale,
		Limit:        limit,
	})
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: get_tasks result: %v", ErrMalformedResponse, err)
	}
	tasks := make([]Task, 0, len(items))
	skipped := 0
	for _, item := range items {
		var t Task
		if err := json.Unmarshal(item, &t); err != nil || strings.TrimSpace(t.Signature) == "" {
			skipped++
			continue
		}
		t.Signature = strings.TrimSpace(t.Signature)
		tasks = append(tasks, t)
	}
	if skipped > 0 {
		logger.Debug(ctx, logger.CompProvider, "get_tasks.skipped",
			slog.Int("skipped", skipped),
			slog.Int("fetched", len(tasks)),
		)
	}
	return tasks, nil
}

// CheckTask implements Provider.
func (c *FlyerClient) CheckTask(ctx context.Context, userID int64, signature string) (bool, error) {
	raw, err := c.call(ctx, opCheckTask, checkTaskRequest{
		Key:       c.key,
		UserID:    userID,
		Signature: signature,
	})
	if err != nil {
		return false, err
	}
	return decodeCheckStatus(raw)
}

// decodeCheckStatus accepts either a status string or a boolean.
func decodeCheckStatus(raw json.RawMessage) (bool, error) {
	var status string
	if err := json.Unmarshal(raw, &status); err == nil {
		switch strings.ToLower(strings.TrimSpace(status)) {
		case "complete", "completed", "waiting":
			return true, nil
		}
		return false, nil
	}
	var done bool
	if err := json.Unmarshal(raw, &done); err == nil {
		return done, nil
	}
	return false, fmt.Errorf("%w: check_task result %s", ErrMalformedResponse, logger.SanitizeLimit(string(raw), 64))
}

func (c *FlyerClient) call(ctx context.Context, op string, body any) (json.RawMessage, error) {
	start := time.Now()
	raw, err := c.do(ctx, op, body)
	took := time.Since(start)
	reason := Reason(err)
	c.metrics.ProviderCall(ctx, op, reason, took)
	if err != nil {
		logger.Debug(ctx, logger.CompProvider, op,
			slog.String("status", "fail"),
			slog.String("reason", reason),
			slog.Duration("took", logger.RoundMS(took)),
			logger.Err(err),
		)
	}
	return raw, err
}

func (c *FlyerClient) do(ctx context.Context, op string, body any) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("provider %s: pacing: %w", op, err)
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("provider %s: encode: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+op, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("provider %s: read body: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Op: op, Status: resp.StatusCode, Message: logger.SanitizeLimit(string(data), 200)}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, op, err)
	}
	if env.Error != "" {
		return nil, &APIError{Op: op, Message: logger.SanitizeLimit(env.Error, 200)}
	}
	if len(env.Result) == 0 || string(env.Result) == "null" {
		return nil, fmt.Errorf("%w: %s: missing result", ErrMalformedResponse, op)
	}
	return env.Result, nil
}
