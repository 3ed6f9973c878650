package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/doublewordai/arbiter/internal/engine"
)

// Remote forwards whole batches to an upstream inference service over HTTP.
// It retries transport errors and 5xx responses with exponential backoff and
// full jitter; 4xx responses fail immediately. Failures are batch-level: the
// upstream owns per-input semantics and reports per-request errors in its
// response body.
type Remote struct {
	client     *http.Client
	endpoint   string
	maxRetries int
	logger     *slog.Logger
}

// batchRequest is the upstream wire format for a batch call.
type batchRequest struct {
	Requests []engine.ClassificationRequest `json:"requests"`
}

// batchResponse carries one entry per request, in request order.
type batchResponse struct {
	Responses []remoteResult `json:"responses"`
}

type remoteResult struct {
	Response *engine.ClassificationResponse `json:"response,omitempty"`
	Error    string                         `json:"error,omitempty"`
}

// NewRemote creates a remote backend from config.
func NewRemote(cfg Config, logger *slog.Logger) *Remote {
	if logger == nil {
		logger = slog.Default()
	}
	return &Remote{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		endpoint:   cfg.Endpoint,
		maxRetries: cfg.MaxRetries,
		logger:     logger.With("component", "remote-backend"),
	}
}

// ClassifyBatch implements engine.BatchClassifier.
func (r *Remote) ClassifyBatch(ctx context.Context, reqs []engine.ClassificationRequest) ([]engine.Result, error) {
	body, err := json.Marshal(batchRequest{Requests: reqs})
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}

	url := r.endpoint + "/classify_batch"

	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoff(attempt)
			r.logger.Warn("retrying upstream batch call",
				"attempt", attempt,
				"delay", delay,
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("upstream request failed: %w", err)
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			results, err := decodeBatch(resp.Body, len(reqs))
			resp.Body.Close()
			if err != nil {
				return nil, err
			}
			return results, nil

		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			// Client error: not retryable
			drain(resp.Body)
			return nil, fmt.Errorf("upstream rejected batch: status %d", resp.StatusCode)

		default:
			drain(resp.Body)
			lastErr = fmt.Errorf("upstream server error: status %d", resp.StatusCode)
		}
	}

	return nil, lastErr
}

// decodeBatch parses the upstream response and maps its entries to
// per-request results. A count mismatch is a batch-level error.
func decodeBatch(body io.Reader, want int) ([]engine.Result, error) {
	var br batchResponse
	if err := json.NewDecoder(body).Decode(&br); err != nil {
		return nil, fmt.Errorf("decode upstream response: %w", err)
	}
	if len(br.Responses) != want {
		return nil, fmt.Errorf("upstream returned %d results for %d requests", len(br.Responses), want)
	}

	results := make([]engine.Result, want)
	for i, rr := range br.Responses {
		if rr.Error != "" {
			results[i] = engine.Result{Err: errors.New(rr.Error)}
			continue
		}
		if rr.Response == nil {
			results[i] = engine.Result{Err: errors.New("upstream returned neither response nor error")}
			continue
		}
		results[i] = engine.Result{Response: rr.Response}
	}
	return results, nil
}

// drain reads and discards a response body so the connection can be reused.
func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	body.Close()
}

// backoff returns the delay before the given retry attempt: exponential from
// a 100ms base, capped at 10s, with full jitter.
func backoff(attempt int) time.Duration {
	const (
		baseDelay = 100 * time.Millisecond
		maxDelay  = 10 * time.Second
	)

	delay := float64(baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(maxDelay) {
		delay = float64(maxDelay)
	}

	return time.Duration(rand.Float64() * delay)
}
