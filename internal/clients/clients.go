// Package clients holds the HTTP clients used for cross-service calls. Calls
// are synchronous with a bounded timeout; a timeout means the remote effect is
// unknown, not failed, so callers must only retry operations that are
// idempotent on the receiving side.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"greenride/certification-backend/internal/middleware"
	"greenride/certification-backend/pkg/faults"
)

// DefaultTimeout bounds every cross-service call
const DefaultTimeout = 10 * time.Second

type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient(baseURL string, timeout time.Duration) httpClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// errorResponse is the error envelope every service renders
type errorResponse struct {
	Error faults.Envelope `json:"error"`
}

// doJSON performs a JSON request against a downstream service, propagating the
// correlation id and mapping failures onto the error taxonomy.
func (h httpClient) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if correlationID := middleware.CorrelationFromContext(ctx); correlationID != "" {
		req.Header.Set(middleware.CorrelationHeader, correlationID)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return faults.Wrap(err, faults.KindDependencyUnavailable,
			fmt.Sprintf("call to %s failed", h.baseURL+path))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return faults.Wrap(err, faults.KindDependencyUnavailable, "failed to decode response")
		}
		return nil
	}

	return h.remoteError(resp)
}

// remoteError converts a non-2xx response into a classified error. 5xx means
// the dependency is unavailable; 4xx carries the remote classification through.
func (h httpClient) remoteError(resp *http.Response) error {
	var envelope errorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	_ = json.Unmarshal(raw, &envelope)

	if resp.StatusCode >= 500 {
		return faults.Newf(faults.KindDependencyUnavailable,
			"downstream returned %d: %s", resp.StatusCode, envelope.Error.Message)
	}

	kind := faults.Kind(envelope.Error.Code)
	switch kind {
	case faults.KindInvalidInput, faults.KindNotFound, faults.KindInvalidStatus, faults.KindConflict:
		return faults.New(kind, envelope.Error.Message).WithDetails(envelope.Error.Details...)
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return faults.New(faults.KindNotFound, "resource not found")
	case http.StatusConflict:
		return faults.New(faults.KindConflict, envelope.Error.Message)
	default:
		return faults.Newf(faults.KindInvalidInput, "downstream rejected request: %s", envelope.Error.Message)
	}
}
