package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"greenride/certification-backend/internal/verification"
)

// VerificationClient talks to the verification service
type VerificationClient struct {
	httpClient
}

// NewVerificationClient creates a client bound to the verification service URL
func NewVerificationClient(baseURL string, timeout time.Duration) *VerificationClient {
	return &VerificationClient{newHTTPClient(baseURL, timeout)}
}

// GetRequest fetches a single verification request
func (c *VerificationClient) GetRequest(ctx context.Context, id uuid.UUID) (*verification.VerificationRequest, error) {
	var request verification.VerificationRequest
	err := c.doJSON(ctx, http.MethodGet, "/verification/requests/"+id.String(), nil, &request)
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// ListRequests fetches requests, optionally filtered by status
func (c *VerificationClient) ListRequests(ctx context.Context, status string, page, limit int) (*verification.ListResponse, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	query.Set("page", fmt.Sprintf("%d", page))
	query.Set("limit", fmt.Sprintf("%d", limit))

	var response verification.ListResponse
	err := c.doJSON(ctx, http.MethodGet, "/verification/requests?"+query.Encode(), nil, &response)
	if err != nil {
		return nil, err
	}
	return &response, nil
}

// UpdateStatus pushes a lifecycle transition to the verification service
func (c *VerificationClient) UpdateStatus(ctx context.Context, id uuid.UUID, status verification.Status, notes string) error {
	body := verification.UpdateStatusRequest{Status: status, Notes: notes}
	return c.doJSON(ctx, http.MethodPut, "/verification/requests/"+id.String()+"/status", body, nil)
}
