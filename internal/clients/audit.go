package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"greenride/certification-backend/internal/audit"
)

// AuditClient talks to the audit service
type AuditClient struct {
	httpClient
}

// NewAuditClient creates a client bound to the audit service URL
func NewAuditClient(baseURL string, timeout time.Duration) *AuditClient {
	return &AuditClient{newHTTPClient(baseURL, timeout)}
}

// ListRecords fetches audit records with optional action/decision filters
func (c *AuditClient) ListRecords(ctx context.Context, action, decision string, page, limit int) (*audit.ListResponse, error) {
	query := url.Values{}
	if action != "" {
		query.Set("action", action)
	}
	if decision != "" {
		query.Set("decision", decision)
	}
	query.Set("page", fmt.Sprintf("%d", page))
	query.Set("limit", fmt.Sprintf("%d", limit))

	var response audit.ListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/audit/records?"+query.Encode(), nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}
