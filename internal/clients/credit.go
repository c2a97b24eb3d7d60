package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"greenride/certification-backend/internal/credit"
)

// CreditClient talks to the credit service
type CreditClient struct {
	httpClient
}

// NewCreditClient creates a client bound to the credit service URL
func NewCreditClient(baseURL string, timeout time.Duration) *CreditClient {
	return &CreditClient{newHTTPClient(baseURL, timeout)}
}

type issueResponse struct {
	Credit *credit.CarbonCredit `json:"credit"`
}

// Issue requests credit issuance. The credit service is idempotent per
// verification request id, so retrying after a timeout is safe.
func (c *CreditClient) Issue(ctx context.Context, req credit.IssueRequest) (*credit.CarbonCredit, error) {
	var response issueResponse
	if err := c.doJSON(ctx, http.MethodPost, "/credits/issue", req, &response); err != nil {
		return nil, err
	}
	return response.Credit, nil
}

// GetWallet fetches a wallet by owner
func (c *CreditClient) GetWallet(ctx context.Context, ownerID string) (*credit.Wallet, error) {
	var wallet credit.Wallet
	if err := c.doJSON(ctx, http.MethodGet, "/credits/wallet/"+url.PathEscape(ownerID), nil, &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}

// GetCredit fetches a single credit
func (c *CreditClient) GetCredit(ctx context.Context, id uuid.UUID) (*credit.CarbonCredit, error) {
	var cc credit.CarbonCredit
	if err := c.doJSON(ctx, http.MethodGet, "/credits/"+id.String(), nil, &cc); err != nil {
		return nil, err
	}
	return &cc, nil
}

// ListCredits fetches credits with optional owner/status filters
func (c *CreditClient) ListCredits(ctx context.Context, ownerID, status string, page, limit int) (*credit.ListResponse, error) {
	query := url.Values{}
	if ownerID != "" {
		query.Set("owner_id", ownerID)
	}
	if status != "" {
		query.Set("status", status)
	}
	query.Set("page", fmt.Sprintf("%d", page))
	query.Set("limit", fmt.Sprintf("%d", limit))

	var response credit.ListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/credits?"+query.Encode(), nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}
