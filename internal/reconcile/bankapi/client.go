// Package bankapi lists recent credits from the bank-aggregation service.
package bankapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ms-booking/internal/reconcile"
)

type Client struct {
	BaseURL    string
	APIKey     string
	PageSize   int
	HTTPClient *http.Client
}

func NewClient(baseURL, apiKey string, pageSize int) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		PageSize:   pageSize,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type listResponse struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
	Data    struct {
		Records []reconcile.TransactionRecord `json:"records"`
	} `json:"data"`
}

// FetchTransactions calls GET /v2/transactions?pageSize=N.
func (c *Client) FetchTransactions(ctx context.Context) ([]reconcile.TransactionRecord, error) {
	q := url.Values{}
	if c.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(c.PageSize))
	}
	endpoint := c.BaseURL + "/v2/transactions"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Apikey "+c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bank api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("bank api returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out listResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode bank api response: %w", err)
	}
	if out.Error != 0 {
		return nil, fmt.Errorf("bank api error %d: %s", out.Error, out.Message)
	}
	return out.Data.Records, nil
}
