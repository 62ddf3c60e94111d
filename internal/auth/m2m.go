package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ms-booking/internal/logger"
)

type m2mTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// M2MClient obtains client-credentials tokens for calls to sibling services.
type M2MClient struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
	Cache        TokenStore
	Logger       *logger.Logger
}

// Token returns a cached token, requesting a new one when the cache is stale.
func (c *M2MClient) Token(ctx context.Context) (string, error) {
	if c.Cache != nil {
		if cached, err := c.Cache.GetToken(ctx); err == nil && cached != nil {
			return cached.Token, nil
		} else if err != nil && c.Logger != nil {
			c.Logger.Warn("AUTH", fmt.Sprintf("token cache read failed: %v", err))
		}
	}

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", c.ClientID)
	data.Set("client_secret", c.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("failed to get token, status: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var tokenResp m2mTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token response carried no access_token")
	}

	if c.Cache != nil && tokenResp.ExpiresIn > 0 {
		ttl := time.Duration(tokenResp.ExpiresIn) * time.Second
		if err := c.Cache.SetToken(ctx, tokenResp.AccessToken, ttl); err != nil && c.Logger != nil {
			c.Logger.Warn("AUTH", fmt.Sprintf("token cache write failed: %v", err))
		}
	}
	return tokenResp.AccessToken, nil
}

func (c *M2MClient) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
