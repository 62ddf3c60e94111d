// Package profile resolves user ids to display names for admin views.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"ms-booking/internal/logger"
)

type Lookup interface {
	DisplayName(ctx context.Context, userID string) (string, bool)
}

type tokenSource interface {
	Token(ctx context.Context) (string, error)
}

// HTTPLookup asks the profile service for GET {BaseURL}/users/{id}.
type HTTPLookup struct {
	BaseURL    string
	Tokens     tokenSource
	HTTPClient *http.Client
	Logger     *logger.Logger
}

type profileResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	FullName    string `json:"full_name"`
}

func (h *HTTPLookup) DisplayName(ctx context.Context, userID string) (string, bool) {
	name, err := h.fetch(ctx, userID)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("PROFILE", fmt.Sprintf("lookup for %s failed: %v", userID, err))
		}
		return "", false
	}
	return name, name != ""
}

func (h *HTTPLookup) fetch(ctx context.Context, userID string) (string, error) {
	endpoint := strings.TrimRight(h.BaseURL, "/") + "/users/" + url.PathEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	if h.Tokens != nil {
		token, err := h.Tokens.Token(ctx)
		if err != nil {
			return "", err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := h.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("profile service returned %s", resp.Status)
	}

	var body profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode profile: %w", err)
	}
	if body.DisplayName != "" {
		return body.DisplayName, nil
	}
	return body.FullName, nil
}

// MemoryLookup is a fixed id to name map, safe for concurrent use.
type MemoryLookup struct {
	mu    sync.RWMutex
	names map[string]string
}

func NewMemoryLookup(names map[string]string) *MemoryLookup {
	m := &MemoryLookup{names: make(map[string]string, len(names))}
	for k, v := range names {
		m.names[k] = v
	}
	return m
}

func (m *MemoryLookup) Remember(userID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[userID] = name
}

func (m *MemoryLookup) DisplayName(_ context.Context, userID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.names[userID]
	return name, ok
}

// Chain tries each lookup in order. Names resolved by the primary lookup are
// remembered in the fallback so a later outage still resolves them.
type Chain struct {
	Primary  Lookup
	Fallback *MemoryLookup
}

func (c *Chain) DisplayName(ctx context.Context, userID string) (string, bool) {
	if userID == "" {
		return "", false
	}
	if c.Primary != nil {
		if name, ok := c.Primary.DisplayName(ctx, userID); ok {
			if c.Fallback != nil {
				c.Fallback.Remember(userID, name)
			}
			return name, true
		}
	}
	if c.Fallback != nil {
		return c.Fallback.DisplayName(ctx, userID)
	}
	return "", false
}
