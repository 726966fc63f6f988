// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package discovery performs the network side of model discovery: listing a
// provider's /models endpoint and ping-validating candidates against
// /chat/completions. It operates on one provider at a time and knows nothing
// about the rest of the registry.
package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/relay-tui/internal/diag"
	"github.com/jeranaias/relay-tui/internal/provider"
)

const (
	// DefaultTimeout bounds each discovery HTTP call.
	DefaultTimeout = 10 * time.Second

	// maxResponseSize caps response body reads; a misbehaving provider must
	// not exhaust memory.
	maxResponseSize = 10 * 1024 * 1024

	// pingMaxTokens keeps validation completions tiny and cheap.
	pingMaxTokens = 10

	// defaultPingRate paces validation calls so a large listing does not
	// hammer a provider.
	defaultPingRate = 4 // requests per second
)

// Client performs discovery calls for one provider at a time. Stateless
// apart from the shared HTTP client and ping pacing; the only mutation it
// performs is updating a record's cache on a successful listing.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

// NewClient creates a discovery client with the default timeout and pacing.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:   rate.NewLimiter(rate.Limit(defaultPingRate), 1),
		userAgent: "relay/0.1.0",
	}
}

// WithTimeout overrides the per-call timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithPingRate overrides the validation pacing (requests per second).
func (c *Client) WithPingRate(perSecond float64) *Client {
	if perSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return c
}

// HasUsableKey reports whether the record's API key is non-empty after
// trimming whitespace.
func (c *Client) HasUsableKey(rec *provider.ProviderRecord) bool {
	return rec.HasUsableKey()
}

// =============================================================================
// MODEL LISTING
// =============================================================================

// modelsResponse is the OpenAI-compatible /models payload.
type modelsResponse struct {
	Data []provider.ModelInfo `json:"data"`
}

// ListModels returns the provider's model listing.
//
// A fresh cache is returned without a network call unless forceRefresh is
// set. On a successful fetch the record's cache is updated. On any failure
// a non-empty stale cache is returned with a nil error (stale beats
// nothing); the error is non-nil only when there is no cache to fall back
// on, and even then the caller is expected to degrade, not abort.
func (c *Client) ListModels(ctx context.Context, rec *provider.ProviderRecord, forceRefresh bool) ([]provider.ModelInfo, error) {
	now := time.Now()
	if !forceRefresh && rec.Cache.Fresh(now) {
		return rec.Cache.Models, nil
	}

	models, err := c.fetchModels(ctx, rec)
	if err != nil {
		if len(rec.Cache.Models) > 0 {
			diag.Logf("discovery: %s: refresh failed, serving stale cache: %v", rec.Key(), err)
			return rec.Cache.Models, nil
		}
		return nil, err
	}

	rec.Cache.Put(models, now)
	return models, nil
}

func (c *Client) fetchModels(ctx context.Context, rec *provider.ProviderRecord) ([]provider.ModelInfo, error) {
	url := strings.TrimSuffix(rec.BaseAPIURL, "/") + "/models"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, rec)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model listing returned status %d", resp.StatusCode)
	}

	var parsed modelsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse model listing: %w", err)
	}
	return parsed.Data, nil
}

// =============================================================================
// PING VALIDATION
// =============================================================================

// pingRequest is the fixed validation prompt: a system turn instructing the
// model to answer "pong", and a user turn saying "ping".
type pingRequest struct {
	Model       string        `json:"model"`
	Messages    []pingMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type pingMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type pingResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// PingValidate reports whether the model answers the ping prompt with
// "pong". Any failure - network, timeout, non-2xx, malformed body, wrong
// answer - is false. No retries; the next discovery run is the retry.
func (c *Client) PingValidate(ctx context.Context, rec *provider.ProviderRecord, modelID string) bool {
	if err := c.limiter.Wait(ctx); err != nil {
		return false
	}

	reqBody := pingRequest{
		Model: modelID,
		Messages: []pingMessage{
			{Role: "system", Content: `You are a connectivity check. When the user says "ping", reply with exactly "pong".`},
			{Role: "user", Content: "ping"},
		},
		MaxTokens:   pingMaxTokens,
		Temperature: 0.1,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return false
	}

	url := strings.TrimSuffix(rec.BaseAPIURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return false
	}
	c.setHeaders(req, rec)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		diag.Logf("discovery: %s: ping %s failed: %v", rec.Key(), modelID, err)
		return false
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil || resp.StatusCode != http.StatusOK {
		diag.Logf("discovery: %s: ping %s returned status %d", rec.Key(), modelID, resp.StatusCode)
		return false
	}

	var parsed pingResponse
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Choices) == 0 {
		return false
	}
	return strings.Contains(strings.ToLower(parsed.Choices[0].Message.Content), "pong")
}

// =============================================================================
// HELPERS
// =============================================================================

func (c *Client) setHeaders(req *http.Request, rec *provider.ProviderRecord) {
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(rec.APIKey))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
}

func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == maxResponseSize {
		return nil, fmt.Errorf("response exceeded %d bytes", maxResponseSize)
	}
	return body, nil
}
