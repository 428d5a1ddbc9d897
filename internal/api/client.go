// Package api is the REST client for the CORTEX backends: authentication,
// medical term extraction and similarity, SQL generation and query history.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/model"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/util"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/worker"
)

const maxResponseBytes = 8 << 20

// TokenSource supplies the bearer token for authenticated calls
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed TokenSource
type StaticToken string

// Token returns the token
func (s StaticToken) Token() string { return string(s) }

// Client talks to the core API (auth, SQL, history) and the medical API
// (extraction, similarity). Both may share one base URL.
type Client struct {
	baseURL    string
	medicalURL string
	userAgent  string
	httpClient *http.Client
	limiter    *worker.Limiter
	tokens     TokenSource
	log        zerolog.Logger
}

// NewClient builds a client from configuration. tokens may be nil for
// unauthenticated use.
func NewClient(cfg *model.Config, tokens TokenSource, log zerolog.Logger) *Client {
	if tokens == nil {
		tokens = StaticToken("")
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(cfg.API.BaseURL, "/"),
		medicalURL: strings.TrimSuffix(cfg.MedicalBaseURL(), "/"),
		userAgent:  cfg.HTTP.UserAgent,
		httpClient: util.NewHTTPClient(cfg.HTTP),
		limiter:    worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize),
		tokens:     tokens,
		log:        log,
	}

	if rl := cfg.RateLimiting; rl.MedicalRequestsPerSecond > 0 {
		if u, err := url.Parse(c.medicalURL); err == nil && u.Host != "" {
			c.limiter.SetHostRate(u.Host, rl.MedicalRequestsPerSecond, rl.MedicalBurstSize)
		} else {
			log.Warn().Str("url", c.medicalURL).Msg("Medical rate limit ignored, no host in medical URL")
		}
	}
	return c
}

// BaseURL returns the core API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one backend call
type request struct {
	method string
	base   string
	path   string
	query  url.Values
	json   any
	form   url.Values
	token  string // explicit bearer token, overrides the TokenSource
	auth   bool   // attach the TokenSource token
}

// do executes the request and decodes a 2xx JSON body into out (if non-nil)
func (c *Client) do(ctx context.Context, r request, out any) error {
	endpoint := r.base + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case r.json != nil:
		data, err := json.Marshal(r.json)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	case r.form != nil:
		body = strings.NewReader(r.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	if err := c.limiter.Wait(ctx, endpoint); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	token := r.token
	if token == "" && r.auth {
		token = c.tokens.Token()
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &Error{Method: r.method, Path: r.path, Err: err}
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.log.Debug().
		Str("method", r.method).
		Str("path", r.path).
		Int("status", httpResp.StatusCode).
		Msg("Backend call")

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return &Error{
			Method: r.method,
			Path:   r.path,
			Status: httpResp.StatusCode,
			Detail: parseDetail(respBody),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal %s response: %w", r.path, err)
	}
	return nil
}
