// Package comixapi is the HTTP client for the comic generation endpoint.
//
// The endpoint takes a title and three captions and answers with three panel
// images and a composite strip, all base64 encoded:
//
//	POST /generate-images
//	{"title": "...", "captions": ["...", "...", "..."]}
//
//	200 {"images": [{"content_type": "...", "base64": "...", "prompt": "..."}, ...],
//	     "finalImage": {"content_type": "...", "base64": "..."}}
//	4xx/5xx {"error": "..."}  (FastAPI deployments send {"detail": "..."})
//
// A generation call takes tens of seconds; callers bound it with a context
// deadline rather than relying on the HTTP client timeout.
package comixapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fpang/comix-generator/internal/comix"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultEndpoint is the hosted generation endpoint.
	DefaultEndpoint = "https://api.comix-generator.rdancer.org/generate-images"

	// defaultTimeout is a transport backstop well above the UI deadline.
	defaultTimeout = 5 * time.Minute

	// maxResponseSize bounds the decoded response body (four images).
	maxResponseSize = 64 << 20
)

// Client posts generation requests to a single endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   string
	userAgent  string
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithUserAgent sets the User-Agent header sent with each request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a client for the given endpoint URL. An empty endpoint
// selects DefaultEndpoint.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		endpoint:   endpoint,
		userAgent:  "comix-generator",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the URL requests are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Generate sends one generation request and decodes the result.
// Non-2xx responses are returned as *APIError.
func (c *Client) Generate(ctx context.Context, req comix.GenerationRequest) (*comix.GenerationResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	requestID := uuid.NewString()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Accept-Encoding", acceptEncoding)
	httpReq.Header.Set("X-Request-ID", requestID)
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	log.Debug().
		Str("requestId", requestID).
		Str("endpoint", c.endpoint).
		Bool("hasTitle", req.Title != "").
		Bool("hasToken", req.Token != "").
		Msg("Generation request")

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		log.Debug().Str("requestId", requestID).Int("statusCode", 0).Dur("duration", duration).Err(err).Msg("Generation response")
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return nil, fmt.Errorf("request failed: %w", errors.Join(ctxErr, err))
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	log.Debug().
		Str("requestId", requestID).
		Int("statusCode", httpResp.StatusCode).
		Str("contentEncoding", httpResp.Header.Get("Content-Encoding")).
		Dur("duration", duration).
		Msg("Generation response")

	body, err := readBody(httpResp)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		apiErr := newAPIError(httpResp.StatusCode, body)
		log.Error().
			Str("requestId", requestID).
			Int("statusCode", apiErr.StatusCode).
			Str("kind", apiErr.Kind.String()).
			Str("errorMessage", apiErr.Message).
			Msg("Generation endpoint error")
		return nil, apiErr
	}

	var result comix.GenerationResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse response: %w (body: %s)", err, truncate(string(body), 200))
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}

	log.Info().
		Str("requestId", requestID).
		Int("images", len(result.Images)).
		Dur("duration", duration).
		Msg("Comic generated")

	return &result, nil
}

// readBody reads and, when the server compressed it, decodes the body.
func readBody(resp *http.Response) ([]byte, error) {
	r, err := decodingReader(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(io.LimitReader(r, maxResponseSize))
}

// truncate returns the first n characters of s, appending "..." if truncated.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
