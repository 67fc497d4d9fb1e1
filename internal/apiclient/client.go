package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"rollcall/internal/metrics"
)

// TokenSource yields the bearer token attached to each request.
type TokenSource interface {
	Token() string
}

// Client calls the transport API.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	tokens         TokenSource
	onUnauthorized func()
}

// New creates a client with the given request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// WithSession returns a copy of the client that authenticates with tokens and
// calls onUnauthorized whenever the API answers 401.
func (c *Client) WithSession(tokens TokenSource, onUnauthorized func()) *Client {
	return &Client{
		BaseURL:        c.BaseURL,
		HTTP:           c.HTTP,
		tokens:         tokens,
		onUnauthorized: onUnauthorized,
	}
}

// do sends one request. body is JSON-encoded when non-nil; out is decoded
// from a 2xx response when non-nil.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(KindOf(err))
		}
		metrics.ObserveAPI(op, outcome, time.Since(start))
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Kind: ErrValidation, Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return &Error{Op: op, Kind: ErrNetwork, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &Error{Op: op, Kind: ErrNetwork, Err: fmt.Errorf("transport api request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		apiErr := errorFromResponse(op, resp.StatusCode, bodyBytes)
		log.Debug().Str("op", op).Int("status", resp.StatusCode).Str("detail", apiErr.Detail).Msg("api call failed")
		if apiErr.Kind == ErrUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &Error{Op: op, Kind: ErrServer, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
