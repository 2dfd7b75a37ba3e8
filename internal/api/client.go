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
	"time"

	"github.com/rs/zerolog"

	"github.com/oredesk/oredesk/internal/session"
)

// Client is a scope-bound REST client for the platform API. All console
// traffic flows through one of the two clients, so bearer attachment and
// session expiry are handled exactly once. The scope is fixed at
// construction: the user client can never read the admin slot and a 401 on
// an admin request can never clear the user slot.
type Client struct {
	baseURL    string
	scope      session.Scope
	store      session.Store
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates an API client bound to one session scope
func New(baseURL string, scope session.Scope, store session.Store, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		scope:   scope,
		store:   store,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// Scope returns the session scope this client is bound to
func (c *Client) Scope() session.Scope {
	return c.scope
}

// Do issues one request. A bearer token is attached when the scope's slot
// holds a session; the request proceeds without one otherwise and the
// backend answers 401. On 401 the slot is cleared and ErrSessionExpired is
// returned; other error statuses come back as *Error for the caller to
// present.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target = target + "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	sess, err := c.store.Read(c.scope)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if sess != nil {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", sess.Token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// The backend is the authority on expiry; drop this scope's slot
		// only and let the web layer send the operator back to login.
		if err := c.store.Clear(c.scope); err != nil {
			c.logger.Error().Err(err).Str("scope", string(c.scope)).Msg("Failed to clear expired session")
		}
		c.logger.Info().Str("scope", string(c.scope)).Str("path", path).Msg("Session rejected by backend, slot cleared")
		return nil, ErrSessionExpired
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp.StatusCode, respBody)
	}

	return json.RawMessage(respBody), nil
}

// Get issues a GET request
func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet, path, query, nil)
}

// Post issues a POST request with a JSON body
func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPost, path, nil, body)
}

// Put issues a PUT request with a JSON body
func (c *Client) Put(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPut, path, nil, body)
}

// Delete issues a DELETE request
func (c *Client) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}
