// Package gateway is a typed HTTP client for the remote mail API. It owns
// bearer authentication, token refresh, and the wire shapes of every
// endpoint the client consumes; all mailbox semantics live above it.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nhle/webmail/internal/session"
)

// Capabilities describes optional endpoints of the deployed gateway.
type Capabilities struct {
	// MarkUnread reports whether the mark-as-unread endpoint exists.
	MarkUnread bool
}

// Client is a thin HTTP client for the mail API. It handles bearer
// authentication with a one hour token window, a single-flight refresh
// shared across concurrent requests, and one refresh-and-retry per
// original request on 401.
type Client struct {
	baseURL    string
	session    session.Store
	httpClient *http.Client
	caps       Capabilities

	refreshGroup singleflight.Group
}

// NewClient creates a new mail API client. The baseURL should be the API
// root (e.g., https://mail.example.com/api); credentials come from the
// provided session store.
func NewClient(baseURL string, sess session.Store, timeout time.Duration, caps Capabilities) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: sess,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		caps: caps,
	}
}

// Capabilities returns the configured optional-endpoint flags.
func (c *Client) Capabilities() Capabilities {
	return c.caps
}

// get performs an authenticated GET request and unmarshals the JSON response.
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// post performs an authenticated POST request with a JSON body.
func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// delete performs an authenticated DELETE request with an optional JSON body.
func (c *Client) delete(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodDelete, path, body, result)
}

// do is the core request method: it attaches the bearer token, executes
// the request, transparently refreshes the token and retries exactly once
// on 401, and classifies non-2xx responses as StatusError.
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	resp, respBody, err := c.send(ctx, method, path, payload, "application/json", token)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// One refresh-and-retry per original request. A second 401
		// means the refreshed token was rejected too: clear the
		// session and force re-authentication.
		token, err = c.refresh(ctx)
		if err != nil {
			return err
		}

		resp, respBody, err = c.send(ctx, method, path, payload, "application/json", token)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			_ = c.session.Clear()
			return &AuthError{Message: "request rejected after token refresh"}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(method+" "+path, resp.StatusCode, respBody)
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
	}

	return nil
}

// send executes a single HTTP attempt and reads the full response body.
func (c *Client) send(
	ctx context.Context,
	method, path string,
	payload []byte,
	contentType string,
	token string,
) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("executing request %s %s: %w", method, path, err)
	}

	respBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return nil, nil, fmt.Errorf("reading response body: %w", readErr)
	}

	return resp, respBody, nil
}

// token returns a valid access token, refreshing first when the stored
// token is absent or past its expiry window.
func (c *Client) token(ctx context.Context) (string, error) {
	if tok, ok := c.session.AccessToken(); ok {
		return tok, nil
	}
	return c.refresh(ctx)
}

// refresh exchanges the refresh token for a new token pair. Concurrent
// callers share one in-flight refresh instead of each hitting the
// endpoint independently. Any refresh failure clears the session.
func (c *Client) refresh(ctx context.Context) (string, error) {
	v, err, _ := c.refreshGroup.Do("refresh", func() (interface{}, error) {
		refreshToken, ok := c.session.RefreshToken()
		if !ok {
			_ = c.session.Clear()
			return nil, &AuthError{Message: "no refresh token available"}
		}

		resp, respBody, err := c.send(ctx, http.MethodPost, "/refresh", nil, "", refreshToken)
		if err != nil {
			return nil, fmt.Errorf("refreshing token: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			_ = c.session.Clear()
			return nil, &AuthError{
				Message: fmt.Sprintf("token refresh rejected (%d)", resp.StatusCode),
			}
		}

		var parsed loginResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return nil, fmt.Errorf("unmarshaling refresh response: %w", err)
		}
		if parsed.Tokens.AccessToken == "" {
			_ = c.session.Clear()
			return nil, &AuthError{Message: "refresh response carried no access token"}
		}

		if err := c.session.SetTokens(parsed.Tokens.AccessToken, parsed.Tokens.RefreshToken); err != nil {
			return nil, fmt.Errorf("storing refreshed tokens: %w", err)
		}

		return parsed.Tokens.AccessToken, nil
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

// statusError builds a StatusError from a non-2xx response, extracting
// the server-provided message when the body parses as an error payload.
func statusError(op string, code int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var parsed errorBody
	if json.Unmarshal(body, &parsed) == nil {
		if parsed.Message != "" {
			msg = parsed.Message
		} else if parsed.Err != "" {
			msg = parsed.Err
		}
	}
	return &StatusError{Code: code, Op: op, Message: msg}
}
