// Package roblox wraps the remote account-service HTTP API: session
// authentication via the .ROBLOSECURITY cookie, anti-forgery token
// handling, and the handful of endpoints the account manager consumes.
package roblox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rbxmgr/rbxmgr/internal/common"
	"github.com/rbxmgr/rbxmgr/internal/logging"
	"github.com/rbxmgr/rbxmgr/internal/models"
)

const (
	csrfHeader     = "X-CSRF-TOKEN"
	securityCookie = ".ROBLOSECURITY"
	defaultTimeout = 30 * time.Second
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// Endpoints holds the base URLs of the service families the client talks
// to. Tests point all of them at a local fake server.
type Endpoints struct {
	Auth       string
	Users      string
	Thumbnails string
	Presence   string
}

// DefaultEndpoints returns the production service hosts.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Auth:       "https://auth.roblox.com",
		Users:      "https://users.roblox.com",
		Thumbnails: "https://thumbnails.roblox.com",
		Presence:   "https://presence.roblox.com",
	}
}

// Client is a stateless request/response wrapper around the remote API.
// Account state it touches (the anti-forgery token) is updated in place on
// the passed account.
type Client struct {
	hc  *http.Client
	eps Endpoints
	log logging.Logger
}

// New builds a client. A zero timeout falls back to 30s so a hung request
// can never stall a bulk sweep indefinitely.
func New(eps Endpoints, timeout time.Duration, log logging.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		hc:  &http.Client{Timeout: timeout},
		eps: eps,
		log: log,
	}
}

// Do sends one request, attaching the account's session cookie and
// anti-forgery token when present. On a 403 carrying a fresh token in its
// headers, the account's token is updated in place and the request retried
// exactly once; a second 403 is returned as-is. Transport failures wrap
// common.ErrNetwork. The caller owns the response body.
func (c *Client) Do(ctx context.Context, method, url string, body any, acct *models.Account) (*http.Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	resp, err := c.send(ctx, method, url, payload, acct)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusForbidden && acct != nil {
		fresh := resp.Header.Get(csrfHeader)
		if fresh != "" {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			c.log.Debug(ctx, "anti-forgery token refreshed, retrying", "url", url)
			acct.CSRFToken = fresh
			return c.send(ctx, method, url, payload, acct)
		}
	}

	return resp, nil
}

func (c *Client) send(ctx context.Context, method, url string, payload []byte, acct *models.Account) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if acct != nil {
		if acct.SecurityToken != "" {
			req.AddCookie(&http.Cookie{Name: securityCookie, Value: acct.SecurityToken})
		}
		if acct.CSRFToken != "" {
			req.Header.Set(csrfHeader, acct.CSRFToken)
		}
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", common.ErrNetwork, method, url, err)
	}
	return resp, nil
}

// decode drains and closes the body, unmarshalling into v. Non-2xx
// statuses become ErrRemoteRejected.
func decode(resp *http.Response, v any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: status %d", common.ErrRemoteRejected, resp.StatusCode)
	}
	if v == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
