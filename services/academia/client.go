// Package academia wraps all outbound requests to the school REST backend in
// a single pipeline: outbound requests carry the session's bearer token, and
// authentication failures trigger exactly one silent token refresh before the
// original request is re-issued.
package academia

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/session"
)

const (
	loginPath   = "/auth/login"
	refreshPath = "/auth/refresh-token"
)

// Envelope is the `{success, data, message}` body shape shared by all
// backend endpoints.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

type Client struct {
	baseURL string
	http    *http.Client
	store   session.Store
	logger  core.Logger

	// in-flight refresh exchanges, keyed by session; concurrent 401s reuse
	// the same exchange instead of racing each other's new tokens
	refreshes singleflight.Group
}

var _ session.Authenticator = (*Client)(nil)

func NewClient(conf *core.Config, store session.Store, logger core.Logger) *Client {
	return &Client{
		baseURL: conf.Backend.BaseURL,
		http:    &http.Client{Timeout: conf.Backend.Timeout},
		store:   store,
		logger:  logger,
	}
}

func (c *Client) Get(ctx context.Context, sid, path string) (json.RawMessage, error) {
	return c.do(ctx, sid, http.MethodGet, path, nil, false)
}

func (c *Client) Post(ctx context.Context, sid, path string, body interface{}) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling request body")
	}
	return c.do(ctx, sid, http.MethodPost, path, payload, false)
}

func (c *Client) Put(ctx context.Context, sid, path string, body interface{}) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling request body")
	}
	return c.do(ctx, sid, http.MethodPut, path, payload, false)
}

func (c *Client) Delete(ctx context.Context, sid, path string) (json.RawMessage, error) {
	return c.do(ctx, sid, http.MethodDelete, path, nil, false)
}

// Forward re-issues a request as received from a portal, with an already
// serialized payload.
func (c *Client) Forward(ctx context.Context, sid, method, path string, payload []byte) (json.RawMessage, error) {
	return c.do(ctx, sid, method, path, payload, false)
}

// Login exchanges credentials for a token pair. Persisting them is the
// session Controller's job.
func (c *Client) Login(ctx context.Context, email, password string, role session.Role) (session.LoginResult, error) {
	data, err := c.Post(ctx, "", loginPath, map[string]string{
		"email":    email,
		"password": password,
		"role":     string(role),
	})
	if err != nil {
		return session.LoginResult{}, err
	}

	var res struct {
		AccessToken  string          `json:"accessToken"`
		RefreshToken string          `json:"refreshToken"`
		User         json.RawMessage `json:"user"`
	}
	if err = json.Unmarshal(data, &res); err != nil {
		return session.LoginResult{}, errors.Wrap(err, "unmarshalling login response")
	}

	return session.LoginResult{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		User:         res.User,
	}, nil
}

// RefreshAccessToken exchanges the session's stored refresh token for a new
// access token and persists it. Concurrent calls for the same session share a
// single in-flight exchange; every waiter gets its result. On failure all
// stored credentials are purged and ErrSessionExpired is returned.
func (c *Client) RefreshAccessToken(ctx context.Context, sid string) (string, error) {
	v, err, _ := c.refreshes.Do(sid, func() (interface{}, error) {
		return c.exchangeRefreshToken(ctx, sid)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) exchangeRefreshToken(ctx context.Context, sid string) (string, error) {
	refreshToken, err := c.store.Get(ctx, sid, session.KeyRefreshToken)
	if err != nil || refreshToken == "" {
		c.purge(ctx, sid)
		return "", ErrSessionExpired
	}

	payload, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return "", errors.Wrap(err, "marshalling refresh request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+refreshPath, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "building refresh request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		c.purge(ctx, sid)
		return "", errors.Wrap(ErrSessionExpired, "exchanging refresh token")
	}
	defer func() { _ = res.Body.Close() }()

	env, err := readEnvelope(res.Body)
	if err != nil || res.StatusCode != http.StatusOK {
		c.purge(ctx, sid)
		return "", ErrSessionExpired
	}

	var data struct {
		AccessToken string `json:"accessToken"`
	}
	if err = json.Unmarshal(env.Data, &data); err != nil || data.AccessToken == "" {
		c.purge(ctx, sid)
		return "", ErrSessionExpired
	}

	if err = c.store.Set(ctx, sid, session.KeyAccessToken, data.AccessToken); err != nil {
		return "", errors.Wrap(err, "storing refreshed access token")
	}
	return data.AccessToken, nil
}

// do issues a single request. `retried` marks a request that already went
// through a refresh-and-retry cycle: if it fails again with a 401 the error
// propagates instead of refreshing a second time.
func (c *Client) do(ctx context.Context, sid, method, path string, payload []byte, retried bool) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// attach the bearer token when the session holds one; never blocks
	if sid != "" {
		if token, err := c.store.Get(ctx, sid, session.KeyAccessToken); err == nil && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	res, err := c.http.Do(req)
	if err != nil {
		if uerr, ok := err.(*url.Error); ok && uerr.Timeout() {
			return nil, ErrTimeout // timeouts are not refreshable auth failures
		}
		return nil, ErrNetwork
	}
	defer func() { _ = res.Body.Close() }()

	env, err := readEnvelope(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response")
	}

	switch {
	case res.StatusCode == http.StatusUnauthorized:
		if retried || sid == "" || path == loginPath || path == refreshPath {
			return nil, normalizeError(res.StatusCode, env)
		}
		if _, err := c.RefreshAccessToken(ctx, sid); err != nil {
			return nil, err
		}
		// the retry goes through the full pipeline again and picks up the
		// refreshed token from the store
		return c.do(ctx, sid, method, path, payload, true)

	case res.StatusCode == http.StatusForbidden && env.Message == BlockedAccountMessage:
		c.purge(ctx, sid)
		return nil, ErrAccountBlocked

	case res.StatusCode >= http.StatusBadRequest:
		return nil, normalizeError(res.StatusCode, env)
	}

	return env.Data, nil
}

func (c *Client) purge(ctx context.Context, sid string) {
	if sid == "" {
		return
	}
	if err := c.store.ClearAll(ctx, sid); err != nil {
		c.logger.Warn("purging session credentials", err)
	}
}

func readEnvelope(r io.Reader) (Envelope, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Envelope{}, err
	}

	var env Envelope
	if len(b) > 0 {
		// non-JSON bodies (proxies, load balancers) are tolerated; the
		// status code already tells the story
		_ = json.Unmarshal(b, &env)
	}
	return env, nil
}
