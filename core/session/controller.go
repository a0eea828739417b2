package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

type (
	// LoginResult is the credential set issued by the backend on login.
	LoginResult struct {
		AccessToken  string
		RefreshToken string
		User         json.RawMessage
	}

	// Refresher exchanges the stored refresh token of a session for a new
	// access token and persists it. Concurrent exchanges for the same session
	// must be coalesced into a single in-flight call.
	Refresher interface {
		RefreshAccessToken(ctx context.Context, sid string) (string, error)
	}

	// Authenticator is the backend auth surface driven by the Controller.
	Authenticator interface {
		Refresher
		Login(ctx context.Context, email, password string, role Role) (LoginResult, error)
	}
)

// Controller is the single source of truth for "is this portal session
// authenticated, as whom". It is constructed once at app startup and injected
// into the route guards and handlers.
type Controller struct {
	store   Store
	backend Authenticator
	logger  core.Logger

	mu       sync.RWMutex
	statuses map[string]Status
}

func NewController(store Store, backend Authenticator, logger core.Logger) *Controller {
	return &Controller{
		store:    store,
		backend:  backend,
		logger:   logger,
		statuses: make(map[string]Status),
	}
}

// Status reports the last observed status of the session; StatusUnknown if it
// has not been resolved yet.
func (c *Controller) Status(sid string) Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if st, ok := c.statuses[sid]; ok {
		return st
	}
	return StatusUnknown
}

func (c *Controller) setStatus(sid string, st Status) {
	c.mu.Lock()
	c.statuses[sid] = st
	c.mu.Unlock()
}

// Resolve determines the session state from whatever is in the Store, silently
// refreshing through the backend when the held token is stale. It only fails
// on storage errors; expected transitions (expired token, failed refresh)
// resolve to StatusUnauthenticated.
func (c *Controller) Resolve(ctx context.Context, sid string) (Session, error) {
	token, err := c.store.Get(ctx, sid, KeyAccessToken)
	if err != nil && errors.Cause(err) != ErrNotFound {
		return Session{Status: StatusUnknown}, errors.Wrap(err, "reading access token")
	}
	if token == "" {
		c.setStatus(sid, StatusUnauthenticated)
		return Session{Status: StatusUnauthenticated}, nil
	}

	claims, err := DecodeToken(token)
	if err != nil || claims.Expired(nowFunc()) {
		return c.refresh(ctx, sid)
	}

	sess := Session{
		AccessToken: token,
		Claims:      claims,
		Status:      StatusAuthenticated,
		User:        c.cachedUser(ctx, sid),
	}
	c.setStatus(sid, StatusAuthenticated)
	return sess, nil
}

// Peek checks the session without attempting a refresh; used by the public
// route guards. A stale or undecodable token is purged and reported as
// StatusUnauthenticated, never surfaced as an error.
func (c *Controller) Peek(ctx context.Context, sid string) Session {
	token, err := c.store.Get(ctx, sid, KeyAccessToken)
	if err != nil || token == "" {
		c.setStatus(sid, StatusUnauthenticated)
		return Session{Status: StatusUnauthenticated}
	}

	claims, err := DecodeToken(token)
	if err != nil || claims.Expired(nowFunc()) {
		if err := c.store.Clear(ctx, sid, KeyAccessToken); err != nil {
			c.logger.Warn("purging stale access token", err)
		}
		c.setStatus(sid, StatusUnauthenticated)
		return Session{Status: StatusUnauthenticated}
	}

	c.setStatus(sid, StatusAuthenticated)
	return Session{
		AccessToken: token,
		Claims:      claims,
		Status:      StatusAuthenticated,
		User:        c.cachedUser(ctx, sid),
	}
}

// Login authenticates against the backend and stores the issued credentials
// under the session.
func (c *Controller) Login(ctx context.Context, sid, email, password string, role Role) (Session, error) {
	res, err := c.backend.Login(ctx, email, password, role)
	if err != nil {
		return Session{Status: StatusUnauthenticated}, err
	}

	claims, err := DecodeToken(res.AccessToken)
	if err != nil {
		return Session{Status: StatusUnauthenticated}, errors.Wrap(err, "decoding issued access token")
	}

	if err = c.store.Set(ctx, sid, KeyAccessToken, res.AccessToken); err != nil {
		return c.failLogin(ctx, sid, errors.Wrap(err, "storing access token"))
	}
	if err = c.store.Set(ctx, sid, KeyRefreshToken, res.RefreshToken); err != nil {
		return c.failLogin(ctx, sid, errors.Wrap(err, "storing refresh token"))
	}
	if len(res.User) > 0 {
		if err = c.store.Set(ctx, sid, KeyUser, string(res.User)); err != nil {
			return c.failLogin(ctx, sid, errors.Wrap(err, "storing user profile"))
		}
	}

	c.setStatus(sid, StatusAuthenticated)
	return Session{
		AccessToken: res.AccessToken,
		Claims:      claims,
		Status:      StatusAuthenticated,
		User:        res.User,
	}, nil
}

// failLogin clears whatever a half-finished login left in the Store; a
// session never keeps a partial credential set.
func (c *Controller) failLogin(ctx context.Context, sid string, err error) (Session, error) {
	if cerr := c.store.ClearAll(ctx, sid); cerr != nil {
		c.logger.Warn("purging credentials after failed login", cerr)
	}
	c.setStatus(sid, StatusUnauthenticated)
	return Session{Status: StatusUnauthenticated}, err
}

// Logout unconditionally clears every credential held for the session and
// reports the role that was logged in, so callers can navigate to the
// role-appropriate login screen. It never fails the caller on a stale token.
func (c *Controller) Logout(ctx context.Context, sid string) (Role, error) {
	var role Role
	if token, err := c.store.Get(ctx, sid, KeyAccessToken); err == nil {
		if claims, err := DecodeToken(token); err == nil {
			role = claims.Role
		}
	}

	err := c.store.ClearAll(ctx, sid)
	c.setStatus(sid, StatusUnauthenticated)
	return role, errors.Wrap(err, "clearing credentials")
}

// Refresh forces a token refresh regardless of the held token's state.
func (c *Controller) Refresh(ctx context.Context, sid string) (Session, error) {
	return c.refresh(ctx, sid)
}

func (c *Controller) refresh(ctx context.Context, sid string) (Session, error) {
	c.setStatus(sid, StatusRefreshing)

	token, err := c.backend.RefreshAccessToken(ctx, sid)
	if err != nil {
		// the backend client purges credentials on refresh failure;
		// clear again here in case the failure predates the exchange
		if cerr := c.store.ClearAll(ctx, sid); cerr != nil {
			c.logger.Warn("purging credentials after failed refresh", cerr)
		}
		c.setStatus(sid, StatusUnauthenticated)
		return Session{Status: StatusUnauthenticated}, nil
	}

	claims, err := DecodeToken(token)
	if err != nil || claims.Expired(nowFunc()) {
		if cerr := c.store.ClearAll(ctx, sid); cerr != nil {
			c.logger.Warn("purging credentials after bad refreshed token", cerr)
		}
		c.setStatus(sid, StatusUnauthenticated)
		return Session{Status: StatusUnauthenticated}, nil
	}

	c.setStatus(sid, StatusAuthenticated)
	return Session{
		AccessToken: token,
		Claims:      claims,
		Status:      StatusAuthenticated,
		User:        c.cachedUser(ctx, sid),
	}, nil
}

func (c *Controller) cachedUser(ctx context.Context, sid string) json.RawMessage {
	usr, err := c.store.Get(ctx, sid, KeyUser)
	if err != nil || usr == "" {
		return nil
	}
	return json.RawMessage(usr)
}
