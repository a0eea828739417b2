package session

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	testutil "github.com/trezcool/darasa/tests"
)

// fakeStore is a minimal in-process Store; the real backends live in storage/.
type fakeStore struct {
	table   map[string]map[string]string
	setErrs map[string]error // per-key write failures
}

func newFakeStore() *fakeStore {
	return &fakeStore{table: make(map[string]map[string]string)}
}

func (s *fakeStore) Get(_ context.Context, sid, key string) (string, error) {
	if val, ok := s.table[sid][key]; ok {
		return val, nil
	}
	return "", ErrNotFound
}

func (s *fakeStore) Set(_ context.Context, sid, key, value string) error {
	if err := s.setErrs[key]; err != nil {
		return err
	}
	if _, ok := s.table[sid]; !ok {
		s.table[sid] = make(map[string]string)
	}
	s.table[sid][key] = value
	return nil
}

func (s *fakeStore) Clear(_ context.Context, sid, key string) error {
	delete(s.table[sid], key)
	return nil
}

func (s *fakeStore) ClearAll(_ context.Context, sid string) error {
	delete(s.table, sid)
	return nil
}

type fakeBackend struct {
	store *fakeStore

	loginRes   LoginResult
	loginErr   error
	refreshTok string
	refreshErr error

	refreshCalls int
	// observed controller status while the refresh was in flight
	statusDuringRefresh Status
	ctrl                *Controller
}

func (b *fakeBackend) Login(context.Context, string, string, Role) (LoginResult, error) {
	return b.loginRes, b.loginErr
}

func (b *fakeBackend) RefreshAccessToken(ctx context.Context, sid string) (string, error) {
	b.refreshCalls++
	if b.ctrl != nil {
		b.statusDuringRefresh = b.ctrl.Status(sid)
	}
	if b.refreshErr != nil {
		return "", b.refreshErr
	}
	// the real client persists the refreshed token itself
	if b.store != nil {
		_ = b.store.Set(ctx, sid, KeyAccessToken, b.refreshTok)
	}
	return b.refreshTok, nil
}

func newTestController(store *fakeStore, backend *fakeBackend) *Controller {
	ctrl := NewController(store, backend, testutil.Logger{})
	backend.ctrl = ctrl
	return ctrl
}

func TestController_Status_unknownUntilResolved(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	ctrl := newTestController(store, &fakeBackend{store: store})

	assert.Equal(t, StatusUnknown, ctrl.Status("sid"))

	_, err := ctrl.Resolve(ctx, "sid")
	assert.NoError(t, err)
	assert.Equal(t, StatusUnauthenticated, ctrl.Status("sid"))
}

func TestController_Resolve(t *testing.T) {
	ctx := context.Background()
	valid := testutil.MakeToken(t, "42", "Student", time.Now().Add(time.Hour))
	stale := testutil.MakeToken(t, "42", "Student", time.Now().Add(-time.Hour))
	fresh := testutil.MakeToken(t, "42", "Student", time.Now().Add(2*time.Hour))

	t.Run("no credentials", func(t *testing.T) {
		store := newFakeStore()
		ctrl := newTestController(store, &fakeBackend{store: store})

		sess, err := ctrl.Resolve(ctx, "sid")
		assert.NoError(t, err)
		assert.Equal(t, StatusUnauthenticated, sess.Status)
		assert.False(t, sess.Authenticated())
	})

	t.Run("valid token", func(t *testing.T) {
		store := newFakeStore()
		backend := &fakeBackend{store: store}
		ctrl := newTestController(store, backend)
		_ = store.Set(ctx, "sid", KeyAccessToken, valid)
		_ = store.Set(ctx, "sid", KeyUser, `{"name":"J Doe"}`)

		sess, err := ctrl.Resolve(ctx, "sid")
		assert.NoError(t, err)
		assert.Equal(t, StatusAuthenticated, sess.Status)
		assert.Equal(t, RoleStudent, sess.Role())
		assert.Equal(t, "42", sess.Claims.Subject)
		assert.JSONEq(t, `{"name":"J Doe"}`, string(sess.User))
		assert.Zero(t, backend.refreshCalls)
	})

	t.Run("stale token triggers refresh", func(t *testing.T) {
		store := newFakeStore()
		backend := &fakeBackend{store: store, refreshTok: fresh}
		ctrl := newTestController(store, backend)
		_ = store.Set(ctx, "sid", KeyAccessToken, stale)
		_ = store.Set(ctx, "sid", KeyRefreshToken, "ref")

		sess, err := ctrl.Resolve(ctx, "sid")
		assert.NoError(t, err)
		assert.Equal(t, StatusAuthenticated, sess.Status)
		assert.Equal(t, 1, backend.refreshCalls)
		assert.Equal(t, StatusRefreshing, backend.statusDuringRefresh)
	})

	t.Run("undecodable token triggers refresh", func(t *testing.T) {
		store := newFakeStore()
		backend := &fakeBackend{store: store, refreshTok: fresh}
		ctrl := newTestController(store, backend)
		_ = store.Set(ctx, "sid", KeyAccessToken, "garbage")
		_ = store.Set(ctx, "sid", KeyRefreshToken, "ref")

		sess, err := ctrl.Resolve(ctx, "sid")
		assert.NoError(t, err)
		assert.Equal(t, StatusAuthenticated, sess.Status)
		assert.Equal(t, 1, backend.refreshCalls)
	})

	t.Run("failed refresh resolves to unauthenticated", func(t *testing.T) {
		store := newFakeStore()
		backend := &fakeBackend{store: store, refreshErr: errors.New("session expired")}
		ctrl := newTestController(store, backend)
		_ = store.Set(ctx, "sid", KeyAccessToken, stale)
		_ = store.Set(ctx, "sid", KeyRefreshToken, "ref")

		sess, err := ctrl.Resolve(ctx, "sid")
		assert.NoError(t, err) // expected transition, not an error
		assert.Equal(t, StatusUnauthenticated, sess.Status)
		assert.Equal(t, StatusUnauthenticated, ctrl.Status("sid"))

		// nothing left behind
		_, err = store.Get(ctx, "sid", KeyRefreshToken)
		assert.Equal(t, ErrNotFound, err)
	})

	t.Run("refresh yielding a stale token resolves to unauthenticated", func(t *testing.T) {
		store := newFakeStore()
		backend := &fakeBackend{store: store, refreshTok: stale}
		ctrl := newTestController(store, backend)
		_ = store.Set(ctx, "sid", KeyAccessToken, stale)
		_ = store.Set(ctx, "sid", KeyRefreshToken, "ref")

		sess, err := ctrl.Resolve(ctx, "sid")
		assert.NoError(t, err)
		assert.Equal(t, StatusUnauthenticated, sess.Status)
	})
}

func TestController_Peek(t *testing.T) {
	ctx := context.Background()
	valid := testutil.MakeToken(t, "42", "Teacher", time.Now().Add(time.Hour))
	stale := testutil.MakeToken(t, "42", "Teacher", time.Now().Add(-time.Hour))

	t.Run("valid token", func(t *testing.T) {
		store := newFakeStore()
		backend := &fakeBackend{store: store}
		ctrl := newTestController(store, backend)
		_ = store.Set(ctx, "sid", KeyAccessToken, valid)

		sess := ctrl.Peek(ctx, "sid")
		assert.Equal(t, StatusAuthenticated, sess.Status)
		assert.Equal(t, RoleTeacher, sess.Role())
	})

	t.Run("stale token is purged, never refreshed", func(t *testing.T) {
		store := newFakeStore()
		backend := &fakeBackend{store: store}
		ctrl := newTestController(store, backend)
		_ = store.Set(ctx, "sid", KeyAccessToken, stale)
		_ = store.Set(ctx, "sid", KeyRefreshToken, "ref")

		sess := ctrl.Peek(ctx, "sid")
		assert.Equal(t, StatusUnauthenticated, sess.Status)
		assert.Zero(t, backend.refreshCalls)

		_, err := store.Get(ctx, "sid", KeyAccessToken)
		assert.Equal(t, ErrNotFound, err)
	})
}

func TestController_Login(t *testing.T) {
	ctx := context.Background()
	token := testutil.MakeToken(t, "7", "Admin", time.Now().Add(time.Hour))

	t.Run("ok", func(t *testing.T) {
		store := newFakeStore()
		backend := &fakeBackend{
			store: store,
			loginRes: LoginResult{
				AccessToken:  token,
				RefreshToken: "ref",
				User:         []byte(`{"name":"Admin"}`),
			},
		}
		ctrl := newTestController(store, backend)

		sess, err := ctrl.Login(ctx, "sid", "admin@an.edu", "s3cret", RoleAdmin)
		assert.NoError(t, err)
		assert.Equal(t, StatusAuthenticated, sess.Status)
		assert.Equal(t, RoleAdmin, sess.Role())

		for key, want := range map[string]string{
			KeyAccessToken:  token,
			KeyRefreshToken: "ref",
			KeyUser:         `{"name":"Admin"}`,
		} {
			val, err := store.Get(ctx, "sid", key)
			assert.NoError(t, err)
			assert.Equal(t, want, val)
		}
	})

	t.Run("storage failure mid-login leaves nothing behind", func(t *testing.T) {
		store := newFakeStore()
		store.setErrs = map[string]error{KeyRefreshToken: errors.New("write failed")}
		backend := &fakeBackend{
			store: store,
			loginRes: LoginResult{
				AccessToken:  token,
				RefreshToken: "ref",
			},
		}
		ctrl := newTestController(store, backend)

		sess, err := ctrl.Login(ctx, "sid", "admin@an.edu", "s3cret", RoleAdmin)
		assert.Error(t, err)
		assert.Equal(t, StatusUnauthenticated, sess.Status)
		assert.Equal(t, StatusUnauthenticated, ctrl.Status("sid"))

		// the already stored access token was purged
		_, err = store.Get(ctx, "sid", KeyAccessToken)
		assert.Equal(t, ErrNotFound, err)
	})

	t.Run("backend rejects", func(t *testing.T) {
		store := newFakeStore()
		backend := &fakeBackend{store: store, loginErr: errors.New("Invalid credentials")}
		ctrl := newTestController(store, backend)

		sess, err := ctrl.Login(ctx, "sid", "admin@an.edu", "nope", RoleAdmin)
		assert.EqualError(t, err, "Invalid credentials")
		assert.Equal(t, StatusUnauthenticated, sess.Status)
	})
}

func TestController_Logout(t *testing.T) {
	ctx := context.Background()
	token := testutil.MakeToken(t, "42", "Teacher", time.Now().Add(time.Hour))

	store := newFakeStore()
	ctrl := newTestController(store, &fakeBackend{store: store})
	_ = store.Set(ctx, "sid", KeyAccessToken, token)
	_ = store.Set(ctx, "sid", KeyRefreshToken, "ref")
	_ = store.Set(ctx, "sid", KeyUser, `{}`)

	role, err := ctrl.Logout(ctx, "sid")
	assert.NoError(t, err)
	assert.Equal(t, RoleTeacher, role)
	assert.Equal(t, StatusUnauthenticated, ctrl.Status("sid"))

	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyUser} {
		_, err := store.Get(ctx, "sid", key)
		assert.Equal(t, ErrNotFound, err)
	}

	// logging out an empty session works and reports no role
	role, err = ctrl.Logout(ctx, "ghost")
	assert.NoError(t, err)
	assert.Empty(t, role)
}
