package echoportal

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/session"
)

// registerPortals wires the three role portals and the authenticated API
// relay. Each portal's screens are reachable only by its own role; the relay
// accepts any authenticated role and lets the backend enforce permissions.
func registerPortals(app *echo.Echo, deps ServerDeps) {
	api := portalApi{deps: deps}

	public := publicOnly(deps)
	for role, login := range roleLogins {
		prefix := strings.TrimSuffix(login, "/login")
		app.GET(login, api.authScreen("login", role), public)
		app.GET(prefix+"/forgot-password", api.authScreen("forgot-password", role), public)
		app.GET(prefix+"/reset-password", api.authScreen("reset-password", role), public)
	}

	app.GET("/admin/dashboard", api.dashboard, requireRoles(deps, session.RoleAdmin))
	app.GET("/teacher/dashboard", api.dashboard, requireRoles(deps, session.RoleTeacher))
	app.GET("/student/dashboard", api.dashboard, requireRoles(deps, session.RoleStudent))

	relay := requireRoles(deps, session.RoleAdmin, session.RoleTeacher, session.RoleStudent)
	app.Any("/api/*", api.relay, relay)
}

type portalApi struct {
	deps ServerDeps
}

func (api *portalApi) authScreen(screen string, role session.Role) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, echo.Map{
			"screen": screen,
			"role":   role,
		})
	}
}

func (api *portalApi) dashboard(ctx echo.Context) error {
	sess, ok := contextSession(ctx)
	if !ok {
		return errors.New("session object not found in echo.Context")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"screen": "dashboard",
		"role":   sess.Role(),
		"user":   rawUser(sess.User),
	})
}

// relay forwards an authenticated request to the backend as-is; the backend
// serves its resources under the same /api prefix. The bearer token and the
// silent refresh both live in the backend client.
func (api *portalApi) relay(ctx echo.Context) error {
	req := ctx.Request()

	var payload []byte
	if req.Body != nil {
		var err error
		if payload, err = io.ReadAll(req.Body); err != nil {
			return errors.Wrap(err, "reading request body")
		}
		if len(payload) == 0 {
			payload = nil
		}
	}

	path := req.URL.Path
	if req.URL.RawQuery != "" {
		path += "?" + req.URL.RawQuery
	}

	sid := sessionID(ctx, api.deps.Conf)
	data, err := api.deps.Backend.Forward(req.Context(), sid, req.Method, path, payload)
	if err != nil {
		return errors.Wrap(err, "relaying request")
	}
	return writeData(ctx, data)
}
