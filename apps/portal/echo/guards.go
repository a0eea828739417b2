package echoportal

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/session"
)

const contextSessionKey = "session"

// Portal entry points per role. Routing is data driven: adding a portal means
// adding a row here and its routes.
var (
	roleHomes = map[session.Role]string{
		session.RoleAdmin:   "/admin/dashboard",
		session.RoleTeacher: "/teacher/dashboard",
		session.RoleStudent: "/student/dashboard",
	}
	roleLogins = map[session.Role]string{
		session.RoleAdmin:   "/admin/login",
		session.RoleTeacher: "/teacher/login",
		session.RoleStudent: "/student/login",
	}
)

// roleHome maps a role to its portal entry point. An unrecognized role falls
// back to the student login rather than guessing a portal.
func roleHome(role session.Role) string {
	if home, ok := roleHomes[role]; ok {
		return home
	}
	return roleLogins[session.RoleStudent]
}

// roleLogin maps a role to its login screen, falling back to the student one.
func roleLogin(role session.Role) string {
	if login, ok := roleLogins[role]; ok {
		return login
	}
	return roleLogins[session.RoleStudent]
}

// sessionID returns the portal session id carried by the session cookie,
// or "" when the browser has none yet.
func sessionID(ctx echo.Context, conf *core.Config) string {
	cookie, err := ctx.Cookie(conf.Session.CookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	if _, err = uuid.Parse(cookie.Value); err != nil {
		return "" // tampered cookie; treat as absent
	}
	return cookie.Value
}

// setSessionCookie issues a fresh session id when the browser has none and
// returns the effective id.
func setSessionCookie(ctx echo.Context, conf *core.Config) string {
	if sid := sessionID(ctx, conf); sid != "" {
		return sid
	}
	sid := uuid.NewString()
	ctx.SetCookie(&http.Cookie{
		Name:     conf.Session.CookieName,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(conf.Session.CookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   conf.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return sid
}

func clearSessionCookie(ctx echo.Context, conf *core.Config) {
	ctx.SetCookie(&http.Cookie{
		Name:     conf.Session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   conf.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// requireRoles guards a route group: the session must resolve to an
// authenticated user holding one of the allowed roles. A stale access token
// goes through a silent refresh before any redirect is decided. Authenticated
// users of another role are sent to their own portal, everyone else to the
// default (student) login.
func requireRoles(deps ServerDeps, roles ...session.Role) echo.MiddlewareFunc {
	loginURL := roleLogins[session.RoleStudent]
	allowed := make(map[session.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sid := sessionID(ctx, deps.Conf)
			if sid == "" {
				return ctx.Redirect(http.StatusFound, loginURL)
			}

			sess, err := deps.Ctrl.Resolve(ctx.Request().Context(), sid)
			if err != nil {
				return err
			}
			if !sess.Authenticated() {
				return ctx.Redirect(http.StatusFound, loginURL)
			}
			if !allowed[sess.Role()] {
				return ctx.Redirect(http.StatusFound, roleHome(sess.Role()))
			}

			ctx.Set(contextSessionKey, sess)
			return next(ctx)
		}
	}
}

// publicOnly guards login screens: an already authenticated user lands on
// their portal instead. It never refreshes; a stale token simply means the
// visitor sees the login screen.
func publicOnly(deps ServerDeps) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if sid := sessionID(ctx, deps.Conf); sid != "" {
				if sess := deps.Ctrl.Peek(ctx.Request().Context(), sid); sess.Authenticated() {
					return ctx.Redirect(http.StatusFound, roleHome(sess.Role()))
				}
			}
			return next(ctx)
		}
	}
}

// contextSession returns the session stashed by requireRoles.
func contextSession(ctx echo.Context) (session.Session, bool) {
	sess, ok := ctx.Get(contextSessionKey).(session.Session)
	return sess, ok
}
