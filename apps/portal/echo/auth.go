package echoportal

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/session"
)

type authApi struct {
	deps ServerDeps
}

func registerAuthAPI(app *echo.Echo, deps ServerDeps) {
	api := authApi{deps: deps}

	g := app.Group("/auth")
	g.POST("/login", api.login)
	g.POST("/logout", api.logout)
	g.POST("/refresh", api.refresh)
	g.GET("/session", api.session)

	// password flows are the backend's; the gateway only relays them
	g.POST("/forgot-password", api.forgotPassword)
	g.POST("/reset-password", api.resetPassword)
}

// Handlers

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	sid := setSessionCookie(ctx, api.deps.Conf)
	sess, err := api.deps.Ctrl.Login(ctx.Request().Context(), sid, data.Email, data.Password, session.Role(data.Role))
	if err != nil {
		return errors.Wrap(err, "logging in")
	}

	return ctx.JSON(http.StatusOK, SessionResponse{
		Status: string(sess.Status),
		Role:   string(sess.Role()),
		User:   rawUser(sess.User),
	})
}

// logout clears every stored credential and tells the app where to navigate:
// the login screen of the portal the user was in.
func (api *authApi) logout(ctx echo.Context) error {
	sid := sessionID(ctx, api.deps.Conf)
	redirect := roleLogin(session.RoleStudent)

	if sid != "" {
		role, err := api.deps.Ctrl.Logout(ctx.Request().Context(), sid)
		if err != nil {
			return errors.Wrap(err, "logging out")
		}
		redirect = roleLogin(role)
	}
	clearSessionCookie(ctx, api.deps.Conf)

	return ctx.JSON(http.StatusOK, RedirectResponse{Redirect: redirect})
}

func (api *authApi) refresh(ctx echo.Context) error {
	sid := sessionID(ctx, api.deps.Conf)
	if sid == "" {
		return ctx.JSON(http.StatusOK, SessionResponse{Status: string(session.StatusUnauthenticated)})
	}

	sess, err := api.deps.Ctrl.Refresh(ctx.Request().Context(), sid)
	if err != nil {
		return errors.Wrap(err, "refreshing session")
	}
	return ctx.JSON(http.StatusOK, SessionResponse{
		Status: string(sess.Status),
		Role:   string(sess.Role()),
		User:   rawUser(sess.User),
	})
}

// session reports the resolved session state; the SPA calls it once on boot
// to decide where to route.
func (api *authApi) session(ctx echo.Context) error {
	sid := sessionID(ctx, api.deps.Conf)
	if sid == "" {
		return ctx.JSON(http.StatusOK, SessionResponse{Status: string(session.StatusUnauthenticated)})
	}

	sess, err := api.deps.Ctrl.Resolve(ctx.Request().Context(), sid)
	if err != nil {
		return errors.Wrap(err, "resolving session")
	}
	return ctx.JSON(http.StatusOK, SessionResponse{
		Status: string(sess.Status),
		Role:   string(sess.Role()),
		User:   rawUser(sess.User),
	})
}

func (api *authApi) forgotPassword(ctx echo.Context) error {
	var data ForgotPasswordRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ForgotPasswordRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	res, err := api.deps.Backend.Post(ctx.Request().Context(), "", "/auth/forgot-password", data)
	if err != nil {
		return errors.Wrap(err, "relaying forgot-password")
	}
	return writeData(ctx, res)
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data ResetPasswordRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPasswordRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	res, err := api.deps.Backend.Post(ctx.Request().Context(), "", "/auth/reset-password", data)
	if err != nil {
		return errors.Wrap(err, "relaying reset-password")
	}
	return writeData(ctx, res)
}

func rawUser(user json.RawMessage) interface{} {
	if len(user) == 0 {
		return nil
	}
	return user
}

func writeData(ctx echo.Context, data json.RawMessage) error {
	if len(data) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}
	return ctx.JSONBlob(http.StatusOK, data)
}
