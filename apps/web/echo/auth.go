package echoweb

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lms-admin/core"
	"github.com/trezcool/lms-admin/core/access"
	"github.com/trezcool/lms-admin/core/auth"
)

const TooManyAttemptsMessage = "Too many login attempts, please try again later!"

type loginView struct {
	From    string            `json:"from,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Notices []core.Notice     `json:"notices"`
}

type authApi struct {
	s *server
}

func registerAuthRoutes(app *echo.Echo, s *server) {
	api := authApi{s: s}

	app.GET(access.LoginPath, api.loginPage)
	app.POST(access.LoginPath, api.login)
	app.POST("/logout", api.logout)
}

// Handlers

func (api *authApi) loginPage(ctx echo.Context) error {
	sc := getContextScope(ctx)
	if sc.store.Current().IsAuthenticated {
		return redirect(ctx, access.AdminPath)
	}

	notices, err := sc.drainNotices(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "draining notices")
	}
	return ctx.JSON(http.StatusOK, loginView{From: ctx.QueryParam("from"), Notices: notices})
}

func (api *authApi) login(ctx echo.Context) error {
	sc := getContextScope(ctx)
	reqCtx := ctx.Request().Context()
	from := ctx.QueryParam("from")

	if !api.s.limiter.allow(ctx.RealIP()) {
		return ctx.JSON(http.StatusTooManyRequests, loginView{
			From:    from,
			Notices: []core.Notice{*core.ErrorNotice(TooManyAttemptsMessage)},
		})
	}

	var creds auth.Credentials
	if err := ctx.Bind(&creds); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}

	out, err := api.s.flow.Submit(reqCtx, sc.store, creds, from)
	if err != nil {
		return errors.Wrap(err, "submitting login")
	}

	if out.LoggedIn {
		if err = sc.pushNotice(reqCtx, out.Notice); err != nil {
			return errors.Wrap(err, "queueing notice")
		}
		return redirect(ctx, out.Location)
	}

	notices, err := sc.drainNotices(reqCtx)
	if err != nil {
		return errors.Wrap(err, "draining notices")
	}
	if out.Notice != nil {
		notices = append(notices, *out.Notice)
	}
	code := http.StatusUnauthorized
	if len(out.Fields) > 0 {
		code = http.StatusBadRequest
	}
	return ctx.JSON(code, loginView{From: from, Fields: out.Fields, Notices: notices})
}

func (api *authApi) logout(ctx echo.Context) error {
	sc := getContextScope(ctx)
	reqCtx := ctx.Request().Context()

	if err := sc.store.Logout(reqCtx); err != nil {
		return errors.Wrap(err, "logging out")
	}
	if err := sc.pushNotice(reqCtx, core.SuccessNotice(auth.LoggedOutMessage)); err != nil {
		return errors.Wrap(err, "queueing notice")
	}
	return redirect(ctx, access.LoginPath)
}
