package echoweb

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lms-admin/core/access"
)

// guardMiddleware evaluates the route requirements (outermost first) on every request.
func (s *server) guardMiddleware(reqs ...access.Requirement) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sc := getContextScope(ctx)
			d := access.Evaluate(sc.store.Current(), ctx.Request().URL.RequestURI(), reqs...)
			switch d.Outcome {
			case access.Admit:
				return next(ctx)
			case access.RedirectLogin:
				return redirect(ctx, loginLocation(d.ReturnTo))
			default:
				if err := sc.pushNotice(ctx.Request().Context(), d.Notice); err != nil {
					return errors.Wrap(err, "queueing notice")
				}
				return redirect(ctx, d.Location)
			}
		}
	}
}

// loginLocation is the login page, remembering where to go back to.
func loginLocation(from string) string {
	if from == "" {
		return access.LoginPath
	}
	return access.LoginPath + "?" + url.Values{"from": {from}}.Encode()
}

func redirect(ctx echo.Context, location string) error {
	code := http.StatusFound
	if m := ctx.Request().Method; m != http.MethodGet && m != http.MethodHead {
		code = http.StatusSeeOther
	}
	return ctx.Redirect(code, location)
}
