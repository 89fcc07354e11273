package echoweb

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lms-admin/core"
	"github.com/trezcool/lms-admin/core/access"
	"github.com/trezcool/lms-admin/core/session"
	"github.com/trezcool/lms-admin/services/restapi"
)

const SessionExpiredMessage = "Your session has expired, please log in again!"

var errInvalidBody = echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")

type adminView struct {
	User    *session.User     `json:"user"`
	Menu    []access.MenuItem `json:"menu"`
	Notices []core.Notice     `json:"notices"`
	Data    interface{}       `json:"data"`
}

type fetchFunc func(ctx context.Context, token string) (interface{}, error)

type adminApi struct {
	s   *server
	api *restapi.Client
}

// mutable lists the remote collections editable from the admin site, with the screen whose guard protects them.
var mutable = []struct {
	route    string
	resource restapi.Resource
}{
	{route: "categories", resource: restapi.Categories},
	{route: "courses", resource: restapi.Courses},
	{route: "lessons", resource: restapi.Lessons},
	{route: "questions", resource: restapi.Questions},
}

func registerAdminRoutes(app *echo.Echo, s *server) {
	api := adminApi{s: s, api: s.deps.API}

	g := app.Group(access.AdminPath, s.guardMiddleware(access.AdminArea.Requirement))

	screens := map[string]echo.HandlerFunc{
		"dashboard":     api.dashboard,
		"users":         api.list(restapi.Users),
		"courses":       api.list(restapi.Courses),
		"categories":    api.list(restapi.Categories),
		"analytics":     api.analytics,
		"notifications": api.notifications,
		"lessons":       api.lessons,
		"course":        api.course,
		"questions":     api.questions,
	}
	for _, r := range access.AdminRoutes {
		h, ok := screens[r.Name]
		if !ok {
			panic("no handler for admin route " + r.Name)
		}
		g.GET(strings.TrimPrefix(r.Pattern, access.AdminPath), h, s.guardMiddleware(r.Requirement))
	}

	for _, m := range mutable {
		r, _ := access.Lookup(m.route)
		guard := s.guardMiddleware(r.Requirement)
		base := "/" + string(m.resource)
		g.POST(base, api.create(m.resource), guard)
		g.PUT(base+"/:id", api.update(m.resource), guard)
		g.DELETE(base+"/:id", api.destroy(m.resource), guard)
	}
}

// render fetches the screen data with the session's token and answers the admin view model.
func (api *adminApi) render(ctx echo.Context, fetch fetchFunc) error {
	sc := getContextScope(ctx)
	reqCtx := ctx.Request().Context()

	data, err := fetch(reqCtx, sc.store.Token())
	if err != nil {
		return api.fail(ctx, err)
	}

	notices, err := sc.drainNotices(reqCtx)
	if err != nil {
		return errors.Wrap(err, "draining notices")
	}
	cur := sc.store.Current()
	return ctx.JSON(http.StatusOK, adminView{
		User:    cur.User,
		Menu:    access.Menu(cur.Role()),
		Notices: notices,
		Data:    data,
	})
}

// fail logs the session out when the remote API no longer accepts its token.
func (api *adminApi) fail(ctx echo.Context, err error) error {
	if !restapi.IsUnauthorized(err) {
		return err
	}

	sc := getContextScope(ctx)
	reqCtx := ctx.Request().Context()
	if lErr := sc.store.Logout(reqCtx); lErr != nil {
		return errors.Wrap(lErr, "logging out")
	}
	if nErr := sc.pushNotice(reqCtx, core.ErrorNotice(SessionExpiredMessage)); nErr != nil {
		return errors.Wrap(nErr, "queueing notice")
	}

	from := ""
	if ctx.Request().Method == http.MethodGet {
		from = ctx.Request().URL.RequestURI()
	}
	return redirect(ctx, loginLocation(from))
}

func readBody(ctx echo.Context) (json.RawMessage, error) {
	b, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading body")
	}
	if !json.Valid(b) {
		return nil, errInvalidBody
	}
	return b, nil
}

// Handlers

func (api *adminApi) dashboard(ctx echo.Context) error {
	return api.render(ctx, func(c context.Context, token string) (interface{}, error) {
		summary, err := api.api.MonthlySummary(c, token)
		if err != nil {
			return nil, err
		}
		sixMonths, err := api.api.UsersLastSixMonths(c, token)
		if err != nil {
			return nil, err
		}
		history, err := api.api.ActionHistory(c, token)
		if err != nil {
			return nil, err
		}
		return echo.Map{"monthlySummary": summary, "usersLastSixMonths": sixMonths, "actionHistory": history}, nil
	})
}

func (api *adminApi) analytics(ctx echo.Context) error {
	return api.render(ctx, func(c context.Context, token string) (interface{}, error) {
		summary, err := api.api.MonthlySummary(c, token)
		if err != nil {
			return nil, err
		}
		sixMonths, err := api.api.UsersLastSixMonths(c, token)
		if err != nil {
			return nil, err
		}
		return echo.Map{"monthlySummary": summary, "usersLastSixMonths": sixMonths}, nil
	})
}

func (api *adminApi) notifications(ctx echo.Context) error {
	return api.render(ctx, func(c context.Context, token string) (interface{}, error) {
		return api.api.ActionHistory(c, token)
	})
}

func (api *adminApi) list(res restapi.Resource) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var q listQuery
		if err := q.Bind(ctx); err != nil {
			return err
		}
		if err := api.s.deps.Validate.Struct(q); err != nil {
			return err
		}

		return api.render(ctx, func(c context.Context, token string) (interface{}, error) {
			return api.api.List(c, token, res, q.Values())
		})
	}
}

func (api *adminApi) course(ctx echo.Context) error {
	return api.render(ctx, func(c context.Context, token string) (interface{}, error) {
		return api.api.Get(c, token, restapi.Courses, ctx.Param("id"))
	})
}

func (api *adminApi) lessons(ctx echo.Context) error {
	return api.render(ctx, func(c context.Context, token string) (interface{}, error) {
		return api.api.ListOf(c, token, restapi.Courses, ctx.Param("id"), restapi.Lessons)
	})
}

func (api *adminApi) questions(ctx echo.Context) error {
	return api.render(ctx, func(c context.Context, token string) (interface{}, error) {
		return api.api.ListOf(c, token, restapi.Quizzes, ctx.Param("quizId"), restapi.Questions)
	})
}

func (api *adminApi) create(res restapi.Resource) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		body, err := readBody(ctx)
		if err != nil {
			return err
		}
		data, err := api.api.Create(ctx.Request().Context(), getContextStore(ctx).Token(), res, body)
		if err != nil {
			return api.fail(ctx, err)
		}
		return ctx.JSON(http.StatusCreated, echo.Map{"data": data})
	}
}

func (api *adminApi) update(res restapi.Resource) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		body, err := readBody(ctx)
		if err != nil {
			return err
		}
		data, err := api.api.Update(ctx.Request().Context(), getContextStore(ctx).Token(), res, ctx.Param("id"), body)
		if err != nil {
			return api.fail(ctx, err)
		}
		return ctx.JSON(http.StatusOK, echo.Map{"data": data})
	}
}

func (api *adminApi) destroy(res restapi.Resource) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if err := api.api.Delete(ctx.Request().Context(), getContextStore(ctx).Token(), res, ctx.Param("id")); err != nil {
			return api.fail(ctx, err)
		}
		return ctx.NoContent(http.StatusNoContent)
	}
}
