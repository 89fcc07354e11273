package echoweb

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/lms-admin/core"
	"github.com/trezcool/lms-admin/core/access"
	"github.com/trezcool/lms-admin/core/auth"
	"github.com/trezcool/lms-admin/core/session"
	"github.com/trezcool/lms-admin/services/restapi"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Storage        session.Storage
		API            *restapi.Client
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(context.Context) error
		Close() error
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		flow     *auth.Flow
		limiter  *ipLimiter
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		flow:     auth.NewFlow(deps.API, deps.Validate, deps.Translator, deps.Logger),
		limiter:  newIPLimiter(deps.Conf.Server.LoginRate, deps.Conf.Server.LoginBurst),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(s.scopeMiddleware)

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator)
	s.app.Debug = conf.Debug

	s.app.GET(access.HomePath, s.home)
	registerAuthRoutes(s.app, s)
	registerAdminRoutes(s.app, s)
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

type homeView struct {
	App           string        `json:"app"`
	Authenticated bool          `json:"authenticated"`
	Notices       []core.Notice `json:"notices"`
}

func (s *server) home(ctx echo.Context) error {
	sc := getContextScope(ctx)
	notices, err := sc.drainNotices(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "draining notices")
	}
	return ctx.JSON(http.StatusOK, homeView{
		App:           s.deps.Conf.AppName,
		Authenticated: sc.store.Current().IsAuthenticated,
		Notices:       notices,
	})
}
