package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	echoweb "github.com/trezcool/lms-admin/apps/web/echo"
	"github.com/trezcool/lms-admin/core"
	"github.com/trezcool/lms-admin/core/session"
	logsvc "github.com/trezcool/lms-admin/services/logger"
	"github.com/trezcool/lms-admin/services/restapi"
	memstore "github.com/trezcool/lms-admin/storage/memory"
	"github.com/trezcool/lms-admin/tests"
)

var (
	adminUsr   = session.User{ID: "1", Name: "Admin", Email: "admin@test.cd", Role: session.RoleAdmin}
	teacherUsr = session.User{ID: "2", Name: "Teacher", Email: "teacher@test.cd", Role: session.RoleTeacher}
	studentUsr = session.User{ID: "3", Name: "Student", Email: "student@test.cd", Role: session.RoleStudent}
)

const password = "secret"

type testEnv struct {
	app     echoweb.Server
	api     *testutil.FakeAPI
	storage *memstore.Store
}

func setup(t *testing.T, configure ...func(*core.Config)) *testEnv {
	api := testutil.NewFakeAPI(t)
	for _, usr := range []session.User{adminUsr, teacherUsr, studentUsr} {
		api.AddUser(usr.Email, password, usr)
	}

	conf := &core.Config{
		TestMode:  true,
		AppName:   "LMS Admin",
		Env:       "TEST",
		SecretKey: "test-secret",
		Server:    core.ServerConfig{ScopeMaxAge: time.Hour},
		RestAPI:   api.Conf(),
		Storage:   core.StorageConfig{Driver: "memory", KeyPrefix: "test:"},
	}
	for _, fn := range configure {
		fn(conf)
	}

	logger := logsvc.NewDiscardLogger()
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	st := memstore.New(0)
	app := echoweb.NewServer(echoweb.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Storage:        st,
		API:            restapi.NewClient(conf.RestAPI, logger),
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	return &testEnv{app: app, api: api, storage: st}
}

// browser keeps the scope cookie between requests, like a real one would.
type browser struct {
	t      *testing.T
	app    http.Handler
	cookie *http.Cookie
}

func (env *testEnv) browser(t *testing.T) *browser {
	return &browser{t: t, app: env.app}
}

func (b *browser) do(method, path string, data ...[]byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}

	rec := httptest.NewRecorder()
	b.app.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == echoweb.ScopeCookieName {
			b.cookie = c
		}
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(http.MethodGet, path)
}

func (b *browser) login(email, pwd string, from ...string) *httptest.ResponseRecorder {
	path := "/login"
	if len(from) > 0 {
		path += "?from=" + from[0]
	}
	return b.do(http.MethodPost, path, marshallObj(b.t, map[string]string{"email": email, "password": pwd}))
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	require.NoError(t, err, "marshallObj()")
	return data
}

type noticesView struct {
	Notices []core.Notice `json:"notices"`
}

type loginView struct {
	From    string            `json:"from"`
	Fields  map[string]string `json:"fields"`
	Notices []core.Notice     `json:"notices"`
}

type menuItem struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

type adminView struct {
	User    *session.User   `json:"user"`
	Menu    []menuItem      `json:"menu"`
	Notices []core.Notice   `json:"notices"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func messages(notices []core.Notice) []string {
	msgs := make([]string, 0, len(notices))
	for _, n := range notices {
		msgs = append(msgs, n.Message)
	}
	return msgs
}
