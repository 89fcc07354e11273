package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/lms-admin/core"
	"github.com/trezcool/lms-admin/core/session"
)

type account struct {
	password string
	user     session.User
}

// FakeAPI is an in-process stand-in for the remote REST API of the learning platform.
type FakeAPI struct {
	srv *httptest.Server

	mu       sync.Mutex
	accounts map[string]account // by email
	tokens   map[string]session.User
	logins    int
	lastPath  string
	lastQuery url.Values
}

// NewFakeAPI starts a FakeAPI that is shut down with the test.
func NewFakeAPI(t *testing.T) *FakeAPI {
	api := &FakeAPI{
		accounts: make(map[string]account),
		tokens:   make(map[string]session.User),
	}
	api.srv = httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(api.srv.Close)
	return api
}

func (api *FakeAPI) Conf() core.RestAPIConfig {
	return core.RestAPIConfig{BaseURL: api.srv.URL + "/api", LoginPath: "/users/login", Timeout: 5 * time.Second}
}

func (api *FakeAPI) AddUser(email, password string, usr session.User) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.accounts[email] = account{password: password, user: usr}
}

// Token issues a valid bearer token for usr, as a login would.
func (api *FakeAPI) Token(usr session.User) string {
	api.mu.Lock()
	defer api.mu.Unlock()
	tok := uuid.NewString()
	api.tokens[tok] = usr
	return tok
}

// Revoke makes every issued token invalid.
func (api *FakeAPI) Revoke() {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.tokens = make(map[string]session.User)
}

func (api *FakeAPI) Logins() int {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.logins
}

// LastPath is the path of the last authenticated call.
func (api *FakeAPI) LastPath() string {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.lastPath
}

// LastQuery is the query string of the last authenticated call.
func (api *FakeAPI) LastQuery() url.Values {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.lastQuery
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (api *FakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api")
	if r.Method == http.MethodPost && path == "/users/login" {
		api.login(w, r)
		return
	}

	api.mu.Lock()
	_, ok := api.tokens[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
	api.lastPath = path
	api.lastQuery = r.URL.Query()
	api.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "fail", "message": "Token expired"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "success",
			"data":   []map[string]interface{}{{"id": 1, "source": path}},
		})
	case http.MethodPost, http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "data": json.RawMessage(body)})
	case http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (api *FakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "fail", "message": "Bad request"})
		return
	}

	api.mu.Lock()
	api.logins++
	acc, ok := api.accounts[creds.Email]
	api.mu.Unlock()
	if !ok || acc.password != creds.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "fail", "message": "Invalid email or password"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   map[string]interface{}{"token": api.Token(acc.user), "user": acc.user},
	})
}
