package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lms-admin/core"
	"github.com/trezcool/lms-admin/core/access"
	"github.com/trezcool/lms-admin/core/auth"
	"github.com/trezcool/lms-admin/core/session"
	logsvc "github.com/trezcool/lms-admin/services/logger"
	memstore "github.com/trezcool/lms-admin/storage/memory"
)

type fakeAuthenticator struct {
	res   auth.Result
	err   error
	calls int
}

func (a *fakeAuthenticator) Authenticate(_ context.Context, _ auth.Credentials) (auth.Result, error) {
	a.calls++
	return a.res, a.err
}

type serverErr struct{ msg string }

func (e serverErr) Error() string       { return "remote: " + e.msg }
func (e serverErr) UserMessage() string { return e.msg }

func newFlow(a auth.Authenticator) *auth.Flow {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	return auth.NewFlow(a, validate, translator, logsvc.NewDiscardLogger())
}

func newStore(t *testing.T) (*session.Store, *memstore.Store) {
	st := memstore.New(0)
	store := session.NewStore(st)
	_, err := store.Restore(context.Background())
	require.NoError(t, err)
	return store, st
}

var goodCreds = auth.Credentials{Email: " Admin@Test.CD ", Password: "secret"}

func TestFlow_Submit(t *testing.T) {
	admin := session.User{ID: "1", Name: "Admin", Role: session.RoleAdmin}
	teacher := session.User{ID: "2", Name: "Teacher", Role: session.RoleTeacher}
	student := session.User{ID: "3", Name: "Student", Role: session.RoleStudent}

	tests := []struct {
		name         string
		creds        auth.Credentials
		from         string
		authRes      auth.Result
		authErr      error
		wantCalls    int
		wantLoggedIn bool
		wantLocation string
		wantNotice   *core.Notice
		wantFields   []string
	}{
		{
			name: "missing fields", creds: auth.Credentials{}, wantNotice: core.ErrorNotice(auth.InvalidFormMessage),
			wantFields: []string{"email", "password"},
		},
		{
			name: "bad email", creds: auth.Credentials{Email: "lol", Password: "x"}, wantNotice: core.ErrorNotice(auth.InvalidFormMessage),
			wantFields: []string{"email"},
		},
		{
			name: "server message", creds: goodCreds, authErr: serverErr{msg: "Wrong password"}, wantCalls: 1,
			wantNotice: core.ErrorNotice("Wrong password"),
		},
		{
			name: "generic failure", creds: goodCreds, authErr: errors.New("dial tcp: refused"), wantCalls: 1,
			wantNotice: core.ErrorNotice(auth.LoginFailedMessage),
		},
		{
			name: "empty server message", creds: goodCreds, authErr: serverErr{}, wantCalls: 1,
			wantNotice: core.ErrorNotice(auth.LoginFailedMessage),
		},
		{
			name: "student", creds: goodCreds, authRes: auth.Result{Token: "ts", User: student}, wantCalls: 1,
			wantNotice: core.ErrorNotice(auth.StudentRejectedMessage),
		},
		{
			name: "admin default landing", creds: goodCreds, authRes: auth.Result{Token: "ta", User: admin}, wantCalls: 1,
			wantLoggedIn: true, wantLocation: access.AdminPath, wantNotice: core.SuccessNotice(auth.LoginSucceededMessage),
		},
		{
			name: "admin back to where they were", creds: goodCreds, from: "/admin/users?page=2",
			authRes: auth.Result{Token: "ta", User: admin}, wantCalls: 1,
			wantLoggedIn: true, wantLocation: "/admin/users?page=2", wantNotice: core.SuccessNotice(auth.LoginSucceededMessage),
		},
		{
			name: "offsite from is ignored", creds: goodCreds, from: "//evil.example/admin",
			authRes: auth.Result{Token: "ta", User: admin}, wantCalls: 1,
			wantLoggedIn: true, wantLocation: access.AdminPath, wantNotice: core.SuccessNotice(auth.LoginSucceededMessage),
		},
		{
			name: "teacher always lands on categories", creds: goodCreds, from: "/admin/courses",
			authRes: auth.Result{Token: "tt", User: teacher}, wantCalls: 1,
			wantLoggedIn: true, wantLocation: access.CategoriesPath, wantNotice: core.SuccessNotice(auth.LoginSucceededMessage),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa := &fakeAuthenticator{res: tt.authRes, err: tt.authErr}
			store, st := newStore(t)

			out, err := newFlow(fa).Submit(context.Background(), store, tt.creds, tt.from)
			require.NoError(t, err)

			assert.Equal(t, tt.wantCalls, fa.calls)
			assert.Equal(t, tt.wantLoggedIn, out.LoggedIn)
			assert.Equal(t, tt.wantLocation, out.Location)
			assert.Equal(t, tt.wantNotice, out.Notice)
			for _, fld := range tt.wantFields {
				assert.Contains(t, out.Fields, fld)
			}

			cur := store.Current()
			assert.Equal(t, tt.wantLoggedIn, cur.IsAuthenticated)
			if tt.wantLoggedIn {
				assert.Equal(t, tt.authRes.User, *cur.User)
				assert.Equal(t, tt.authRes.Token, store.Token())
			} else {
				assert.Zero(t, st.Len(), "nothing may be persisted")
			}
		})
	}
}

func TestFlow_StudentKeepsPreviousSession(t *testing.T) {
	store, _ := newStore(t)
	prev := session.User{ID: "1", Name: "Admin", Role: session.RoleAdmin}
	require.NoError(t, store.Login(context.Background(), prev, "prev-token"))

	fa := &fakeAuthenticator{res: auth.Result{Token: "ts", User: session.User{ID: "3", Role: session.RoleStudent}}}
	out, err := newFlow(fa).Submit(context.Background(), store, goodCreds, "")
	require.NoError(t, err)

	assert.False(t, out.LoggedIn)
	assert.Equal(t, prev, *store.Current().User)
	assert.Equal(t, "prev-token", store.Token())
}

func TestLandingPath(t *testing.T) {
	assert.Equal(t, access.CategoriesPath, auth.LandingPath(session.RoleTeacher, "/admin/users"))
	assert.Equal(t, "/admin/course/1", auth.LandingPath(session.RoleAdmin, "/admin/course/1"))
	assert.Equal(t, access.AdminPath, auth.LandingPath(session.RoleAdmin, "https://evil.example"))
	assert.Equal(t, access.AdminPath, auth.LandingPath("moderator", ""))
}
