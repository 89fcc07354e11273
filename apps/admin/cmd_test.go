package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lms-admin/core"
	"github.com/trezcool/lms-admin/core/access"
	"github.com/trezcool/lms-admin/core/auth"
	"github.com/trezcool/lms-admin/core/session"
	logsvc "github.com/trezcool/lms-admin/services/logger"
	"github.com/trezcool/lms-admin/services/restapi"
	"github.com/trezcool/lms-admin/storage/database"
	"github.com/trezcool/lms-admin/tests"
)

var (
	adminUsr   = session.User{ID: "1", Name: "Admin", Email: "admin@test.cd", Role: session.RoleAdmin}
	teacherUsr = session.User{ID: "2", Name: "Teacher", Email: "teacher@test.cd", Role: session.RoleTeacher}
	studentUsr = session.User{ID: "3", Name: "Student", Email: "student@test.cd", Role: session.RoleStudent}
)

type cliEnv struct {
	conf *core.Config
	api  *testutil.FakeAPI
}

func setupEnv(t *testing.T) *cliEnv {
	api := testutil.NewFakeAPI(t)
	for _, usr := range []session.User{adminUsr, teacherUsr, studentUsr} {
		api.AddUser(usr.Email, "secret", usr)
	}
	conf := &core.Config{
		TestMode: true,
		RestAPI:  api.Conf(),
		Storage: core.StorageConfig{
			Driver:    "file",
			Path:      filepath.Join(t.TempDir(), "credentials.json"),
			KeyPrefix: "test:",
		},
	}
	return &cliEnv{conf: conf, api: api}
}

// cli returns a fresh process sharing the env's storage.
func (env *cliEnv) cli(stdin string) (*commandLine, *bytes.Buffer) {
	logger := logsvc.NewDiscardLogger()
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	var out bytes.Buffer
	return &commandLine{
		conf:       env.conf,
		logger:     logger,
		api:        restapi.NewClient(env.conf.RestAPI, logger),
		validate:   validate,
		translator: translator,
		in:         strings.NewReader(stdin),
		out:        &out,
	}, &out
}

func mockPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

func (env *cliEnv) login(t *testing.T, usr session.User) {
	mockPassword(t, "secret")
	cli, _ := env.cli("")
	require.NoError(t, cli.run([]string{"admin", "login", "--email", usr.Email}))
}

type cliTest struct {
	name       string
	args       []string // without program name
	stdin      string
	pwd        string
	wantErr    error
	wantErrStr string
	wantOut    []string
}

func runCLITests(t *testing.T, env *cliEnv, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			cli, out := env.cli(tt.stdin)

			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				assert.NoError(t, err)
			}
			for _, s := range tt.wantOut {
				assert.Contains(t, out.String(), s)
			}
		})
	}
}

func Test_commandLine_help(t *testing.T) {
	env := setupEnv(t)
	runCLITests(t, env, []cliTest{
		{name: "no command", wantErr: errHelp, wantOut: []string{"lms-admin"}},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol" for "lms-admin"`},
	})
}

func Test_commandLine_login(t *testing.T) {
	env := setupEnv(t)
	runCLITests(t, env, []cliTest{
		{
			name: "admin", args: []string{"login", "--email", adminUsr.Email}, pwd: "secret",
			wantOut: []string{auth.LoginSucceededMessage, "Landing page: " + access.AdminPath},
		},
		{
			name: "teacher with prompted email", args: []string{"login"}, stdin: teacherUsr.Email + "\n", pwd: "secret",
			wantOut: []string{"Email: ", "Landing page: " + access.CategoriesPath},
		},
		{name: "student", args: []string{"login", "--email", studentUsr.Email}, pwd: "secret", wantErrStr: auth.StudentRejectedMessage},
		{name: "wrong password", args: []string{"login", "--email", adminUsr.Email}, pwd: "lol", wantErrStr: "Invalid email or password"},
		{
			name: "invalid email", args: []string{"login", "--email", "lol"}, pwd: "secret",
			wantErrStr: auth.InvalidFormMessage, wantOut: []string{"email: "},
		},
		{name: "extra args", args: []string{"login", "lol"}, wantErrStr: `unknown command "lol" for "lms-admin login"`},
	})
}

func Test_commandLine_sessionAcrossProcesses(t *testing.T) {
	env := setupEnv(t)

	cli, _ := env.cli("")
	assert.Equal(t, errNotLoggedIn, cli.run([]string{"admin", "whoami"}))

	env.login(t, adminUsr)

	cli, out := env.cli("")
	require.NoError(t, cli.run([]string{"admin", "whoami"}))
	assert.Equal(t, "Admin <admin@test.cd> (admin)\n", out.String())

	// a student login keeps the previous session
	mockPassword(t, "secret")
	cli, _ = env.cli("")
	assert.Error(t, cli.run([]string{"admin", "login", "--email", studentUsr.Email}))
	cli, out = env.cli("")
	require.NoError(t, cli.run([]string{"admin", "whoami"}))
	assert.Contains(t, out.String(), "(admin)")

	cli, out = env.cli("")
	require.NoError(t, cli.run([]string{"admin", "logout"}))
	assert.Contains(t, out.String(), auth.LoggedOutMessage)

	cli, _ = env.cli("")
	assert.Equal(t, errNotLoggedIn, cli.run([]string{"admin", "whoami"}))
}

func Test_commandLine_corruptCredentials(t *testing.T) {
	env := setupEnv(t)
	require.NoError(t, os.WriteFile(env.conf.Storage.Path, []byte("{not json"), 0o600))

	cli, _ := env.cli("")
	assert.Equal(t, errNotLoggedIn, cli.run([]string{"admin", "whoami"}))

	env.login(t, adminUsr)

	cli, out := env.cli("")
	require.NoError(t, cli.run([]string{"admin", "whoami"}))
	assert.Equal(t, "Admin <admin@test.cd> (admin)\n", out.String())
}

func Test_commandLine_credentialsFlag(t *testing.T) {
	env := setupEnv(t)
	other := filepath.Join(t.TempDir(), "other.json")

	mockPassword(t, "secret")
	cli, _ := env.cli("")
	require.NoError(t, cli.run([]string{"admin", "--credentials", other, "login", "--email", adminUsr.Email}))

	cli, _ = env.cli("")
	assert.Equal(t, errNotLoggedIn, cli.run([]string{"admin", "whoami"}), "the default storage is untouched")

	cli, _ = env.cli("")
	assert.NoError(t, cli.run([]string{"admin", "--credentials", other, "whoami"}))
}

func Test_commandLine_can(t *testing.T) {
	env := setupEnv(t)

	runCLITests(t, env, []cliTest{
		{name: "anonymous", args: []string{"can", "/admin/users"}, wantOut: []string{"redirect to /login (back to /admin/users after login)"}},
		{name: "public", args: []string{"can", "/"}, wantOut: []string{"public"}},
		{name: "no path", args: []string{"can"}, wantErrStr: "accepts 1 arg(s), received 0"},
	})

	env.login(t, teacherUsr)
	runCLITests(t, env, []cliTest{
		{name: "teacher courses", args: []string{"can", "/admin/courses"}, wantOut: []string{"admit"}},
		{name: "teacher lessons", args: []string{"can", "/admin/lecture/4/details"}, wantOut: []string{"admit"}},
		{name: "teacher users", args: []string{"can", "/admin/users"}, wantOut: []string{"redirect to /admin/categories: " + access.DeniedMessage}},
	})
}

func Test_commandLine_routes(t *testing.T) {
	env := setupEnv(t)
	env.login(t, teacherUsr)

	cli, out := env.cli("")
	require.NoError(t, cli.run([]string{"admin", "routes"}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, len(access.AdminRoutes)+1)
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		switch fields[0] {
		case "dashboard", "users", "analytics", "notifications":
			assert.Equal(t, "no", fields[len(fields)-1], line)
		default:
			assert.Equal(t, "yes", fields[len(fields)-1], line)
		}
	}
}

func Test_commandLine_watch(t *testing.T) {
	env := setupEnv(t)
	env.conf.Storage = core.StorageConfig{Driver: "sqlite", DSN: ":memory:"}

	cli, _ := env.cli("")
	assert.Equal(t, errWatchUnsupported, cli.run([]string{"admin", "watch"}))
}

func Test_commandLine_migrate(t *testing.T) {
	env := setupEnv(t)
	env.conf.Storage = core.StorageConfig{Driver: "sqlite", DSN: ":memory:"}

	gooseRunFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}
	defer func() { gooseRunFunc = database.RunMigrations }()

	runCLITests(t, env, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "0"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	})
}

func Test_commandLine_migrateForReal(t *testing.T) {
	env := setupEnv(t)
	env.conf.Storage = core.StorageConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "lms.db")}

	runCLITests(t, env, []cliTest{
		{name: "up", args: []string{"migrate", "up"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "down", args: []string{"migrate", "down"}},
	})

	env.conf.Storage.Driver = "oracle"
	cli, _ := env.cli("")
	assert.Error(t, cli.run([]string{"admin", "migrate", "up"}))
}

func Test_commandLine_purge(t *testing.T) {
	env := setupEnv(t)
	env.conf.Storage = core.StorageConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "lms.db"), TTL: time.Hour}

	db, err := database.Open(env.conf.Storage)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	q := db.Rebind("INSERT INTO storage_items (key, value, updated_at) VALUES (?, ?, ?)")
	_, err = db.Exec(q, "old", "v", time.Now().Add(-2*time.Hour).Unix())
	require.NoError(t, err)
	_, err = db.Exec(q, "new", "v", time.Now().Unix())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	runCLITests(t, env, []cliTest{
		{name: "expired rows", args: []string{"purge"}, wantOut: []string{"Purged 1 expired item(s)"}},
		{name: "nothing left", args: []string{"purge"}, wantOut: []string{"Purged 0 expired item(s)"}},
		{name: "extra args", args: []string{"purge", "lol"}, wantErrStr: `unknown command "lol" for "lms-admin purge"`},
	})

	db, err = database.Open(env.conf.Storage)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	var keys []string
	require.NoError(t, db.Select(&keys, "SELECT key FROM storage_items"))
	assert.Equal(t, []string{"new"}, keys)

	env.conf.Storage = core.StorageConfig{Driver: "file", Path: filepath.Join(t.TempDir(), "c.json")}
	cli, _ := env.cli("")
	assert.Error(t, cli.run([]string{"admin", "purge"}))
}
