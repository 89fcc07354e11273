package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/lms-admin/core"
	"github.com/trezcool/lms-admin/core/auth"
	"github.com/trezcool/lms-admin/core/session"
	"github.com/trezcool/lms-admin/storage"
	filestore "github.com/trezcool/lms-admin/storage/file"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf       *core.Config
	logger     core.Logger
	api        auth.Authenticator
	validate   *validator.Validate
	translator ut.Translator
	in         io.Reader
	out        io.Writer

	// set up by the root pre-run hook
	file         *filestore.Store // nil unless the file backend is used
	store        *session.Store
	closeStorage func() error
}

// storageConf is the configured backend, except that an in-memory one would not outlive the command: a
// credentials file is used instead.
func (cli *commandLine) storageConf(credentials string) core.StorageConfig {
	conf := cli.conf.Storage
	if conf.Driver == "" || conf.Driver == "memory" {
		conf.Driver = "file"
	}
	if credentials != "" {
		conf.Driver, conf.Path = "file", credentials
	}
	if conf.Driver == "file" && conf.Path == "" {
		conf.Path = filestore.DefaultPath()
	}
	return conf
}

// restore opens the storage and restores the session before any command body runs.
func (cli *commandLine) restore(ctx context.Context, credentials string) error {
	conf := cli.storageConf(credentials)
	st, closeFn, err := storage.Open(ctx, conf)
	if err != nil {
		return err
	}
	cli.closeStorage = closeFn
	if fs, ok := st.(*filestore.Store); ok {
		cli.file = fs
	}

	cli.store = session.NewStore(session.Prefixed(st, conf.KeyPrefix+"cli:"))
	res, err := cli.store.Restore(ctx)
	if err != nil {
		return err
	}
	if res == session.ClearedCorrupt || res == session.ClearedIneligible {
		cli.logger.Info(res.String())
	}
	return nil
}

func (cli *commandLine) rootCmd() *cobra.Command {
	var credentials string

	root := &cobra.Command{
		Use:   "lms-admin",
		Short: "LMS admin site from the command line",
		Long:  "lms-admin logs into the learning platform admin site and inspects what the stored session may access.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cmd.Name() {
			case "migrate", "purge":
				return nil
			}
			return cli.restore(cmd.Context(), credentials)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&credentials, "credentials", "", "Credentials file (default: the configured storage)")

	root.AddCommand(
		cli.loginCmd(),
		cli.logoutCmd(),
		cli.whoamiCmd(),
		cli.canCmd(),
		cli.routesCmd(),
		cli.watchCmd(),
		cli.migrateCmd(),
		cli.purgeCmd(),
	)
	return root
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		_, _ = fmt.Fprintln(cli.out, cli.rootCmd().UsageString())
		return errHelp
	}

	defer func() {
		if cli.closeStorage != nil {
			if err := cli.closeStorage(); err != nil {
				cli.logger.Error("closing storage", err)
			}
		}
	}()

	root := cli.rootCmd()
	root.SetArgs(args[1:])
	root.SetOut(cli.out)
	root.SetErr(cli.out)
	return root.ExecuteContext(context.Background())
}

func (cli *commandLine) printf(format string, a ...interface{}) {
	_, _ = fmt.Fprintf(cli.out, format, a...)
}

func (cli *commandLine) prompt(label string) (string, error) {
	cli.printf("%s", label)
	line, err := bufio.NewReader(cli.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (cli *commandLine) promptPassword() (string, error) {
	cli.printf("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	cli.printf("\n")
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
