package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/lms-admin/core/auth"
	"github.com/trezcool/lms-admin/core/session"
)

var errNotLoggedIn = errors.New("not logged in")

func (cli *commandLine) loginCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log into the admin site",
		Long:  "Log into the admin site. The password is prompted; the session is kept in the credentials storage.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email == "" {
				if email, err = cli.prompt("Email: "); err != nil {
					return errors.Wrap(err, "reading email")
				}
			}
			pwd, err := cli.promptPassword()
			if err != nil {
				return errors.Wrap(err, "reading password")
			}

			flow := auth.NewFlow(cli.api, cli.validate, cli.translator, cli.logger)
			out, err := flow.Submit(cmd.Context(), cli.store, auth.Credentials{Email: email, Password: pwd}, "")
			if err != nil {
				return err
			}
			if !out.LoggedIn {
				for fld, msg := range out.Fields {
					cli.printf("  %s: %s\n", fld, msg)
				}
				return errors.New(out.Notice.Message)
			}

			cli.printf("%s\n", out.Notice.Message)
			cli.printf("Landing page: %s\n", out.Location)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email (prompted if omitted)")
	return cmd
}

func (cli *commandLine) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.store.Logout(cmd.Context()); err != nil {
				return errors.Wrap(err, "logging out")
			}
			cli.printf("%s\n", auth.LoggedOutMessage)
			return nil
		},
	}
}

func (cli *commandLine) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.whoami()
		},
	}
}

func (cli *commandLine) whoami() error {
	cur := cli.store.Current()
	if !cur.IsAuthenticated {
		cli.printf("Not logged in\n")
		return errNotLoggedIn
	}
	cli.printf("%s\n", describe(*cur.User))
	return nil
}

func describe(usr session.User) string {
	s := usr.Name
	if usr.Email != "" {
		s += " <" + usr.Email + ">"
	}
	return s + " (" + string(usr.Role) + ")"
}
