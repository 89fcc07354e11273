package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/lms-admin/storage/database"
)

var (
	gooseRunFunc = database.RunMigrations // mockable
	openDBFunc   = database.Open          // mockable
)

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate <command> [args]",
		Short: "Run goose migrations on the SQL storage backend",
		Long: "Run goose migrations on the SQL storage backend (postgres or sqlite).\n" +
			"Commands: up, up-by-one, up-to VERSION, down, down-to VERSION, redo, reset, status, version, fix.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.migrate(args)
		},
	}
}

func (cli *commandLine) migrate(args []string) error {
	db, err := openDBFunc(cli.conf.Storage)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	return gooseRunFunc(db, args[0], args[1:]...)
}

func (cli *commandLine) purgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired sessions from the SQL storage backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.purge(cmd.Context())
		},
	}
}

func (cli *commandLine) purge(ctx context.Context) error {
	db, err := openDBFunc(cli.conf.Storage)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	n, err := database.NewStore(db, cli.conf.Storage.TTL).Purge(ctx)
	if err != nil {
		return err
	}
	cli.printf("Purged %d expired item(s)\n", n)
	return nil
}
