package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var errWatchUnsupported = errors.New("watch needs the file storage backend")

func (cli *commandLine) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow session changes made by other processes",
		Long:  "Reload the stored session every time another process logs in or out, until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cli.file == nil {
				return errWatchUnsupported
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_ = cli.whoami()
			return cli.file.Watch(ctx, cli.logger, func() {
				if _, err := cli.store.Restore(ctx); err != nil {
					cli.logger.Error("restoring session", err)
					return
				}
				_ = cli.whoami()
			})
		},
	}
}
