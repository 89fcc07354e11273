package main

import (
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/trezcool/lms-admin/core/access"
)

func (cli *commandLine) canCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "can <path>",
		Short: "Tell what the admin site does when the stored session opens path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, protected := access.Check(cli.store.Current(), args[0])
			if !protected {
				cli.printf("public\n")
				return nil
			}
			switch d.Outcome {
			case access.Admit:
				cli.printf("admit\n")
			case access.RedirectLogin:
				cli.printf("redirect to %s (back to %s after login)\n", d.Location, d.ReturnTo)
			default:
				cli.printf("redirect to %s: %s\n", d.Location, d.Notice.Message)
			}
			return nil
		},
	}
}

func (cli *commandLine) routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the admin screens and whether the stored session may open them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := cli.store.Current()
			w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
			_, _ = w.Write([]byte("NAME\tPATH\tROLES\tALLOWED\n"))
			for _, r := range access.AdminRoutes {
				roles := make([]string, 0, len(r.Requirement.Roles))
				for _, role := range r.Requirement.Roles {
					roles = append(roles, string(role))
				}
				allowed := access.Evaluate(st, r.Pattern, access.AdminArea.Requirement, r.Requirement).Admitted()
				_, _ = w.Write([]byte(r.Name + "\t" + r.Pattern + "\t" + strings.Join(roles, ",") + "\t" + yesNo(allowed) + "\n"))
			}
			return w.Flush()
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
