package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"tableflip.dev/colcon/pkg/commands/options"
	"tableflip.dev/colcon/pkg/runner/login"
)

func addLogin(topLevel *cobra.Command) {
	lo := &options.LoginOptions{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the catalog service and keep the token pair.",
		Example: `
colcon login
colcon login --username=operator
`,
		ValidArgs: []string{},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			ctx := context.Background()
			svc, done, err := openService()
			if err != nil {
				return oo.HandleError(err)
			}
			defer done()

			s := login.Login{
				Service:  svc,
				Username: lo.Username,
				Stdin:    os.Stdin,
				Stdout:   os.Stdout,
			}
			return oo.HandleError(s.Do(ctx))
		},
	}

	options.AddLoginArgs(cmd, lo)
	topLevel.AddCommand(cmd)
}

func addLogout(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token pair.",
		Example: `
colcon logout
`,
		ValidArgs: []string{},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			ctx := context.Background()
			svc, done, err := openService()
			if err != nil {
				return err
			}
			defer done()

			s := login.Logout{Service: svc}
			return s.Do(ctx)
		},
	}

	topLevel.AddCommand(cmd)
}
