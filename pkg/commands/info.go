package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/colcon/pkg/runner/info"
)

func addInfo(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show configuration, where state is stored and the session state.",
		Example: `
colcon info
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			ctx := context.Background()
			svc, done, err := openService()
			if err != nil {
				return oo.HandleError(err)
			}
			defer done()

			s := info.Info{Service: svc}
			return oo.HandleError(s.Do(ctx))
		},
	}

	topLevel.AddCommand(cmd)
}
