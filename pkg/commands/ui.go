package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/colcon/pkg/commands/options"
	"tableflip.dev/colcon/pkg/runner/ui"
)

func addUI(topLevel *cobra.Command) {
	co := &options.CollectionOptions{}

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Open the interactive console.",
		Example: `
colcon ui
colcon ui --collection=42
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

			i := ui.UI{Service: svc, CollectionID: co.ID}
			return i.Do(ctx)
		},
	}

	options.AddCollectionArgs(cmd, co)
	topLevel.AddCommand(cmd)
}
