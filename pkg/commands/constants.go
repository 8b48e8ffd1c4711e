package commands

import (
	"context"
	"errors"
	"strings"

	base "github.com/n3wscott/cli-base/pkg/commands/options"
	"github.com/spf13/cobra"

	"tableflip.dev/colcon/pkg/commands/options"
	"tableflip.dev/colcon/pkg/runner/constants"
)

func addConstants(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "constants",
		Aliases: []string{"constant", "const"},
		Short:   "Inspect the working set of the collection being edited.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	addConstantsList(cmd)
	addConstantsRemove(cmd)
	topLevel.AddCommand(cmd)
}

func addConstantsList(parent *cobra.Command) {
	fo := &options.FormatOptions{}
	po := &options.PageOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print a page of the persisted working set.",
		Example: `
colcon constants list
colcon constants list --page=2
colcon constants list --all --json
`,
		ValidArgs: []string{},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			format, err := fo.Format(oo)
			if err != nil {
				return oo.HandleError(err)
			}
			ctx := context.Background()
			svc, done, err := openService()
			if err != nil {
				return oo.HandleError(err)
			}
			defer done()

			s := constants.List{Service: svc, Page: po.Page, All: po.All, Format: format}
			return oo.HandleError(s.Do(ctx))
		},
	}

	options.AddFormatArg(cmd, fo)
	options.AddPageArgs(cmd, po)
	base.AddOutputArg(cmd, oo)
	parent.AddCommand(cmd)
}

func addConstantsRemove(parent *cobra.Command) {
	var key string

	cmd := &cobra.Command{
		Use:   "remove <productCode-colorCode>",
		Short: "Remove one product from the persisted working set.",
		Example: `
colcon constants remove P100-BLK
`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
				return errors.New("requires a product key")
			}
			key = strings.TrimSpace(args[0])
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			ctx := context.Background()
			svc, done, err := openService()
			if err != nil {
				return oo.HandleError(err)
			}
			defer done()

			s := constants.Remove{Service: svc, Key: key}
			return oo.HandleError(s.Do(ctx))
		},
	}

	base.AddOutputArg(cmd, oo)
	parent.AddCommand(cmd)
}
