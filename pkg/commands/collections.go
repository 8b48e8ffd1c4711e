package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	base "github.com/n3wscott/cli-base/pkg/commands/options"
	"github.com/spf13/cobra"

	"tableflip.dev/colcon/pkg/commands/options"
	"tableflip.dev/colcon/pkg/runner/collections"
)

func addCollections(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"collection", "col"},
		Short:   "Browse collections.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	addCollectionsList(cmd)
	addCollectionsShow(cmd)
	topLevel.AddCommand(cmd)
}

func addCollectionsList(parent *cobra.Command) {
	fo := &options.FormatOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List collections with their stored filters.",
		Example: `
colcon collections list
colcon collections list -o yaml
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

			s := collections.List{Service: svc, Format: format}
			return oo.HandleError(s.Do(ctx))
		},
	}

	options.AddFormatArg(cmd, fo)
	base.AddOutputArg(cmd, oo)
	parent.AddCommand(cmd)
}

func addCollectionsShow(parent *cobra.Command) {
	fo := &options.FormatOptions{}
	var id int

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a collection's filters and first catalog page.",
		Example: `
colcon collections show 42
`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("requires a collection id")
			}
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid collection id %q", args[0])
			}
			id = n
			return nil
		},
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

			s := collections.Show{Service: svc, ID: id, Format: format}
			return oo.HandleError(s.Do(ctx))
		},
	}

	options.AddFormatArg(cmd, fo)
	base.AddOutputArg(cmd, oo)
	parent.AddCommand(cmd)
}
