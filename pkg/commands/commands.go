package commands

import (
	"github.com/spf13/cobra"

	base "github.com/n3wscott/cli-base/pkg/commands/options"

	"tableflip.dev/colcon/pkg/commands/options"
)

var (
	oo = &base.OutputOptions{}
	vo = &options.VerboseOptions{}
)

func New() *cobra.Command {

	cmd := &cobra.Command{
		Use:   "colcon",
		Short: base.Wrap80("Curate the constant products of retail collections from the terminal."),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	options.AddVerboseArgs(cmd, vo)
	AddCommands(cmd)
	return cmd
}

func AddCommands(topLevel *cobra.Command) {
	addLogin(topLevel)
	addLogout(topLevel)
	addCollections(topLevel)
	addConstants(topLevel)
	addUI(topLevel)
	addInfo(topLevel)
	addVersion(topLevel)
}
