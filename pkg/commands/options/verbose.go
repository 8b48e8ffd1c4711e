package options

import (
	"github.com/spf13/cobra"
)

// VerboseOptions
type VerboseOptions struct {
	Verbose bool
}

// AddVerboseArgs registers --verbose on every command.
func AddVerboseArgs(cmd *cobra.Command, o *VerboseOptions) {
	cmd.PersistentFlags().BoolVarP(&o.Verbose, "verbose", "v", false,
		"Log at debug level to the log file.")
}
