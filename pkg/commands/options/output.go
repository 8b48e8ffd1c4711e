package options

import (
	"github.com/spf13/cobra"

	base "github.com/n3wscott/cli-base/pkg/commands/options"

	"tableflip.dev/colcon/pkg/printers"
)

// FormatOptions selects how results are printed. --json comes from the
// shared output options; -o also accepts yaml.
type FormatOptions struct {
	Output string
}

// AddFormatArg registers -o/--output.
func AddFormatArg(cmd *cobra.Command, o *FormatOptions) {
	cmd.Flags().StringVarP(&o.Output, "output", "o", "",
		"Output format. One of 'json' or 'yaml'. Defaults to a table.")
}

// Format resolves the printer format, with --json taking precedence.
func (o *FormatOptions) Format(oo *base.OutputOptions) (printers.Format, error) {
	if oo != nil && oo.JSON {
		return printers.FormatJSON, nil
	}
	return printers.ParseFormat(o.Output)
}
