// Package options defines shared flag helpers for CLI commands.
package options

import (
	"github.com/spf13/cobra"
)

// CollectionOptions selects a collection by id.
type CollectionOptions struct {
	ID int
}

// AddCollectionArgs wires the --collection flag.
func AddCollectionArgs(cmd *cobra.Command, o *CollectionOptions) {
	cmd.Flags().IntVarP(&o.ID, "collection", "c", 0,
		"Open the editor for this collection id.")
}

// PageOptions selects a page of the working set.
type PageOptions struct {
	Page int
	All  bool
}

// AddPageArgs wires --page and --all.
func AddPageArgs(cmd *cobra.Command, o *PageOptions) {
	cmd.Flags().IntVarP(&o.Page, "page", "p", 0,
		"Show this page and remember it as the current page.")
	cmd.Flags().BoolVar(&o.All, "all", false,
		"Show every constant instead of one page.")
}

// LoginOptions
type LoginOptions struct {
	Username string
}

// AddLoginArgs wires --username.
func AddLoginArgs(cmd *cobra.Command, o *LoginOptions) {
	cmd.Flags().StringVarP(&o.Username, "username", "u", "",
		"Username; prompted for when omitted.")
}
