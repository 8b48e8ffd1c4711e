package ui

import (
	"context"
	"errors"
	"os"

	"github.com/mattn/go-isatty"

	"tableflip.dev/colcon/pkg/app"
	teaui "tableflip.dev/colcon/pkg/tui/app"
)

// ErrNoTerminal is returned when stdout is not an interactive terminal.
var ErrNoTerminal = errors.New("ui: stdout is not a terminal; use the collections and constants commands instead")

// UI opens the interactive console.
type UI struct {
	Service *app.Service
	// CollectionID opens the editor for that collection right away when set.
	CollectionID int
}

// Do runs the Bubble Tea program until the operator quits.
func (u *UI) Do(_ context.Context) error {
	fd := os.Stdout.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return ErrNoTerminal
	}
	return teaui.Run(u.Service, u.CollectionID)
}
