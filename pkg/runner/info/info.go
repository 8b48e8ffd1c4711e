package info

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"tableflip.dev/colcon/pkg/app"
	"tableflip.dev/colcon/pkg/timeutil"
)

// Info prints where the console keeps its state and who is logged in.
type Info struct {
	Service *app.Service
}

func (n *Info) Do(_ context.Context) error {
	if n.Service == nil {
		return fmt.Errorf("info: no service")
	}
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)
	cfg := n.Service.Config

	if override := os.Getenv("COLCON_CONFIG_PATH"); override != "" {
		_, _ = fmt.Fprintln(color.Output, "COLCON_CONFIG_PATH found on env, using", override)
	} else {
		_, _ = faint.Fprintln(color.Output, "COLCON_CONFIG_PATH env var not set")
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("path"), cfg.BasePath())
	api := cfg.APIURL()
	if api == "" {
		api = faint.Sprint("not set")
	}
	tbl.AddRow(bold.Sprint("api_url"), api)
	tbl.AddRow(bold.Sprint("catalog_page_size"), cfg.CatalogPageSize())
	tbl.AddRow(bold.Sprint("constants_page_size"), cfg.ConstantsPageSize())
	timeout := "transport default"
	if d := cfg.RequestTimeout(); d > 0 {
		timeout = d.String()
	}
	tbl.AddRow(bold.Sprint("request_timeout"), timeout)
	tbl.AddRow(bold.Sprint("log_file"), cfg.LogFile())

	tok, err := n.Service.Session.Current()
	switch {
	case err != nil:
		tbl.AddRow(bold.Sprint("session"), color.RedString(err.Error()))
	case tok == nil:
		tbl.AddRow(bold.Sprint("session"), faint.Sprint("logged out"))
	default:
		state := "active"
		if !tok.Expiry.IsZero() {
			state = fmt.Sprintf("access token expires %s", tok.Expiry.Local().Format("2006-01-02 15:04"))
		}
		tbl.AddRow(bold.Sprint("session"), fmt.Sprintf("%s (%s)", tok.Username, state))
	}

	vm, err := n.Service.ViewModel()
	if err != nil {
		tbl.AddRow(bold.Sprint("working set"), color.RedString(err.Error()))
	} else if vm.CollectionID() == 0 {
		tbl.AddRow(bold.Sprint("working set"), faint.Sprint("none"))
	} else {
		line := fmt.Sprintf("collection %d, %d constants, page %d of %d", vm.CollectionID(), vm.Len(), vm.Cursor(), vm.TotalPages())
		if at, ok := vm.SavedAt(); ok {
			line += ", saved " + timeutil.Stamp(at, time.Now())
		}
		tbl.AddRow(bold.Sprint("working set"), line)
	}

	_, _ = fmt.Fprintln(color.Output, tbl)
	return nil
}
