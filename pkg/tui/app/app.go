// Package teaui hosts the Bubble Tea program for the collection console.
package teaui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"tableflip.dev/colcon/pkg/api"
	"tableflip.dev/colcon/pkg/app"
	"tableflip.dev/colcon/pkg/catalog"
	"tableflip.dev/colcon/pkg/editor"
	"tableflip.dev/colcon/pkg/session"
	"tableflip.dev/colcon/pkg/store"
	"tableflip.dev/colcon/pkg/tui/components/collectionnav"
	"tableflip.dev/colcon/pkg/tui/components/filterpanel"
	"tableflip.dev/colcon/pkg/tui/components/help"
	"tableflip.dev/colcon/pkg/tui/components/login"
	"tableflip.dev/colcon/pkg/tui/events"
	"tableflip.dev/colcon/pkg/tui/theme"
	editorview "tableflip.dev/colcon/pkg/tui/views/editor"
)

type screen int

const (
	screenLogin screen = iota
	screenList
	screenEditor
)

func (s screen) String() string {
	switch s {
	case screenLogin:
		return "login"
	case screenList:
		return "list"
	case screenEditor:
		return "editor"
	default:
		return fmt.Sprintf("screen(%d)", int(s))
	}
}

// Model is the root model. It owns every I/O command; the components only
// emit events.
type Model struct {
	svc    *app.Service
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger
	theme  theme.Theme

	screen     screen
	startID    int
	filterOpen bool
	helpOpen   bool
	// resume is set when a 401 interrupted the editor; after login the
	// editor reloads instead of returning to the list.
	resume bool

	login  *login.Model
	nav    *collectionnav.Model
	ed     *editor.Editor
	view   *editorview.Model
	filter *filterpanel.Model
	help   *help.Model

	watchCh     <-chan store.Event
	watchCancel context.CancelFunc

	listLoading bool
	listErr     string
	status      string

	termWidth  int
	termHeight int
}

// New creates a new UI model backed by the Service. A non-zero collectionID
// opens that collection straight away once a session exists.
func New(svc *app.Service, collectionID int) *Model {
	ctx, cancel := context.WithCancel(context.Background())
	log := zap.NewNop()
	if svc != nil && svc.Log != nil {
		log = svc.Log.Named("tui")
	}
	return &Model{
		svc:     svc,
		ctx:     ctx,
		cancel:  cancel,
		log:     log,
		theme:   theme.Default(),
		startID: collectionID,
		login:   login.New(""),
		nav:     collectionnav.NewModel(nil),
		filter:  filterpanel.New(nil, nil),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{startWatchCmd(m.ctx, m.svc)}
	if !m.authenticated() {
		m.screen = screenLogin
		return tea.Batch(append(cmds, m.login.Init())...)
	}
	return tea.Batch(append(cmds, m.enter())...)
}

// enter leaves the login screen for wherever the operator was headed.
func (m *Model) enter() tea.Cmd {
	switch {
	case m.resume && m.ed != nil:
		m.resume = false
		m.screen = screenEditor
		return m.reload()
	case m.startID > 0:
		id := m.startID
		m.startID = 0
		return m.mount(id)
	default:
		m.screen = screenList
		return m.loadCollections()
	}
}

func (m *Model) authenticated() bool {
	if m.svc == nil || m.svc.Session == nil {
		return false
	}
	tok, err := m.svc.Session.Current()
	return err == nil && tok != nil
}

func (m *Model) requireLogin(notice string) tea.Cmd {
	m.log.Info("login required", zap.Stringer("from", m.screen))
	if m.screen == screenEditor {
		m.resume = true
	}
	m.screen = screenLogin
	m.filterOpen = false
	m.helpOpen = false
	m.login.Reset()
	m.login.SetNotice(notice)
	return m.login.Init()
}

func (m *Model) ensureEditor() error {
	if m.ed != nil {
		return nil
	}
	if m.svc == nil {
		return app.ErrNoAPI
	}
	vm, err := m.svc.ViewModel()
	if err != nil {
		return err
	}
	m.ed = editor.New(vm,
		editor.WithLogger(m.svc.Log.Named("editor")),
		editor.WithCatalogPageSize(m.svc.Config.CatalogPageSize()))
	return nil
}

func (m *Model) mount(id int) tea.Cmd {
	if err := m.ensureEditor(); err != nil {
		m.status = "ERR: " + err.Error()
		m.screen = screenList
		return nil
	}
	catReq, colReq := m.ed.Mount(id)
	m.view = editorview.New(m.ed)
	m.view.SetSize(m.termWidth, m.termHeight)
	m.filter.Seed(nil, nil)
	m.filterOpen = false
	m.screen = screenEditor
	m.status = ""
	m.log.Info("editing collection", zap.Int("collection", id))
	return tea.Batch(m.view.Init(), m.runCatalog(catReq), m.runCollections(colReq))
}

func (m *Model) reload() tea.Cmd {
	catReq, colReq := m.ed.Reload()
	m.view.Refresh()
	return tea.Batch(m.view.Init(), m.runCatalog(catReq), m.runCollections(colReq))
}

// leaveEditor returns to the list. Requests still in flight are not
// cancelled; their results are dropped by tag when the next mount starts.
func (m *Model) leaveEditor() tea.Cmd {
	m.filterOpen = false
	m.screen = screenList
	return m.loadCollections()
}

type collectionsLoadedMsg struct {
	collections []catalog.Collection
	err         error
}

type loginResultMsg struct{ err error }

type catalogResultMsg struct{ res editor.CatalogResult }

type collectionsResultMsg struct{ res editor.CollectionsResult }

func (m *Model) loadCollections() tea.Cmd {
	if m.svc == nil {
		return nil
	}
	m.listLoading = true
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		cols, err := svc.Collections(ctx)
		return collectionsLoadedMsg{collections: cols, err: err}
	}
}

func (m *Model) runCatalog(req editor.CatalogRequest) tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		if svc == nil || svc.Catalog == nil {
			return catalogResultMsg{res: editor.CatalogResult{Tag: req.Tag, Filtering: req.Filtering, Err: app.ErrNoAPI}}
		}
		res := req.Do(ctx, svc.Catalog)
		_ = svc.Check(res.Err)
		return catalogResultMsg{res: res}
	}
}

func (m *Model) runCollections(req editor.CollectionsRequest) tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		if svc == nil || svc.Catalog == nil {
			return collectionsResultMsg{res: editor.CollectionsResult{Tag: req.Tag, Err: app.ErrNoAPI}}
		}
		res := req.Do(ctx, svc.Catalog)
		_ = svc.Check(res.Err)
		return collectionsResultMsg{res: res}
	}
}

func (m *Model) submitLogin(msg events.LoginSubmitMsg) tea.Cmd {
	m.log.Debug("login submitted", zap.String("event", msg.Describe()))
	if m.svc == nil {
		return func() tea.Msg { return loginResultMsg{err: app.ErrNoAPI} }
	}
	svc, ctx := m.svc, m.ctx
	creds := session.Credentials{Username: msg.Username, Password: msg.Password}
	return func() tea.Msg {
		_, err := svc.Login(ctx, creds)
		return loginResultMsg{err: err}
	}
}

func loginErrorText(err error) string {
	switch {
	case errors.Is(err, app.ErrNoAPI):
		return err.Error()
	case errors.Is(err, api.ErrUnauthorized):
		return "Invalid username or password."
	default:
		return api.Describe(err)
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.termWidth = msg.Width
		m.termHeight = msg.Height
		m.applySizes()
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.shutdown()
			return m, tea.Quit
		}
		cmds = append(cmds, m.handleKey(msg))
	case spinner.TickMsg:
		if m.view != nil {
			_, cmd := m.view.Update(msg)
			cmds = append(cmds, cmd)
		}
	case events.LoginSubmitMsg:
		cmds = append(cmds, m.submitLogin(msg))
	case loginResultMsg:
		if msg.err != nil {
			m.log.Warn("login failed", zap.Error(msg.err))
			m.login.SetError(loginErrorText(msg.err))
			break
		}
		m.login.Reset()
		m.login.SetNotice("")
		cmds = append(cmds, m.enter())
	case collectionsLoadedMsg:
		m.listLoading = false
		if msg.err != nil {
			if errors.Is(msg.err, api.ErrUnauthorized) {
				cmds = append(cmds, m.requireLogin("Your session has expired. Sign in again."))
				break
			}
			m.log.Warn("list collections", zap.Error(msg.err))
			m.listErr = api.Describe(msg.err)
			break
		}
		m.listErr = ""
		m.nav.SetItems(msg.collections)
	case events.CollectionSelectMsg:
		m.log.Debug("collection selected", zap.String("event", msg.Describe()))
		cmds = append(cmds, m.mount(msg.ID))
	case catalogResultMsg:
		if m.ed == nil {
			break
		}
		if m.ed.ApplyCatalog(msg.res) {
			m.view.Refresh()
		}
		if m.ed.LoginRequired() && m.screen == screenEditor {
			cmds = append(cmds, m.requireLogin("Your session has expired. Sign in again to keep editing."))
		}
	case collectionsResultMsg:
		if m.ed == nil {
			break
		}
		if m.ed.ApplyCollections(msg.res) && msg.res.Err == nil {
			m.filter.Seed(m.ed.FilterOptions())
		}
		if m.ed.LoginRequired() && m.screen == screenEditor {
			cmds = append(cmds, m.requireLogin("Your session has expired. Sign in again to keep editing."))
		}
	case events.OpenFilterMsg:
		m.filterOpen = true
		cmds = append(cmds, m.filter.Focus())
	case events.FilterCloseMsg:
		m.filterOpen = false
	case events.FilterApplyMsg:
		m.log.Debug("filter applied", zap.String("event", msg.Describe()))
		m.filterOpen = false
		if m.ed == nil {
			break
		}
		req, err := m.ed.BeginFilter(msg.Values)
		if err != nil {
			m.view.SetError(err.Error())
			break
		}
		cmds = append(cmds, m.view.Init(), m.runCatalog(req))
	case events.ReloadMsg:
		if m.ed != nil {
			cmds = append(cmds, m.reload())
		}
	case events.BackMsg:
		cmds = append(cmds, m.leaveEditor())
	case watchStartedMsg:
		if msg.err != nil {
			m.log.Warn("watch", zap.Error(msg.err))
			break
		}
		m.stopWatch()
		m.watchCh = msg.ch
		m.watchCancel = msg.cancel
		cmds = append(cmds, m.waitForWatch())
	case watchEventMsg:
		m.handleWatchEvent(msg.event, &cmds)
		cmds = append(cmds, m.waitForWatch())
	case watchStoppedMsg:
		m.stopWatch()
		if m.ctx.Err() == nil {
			cmds = append(cmds, startWatchCmd(m.ctx, m.svc))
		}
	default:
		if m.screen == screenList {
			var cmd tea.Cmd
			m.nav, cmd = m.nav.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.helpOpen {
		switch msg.String() {
		case "?", "esc", "q":
			m.helpOpen = false
			return nil
		}
		_, cmd := m.help.Update(msg)
		return cmd
	}
	if msg.String() == "?" && m.canShowHelp() {
		m.openHelp()
		return nil
	}
	switch m.screen {
	case screenLogin:
		var cmd tea.Cmd
		m.login, cmd = m.login.Update(msg)
		return cmd
	case screenList:
		if !m.nav.Filtering() {
			switch msg.String() {
			case "q":
				m.shutdown()
				return tea.Quit
			case "r":
				return m.loadCollections()
			}
		}
		var cmd tea.Cmd
		m.nav, cmd = m.nav.Update(msg)
		return cmd
	case screenEditor:
		if m.filterOpen {
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			return cmd
		}
		if msg.String() == "q" && !m.view.Confirming() {
			m.shutdown()
			return tea.Quit
		}
		_, cmd := m.view.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) canShowHelp() bool {
	switch m.screen {
	case screenList:
		return !m.nav.Filtering()
	case screenEditor:
		return !m.filterOpen && !m.view.Confirming()
	}
	return false
}

func (m *Model) openHelp() {
	if m.help == nil {
		m.help = help.New(m.helpSize())
	}
	m.helpOpen = true
}

func (m *Model) helpSize() (int, int) {
	return min(max(m.termWidth-4, 1), 90), max(m.termHeight-2, 1)
}

func (m *Model) applySizes() {
	m.login.SetWidth(m.termWidth)
	m.filter.SetWidth(m.termWidth)
	m.nav.SetSize(m.termWidth, max(m.termHeight-2, 1))
	if m.view != nil {
		m.view.SetSize(m.termWidth, m.termHeight)
	}
	if m.help != nil {
		m.help.SetSize(m.helpSize())
	}
}

func (m *Model) shutdown() {
	m.stopWatch()
	m.cancel()
}

// View implements tea.Model.
func (m *Model) View() string {
	width, height := m.termWidth, m.termHeight
	if width <= 0 {
		width = 100
	}
	if height <= 0 {
		height = 30
	}
	if m.helpOpen {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, m.help.View())
	}
	switch m.screen {
	case screenLogin:
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, m.login.View())
	case screenEditor:
		if m.filterOpen {
			return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, m.filter.View())
		}
		return m.view.View()
	default:
		return m.listView()
	}
}

func (m *Model) listView() string {
	body := m.nav.View()
	var footer string
	switch {
	case m.listLoading && m.nav.Len() == 0:
		footer = m.theme.Muted.Render("Loading collections...")
	case m.listErr != "":
		footer = m.theme.Error.Render(m.listErr) + m.theme.Footer.Help.Render("  r retry")
	case m.status != "":
		footer = m.theme.Footer.Status.Render(m.status)
	default:
		footer = m.theme.Footer.Help.Render("enter edit · / search · r refresh · ? keys · q quit")
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, footer)
}

// Run launches the Bubble Tea program.
func Run(svc *app.Service, collectionID int) error {
	m := New(svc, collectionID)
	defer m.shutdown()
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
