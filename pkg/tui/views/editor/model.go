// Package editor renders the collection editor: the catalog pane on the
// left, the working set on the right. Gestures map onto the editor state
// machine; anything that needs the network is handed to the root model as an
// event.
package editor

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"tableflip.dev/colcon/pkg/catalog"
	"tableflip.dev/colcon/pkg/editor"
	"tableflip.dev/colcon/pkg/timeutil"
	"tableflip.dev/colcon/pkg/tui/events"
	"tableflip.dev/colcon/pkg/tui/theme"
	"tableflip.dev/colcon/pkg/tui/ui"
)

// Ensure Model satisfies the Component interface.
var _ ui.Component = (*Model)(nil)

// Pane identifies the focused side of the editor.
type Pane int

const (
	PaneCatalog Pane = iota
	PaneConstants
)

type keyMap struct {
	Switch  key.Binding
	Up      key.Binding
	Down    key.Binding
	PickUp  key.Binding
	Drop    key.Binding
	Cancel  key.Binding
	Delete  key.Binding
	Confirm key.Binding
	Refuse  key.Binding
	Prev    key.Binding
	Next    key.Binding
	Filter  key.Binding
	Save    key.Binding
	Reload  key.Binding
	Back    key.Binding
	Keys    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Switch:  key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "switch pane")),
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PickUp:  key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "pick up")),
		Drop:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "drop")),
		Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Delete:  key.NewBinding(key.WithKeys("d", "x", "delete"), key.WithHelp("d", "remove")),
		Confirm: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
		Refuse:  key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "keep")),
		Prev:    key.NewBinding(key.WithKeys("[", "left", "h"), key.WithHelp("[", "prev page")),
		Next:    key.NewBinding(key.WithKeys("]", "right", "l"), key.WithHelp("]", "next page")),
		Filter:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter")),
		Save:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
		Reload:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Back:    key.NewBinding(key.WithKeys("b", "backspace"), key.WithHelp("b", "collections")),
		// handled by the root model
		Keys: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "keys")),
	}
}

// Model is the editor screen.
type Model struct {
	ed    *editor.Editor
	keys  keyMap
	help  help.Model
	spin  spinner.Model
	theme theme.Theme

	focus      Pane
	catCursor  int
	catOffset  int
	constCur   int
	held       []byte
	heldKey    string
	confirming bool
	status     string
	statusErr  bool

	width  int
	height int
}

// New returns the editor screen over ed.
func New(ed *editor.Editor) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return &Model{
		ed:    ed,
		keys:  defaultKeys(),
		help:  help.New(),
		spin:  s,
		theme: theme.Default(),
	}
}

// Editor returns the state machine the view drives.
func (m *Model) Editor() *editor.Editor { return m.ed }

// Focus returns the focused pane.
func (m *Model) Focus() Pane { return m.focus }

// Held returns the key of the product being carried, if any.
func (m *Model) Held() string { return m.heldKey }

// Confirming reports whether a removal awaits confirmation.
func (m *Model) Confirming() bool { return m.confirming }

// Status returns the last status line.
func (m *Model) Status() string { return m.status }

// SetStatus shows a transient status line.
func (m *Model) SetStatus(s string) {
	m.status = s
	m.statusErr = false
}

// SetError shows a transient error line.
func (m *Model) SetError(s string) {
	m.status = s
	m.statusErr = true
}

// SetSize implements ui.Component.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width
}

// Init implements ui.Component.
func (m *Model) Init() tea.Cmd { return m.spin.Tick }

// Refresh re-clamps cursors after the store changed underneath the view.
func (m *Model) Refresh() {
	m.clampCursors()
	if m.heldKey != "" && m.ed.Store().Has(m.heldKey) {
		m.dropHeld()
	}
	if m.confirming && m.ed.Selected() == "" {
		m.confirming = false
	}
}

// Update implements ui.Component.
func (m *Model) Update(msg tea.Msg) (ui.Component, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.confirming {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			sel := m.ed.Selected()
			if m.ed.Delete(sel) {
				m.SetStatus("Removed " + sel)
			}
			m.confirming = false
			m.afterWrite()
		case key.Matches(msg, m.keys.Refuse):
			m.ed.ClearSelection()
			m.confirming = false
			m.SetStatus("")
		}
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.Switch):
		if m.focus == PaneCatalog {
			m.focus = PaneConstants
		} else if m.ed.CatalogVisible() {
			m.focus = PaneCatalog
		}
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Cancel):
		if m.heldKey != "" {
			m.dropHeld()
			m.SetStatus("Put back")
			break
		}
		m.ed.DismissMessage()
		m.SetStatus("")
	case key.Matches(msg, m.keys.PickUp):
		if m.focus == PaneCatalog {
			m.pickUp()
		}
	case key.Matches(msg, m.keys.Drop):
		if m.focus == PaneCatalog && m.heldKey == "" {
			if m.pickUp() {
				m.drop()
			}
			break
		}
		if m.heldKey != "" {
			m.drop()
		}
	case key.Matches(msg, m.keys.Delete):
		if m.focus != PaneConstants {
			break
		}
		page := m.ed.Store().Page()
		if m.constCur < len(page) {
			m.ed.Select(page[m.constCur].Key())
			m.confirming = true
		}
	case key.Matches(msg, m.keys.Prev):
		if m.focus == PaneConstants && m.ed.CanPrev() {
			m.ed.PrevPage()
			m.constCur = 0
			m.afterWrite()
		}
	case key.Matches(msg, m.keys.Next):
		if m.focus == PaneConstants && m.ed.CanNext() {
			m.ed.NextPage()
			m.constCur = 0
			m.afterWrite()
		}
	case key.Matches(msg, m.keys.Filter):
		if m.ed.CatalogVisible() {
			return events.Emit(events.OpenFilterMsg{})
		}
	case key.Matches(msg, m.keys.Save):
		at, err := m.ed.Save()
		if err != nil {
			m.SetError("Save failed: " + err.Error())
			break
		}
		m.SetStatus("Saved " + at.Local().Format("15:04:05"))
	case key.Matches(msg, m.keys.Reload):
		m.dropHeld()
		return events.Emit(events.ReloadMsg{})
	case key.Matches(msg, m.keys.Back):
		m.dropHeld()
		return events.Emit(events.BackMsg{})
	}
	return nil
}

func (m *Model) moveCursor(delta int) {
	if m.focus == PaneCatalog {
		m.catCursor += delta
	} else {
		m.constCur += delta
	}
	m.clampCursors()
}

func (m *Model) clampCursors() {
	if n := len(m.ed.Store().CatalogPage()); m.catCursor >= n {
		m.catCursor = n - 1
	}
	if m.catCursor < 0 {
		m.catCursor = 0
	}
	if n := len(m.ed.Store().Page()); m.constCur >= n {
		m.constCur = n - 1
	}
	if m.constCur < 0 {
		m.constCur = 0
	}
	if !m.ed.CatalogVisible() {
		m.focus = PaneConstants
	}
}

func (m *Model) highlighted() (catalog.Product, bool) {
	products := m.ed.Store().CatalogPage()
	if m.catCursor < 0 || m.catCursor >= len(products) {
		return catalog.Product{}, false
	}
	return products[m.catCursor], true
}

func (m *Model) pickUp() bool {
	p, ok := m.highlighted()
	if !ok {
		return false
	}
	payload, err := m.ed.DragPayload(p)
	if errors.Is(err, editor.ErrDuplicate) {
		m.SetStatus(p.DisplayName() + " is already in the collection")
		return false
	}
	if err != nil {
		m.SetError(err.Error())
		return false
	}
	m.held = payload
	m.heldKey = p.Key()
	m.SetStatus("Carrying " + p.DisplayName() + " · enter on the constants pane to drop")
	return true
}

func (m *Model) drop() {
	p, err := m.ed.Drop(m.held)
	m.dropHeld()
	var verr *editor.ValidationError
	switch {
	case errors.As(err, &verr):
		m.SetError("Dropped item is not a product")
		return
	case errors.Is(err, editor.ErrDuplicate):
		m.SetStatus(p.DisplayName() + " is already in the collection")
		return
	case err != nil:
		m.SetError(err.Error())
		return
	}
	m.SetStatus("Added " + p.DisplayName())
	m.afterWrite()
}

func (m *Model) dropHeld() {
	m.held = nil
	m.heldKey = ""
}

func (m *Model) afterWrite() {
	m.clampCursors()
	if err := m.ed.Store().Err(); err != nil {
		m.SetError("Not saved to disk: " + err.Error())
	}
}

// View implements ui.Component.
func (m *Model) View() string {
	width := m.width
	if width <= 0 {
		width = 100
	}
	height := m.height
	if height <= 0 {
		height = 30
	}
	bodyHeight := max(height-5, 6)

	header := m.renderHeader(width)
	var body string
	if m.ed.CatalogVisible() {
		left := width / 2
		right := width - left
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			m.renderCatalog(left, bodyHeight),
			m.renderConstants(right, bodyHeight))
	} else {
		body = m.renderConstants(width, bodyHeight)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.renderStatus(width), m.renderHelp())
}

func (m *Model) renderHeader(width int) string {
	title := fmt.Sprintf("Collection #%d", m.ed.CollectionID())
	if c, ok := m.ed.Collection(); ok && c.Name != "" {
		title += " · " + c.Name
	}
	parts := []string{m.theme.Pane.Title.Render(title), m.theme.Muted.Render(m.ed.State().String())}
	if at, ok := m.ed.Store().SavedAt(); ok {
		parts = append(parts, m.theme.Muted.Render("saved "+timeutil.Relative(at, time.Now())))
	}
	return truncate.StringWithTail(strings.Join(parts, "  "), uint(width), "…")
}

func (m *Model) paneStyle(p Pane, width, height int) lipgloss.Style {
	style := m.theme.Pane.Inactive
	if m.focus == p {
		style = m.theme.Pane.Active
	}
	return style.Width(width - 2).Height(height - 2)
}

func (m *Model) renderCatalog(width, height int) string {
	inner := width - 4
	products := m.ed.Store().CatalogPage()
	lines := []string{m.theme.Pane.Title.Render(fmt.Sprintf("Catalog (%d)", len(products)))}
	if chips := m.ed.Criteria().Chips(); len(chips) > 0 {
		rendered := make([]string, 0, len(chips))
		for _, c := range chips {
			rendered = append(rendered, m.theme.Chip.Render(c))
		}
		lines = append(lines, truncate.StringWithTail(strings.Join(rendered, " "), uint(inner), "…"))
	}

	switch m.ed.State() {
	case editor.StateLoading:
		lines = append(lines, m.spin.View()+" Loading catalog...")
		return m.paneStyle(PaneCatalog, width, height).Render(strings.Join(lines, "\n"))
	case editor.StateFiltering:
		lines = append(lines, m.spin.View()+" Filtering...")
	case editor.StateError:
		lines = append(lines, m.theme.Error.Render(m.ed.Message()), m.theme.Muted.Render("r to retry"))
		return m.paneStyle(PaneCatalog, width, height).Render(strings.Join(lines, "\n"))
	}
	if len(products) == 0 {
		lines = append(lines, m.theme.Muted.Render("No products match."))
	}

	rows := max(height-2-len(lines), 1)
	if m.catCursor < m.catOffset {
		m.catOffset = m.catCursor
	}
	if m.catCursor >= m.catOffset+rows {
		m.catOffset = m.catCursor - rows + 1
	}
	end := min(m.catOffset+rows, len(products))
	for i := m.catOffset; i < end; i++ {
		p := products[i]
		marker := "  "
		style := m.theme.Product.Normal
		switch {
		case p.Key() == m.heldKey:
			marker = "» "
			style = m.theme.Product.Held
		case m.ed.Store().Has(p.Key()):
			marker = "✓ "
			style = m.theme.Product.Pinned
		}
		line := marker + productLine(p, inner-2)
		if m.focus == PaneCatalog && i == m.catCursor {
			style = m.theme.Product.Cursor
		}
		lines = append(lines, style.Render(line))
	}
	return m.paneStyle(PaneCatalog, width, height).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderConstants(width, height int) string {
	inner := width - 4
	store := m.ed.Store()
	lines := []string{m.theme.Pane.Title.Render(fmt.Sprintf("Constants (%d)", store.Len()))}
	if m.ed.Forbidden() {
		lines = append(lines, m.theme.Error.Render(m.ed.Message()))
	}
	page := store.Page()
	if len(page) == 0 {
		hint := "Empty. Pick up products from the catalog with v."
		if m.heldKey != "" {
			hint = "Press enter to drop " + m.heldKey + " here."
		}
		lines = append(lines, m.theme.Muted.Render(hint))
	}
	for i, p := range page {
		style := m.theme.Product.Normal
		if p.Key() == m.ed.Selected() {
			style = m.theme.Product.Selected
		} else if m.focus == PaneConstants && i == m.constCur {
			style = m.theme.Product.Cursor
		}
		lines = append(lines, style.Render("  "+productLine(p, inner-2)))
	}
	for len(lines) < height-3 {
		lines = append(lines, "")
	}
	lines = append(lines, m.renderPager())
	return m.paneStyle(PaneConstants, width, height).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderPager() string {
	prev, next := "‹", "›"
	if !m.ed.CanPrev() {
		prev = m.theme.Muted.Render(prev)
	}
	if !m.ed.CanNext() {
		next = m.theme.Muted.Render(next)
	}
	return fmt.Sprintf("%s Page %d of %d %s", prev, m.ed.Store().Cursor(), max(m.ed.TotalPages(), 1), next)
}

func (m *Model) renderStatus(width int) string {
	text := m.status
	style := m.theme.Footer.Status
	if m.statusErr {
		style = m.theme.Footer.Error
	}
	if m.confirming {
		text = fmt.Sprintf("Remove %s from the collection? y/n", m.ed.Selected())
		style = m.theme.Footer.Error
	} else if text == "" && m.ed.State() != editor.StateError && m.ed.Message() != "" {
		text = m.ed.Message()
		style = m.theme.Footer.Error
	}
	return style.Render(truncate.StringWithTail(text, uint(width), "…"))
}

func (m *Model) renderHelp() string {
	k := m.keys
	bindings := []key.Binding{k.Switch, k.PickUp, k.Drop, k.Delete, k.Prev, k.Next, k.Filter, k.Save, k.Reload, k.Back, k.Keys}
	if m.confirming {
		bindings = []key.Binding{k.Confirm, k.Refuse}
	}
	return m.help.ShortHelpView(bindings)
}

func productLine(p catalog.Product, width int) string {
	text := p.DisplayName() + "  " + p.Key()
	if p.OutOfStock {
		text += "  (out of stock)"
	}
	if width < 1 {
		width = 1
	}
	return truncate.StringWithTail(text, uint(width), "…")
}
