// Package filterpanel renders the catalog filter form. Editing fields only
// changes the form; a query is requested through events.FilterApplyMsg when
// the operator applies or clears.
package filterpanel

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tableflip.dev/colcon/pkg/catalog"
	"tableflip.dev/colcon/pkg/filter"
	"tableflip.dev/colcon/pkg/tui/events"
	"tableflip.dev/colcon/pkg/tui/theme"
)

// ID identifies the panel in emitted events.
const ID events.ComponentID = "filterpanel"

type field int

const (
	fieldStock field = iota
	fieldYear
	fieldProductCode
	fieldMinStock
	fieldMaxStock
	fieldAllSizes
	fieldChips
	fieldCount
)

// Model is the filter panel overlay.
type Model struct {
	panel *filter.Panel
	focus field
	chip  int
	err   string
	width int
	theme theme.Theme

	inputs map[field]*textinput.Model
}

// New builds the panel seeded with the collection's options.
func New(options, selected []catalog.Filter) *Model {
	m := &Model{
		panel:  filter.NewPanel(options, selected),
		theme:  theme.Default(),
		inputs: make(map[field]*textinput.Model, 4),
	}
	for _, f := range []field{fieldYear, fieldProductCode, fieldMinStock, fieldMaxStock} {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 64
		m.inputs[f] = &ti
	}
	m.inputs[fieldYear].CharLimit = 4
	m.syncInputs()
	return m
}

// Seed reseeds the panel when the collection's stored filters arrive.
func (m *Model) Seed(options, selected []catalog.Filter) {
	m.panel.Seed(options, selected)
	m.err = ""
	m.chip = 0
	m.syncInputs()
}

// Panel exposes the underlying form state.
func (m *Model) Panel() *filter.Panel { return m.panel }

// Err returns the last validation error shown.
func (m *Model) Err() string { return m.err }

// SetWidth bounds the rendered panel.
func (m *Model) SetWidth(w int) { m.width = w }

// Focus moves the cursor to the first field.
func (m *Model) Focus() tea.Cmd {
	m.focus = fieldStock
	m.err = ""
	m.applyFocus()
	return nil
}

func (m *Model) syncInputs() {
	v := m.panel.Values()
	m.inputs[fieldYear].SetValue(v.Year)
	m.inputs[fieldProductCode].SetValue(v.ProductCode)
	m.inputs[fieldMinStock].SetValue(v.MinStock)
	m.inputs[fieldMaxStock].SetValue(v.MaxStock)
}

func (m *Model) applyFocus() {
	for f, ti := range m.inputs {
		if f == m.focus {
			ti.Focus()
		} else {
			ti.Blur()
		}
	}
}

func (m *Model) move(delta int) {
	m.focus = field((int(m.focus) + delta + int(fieldCount)) % int(fieldCount))
	m.applyFocus()
}

// stockChoices lists the values the stock field cycles through; the first
// is "any".
func (m *Model) stockChoices() []string {
	out := []string{""}
	for _, f := range m.panel.StockOptions() {
		out = append(out, f.Value)
	}
	return out
}

func (m *Model) cycleStock(delta int) {
	choices := m.stockChoices()
	cur := 0
	for i, c := range choices {
		if c == m.panel.Values().StockStatus {
			cur = i
			break
		}
	}
	next := (cur + delta + len(choices)) % len(choices)
	m.panel.SetStockStatus(choices[next])
}

func (m *Model) stockLabel(value string) string {
	switch value {
	case "":
		return "any"
	case filter.StockIn, filter.StockOut:
		return filter.StockLabel(value)
	}
	for _, f := range m.panel.StockOptions() {
		if f.Value == value {
			return f.Label()
		}
	}
	return value
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd { return nil }

// Update handles key input.
func (m *Model) Update(msg tea.Msg) (*Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "esc":
		return m, events.Emit(events.FilterCloseMsg{Component: ID})
	case "enter", "ctrl+s":
		return m, m.apply()
	case "ctrl+x":
		values := m.panel.Clear()
		m.syncInputs()
		m.err = ""
		return m, events.Emit(events.FilterApplyMsg{Component: ID, Values: values, Cleared: true})
	case "tab", "down":
		m.move(1)
		return m, nil
	case "shift+tab", "up":
		m.move(-1)
		return m, nil
	}

	switch m.focus {
	case fieldStock:
		switch key.String() {
		case "left", "h":
			m.cycleStock(-1)
		case "right", "l", " ":
			m.cycleStock(1)
		}
		return m, nil
	case fieldAllSizes:
		switch key.String() {
		case " ", "left", "right", "x":
			m.panel.ToggleAllSizesInStock()
		}
		return m, nil
	case fieldChips:
		chips := m.panel.Chips()
		switch key.String() {
		case "left", "h":
			if m.chip > 0 {
				m.chip--
			}
		case "right", "l":
			if m.chip < len(chips)-1 {
				m.chip++
			}
		case "backspace", "delete", "x":
			if m.chip < len(chips) {
				m.panel.RemoveChip(chips[m.chip])
				if m.chip > 0 && m.chip >= len(chips)-1 {
					m.chip--
				}
			}
		}
		return m, nil
	}

	ti := m.inputs[m.focus]
	updated, cmd := ti.Update(msg)
	*ti = updated
	m.store(m.focus, ti.Value())
	return m, cmd
}

func (m *Model) store(f field, v string) {
	switch f {
	case fieldYear:
		m.panel.SetYear(v)
	case fieldProductCode:
		m.panel.SetProductCode(v)
	case fieldMinStock:
		m.panel.SetMinStock(v)
	case fieldMaxStock:
		m.panel.SetMaxStock(v)
	}
}

func (m *Model) apply() tea.Cmd {
	values, err := m.panel.Apply()
	if err != nil {
		m.err = strings.TrimPrefix(err.Error(), "filter: ")
		return nil
	}
	m.err = ""
	m.chip = 0
	m.syncInputs()
	return events.Emit(events.FilterApplyMsg{Component: ID, Values: values})
}

// View renders the panel.
func (m *Model) View() string {
	v := m.panel.Values()
	row := func(f field, label, value string) string {
		style := m.theme.Modal.Field
		marker := "  "
		if f == m.focus {
			style = m.theme.Modal.Focus
			marker = "> "
		}
		return marker + style.Render(padRight(label, 20)) + value
	}
	check := "[ ]"
	if v.AllSizesInStock {
		check = "[x]"
	}

	lines := []string{
		m.theme.Modal.Title.Render("Filter catalog"),
		"",
		row(fieldStock, "Stock status", "< "+m.stockLabel(v.StockStatus)+" >"),
		row(fieldYear, "Year", m.inputs[fieldYear].View()),
		row(fieldProductCode, "Product code", m.inputs[fieldProductCode].View()),
		row(fieldMinStock, "Min stock", m.inputs[fieldMinStock].View()),
		row(fieldMaxStock, "Max stock", m.inputs[fieldMaxStock].View()),
		row(fieldAllSizes, "All sizes in stock", check),
		row(fieldChips, "Applied", m.renderChips()),
	}
	if years := m.panel.YearOptions(); len(years) > 0 {
		labels := make([]string, 0, len(years))
		for _, y := range years {
			labels = append(labels, y.Label())
		}
		lines = append(lines, m.theme.Muted.Render("  years offered: "+strings.Join(labels, ", ")))
	}
	lines = append(lines, "")
	if m.err != "" {
		lines = append(lines, m.theme.Error.Render(m.err))
	}
	lines = append(lines, m.theme.Footer.Help.Render("enter apply · ctrl+x clear · tab next field · esc close"))

	frame := m.theme.Modal.Frame
	if m.width > 0 {
		frame = frame.Width(min(m.width-2, 72))
	}
	return frame.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) renderChips() string {
	chips := m.panel.Chips()
	if len(chips) == 0 {
		return m.theme.Muted.Render("none")
	}
	parts := make([]string, 0, len(chips))
	for i, c := range chips {
		style := m.theme.Chip
		if m.focus == fieldChips && i == m.chip {
			style = style.Reverse(true)
		}
		parts = append(parts, style.Render(c))
	}
	return strings.Join(parts, " ")
}

func padRight(s string, n int) string {
	if w := lipgloss.Width(s); w < n {
		return s + strings.Repeat(" ", n-w)
	}
	return s
}
