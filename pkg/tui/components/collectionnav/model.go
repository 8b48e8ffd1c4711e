package collectionnav

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"tableflip.dev/colcon/pkg/catalog"
	"tableflip.dev/colcon/pkg/tui/events"
)

// ID identifies the collection list in emitted events.
const ID events.ComponentID = "collectionnav"

// Model wraps a bubbles list for collection navigation.
type Model struct {
	list list.Model
}

// NewModel constructs the nav list with the provided collections.
func NewModel(collections []catalog.Collection) *Model {
	delegate := list.NewDefaultDelegate()
	l := list.New(itemsFrom(collections), delegate, 0, 0)
	l.Title = "Collections"
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.SetStatusBarItemName("collection", "collections")
	return &Model{list: l}
}

// SetItems replaces the rendered collections, keeping the cursor on the
// same collection id when it is still listed.
func (m *Model) SetItems(collections []catalog.Collection) {
	prev, hadPrev := m.Selected()
	m.list.SetItems(itemsFrom(collections))
	if !hadPrev {
		return
	}
	for i, c := range collections {
		if c.ID == prev.ID {
			m.list.Select(i)
			return
		}
	}
}

// Len returns the number of collections listed.
func (m *Model) Len() int { return len(m.list.Items()) }

// Selected returns the highlighted collection.
func (m *Model) Selected() (catalog.Collection, bool) {
	it, ok := m.list.SelectedItem().(collectionItem)
	if !ok {
		return catalog.Collection{}, false
	}
	return it.c, true
}

// Filtering reports whether the list filter prompt owns the keyboard.
func (m *Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd { return nil }

// Update forwards Bubble Tea messages to the list. Enter on a collection
// emits events.CollectionSelectMsg.
func (m *Model) Update(msg tea.Msg) (*Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" && !m.Filtering() {
		if c, ok := m.Selected(); ok {
			return m, events.Emit(events.CollectionSelectMsg{Component: ID, ID: c.ID, Name: c.Name})
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the list.
func (m *Model) View() string {
	return m.list.View()
}

func itemsFrom(collections []catalog.Collection) []list.Item {
	items := make([]list.Item, 0, len(collections))
	for _, c := range collections {
		items = append(items, collectionItem{c: c})
	}
	return items
}

type collectionItem struct {
	c catalog.Collection
}

func (i collectionItem) Title() string { return fmt.Sprintf("#%d  %s", i.c.ID, i.c.Name) }

func (i collectionItem) Description() string {
	return fmt.Sprintf("channel %d · filters: %s", i.c.SalesChannelID, i.c.FilterSummary())
}

func (i collectionItem) FilterValue() string { return i.c.Name }
