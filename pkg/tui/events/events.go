// Package events holds the messages components emit to the root model.
package events

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"tableflip.dev/colcon/pkg/filter"
)

// ComponentID uniquely identifies a component instance emitting events.
type ComponentID string

// LoginSubmitMsg is emitted when the operator submits credentials.
type LoginSubmitMsg struct {
	Component ComponentID
	Username  string
	Password  string
}

// Describe renders the submission for logs without the password.
func (m LoginSubmitMsg) Describe() string {
	return fmt.Sprintf(`user:%q`, m.Username)
}

// CollectionSelectMsg is emitted when a collection is opened for editing.
type CollectionSelectMsg struct {
	Component ComponentID
	ID        int
	Name      string
}

// Describe renders the selection for logs.
func (m CollectionSelectMsg) Describe() string {
	return fmt.Sprintf(`id:%d name:%q`, m.ID, m.Name)
}

// FilterApplyMsg carries the values confirmed in the filter panel. It is
// emitted on apply and on clear, never while fields are being edited.
type FilterApplyMsg struct {
	Component ComponentID
	Values    filter.Values
	Cleared   bool
}

// Describe renders the criteria for logs.
func (m FilterApplyMsg) Describe() string {
	return fmt.Sprintf(`criteria:%d cleared:%t`, len(m.Values.Criteria()), m.Cleared)
}

// FilterCloseMsg is emitted when the filter panel is dismissed unchanged.
type FilterCloseMsg struct {
	Component ComponentID
}

// Emit wraps msg in a command.
func Emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// OpenFilterMsg asks the root model to show the filter panel.
type OpenFilterMsg struct{}

// ReloadMsg asks the root model to re-run the editor's load requests.
type ReloadMsg struct{}

// BackMsg asks the root model to leave the editor for the collection list.
type BackMsg struct{}
