// Package login is the credential form shown while no session is held.
package login

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tableflip.dev/colcon/pkg/tui/events"
	"tableflip.dev/colcon/pkg/tui/theme"
)

// ID identifies the login form in emitted events.
const ID events.ComponentID = "login"

// Model is a two-field username/password form.
type Model struct {
	username textinput.Model
	password textinput.Model
	focus    int
	busy     bool
	err      string
	notice   string
	width    int
	theme    theme.Theme
}

// New returns a form with the username field focused. username may be empty.
func New(username string) *Model {
	u := textinput.New()
	u.Prompt = "Username: "
	u.Placeholder = "operator"
	u.CharLimit = 128
	u.SetValue(username)

	p := textinput.New()
	p.Prompt = "Password: "
	p.EchoMode = textinput.EchoPassword
	p.EchoCharacter = '•'
	p.CharLimit = 128

	m := &Model{username: u, password: p, theme: theme.Default()}
	if username != "" {
		m.focus = 1
	}
	m.applyFocus()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd { return textinput.Blink }

// SetWidth bounds the rendered form.
func (m *Model) SetWidth(w int) { m.width = w }

// SetBusy marks the form as waiting for the service.
func (m *Model) SetBusy(b bool) { m.busy = b }

// SetError shows err under the form and clears the password.
func (m *Model) SetError(err string) {
	m.err = err
	m.busy = false
	m.password.SetValue("")
	m.focus = 1
	m.applyFocus()
}

// SetNotice shows an informational line above the form, e.g. why the
// operator was sent here.
func (m *Model) SetNotice(s string) { m.notice = s }

// Reset clears the password and any error, keeping the username.
func (m *Model) Reset() {
	m.err = ""
	m.busy = false
	m.password.SetValue("")
}

func (m *Model) applyFocus() {
	if m.focus == 0 {
		m.username.Focus()
		m.password.Blur()
		return
	}
	m.username.Blur()
	m.password.Focus()
}

// Update handles key input. Enter on the password field submits.
func (m *Model) Update(msg tea.Msg) (*Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		if m.busy {
			return m, nil
		}
		switch key.String() {
		case "tab", "down", "shift+tab", "up":
			m.focus = 1 - m.focus
			m.applyFocus()
			return m, nil
		case "enter":
			if m.focus == 0 {
				m.focus = 1
				m.applyFocus()
				return m, nil
			}
			return m, m.submit()
		}
	}
	var cmd tea.Cmd
	if m.focus == 0 {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m *Model) submit() tea.Cmd {
	user := strings.TrimSpace(m.username.Value())
	pass := m.password.Value()
	if user == "" || pass == "" {
		m.err = "username and password are required"
		return nil
	}
	m.err = ""
	m.busy = true
	return events.Emit(events.LoginSubmitMsg{Component: ID, Username: user, Password: pass})
}

// View renders the form.
func (m *Model) View() string {
	lines := []string{m.theme.Modal.Title.Render("Sign in to the catalog service"), ""}
	if m.notice != "" {
		lines = append(lines, m.theme.Muted.Render(m.notice), "")
	}
	lines = append(lines, m.username.View(), m.password.View(), "")
	switch {
	case m.busy:
		lines = append(lines, m.theme.Muted.Render("Signing in..."))
	case m.err != "":
		lines = append(lines, m.theme.Error.Render(m.err))
	default:
		lines = append(lines, m.theme.Footer.Help.Render("enter submit · tab switch field · ctrl+c quit"))
	}
	frame := m.theme.Modal.Frame
	if m.width > 0 {
		frame = frame.Width(min(m.width-2, 60))
	}
	return frame.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
