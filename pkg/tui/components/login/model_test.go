package login

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflip.dev/colcon/pkg/tui/events"
)

func typeText(m *Model, s string) {
	for _, r := range s {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestSubmitEmitsCredentials(t *testing.T) {
	m := New("")
	typeText(m, "  ana ")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	typeText(m, "s3cret")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg, ok := cmd().(events.LoginSubmitMsg)
	require.True(t, ok)
	assert.Equal(t, "ana", msg.Username)
	assert.Equal(t, "s3cret", msg.Password)
	assert.NotContains(t, msg.Describe(), "s3cret")
	assert.Contains(t, m.View(), "Signing in...")
}

func TestMissingFieldsAreReported(t *testing.T) {
	m := New("ana")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "username and password are required")
}

func TestBusyFormIgnoresKeys(t *testing.T) {
	m := New("ana")
	typeText(m, "pw")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd, "a second submit while busy")
}

func TestErrorClearsPassword(t *testing.T) {
	m := New("ana")
	typeText(m, "wrong")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.SetError("invalid credentials")

	view := m.View()
	assert.Contains(t, view, "invalid credentials")
	assert.False(t, strings.Contains(view, "•"), "password echo should be empty after an error")

	typeText(m, "right")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, "right", cmd().(events.LoginSubmitMsg).Password)
}
