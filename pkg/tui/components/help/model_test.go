package help

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestRendersKeyReference(t *testing.T) {
	m := New(80, 40)
	if err := m.Err(); err != nil {
		t.Fatalf("render: %v", err)
	}
	view := m.View()
	for _, want := range []string{"Collection console", "Filter panel"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in help; view=%q", want, view)
		}
	}
}

func TestSmallSizesAreClamped(t *testing.T) {
	m := New(4, 2)
	if m.width != 32 || m.height != 8 {
		t.Fatalf("expected clamped size, got %dx%d", m.width, m.height)
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyDown}); cmd != nil {
		t.Fatalf("scrolling should not emit commands")
	}
}
