package editor

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"tableflip.dev/colcon/pkg/api"
	"tableflip.dev/colcon/pkg/catalog"
	"tableflip.dev/colcon/pkg/editor"
	"tableflip.dev/colcon/pkg/tui/events"
	"tableflip.dev/colcon/pkg/viewmodel"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;:]*[A-Za-z~]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func keyRunes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func products(n int) []catalog.Product {
	out := make([]catalog.Product, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, catalog.Product{ProductCode: fmt.Sprintf("P%02d", i), ColorCode: "BLK"})
	}
	return out
}

// ready returns a view over collection 7 whose catalog page holds n products.
func ready(t *testing.T, n int) *Model {
	t.Helper()
	ed := editor.New(viewmodel.New())
	catReq, _ := ed.Mount(7)
	if !ed.ApplyCatalog(editor.CatalogResult{Tag: catReq.Tag, Page: &catalog.ProductPage{Data: products(n)}}) {
		t.Fatalf("catalog result dropped")
	}
	m := New(ed)
	m.SetSize(120, 30)
	return m
}

func press(m *Model, keys ...tea.KeyMsg) tea.Cmd {
	var last tea.Cmd
	for _, k := range keys {
		_, last = m.Update(k)
	}
	return last
}

func TestEnterOnCatalogAddsProduct(t *testing.T) {
	m := ready(t, 3)

	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	store := m.Editor().Store()
	if store.Len() != 1 || !store.Has("P00-BLK") {
		t.Fatalf("expected P00-BLK pinned, have %v", store.MembershipIndex())
	}

	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if store.Len() != 1 {
		t.Fatalf("duplicate add grew the working set to %d", store.Len())
	}
	if !strings.Contains(m.Status(), "already in the collection") {
		t.Fatalf("expected duplicate status, got %q", m.Status())
	}
}

func TestPickUpThenDropOnConstants(t *testing.T) {
	m := ready(t, 3)

	press(m, keyRunes("j"), keyRunes("v"))
	if m.Held() != "P01-BLK" {
		t.Fatalf("expected P01-BLK held, got %q", m.Held())
	}
	if m.Editor().Store().Len() != 0 {
		t.Fatalf("pick up must not change the working set")
	}

	press(m, tea.KeyMsg{Type: tea.KeyTab}, tea.KeyMsg{Type: tea.KeyEnter})
	if m.Held() != "" || !m.Editor().Store().Has("P01-BLK") {
		t.Fatalf("drop did not pin P01-BLK")
	}

	view := stripANSI(m.View())
	if !strings.Contains(view, "✓ P01-BLK") {
		t.Fatalf("expected pinned marker in catalog pane; view=%q", view)
	}
}

func TestEscapePutsHeldProductBack(t *testing.T) {
	m := ready(t, 2)
	press(m, keyRunes("v"), tea.KeyMsg{Type: tea.KeyEsc})
	if m.Held() != "" {
		t.Fatalf("expected nothing held")
	}
	if m.Editor().Store().Len() != 0 {
		t.Fatalf("cancelled drag changed the working set")
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	m := ready(t, 2)
	press(m, tea.KeyMsg{Type: tea.KeyEnter}, tea.KeyMsg{Type: tea.KeyTab})

	press(m, keyRunes("d"))
	if !m.Confirming() || m.Editor().Selected() != "P00-BLK" {
		t.Fatalf("expected confirmation for P00-BLK")
	}
	if !strings.Contains(stripANSI(m.View()), "Remove P00-BLK from the collection? y/n") {
		t.Fatalf("confirmation prompt missing")
	}

	press(m, keyRunes("n"))
	if m.Editor().Store().Len() != 1 || m.Editor().Selected() != "" {
		t.Fatalf("refusing must keep the product and clear the selection")
	}

	press(m, keyRunes("d"), keyRunes("y"))
	if m.Editor().Store().Len() != 0 || m.Editor().Store().Has("P00-BLK") {
		t.Fatalf("confirmed delete did not remove P00-BLK")
	}
}

func TestPagerFollowsWorkingSet(t *testing.T) {
	m := ready(t, 8)
	for i := 0; i < 7; i++ {
		press(m, tea.KeyMsg{Type: tea.KeyEnter}, keyRunes("j"))
	}
	if got := m.Editor().TotalPages(); got != 2 {
		t.Fatalf("expected 2 pages for 7 constants, got %d", got)
	}
	if !strings.Contains(stripANSI(m.View()), "Page 1 of 2") {
		t.Fatalf("expected page footer")
	}

	press(m, tea.KeyMsg{Type: tea.KeyTab}, keyRunes("]"))
	if m.Editor().Store().Cursor() != 2 {
		t.Fatalf("expected page 2")
	}
	press(m, keyRunes("]"))
	if m.Editor().Store().Cursor() != 2 {
		t.Fatalf("next past the last page must clamp")
	}

	press(m, keyRunes("d"), keyRunes("y"))
	if m.Editor().Store().Cursor() != 1 {
		t.Fatalf("removing the only item on the last page must move back, got %d", m.Editor().Store().Cursor())
	}
}

func TestForbiddenHidesCatalog(t *testing.T) {
	ed := editor.New(viewmodel.New())
	catReq, _ := ed.Mount(9)
	ed.ApplyCatalog(editor.CatalogResult{Tag: catReq.Tag, Err: &api.Error{Status: 403}})
	m := New(ed)
	m.SetSize(100, 24)
	m.Refresh()

	view := stripANSI(m.View())
	if strings.Contains(view, "Catalog (") {
		t.Fatalf("catalog pane rendered for a forbidden collection; view=%q", view)
	}
	if !strings.Contains(view, api.ForbiddenMessage()) {
		t.Fatalf("expected forbidden message; view=%q", view)
	}
	if cmd := press(m, keyRunes("f")); cmd != nil {
		t.Fatalf("filter must not open for a forbidden collection")
	}
}

func TestKeysEmitRootEvents(t *testing.T) {
	m := ready(t, 1)
	cases := map[string]tea.Msg{
		"f": events.OpenFilterMsg{},
		"r": events.ReloadMsg{},
		"b": events.BackMsg{},
	}
	for k, want := range cases {
		cmd := press(m, keyRunes(k))
		if cmd == nil {
			t.Fatalf("%s: expected a command", k)
		}
		if got := cmd(); got != want {
			t.Fatalf("%s: expected %T, got %T", k, want, got)
		}
	}
}

func TestSaveShowsAcknowledgement(t *testing.T) {
	m := ready(t, 1)
	press(m, keyRunes("s"))
	if !strings.HasPrefix(m.Status(), "Saved ") {
		t.Fatalf("expected saved status, got %q", m.Status())
	}
	if _, ok := m.Editor().Store().SavedAt(); !ok {
		t.Fatalf("save did not stamp the record")
	}
	if !strings.Contains(stripANSI(m.View()), "saved ") {
		t.Fatalf("header should show the saved time")
	}
}
