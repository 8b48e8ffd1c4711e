package teaui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"tableflip.dev/colcon/pkg/app"
	"tableflip.dev/colcon/pkg/store"
)

type watchStartedMsg struct {
	ch     <-chan store.Event
	cancel context.CancelFunc
	err    error
}

type watchEventMsg struct {
	event store.Event
}

type watchStoppedMsg struct{}

func startWatchCmd(parent context.Context, svc *app.Service) tea.Cmd {
	if svc == nil || svc.Persistence == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithCancel(parent)
		ch, err := svc.Watch(ctx)
		if err != nil {
			cancel()
			return watchStartedMsg{err: err}
		}
		return watchStartedMsg{ch: ch, cancel: cancel}
	}
}

func (m *Model) waitForWatch() tea.Cmd {
	if m.watchCh == nil {
		return nil
	}
	ch := m.watchCh
	return func() tea.Msg {
		if ev, ok := <-ch; ok {
			return watchEventMsg{event: ev}
		}
		return watchStoppedMsg{}
	}
}

func (m *Model) stopWatch() {
	if m.watchCancel != nil {
		m.watchCancel()
		m.watchCancel = nil
	}
	m.watchCh = nil
}

// handleWatchEvent absorbs writes made by another console process sharing
// the state directory.
func (m *Model) handleWatchEvent(ev store.Event, cmds *[]tea.Cmd) {
	m.log.Debug("storage changed", zap.Stringer("event", ev.Type))
	switch ev.Type {
	case store.EventViewModelChanged:
		if m.ed == nil || m.svc == nil {
			return
		}
		rec, err := m.svc.Persistence.LoadViewModel()
		if err != nil {
			m.log.Warn("reload view-model", zap.Error(err))
			return
		}
		if !m.ed.External(rec) {
			if m.view != nil {
				m.view.SetError("Another console is editing a different collection; its changes are not shown.")
			}
			return
		}
		if m.view != nil {
			m.view.Refresh()
			m.view.SetStatus("Updated by another console")
		}
	case store.EventSessionChanged:
		if m.svc == nil || m.svc.Session == nil {
			return
		}
		m.svc.Session.Reload()
		if m.screen == screenLogin && m.authenticated() {
			m.login.Reset()
			m.login.SetNotice("")
			*cmds = append(*cmds, m.enter())
		}
	}
}
