package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// EventType describes which record another process changed.
type EventType int

const (
	// EventViewModelChanged means the view-model record was rewritten or
	// erased by another process.
	EventViewModelChanged EventType = iota

	// EventSessionChanged means another process logged in or out.
	EventSessionChanged
)

func (t EventType) String() string {
	switch t {
	case EventViewModelChanged:
		return "viewmodel"
	case EventSessionChanged:
		return "session"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is emitted by Persistence.Watch when a record changes under us.
type Event struct {
	Type EventType
}

// Watch streams events for writes made by other processes until ctx is
// cancelled. Writes made through this Persistence are not reported. Callers
// should drain the channel; it is closed once ctx is done or the watcher fails.
func (p *persistence) Watch(ctx context.Context) (<-chan Event, error) {
	dirs := []string{
		filepath.Join(p.basePath, viewModelNamespace),
		filepath.Join(p.basePath, sessionNamespace),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("store: ensure %s: %w", dir, err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("store: create watcher: %w", err)
	}
	var closeOnce sync.Once
	closeWatcher := func() {
		closeOnce.Do(func() {
			if err := watcher.Close(); err != nil {
				p.log.Warn("watcher close", zap.Error(err))
			}
		})
	}

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			closeWatcher()
			return nil, fmt.Errorf("store: watch %s: %w", dir, err)
		}
	}

	// events is never closed: a throttle flush may still fire after the
	// reader returns. out is the channel handed to the caller.
	events := make(chan Event, 16)
	out := make(chan Event)

	go func() {
		defer closeWatcher()

		done := ctx.Done()
		send := func(ev Event) {
			select {
			case <-done:
			case events <- ev:
			default:
				// The consumer re-reads the whole record, so a dropped
				// duplicate loses nothing.
			}
		}

		throttle := newEventThrottle(100 * time.Millisecond)
		defer throttle.Stop()

		for {
			select {
			case <-done:
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				p.log.Warn("watcher error", zap.Error(err))
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				key := p.keyForPath(evt.Name)
				var typ EventType
				switch key {
				case viewModelKey:
					typ = EventViewModelChanged
				case tokenKey:
					typ = EventSessionChanged
				default:
					continue
				}
				if !p.foreign(key) {
					continue
				}
				p.log.Debug("external change", zap.String("key", key), zap.Stringer("op", evt.Op))
				throttle.Enqueue(Event{Type: typ}, send)
			}
		}
	}()

	go func() {
		defer close(out)
		for {
			select {
			case ev := <-events:
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// keyForPath maps a file under the base path back to its record key.
func (p *persistence) keyForPath(path string) string {
	rel, err := filepath.Rel(p.basePath, path)
	if err != nil || rel == "." {
		return ""
	}
	parts := strings.Split(rel, string(os.PathSeparator))
	if len(parts) < 2 || parts[0] == tempDirName {
		return ""
	}
	return strings.Join(parts, ":")
}

// eventThrottle coalesces rapid change notifications so a burst of writes
// (diskv writes a temp file and renames it) produces one event per type.
type eventThrottle struct {
	mu      sync.Mutex
	timer   *time.Timer
	pending map[EventType]struct{}
	delay   time.Duration
}

func newEventThrottle(delay time.Duration) *eventThrottle {
	return &eventThrottle{
		delay:   delay,
		pending: make(map[EventType]struct{}),
	}
}

func (t *eventThrottle) Enqueue(ev Event, send func(Event)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[ev.Type] = struct{}{}
	if t.timer == nil {
		t.timer = time.AfterFunc(t.delay, func() {
			t.flush(send)
		})
	}
}

func (t *eventThrottle) flush(send func(Event)) {
	t.mu.Lock()
	pending := t.pending
	t.pending = make(map[EventType]struct{})
	t.timer = nil
	t.mu.Unlock()

	for typ := range pending {
		send(Event{Type: typ})
	}
}

func (t *eventThrottle) Stop() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()
}
