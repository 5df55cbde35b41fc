package capture

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/penwyp/go-flight-stepper/internal/util"
)

// Event reports a change to a capture file.
type Event struct {
	Path      string
	Operation string
}

// Watcher reports changes to the manifest and response files of a capture.
type Watcher struct {
	watcher *fsnotify.Watcher
	events  chan Event
}

// NewWatcher watches dir and its actions directory, if present.
func NewWatcher(dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher: fsw,
		events:  make(chan Event, 100),
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	actions := filepath.Join(dir, "actions")
	if info, err := os.Stat(actions); err == nil && info.IsDir() {
		if err := fsw.Add(actions); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	go w.processEvents()
	return w, nil
}

func (w *Watcher) processEvents() {
	defer close(w.events)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			name := filepath.Base(event.Name)
			if name != ManifestFile && !isResponseFile(name) {
				continue
			}
			select {
			case w.events <- Event{Path: event.Name, Operation: event.Op.String()}:
			default:
				util.LogDebugf("capture event dropped: %s", event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			util.LogError("Capture monitoring error: " + err.Error())
		}
	}
}

// Events returns the change channel. It is closed after Close.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
