package convert

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Event is the outcome of converting one changed record file.
type Event struct {
	// If set, an error occurred. Failures for a record that was only just
	// created are not sent, its content usually arrives with a later write.
	Err error

	Input  string // Record file that changed.
	Output string // Written PNG mask, if Err is nil.
}

// Watcher converts JSON records as they are created or written in a
// directory.
type Watcher struct {
	Events chan Event

	watcher *fsnotify.Watcher
	stop    chan struct{}
}

// NewWatcher starts watching maskDir, converting changed records with c and
// sending an Event for each on channel Events. Conversions happen one at a
// time, in order of notification.
//
// Callers must call Close to stop watching.
func NewWatcher(c *Converter, maskDir string) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("new file change watcher: %v", err)
	}

	w := &Watcher{
		make(chan Event, 1),
		watcher,
		make(chan struct{}),
	}

	go func() {
		defer close(w.Events)
		for {
			select {
			case <-w.stop:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || !strings.HasSuffix(ev.Name, ".json") {
					continue
				}
				c.logf("record changed: %s", ev.Name)
				out, err := c.ConvertFile(ev.Name)
				if err != nil && ev.Op&fsnotify.Write == 0 {
					// A write event follows once content arrives.
					c.logf("converting new record: %v (may be partially written)", err)
					continue
				}
				if err != nil {
					w.send(Event{Err: err, Input: ev.Name})
				} else {
					w.send(Event{Input: ev.Name, Output: out})
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				w.send(Event{Err: fmt.Errorf("watching for changes: %v", err)})
			}
		}
	}()

	if err := watcher.Add(filepath.Clean(maskDir)); err != nil {
		w.Close()
		return nil, fmt.Errorf("registering file change watcher for %s: %v", maskDir, err)
	}
	if c.opts.Verbose {
		log.Printf("watching %s", maskDir)
	}
	return w, nil
}

func (w *Watcher) send(ev Event) {
	select {
	case w.Events <- ev:
	case <-w.stop:
	}
}

// Close stops watching. Events is closed once the last conversion finished.
func (w *Watcher) Close() error {
	select {
	case <-w.stop:
		return nil
	default:
	}
	close(w.stop)
	return w.watcher.Close()
}
