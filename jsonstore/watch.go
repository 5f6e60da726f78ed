package jsonstore

import (
	"context"
	"path/filepath"

	"github.com/kjk/storage/log"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the store when the backing file is changed by another
// process and calls onChange (if not nil) after each successful reload.
// It blocks until ctx is cancelled or the watcher fails.
// Our own writes also trigger a reload, which is harmless.
func (s *Store) Watch(ctx context.Context, onChange func()) error {
	path := s.Location()
	if path == "" {
		return ErrNoFile
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// watching the directory survives editors that replace the file
	// with a rename
	if err = w.Add(filepath.Dir(path)); err != nil {
		return err
	}
	log.Verbosef("jsonstore: watching '%s'\n", path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if !s.Reload() {
				continue
			}
			log.Verbosef("jsonstore: reloaded '%s' after %s\n", path, ev.Op)
			if onChange != nil {
				onChange()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Errorf("jsonstore: watch '%s' failed: %s\n", path, err)
			return err
		}
	}
}
