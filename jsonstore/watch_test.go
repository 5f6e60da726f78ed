package jsonstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alecthomas/assert"
)

func TestWatchReloads(t *testing.T) {
	st := createStore(t, map[string]any{"k": "v"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 16)
	done := make(chan error, 1)
	go func() {
		done <- st.Watch(ctx, func() {
			changed <- struct{}{}
		})
	}()

	// the watcher is set up asynchronously so keep writing until it notices
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
loop:
	for {
		select {
		case <-changed:
			break loop
		case <-tick.C:
			err := writeFileLocked(st.Location(), []byte(`{"k":"external"}`))
			assert.NoError(t, err)
		case <-deadline:
			t.Fatal("watcher didn't reload the store")
		}
	}
	assert.Equal(t, "external", st.Get("k"))

	cancel()
	err := <-done
	assert.True(t, errors.Is(err, context.Canceled), "%v", err)
}

func TestWatchDeleted(t *testing.T) {
	st := createStore(t, nil)
	assert.True(t, st.Delete())
	err := st.Watch(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrNoFile))
}
