package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewAttachesToRegistryAndCloseDetaches(t *testing.T) {
	dir := t.TempDir()
	registry := NewRegistry()

	w, err := New(dir, 20, registry, func(string) {})
	require.NoError(t, err)
	require.True(t, registry.Any())

	require.NoError(t, w.Close())
	require.False(t, registry.Any())
}

func TestWatcherDebouncesWritesIntoOnChange(t *testing.T) {
	dir := t.TempDir()
	registry := NewRegistry()

	var mu sync.Mutex
	var seen []string
	w, err := New(dir, 20, registry, func(relPath string) {
		mu.Lock()
		seen = append(seen, relPath)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer w.Close()

	path := filepath.Join(dir, "a.py")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Contains(t, seen, "a.py")
}

func TestEventDebouncerCoalescesRepeatedPaths(t *testing.T) {
	var mu sync.Mutex
	fired := map[string]int{}
	d := newEventDebouncer(10*time.Millisecond, func(p string) {
		mu.Lock()
		fired[p]++
		mu.Unlock()
	})

	d.addEvent("a.py")
	d.addEvent("a.py")
	d.addEvent("a.py")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return fired["a.py"] == 1
	}, time.Second, 5*time.Millisecond)
}
