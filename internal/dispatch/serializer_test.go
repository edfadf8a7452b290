package dispatch

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pkraison/pyre-check/internal/env/testenv"
	"github.com/pkraison/pyre-check/internal/handle"
)

// TestSerializerProcessesConcurrentRequestsWithoutLoss guards against
// the data race spec.md §5 forbids: several goroutines (standing in for
// the socket server's per-connection goroutines and the watcher's
// recheck callback) call Handle concurrently, and every one of their
// TypeCheckRequests must still land in ServerState.handles, since only
// Run's single goroutine ever calls Process.
func TestSerializerProcessesConcurrentRequestsWithoutLoss(t *testing.T) {
	e := testenv.New()
	d, sock := newDispatcher(e)
	ser := NewSerializer(d)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ser.Run(ctx)

	names := []string{"a.py", "b.py", "c.py", "d.py", "e.py"}
	var wg sync.WaitGroup
	for _, name := range names {
		f := handle.NewWithContent(root, name, "x = 1")
		e.SetFixture(string(f.Handle()), testenv.Fixture{Source: "x = 1"})
		wg.Add(1)
		go func(f handle.File) {
			defer wg.Done()
			_, err := ser.Handle(ctx, sock, TypeCheckRequest{Check: []handle.File{f}})
			require.NoError(t, err)
		}(f)
	}
	wg.Wait()

	require.ElementsMatch(t, []handle.Handle{"a.py", "b.py", "c.py", "d.py", "e.py"}, d.State.Handles())
}

// TestSerializerHandleReturnsOnContextCancellation ensures Handle never
// blocks forever if Run's goroutine was never started (or already
// stopped) — the queue send and the reply wait both select on ctx.Done.
func TestSerializerHandleReturnsOnContextCancellation(t *testing.T) {
	e := testenv.New()
	d, sock := newDispatcher(e)
	ser := NewSerializer(d)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ser.Handle(ctx, sock, StopRequest{})
	require.ErrorIs(t, err, context.Canceled)
}
