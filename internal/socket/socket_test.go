package socket

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pkraison/pyre-check/internal/dispatch"
	"github.com/pkraison/pyre-check/internal/handle"
	"github.com/pkraison/pyre-check/internal/typequery"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

func TestEncodeDecodeRequestRoundTrips(t *testing.T) {
	req := dispatch.TypeCheckRequest{
		Check: []handle.File{handle.New("/r", "a.py")},
	}
	body, err := EncodeRequest(req)
	require.NoError(t, err)

	decoded, err := DecodeRequest(body)
	require.NoError(t, err)
	tc, ok := decoded.(dispatch.TypeCheckRequest)
	require.True(t, ok)
	require.Equal(t, req.Check[0].Handle(), tc.Check[0].Handle())
}

func TestEncodeDecodeTypeQueryRoundTrips(t *testing.T) {
	req := dispatch.TypeQueryRequest{Query: typequery.LessOrEqualQuery{A: "int", B: "float"}}
	body, err := EncodeRequest(req)
	require.NoError(t, err)

	decoded, err := DecodeRequest(body)
	require.NoError(t, err)
	tq, ok := decoded.(dispatch.TypeQueryRequest)
	require.True(t, ok)
	require.Equal(t, req.Query, tq.Query)
}

func TestClientServerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.sock")

	handler := func(_ context.Context, sock dispatch.Socket, req dispatch.Request) (dispatch.Response, error) {
		switch req.(type) {
		case dispatch.StopRequest:
			_ = sock.Send(dispatch.StopResponse{})
			return nil, nil
		default:
			return dispatch.TypeCheckResponse{}, nil
		}
	}

	srv, err := Listen(path, handler)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	client, err := Dial(path)
	require.NoError(t, err)

	resp, err := client.Call(dispatch.TypeCheckRequest{Check: []handle.File{handle.New("/r", "a.py")}})
	require.NoError(t, err)
	_, ok := resp.(dispatch.TypeCheckResponse)
	require.True(t, ok)

	require.NoError(t, client.Send(dispatch.StopRequest{}))
	select {
	case resp := <-readOne(t, client):
		_, ok := resp.(dispatch.StopResponse)
		require.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stop response")
	}

	require.NoError(t, client.Close())
	cancel()
	require.NoError(t, srv.Stop())
	<-done
}

// TestConcurrentConnectionsDoNotOverlapASerializedHandler guards against
// the data race two simultaneous connections would otherwise cause on
// dispatch.ServerState (spec.md §5): a Server accepts connections
// concurrently, but production wiring (cmd/tychkd) always passes a
// handler already serialized by dispatch.NewSerializer. serialize below
// reproduces that same single-goroutine-queue shape so this test can
// assert no two requests are ever in flight together, regardless of how
// many connections raced to submit them.
func TestConcurrentConnectionsDoNotOverlapASerializedHandler(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "concurrent.sock")

	var active int32
	raw := func(_ context.Context, _ dispatch.Socket, _ dispatch.Request) (dispatch.Response, error) {
		if atomic.AddInt32(&active, 1) > 1 {
			t.Errorf("handler invoked concurrently")
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return dispatch.TypeCheckResponse{}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := Listen(path, serialize(ctx, raw))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client, err := Dial(path)
			require.NoError(t, err)
			defer client.Close()
			_, err = client.Call(dispatch.TypeCheckRequest{Check: []handle.File{handle.New("/r", "a.py")}})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	cancel()
	require.NoError(t, srv.Stop())
	<-done
}

type serializeResult struct {
	resp dispatch.Response
	err  error
}

type serializeJob struct {
	ctx  context.Context
	sock dispatch.Socket
	req  dispatch.Request
	done chan serializeResult
}

// serialize wraps handler so every call runs on the same goroutine,
// mirroring dispatch.Serializer's shape without depending on a real
// *dispatch.Dispatcher.
func serialize(ctx context.Context, handler Handler) Handler {
	jobs := make(chan serializeJob)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case j := <-jobs:
				resp, err := handler(j.ctx, j.sock, j.req)
				j.done <- serializeResult{resp: resp, err: err}
			}
		}
	}()
	return func(ctx context.Context, sock dispatch.Socket, req dispatch.Request) (dispatch.Response, error) {
		done := make(chan serializeResult, 1)
		jobs <- serializeJob{ctx: ctx, sock: sock, req: req, done: done}
		r := <-done
		return r.resp, r.err
	}
}

func readOne(t *testing.T, c *Client) <-chan dispatch.Response {
	t.Helper()
	out := make(chan dispatch.Response, 1)
	go func() {
		payload, err := readFrame(c.c)
		if err != nil {
			close(out)
			return
		}
		resp, err := DecodeResponse(payload)
		if err != nil {
			close(out)
			return
		}
		out <- resp
	}()
	return out
}
