package socket

import (
	"fmt"
	"net"
	"sync"

	"github.com/pkraison/pyre-check/internal/dispatch"
)

// Client is a single connection to a running server, used by the native
// CLI subcommands (spec.md §1: "type-check, type-query, display-errors,
// stop, flush").
type Client struct {
	c  net.Conn
	mu sync.Mutex
}

// Dial connects to the server listening at path.
func Dial(path string) (*Client, error) {
	c, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("socket: dial %s: %w", path, err)
	}
	return &Client{c: c}, nil
}

// Close closes the underlying connection.
func (cl *Client) Close() error { return cl.c.Close() }

// Call sends req and waits for the matching response frame. StopRequest
// and any request whose handler produces no response block until the
// server closes the connection or a response arrives — callers that
// expect no response should use Send instead.
func (cl *Client) Call(req dispatch.Request) (dispatch.Response, error) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	body, err := EncodeRequest(req)
	if err != nil {
		return nil, err
	}
	if err := writeFrame(cl.c, body); err != nil {
		return nil, fmt.Errorf("socket: write request: %w", err)
	}
	payload, err := readFrame(cl.c)
	if err != nil {
		return nil, fmt.Errorf("socket: read response: %w", err)
	}
	return DecodeResponse(payload)
}

// Send writes req without waiting for a response, for request kinds
// spec.md documents as producing none (OpenDocument, CloseDocument, and
// SaveDocument when a notifier is attached).
func (cl *Client) Send(req dispatch.Request) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	body, err := EncodeRequest(req)
	if err != nil {
		return err
	}
	return writeFrame(cl.c, body)
}
