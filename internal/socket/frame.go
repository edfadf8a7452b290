// Package socket implements the wire transport (spec.md §6): a
// length-preambled framed stream of Request/Response tagged-union
// values over a Unix domain socket, adapted from the teacher's
// internal/server (an HTTP-over-Unix-socket RPC layer) into the raw
// binary framing the specification requires.
package socket

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxFrameSize bounds a single frame so a corrupt or malicious length
// preamble can't make the reader allocate unbounded memory.
const maxFrameSize = 64 << 20

// writeFrame writes a fixed-size big-endian uint32 length preamble
// followed by payload (spec.md §6 "Wire to clients").
func writeFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// readFrame reads one length-preambled frame.
func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameSize {
		return nil, fmt.Errorf("socket: frame of %d bytes exceeds %d byte limit", n, maxFrameSize)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
