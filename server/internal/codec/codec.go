// Package codec implements the wire framing shared by client and server:
// UTF-8 JSON envelopes, one per line, terminated by '\n'. Envelopes never
// contain raw newlines (JSON serialization escapes them), so the newline is
// an unambiguous frame boundary even when a payload is corrupt.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MaxFrameSize caps how many bytes a Buffer will accumulate while waiting
// for a frame delimiter. A peer that streams this much without a newline is
// not speaking the protocol.
const MaxFrameSize = 1 * 1024 * 1024

// Encode serializes an envelope and appends the frame delimiter.
func Encode(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: marshal envelope: %w", err)
	}
	return append(data, '\n'), nil
}

// Split removes the first complete frame from buf. If no delimiter is
// present it returns (nil, buf, false) so the caller can append more bytes
// and retry. A trailing '\r' before the delimiter is stripped.
func Split(buf []byte) (frame, rest []byte, ok bool) {
	i := bytes.IndexByte(buf, '\n')
	if i < 0 {
		return nil, buf, false
	}
	frame = buf[:i]
	if n := len(frame); n > 0 && frame[n-1] == '\r' {
		frame = frame[:n-1]
	}
	return frame, buf[i+1:], true
}

// Buffer accumulates stream reads and yields complete frames. It is not
// safe for concurrent use; each connection's read loop owns one.
type Buffer struct {
	data []byte
}

// Write appends raw bytes read from the socket.
func (b *Buffer) Write(p []byte) {
	b.data = append(b.data, p...)
}

// Next pops the next complete frame, or returns false when the buffered
// bytes do not yet contain a delimiter.
func (b *Buffer) Next() ([]byte, bool) {
	frame, rest, ok := Split(b.data)
	if !ok {
		return nil, false
	}
	b.data = rest
	return frame, true
}

// Len reports how many bytes are buffered awaiting a delimiter.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Overflowed reports whether the buffered partial frame exceeds
// MaxFrameSize. Callers should drop the connection when this trips.
func (b *Buffer) Overflowed() bool {
	return len(b.data) > MaxFrameSize
}
