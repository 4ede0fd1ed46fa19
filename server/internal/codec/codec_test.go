package codec

import (
	"bytes"
	"encoding/json"
	"testing"
)

type testEnvelope struct {
	Type    string `json:"type"`
	Payload string `json:"payload"`
}

func TestEncodeAppendsDelimiter(t *testing.T) {
	frame, err := Encode(&testEnvelope{Type: "PING", Payload: "hello"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if frame[len(frame)-1] != '\n' {
		t.Fatalf("frame does not end with delimiter: %q", frame)
	}
	if bytes.Contains(frame[:len(frame)-1], []byte{'\n'}) {
		t.Fatalf("frame body contains raw newline: %q", frame)
	}
}

func TestSplitRoundTrip(t *testing.T) {
	in := &testEnvelope{Type: "PING", Payload: "line one\nline two"}
	frame, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	body, rest, ok := Split(frame)
	if !ok {
		t.Fatal("Split did not find a complete frame")
	}
	if len(rest) != 0 {
		t.Fatalf("unexpected remainder: %q", rest)
	}

	var out testEnvelope
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out != *in {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, *in)
	}
}

func TestSplitPartialFrame(t *testing.T) {
	buf := []byte(`{"type":"PING"`)
	frame, rest, ok := Split(buf)
	if ok {
		t.Fatalf("Split returned a frame from partial input: %q", frame)
	}
	if !bytes.Equal(rest, buf) {
		t.Fatalf("partial input was modified: %q", rest)
	}
}

func TestSplitMultipleFrames(t *testing.T) {
	buf := []byte("{\"type\":\"A\"}\n{\"type\":\"B\"}\n{\"type\":")

	frame, rest, ok := Split(buf)
	if !ok || string(frame) != `{"type":"A"}` {
		t.Fatalf("first frame: got %q ok=%v", frame, ok)
	}
	frame, rest, ok = Split(rest)
	if !ok || string(frame) != `{"type":"B"}` {
		t.Fatalf("second frame: got %q ok=%v", frame, ok)
	}
	if _, rest, ok = Split(rest); ok {
		t.Fatal("found a frame in trailing partial data")
	}
	if string(rest) != `{"type":` {
		t.Fatalf("unexpected remainder: %q", rest)
	}
}

func TestSplitStripsCarriageReturn(t *testing.T) {
	frame, _, ok := Split([]byte("{\"type\":\"A\"}\r\n"))
	if !ok {
		t.Fatal("Split did not find the frame")
	}
	if string(frame) != `{"type":"A"}` {
		t.Fatalf("carriage return not stripped: %q", frame)
	}
}

func TestBufferReassembly(t *testing.T) {
	var buf Buffer
	buf.Write([]byte("{\"type\":"))
	if _, ok := buf.Next(); ok {
		t.Fatal("Next returned a frame before the delimiter arrived")
	}
	buf.Write([]byte("\"A\"}\n{\"type\":\"B\"}\n"))

	frame, ok := buf.Next()
	if !ok || string(frame) != `{"type":"A"}` {
		t.Fatalf("first frame: got %q ok=%v", frame, ok)
	}
	frame, ok = buf.Next()
	if !ok || string(frame) != `{"type":"B"}` {
		t.Fatalf("second frame: got %q ok=%v", frame, ok)
	}
	if buf.Len() != 0 {
		t.Fatalf("buffer not drained, %d bytes left", buf.Len())
	}
}

func TestBufferOverflow(t *testing.T) {
	var buf Buffer
	buf.Write(make([]byte, MaxFrameSize+1))
	if !buf.Overflowed() {
		t.Fatal("Overflowed not reported for oversized partial frame")
	}
}
