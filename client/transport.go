// Package client provides the game-facing network transport: one TCP
// connection speaking newline-delimited JSON envelopes, a non-blocking send
// queue, handler dispatch in arrival order, and automatic reconnect while
// the link is lost.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

const (
	sendQueueSize    = 64
	receiveQueueSize = 256
	writeTimeout     = 10 * time.Second

	defaultMaxReconnectAttempts = 5
	defaultReconnectBackoff     = 5 * time.Second
)

var (
	// ErrNotConnected is returned by Send when the transport has never
	// connected or has been explicitly disconnected.
	ErrNotConnected = errors.New("client: not connected")
	// ErrConnectFailed wraps dial failures from Connect.
	ErrConnectFailed = errors.New("client: connect failed")
)

// Handler receives a parsed inbound envelope. Handlers run on the read
// goroutine, so envelope order is arrival order; slow handlers delay later
// envelopes.
type Handler func(msg gjson.Result)

type connState int

const (
	stateDisconnected connState = iota
	stateConnected
	stateLost
)

// Transport owns one connection to the session server. All methods are safe
// for concurrent use.
type Transport struct {
	mu         sync.Mutex
	conn       net.Conn
	state      connState
	host       string
	port       int
	done       chan struct{} // closed per connection generation
	doneClosed bool
	handlers   map[string]Handler
	recvQ      []gjson.Result

	// sendCh outlives reconnects so frames queued while the link is lost
	// flush once it is restored.
	sendCh chan []byte

	// Reconnection budget. Set before Connect; narrowed in tests.
	maxReconnectAttempts int
	reconnectBackoff     time.Duration
}

// NewTransport creates an unconnected transport.
func NewTransport() *Transport {
	return &Transport{
		handlers:             make(map[string]Handler),
		sendCh:               make(chan []byte, sendQueueSize),
		maxReconnectAttempts: defaultMaxReconnectAttempts,
		reconnectBackoff:     defaultReconnectBackoff,
	}
}

// RegisterHandler installs the callback for an envelope type, replacing any
// previous one. Safe to call before Connect.
func (t *Transport) RegisterHandler(msgType string, h Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[msgType] = h
}

// Connect dials the server and starts the read and write loops.
func (t *Transport) Connect(host string, port int) error {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", host, port), 10*time.Second)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	t.mu.Lock()
	t.host = host
	t.port = port
	t.startLocked(conn)
	t.mu.Unlock()

	log.Printf("[Network] connected to %s:%d", host, port)
	return nil
}

// startLocked installs a live connection and spawns its loops. Caller holds
// t.mu.
func (t *Transport) startLocked(conn net.Conn) {
	t.conn = conn
	t.state = stateConnected
	t.done = make(chan struct{})
	t.doneClosed = false
	go t.writeLoop(conn, t.done)
	go t.readLoop(conn, t.done)
}

// closeDoneLocked closes the current generation's done channel at most once.
// Caller holds t.mu; Disconnect and connectionLost both go through here so
// close ownership stays inside the lock.
func (t *Transport) closeDoneLocked() {
	if t.done != nil && !t.doneClosed {
		close(t.done)
		t.doneClosed = true
	}
}

// Send serializes an envelope and enqueues it. It never blocks; when the
// queue is full the oldest queued frame is dropped to make room. Frames
// queued while the connection is lost are delivered after a successful
// reconnect.
func (t *Transport) Send(envelope interface{}) error {
	t.mu.Lock()
	state := t.state
	t.mu.Unlock()
	if state == stateDisconnected {
		return ErrNotConnected
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("client: marshal envelope: %w", err)
	}
	frame := append(data, '\n')

	for {
		select {
		case t.sendCh <- frame:
			return nil
		default:
		}
		select {
		case <-t.sendCh:
			log.Printf("[Network] send queue full, dropping oldest frame")
		default:
		}
	}
}

// Receive pops the oldest buffered inbound envelope, if any. Envelopes are
// buffered regardless of registered handlers; the queue is bounded and
// drops its oldest entry on overflow.
func (t *Transport) Receive() (gjson.Result, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.recvQ) == 0 {
		return gjson.Result{}, false
	}
	msg := t.recvQ[0]
	t.recvQ = t.recvQ[1:]
	return msg, true
}

// Disconnect closes the connection and disables reconnection. It is safe to
// call on an already-disconnected transport.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	if t.state == stateDisconnected {
		t.mu.Unlock()
		return
	}
	t.state = stateDisconnected
	conn := t.conn
	t.closeDoneLocked()
	t.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	log.Printf("[Network] disconnected")
}

func (t *Transport) writeLoop(conn net.Conn, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case frame := <-t.sendCh:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if _, err := conn.Write(frame); err != nil {
				log.Printf("[Network] write error: %v", err)
				t.connectionLost(conn, done)
				return
			}
		}
	}
}

func (t *Transport) readLoop(conn net.Conn, done chan struct{}) {
	var buf []byte
	chunk := make([]byte, 4096)
	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			for {
				i := bytes.IndexByte(buf, '\n')
				if i < 0 {
					break
				}
				frame := buf[:i]
				if k := len(frame); k > 0 && frame[k-1] == '\r' {
					frame = frame[:k-1]
				}
				buf = buf[i+1:]
				if len(frame) > 0 {
					t.dispatch(frame)
				}
			}
		}
		if err != nil {
			select {
			case <-done:
			default:
				log.Printf("[Network] read error: %v", err)
				t.connectionLost(conn, done)
			}
			return
		}
	}
}

func (t *Transport) dispatch(frame []byte) {
	if !gjson.ValidBytes(frame) {
		log.Printf("[Network] dropping malformed frame: %.120s", frame)
		return
	}
	msg := gjson.ParseBytes(frame)
	msgType := msg.Get("type").String()
	if msgType == "" {
		log.Printf("[Network] dropping frame without type: %.120s", frame)
		return
	}

	t.mu.Lock()
	h := t.handlers[msgType]
	if len(t.recvQ) >= receiveQueueSize {
		t.recvQ = t.recvQ[1:]
	}
	t.recvQ = append(t.recvQ, msg)
	t.mu.Unlock()

	if h != nil {
		h(msg)
	}
}

// connectionLost transitions to the lost state and kicks off reconnection,
// unless Disconnect already ran or another loop got here first.
func (t *Transport) connectionLost(conn net.Conn, done chan struct{}) {
	t.mu.Lock()
	if t.state != stateConnected || t.done != done {
		t.mu.Unlock()
		return
	}
	t.state = stateLost
	t.closeDoneLocked()
	t.mu.Unlock()

	conn.Close()
	log.Printf("[Network] connection lost, attempting to reconnect")
	go t.reconnectLoop()
}

func (t *Transport) reconnectLoop() {
	t.mu.Lock()
	maxAttempts := t.maxReconnectAttempts
	backoff := t.reconnectBackoff
	t.mu.Unlock()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		time.Sleep(backoff)

		t.mu.Lock()
		if t.state != stateLost {
			t.mu.Unlock()
			return
		}
		host, port := t.host, t.port
		t.mu.Unlock()

		conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", host, port), 10*time.Second)
		if err != nil {
			log.Printf("[Network] reconnect attempt %d/%d failed: %v", attempt, maxAttempts, err)
			continue
		}

		t.mu.Lock()
		if t.state != stateLost {
			t.mu.Unlock()
			conn.Close()
			return
		}
		t.startLocked(conn)
		t.mu.Unlock()

		log.Printf("[Network] reconnected to %s:%d (attempt %d)", host, port, attempt)
		return
	}

	log.Printf("[Network] giving up after %d reconnect attempts", maxAttempts)
	t.mu.Lock()
	t.state = stateDisconnected
	t.mu.Unlock()
}
