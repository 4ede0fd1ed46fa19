// Package network owns the TCP listener and each connection's read loop.
// Accepted connections get a SessionActor; the read loop only does framing
// and forwards complete frames to that actor, so a connection's two tasks
// (this read loop and the session's writer) never share protocol state.
package network

import (
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/asynkron/protoactor-go/actor"

	internalactor "github.com/darkgotchi/mpnet/server/internal/actor"
	"github.com/darkgotchi/mpnet/server/internal/actor/messages"
	"github.com/darkgotchi/mpnet/server/internal/codec"
	"github.com/darkgotchi/mpnet/server/internal/utils"
)

const readChunkSize = 4096

// TCPServer accepts game client connections and bridges them onto the
// actor system.
type TCPServer struct {
	host        string
	port        int
	listener    net.Listener
	actorSystem *actor.ActorSystem
	lobbyPID    *actor.PID
	managerPID  *actor.PID
	wg          sync.WaitGroup
	shutdown    chan struct{}
}

// NewTCPServer creates a server bound to host:port once started. Port 0
// picks an ephemeral port; see Addr.
func NewTCPServer(host string, port int, system *actor.ActorSystem, lobbyPID, managerPID *actor.PID) *TCPServer {
	return &TCPServer{
		host:        host,
		port:        port,
		actorSystem: system,
		lobbyPID:    lobbyPID,
		managerPID:  managerPID,
		shutdown:    make(chan struct{}),
	}
}

// Start begins listening and accepting connections.
func (s *TCPServer) Start() error {
	listenAddr := fmt.Sprintf("%s:%d", s.host, s.port)
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddr, err)
	}
	s.listener = listener
	utils.LogInfof("[net] listening on %s", listener.Addr())

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr returns the bound listen address. Valid after Start.
func (s *TCPServer) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *TCPServer) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
			}
			utils.LogWarnf("[net] accept: %v", err)
			if ne, ok := err.(net.Error); ok && !ne.Timeout() {
				// Listener is gone; nothing left to accept.
				return
			}
			continue
		}

		sessionPID := s.actorSystem.Root.Spawn(internalactor.PropsForSession(s.lobbyPID, s.managerPID))
		s.actorSystem.Root.Send(sessionPID, &messages.ClientConnected{Conn: conn})

		s.wg.Add(1)
		go s.readLoop(conn, sessionPID)
	}
}

// readLoop owns the read side of one connection. It reassembles frames and
// forwards them; on EOF or error it reports the disconnect to the session
// actor, whose cleanup runs before the session is discarded.
func (s *TCPServer) readLoop(conn net.Conn, sessionPID *actor.PID) {
	defer s.wg.Done()

	var buf codec.Buffer
	chunk := make([]byte, readChunkSize)
	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			for {
				frame, ok := buf.Next()
				if !ok {
					break
				}
				if len(frame) == 0 {
					continue
				}
				// Copy: the frame slice aliases the reassembly buffer and
				// the actor consumes it asynchronously.
				payload := make([]byte, len(frame))
				copy(payload, frame)
				s.actorSystem.Root.Send(sessionPID, &messages.ClientMessage{Payload: payload})
			}
			if buf.Overflowed() {
				utils.LogWarnf("[net] %s exceeded max frame size, dropping connection", conn.RemoteAddr())
				s.actorSystem.Root.Send(sessionPID, &messages.ClientDisconnected{Reason: "frame too large"})
				conn.Close()
				return
			}
		}
		if err != nil {
			reason := "read error: " + err.Error()
			if err == io.EOF {
				reason = "connection closed by client"
			}
			s.actorSystem.Root.Send(sessionPID, &messages.ClientDisconnected{Reason: reason})
			return
		}

		select {
		case <-s.shutdown:
			s.actorSystem.Root.Send(sessionPID, &messages.ClientDisconnected{Reason: "server shutdown"})
			conn.Close()
			return
		default:
		}
	}
}

// Stop closes the listener and waits briefly for connection goroutines.
func (s *TCPServer) Stop() {
	close(s.shutdown)
	if s.listener != nil {
		s.listener.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		utils.LogInfof("[net] stopped")
	case <-time.After(10 * time.Second):
		utils.LogWarnf("[net] shutdown timed out waiting for connection goroutines")
	}
}
