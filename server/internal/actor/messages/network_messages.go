package messages

import "net"

// ClientConnected is sent to a freshly spawned SessionActor once the
// network layer has accepted its connection.
type ClientConnected struct {
	Conn net.Conn
}

// ClientDisconnected is sent when a client connection is lost or closed.
// The session's room cleanup runs while handling it, before the actor stops.
type ClientDisconnected struct {
	Reason string
}

// ClientMessage carries one complete wire frame from the read loop to the
// SessionActor.
type ClientMessage struct {
	Payload []byte
}

// ForwardToClient carries one encoded wire frame to a SessionActor for
// delivery to its client. Senders never block: the session enqueues the
// frame on a bounded queue and drops the connection if it is full.
type ForwardToClient struct {
	Payload []byte
}
