package actor

import (
	"encoding/json"
	"net"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"

	"github.com/darkgotchi/mpnet/server/internal/actor/messages"
	"github.com/darkgotchi/mpnet/server/internal/codec"
	"github.com/darkgotchi/mpnet/server/internal/protocol"
	"github.com/darkgotchi/mpnet/server/internal/utils"
)

const (
	// sendQueueSize bounds the per-connection outbound queue. A client that
	// falls this far behind is dropped rather than allowed to stall the
	// actors writing to it.
	sendQueueSize = 64
	writeTimeout  = 10 * time.Second
)

// SessionActor owns one client connection: its identity, its creature
// snapshot, its room membership, and the write side of the socket. Inbound
// frames arrive from the network read loop as ClientMessage; outbound
// frames arrive from room actors as ForwardToClient and are drained to the
// socket by a dedicated writer goroutine.
type SessionActor struct {
	conn       net.Conn
	sendCh     chan []byte
	writerUp   bool
	sessionID  string
	username   string
	creature   json.RawMessage
	roomKind   messages.RoomKind
	roomID     string
	roomPID    *actor.PID
	lobbyPID   *actor.PID
	managerPID *actor.PID
}

// NewSessionActor creates a session with a fresh, never-reused id and a
// placeholder username derived from it.
func NewSessionActor(lobbyPID, managerPID *actor.PID) actor.Actor {
	id := uuid.NewString()
	return &SessionActor{
		sessionID:  id,
		username:   "Player_" + id[:8],
		lobbyPID:   lobbyPID,
		managerPID: managerPID,
	}
}

// PropsForSession creates actor.Props for SessionActor.
func PropsForSession(lobbyPID, managerPID *actor.PID) *actor.Props {
	return actor.PropsFromProducer(func() actor.Actor { return NewSessionActor(lobbyPID, managerPID) })
}

func (a *SessionActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		utils.LogDebugf("[session %s] started", a.sessionID)

	case *actor.Stopping:
		if a.writerUp {
			close(a.sendCh)
			a.writerUp = false
		}
		if a.conn != nil {
			a.conn.Close()
		}

	case *actor.Stopped:
		utils.LogDebugf("[session %s] stopped", a.sessionID)

	case *messages.ClientConnected:
		a.conn = msg.Conn
		a.sendCh = make(chan []byte, sendQueueSize)
		a.writerUp = true
		go sessionWriteLoop(msg.Conn, a.sendCh, ctx.ActorSystem().Root, ctx.Self())
		utils.LogInfof("[session %s] connected from %s", a.sessionID, msg.Conn.RemoteAddr())

	case *messages.ClientMessage:
		a.dispatch(ctx, msg.Payload)

	case *messages.ForwardToClient:
		a.enqueue(msg.Payload)

	case *messages.RoomEntered:
		a.roomKind = msg.Kind
		a.roomID = msg.RoomID
		a.roomPID = msg.RoomPID
		utils.LogDebugf("[session %s] entered %s %s", a.sessionID, msg.Kind, msg.RoomID)

	case *messages.RoomLeft:
		if msg.RoomID == a.roomID {
			a.clearRoom()
		}

	case *messages.ClientDisconnected:
		utils.LogInfof("[session %s] disconnected: %s", a.sessionID, msg.Reason)
		a.cleanup(ctx)
		ctx.Stop(ctx.Self())

	default:
		utils.LogDebugf("[session %s] unexpected actor message %T", a.sessionID, msg)
	}
}

// cleanup runs the room-specific teardown before the actor stops: dequeue
// from the lobby, forfeit a battle, or leave a party. The room actors make
// those operations idempotent, so racing with the room's own shutdown is
// harmless.
func (a *SessionActor) cleanup(ctx actor.Context) {
	switch a.roomKind {
	case messages.RoomLobby:
		ctx.Send(a.lobbyPID, &messages.LeaveLobbyQueue{SessionID: a.sessionID, Notify: false})
	case messages.RoomBattle:
		if a.roomPID != nil {
			ctx.Send(a.roomPID, &messages.ParticipantLeft{SessionID: a.sessionID})
		}
	case messages.RoomParty:
		if a.roomPID != nil {
			ctx.Send(a.roomPID, &messages.PartyMemberLeft{SessionID: a.sessionID})
		}
	}
	a.clearRoom()
	if a.conn != nil {
		a.conn.Close()
	}
}

func (a *SessionActor) clearRoom() {
	a.roomKind = messages.RoomNone
	a.roomID = ""
	a.roomPID = nil
}

// enqueue hands a frame to the writer goroutine without blocking. When the
// queue is full the client is too slow to keep; closing the socket makes
// the read loop report the disconnect through the usual path.
func (a *SessionActor) enqueue(frame []byte) {
	if !a.writerUp {
		return
	}
	select {
	case a.sendCh <- frame:
	default:
		utils.LogWarnf("[session %s] send queue full, dropping connection", a.sessionID)
		a.conn.Close()
	}
}

// dispatch routes one inbound frame by its envelope type. Malformed frames
// and unknown types are logged and dropped; they never close the
// connection.
func (a *SessionActor) dispatch(ctx actor.Context, payload []byte) {
	msgType := protocol.PeekType(payload)
	if msgType == "" {
		utils.LogWarnf("[session %s] dropping malformed frame (%d bytes)", a.sessionID, len(payload))
		return
	}

	switch msgType {
	case protocol.MsgTypeJoinLobby:
		var m protocol.JoinLobby
		if !a.unmarshal(payload, &m) {
			return
		}
		if a.roomKind != messages.RoomNone {
			utils.LogWarnf("[session %s] JOIN_LOBBY while in %s, ignoring", a.sessionID, a.roomKind)
			return
		}
		a.creature = m.Creature
		if m.Username != "" {
			a.username = m.Username
		}
		ctx.Send(a.lobbyPID, &messages.JoinLobbyQueue{Ref: a.ref(ctx)})

	case protocol.MsgTypeLeaveLobby:
		if a.roomKind != messages.RoomLobby {
			utils.LogDebugf("[session %s] LEAVE_LOBBY while not in lobby, ignoring", a.sessionID)
			return
		}
		ctx.Send(a.lobbyPID, &messages.LeaveLobbyQueue{SessionID: a.sessionID, Notify: true})

	case protocol.MsgTypeBattleAction:
		var m protocol.BattleAction
		if !a.unmarshal(payload, &m) {
			return
		}
		if a.roomKind != messages.RoomBattle || a.roomPID == nil {
			utils.LogDebugf("[session %s] BATTLE_ACTION while not in a battle, ignoring", a.sessionID)
			return
		}
		ctx.Send(a.roomPID, &messages.SubmitBattleAction{SessionID: a.sessionID, AbilityIndex: m.AbilityIndex})

	case protocol.MsgTypeBattleEnd:
		var m protocol.BattleEndReport
		if !a.unmarshal(payload, &m) {
			return
		}
		if a.roomKind != messages.RoomBattle || a.roomPID == nil {
			utils.LogDebugf("[session %s] BATTLE_END while not in a battle, ignoring", a.sessionID)
			return
		}
		ctx.Send(a.roomPID, &messages.ReportBattleEnd{SessionID: a.sessionID, Winner: m.Winner})

	case protocol.MsgTypeCreateAdventure:
		var m protocol.CreateAdventure
		if !a.unmarshal(payload, &m) {
			return
		}
		if a.roomKind != messages.RoomNone {
			utils.LogWarnf("[session %s] CREATE_ADVENTURE while in %s, ignoring", a.sessionID, a.roomKind)
			return
		}
		a.creature = m.Creature
		if m.Username != "" {
			a.username = m.Username
		}
		ctx.Send(a.managerPID, &messages.CreateParty{Ref: a.ref(ctx)})

	case protocol.MsgTypeJoinAdventure:
		var m protocol.JoinAdventure
		if !a.unmarshal(payload, &m) {
			return
		}
		if a.roomKind != messages.RoomNone {
			utils.LogWarnf("[session %s] JOIN_ADVENTURE while in %s, ignoring", a.sessionID, a.roomKind)
			return
		}
		a.creature = m.Creature
		if m.Username != "" {
			a.username = m.Username
		}
		ctx.Send(a.managerPID, &messages.JoinParty{PartyID: m.PartyID, Ref: a.ref(ctx)})

	case protocol.MsgTypeAdventureUpdate:
		var m protocol.AdventureUpdate
		if !a.unmarshal(payload, &m) {
			return
		}
		if a.roomKind != messages.RoomParty || a.roomPID == nil {
			utils.LogDebugf("[session %s] ADVENTURE_UPDATE while not in a party, ignoring", a.sessionID)
			return
		}
		ctx.Send(a.roomPID, &messages.RelayAdventureUpdate{SessionID: a.sessionID, Data: m.Data})

	case protocol.MsgTypeGetAdventureParties:
		ctx.Send(a.managerPID, &messages.ListParties{SessionPID: ctx.Self()})

	default:
		utils.LogWarnf("[session %s] unknown message type %q, ignoring", a.sessionID, msgType)
	}
}

func (a *SessionActor) unmarshal(payload []byte, v interface{}) bool {
	if err := json.Unmarshal(payload, v); err != nil {
		utils.LogWarnf("[session %s] bad %s payload: %v", a.sessionID, protocol.PeekType(payload), err)
		return false
	}
	return true
}

func (a *SessionActor) ref(ctx actor.Context) messages.PlayerRef {
	return messages.PlayerRef{
		SessionID: a.sessionID,
		PID:       ctx.Self(),
		Username:  a.username,
		Creature:  a.creature,
	}
}

// sessionWriteLoop drains the send queue to the socket. On a write failure
// it reports the disconnect and exits; the session actor then runs its
// cleanup exactly once.
func sessionWriteLoop(conn net.Conn, ch <-chan []byte, root *actor.RootContext, self *actor.PID) {
	for frame := range ch {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := conn.Write(frame); err != nil {
			utils.LogDebugf("write to %s failed: %v", conn.RemoteAddr(), err)
			root.Send(self, &messages.ClientDisconnected{Reason: "write error: " + err.Error()})
			return
		}
	}
}

// sendEnvelope encodes an envelope and queues it on a session. Shared by
// the lobby and room actors.
func sendEnvelope(ctx actor.Context, pid *actor.PID, env interface{}) {
	frame, err := codec.Encode(env)
	if err != nil {
		utils.LogErrorf("encode envelope %T: %v", env, err)
		return
	}
	ctx.Send(pid, &messages.ForwardToClient{Payload: frame})
}
