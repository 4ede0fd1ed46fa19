package messages

import (
	"encoding/json"

	"github.com/asynkron/protoactor-go/actor"
)

// RoomKind identifies which kind of room a session belongs to. Membership
// is mutually exclusive: a session is in at most one room at a time.
type RoomKind int

const (
	RoomNone RoomKind = iota
	RoomLobby
	RoomBattle
	RoomParty
)

func (k RoomKind) String() string {
	switch k {
	case RoomLobby:
		return "lobby"
	case RoomBattle:
		return "battle"
	case RoomParty:
		return "party"
	default:
		return "none"
	}
}

// PlayerRef is the handle room actors keep for a participating session.
// Creature is the last snapshot the client sent, stored verbatim.
type PlayerRef struct {
	SessionID string
	PID       *actor.PID
	Username  string
	Creature  json.RawMessage
}

// RoomEntered tells a SessionActor it is now a member of a room.
type RoomEntered struct {
	Kind    RoomKind
	RoomID  string
	RoomPID *actor.PID
}

// RoomLeft tells a SessionActor its room membership ended. The RoomID lets
// the session ignore stale notices from rooms it already left.
type RoomLeft struct {
	RoomID string
}
