package messages

import (
	"encoding/json"

	"github.com/asynkron/protoactor-go/actor"

	"github.com/darkgotchi/mpnet/server/internal/protocol"
)

// --- To the RoomManagerActor ---

// CreateBattle spawns a battle room for two freshly paired sessions.
// PlayerA was the older entry in the lobby queue and takes side A.
type CreateBattle struct {
	PlayerA PlayerRef
	PlayerB PlayerRef
}

// CreateParty spawns a waiting adventure party with Ref as host.
type CreateParty struct {
	Ref PlayerRef
}

// JoinParty asks the manager to route a join to an existing party. The
// manager answers ADVENTURE_JOIN_FAILED itself when the id is unknown.
type JoinParty struct {
	PartyID string
	Ref     PlayerRef
}

// ListParties requests the waiting-party listing for one client.
type ListParties struct {
	SessionPID *actor.PID
}

// RoomClosed tells the manager a room actor is gone so its table entry can
// be dropped. Safe to deliver twice; the second delete is a no-op. Reason
// is the battle-end reason, empty for parties.
type RoomClosed struct {
	RoomID string
	Kind   RoomKind
	Reason string
}

// PartySummaryReport refreshes the manager's discovery listing after a
// party's membership or state changes.
type PartySummaryReport struct {
	Summary protocol.PartySummary
	State   string
}

// --- To a BattleRoomActor ---

// SubmitBattleAction relays one ability use. Ignored when the sender is
// not the side whose turn it is.
type SubmitBattleAction struct {
	SessionID    string
	AbilityIndex int
}

// ReportBattleEnd is a client-reported clean completion.
type ReportBattleEnd struct {
	SessionID string
	Winner    string
}

// ParticipantLeft is sent by a session's disconnect cleanup. The remaining
// side wins by forfeit.
type ParticipantLeft struct {
	SessionID string
}

// --- To a PartyRoomActor ---

// PartyJoin is a join the manager has already routed to the right party.
type PartyJoin struct {
	Ref PlayerRef
}

// PartyMemberLeft removes a member; triggers host migration when the host
// leaves and destroys the room when it empties.
type PartyMemberLeft struct {
	SessionID string
}

// RelayAdventureUpdate forwards opaque progress data to every member
// except the origin.
type RelayAdventureUpdate struct {
	SessionID string
	Data      json.RawMessage
}
