// Package protocol defines the envelopes exchanged between the game client
// and the session server. Envelopes are flat JSON objects selected by their
// "type" field; creature records travel through here as opaque blobs that
// the server stores and forwards without interpreting.
package protocol

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Message type constants, client to server.
const (
	MsgTypeJoinLobby           = "JOIN_LOBBY"
	MsgTypeLeaveLobby          = "LEAVE_LOBBY"
	MsgTypeBattleAction        = "BATTLE_ACTION"
	MsgTypeBattleEnd           = "BATTLE_END"
	MsgTypeCreateAdventure     = "CREATE_ADVENTURE"
	MsgTypeJoinAdventure       = "JOIN_ADVENTURE"
	MsgTypeAdventureUpdate     = "ADVENTURE_UPDATE"
	MsgTypeGetAdventureParties = "GET_ADVENTURE_PARTIES"
)

// Message type constants, server to client. BATTLE_ACTION, BATTLE_END and
// ADVENTURE_UPDATE appear in both directions with different fields.
const (
	MsgTypeLobbyJoined          = "LOBBY_JOINED"
	MsgTypeLobbyLeft            = "LOBBY_LEFT"
	MsgTypeLobbyStatus          = "LOBBY_STATUS"
	MsgTypeBattleStart          = "BATTLE_START"
	MsgTypeAdventureCreated     = "ADVENTURE_CREATED"
	MsgTypeAdventureJoined      = "ADVENTURE_JOINED"
	MsgTypeAdventureJoinFailed  = "ADVENTURE_JOIN_FAILED"
	MsgTypeAdventurePartyUpdate = "ADVENTURE_PARTY_UPDATE"
	MsgTypeAdventureStart       = "ADVENTURE_START"
	MsgTypeAdventureParties     = "ADVENTURE_PARTIES"
)

// Battle sides. Side A always moves first.
const (
	RoleA = "A"
	RoleB = "B"
)

// Battle end reasons.
const (
	ReasonCompletion = "completion"
	ReasonDisconnect = "disconnect"
)

// Adventure party states. A party flips waiting -> active exactly once,
// when its second member joins, and never reverts.
const (
	PartyStateWaiting = "waiting"
	PartyStateActive  = "active"
)

// PeekType extracts the envelope type from a raw frame without a full
// unmarshal. Returns "" for frames that are not JSON objects.
func PeekType(frame []byte) string {
	if !gjson.ValidBytes(frame) {
		return ""
	}
	return gjson.GetBytes(frame, "type").String()
}

// --- Client to server ---

// JoinLobby enters the matchmaking queue.
type JoinLobby struct {
	Type      string          `json:"type"`
	Creature  json.RawMessage `json:"creature"`
	Username  string          `json:"username,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// LeaveLobby withdraws from the matchmaking queue.
type LeaveLobby struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// BattleAction submits one ability use in the sender's battle.
type BattleAction struct {
	Type         string `json:"type"`
	AbilityIndex int    `json:"ability_index"`
	Timestamp    int64  `json:"timestamp,omitempty"`
}

// BattleEndReport is a client-reported clean completion. Winner names the
// side whose creature won, or is empty for a draw.
type BattleEndReport struct {
	Type      string `json:"type"`
	Winner    string `json:"winner,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// CreateAdventure opens a new adventure party with the sender as host.
type CreateAdventure struct {
	Type      string          `json:"type"`
	Creature  json.RawMessage `json:"creature"`
	Username  string          `json:"username,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// JoinAdventure asks to join an existing party by id.
type JoinAdventure struct {
	Type      string          `json:"type"`
	PartyID   string          `json:"party_id"`
	Creature  json.RawMessage `json:"creature"`
	Username  string          `json:"username,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// AdventureUpdate carries opaque progress data to relay to the other
// party members.
type AdventureUpdate struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// GetAdventureParties requests the list of joinable parties.
type GetAdventureParties struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// --- Server to client ---

// LobbyJoined confirms JOIN_LOBBY.
type LobbyJoined struct {
	Type           string `json:"type"`
	PlayerID       string `json:"player_id"`
	Username       string `json:"username"`
	PlayersWaiting int    `json:"players_waiting"`
	Timestamp      int64  `json:"timestamp,omitempty"`
}

// LobbyLeft confirms LEAVE_LOBBY.
type LobbyLeft struct {
	Type      string `json:"type"`
	PlayerID  string `json:"player_id"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// LobbyStatus is broadcast to every waiting player when the queue changes.
type LobbyStatus struct {
	Type           string `json:"type"`
	PlayersWaiting int    `json:"players_waiting"`
	Timestamp      int64  `json:"timestamp,omitempty"`
}

// BattleStart notifies a paired player. YourRole is the recipient's side;
// CurrentTurn is always RoleA at the start.
type BattleStart struct {
	Type             string          `json:"type"`
	BattleID         string          `json:"battle_id"`
	YourRole         string          `json:"your_role"`
	PlayerCreature   json.RawMessage `json:"player_creature"`
	OpponentCreature json.RawMessage `json:"opponent_creature"`
	CurrentTurn      string          `json:"current_turn"`
	Timestamp        int64           `json:"timestamp,omitempty"`
}

// BattleActionRelay forwards an opponent's action. The server does not
// resolve combat; each client applies the action to its local copies.
type BattleActionRelay struct {
	Type         string `json:"type"`
	BattleID     string `json:"battle_id"`
	AbilityIndex int    `json:"ability_index"`
	CurrentTurn  string `json:"current_turn"`
	Timestamp    int64  `json:"timestamp,omitempty"`
}

// BattleEnd closes a battle for both surviving connections.
type BattleEnd struct {
	Type      string `json:"type"`
	BattleID  string `json:"battle_id"`
	Winner    string `json:"winner,omitempty"`
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// AdventureCreated confirms CREATE_ADVENTURE.
type AdventureCreated struct {
	Type        string `json:"type"`
	AdventureID string `json:"adventure_id"`
	PlayerID    string `json:"player_id"`
	Timestamp   int64  `json:"timestamp,omitempty"`
}

// AdventureJoined confirms JOIN_ADVENTURE.
type AdventureJoined struct {
	Type        string `json:"type"`
	AdventureID string `json:"adventure_id"`
	PlayerID    string `json:"player_id"`
	Timestamp   int64  `json:"timestamp,omitempty"`
}

// AdventureJoinFailed rejects JOIN_ADVENTURE with a reason message.
type AdventureJoinFailed struct {
	Type        string `json:"type"`
	AdventureID string `json:"adventure_id"`
	Message     string `json:"message"`
	Timestamp   int64  `json:"timestamp,omitempty"`
}

// AdventurePartyUpdate is broadcast to every member on any membership or
// host change. Members, Creatures and Usernames are index-aligned.
type AdventurePartyUpdate struct {
	Type        string            `json:"type"`
	AdventureID string            `json:"adventure_id"`
	Members     []string          `json:"members"`
	Creatures   []json.RawMessage `json:"creatures"`
	Usernames   []string          `json:"usernames"`
	Host        string            `json:"host"`
	State       string            `json:"state"`
	Timestamp   int64             `json:"timestamp,omitempty"`
}

// AdventureStart is broadcast once, the moment the second member joins.
type AdventureStart struct {
	Type        string            `json:"type"`
	AdventureID string            `json:"adventure_id"`
	Members     []string          `json:"members"`
	Creatures   []json.RawMessage `json:"creatures"`
	Usernames   []string          `json:"usernames"`
	Host        string            `json:"host"`
	Timestamp   int64             `json:"timestamp,omitempty"`
}

// AdventureUpdateRelay forwards a member's progress data to every other
// member; the origin never receives its own update back.
type AdventureUpdateRelay struct {
	Type        string          `json:"type"`
	AdventureID string          `json:"adventure_id"`
	FromPlayer  string          `json:"from_player"`
	Data        json.RawMessage `json:"data"`
	Timestamp   int64           `json:"timestamp,omitempty"`
}

// PartySummary is one row in the party discovery listing.
type PartySummary struct {
	ID           string `json:"id"`
	Host         string `json:"host"`
	HostUsername string `json:"host_username"`
	MemberCount  int    `json:"member_count"`
	CreationTime int64  `json:"creation_time"`
}

// AdventureParties answers GET_ADVENTURE_PARTIES with the waiting rooms.
type AdventureParties struct {
	Type      string         `json:"type"`
	Parties   []PartySummary `json:"parties"`
	Timestamp int64          `json:"timestamp,omitempty"`
}
