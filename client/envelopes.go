package client

import (
	"encoding/json"
	"time"
)

// Envelope types the client sends.
const (
	MsgJoinLobby           = "JOIN_LOBBY"
	MsgLeaveLobby          = "LEAVE_LOBBY"
	MsgBattleAction        = "BATTLE_ACTION"
	MsgBattleEnd           = "BATTLE_END"
	MsgCreateAdventure     = "CREATE_ADVENTURE"
	MsgJoinAdventure       = "JOIN_ADVENTURE"
	MsgAdventureUpdate     = "ADVENTURE_UPDATE"
	MsgGetAdventureParties = "GET_ADVENTURE_PARTIES"
)

// Envelope types the server sends. Register handlers against these.
const (
	MsgLobbyJoined          = "LOBBY_JOINED"
	MsgLobbyLeft            = "LOBBY_LEFT"
	MsgLobbyStatus          = "LOBBY_STATUS"
	MsgBattleStart          = "BATTLE_START"
	MsgAdventureCreated     = "ADVENTURE_CREATED"
	MsgAdventureJoined      = "ADVENTURE_JOINED"
	MsgAdventureJoinFailed  = "ADVENTURE_JOIN_FAILED"
	MsgAdventurePartyUpdate = "ADVENTURE_PARTY_UPDATE"
	MsgAdventureStart       = "ADVENTURE_START"
	MsgAdventureParties     = "ADVENTURE_PARTIES"
)

type joinLobbyEnvelope struct {
	Type      string          `json:"type"`
	Creature  json.RawMessage `json:"creature"`
	Username  string          `json:"username,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

type leaveLobbyEnvelope struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

type battleActionEnvelope struct {
	Type         string `json:"type"`
	AbilityIndex int    `json:"ability_index"`
	Timestamp    int64  `json:"timestamp"`
}

type battleEndEnvelope struct {
	Type      string `json:"type"`
	Winner    string `json:"winner"`
	Timestamp int64  `json:"timestamp"`
}

type createAdventureEnvelope struct {
	Type      string          `json:"type"`
	Creature  json.RawMessage `json:"creature"`
	Username  string          `json:"username,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

type joinAdventureEnvelope struct {
	Type      string          `json:"type"`
	PartyID   string          `json:"party_id"`
	Creature  json.RawMessage `json:"creature"`
	Username  string          `json:"username,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

type adventureUpdateEnvelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

type getAdventurePartiesEnvelope struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

func now() int64 { return time.Now().Unix() }

// JoinLobby enters the matchmaking queue with the given creature snapshot.
// An empty username lets the server assign one.
func (t *Transport) JoinLobby(creature json.RawMessage, username string) error {
	return t.Send(&joinLobbyEnvelope{Type: MsgJoinLobby, Creature: creature, Username: username, Timestamp: now()})
}

// LeaveLobby withdraws from the matchmaking queue.
func (t *Transport) LeaveLobby() error {
	return t.Send(&leaveLobbyEnvelope{Type: MsgLeaveLobby, Timestamp: now()})
}

// SendBattleAction submits an ability use for the current battle. The
// server only relays it when it is this client's turn.
func (t *Transport) SendBattleAction(abilityIndex int) error {
	return t.Send(&battleActionEnvelope{Type: MsgBattleAction, AbilityIndex: abilityIndex, Timestamp: now()})
}

// ReportBattleEnd reports a locally resolved battle outcome. Winner is the
// winning side's role, or empty for a draw.
func (t *Transport) ReportBattleEnd(winner string) error {
	return t.Send(&battleEndEnvelope{Type: MsgBattleEnd, Winner: winner, Timestamp: now()})
}

// CreateAdventureParty opens a new adventure party with this client as host.
func (t *Transport) CreateAdventureParty(creature json.RawMessage, username string) error {
	return t.Send(&createAdventureEnvelope{Type: MsgCreateAdventure, Creature: creature, Username: username, Timestamp: now()})
}

// JoinAdventureParty joins an existing waiting party by id.
func (t *Transport) JoinAdventureParty(partyID string, creature json.RawMessage, username string) error {
	return t.Send(&joinAdventureEnvelope{Type: MsgJoinAdventure, PartyID: partyID, Creature: creature, Username: username, Timestamp: now()})
}

// SendAdventureUpdate broadcasts an opaque state blob to the other party
// members.
func (t *Transport) SendAdventureUpdate(data json.RawMessage) error {
	return t.Send(&adventureUpdateEnvelope{Type: MsgAdventureUpdate, Data: data, Timestamp: now()})
}

// RequestAvailableParties asks for the list of joinable parties; the reply
// arrives as an ADVENTURE_PARTIES envelope.
func (t *Transport) RequestAvailableParties() error {
	return t.Send(&getAdventurePartiesEnvelope{Type: MsgGetAdventureParties, Timestamp: now()})
}
