package actor

import (
	"github.com/asynkron/protoactor-go/actor"

	"github.com/darkgotchi/mpnet/server/internal/actor/messages"
	"github.com/darkgotchi/mpnet/server/internal/codec"
	"github.com/darkgotchi/mpnet/server/internal/protocol"
	"github.com/darkgotchi/mpnet/server/internal/utils"
)

// LobbyActor holds the matchmaking queue. Insertion order decides pairing
// order: every MatchTick pairs the two oldest waiters until fewer than two
// remain. The queue owns nothing beyond the order; sessions are removed
// the instant they are paired or disconnect.
type LobbyActor struct {
	queue      []messages.PlayerRef
	managerPID *actor.PID
}

// NewLobbyActor creates the lobby. The manager PID is where pairings are
// sent for battle-room creation.
func NewLobbyActor(managerPID *actor.PID) actor.Actor {
	return &LobbyActor{managerPID: managerPID}
}

// PropsForLobby creates actor.Props for LobbyActor.
func PropsForLobby(managerPID *actor.PID) *actor.Props {
	return actor.PropsFromProducer(func() actor.Actor { return NewLobbyActor(managerPID) })
}

func (a *LobbyActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		utils.LogInfof("[lobby] started")

	case *messages.JoinLobbyQueue:
		a.handleJoin(ctx, msg.Ref)

	case *messages.LeaveLobbyQueue:
		a.handleLeave(ctx, msg.SessionID, msg.Notify)

	case *messages.MatchTick:
		a.matchPlayers(ctx)
	}
}

func (a *LobbyActor) handleJoin(ctx actor.Context, ref messages.PlayerRef) {
	if a.indexOf(ref.SessionID) >= 0 {
		utils.LogDebugf("[lobby] session %s already queued", ref.SessionID)
		return
	}
	a.queue = append(a.queue, ref)
	utils.LogInfof("[lobby] session %s joined, %d waiting", ref.SessionID, len(a.queue))

	ctx.Send(ref.PID, &messages.RoomEntered{Kind: messages.RoomLobby, RoomID: "lobby", RoomPID: ctx.Self()})
	sendEnvelope(ctx, ref.PID, &protocol.LobbyJoined{
		Type:           protocol.MsgTypeLobbyJoined,
		PlayerID:       ref.SessionID,
		Username:       ref.Username,
		PlayersWaiting: len(a.queue),
		Timestamp:      utils.GetCurrentTimestampS(),
	})
	a.broadcastStatus(ctx)
}

func (a *LobbyActor) handleLeave(ctx actor.Context, sessionID string, notify bool) {
	i := a.indexOf(sessionID)
	if i < 0 {
		return
	}
	ref := a.queue[i]
	a.queue = append(a.queue[:i], a.queue[i+1:]...)
	utils.LogInfof("[lobby] session %s left, %d waiting", sessionID, len(a.queue))

	if notify {
		ctx.Send(ref.PID, &messages.RoomLeft{RoomID: "lobby"})
		sendEnvelope(ctx, ref.PID, &protocol.LobbyLeft{
			Type:      protocol.MsgTypeLobbyLeft,
			PlayerID:  sessionID,
			Timestamp: utils.GetCurrentTimestampS(),
		})
	}
	a.broadcastStatus(ctx)
}

// matchPlayers pairs strictly FIFO. Sends to the manager and the paired
// sessions are asynchronous, so a slow client can never stall this loop.
func (a *LobbyActor) matchPlayers(ctx actor.Context) {
	paired := false
	for len(a.queue) >= 2 {
		playerA, playerB := a.queue[0], a.queue[1]
		a.queue = a.queue[2:]
		utils.LogInfof("[lobby] pairing %s vs %s", playerA.SessionID, playerB.SessionID)
		ctx.Send(a.managerPID, &messages.CreateBattle{PlayerA: playerA, PlayerB: playerB})
		paired = true
	}
	if paired {
		a.broadcastStatus(ctx)
	}
}

func (a *LobbyActor) broadcastStatus(ctx actor.Context) {
	status := &protocol.LobbyStatus{
		Type:           protocol.MsgTypeLobbyStatus,
		PlayersWaiting: len(a.queue),
		Timestamp:      utils.GetCurrentTimestampS(),
	}
	frame, err := codec.Encode(status)
	if err != nil {
		utils.LogErrorf("[lobby] encode status: %v", err)
		return
	}
	for _, ref := range a.queue {
		ctx.Send(ref.PID, &messages.ForwardToClient{Payload: frame})
	}
}

func (a *LobbyActor) indexOf(sessionID string) int {
	for i, ref := range a.queue {
		if ref.SessionID == sessionID {
			return i
		}
	}
	return -1
}
