package actor

import (
	"time"

	"github.com/asynkron/protoactor-go/actor"

	"github.com/darkgotchi/mpnet/server/internal/actor/messages"
	"github.com/darkgotchi/mpnet/server/internal/protocol"
	"github.com/darkgotchi/mpnet/server/internal/utils"
)

// BattleRoomActor holds the authoritative turn state for one two-player
// battle. The server never resolves combat: valid actions flip the turn
// and are relayed to the opponent, whose client applies them locally. The
// room lives exactly as long as both participants' connections, or until a
// client reports completion.
type BattleRoomActor struct {
	battleID     string
	playerA      messages.PlayerRef
	playerB      messages.PlayerRef
	currentTurn  string
	lastActivity time.Time
	managerPID   *actor.PID
	ended        bool
}

// NewBattleRoomActor creates the room. playerA was queued first and takes
// side A, which always moves first.
func NewBattleRoomActor(battleID string, playerA, playerB messages.PlayerRef, managerPID *actor.PID) actor.Actor {
	return &BattleRoomActor{
		battleID:    battleID,
		playerA:     playerA,
		playerB:     playerB,
		currentTurn: protocol.RoleA,
		managerPID:  managerPID,
	}
}

// PropsForBattleRoom creates actor.Props for BattleRoomActor.
func PropsForBattleRoom(battleID string, playerA, playerB messages.PlayerRef, managerPID *actor.PID) *actor.Props {
	return actor.PropsFromProducer(func() actor.Actor {
		return NewBattleRoomActor(battleID, playerA, playerB, managerPID)
	})
}

func (a *BattleRoomActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		a.lastActivity = time.Now()
		a.start(ctx)

	case *actor.Stopped:
		utils.LogDebugf("[battle %s] stopped, last activity %s",
			a.battleID, utils.FormatTimeRFC3339(a.lastActivity))

	case *messages.SubmitBattleAction:
		a.handleAction(ctx, msg)

	case *messages.ReportBattleEnd:
		a.handleReportedEnd(ctx, msg)

	case *messages.ParticipantLeft:
		a.handleForfeit(ctx, msg.SessionID)

	case *actor.Terminated:
		// A participant's session died before its cleanup message reached
		// us. Same outcome as an explicit leave.
		if ref, ok := a.refByPID(msg.Who); ok {
			a.handleForfeit(ctx, ref.SessionID)
		}
	}
}

func (a *BattleRoomActor) start(ctx actor.Context) {
	ctx.Watch(a.playerA.PID)
	ctx.Watch(a.playerB.PID)

	for _, side := range []struct {
		ref, opponent messages.PlayerRef
		role          string
	}{
		{a.playerA, a.playerB, protocol.RoleA},
		{a.playerB, a.playerA, protocol.RoleB},
	} {
		ctx.Send(side.ref.PID, &messages.RoomEntered{
			Kind:    messages.RoomBattle,
			RoomID:  a.battleID,
			RoomPID: ctx.Self(),
		})
		sendEnvelope(ctx, side.ref.PID, &protocol.BattleStart{
			Type:             protocol.MsgTypeBattleStart,
			BattleID:         a.battleID,
			YourRole:         side.role,
			PlayerCreature:   side.ref.Creature,
			OpponentCreature: side.opponent.Creature,
			CurrentTurn:      protocol.RoleA,
			Timestamp:        utils.GetCurrentTimestampS(),
		})
	}
	utils.LogInfof("[battle %s] started: %s (A) vs %s (B)",
		a.battleID, a.playerA.SessionID, a.playerB.SessionID)
}

// handleAction validates the sender's turn, flips it, and relays the
// action to the other participant only. Out-of-turn submissions change
// nothing and produce no relay.
func (a *BattleRoomActor) handleAction(ctx actor.Context, msg *messages.SubmitBattleAction) {
	if a.ended {
		return
	}
	role, ok := a.roleOf(msg.SessionID)
	if !ok {
		utils.LogWarnf("[battle %s] action from non-participant %s", a.battleID, msg.SessionID)
		return
	}
	if role != a.currentTurn {
		utils.LogDebugf("[battle %s] not %s's turn (%s to move)", a.battleID, msg.SessionID, a.currentTurn)
		return
	}

	opponent := a.opponentOf(role)
	a.currentTurn = a.otherRole(role)
	a.lastActivity = time.Now()

	sendEnvelope(ctx, opponent.PID, &protocol.BattleActionRelay{
		Type:         protocol.MsgTypeBattleAction,
		BattleID:     a.battleID,
		AbilityIndex: msg.AbilityIndex,
		CurrentTurn:  a.currentTurn,
		Timestamp:    utils.GetCurrentTimestampS(),
	})
	utils.LogDebugf("[battle %s] %s used ability %d, turn passes to %s",
		a.battleID, msg.SessionID, msg.AbilityIndex, a.currentTurn)
}

func (a *BattleRoomActor) handleReportedEnd(ctx actor.Context, msg *messages.ReportBattleEnd) {
	if a.ended {
		return
	}
	if _, ok := a.roleOf(msg.SessionID); !ok {
		utils.LogWarnf("[battle %s] end report from non-participant %s", a.battleID, msg.SessionID)
		return
	}
	utils.LogInfof("[battle %s] completed, winner=%q", a.battleID, msg.Winner)
	a.end(ctx, msg.Winner, protocol.ReasonCompletion, nil)
}

// handleForfeit ends the battle when a participant disconnects: the
// remaining side wins, and only the survivor is notified. A second leave
// for an already-ended room is a no-op.
func (a *BattleRoomActor) handleForfeit(ctx actor.Context, sessionID string) {
	if a.ended {
		return
	}
	role, ok := a.roleOf(sessionID)
	if !ok {
		return
	}
	winner := a.otherRole(role)
	loser := a.opponentOf(winner)
	utils.LogInfof("[battle %s] %s disconnected, %s wins by forfeit", a.battleID, sessionID, winner)
	a.end(ctx, winner, protocol.ReasonDisconnect, loser.PID)
}

// end notifies the surviving participants, detaches their sessions from
// the room, tells the manager, and stops the actor. skipPID marks a
// participant whose connection is already gone.
func (a *BattleRoomActor) end(ctx actor.Context, winner, reason string, skipPID *actor.PID) {
	a.ended = true
	env := &protocol.BattleEnd{
		Type:      protocol.MsgTypeBattleEnd,
		BattleID:  a.battleID,
		Winner:    winner,
		Reason:    reason,
		Timestamp: utils.GetCurrentTimestampS(),
	}
	for _, ref := range []messages.PlayerRef{a.playerA, a.playerB} {
		if skipPID != nil && ref.PID.Equal(skipPID) {
			continue
		}
		ctx.Send(ref.PID, &messages.RoomLeft{RoomID: a.battleID})
		sendEnvelope(ctx, ref.PID, env)
	}
	ctx.Send(a.managerPID, &messages.RoomClosed{RoomID: a.battleID, Kind: messages.RoomBattle, Reason: reason})
	ctx.Stop(ctx.Self())
}

func (a *BattleRoomActor) roleOf(sessionID string) (string, bool) {
	switch sessionID {
	case a.playerA.SessionID:
		return protocol.RoleA, true
	case a.playerB.SessionID:
		return protocol.RoleB, true
	default:
		return "", false
	}
}

func (a *BattleRoomActor) refByPID(pid *actor.PID) (messages.PlayerRef, bool) {
	if pid == nil {
		return messages.PlayerRef{}, false
	}
	if a.playerA.PID.Equal(pid) {
		return a.playerA, true
	}
	if a.playerB.PID.Equal(pid) {
		return a.playerB, true
	}
	return messages.PlayerRef{}, false
}

func (a *BattleRoomActor) opponentOf(role string) messages.PlayerRef {
	if role == protocol.RoleA {
		return a.playerB
	}
	return a.playerA
}

func (a *BattleRoomActor) otherRole(role string) string {
	if role == protocol.RoleA {
		return protocol.RoleB
	}
	return protocol.RoleA
}
