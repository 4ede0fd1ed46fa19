package actor

import (
	"sort"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"

	"github.com/darkgotchi/mpnet/server/internal/actor/messages"
	"github.com/darkgotchi/mpnet/server/internal/game"
	"github.com/darkgotchi/mpnet/server/internal/protocol"
	"github.com/darkgotchi/mpnet/server/internal/utils"
)

type partyEntry struct {
	pid     *actor.PID
	state   string
	summary protocol.PartySummary
}

// RoomManagerActor owns the battle and party tables. Every room mutation
// that crosses rooms (creation, routing a join, discovery, teardown)
// passes through its mailbox, so the tables need no locking. Room actors
// are spawned as children and report back with RoomClosed when they die.
type RoomManagerActor struct {
	battles map[string]*actor.PID
	parties map[string]*partyEntry
	stats   *game.StatsRecorder
}

// NewRoomManagerActor creates the manager. stats may be nil.
func NewRoomManagerActor(stats *game.StatsRecorder) actor.Actor {
	return &RoomManagerActor{
		battles: make(map[string]*actor.PID),
		parties: make(map[string]*partyEntry),
		stats:   stats,
	}
}

// PropsForRoomManager creates actor.Props for RoomManagerActor.
func PropsForRoomManager(stats *game.StatsRecorder) *actor.Props {
	return actor.PropsFromProducer(func() actor.Actor { return NewRoomManagerActor(stats) })
}

func (a *RoomManagerActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		utils.LogInfof("[rooms] manager started")

	case *actor.Stopping:
		utils.LogInfof("[rooms] manager stopping, closing %d battles and %d parties",
			len(a.battles), len(a.parties))

	case *messages.CreateBattle:
		a.handleCreateBattle(ctx, msg)

	case *messages.CreateParty:
		a.handleCreateParty(ctx, msg)

	case *messages.JoinParty:
		a.handleJoinParty(ctx, msg)

	case *messages.ListParties:
		a.handleListParties(ctx, msg)

	case *messages.PartySummaryReport:
		if entry, ok := a.parties[msg.Summary.ID]; ok {
			entry.state = msg.State
			entry.summary = msg.Summary
		}

	case *messages.RoomClosed:
		a.handleRoomClosed(msg)
	}
}

func (a *RoomManagerActor) handleCreateBattle(ctx actor.Context, msg *messages.CreateBattle) {
	battleID := uuid.NewString()
	pid := ctx.Spawn(PropsForBattleRoom(battleID, msg.PlayerA, msg.PlayerB, ctx.Self()))
	a.battles[battleID] = pid
	a.stats.BattleStarted()
	utils.LogInfof("[rooms] battle %s created (%d active)", battleID, len(a.battles))
}

func (a *RoomManagerActor) handleCreateParty(ctx actor.Context, msg *messages.CreateParty) {
	partyID := uuid.NewString()
	pid := ctx.Spawn(PropsForPartyRoom(partyID, msg.Ref, ctx.Self()))
	a.parties[partyID] = &partyEntry{pid: pid, state: protocol.PartyStateWaiting}
	a.stats.PartyCreated()
	utils.LogInfof("[rooms] party %s created by %s (%d active)", partyID, msg.Ref.SessionID, len(a.parties))
}

func (a *RoomManagerActor) handleJoinParty(ctx actor.Context, msg *messages.JoinParty) {
	entry, ok := a.parties[msg.PartyID]
	if !ok {
		utils.LogInfof("[rooms] join by %s rejected: party %s not found", msg.Ref.SessionID, msg.PartyID)
		sendEnvelope(ctx, msg.Ref.PID, &protocol.AdventureJoinFailed{
			Type:        protocol.MsgTypeAdventureJoinFailed,
			AdventureID: msg.PartyID,
			Message:     "Adventure party not found",
			Timestamp:   utils.GetCurrentTimestampS(),
		})
		return
	}
	// Full / not-waiting rejections come from the party itself, which
	// holds the authoritative membership.
	ctx.Send(entry.pid, &messages.PartyJoin{Ref: msg.Ref})
}

func (a *RoomManagerActor) handleListParties(ctx actor.Context, msg *messages.ListParties) {
	parties := make([]protocol.PartySummary, 0, len(a.parties))
	for _, entry := range a.parties {
		if entry.state != protocol.PartyStateWaiting || entry.summary.ID == "" {
			continue
		}
		parties = append(parties, entry.summary)
	}
	sort.Slice(parties, func(i, j int) bool {
		if parties[i].CreationTime != parties[j].CreationTime {
			return parties[i].CreationTime < parties[j].CreationTime
		}
		return parties[i].ID < parties[j].ID
	})
	sendEnvelope(ctx, msg.SessionPID, &protocol.AdventureParties{
		Type:      protocol.MsgTypeAdventureParties,
		Parties:   parties,
		Timestamp: utils.GetCurrentTimestampS(),
	})
}

func (a *RoomManagerActor) handleRoomClosed(msg *messages.RoomClosed) {
	switch msg.Kind {
	case messages.RoomBattle:
		if _, ok := a.battles[msg.RoomID]; !ok {
			return
		}
		delete(a.battles, msg.RoomID)
		a.stats.BattleEnded(msg.Reason)
		utils.LogInfof("[rooms] battle %s closed (%d active)", msg.RoomID, len(a.battles))
	case messages.RoomParty:
		if _, ok := a.parties[msg.RoomID]; !ok {
			return
		}
		delete(a.parties, msg.RoomID)
		a.stats.PartyClosed()
		utils.LogInfof("[rooms] party %s closed (%d active)", msg.RoomID, len(a.parties))
	}
}
