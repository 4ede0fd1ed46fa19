package actor

import (
	"encoding/json"
	"time"

	"github.com/asynkron/protoactor-go/actor"

	"github.com/darkgotchi/mpnet/server/internal/actor/messages"
	"github.com/darkgotchi/mpnet/server/internal/protocol"
	"github.com/darkgotchi/mpnet/server/internal/utils"
)

// maxPartySize caps adventure party membership.
const maxPartySize = 4

// PartyRoomActor coordinates one shared adventure party. The creator is
// host; the room starts `waiting`, flips to `active` exactly once when the
// second member joins, and is destroyed the moment it has no members.
// Progress updates are relayed to every member except their origin.
type PartyRoomActor struct {
	partyID      string
	host         string
	members      []messages.PlayerRef
	state        string
	createdAt    time.Time
	lastActivity time.Time
	managerPID   *actor.PID
	closed       bool
}

// NewPartyRoomActor creates a waiting party with creator as its host and
// only member.
func NewPartyRoomActor(partyID string, creator messages.PlayerRef, managerPID *actor.PID) actor.Actor {
	return &PartyRoomActor{
		partyID:    partyID,
		host:       creator.SessionID,
		members:    []messages.PlayerRef{creator},
		state:      protocol.PartyStateWaiting,
		managerPID: managerPID,
	}
}

// PropsForPartyRoom creates actor.Props for PartyRoomActor.
func PropsForPartyRoom(partyID string, creator messages.PlayerRef, managerPID *actor.PID) *actor.Props {
	return actor.PropsFromProducer(func() actor.Actor {
		return NewPartyRoomActor(partyID, creator, managerPID)
	})
}

func (a *PartyRoomActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		a.createdAt = time.Now()
		a.lastActivity = a.createdAt
		a.start(ctx)

	case *actor.Stopped:
		utils.LogDebugf("[party %s] stopped, last activity %s",
			a.partyID, utils.FormatTimeRFC3339(a.lastActivity))

	case *messages.PartyJoin:
		a.handleJoin(ctx, msg.Ref)

	case *messages.PartyMemberLeft:
		a.handleLeave(ctx, msg.SessionID)

	case *messages.RelayAdventureUpdate:
		a.handleUpdate(ctx, msg)

	case *actor.Terminated:
		if i := a.indexOfPID(msg.Who); i >= 0 {
			a.handleLeave(ctx, a.members[i].SessionID)
		}
	}
}

func (a *PartyRoomActor) start(ctx actor.Context) {
	creator := a.members[0]
	ctx.Watch(creator.PID)
	ctx.Send(creator.PID, &messages.RoomEntered{
		Kind:    messages.RoomParty,
		RoomID:  a.partyID,
		RoomPID: ctx.Self(),
	})
	sendEnvelope(ctx, creator.PID, &protocol.AdventureCreated{
		Type:        protocol.MsgTypeAdventureCreated,
		AdventureID: a.partyID,
		PlayerID:    creator.SessionID,
		Timestamp:   utils.GetCurrentTimestampS(),
	})
	a.reportSummary(ctx)
	utils.LogInfof("[party %s] created, host %s", a.partyID, a.host)
}

func (a *PartyRoomActor) handleJoin(ctx actor.Context, ref messages.PlayerRef) {
	if a.closed {
		a.rejectJoin(ctx, ref, "Adventure party no longer exists")
		return
	}
	if len(a.members) >= maxPartySize {
		a.rejectJoin(ctx, ref, "Adventure party is full")
		return
	}
	if a.indexOf(ref.SessionID) >= 0 {
		a.rejectJoin(ctx, ref, "Already a member of this party")
		return
	}

	a.members = append(a.members, ref)
	a.lastActivity = time.Now()
	ctx.Watch(ref.PID)
	utils.LogInfof("[party %s] %s joined (%d members)", a.partyID, ref.SessionID, len(a.members))

	ctx.Send(ref.PID, &messages.RoomEntered{
		Kind:    messages.RoomParty,
		RoomID:  a.partyID,
		RoomPID: ctx.Self(),
	})
	sendEnvelope(ctx, ref.PID, &protocol.AdventureJoined{
		Type:        protocol.MsgTypeAdventureJoined,
		AdventureID: a.partyID,
		PlayerID:    ref.SessionID,
		Timestamp:   utils.GetCurrentTimestampS(),
	})

	a.broadcastPartyUpdate(ctx)

	// The second member activates the adventure; later joiners only see
	// the membership update above.
	if a.state == protocol.PartyStateWaiting && len(a.members) >= 2 {
		a.state = protocol.PartyStateActive
		a.broadcastStart(ctx)
		utils.LogInfof("[party %s] adventure started with %d members", a.partyID, len(a.members))
	}
	a.reportSummary(ctx)
}

func (a *PartyRoomActor) rejectJoin(ctx actor.Context, ref messages.PlayerRef, reason string) {
	utils.LogInfof("[party %s] join by %s rejected: %s", a.partyID, ref.SessionID, reason)
	sendEnvelope(ctx, ref.PID, &protocol.AdventureJoinFailed{
		Type:        protocol.MsgTypeAdventureJoinFailed,
		AdventureID: a.partyID,
		Message:     reason,
		Timestamp:   utils.GetCurrentTimestampS(),
	})
}

// handleLeave removes a member, migrates the host role to the next member
// in join order if needed, and destroys the room when it empties. Calling
// it for a session that already left is a no-op.
func (a *PartyRoomActor) handleLeave(ctx actor.Context, sessionID string) {
	if a.closed {
		return
	}
	i := a.indexOf(sessionID)
	if i < 0 {
		return
	}
	left := a.members[i]
	a.members = append(a.members[:i], a.members[i+1:]...)
	a.lastActivity = time.Now()
	ctx.Unwatch(left.PID)
	ctx.Send(left.PID, &messages.RoomLeft{RoomID: a.partyID})
	utils.LogInfof("[party %s] %s left (%d members)", a.partyID, sessionID, len(a.members))

	if len(a.members) == 0 {
		a.close(ctx)
		return
	}
	if sessionID == a.host {
		a.host = a.members[0].SessionID
		utils.LogInfof("[party %s] host migrated to %s", a.partyID, a.host)
	}
	a.broadcastPartyUpdate(ctx)
	a.reportSummary(ctx)
}

func (a *PartyRoomActor) handleUpdate(ctx actor.Context, msg *messages.RelayAdventureUpdate) {
	if a.closed {
		return
	}
	from := a.indexOf(msg.SessionID)
	if from < 0 {
		utils.LogWarnf("[party %s] update from non-member %s", a.partyID, msg.SessionID)
		return
	}
	a.lastActivity = time.Now()
	env := &protocol.AdventureUpdateRelay{
		Type:        protocol.MsgTypeAdventureUpdate,
		AdventureID: a.partyID,
		FromPlayer:  msg.SessionID,
		Data:        msg.Data,
		Timestamp:   utils.GetCurrentTimestampS(),
	}
	for i, member := range a.members {
		if i == from {
			continue
		}
		sendEnvelope(ctx, member.PID, env)
	}
}

func (a *PartyRoomActor) close(ctx actor.Context) {
	a.closed = true
	ctx.Send(a.managerPID, &messages.RoomClosed{RoomID: a.partyID, Kind: messages.RoomParty})
	ctx.Stop(ctx.Self())
	utils.LogInfof("[party %s] empty, destroyed", a.partyID)
}

func (a *PartyRoomActor) broadcastPartyUpdate(ctx actor.Context) {
	env := &protocol.AdventurePartyUpdate{
		Type:        protocol.MsgTypeAdventurePartyUpdate,
		AdventureID: a.partyID,
		Members:     a.memberIDs(),
		Creatures:   a.creatures(),
		Usernames:   a.usernames(),
		Host:        a.host,
		State:       a.state,
		Timestamp:   utils.GetCurrentTimestampS(),
	}
	for _, member := range a.members {
		sendEnvelope(ctx, member.PID, env)
	}
}

func (a *PartyRoomActor) broadcastStart(ctx actor.Context) {
	env := &protocol.AdventureStart{
		Type:        protocol.MsgTypeAdventureStart,
		AdventureID: a.partyID,
		Members:     a.memberIDs(),
		Creatures:   a.creatures(),
		Usernames:   a.usernames(),
		Host:        a.host,
		Timestamp:   utils.GetCurrentTimestampS(),
	}
	for _, member := range a.members {
		sendEnvelope(ctx, member.PID, env)
	}
}

func (a *PartyRoomActor) reportSummary(ctx actor.Context) {
	ctx.Send(a.managerPID, &messages.PartySummaryReport{
		State: a.state,
		Summary: protocol.PartySummary{
			ID:           a.partyID,
			Host:         a.host,
			HostUsername: a.hostUsername(),
			MemberCount:  len(a.members),
			CreationTime: a.createdAt.Unix(),
		},
	})
}

func (a *PartyRoomActor) hostUsername() string {
	if i := a.indexOf(a.host); i >= 0 {
		return a.members[i].Username
	}
	return ""
}

func (a *PartyRoomActor) memberIDs() []string {
	ids := make([]string, len(a.members))
	for i, m := range a.members {
		ids[i] = m.SessionID
	}
	return ids
}

func (a *PartyRoomActor) creatures() []json.RawMessage {
	creatures := make([]json.RawMessage, len(a.members))
	for i, m := range a.members {
		creatures[i] = m.Creature
	}
	return creatures
}

func (a *PartyRoomActor) usernames() []string {
	names := make([]string, len(a.members))
	for i, m := range a.members {
		names[i] = m.Username
	}
	return names
}

func (a *PartyRoomActor) indexOf(sessionID string) int {
	for i, m := range a.members {
		if m.SessionID == sessionID {
			return i
		}
	}
	return -1
}

func (a *PartyRoomActor) indexOfPID(pid *actor.PID) int {
	if pid == nil {
		return -1
	}
	for i, m := range a.members {
		if m.PID.Equal(pid) {
			return i
		}
	}
	return -1
}
