package actor

import (
	"fmt"
	"testing"

	"github.com/asynkron/protoactor-go/actor"

	"github.com/darkgotchi/mpnet/server/internal/actor/messages"
	"github.com/darkgotchi/mpnet/server/internal/protocol"
)

type partyFixture struct {
	system    *actor.ActorSystem
	partyPID  *actor.PID
	hostCh    chan interface{}
	managerCh chan interface{}
}

func newPartyFixture(t *testing.T) *partyFixture {
	t.Helper()
	system := actor.NewActorSystem()
	managerPID, managerCh := spawnProbe(system)
	hostPID, hostCh := spawnProbe(system)

	creator := playerRef(hostPID, "host", "Hostmaster", `{"type":"Dragon"}`)
	partyPID := system.Root.Spawn(PropsForPartyRoom("party-1", creator, managerPID))

	f := &partyFixture{system: system, partyPID: partyPID, hostCh: hostCh, managerCh: managerCh}
	created := nextEnvelopeOfType(t, hostCh, protocol.MsgTypeAdventureCreated)
	if created.Get("adventure_id").String() != "party-1" {
		t.Fatalf("wrong adventure_id: %s", created.Raw)
	}
	return f
}

// addMember joins one more player and consumes their join envelopes.
func (f *partyFixture) addMember(t *testing.T, id string) chan interface{} {
	t.Helper()
	pid, ch := spawnProbe(f.system)
	f.system.Root.Send(f.partyPID, &messages.PartyJoin{Ref: playerRef(pid, id, id, `{}`)})
	joined := nextEnvelopeOfType(t, ch, protocol.MsgTypeAdventureJoined)
	if joined.Get("adventure_id").String() != "party-1" {
		t.Fatalf("wrong adventure_id in join ack: %s", joined.Raw)
	}
	return ch
}

func TestPartyCreationReportsWaitingSummary(t *testing.T) {
	f := newPartyFixture(t)
	defer f.system.Shutdown()

	report, ok := nextMessage(t, f.managerCh).(*messages.PartySummaryReport)
	if !ok {
		t.Fatal("expected PartySummaryReport")
	}
	if report.State != protocol.PartyStateWaiting {
		t.Fatalf("state = %q, want waiting", report.State)
	}
	if report.Summary.ID != "party-1" || report.Summary.Host != "host" || report.Summary.MemberCount != 1 {
		t.Fatalf("bad summary: %+v", report.Summary)
	}
	if report.Summary.HostUsername != "Hostmaster" {
		t.Fatalf("host_username = %q", report.Summary.HostUsername)
	}
}

func TestPartySecondJoinActivatesOnce(t *testing.T) {
	f := newPartyFixture(t)
	defer f.system.Shutdown()

	ch2 := f.addMember(t, "m2")

	update := nextEnvelopeOfType(t, f.hostCh, protocol.MsgTypeAdventurePartyUpdate)
	members := update.Get("members").Array()
	if len(members) != 2 || members[0].String() != "host" || members[1].String() != "m2" {
		t.Fatalf("bad member list: %s", update.Raw)
	}

	for _, ch := range []chan interface{}{f.hostCh, ch2} {
		start := nextEnvelopeOfType(t, ch, protocol.MsgTypeAdventureStart)
		if start.Get("host").String() != "host" {
			t.Fatalf("bad host in start: %s", start.Raw)
		}
		if len(start.Get("members").Array()) != 2 {
			t.Fatalf("bad members in start: %s", start.Raw)
		}
	}
}

func TestPartyLateJoinersGetUpdateOnly(t *testing.T) {
	f := newPartyFixture(t)
	defer f.system.Shutdown()

	ch2 := f.addMember(t, "m2")
	nextEnvelopeOfType(t, f.hostCh, protocol.MsgTypeAdventureStart)
	nextEnvelopeOfType(t, ch2, protocol.MsgTypeAdventureStart)

	ch3 := f.addMember(t, "m3")
	update := nextEnvelopeOfType(t, ch3, protocol.MsgTypeAdventurePartyUpdate)
	if update.Get("state").String() != protocol.PartyStateActive {
		t.Fatalf("third joiner sees state %q, want active", update.Get("state").String())
	}
	// Activation already happened; no second start for anyone.
	expectNoEnvelopeOfType(t, ch3, protocol.MsgTypeAdventureStart)
	expectNoEnvelopeOfType(t, f.hostCh, protocol.MsgTypeAdventureStart)

	ch4 := f.addMember(t, "m4")
	nextEnvelopeOfType(t, ch4, protocol.MsgTypeAdventurePartyUpdate)
	expectNoEnvelopeOfType(t, ch4, protocol.MsgTypeAdventureStart)
}

func TestPartyFullRejectsFifthJoiner(t *testing.T) {
	f := newPartyFixture(t)
	defer f.system.Shutdown()

	for i := 2; i <= 4; i++ {
		f.addMember(t, fmt.Sprintf("m%d", i))
	}

	pid5, ch5 := spawnProbe(f.system)
	f.system.Root.Send(f.partyPID, &messages.PartyJoin{Ref: playerRef(pid5, "m5", "m5", `{}`)})
	failed := nextEnvelopeOfType(t, ch5, protocol.MsgTypeAdventureJoinFailed)
	if failed.Get("message").String() != "Adventure party is full" {
		t.Fatalf("wrong rejection: %s", failed.Raw)
	}
	expectNoEnvelopeOfType(t, ch5, protocol.MsgTypeAdventureJoined)
}

func TestPartyDuplicateJoinRejected(t *testing.T) {
	f := newPartyFixture(t)
	defer f.system.Shutdown()

	pid, ch := spawnProbe(f.system)
	ref := playerRef(pid, "m2", "m2", `{}`)
	f.system.Root.Send(f.partyPID, &messages.PartyJoin{Ref: ref})
	nextEnvelopeOfType(t, ch, protocol.MsgTypeAdventureJoined)

	f.system.Root.Send(f.partyPID, &messages.PartyJoin{Ref: ref})
	failed := nextEnvelopeOfType(t, ch, protocol.MsgTypeAdventureJoinFailed)
	if failed.Get("message").String() != "Already a member of this party" {
		t.Fatalf("wrong rejection: %s", failed.Raw)
	}
}

func TestPartyHostMigration(t *testing.T) {
	f := newPartyFixture(t)
	defer f.system.Shutdown()

	ch2 := f.addMember(t, "m2")
	nextEnvelopeOfType(t, ch2, protocol.MsgTypeAdventureStart)

	f.system.Root.Send(f.partyPID, &messages.PartyMemberLeft{SessionID: "host"})

	update := nextEnvelopeOfType(t, ch2, protocol.MsgTypeAdventurePartyUpdate)
	if update.Get("host").String() != "m2" {
		t.Fatalf("host did not migrate: %s", update.Raw)
	}
	if len(update.Get("members").Array()) != 1 {
		t.Fatalf("bad member list after leave: %s", update.Raw)
	}
}

func TestPartyEmptyRoomDestroyed(t *testing.T) {
	f := newPartyFixture(t)
	defer f.system.Shutdown()

	// Clear the creation summary first.
	nextMessage(t, f.managerCh)

	f.system.Root.Send(f.partyPID, &messages.PartyMemberLeft{SessionID: "host"})

	if _, ok := nextMessage(t, f.hostCh).(*messages.RoomLeft); !ok {
		t.Fatal("expected RoomLeft after leaving")
	}

	closed, ok := nextMessage(t, f.managerCh).(*messages.RoomClosed)
	if !ok || closed.RoomID != "party-1" || closed.Kind != messages.RoomParty {
		t.Fatalf("expected RoomClosed for party-1, got %#v", closed)
	}

	// Leaving again after destruction must be a no-op.
	f.system.Root.Send(f.partyPID, &messages.PartyMemberLeft{SessionID: "host"})
	expectSilence(t, f.managerCh)
}

func TestPartyUpdateRelayExcludesOrigin(t *testing.T) {
	f := newPartyFixture(t)
	defer f.system.Shutdown()

	ch2 := f.addMember(t, "m2")
	nextEnvelopeOfType(t, ch2, protocol.MsgTypeAdventureStart)
	ch3 := f.addMember(t, "m3")
	drain(f.hostCh)
	drain(ch2)
	drain(ch3)

	f.system.Root.Send(f.partyPID, &messages.RelayAdventureUpdate{
		SessionID: "m2",
		Data:      []byte(`{"position":7}`),
	})

	for _, ch := range []chan interface{}{f.hostCh, ch3} {
		update := nextEnvelopeOfType(t, ch, protocol.MsgTypeAdventureUpdate)
		if update.Get("from_player").String() != "m2" {
			t.Fatalf("wrong from_player: %s", update.Raw)
		}
		if update.Get("data.position").Int() != 7 {
			t.Fatalf("payload not relayed: %s", update.Raw)
		}
	}
	expectNoEnvelopeOfType(t, ch2, protocol.MsgTypeAdventureUpdate)
}
