package actor

import (
	"fmt"
	"testing"

	"github.com/asynkron/protoactor-go/actor"

	"github.com/darkgotchi/mpnet/server/internal/actor/messages"
	"github.com/darkgotchi/mpnet/server/internal/protocol"
)

func spawnLobby(t *testing.T) (*actor.ActorSystem, *actor.PID, chan interface{}) {
	t.Helper()
	system := actor.NewActorSystem()
	managerPID, managerCh := spawnProbe(system)
	lobbyPID := system.Root.Spawn(PropsForLobby(managerPID))
	return system, lobbyPID, managerCh
}

func TestLobbyJoinNotifies(t *testing.T) {
	system, lobbyPID, _ := spawnLobby(t)
	defer system.Shutdown()

	pid, ch := spawnProbe(system)
	system.Root.Send(lobbyPID, &messages.JoinLobbyQueue{Ref: playerRef(pid, "s1", "Ash", `{"type":"Skeleton"}`)})

	entered, ok := nextMessage(t, ch).(*messages.RoomEntered)
	if !ok || entered.Kind != messages.RoomLobby {
		t.Fatalf("expected lobby RoomEntered, got %#v", entered)
	}

	joined := nextEnvelopeOfType(t, ch, protocol.MsgTypeLobbyJoined)
	if joined.Get("player_id").String() != "s1" {
		t.Fatalf("wrong player_id: %s", joined.Raw)
	}
	if joined.Get("username").String() != "Ash" {
		t.Fatalf("wrong username: %s", joined.Raw)
	}
	if joined.Get("players_waiting").Int() != 1 {
		t.Fatalf("wrong players_waiting: %s", joined.Raw)
	}

	status := nextEnvelopeOfType(t, ch, protocol.MsgTypeLobbyStatus)
	if status.Get("players_waiting").Int() != 1 {
		t.Fatalf("wrong status count: %s", status.Raw)
	}
}

func TestLobbyStatusBroadcastOnSecondJoin(t *testing.T) {
	system, lobbyPID, _ := spawnLobby(t)
	defer system.Shutdown()

	pid1, ch1 := spawnProbe(system)
	pid2, ch2 := spawnProbe(system)

	system.Root.Send(lobbyPID, &messages.JoinLobbyQueue{Ref: playerRef(pid1, "s1", "one", `{}`)})
	nextEnvelopeOfType(t, ch1, protocol.MsgTypeLobbyStatus)

	system.Root.Send(lobbyPID, &messages.JoinLobbyQueue{Ref: playerRef(pid2, "s2", "two", `{}`)})
	if n := nextEnvelopeOfType(t, ch2, protocol.MsgTypeLobbyJoined).Get("players_waiting").Int(); n != 2 {
		t.Fatalf("second joiner saw %d waiting, want 2", n)
	}
	if n := nextEnvelopeOfType(t, ch1, protocol.MsgTypeLobbyStatus).Get("players_waiting").Int(); n != 2 {
		t.Fatalf("first joiner's status says %d waiting, want 2", n)
	}
}

func TestLobbyDuplicateJoinIgnored(t *testing.T) {
	system, lobbyPID, managerCh := spawnLobby(t)
	defer system.Shutdown()

	pid, ch := spawnProbe(system)
	ref := playerRef(pid, "s1", "Ash", `{}`)
	system.Root.Send(lobbyPID, &messages.JoinLobbyQueue{Ref: ref})
	nextEnvelopeOfType(t, ch, protocol.MsgTypeLobbyStatus)

	system.Root.Send(lobbyPID, &messages.JoinLobbyQueue{Ref: ref})
	expectNoEnvelopeOfType(t, ch, protocol.MsgTypeLobbyJoined)

	// A doubly-queued session would pair against itself.
	system.Root.Send(lobbyPID, &messages.MatchTick{})
	expectSilence(t, managerCh)
}

func TestLobbyPairsFIFO(t *testing.T) {
	system, lobbyPID, managerCh := spawnLobby(t)
	defer system.Shutdown()

	for i := 1; i <= 5; i++ {
		pid, _ := spawnProbe(system)
		id := fmt.Sprintf("s%d", i)
		system.Root.Send(lobbyPID, &messages.JoinLobbyQueue{Ref: playerRef(pid, id, id, `{}`)})
	}

	system.Root.Send(lobbyPID, &messages.MatchTick{})

	first, ok := nextMessage(t, managerCh).(*messages.CreateBattle)
	if !ok {
		t.Fatal("expected first CreateBattle")
	}
	if first.PlayerA.SessionID != "s1" || first.PlayerB.SessionID != "s2" {
		t.Fatalf("first pair is %s vs %s, want s1 vs s2", first.PlayerA.SessionID, first.PlayerB.SessionID)
	}

	second, ok := nextMessage(t, managerCh).(*messages.CreateBattle)
	if !ok {
		t.Fatal("expected second CreateBattle")
	}
	if second.PlayerA.SessionID != "s3" || second.PlayerB.SessionID != "s4" {
		t.Fatalf("second pair is %s vs %s, want s3 vs s4", second.PlayerA.SessionID, second.PlayerB.SessionID)
	}

	// Five joiners make exactly two battles; s5 keeps waiting.
	expectSilence(t, managerCh)
	system.Root.Send(lobbyPID, &messages.MatchTick{})
	expectSilence(t, managerCh)
}

func TestLobbyLeaveDequeues(t *testing.T) {
	system, lobbyPID, managerCh := spawnLobby(t)
	defer system.Shutdown()

	pid1, ch1 := spawnProbe(system)
	pid2, ch2 := spawnProbe(system)
	system.Root.Send(lobbyPID, &messages.JoinLobbyQueue{Ref: playerRef(pid1, "s1", "one", `{}`)})
	system.Root.Send(lobbyPID, &messages.JoinLobbyQueue{Ref: playerRef(pid2, "s2", "two", `{}`)})
	nextEnvelopeOfType(t, ch2, protocol.MsgTypeLobbyJoined)

	system.Root.Send(lobbyPID, &messages.LeaveLobbyQueue{SessionID: "s1", Notify: true})

	left := nextEnvelopeOfType(t, ch1, protocol.MsgTypeLobbyLeft)
	if left.Get("player_id").String() != "s1" {
		t.Fatalf("wrong player_id in LOBBY_LEFT: %s", left.Raw)
	}
	if n := nextEnvelopeOfType(t, ch2, protocol.MsgTypeLobbyStatus).Get("players_waiting").Int(); n != 1 {
		t.Fatalf("status after leave says %d waiting, want 1", n)
	}

	system.Root.Send(lobbyPID, &messages.MatchTick{})
	expectSilence(t, managerCh)
}

func TestLobbySilentLeaveSkipsNotification(t *testing.T) {
	system, lobbyPID, _ := spawnLobby(t)
	defer system.Shutdown()

	pid, ch := spawnProbe(system)
	system.Root.Send(lobbyPID, &messages.JoinLobbyQueue{Ref: playerRef(pid, "s1", "one", `{}`)})
	nextEnvelopeOfType(t, ch, protocol.MsgTypeLobbyStatus)
	drain(ch)

	// Disconnect-driven removal must not write to the dead connection.
	system.Root.Send(lobbyPID, &messages.LeaveLobbyQueue{SessionID: "s1", Notify: false})
	expectNoEnvelopeOfType(t, ch, protocol.MsgTypeLobbyLeft)
}
