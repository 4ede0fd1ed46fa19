package actor

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/tidwall/gjson"

	"github.com/darkgotchi/mpnet/server/internal/actor/messages"
)

const probeTimeout = 2 * time.Second

// probe stands in for a SessionActor and records everything sent to it.
type probe struct {
	ch chan interface{}
}

func (p *probe) Receive(ctx actor.Context) {
	switch ctx.Message().(type) {
	case *actor.Started, *actor.Stopping, *actor.Stopped, *actor.Restarting:
	default:
		p.ch <- ctx.Message()
	}
}

func spawnProbe(system *actor.ActorSystem) (*actor.PID, chan interface{}) {
	ch := make(chan interface{}, 64)
	pid := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor { return &probe{ch: ch} }))
	return pid, ch
}

func playerRef(pid *actor.PID, sessionID, username, creature string) messages.PlayerRef {
	return messages.PlayerRef{
		SessionID: sessionID,
		PID:       pid,
		Username:  username,
		Creature:  json.RawMessage(creature),
	}
}

func nextMessage(t *testing.T, ch chan interface{}) interface{} {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(probeTimeout):
		t.Fatal("timed out waiting for actor message")
		return nil
	}
}

// nextEnvelope waits for the next client-bound frame, skipping control
// messages like RoomEntered and RoomLeft.
func nextEnvelope(t *testing.T, ch chan interface{}) gjson.Result {
	t.Helper()
	deadline := time.After(probeTimeout)
	for {
		select {
		case m := <-ch:
			if fwd, ok := m.(*messages.ForwardToClient); ok {
				return gjson.ParseBytes(fwd.Payload)
			}
		case <-deadline:
			t.Fatal("timed out waiting for client envelope")
		}
	}
}

// nextEnvelopeOfType skips frames until one of the wanted type arrives.
func nextEnvelopeOfType(t *testing.T, ch chan interface{}, msgType string) gjson.Result {
	t.Helper()
	deadline := time.After(probeTimeout)
	for {
		select {
		case m := <-ch:
			if fwd, ok := m.(*messages.ForwardToClient); ok {
				env := gjson.ParseBytes(fwd.Payload)
				if env.Get("type").String() == msgType {
					return env
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s envelope", msgType)
		}
	}
}

// expectSilence fails if anything arrives within a short settling window.
func expectSilence(t *testing.T, ch chan interface{}) {
	t.Helper()
	select {
	case m := <-ch:
		t.Fatalf("unexpected message %#v", m)
	case <-time.After(200 * time.Millisecond):
	}
}

// expectNoEnvelopeOfType drains the channel for a settling window and fails
// if a frame of the given type shows up.
func expectNoEnvelopeOfType(t *testing.T, ch chan interface{}, msgType string) {
	t.Helper()
	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case m := <-ch:
			if fwd, ok := m.(*messages.ForwardToClient); ok {
				if gjson.GetBytes(fwd.Payload, "type").String() == msgType {
					t.Fatalf("unexpected %s envelope: %s", msgType, fwd.Payload)
				}
			}
		case <-deadline:
			return
		}
	}
}

func drain(ch chan interface{}) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
