package core

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fastTimings keeps state-machine tests from sleeping through real rounds.
func fastTimings() roundTimings {
	return roundTimings{
		countdown: 10 * time.Millisecond,
		extension: 50 * time.Millisecond,
		grace:     500 * time.Millisecond,
		voting:    500 * time.Millisecond,
		results:   50 * time.Millisecond,
	}
}

// startTestRoom builds a room with the given host nickname and returns it
// together with the host's client. onClose is recorded on a channel so tests
// can observe destruction.
func startTestRoom(t *testing.T, settings Settings) (*Room, *Client, chan string) {
	t.Helper()

	host := NewClient("conn-host")
	player := &Player{ID: host.ID, Nickname: "Ana", Avatar: "detective-1", client: host}
	closed := make(chan string, 1)
	room := newRoom("ABCDE", player, settings, 200, DefaultWordProvider(), zerolog.Nop(), func(code string) {
		closed <- code
	})
	room.timings = fastTimings()
	go room.run()
	t.Cleanup(func() {
		room.Shutdown()
		<-room.Done()
	})
	return room, host, closed
}

// joinTestPlayer seats a new player and fails the test on rejection.
func joinTestPlayer(t *testing.T, room *Room, id, nickname string) *Client {
	t.Helper()

	client := NewClient(id)
	reply := make(chan JoinReply, 1)
	room.Join(JoinRequest{Client: client, Nickname: nickname, Avatar: "detective-2", Reply: reply})
	rep := recvReply(t, reply)
	if rep.Err != nil {
		t.Fatalf("join %s failed: %v", nickname, rep.Err)
	}
	return client
}

func recvReply(t *testing.T, ch <-chan JoinReply) JoinReply {
	t.Helper()

	select {
	case rep := <-ch:
		return rep
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for join reply")
		return JoinReply{}
	}
}

// mustEvent drains a client's event channel until an event of the wanted
// kind arrives, discarding everything else.
func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("expected event kind %v not received", kind)
			return nil
		}
	}
}

// mustNoEvent asserts no event of the given kind shows up within the window.
func mustNoEvent(t *testing.T, ch <-chan *Event, kind EventKind, within time.Duration) {
	t.Helper()

	deadline := time.After(within)
	for {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v: %+v", kind, ev)
			}
		case <-deadline:
			return
		}
	}
}

func drain(ch <-chan *Event) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
