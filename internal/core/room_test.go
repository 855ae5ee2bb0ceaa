package core

import (
	"testing"
	"time"
)

// mustPhase drains events until a phase_changed for the wanted phase arrives.
func mustPhase(t *testing.T, ch <-chan *Event, phase Phase) *Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == EventPhaseChanged && ev.Phase == phase {
				return ev
			}
		case <-deadline:
			t.Fatalf("expected phase %s not reached", phase)
			return nil
		}
	}
}

// mustRoster drains events until a roster snapshot satisfies the predicate.
func mustRoster(t *testing.T, ch <-chan *Event, ok func(*Event) bool) *Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == EventRoster && ok(ev) {
				return ev
			}
		case <-deadline:
			t.Fatalf("expected roster snapshot not received")
			return nil
		}
	}
}

func TestRoomJoinOrderAndRoster(t *testing.T) {
	room, host, _ := startTestRoom(t, Settings{TimerSeconds: 60, MaxPlayers: 5})

	joinTestPlayer(t, room, "p2", "Beto")
	joinTestPlayer(t, room, "p3", "Caro")

	ev := mustRoster(t, host.Events, func(ev *Event) bool { return len(ev.Players) == 3 })
	if ev.HostID != host.ID {
		t.Fatalf("host id = %s, want %s", ev.HostID, host.ID)
	}
	want := []string{"Ana", "Beto", "Caro"}
	for i, nick := range want {
		if ev.Players[i].Nickname != nick {
			t.Fatalf("roster[%d] = %s, want %s (join order must hold)", i, ev.Players[i].Nickname, nick)
		}
	}
}

func TestRoomFullRejectsJoinWithoutMutating(t *testing.T) {
	room, _, _ := startTestRoom(t, Settings{TimerSeconds: 60, MaxPlayers: 3})

	joinTestPlayer(t, room, "p2", "Beto")
	joinTestPlayer(t, room, "p3", "Caro")

	reply := make(chan JoinReply, 1)
	room.Join(JoinRequest{Client: NewClient("p4"), Nickname: "Dani", Avatar: "x", Reply: reply})
	rep := recvReply(t, reply)
	if rep.Err == nil || rep.Err.Code != ErrCodeRoomFull {
		t.Fatalf("expected room_full, got %+v", rep.Err)
	}

	view := room.Inspect()
	if len(view.Players) != 3 {
		t.Fatalf("roster mutated by rejected join: %d players", len(view.Players))
	}
}

func TestJoinRejectsBadNickname(t *testing.T) {
	room, _, _ := startTestRoom(t, Settings{TimerSeconds: 60, MaxPlayers: 5})

	for _, nickname := range []string{"", "this nickname is way too long for a seat"} {
		reply := make(chan JoinReply, 1)
		room.Join(JoinRequest{Client: NewClient("px"), Nickname: nickname, Avatar: "x", Reply: reply})
		rep := recvReply(t, reply)
		if rep.Err == nil || rep.Err.Code != ErrCodeInvalidNickname {
			t.Fatalf("nickname %q: expected invalid_nickname, got %+v", nickname, rep.Err)
		}
	}
}

func TestHostLeaveHandsOverInJoinOrder(t *testing.T) {
	room, host, _ := startTestRoom(t, Settings{TimerSeconds: 60, MaxPlayers: 5})

	p2 := joinTestPlayer(t, room, "p2", "Beto")
	joinTestPlayer(t, room, "p3", "Caro")

	room.Deliver(host, Command{Kind: CommandLeave})

	ev := mustRoster(t, p2.Events, func(ev *Event) bool { return ev.HostID == "p2" })
	if len(ev.Players) != 2 {
		t.Fatalf("roster size = %d, want 2 after the host left", len(ev.Players))
	}
}

func TestLastPlayerLeavingDestroysRoom(t *testing.T) {
	room, host, closed := startTestRoom(t, Settings{TimerSeconds: 60, MaxPlayers: 5})

	room.Deliver(host, Command{Kind: CommandLeave})

	select {
	case code := <-closed:
		if code != "ABCDE" {
			t.Fatalf("closed code = %s", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("room was not destroyed after last player left")
	}
	<-room.Done()
}

func TestTerminateRequiresHost(t *testing.T) {
	room, host, closed := startTestRoom(t, Settings{TimerSeconds: 60, MaxPlayers: 5})
	p2 := joinTestPlayer(t, room, "p2", "Beto")

	room.Deliver(p2, Command{Kind: CommandTerminate})
	ev := mustEvent(t, p2.Events, EventError)
	if ev.Error.Code != ErrCodeUnauthorized {
		t.Fatalf("expected unauthorized, got %s", ev.Error.Code)
	}
	if view := room.Inspect(); len(view.Players) != 2 {
		t.Fatalf("room should survive a non-host terminate")
	}
	mustNoEvent(t, host.Events, EventRoomTerminated, 100*time.Millisecond)

	room.Deliver(host, Command{Kind: CommandTerminate})
	mustEvent(t, p2.Events, EventRoomTerminated)
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("terminate did not unregister the room")
	}
}

func TestSettingsUpdateRules(t *testing.T) {
	room, host, _ := startTestRoom(t, Settings{TimerSeconds: 60, MaxPlayers: 5})
	p2 := joinTestPlayer(t, room, "p2", "Beto")

	// Non-host updates are rejected.
	room.Deliver(p2, Command{Kind: CommandUpdateSettings, Timer: 90, MaxPlayers: 5})
	if ev := mustEvent(t, p2.Events, EventError); ev.Error.Code != ErrCodeUnauthorized {
		t.Fatalf("expected unauthorized, got %s", ev.Error.Code)
	}

	// Out-of-range values are rejected.
	for _, cmd := range []Command{
		{Kind: CommandUpdateSettings, Timer: 5, MaxPlayers: 5},
		{Kind: CommandUpdateSettings, Timer: 60, MaxPlayers: 2},
		{Kind: CommandUpdateSettings, Timer: 60, MaxPlayers: 11},
		{Kind: CommandUpdateSettings, Timer: 60, MaxPlayers: 1},
	} {
		room.Deliver(host, cmd)
		if ev := mustEvent(t, host.Events, EventError); ev.Error.Code != ErrCodeInvalidSettings {
			t.Fatalf("cmd %+v: expected invalid_settings, got %s", cmd, ev.Error.Code)
		}
	}

	// A valid host update reaches every member identically.
	drain(p2.Events)
	room.Deliver(host, Command{Kind: CommandUpdateSettings, Timer: 45, MaxPlayers: 6})
	for _, c := range []*Client{host, p2} {
		ev := mustEvent(t, c.Events, EventSettings)
		if ev.Settings.TimerSeconds != 45 || ev.Settings.MaxPlayers != 6 {
			t.Fatalf("settings broadcast mismatch: %+v", ev.Settings)
		}
	}
}

func TestSettingsCannotDropBelowOccupancy(t *testing.T) {
	room, host, _ := startTestRoom(t, Settings{TimerSeconds: 60, MaxPlayers: 5})
	joinTestPlayer(t, room, "p2", "Beto")
	joinTestPlayer(t, room, "p3", "Caro")
	joinTestPlayer(t, room, "p4", "Dani")

	room.Deliver(host, Command{Kind: CommandUpdateSettings, Timer: 60, MaxPlayers: 3})
	if ev := mustEvent(t, host.Events, EventError); ev.Error.Code != ErrCodeInvalidSettings {
		t.Fatalf("expected invalid_settings, got %s", ev.Error.Code)
	}
}

func TestSettingsLockedOutsideLobby(t *testing.T) {
	room, host, _ := startTestRoom(t, Settings{TimerSeconds: 60, MaxPlayers: 5})
	joinTestPlayer(t, room, "p2", "Beto")
	joinTestPlayer(t, room, "p3", "Caro")

	room.Deliver(host, Command{Kind: CommandStartGame})
	mustEvent(t, host.Events, EventGameStarted)

	room.Deliver(host, Command{Kind: CommandUpdateSettings, Timer: 90, MaxPlayers: 5})
	if ev := mustEvent(t, host.Events, EventError); ev.Error.Code != ErrCodeInvalidPhase {
		t.Fatalf("expected invalid_phase, got %s", ev.Error.Code)
	}
}

func TestStartGameRequiresThreePlayers(t *testing.T) {
	room, host, _ := startTestRoom(t, Settings{TimerSeconds: 60, MaxPlayers: 5})
	joinTestPlayer(t, room, "p2", "Beto")

	room.Deliver(host, Command{Kind: CommandStartGame})
	if ev := mustEvent(t, host.Events, EventError); ev.Error.Code != ErrCodeInvalidPhase {
		t.Fatalf("expected invalid_phase, got %s", ev.Error.Code)
	}
	if view := room.Inspect(); view.Phase != PhaseLobby {
		t.Fatalf("phase = %s, want lobby", view.Phase)
	}
}

func TestStartGameRequiresHost(t *testing.T) {
	room, _, _ := startTestRoom(t, Settings{TimerSeconds: 60, MaxPlayers: 5})
	p2 := joinTestPlayer(t, room, "p2", "Beto")
	joinTestPlayer(t, room, "p3", "Caro")

	room.Deliver(p2, Command{Kind: CommandStartGame})
	if ev := mustEvent(t, p2.Events, EventError); ev.Error.Code != ErrCodeUnauthorized {
		t.Fatalf("expected unauthorized, got %s", ev.Error.Code)
	}
}

func TestRoundFlowCountdownRolesAndTimeUp(t *testing.T) {
	// Debate length of zero lets the playing deadline fire immediately.
	room, host, _ := startTestRoom(t, Settings{TimerSeconds: 0, MaxPlayers: 5})
	p2 := joinTestPlayer(t, room, "p2", "Beto")
	p3 := joinTestPlayer(t, room, "p3", "Caro")

	room.Deliver(host, Command{Kind: CommandStartGame})
	mustEvent(t, host.Events, EventGameStarted)
	mustPhase(t, host.Events, PhaseCountdown)

	// Roles land right before the playing broadcast, so read them first.
	impostors, words := 0, 0
	for _, c := range []*Client{host, p2, p3} {
		role := mustEvent(t, c.Events, EventRoleAssigned)
		if role.Impostor {
			impostors++
		} else if role.Word != "" {
			words++
		}
	}
	if impostors != 1 || words != 2 {
		t.Fatalf("roles: %d impostors, %d with word; want 1 and 2", impostors, words)
	}

	mustPhase(t, host.Events, PhasePlaying)
	mustEvent(t, host.Events, EventTimeUp)
}

func TestMoreDebateExtendsDeadline(t *testing.T) {
	room, host, _ := startTestRoom(t, Settings{TimerSeconds: 0, MaxPlayers: 5})
	p2 := joinTestPlayer(t, room, "p2", "Beto")
	joinTestPlayer(t, room, "p3", "Caro")

	room.Deliver(host, Command{Kind: CommandStartGame})
	mustEvent(t, p2.Events, EventTimeUp)

	room.Deliver(p2, Command{Kind: CommandMoreDebate})
	ev := mustPhase(t, p2.Events, PhasePlaying)
	if ev.Deadline.IsZero() {
		t.Fatal("extended playing phase must carry a deadline")
	}

	// The extension runs out again.
	mustEvent(t, p2.Events, EventTimeUp)
}

func TestVotingLatestAccusationCounts(t *testing.T) {
	room, host, _ := startTestRoom(t, Settings{TimerSeconds: 0, MaxPlayers: 5})
	p2 := joinTestPlayer(t, room, "p2", "Beto")
	p3 := joinTestPlayer(t, room, "p3", "Caro")

	room.Deliver(host, Command{Kind: CommandStartGame})
	mustEvent(t, host.Events, EventTimeUp)
	room.Deliver(p2, Command{Kind: CommandVoteNow})
	mustPhase(t, host.Events, PhaseVoting)

	room.Deliver(host, Command{Kind: CommandAccuse, AccusedID: "p2"})
	room.Deliver(p2, Command{Kind: CommandAccuse, AccusedID: host.ID})
	room.Deliver(p3, Command{Kind: CommandAccuse, AccusedID: "p2"})
	// Caro reconsiders; only the latest accusation may count.
	room.Deliver(p3, Command{Kind: CommandAccuse, AccusedID: host.ID})

	room.Deliver(host, Command{Kind: CommandConfirmVote})
	room.Deliver(p2, Command{Kind: CommandConfirmVote})
	room.Deliver(p3, Command{Kind: CommandConfirmVote})

	ev := mustEvent(t, p2.Events, EventVoteResult)
	if ev.Result.AccusedID != host.ID {
		t.Fatalf("accused = %s, want %s", ev.Result.AccusedID, host.ID)
	}
	if ev.Result.Counts[host.ID] != 2 || ev.Result.Counts["p2"] != 1 {
		t.Fatalf("counts = %+v", ev.Result.Counts)
	}
	if ev.Result.Tie {
		t.Fatal("expected a decisive result")
	}

	// Results drain back into lobby on their own.
	mustPhase(t, host.Events, PhaseLobby)
}

func TestDepartureDuringVotingRefreshesVoteUpdate(t *testing.T) {
	room, host, _ := startTestRoom(t, Settings{TimerSeconds: 0, MaxPlayers: 5})
	p2 := joinTestPlayer(t, room, "p2", "Beto")
	joinTestPlayer(t, room, "p3", "Caro")
	p4 := joinTestPlayer(t, room, "p4", "Dani")

	room.Deliver(host, Command{Kind: CommandStartGame})
	mustEvent(t, host.Events, EventTimeUp)
	room.Deliver(p2, Command{Kind: CommandVoteNow})
	mustPhase(t, host.Events, PhaseVoting)

	room.Deliver(p2, Command{Kind: CommandAccuse, AccusedID: "p4"})
	room.Deliver(p2, Command{Kind: CommandConfirmVote})
	if ev := mustEvent(t, host.Events, EventVoteUpdate); len(ev.Voted) != 1 || ev.Voted[0] != "p2" {
		t.Fatalf("vote update after confirm = %v", ev.Voted)
	}

	// Dani leaves; Beto's accusation named them, so the confirmation is
	// stripped and everyone must see the shrunken voter list.
	room.Deliver(p4, Command{Kind: CommandLeave})
	if ev := mustEvent(t, host.Events, EventVoteUpdate); len(ev.Voted) != 0 {
		t.Fatalf("vote update after departure = %v, want empty", ev.Voted)
	}
	if view := room.Inspect(); view.Phase != PhaseVoting {
		t.Fatalf("phase = %s, want voting to continue", view.Phase)
	}
}

func TestSelfAccusationRejected(t *testing.T) {
	room, host, _ := startTestRoom(t, Settings{TimerSeconds: 0, MaxPlayers: 5})
	p2 := joinTestPlayer(t, room, "p2", "Beto")
	joinTestPlayer(t, room, "p3", "Caro")

	room.Deliver(host, Command{Kind: CommandStartGame})
	mustEvent(t, host.Events, EventTimeUp)
	room.Deliver(p2, Command{Kind: CommandVoteNow})
	mustPhase(t, p2.Events, PhaseVoting)

	room.Deliver(p2, Command{Kind: CommandAccuse, AccusedID: "p2"})
	if ev := mustEvent(t, p2.Events, EventError); ev.Error.Code != ErrCodeBadRequest {
		t.Fatalf("expected bad_request, got %s", ev.Error.Code)
	}
}

func TestAccuseOutsideVotingRejectedWithoutSideEffects(t *testing.T) {
	room, host, _ := startTestRoom(t, Settings{TimerSeconds: 60, MaxPlayers: 5})
	joinTestPlayer(t, room, "p2", "Beto")

	room.Deliver(host, Command{Kind: CommandAccuse, AccusedID: "p2"})
	if ev := mustEvent(t, host.Events, EventError); ev.Error.Code != ErrCodeInvalidPhase {
		t.Fatalf("expected invalid_phase, got %s", ev.Error.Code)
	}
	if view := room.Inspect(); view.Phase != PhaseLobby {
		t.Fatalf("phase = %s, want lobby", view.Phase)
	}
}

func TestDepartureMidRoundForcesLobby(t *testing.T) {
	room, host, _ := startTestRoom(t, Settings{TimerSeconds: 600, MaxPlayers: 5})
	joinTestPlayer(t, room, "p2", "Beto")
	p3 := joinTestPlayer(t, room, "p3", "Caro")

	room.Deliver(host, Command{Kind: CommandStartGame})
	mustPhase(t, host.Events, PhasePlaying)

	room.Deliver(p3, Command{Kind: CommandLeave})
	mustPhase(t, host.Events, PhaseLobby)
	if view := room.Inspect(); view.Phase != PhaseLobby || len(view.Players) != 2 {
		t.Fatalf("view = %+v, want 2 players back in lobby", view)
	}
}

func TestEndGameResetsRound(t *testing.T) {
	room, host, _ := startTestRoom(t, Settings{TimerSeconds: 600, MaxPlayers: 5})
	p2 := joinTestPlayer(t, room, "p2", "Beto")
	joinTestPlayer(t, room, "p3", "Caro")

	room.Deliver(host, Command{Kind: CommandStartGame})
	mustPhase(t, p2.Events, PhasePlaying)

	room.Deliver(p2, Command{Kind: CommandEndGame})
	if ev := mustEvent(t, p2.Events, EventError); ev.Error.Code != ErrCodeUnauthorized {
		t.Fatalf("expected unauthorized, got %s", ev.Error.Code)
	}

	room.Deliver(host, Command{Kind: CommandEndGame})
	mustPhase(t, p2.Events, PhaseLobby)
}

func TestChatBroadcastOrderAndUniqueIDs(t *testing.T) {
	room, host, _ := startTestRoom(t, Settings{TimerSeconds: 60, MaxPlayers: 5})
	p2 := joinTestPlayer(t, room, "p2", "Beto")

	room.Deliver(host, Command{Kind: CommandSendMessage, Text: "hola"})
	room.Deliver(p2, Command{Kind: CommandSendMessage, Text: "buenas"})
	room.Deliver(host, Command{Kind: CommandSendMessage, Text: "empezamos?"})

	want := []string{"hola", "buenas", "empezamos?"}
	for _, c := range []*Client{host, p2} {
		seen := make(map[string]bool)
		got := make([]string, 0, len(want))
		for len(got) < len(want) {
			ev := mustEvent(t, c.Events, EventChat)
			if ev.Message.Sender == SystemSender {
				continue
			}
			if seen[ev.Message.ID] {
				t.Fatalf("duplicate chat id %s", ev.Message.ID)
			}
			seen[ev.Message.ID] = true
			got = append(got, ev.Message.Body)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("chat order for %s: got %v, want %v", c.ID, got, want)
			}
		}
	}
}

func TestJoinerReceivesChatHistory(t *testing.T) {
	room, host, _ := startTestRoom(t, Settings{TimerSeconds: 60, MaxPlayers: 5})
	room.Deliver(host, Command{Kind: CommandSendMessage, Text: "primero"})

	p2 := joinTestPlayer(t, room, "p2", "Beto")
	ev := mustEvent(t, p2.Events, EventChat)
	if ev.Message.Body != "primero" {
		t.Fatalf("history replay = %q, want %q", ev.Message.Body, "primero")
	}
}

func TestUnboundClientCommandRejected(t *testing.T) {
	room, _, _ := startTestRoom(t, Settings{TimerSeconds: 60, MaxPlayers: 5})

	stranger := NewClient("ghost")
	room.Deliver(stranger, Command{Kind: CommandSendMessage, Text: "boo"})
	if ev := mustEvent(t, stranger.Events, EventError); ev.Error.Code != ErrCodeNotInRoom {
		t.Fatalf("expected not_in_room, got %s", ev.Error.Code)
	}
}
