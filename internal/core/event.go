package core

import "time"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventRoomCreated is the direct reply to a successful create_room.
	EventRoomCreated EventKind = iota
	// EventJoinSuccess is the direct reply to a successful join_room.
	EventJoinSuccess
	// EventRoster delivers a full roster snapshot to all room members.
	EventRoster
	// EventSettings delivers the current room settings to all room members.
	EventSettings
	// EventChat delivers a single chat message.
	EventChat
	// EventGameStarted announces the pre-game countdown.
	EventGameStarted
	// EventPhaseChanged announces a round phase transition.
	EventPhaseChanged
	// EventRoleAssigned privately delivers a player's role for the round.
	EventRoleAssigned
	// EventTimeUp signals that the debate deadline passed (still playing).
	EventTimeUp
	// EventVoteUpdate lists the voters that have confirmed so far.
	EventVoteUpdate
	// EventVoteResult delivers the tally when voting closes.
	EventVoteResult
	// EventRoomTerminated tells clients the room is gone.
	EventRoomTerminated
	// EventJoinError is the direct reply to a failed create/join.
	EventJoinError
	// EventError notifies a single client about a domain error.
	EventError
)

// PlayerInfo is the roster view of a player.
type PlayerInfo struct {
	ID       string
	Nickname string
	Avatar   string
}

// VoteResult is the outcome of a voting phase.
type VoteResult struct {
	AccusedID       string
	AccusedNickname string
	ImpostorID      string
	Counts          map[string]int
	Tie             bool
}

// Event is sent to clients to describe what happened in the room.
type Event struct {
	Kind     EventKind
	Code     string
	Player   PlayerInfo
	Players  []PlayerInfo
	HostID   string
	Settings Settings
	Message  ChatMessage
	Phase    Phase
	Deadline time.Time
	Seconds  int
	Word     string
	Impostor bool
	Voted    []string
	Result   *VoteResult
	Error    *Error
}
