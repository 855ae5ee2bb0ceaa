package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Client -> server message types.
const (
	InboundTypeCreateRoom     = "create_room"
	InboundTypeJoinRoom       = "join_room"
	InboundTypeLeaveRoom      = "leave_room"
	InboundTypeSendMessage    = "send_message"
	InboundTypeUpdateSettings = "update_room_settings"
	InboundTypeStartGame      = "start_game"
	InboundTypeMoreDebate     = "more_debate"
	InboundTypeVoteNow        = "vote_now"
	InboundTypeAccuse         = "accuse"
	InboundTypeConfirmVote    = "confirm_vote"
	InboundTypeEndGame        = "end_game"
	InboundTypeTerminateGame  = "terminate_game"
)

// Server -> client message types.
const (
	OutboundTypeRoomCreated     = "room_created"
	OutboundTypeJoinSuccess     = "join_room_success"
	OutboundTypeJoinError       = "join_room_error"
	OutboundTypeUpdatePlayers   = "update_players"
	OutboundTypeSettingsUpdated = "room_settings_updated"
	OutboundTypeReceiveMessage  = "receive_message"
	OutboundTypeGameStarted     = "game_started"
	OutboundTypePhaseChanged    = "phase_changed"
	OutboundTypeRoleAssigned    = "role_assigned"
	OutboundTypeTimeUp          = "time_up"
	OutboundTypeVoteUpdate      = "vote_update"
	OutboundTypeVoteResult      = "vote_result"
	OutboundTypeRoomTerminated  = "room_terminated"
	OutboundTypeError           = "error"
)

// CreateRoomData is sent by a client to open a new room as host.
type CreateRoomData struct {
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

// JoinRoomData requests to join (or rejoin) an existing room. Session is an
// optional resume token from a previous join.
type JoinRoomData struct {
	RoomCode string `json:"roomCode"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
	Session  string `json:"session,omitempty"`
}

// RoomCodeData covers the inbound messages that only carry the room code.
type RoomCodeData struct {
	RoomCode string `json:"roomCode"`
}

// SendMessageData is a chat message from the client. The server tags the
// broadcast with the sender's registered nickname, not this field.
type SendMessageData struct {
	RoomCode string `json:"roomCode"`
	Nickname string `json:"nickname,omitempty"`
	Message  string `json:"message"`
}

// UpdateSettingsData changes the room configuration (host, lobby only).
type UpdateSettingsData struct {
	RoomCode   string `json:"roomCode"`
	Timer      int    `json:"timer"`
	MaxPlayers int    `json:"maxPlayers"`
}

// AccuseData records a vote against another player.
type AccuseData struct {
	RoomCode  string `json:"roomCode"`
	AccusedID string `json:"accusedId"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// RoomAckData acknowledges a successful create/join to the caller only.
type RoomAckData struct {
	Code    string `json:"code"`
	Session string `json:"session,omitempty"`
}

// PlayerData is one roster entry.
type PlayerData struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

// UpdatePlayersData is the full roster snapshot broadcast.
type UpdatePlayersData struct {
	Players []PlayerData `json:"players"`
	HostID  string       `json:"hostId"`
}

// SettingsData mirrors the accepted room settings to every member.
type SettingsData struct {
	Timer      int `json:"timer"`
	MaxPlayers int `json:"maxPlayers"`
}

// ReceiveMessageData is a chat broadcast. ID and TS let clients render
// idempotently across reconnects.
type ReceiveMessageData struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Message  string `json:"message"`
	TS       int64  `json:"ts"`
}

// GameStartedData announces the pre-game countdown length in seconds.
type GameStartedData struct {
	Countdown int `json:"countdown"`
}

// PhaseChangedData announces a phase transition. Deadline is a Unix
// timestamp; clients compute time remaining locally.
type PhaseChangedData struct {
	Phase    string `json:"phase"`
	Deadline int64  `json:"deadline,omitempty"`
}

// RoleAssignedData privately tells a player their role for the round.
type RoleAssignedData struct {
	Word     string `json:"word,omitempty"`
	Impostor bool   `json:"impostor"`
}

// TimeUpData signals the debate deadline passed; clients get Grace seconds
// to pick more_debate or vote_now before voting starts automatically.
type TimeUpData struct {
	Grace int `json:"grace"`
}

// VoteUpdateData lists the voters that have confirmed so far.
type VoteUpdateData struct {
	Voted []string `json:"voted"`
}

// VoteResultData carries the tally when voting closes.
type VoteResultData struct {
	AccusedID  string         `json:"accusedId"`
	Nickname   string         `json:"nickname,omitempty"`
	ImpostorID string         `json:"impostorId"`
	Counts     map[string]int `json:"counts"`
	Tie        bool           `json:"tie"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
