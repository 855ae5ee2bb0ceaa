package core

// CommandKind describes what a bound client wants to do.
type CommandKind int

const (
	// CommandSendMessage relays a chat message to room members.
	CommandSendMessage CommandKind = iota
	// CommandUpdateSettings changes room settings (host, lobby only).
	CommandUpdateSettings
	// CommandStartGame begins the countdown (host, lobby only).
	CommandStartGame
	// CommandMoreDebate extends the debate after the deadline passed.
	CommandMoreDebate
	// CommandVoteNow advances to voting after the deadline passed.
	CommandVoteNow
	// CommandAccuse records the sender's accusation.
	CommandAccuse
	// CommandConfirmVote finalizes the sender's accusation.
	CommandConfirmVote
	// CommandEndGame resets the round back to lobby (host only).
	CommandEndGame
	// CommandTerminate destroys the room (host only).
	CommandTerminate
	// CommandLeave removes the sender from the room.
	CommandLeave
)

// Command represents an action requested by a client.
type Command struct {
	Kind       CommandKind
	Text       string
	Timer      int
	MaxPlayers int
	AccusedID  string
}

// envelope pairs a command with the connection it came from, so the room
// loop can reply to the sender alone.
type envelope struct {
	cmd  Command
	from *Client
}
