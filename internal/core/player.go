package core

import (
	"time"
	"unicode"

	"github.com/google/uuid"
)

// SystemSender is the reserved nickname for server-generated chat messages.
const SystemSender = "BOT"

// Player is a seat in a room, bound to exactly one live connection.
// It does not outlive the connection: a rejoin creates a new Player.
type Player struct {
	ID       string
	Nickname string
	Avatar   string
	client   *Client
}

func (p *Player) info() PlayerInfo {
	return PlayerInfo{ID: p.ID, Nickname: p.Nickname, Avatar: p.Avatar}
}

// ValidNickname reports whether a nickname is 1-20 printable characters.
func ValidNickname(nickname string) bool {
	runes := []rune(nickname)
	if len(runes) < 1 || len(runes) > 20 {
		return false
	}
	for _, r := range runes {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// ChatMessage is the domain model for a single chat entry.
type ChatMessage struct {
	ID        string
	Sender    string
	Body      string
	CreatedAt time.Time
}

func newChatMessage(sender, body string) ChatMessage {
	return ChatMessage{
		ID:        uuid.NewString(),
		Sender:    sender,
		Body:      body,
		CreatedAt: time.Now(),
	}
}
