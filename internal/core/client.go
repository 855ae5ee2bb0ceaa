package core

// Client is one live transport connection as seen by the core layer.
// A client is unbound until its first successful create_room/join_room.
type Client struct {
	ID     string
	Events chan *Event
}

// NewClient constructs a client with an initialized event channel.
func NewClient(id string) *Client {
	return &Client{
		ID:     id,
		Events: make(chan *Event, 32),
	}
}

// Send delivers an event to this client without blocking the sender.
// Slow consumers lose events rather than stalling the room.
func (c *Client) Send(ev *Event) {
	select {
	case c.Events <- ev:
	default:
	}
}
