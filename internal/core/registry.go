package core

import (
	"crypto/rand"
	"math/big"
	"sync"

	"github.com/rs/zerolog"
)

const (
	codeLength  = 5
	codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Registry is the process-wide mapping of room code to Room.
type Registry struct {
	mu        sync.Mutex
	rooms     map[string]*Room
	words     WordProvider
	log       zerolog.Logger
	chatLimit int
	defaults  Settings
}

// RegistryOptions tune new rooms created through the registry.
type RegistryOptions struct {
	Words           WordProvider
	DefaultSettings Settings
	ChatLogLimit    int
}

// NewRegistry builds an empty registry.
func NewRegistry(opts RegistryOptions, logger zerolog.Logger) *Registry {
	if opts.Words == nil {
		opts.Words = DefaultWordProvider()
	}
	if opts.DefaultSettings == (Settings{}) {
		opts.DefaultSettings = DefaultSettings()
	}
	if opts.ChatLogLimit == 0 {
		opts.ChatLogLimit = 200
	}
	return &Registry{
		rooms:     make(map[string]*Room),
		words:     opts.Words,
		log:       logger,
		chatLimit: opts.ChatLogLimit,
		defaults:  opts.DefaultSettings,
	}
}

// Create allocates a fresh room with the caller as sole player and host.
// The creator's direct room_created ack and initial snapshots are queued on
// its event channel before the room loop starts.
func (reg *Registry) Create(client *Client, nickname, avatar string) (*Room, *Error) {
	if !ValidNickname(nickname) {
		return nil, newError(ErrCodeInvalidNickname, "nickname must be 1-20 printable characters")
	}

	host := &Player{ID: client.ID, Nickname: nickname, Avatar: avatar, client: client}

	reg.mu.Lock()
	code := reg.freshCodeLocked()
	room := newRoom(code, host, reg.defaults, reg.chatLimit, reg.words, reg.log, reg.remove)
	reg.rooms[code] = room
	reg.mu.Unlock()

	room.welcome(client, EventRoomCreated, host.info())
	go room.run()

	reg.log.Info().Str("room", code).Str("host", nickname).Msg("room created")
	return room, nil
}

// Get resolves a room code.
func (reg *Registry) Get(code string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[code]
	return room, ok
}

// Count returns the number of active rooms.
func (reg *Registry) Count() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

// Shutdown terminates every active room.
func (reg *Registry) Shutdown() {
	reg.mu.Lock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	reg.mu.Unlock()

	for _, room := range rooms {
		room.Shutdown()
		<-room.Done()
	}
}

// remove drops a room from the map. Idempotent.
func (reg *Registry) remove(code string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, code)
}

// freshCodeLocked generates a code that no active room uses. Collisions are
// checked under the registry lock, so two concurrent creates can never end
// up with the same code.
func (reg *Registry) freshCodeLocked() string {
	for {
		code := randomCode()
		if _, taken := reg.rooms[code]; !taken {
			return code
		}
	}
}

func randomCode() string {
	buf := make([]byte, codeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			// crypto/rand is unavailable, fall back deterministically.
			buf[i] = codeCharset[0]
			continue
		}
		buf[i] = codeCharset[n.Int64()]
	}
	return string(buf)
}
