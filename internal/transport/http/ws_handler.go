package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/impostorgames/room-server/internal/auth"
	"github.com/impostorgames/room-server/internal/core"
	"github.com/impostorgames/room-server/internal/proto"
)

// Inbound event budget per connection. Chat is the chattiest producer and
// stays well under this in normal play.
const (
	eventsPerSecond = 5
	eventBurst      = 10
)

// WSHandler upgrades HTTP connections and routes their events to rooms.
type WSHandler struct {
	registry *core.Registry
	sessions *auth.Service
	log      *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(registry *core.Registry, sessions *auth.Service, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{registry: registry, sessions: sessions, log: logger}
}

// wsSession tracks one connection's room binding. The binding is written by
// the read loop and read by the connection teardown.
type wsSession struct {
	client  *core.Client
	limiter *rate.Limiter

	mu   sync.Mutex
	room *core.Room
}

func (s *wsSession) bind(r *core.Room) {
	s.mu.Lock()
	s.room = r
	s.mu.Unlock()
}

// bound returns the session's room, dropping a binding to a room whose loop
// has already exited so the connection can create or join again.
func (s *wsSession) bound() *core.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.room != nil {
		select {
		case <-s.room.Done():
			s.room = nil
		default:
		}
	}
	return s.room
}

// Handle upgrades the connection and pumps events until either side closes.
func (h *WSHandler) Handle(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	sess := &wsSession{
		client:  core.NewClient(uuid.NewString()),
		limiter: rate.NewLimiter(eventsPerSecond, eventBurst),
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, sess)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, sess)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	// Disconnect acts as leave for a bound connection.
	if room := sess.bound(); room != nil {
		room.Deliver(sess.client, core.Command{Kind: core.CommandLeave})
	}

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("client_id", sess.client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, sess *wsSession) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		if !sess.limiter.Allow() {
			sess.client.Send(&core.Event{Kind: core.EventError, Error: &core.Error{
				Code: core.ErrCodeRateLimited, Message: "slow down",
			}})
			continue
		}

		switch inbound.Type {
		case proto.InboundTypeCreateRoom:
			h.handleCreate(sess, inbound.Data)
		case proto.InboundTypeJoinRoom:
			h.handleJoin(ctx, sess, inbound.Data)
		default:
			h.handleRoomEvent(sess, inbound)
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sess *wsSession) error {
	client := sess.client
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if event.Kind == core.EventRoomTerminated {
				// The room is gone, the connection may join another one.
				sess.bind(nil)
			}
			if err := wsjson.Write(ctx, conn, h.outboundFromEvent(client, event)); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) handleCreate(sess *wsSession, data json.RawMessage) {
	var req proto.CreateRoomData
	if err := json.Unmarshal(data, &req); err != nil {
		h.sendError(sess, core.ErrCodeBadRequest, "malformed create_room payload")
		return
	}
	if sess.bound() != nil {
		h.sendError(sess, core.ErrCodeBadRequest, "already in a room")
		return
	}

	room, cerr := h.registry.Create(sess.client, req.Nickname, req.Avatar)
	if cerr != nil {
		sess.client.Send(&core.Event{Kind: core.EventJoinError, Error: cerr})
		return
	}
	sess.bind(room)
}

func (h *WSHandler) handleJoin(ctx context.Context, sess *wsSession, data json.RawMessage) {
	var req proto.JoinRoomData
	if err := json.Unmarshal(data, &req); err != nil || req.RoomCode == "" {
		h.sendError(sess, core.ErrCodeBadRequest, "malformed join_room payload")
		return
	}
	if sess.bound() != nil {
		h.sendError(sess, core.ErrCodeBadRequest, "already in a room")
		return
	}

	nickname, avatar := req.Nickname, req.Avatar
	if req.Session != "" {
		// A valid resume token vouches for the persisted tuple. Invalid or
		// expired tokens are ignored and the join proceeds as a fresh one.
		if claims, err := h.sessions.Validate(req.Session); err == nil && claims.Room == req.RoomCode {
			nickname, avatar = claims.Nickname, claims.Avatar
			h.log.Info().Str("room", req.RoomCode).Str("nickname", nickname).Msg("rejoin with resume token")
		}
	}

	room, ok := h.registry.Get(req.RoomCode)
	if !ok {
		sess.client.Send(&core.Event{Kind: core.EventJoinError, Error: &core.Error{
			Code: core.ErrCodeRoomNotFound, Message: "room not found",
		}})
		return
	}

	reply := make(chan core.JoinReply, 1)
	room.Join(core.JoinRequest{
		Client:   sess.client,
		Nickname: nickname,
		Avatar:   avatar,
		Reply:    reply,
	})

	select {
	case rep := <-reply:
		if rep.Err != nil {
			sess.client.Send(&core.Event{Kind: core.EventJoinError, Error: rep.Err})
			return
		}
		sess.bind(room)
	case <-ctx.Done():
		// The join may still land after the connection died; vacate the
		// seat so the room does not keep a dead client around.
		go func() {
			select {
			case rep := <-reply:
				if rep.Err == nil {
					room.Deliver(sess.client, core.Command{Kind: core.CommandLeave})
				}
			case <-room.Done():
			}
		}()
	}
}

func (h *WSHandler) handleRoomEvent(sess *wsSession, inbound proto.Inbound) {
	cmd, protoErr := inboundToCommand(inbound)
	if protoErr != nil {
		sess.client.Send(&core.Event{Kind: core.EventError, Error: &core.Error{
			Code: protoErr.Code, Message: protoErr.Msg,
		}})
		return
	}

	room := sess.bound()
	if room == nil {
		h.sendError(sess, core.ErrCodeNotInRoom, "join a room first")
		return
	}
	if cmd.Kind == core.CommandLeave {
		sess.bind(nil)
	}
	room.Deliver(sess.client, *cmd)
}

func (h *WSHandler) sendError(sess *wsSession, code, msg string) {
	sess.client.Send(&core.Event{Kind: core.EventError, Error: &core.Error{Code: code, Message: msg}})
}
