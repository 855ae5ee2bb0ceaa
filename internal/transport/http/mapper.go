package http

import (
	"encoding/json"

	"github.com/impostorgames/room-server/internal/core"
	"github.com/impostorgames/room-server/internal/proto"
)

// inboundToCommand maps a room-scoped inbound message to a core command.
// create_room and join_room are handled separately in the ws handler.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeSendMessage:
		var msg proto.SendMessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil || msg.Message == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "message is required"}
		}
		return &core.Command{Kind: core.CommandSendMessage, Text: msg.Message}, nil

	case proto.InboundTypeUpdateSettings:
		var settings proto.UpdateSettingsData
		if err := json.Unmarshal(inbound.Data, &settings); err != nil {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "malformed settings payload"}
		}
		return &core.Command{
			Kind:       core.CommandUpdateSettings,
			Timer:      settings.Timer,
			MaxPlayers: settings.MaxPlayers,
		}, nil

	case proto.InboundTypeStartGame:
		return &core.Command{Kind: core.CommandStartGame}, nil

	case proto.InboundTypeMoreDebate:
		return &core.Command{Kind: core.CommandMoreDebate}, nil

	case proto.InboundTypeVoteNow:
		return &core.Command{Kind: core.CommandVoteNow}, nil

	case proto.InboundTypeAccuse:
		var accuse proto.AccuseData
		if err := json.Unmarshal(inbound.Data, &accuse); err != nil || accuse.AccusedID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "accusedId is required"}
		}
		return &core.Command{Kind: core.CommandAccuse, AccusedID: accuse.AccusedID}, nil

	case proto.InboundTypeConfirmVote:
		return &core.Command{Kind: core.CommandConfirmVote}, nil

	case proto.InboundTypeEndGame:
		return &core.Command{Kind: core.CommandEndGame}, nil

	case proto.InboundTypeTerminateGame:
		return &core.Command{Kind: core.CommandTerminate}, nil

	case proto.InboundTypeLeaveRoom:
		return &core.Command{Kind: core.CommandLeave}, nil

	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}
	}
}

// outboundFromEvent converts a core event into its wire envelope. Create and
// join acks additionally get a resume token minted for the seated player.
func (h *WSHandler) outboundFromEvent(client *core.Client, event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventRoomCreated, core.EventJoinSuccess:
		outType := proto.OutboundTypeRoomCreated
		if event.Kind == core.EventJoinSuccess {
			outType = proto.OutboundTypeJoinSuccess
		}
		ack := proto.RoomAckData{Code: event.Code}
		token, err := h.sessions.Issue(event.Code, event.Player.Nickname, event.Player.Avatar)
		if err != nil {
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("failed to issue resume token")
		} else {
			ack.Session = token
		}
		return proto.Outbound{Type: outType, Data: ack}

	case core.EventJoinError:
		return proto.Outbound{
			Type:  proto.OutboundTypeJoinError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}

	case core.EventRoster:
		players := make([]proto.PlayerData, 0, len(event.Players))
		for _, p := range event.Players {
			players = append(players, proto.PlayerData{ID: p.ID, Nickname: p.Nickname, Avatar: p.Avatar})
		}
		return proto.Outbound{
			Type: proto.OutboundTypeUpdatePlayers,
			Data: proto.UpdatePlayersData{Players: players, HostID: event.HostID},
		}

	case core.EventSettings:
		return proto.Outbound{
			Type: proto.OutboundTypeSettingsUpdated,
			Data: proto.SettingsData{Timer: event.Settings.TimerSeconds, MaxPlayers: event.Settings.MaxPlayers},
		}

	case core.EventChat:
		return proto.Outbound{
			Type: proto.OutboundTypeReceiveMessage,
			Data: proto.ReceiveMessageData{
				ID:       event.Message.ID,
				Nickname: event.Message.Sender,
				Message:  event.Message.Body,
				TS:       event.Message.CreatedAt.Unix(),
			},
		}

	case core.EventGameStarted:
		return proto.Outbound{
			Type: proto.OutboundTypeGameStarted,
			Data: proto.GameStartedData{Countdown: event.Seconds},
		}

	case core.EventPhaseChanged:
		data := proto.PhaseChangedData{Phase: string(event.Phase)}
		if !event.Deadline.IsZero() {
			data.Deadline = event.Deadline.Unix()
		}
		return proto.Outbound{Type: proto.OutboundTypePhaseChanged, Data: data}

	case core.EventRoleAssigned:
		return proto.Outbound{
			Type: proto.OutboundTypeRoleAssigned,
			Data: proto.RoleAssignedData{Word: event.Word, Impostor: event.Impostor},
		}

	case core.EventTimeUp:
		return proto.Outbound{
			Type: proto.OutboundTypeTimeUp,
			Data: proto.TimeUpData{Grace: event.Seconds},
		}

	case core.EventVoteUpdate:
		return proto.Outbound{
			Type: proto.OutboundTypeVoteUpdate,
			Data: proto.VoteUpdateData{Voted: event.Voted},
		}

	case core.EventVoteResult:
		return proto.Outbound{
			Type: proto.OutboundTypeVoteResult,
			Data: proto.VoteResultData{
				AccusedID:  event.Result.AccusedID,
				Nickname:   event.Result.AccusedNickname,
				ImpostorID: event.Result.ImpostorID,
				Counts:     event.Result.Counts,
				Tie:        event.Result.Tie,
			},
		}

	case core.EventRoomTerminated:
		return proto.Outbound{Type: proto.OutboundTypeRoomTerminated}

	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}

	default:
		return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown event"}}
	}
}
