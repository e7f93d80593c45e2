package http

import (
	"encoding/json"
	"fmt"

	"github.com/Raj5489/Share-Me/internal/core"
	"github.com/Raj5489/Share-Me/internal/proto"
)

// inboundToCommand maps a wire message to a core command. A non-nil
// proto.Error means the message was malformed and the error should be
// sent back without disconnecting; a non-nil error is a transport-level
// failure.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeJoinRoom:
		var data proto.JoinData
		if err := json.Unmarshal(inbound.Data, &data); err != nil || data.Room == "" {
			return nil, &proto.Error{Code: core.ErrCodeInvalidRoomCode, Msg: "missing or malformed room code"}, nil
		}
		return &core.Command{Kind: core.CommandJoinRoom, Room: data.Room}, nil, nil

	case proto.InboundTypeLeaveRoom:
		var data proto.LeaveData
		if err := json.Unmarshal(inbound.Data, &data); err != nil || data.Room == "" {
			return nil, &proto.Error{Code: core.ErrCodeInvalidRoomCode, Msg: "missing or malformed room code"}, nil
		}
		return &core.Command{Kind: core.CommandLeaveRoom, Room: data.Room}, nil, nil

	case proto.InboundTypeOffer, proto.InboundTypeAnswer, proto.InboundTypeIceCandidate:
		var data proto.SignalData
		if err := json.Unmarshal(inbound.Data, &data); err != nil || data.Target == "" {
			return nil, &proto.Error{Code: "bad_request", Msg: "signal requires a target"}, nil
		}
		return &core.Command{
			Kind:    core.CommandRelayDirect,
			Target:  data.Target,
			Relay:   inbound.Type,
			Payload: inbound.Data,
		}, nil, nil

	case proto.InboundTypeFileInfo, proto.InboundTypeFileChunk, proto.InboundTypeFileComplete:
		var data struct {
			Room string `json:"room"`
		}
		if err := json.Unmarshal(inbound.Data, &data); err != nil || data.Room == "" {
			return nil, &proto.Error{Code: "bad_request", Msg: "file event requires a room"}, nil
		}
		return &core.Command{
			Kind:    core.CommandRelayRoom,
			Room:    data.Room,
			Relay:   inbound.Type,
			Payload: inbound.Data,
		}, nil, nil

	case proto.InboundTypePing:
		var data proto.PingData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, &proto.Error{Code: "bad_request", Msg: "malformed ping"}, nil
		}
		return &core.Command{Kind: core.CommandPing, PingTimestamp: data.Timestamp}, nil, nil

	default:
		return nil, &proto.Error{Code: "bad_request", Msg: fmt.Sprintf("unknown message type %q", inbound.Type)}, nil
	}
}

// outboundFromEvent maps a core event to its wire representation.
func outboundFromEvent(ev *core.Event) proto.Outbound {
	switch ev.Kind {
	case core.EventUsersInRoom:
		return dataOutbound(proto.OutboundTypeUsersInRoom, proto.UsersInRoomData{
			Room:  ev.Room,
			Users: ev.Users,
		})
	case core.EventUserJoined:
		return dataOutbound(proto.OutboundTypeUserJoined, proto.UserEventData{
			Room: ev.Room,
			User: ev.User,
		})
	case core.EventUserLeft:
		return dataOutbound(proto.OutboundTypeUserLeft, proto.UserEventData{
			Room: ev.Room,
			User: ev.User,
		})
	case core.EventRoomStatus:
		return dataOutbound(proto.OutboundTypeRoomStatus, proto.RoomStatusData{
			Room:  ev.Room,
			Count: ev.Count,
			Users: ev.Users,
		})
	case core.EventRelay:
		return proto.Outbound{Type: ev.Relay, From: ev.From, Data: ev.Payload}
	case core.EventPong:
		return dataOutbound(proto.OutboundTypePong, proto.PongData{
			Timestamp:  ev.Pong.Timestamp,
			ServerTime: ev.Pong.ServerTime,
		})
	case core.EventError:
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: ev.Error.Code, Msg: ev.Error.Message},
		}
	default:
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: "internal", Msg: "unmapped event"},
		}
	}
}

func dataOutbound(typ string, v any) proto.Outbound {
	data, err := json.Marshal(v)
	if err != nil {
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: "internal", Msg: "failed to encode event"},
		}
	}
	return proto.Outbound{Type: typ, Data: data}
}
