package signal

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Roulette/internal/core"
	"github.com/dkeye/Roulette/internal/domain"
	"github.com/pion/webrtc/v4"
)

var (
	ErrUnknownEvent = errors.New("unknown event")
	ErrBadPayload   = errors.New("bad payload")
)

// envelope is one socket event: {"event": name, "data": {...}}.
type envelope struct {
	Event core.SignalType `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type joinData struct {
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	Interests []string `json:"interests"`
}

type roomData struct {
	RoomID domain.RoomID `json:"roomId,omitempty"`
}

type sdpData struct {
	RoomID domain.RoomID              `json:"roomId"`
	SDP    *webrtc.SessionDescription `json:"sdp"`
}

type candidateData struct {
	RoomID    domain.RoomID            `json:"roomId"`
	Candidate *webrtc.ICECandidateInit `json:"candidate"`
	Type      domain.CandidateTag      `json:"type"`
}

type chatData struct {
	RoomID     domain.RoomID `json:"roomId,omitempty"`
	Message    string        `json:"message"`
	SenderName string        `json:"senderName,omitempty"`
	Timestamp  int64         `json:"timestamp,omitempty"`
}

type errorData struct {
	Message string `json:"message"`
}

// Encode serializes a client to server signal.
func Encode(sig core.Signal) (core.Frame, error) {
	var data any
	switch sig.Type {
	case core.SignalJoin:
		if sig.Identity == nil {
			return nil, fmt.Errorf("%w: join without identity", ErrBadPayload)
		}
		interests := sig.Interests
		if interests == nil {
			interests = []string{}
		}
		data = joinData{Email: sig.Identity.Email, Name: sig.Identity.DisplayName, Interests: interests}
	case core.SignalOffer, core.SignalAnswer:
		if sig.SDP == nil {
			return nil, fmt.Errorf("%w: %s without sdp", ErrBadPayload, sig.Type)
		}
		data = sdpData{RoomID: sig.RoomID, SDP: sig.SDP}
	case core.SignalICECandidate:
		if sig.Candidate == nil || !sig.Tag.Valid() {
			return nil, fmt.Errorf("%w: candidate without candidate or tag", ErrBadPayload)
		}
		data = candidateData{RoomID: sig.RoomID, Candidate: sig.Candidate, Type: sig.Tag}
	case core.SignalChatMessage:
		data = chatData{RoomID: sig.RoomID, Message: sig.Text}
	case core.SignalReportUser:
		data = roomData{RoomID: sig.RoomID}
	case core.SignalDisconnectRoom:
		data = struct{}{}
	default:
		return nil, fmt.Errorf("%w: cannot send %q", ErrUnknownEvent, sig.Type)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Event: sig.Type, Data: raw})
}

// Decode parses a server to client frame.
func Decode(frame core.Frame) (core.Signal, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return core.Signal{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	sig := core.Signal{Type: env.Event}

	switch env.Event {
	case core.SignalSendOffer:
		var d roomData
		if err := unmarshalData(env, &d); err != nil {
			return sig, err
		}
		sig.RoomID = d.RoomID
	case core.SignalOffer, core.SignalAnswer:
		var d sdpData
		if err := unmarshalData(env, &d); err != nil {
			return sig, err
		}
		if d.SDP == nil {
			return sig, fmt.Errorf("%w: %s without sdp", ErrBadPayload, env.Event)
		}
		sig.RoomID = d.RoomID
		sig.SDP = d.SDP
	case core.SignalICECandidate:
		var d candidateData
		if err := unmarshalData(env, &d); err != nil {
			return sig, err
		}
		if d.Candidate == nil || !d.Type.Valid() {
			return sig, fmt.Errorf("%w: candidate without candidate or tag", ErrBadPayload)
		}
		sig.RoomID = d.RoomID
		sig.Candidate = d.Candidate
		sig.Tag = d.Type
	case core.SignalChatMessage:
		var d chatData
		if err := unmarshalData(env, &d); err != nil {
			return sig, err
		}
		sig.RoomID = d.RoomID
		sig.Text = d.Message
		sig.SenderName = d.SenderName
		if d.Timestamp > 0 {
			sig.Timestamp = time.UnixMilli(d.Timestamp)
		}
	case core.SignalError:
		var d errorData
		if err := unmarshalData(env, &d); err != nil {
			return sig, err
		}
		sig.Error = d.Message
	case core.SignalLobby, core.SignalUserDisconnected:
	default:
		return sig, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
	return sig, nil
}

func unmarshalData(env envelope, v any) error {
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadPayload, env.Event, err)
	}
	return nil
}
