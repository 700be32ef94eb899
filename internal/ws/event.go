package ws

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
)

// Event is the wire envelope for every message exchanged over a websocket
// connection, in either direction.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent builds an Event from a payload value. A payload that fails to
// marshal produces an event with empty data; payloads are plain structs so
// this does not happen in practice.
func NewEvent(eventType string, payload any) Event {
	if payload == nil {
		return Event{Type: eventType}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("failed to marshal event payload")
		return Event{Type: eventType}
	}
	return Event{Type: eventType, Data: data}
}

// Inbound event types (client -> coordinator).
const (
	EventStartMatching      = "start_matching"
	EventCancelMatching     = "cancel_matching"
	EventRespondToIntroduce = "respond_to_introduce"
	EventLeaveWebchat       = "leave_webchat"
	EventWebchatTimeout     = "webchat_timeout"
	EventRequestFaceReveal  = "request_face_reveal"
	EventRespondFaceReveal  = "respond_face_reveal"
	EventReportUser         = "report_user"
	EventOffer              = "offer"
	EventAnswer             = "answer"
	EventIce                = "ice"
)

// Outbound event types (coordinator -> client).
const (
	EventNotIdle                = "not_idle"
	EventNotWaiting             = "not_waiting"
	EventIntroduceEachUser      = "introduce_each_user"
	EventMatchResult            = "match_result"
	EventPartnerDisconnected    = "partner_disconnected"
	EventRestartMatchingRequest = "restart_matching_request"
	EventWebchatEnded           = "webchat_ended"
	EventAlreadyRequested       = "already_requested"
	EventFaceRevealDenied       = "face_reveal_denied"
	EventPerformFaceReveal      = "perform_face_reveal"
	EventRespondTooLate         = "respond_too_late"
	EventStartWebRTCSignaling   = "start_webrtc_signaling"
)

// Outbound payloads.

type MatchResultPayload struct {
	Result    bool `json:"result"`
	Initiator bool `json:"initiator"`
}

// IntroducedProfile is the public slice of a user's profile shown to the
// other side at introduction time.
type IntroducedProfile struct {
	ID         string   `json:"id"`
	Gender     string   `json:"gender"`
	Interests  []string `json:"interests"`
	Purpose    string   `json:"purpose"`
	Age        int      `json:"age"`
	Nickname   string   `json:"nickname"`
	Location   []string `json:"location"`
	ProfileURL string   `json:"profileUrl"`
}

type SignalingStartPayload struct {
	RoomName string `json:"roomName"`
}

type OfferPayload struct {
	Offer    json.RawMessage `json:"offer"`
	RoomName string          `json:"roomName"`
}

type AnswerPayload struct {
	Answer json.RawMessage `json:"answer"`
}

type IcePayload struct {
	Ice json.RawMessage `json:"ice"`
}

// Inbound payloads. The sender's identity comes from the authenticated
// connection, not from the payload.

type StartMatchingPayload struct {
	Filter json.RawMessage `json:"filter"`
}

type RespondToIntroducePayload struct {
	Response string `json:"response"`
}

type RespondFaceRevealPayload struct {
	Response     string    `json:"response"`
	ReceivedTime time.Time `json:"receivedTime"`
}

type ReportUserPayload struct {
	TargetUserID string `json:"targetUserId"`
}

type RelayPayload struct {
	Offer    json.RawMessage `json:"offer,omitempty"`
	Answer   json.RawMessage `json:"answer,omitempty"`
	Ice      json.RawMessage `json:"ice,omitempty"`
	RoomName string          `json:"roomName"`
}
