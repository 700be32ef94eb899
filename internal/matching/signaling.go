package matching

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	apperrors "github.com/facechat/matching-server-go/internal/errors"
	"github.com/facechat/matching-server-go/internal/ws"
)

// The signaling bridge is a pure relay: once a match is confirmed, the
// initiator's offer, the answer, and ICE candidates pass through untouched,
// scoped to the matched pair's room. Payload contents are never inspected.

// StartSignaling tells the rest of the room that the initiator is ready to
// begin the peer-to-peer exchange.
func (e *Engine) StartSignaling(userID string) {
	e.mu.Lock()
	s := e.registry.Get(userID)
	ok := s != nil && s.State == StateMatched && s.RoomID != ""
	var roomID string
	if ok {
		roomID = s.RoomID
	}
	e.mu.Unlock()

	if !ok {
		log.Debug().Str("userId", userID).Msg("signaling start outside a matched room")
		return
	}

	e.notifier.SendRoom(roomID, userID, ws.NewEvent(ws.EventStartWebRTCSignaling, ws.SignalingStartPayload{
		RoomName: roomID,
	}))
}

func (e *Engine) RelayOffer(userID string, offer json.RawMessage, roomID string) error {
	if err := e.checkRoom(userID, roomID); err != nil {
		return err
	}
	e.notifier.SendRoom(roomID, userID, ws.NewEvent(ws.EventOffer, ws.OfferPayload{
		Offer:    offer,
		RoomName: roomID,
	}))
	return nil
}

func (e *Engine) RelayAnswer(userID string, answer json.RawMessage, roomID string) error {
	if err := e.checkRoom(userID, roomID); err != nil {
		return err
	}
	e.notifier.SendRoom(roomID, userID, ws.NewEvent(ws.EventAnswer, ws.AnswerPayload{
		Answer: answer,
	}))
	return nil
}

func (e *Engine) RelayIce(userID string, ice json.RawMessage, roomID string) error {
	if err := e.checkRoom(userID, roomID); err != nil {
		return err
	}
	e.notifier.SendRoom(roomID, userID, ws.NewEvent(ws.EventIce, ws.IcePayload{
		Ice: ice,
	}))
	return nil
}

// checkRoom confines relays to the caller's own matched room.
func (e *Engine) checkRoom(userID, roomID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.registry.Get(userID)
	if s == nil || roomID == "" || s.RoomID != roomID {
		log.Warn().
			Str("userId", userID).
			Str("roomId", roomID).
			Msg("signaling relay refused: session does not own room")
		return apperrors.RoomMismatch()
	}
	return nil
}
