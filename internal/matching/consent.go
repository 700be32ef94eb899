package matching

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/facechat/matching-server-go/internal/model"
	"github.com/facechat/matching-server-go/internal/ws"
)

// HandleUserResponse resolves a session's accept or decline during the
// pending phase. A decline tears the introduction down immediately; an
// accept is recorded and, once both sides hold one, confirms the match. The
// accept that completes the mutual condition arrives second, so its sender
// becomes the signaling initiator: exactly one per pair, with no race.
func (e *Engine) HandleUserResponse(userID string, response Response) {
	e.mu.Lock()
	s := e.registry.Get(userID)
	if s == nil {
		e.mu.Unlock()
		return
	}
	partner := e.registry.Get(s.PartnerID)
	if partner == nil {
		e.mu.Unlock()
		log.Debug().Str("userId", userID).Msg("introduction response without a partner")
		return
	}
	// duplicate responses after the match resolved are ignored
	if s.State == StateMatched && partner.State == StateMatched {
		e.mu.Unlock()
		return
	}
	// a response outside the pending phase is stale: the introduction it
	// answers already resolved and either session may have moved on
	if s.State != StatePending || partner.State != StatePending || partner.PartnerID != userID {
		e.mu.Unlock()
		log.Debug().Str("userId", userID).Msg("introduction response outside pending phase")
		return
	}

	if response != ResponseAccept {
		e.declineLocked(s, partner)
		return
	}

	s.Response = ResponseAccept
	if partner.Response != ResponseAccept {
		e.mu.Unlock()
		return
	}

	e.confirmLocked(s, partner)
}

// declineLocked tears down a pending introduction. Called with the engine
// lock held; releases it.
func (e *Engine) declineLocked(s, partner *Session) {
	e.scheduler.CancelPair(s, partner)

	myID, partnerID := s.UserID, partner.UserID
	nickname, partnerNickname := s.Nickname, partner.Nickname

	s.State = StateIdle
	partner.State = StateIdle
	s.Response = ResponseNone
	partner.Response = ResponseNone
	s.PartnerID = ""
	partner.PartnerID = ""
	delete(e.pending, myID)
	delete(e.pending, partnerID)
	e.mu.Unlock()

	failed := ws.NewEvent(ws.EventMatchResult, ws.MatchResultPayload{})
	e.notifier.Send(myID, failed)
	e.notifier.Send(partnerID, failed)

	e.recordMatch(model.MatchOutcomeDeclined, myID, partnerID)
	log.Info().
		Str("nickname", nickname).
		Str("partnerNickname", partnerNickname).
		Msg("introduction declined")

	e.retry.Schedule(myID, partnerID)
}

// confirmLocked resolves a mutual accept into a confirmed match. Called with
// the engine lock held; releases it. s is the session whose accept arrived
// second.
func (e *Engine) confirmLocked(s, partner *Session) {
	e.scheduler.CancelPair(s, partner)

	s.Response = ResponseNone
	partner.Response = ResponseNone
	s.State = StateMatched
	partner.State = StateMatched

	roomID := uuid.NewString()
	s.RoomID = roomID
	partner.RoomID = roomID

	delete(e.pending, s.UserID)
	delete(e.pending, partner.UserID)

	myID, partnerID := s.UserID, partner.UserID
	nickname, partnerNickname := s.Nickname, partner.Nickname
	e.mu.Unlock()

	e.notifier.JoinRoom(roomID, myID)
	e.notifier.JoinRoom(roomID, partnerID)

	e.notifier.Send(myID, ws.NewEvent(ws.EventMatchResult, ws.MatchResultPayload{Result: true, Initiator: true}))
	e.notifier.Send(partnerID, ws.NewEvent(ws.EventMatchResult, ws.MatchResultPayload{Result: true}))

	e.recordMatch(model.MatchOutcomeMatched, myID, partnerID)
	log.Info().
		Str("nickname", nickname).
		Str("partnerNickname", partnerNickname).
		Str("roomId", roomID).
		Msg("mutual accept, webchat starting")
}

// handleIntroductionTimeout fires when the consent window closes. Each side
// is reset independently: a session no longer pending on this introduction
// already resolved it, and a session whose partner vanished must still be
// released rather than left pending forever.
func (e *Engine) handleIntroductionTimeout(myID, partnerID string) {
	e.mu.Lock()
	s := e.registry.Get(myID)
	if s != nil && (s.State != StatePending || s.PartnerID != partnerID) {
		s = nil
	}
	partner := e.registry.Get(partnerID)
	if partner != nil && (partner.State != StatePending || partner.PartnerID != myID) {
		partner = nil
	}
	if s == nil && partner == nil {
		e.mu.Unlock()
		return
	}

	clearFired(s, partner)
	var nickname, partnerNickname string
	if s != nil {
		nickname = s.Nickname
		s.Response = ResponseNone
		s.State = StateIdle
		s.PartnerID = ""
		delete(e.pending, myID)
	}
	if partner != nil {
		partnerNickname = partner.Nickname
		partner.Response = ResponseNone
		partner.State = StateIdle
		partner.PartnerID = ""
		delete(e.pending, partnerID)
	}
	e.mu.Unlock()

	failed := ws.NewEvent(ws.EventMatchResult, ws.MatchResultPayload{})
	e.notifier.Send(myID, failed)
	e.notifier.Send(partnerID, failed)

	e.recordMatch(model.MatchOutcomeExpired, myID, partnerID)
	log.Info().
		Str("nickname", nickname).
		Str("partnerNickname", partnerNickname).
		Msg("introduction timed out")

	e.retry.Schedule(myID, partnerID)
}
