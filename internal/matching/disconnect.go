package matching

import (
	"github.com/rs/zerolog/log"

	"github.com/facechat/matching-server-go/internal/model"
	"github.com/facechat/matching-server-go/internal/ws"
)

// HandleDisconnect tears down everything a vanished connection held: pool
// membership, timers, the partner bond, and the room. A partner still online
// is told immediately and may re-enter matching on its own; no staggered
// retry is scheduled for it.
func (e *Engine) HandleDisconnect(userID string) {
	e.mu.Lock()
	s := e.registry.Get(userID)
	if s == nil {
		e.mu.Unlock()
		return
	}

	e.waiting.remove(userID)
	delete(e.pending, userID)

	wasPaired := s.State == StatePending || s.State == StateMatched

	// capture the bond before clearing it so the canceled-match record
	// names both real identities
	partnerID := s.PartnerID
	roomID := s.RoomID
	nickname := s.Nickname

	// reset unconditionally: a continuation holding this pointer across a
	// lookup must never see it still waiting or pending
	e.scheduler.Cancel(s)
	s.State = StateIdle
	s.PartnerID = ""
	s.RoomID = ""
	s.Response = ResponseNone

	var partnerNickname string
	if wasPaired {
		if partner := e.registry.Get(partnerID); partner != nil {
			partnerNickname = partner.Nickname
			delete(e.pending, partnerID)
			e.scheduler.Cancel(partner)
			partner.State = StateIdle
			partner.PartnerID = ""
			partner.RoomID = ""
			partner.Response = ResponseNone
		}
	}

	e.registry.Remove(userID)
	e.mu.Unlock()

	if roomID != "" {
		e.notifier.LeaveRoom(roomID, userID)
		e.notifier.LeaveRoom(roomID, partnerID)
	}

	if wasPaired {
		e.recordMatch(model.MatchOutcomeCanceled, userID, partnerID)
		log.Info().
			Str("nickname", nickname).
			Str("partnerNickname", partnerNickname).
			Msg("user disconnected during pairing")

		if e.notifier.IsConnected(partnerID) {
			e.notifier.Send(partnerID, ws.NewEvent(ws.EventPartnerDisconnected, nil))
		}
		return
	}

	log.Debug().Str("userId", userID).Msg("user disconnected")
}

// LeaveWebchat ends a confirmed match at one member's request. Both sides
// get the end-of-call notice and return to idle; neither is nudged to retry.
func (e *Engine) LeaveWebchat(userID string) {
	e.mu.Lock()
	s := e.registry.Get(userID)
	if s == nil || s.State != StateMatched || s.PartnerID == "" {
		e.mu.Unlock()
		log.Warn().Str("userId", userID).Msg("leave webchat outside a match")
		return
	}
	partner := e.registry.Get(s.PartnerID)

	myID, partnerID := s.UserID, s.PartnerID
	roomID := s.RoomID
	nickname, partnerNickname := s.Nickname, s.Nickname
	if partner != nil {
		partnerNickname = partner.Nickname
	}
	e.resetPairLocked(s, partner)
	e.mu.Unlock()

	e.endWebchat(myID, partnerID, roomID)
	log.Info().
		Str("nickname", nickname).
		Str("partnerNickname", partnerNickname).
		Msg("webchat ended by user")
}

// WebchatTimeout ends a confirmed match whose call-duration limit lapsed.
// Like LeaveWebchat it schedules no retry notices.
func (e *Engine) WebchatTimeout(userID string) {
	e.mu.Lock()
	s := e.registry.Get(userID)
	if s == nil || s.State != StateMatched || s.PartnerID == "" {
		e.mu.Unlock()
		return
	}
	partner := e.registry.Get(s.PartnerID)
	if partner != nil && partner.State == StateIdle {
		// the other side already wound the call down
		e.mu.Unlock()
		return
	}

	myID, partnerID := s.UserID, s.PartnerID
	roomID := s.RoomID
	nickname, partnerNickname := s.Nickname, s.Nickname
	if partner != nil {
		partnerNickname = partner.Nickname
	}
	e.resetPairLocked(s, partner)
	e.mu.Unlock()

	e.endWebchat(myID, partnerID, roomID)
	log.Info().
		Str("nickname", nickname).
		Str("partnerNickname", partnerNickname).
		Msg("webchat timed out")
}

// resetPairLocked returns both sessions to their pre-match defaults. Called
// with the engine lock held; partner may be nil.
func (e *Engine) resetPairLocked(s, partner *Session) {
	for _, member := range []*Session{s, partner} {
		if member == nil {
			continue
		}
		e.scheduler.Cancel(member)
		member.PartnerID = ""
		member.RoomID = ""
		member.Response = ResponseNone
		member.State = StateIdle
	}
}

func (e *Engine) endWebchat(myID, partnerID, roomID string) {
	ended := ws.NewEvent(ws.EventWebchatEnded, nil)
	e.notifier.Send(myID, ended)
	e.notifier.Send(partnerID, ended)

	if roomID != "" {
		e.notifier.LeaveRoom(roomID, myID)
		e.notifier.LeaveRoom(roomID, partnerID)
	}

	e.recordMatch(model.MatchOutcomeCanceled, myID, partnerID)
}
