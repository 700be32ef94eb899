package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/facechat/matching-server-go/internal/config"
	apperrors "github.com/facechat/matching-server-go/internal/errors"
	"github.com/facechat/matching-server-go/internal/ws"
)

// RequestFaceReveal starts the secondary consent handshake between matched
// sessions: the requester's partner is asked whether both cameras should be
// uncovered. Repeated requests within one match are collapsed into an
// already-requested notice.
func (e *Engine) RequestFaceReveal(ctx context.Context, userID string) error {
	e.mu.Lock()
	s := e.registry.Get(userID)
	if s == nil {
		e.mu.Unlock()
		return apperrors.SessionNotFound(userID)
	}
	if s.State != StateMatched || s.PartnerID == "" {
		e.mu.Unlock()
		log.Warn().Str("userId", userID).Msg("face reveal requested outside a match")
		return apperrors.NotMatched()
	}
	partnerID := s.PartnerID

	if s.FaceRevealRequested {
		e.mu.Unlock()
		already := ws.NewEvent(ws.EventAlreadyRequested, nil)
		e.notifier.Send(userID, already)
		e.notifier.Send(partnerID, already)
		return nil
	}
	e.mu.Unlock()

	user, err := e.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find user %s: %w", userID, err)
	}
	if user == nil {
		log.Warn().Str("userId", userID).Msg("face reveal request from unknown user")
		return apperrors.UnknownUser(userID)
	}

	e.mu.Lock()
	// the match may have ended during the profile lookup
	if s.State != StateMatched || s.PartnerID != partnerID {
		e.mu.Unlock()
		return nil
	}
	partner := e.registry.Get(partnerID)
	if partner == nil {
		e.mu.Unlock()
		return nil
	}
	s.FaceRevealRequested = true
	partner.FaceRevealRequested = true
	e.mu.Unlock()

	e.notifier.Send(partnerID, ws.NewEvent(ws.EventRequestFaceReveal, nil))
	log.Info().
		Str("nickname", user.Nickname).
		Msg("face reveal requested")
	return nil
}

// RespondFaceReveal delivers the partner's answer to a face-reveal request.
// receivedAt is when the request reached the responder; answers arriving
// after the response window simply lapse, without resetting the request
// flags.
func (e *Engine) RespondFaceReveal(ctx context.Context, userID string, response Response, receivedAt time.Time) error {
	e.mu.Lock()
	s := e.registry.Get(userID)
	if s == nil {
		e.mu.Unlock()
		return apperrors.SessionNotFound(userID)
	}
	if s.State != StateMatched || s.PartnerID == "" {
		e.mu.Unlock()
		log.Warn().Str("userId", userID).Msg("face reveal response outside a match")
		return apperrors.NotMatched()
	}
	partnerID := s.PartnerID
	e.mu.Unlock()

	if e.clock.Now().Sub(receivedAt) >= config.FaceRevealResponseWindow {
		late := ws.NewEvent(ws.EventRespondTooLate, nil)
		e.notifier.Send(userID, late)
		e.notifier.Send(partnerID, late)
		log.Info().Str("userId", userID).Msg("face reveal response arrived too late")
		return nil
	}

	user, err := e.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find user %s: %w", userID, err)
	}
	if user == nil {
		log.Warn().Str("userId", userID).Msg("face reveal response from unknown user")
		return apperrors.UnknownUser(userID)
	}

	var event ws.Event
	if response == ResponseAccept {
		event = ws.NewEvent(ws.EventPerformFaceReveal, nil)
	} else {
		event = ws.NewEvent(ws.EventFaceRevealDenied, nil)
	}

	e.notifier.Send(userID, event)
	e.notifier.Send(partnerID, event)

	log.Info().
		Str("nickname", user.Nickname).
		Str("response", string(response)).
		Msg("face reveal response delivered")
	return nil
}
