package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/facechat/matching-server-go/internal/audit"
	apperrors "github.com/facechat/matching-server-go/internal/errors"
	"github.com/facechat/matching-server-go/internal/matching"
	"github.com/facechat/matching-server-go/internal/middleware"
	"github.com/facechat/matching-server-go/internal/model"
	"github.com/facechat/matching-server-go/internal/repository"
	"github.com/facechat/matching-server-go/internal/ws"
)

// WSHandler upgrades authenticated requests to websocket connections and
// pumps inbound events into the matching engine. One goroutine per
// connection reads; the engine notifies through the hub.
type WSHandler struct {
	hub    *ws.Hub
	engine *matching.Engine
	users  repository.UserRepository
	blocks repository.BlockLogRepository

	limiter    *middleware.RedisRateLimiter
	eventLimit int

	upgrader websocket.Upgrader
}

func NewWSHandler(
	hub *ws.Hub,
	engine *matching.Engine,
	users repository.UserRepository,
	blocks repository.BlockLogRepository,
	limiter *middleware.RedisRateLimiter,
	eventLimit int,
	allowedOrigin string,
) *WSHandler {
	return &WSHandler{
		hub:        hub,
		engine:     engine,
		users:      users,
		blocks:     blocks,
		limiter:    limiter,
		eventLimit: eventLimit,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "*" {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, apperrors.Unauthorized("Missing authenticated user"))
		return
	}

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("userId", userID).Msg("websocket upgrade failed")
		return
	}

	conn := ws.NewConn(userID, wsConn)
	h.hub.Register(conn)
	h.engine.Attach(userID)

	defer func() {
		if h.hub.Unregister(conn) {
			h.engine.HandleDisconnect(userID)
		}
		conn.Close()
	}()

	for {
		event, err := conn.ReadEvent()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("userId", userID).Msg("websocket read failed")
			}
			return
		}

		if !h.allowEvent(r.Context(), userID) {
			continue
		}

		h.dispatch(r.Context(), userID, event)
	}
}

func (h *WSHandler) allowEvent(ctx context.Context, userID string) bool {
	if h.limiter == nil {
		return true
	}
	allowed, _, _ := h.limiter.Check(ctx, userID, h.eventLimit)
	if !allowed {
		log.Warn().Str("userId", userID).Msg("websocket event rate limit exceeded")
	}
	return allowed
}

func (h *WSHandler) dispatch(ctx context.Context, userID string, event ws.Event) {
	switch event.Type {
	case ws.EventStartMatching:
		var payload ws.StartMatchingPayload
		if !h.decode(userID, event, &payload) {
			return
		}
		var filter *model.MatchFilter
		if len(payload.Filter) > 0 {
			filter = &model.MatchFilter{}
			if err := json.Unmarshal(payload.Filter, filter); err != nil {
				log.Warn().Err(err).Str("userId", userID).Msg("malformed matching filter")
				filter = nil
			}
		}
		if err := h.engine.StartMatching(ctx, userID, filter); err != nil {
			log.Error().Err(err).Str("userId", userID).Msg("start matching failed")
		}

	case ws.EventCancelMatching:
		h.engine.CancelMatching(userID)

	case ws.EventRespondToIntroduce:
		var payload ws.RespondToIntroducePayload
		if !h.decode(userID, event, &payload) {
			return
		}
		h.engine.HandleUserResponse(userID, matching.Response(payload.Response))

	case ws.EventLeaveWebchat:
		h.engine.LeaveWebchat(userID)

	case ws.EventWebchatTimeout:
		h.engine.WebchatTimeout(userID)

	case ws.EventRequestFaceReveal:
		if err := h.engine.RequestFaceReveal(ctx, userID); err != nil {
			log.Error().Err(err).Str("userId", userID).Msg("face reveal request failed")
		}

	case ws.EventRespondFaceReveal:
		var payload ws.RespondFaceRevealPayload
		if !h.decode(userID, event, &payload) {
			return
		}
		receivedAt := payload.ReceivedTime
		if receivedAt.IsZero() {
			receivedAt = time.Now()
		}
		if err := h.engine.RespondFaceReveal(ctx, userID, matching.Response(payload.Response), receivedAt); err != nil {
			log.Error().Err(err).Str("userId", userID).Msg("face reveal response failed")
		}

	case ws.EventReportUser:
		var payload ws.ReportUserPayload
		if !h.decode(userID, event, &payload) {
			return
		}
		h.reportUser(ctx, userID, payload.TargetUserID)

	case ws.EventStartWebRTCSignaling:
		h.engine.StartSignaling(userID)

	case ws.EventOffer:
		var payload ws.RelayPayload
		if !h.decode(userID, event, &payload) {
			return
		}
		if err := h.engine.RelayOffer(userID, payload.Offer, payload.RoomName); err != nil {
			log.Warn().Err(err).Str("userId", userID).Msg("offer relay refused")
		}

	case ws.EventAnswer:
		var payload ws.RelayPayload
		if !h.decode(userID, event, &payload) {
			return
		}
		if err := h.engine.RelayAnswer(userID, payload.Answer, payload.RoomName); err != nil {
			log.Warn().Err(err).Str("userId", userID).Msg("answer relay refused")
		}

	case ws.EventIce:
		var payload ws.RelayPayload
		if !h.decode(userID, event, &payload) {
			return
		}
		if err := h.engine.RelayIce(userID, payload.Ice, payload.RoomName); err != nil {
			log.Warn().Err(err).Str("userId", userID).Msg("ice relay refused")
		}

	default:
		log.Debug().Str("userId", userID).Str("type", event.Type).Msg("unknown websocket event type")
	}
}

func (h *WSHandler) decode(userID string, event ws.Event, dest any) bool {
	if len(event.Data) == 0 {
		log.Warn().Str("userId", userID).Str("type", event.Type).Msg("event payload missing")
		return false
	}
	if err := json.Unmarshal(event.Data, dest); err != nil {
		log.Warn().Err(err).Str("userId", userID).Str("type", event.Type).Msg("malformed event payload")
		return false
	}
	return true
}

// reportUser records a report against the target and blocks them for the
// reporter, so the pair is never matched again.
func (h *WSHandler) reportUser(ctx context.Context, userID, targetUserID string) {
	if targetUserID == "" || targetUserID == userID {
		log.Warn().Str("userId", userID).Msg("report ignored: invalid target")
		return
	}

	if err := h.users.IncrementReported(ctx, targetUserID); err != nil {
		log.Error().Err(err).Str("targetUserId", targetUserID).Msg("failed to record report")
		return
	}
	if err := h.blocks.AddBlock(ctx, userID, targetUserID); err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("failed to block reported user")
	}

	audit.Log(ctx, audit.Event{
		Type:         audit.EventUserReported,
		UserID:       userID,
		TargetUserID: targetUserID,
	})
}
