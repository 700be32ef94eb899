package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/facechat/matching-server-go/internal/audit"
	apperrors "github.com/facechat/matching-server-go/internal/errors"
	"github.com/facechat/matching-server-go/internal/middleware"
	"github.com/facechat/matching-server-go/internal/model"
	"github.com/facechat/matching-server-go/internal/repository"
)

// UsersHandler serves the profile REST surface backing the matching flow:
// the profile itself, the image set shown at introductions, block relations
// and the match history.
type UsersHandler struct {
	users    repository.UserRepository
	images   repository.ImagesRepository
	blocks   repository.BlockLogRepository
	matchLog repository.MatchLogRepository
}

func NewUsersHandler(
	users repository.UserRepository,
	images repository.ImagesRepository,
	blocks repository.BlockLogRepository,
	matchLog repository.MatchLogRepository,
) *UsersHandler {
	return &UsersHandler{
		users:    users,
		images:   images,
		blocks:   blocks,
		matchLog: matchLog,
	}
}

func (h *UsersHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		writeError(w, apperrors.Database(err))
		return
	}
	if user == nil {
		writeError(w, apperrors.UnknownUser(userID))
		return
	}

	images, err := h.images.FindByUserID(r.Context(), userID)
	if err != nil {
		writeError(w, apperrors.Database(err))
		return
	}

	var urls []string
	if images != nil {
		urls = []string(images.URLs)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":   user,
		"images": urls,
	})
}

type createProfileRequest struct {
	Nickname  string       `json:"nickname"`
	Gender    model.Gender `json:"gender"`
	Birth     time.Time    `json:"birth"`
	Location  []string     `json:"location"`
	Interests []string     `json:"interests"`
	Purpose   string       `json:"purpose"`
}

func (h *UsersHandler) CreateMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req createProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("malformed request body"))
		return
	}
	if req.Nickname == "" {
		writeError(w, apperrors.MissingRequired("nickname"))
		return
	}
	if req.Gender != model.GenderMale && req.Gender != model.GenderFemale {
		writeError(w, apperrors.InvalidInput("gender", "must be MALE or FEMALE"))
		return
	}
	if !model.ValidLocations(req.Location) {
		writeError(w, apperrors.InvalidInput("location", "unknown location tags"))
		return
	}

	user, err := h.users.Create(r.Context(), model.CreateUserParams{
		ID:        userID,
		Nickname:  req.Nickname,
		Gender:    req.Gender,
		Birth:     req.Birth,
		Location:  req.Location,
		Interests: req.Interests,
		Purpose:   req.Purpose,
	})
	if err != nil {
		writeError(w, apperrors.Database(err))
		return
	}

	log.Info().Str("nickname", user.Nickname).Msg("profile created")
	writeJSON(w, http.StatusCreated, user)
}

func (h *UsersHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var params model.UpdateUserParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, apperrors.ValidationError("malformed request body"))
		return
	}
	if params.Location != nil && !model.ValidLocations(params.Location) {
		writeError(w, apperrors.InvalidInput("location", "unknown location tags"))
		return
	}

	user, err := h.users.Update(r.Context(), userID, params)
	if err != nil {
		writeError(w, apperrors.Database(err))
		return
	}
	if user == nil {
		writeError(w, apperrors.UnknownUser(userID))
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type updateImagesRequest struct {
	URLs []string `json:"urls"`
}

func (h *UsersHandler) UpdateImages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req updateImagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("malformed request body"))
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, apperrors.MissingRequired("urls"))
		return
	}

	images, err := h.images.Upsert(r.Context(), userID, req.URLs)
	if err != nil {
		writeError(w, apperrors.Database(err))
		return
	}

	writeJSON(w, http.StatusOK, images)
}

type blockRequest struct {
	TargetUserID string `json:"targetUserId"`
}

func (h *UsersHandler) BlockUser(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req blockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("malformed request body"))
		return
	}
	if req.TargetUserID == "" || req.TargetUserID == userID {
		writeError(w, apperrors.InvalidInput("targetUserId", "must name another user"))
		return
	}

	if err := h.blocks.AddBlock(r.Context(), userID, req.TargetUserID); err != nil {
		writeError(w, apperrors.Database(err))
		return
	}

	audit.Log(r.Context(), audit.Event{
		Type:         audit.EventUserBlocked,
		UserID:       userID,
		TargetUserID: req.TargetUserID,
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "blocked"})
}

func (h *UsersHandler) GetMatchHistory(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	pagination := ParsePagination(r)

	logs, err := h.matchLog.FindByUserID(r.Context(), userID, pagination.Limit, pagination.Offset)
	if err != nil {
		writeError(w, apperrors.Database(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"matches": logs,
		"limit":   pagination.Limit,
		"offset":  pagination.Offset,
	})
}
