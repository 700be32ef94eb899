package matching

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"

	"github.com/facechat/matching-server-go/internal/config"
	apperrors "github.com/facechat/matching-server-go/internal/errors"
	"github.com/facechat/matching-server-go/internal/model"
	"github.com/facechat/matching-server-go/internal/ws"
)

// Collaborator interfaces. The repository layer satisfies the directories;
// the match event log is append-only from the engine's point of view.

type ProfileDirectory interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

type BlockDirectory interface {
	FindByUserID(ctx context.Context, userID string) (*model.BlockLog, error)
}

type ImageDirectory interface {
	FindByUserID(ctx context.Context, userID string) (*model.Images, error)
}

type MatchEventLog interface {
	Create(ctx context.Context, outcome model.MatchOutcome, userIDs []string) (*model.MatchLog, error)
}

// Notifier delivers outbound events to live connections and manages the
// room scoping used by the signaling relay. The websocket hub implements it.
type Notifier interface {
	Send(userID string, event ws.Event)
	SendRoom(roomID, excludeUserID string, event ws.Event)
	JoinRoom(roomID, userID string)
	LeaveRoom(roomID, userID string)
	IsConnected(userID string) bool
}

// Engine is the matchmaking coordinator: it owns the session registry, the
// waiting and pending pools, and the timers, and it drives every phase of a
// pairing from first scan to signaling handoff.
//
// One mutex serializes all session and pool mutation. External lookups
// (profiles, block relations, images) are performed with the mutex released,
// so other events may interleave; every continuation therefore re-validates
// that the sessions it is about to mutate are still in the expected state
// before committing.
type Engine struct {
	mu       sync.Mutex
	registry *Registry
	waiting  *waitingPool
	pending  map[string]*Session

	users    ProfileDirectory
	blocks   BlockDirectory
	images   ImageDirectory
	matchLog MatchEventLog

	notifier  Notifier
	scheduler *TimeoutScheduler
	retry     *RetryDispatcher
	clock     clock.Clock
}

func NewEngine(
	users ProfileDirectory,
	blocks BlockDirectory,
	images ImageDirectory,
	matchLog MatchEventLog,
	notifier Notifier,
	clk clock.Clock,
) *Engine {
	return &Engine{
		registry:  NewRegistry(),
		waiting:   newWaitingPool(),
		pending:   make(map[string]*Session),
		users:     users,
		blocks:    blocks,
		images:    images,
		matchLog:  matchLog,
		notifier:  notifier,
		scheduler: NewTimeoutScheduler(clk),
		retry:     NewRetryDispatcher(clk, notifier),
		clock:     clk,
	}
}

// Attach registers a live connection's session, idle until it requests
// matching.
func (e *Engine) Attach(userID string) {
	e.mu.Lock()
	e.registry.Attach(userID)
	e.mu.Unlock()
}

// StartMatching validates the request and either pairs the user with the
// first eligible waiting candidate or parks them in the waiting pool.
func (e *Engine) StartMatching(ctx context.Context, userID string, filter *model.MatchFilter) error {
	user, err := e.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find user %s: %w", userID, err)
	}
	if user == nil {
		log.Warn().Str("userId", userID).Msg("start matching: unknown user")
		return apperrors.UnknownUser(userID)
	}

	if filter == nil {
		log.Warn().Str("nickname", user.Nickname).Msg("start matching: filter missing")
		return nil
	}
	if err := filter.Validate(); err != nil {
		log.Warn().
			Str("nickname", user.Nickname).
			Err(err).
			Msg("start matching: invalid filter")
		return nil
	}

	e.mu.Lock()
	s := e.registry.Get(userID)
	if s == nil {
		e.mu.Unlock()
		return apperrors.SessionNotFound(userID)
	}
	if s.State != StateIdle {
		e.mu.Unlock()
		e.notifier.Send(userID, ws.NewEvent(ws.EventNotIdle, nil))
		log.Warn().Str("nickname", user.Nickname).Msg("start matching: session not idle")
		return nil
	}
	s.Nickname = user.Nickname
	s.State = StateWaiting
	s.FaceRevealRequested = false
	waitingSize := e.waiting.len()
	e.mu.Unlock()

	log.Info().
		Str("nickname", user.Nickname).
		Int("waiting", waitingSize).
		Msg("start matching")

	partner, partnerUser := e.findPartner(ctx, s, user, filter)
	if partner == nil {
		e.mu.Lock()
		// the session may have canceled or disconnected during the scan
		if s.State == StateWaiting && e.registry.Get(userID) == s {
			e.waiting.insert(s, user)
			log.Info().Str("nickname", user.Nickname).Msg("no partner found, added to waiting pool")
		}
		e.mu.Unlock()
		return nil
	}

	return e.introduce(ctx, s, user, partner, partnerUser)
}

// findPartner scans the waiting pool in insertion order and returns the
// first candidate satisfying the requester's filter and the bidirectional
// block check. First fit wins; there is no scoring.
func (e *Engine) findPartner(ctx context.Context, s *Session, user *model.User, filter *model.MatchFilter) (*Session, *model.User) {
	e.mu.Lock()
	candidateIDs := e.waiting.snapshotIDs()
	e.mu.Unlock()

	for _, candidateID := range candidateIDs {
		if candidateID == user.ID {
			continue
		}

		e.mu.Lock()
		entry := e.waiting.get(candidateID)
		if entry == nil || entry.session.State != StateWaiting {
			e.mu.Unlock()
			continue
		}
		candidate := entry.session
		e.mu.Unlock()

		candidateUser, err := e.users.FindByID(ctx, candidateID)
		if err != nil {
			log.Error().Err(err).Str("userId", candidateID).Msg("pairing scan: profile lookup failed")
			continue
		}
		if candidateUser == nil {
			continue
		}

		if !candidateUser.Gender.Matches(filter.Gender) {
			continue
		}
		if !filter.AcceptsLocation(candidateUser.Location) {
			continue
		}
		if !filter.AcceptsAge(candidateUser.Age(e.clock.Now())) {
			continue
		}

		blocked, err := e.eitherBlocks(ctx, user.ID, candidateID)
		if err != nil {
			log.Error().Err(err).Str("userId", candidateID).Msg("pairing scan: block lookup failed")
			continue
		}
		if blocked {
			continue
		}

		// the lookups above may have yielded; both sides must still be
		// waiting for this candidate to count
		e.mu.Lock()
		stillEligible := s.State == StateWaiting &&
			candidate.State == StateWaiting &&
			e.waiting.get(candidateID) != nil
		e.mu.Unlock()
		if !stillEligible {
			continue
		}

		log.Info().
			Str("nickname", user.Nickname).
			Str("partnerNickname", candidateUser.Nickname).
			Msg("partner found")
		return candidate, candidateUser
	}

	return nil, nil
}

func (e *Engine) eitherBlocks(ctx context.Context, myID, partnerID string) (bool, error) {
	partnerBlocks, err := e.blocks.FindByUserID(ctx, partnerID)
	if err != nil {
		return false, fmt.Errorf("find block relation %s: %w", partnerID, err)
	}
	myBlocks, err := e.blocks.FindByUserID(ctx, myID)
	if err != nil {
		return false, fmt.Errorf("find block relation %s: %w", myID, err)
	}
	return partnerBlocks.Blocks(myID) || myBlocks.Blocks(partnerID), nil
}

// introduce moves two waiting sessions into the pending phase: both learn
// the other's public profile and the shared introduction timer starts.
func (e *Engine) introduce(ctx context.Context, s *Session, user *model.User, partner *Session, partnerUser *model.User) error {
	e.mu.Lock()
	e.scheduler.CancelPair(s, partner)
	e.mu.Unlock()

	myImages, err := e.images.FindByUserID(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("find images %s: %w", user.ID, err)
	}
	partnerImages, err := e.images.FindByUserID(ctx, partnerUser.ID)
	if err != nil {
		return fmt.Errorf("find images %s: %w", partnerUser.ID, err)
	}
	if myImages == nil || partnerImages == nil {
		missingID := partnerUser.ID
		if myImages == nil {
			log.Error().Str("nickname", user.Nickname).Msg("introduction aborted: no images")
			missingID = user.ID
		}
		if partnerImages == nil {
			log.Error().Str("nickname", partnerUser.Nickname).Msg("introduction aborted: no images")
		}
		return apperrors.ImagesNotFound(missingID)
	}

	e.mu.Lock()
	// the image lookups yielded; both sides must still be pairable. A
	// disconnect in the window removes the session from the registry, so
	// checking State on the dangling pointer alone is not enough.
	if s.State != StateWaiting || partner.State != StateWaiting ||
		e.registry.Get(user.ID) != s || e.registry.Get(partnerUser.ID) != partner {
		// the requester left the pool when the scan picked it up; put it
		// back if it is still here and still waiting
		if s.State == StateWaiting && e.registry.Get(user.ID) == s && e.waiting.get(user.ID) == nil {
			e.waiting.insert(s, user)
		}
		e.mu.Unlock()
		log.Debug().
			Str("nickname", user.Nickname).
			Str("partnerNickname", partnerUser.Nickname).
			Msg("introduction aborted: state changed during image lookup")
		return nil
	}

	e.waiting.remove(user.ID)
	e.waiting.remove(partnerUser.ID)
	e.pending[user.ID] = s
	e.pending[partnerUser.ID] = partner

	s.PartnerID = partnerUser.ID
	partner.PartnerID = user.ID
	s.Nickname = user.Nickname
	partner.Nickname = partnerUser.Nickname
	s.State = StatePending
	partner.State = StatePending
	s.Response = ResponseNone
	partner.Response = ResponseNone

	now := e.clock.Now()
	myInfo := introducedProfile(user, myImages, now)
	partnerInfo := introducedProfile(partnerUser, partnerImages, now)

	myID, partnerID := user.ID, partnerUser.ID
	e.scheduler.SchedulePair(s, partner, config.IntroductionTimeout, func() {
		e.handleIntroductionTimeout(myID, partnerID)
	})
	e.mu.Unlock()

	e.notifier.Send(myID, ws.NewEvent(ws.EventIntroduceEachUser, partnerInfo))
	e.notifier.Send(partnerID, ws.NewEvent(ws.EventIntroduceEachUser, myInfo))

	e.recordMatch(model.MatchOutcomePending, myID, partnerID)

	log.Info().
		Str("nickname", user.Nickname).
		Str("partnerNickname", partnerUser.Nickname).
		Msg("users introduced, awaiting consent")
	return nil
}

// CancelMatching withdraws a waiting session from the pool.
func (e *Engine) CancelMatching(userID string) {
	e.mu.Lock()
	s := e.registry.Get(userID)
	if s == nil {
		e.mu.Unlock()
		return
	}
	if s.State != StateWaiting {
		nickname := s.Nickname
		e.mu.Unlock()
		e.notifier.Send(userID, ws.NewEvent(ws.EventNotWaiting, nil))
		log.Warn().Str("nickname", nickname).Msg("cancel matching: session not waiting")
		return
	}

	s.State = StateIdle
	e.waiting.remove(userID)
	waitingSize := e.waiting.len()
	e.mu.Unlock()

	log.Info().
		Str("userId", userID).
		Int("waiting", waitingSize).
		Msg("matching canceled")
}

// recordMatch appends to the match event trail. A failed append is logged
// and otherwise ignored: the trail is advisory, the match itself is not.
func (e *Engine) recordMatch(outcome model.MatchOutcome, userIDs ...string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := e.matchLog.Create(ctx, outcome, userIDs); err != nil {
		log.Error().
			Err(err).
			Str("outcome", string(outcome)).
			Strs("userIds", userIDs).
			Msg("failed to record match event")
	}
}

func introducedProfile(user *model.User, images *model.Images, now time.Time) ws.IntroducedProfile {
	return ws.IntroducedProfile{
		ID:         user.ID,
		Gender:     string(user.Gender),
		Interests:  []string(user.Interests),
		Purpose:    user.Purpose,
		Age:        user.Age(now),
		Nickname:   user.Nickname,
		Location:   []string(user.Location),
		ProfileURL: images.PrimaryURL(),
	}
}
