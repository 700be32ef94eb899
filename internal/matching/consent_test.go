package matching

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facechat/matching-server-go/internal/config"
	"github.com/facechat/matching-server-go/internal/model"
	"github.com/facechat/matching-server-go/internal/ws"
)

func matchResult(t *testing.T, te *testEngine, userID string) ws.MatchResultPayload {
	t.Helper()
	event, ok := te.notifier.lastEvent(userID)
	require.True(t, ok)
	require.Equal(t, ws.EventMatchResult, event.Type)
	var payload ws.MatchResultPayload
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	return payload
}

func TestMutualAcceptConfirmsMatch(t *testing.T) {
	te := newTestEngine()
	te.addUser("u1", "민수", model.GenderMale, 25)
	te.addUser("u2", "영희", model.GenderFemale, 24)

	te.pairUp(t, "u1", "u2")
	te.engine.HandleUserResponse("u1", ResponseAccept)
	te.engine.HandleUserResponse("u2", ResponseAccept)

	assert.Equal(t, StateMatched, te.engine.registry.Get("u1").State)
	assert.Equal(t, StateMatched, te.engine.registry.Get("u2").State)

	first := matchResult(t, te, "u1")
	second := matchResult(t, te, "u2")
	assert.True(t, first.Result)
	assert.True(t, second.Result)

	// the accept completing the pair arrived from u2
	assert.False(t, first.Initiator)
	assert.True(t, second.Initiator)

	roomID := te.notifier.roomOf("u1")
	require.NotEmpty(t, roomID)
	assert.Equal(t, roomID, te.notifier.roomOf("u2"))
	assert.Equal(t, roomID, te.engine.registry.Get("u1").RoomID)

	matched := te.matchLog.byOutcome(model.MatchOutcomeMatched)
	require.Len(t, matched, 1)
	assert.ElementsMatch(t, []string{"u1", "u2"}, matched[0].userIDs)
}

func TestSingleAcceptKeepsPending(t *testing.T) {
	te := newTestEngine()
	te.addUser("u1", "민수", model.GenderMale, 25)
	te.addUser("u2", "영희", model.GenderFemale, 24)

	te.pairUp(t, "u1", "u2")
	te.engine.HandleUserResponse("u1", ResponseAccept)

	assert.Equal(t, StatePending, te.engine.registry.Get("u1").State)
	assert.Equal(t, StatePending, te.engine.registry.Get("u2").State)
	assert.Equal(t, 0, te.notifier.countType("u1", ws.EventMatchResult))
}

func TestDeclineEndsIntroduction(t *testing.T) {
	te := newTestEngine()
	te.addUser("u1", "민수", model.GenderMale, 25)
	te.addUser("u2", "영희", model.GenderFemale, 24)

	te.pairUp(t, "u1", "u2")
	te.engine.HandleUserResponse("u1", ResponseAccept)
	te.engine.HandleUserResponse("u2", ResponseDecline)

	assert.Equal(t, StateIdle, te.engine.registry.Get("u1").State)
	assert.Equal(t, StateIdle, te.engine.registry.Get("u2").State)

	assert.False(t, matchResult(t, te, "u1").Result)
	assert.False(t, matchResult(t, te, "u2").Result)

	declined := te.matchLog.byOutcome(model.MatchOutcomeDeclined)
	require.Len(t, declined, 1)
}

func TestDeclineStaggersRetryNotices(t *testing.T) {
	te := newTestEngine()
	te.addUser("u1", "민수", model.GenderMale, 25)
	te.addUser("u2", "영희", model.GenderFemale, 24)

	te.pairUp(t, "u1", "u2")
	te.engine.HandleUserResponse("u1", ResponseDecline)

	assert.Equal(t, 0, te.notifier.countType("u1", ws.EventRestartMatchingRequest))
	assert.Equal(t, 0, te.notifier.countType("u2", ws.EventRestartMatchingRequest))

	te.clock.Add(config.RetryDelaySelf)
	assert.Equal(t, 1, te.notifier.countType("u1", ws.EventRestartMatchingRequest))
	assert.Equal(t, 0, te.notifier.countType("u2", ws.EventRestartMatchingRequest))

	te.clock.Add(config.RetryDelayPartner - config.RetryDelaySelf)
	assert.Equal(t, 1, te.notifier.countType("u2", ws.EventRestartMatchingRequest))
}

func TestRetryNoticeSkipsOfflineUser(t *testing.T) {
	te := newTestEngine()
	te.addUser("u1", "민수", model.GenderMale, 25)
	te.addUser("u2", "영희", model.GenderFemale, 24)

	te.pairUp(t, "u1", "u2")
	te.notifier.setOffline("u2")
	te.engine.HandleUserResponse("u1", ResponseDecline)

	te.clock.Add(config.RetryDelayPartner)
	assert.Equal(t, 1, te.notifier.countType("u1", ws.EventRestartMatchingRequest))
	assert.Equal(t, 0, te.notifier.countType("u2", ws.EventRestartMatchingRequest))
}

func TestIntroductionTimeoutExpiresPair(t *testing.T) {
	te := newTestEngine()
	te.addUser("u1", "민수", model.GenderMale, 25)
	te.addUser("u2", "영희", model.GenderFemale, 24)

	te.pairUp(t, "u1", "u2")
	te.engine.HandleUserResponse("u1", ResponseAccept)

	te.clock.Add(config.IntroductionTimeout)

	assert.Equal(t, StateIdle, te.engine.registry.Get("u1").State)
	assert.Equal(t, StateIdle, te.engine.registry.Get("u2").State)
	assert.False(t, matchResult(t, te, "u1").Result)
	assert.False(t, matchResult(t, te, "u2").Result)

	expired := te.matchLog.byOutcome(model.MatchOutcomeExpired)
	require.Len(t, expired, 1)
	assert.ElementsMatch(t, []string{"u1", "u2"}, expired[0].userIDs)

	te.clock.Add(config.RetryDelayPartner)
	assert.Equal(t, 1, te.notifier.countType("u1", ws.EventRestartMatchingRequest))
	assert.Equal(t, 1, te.notifier.countType("u2", ws.EventRestartMatchingRequest))
}

func TestConfirmedMatchOutlivesConsentWindow(t *testing.T) {
	te := newTestEngine()
	te.addUser("u1", "민수", model.GenderMale, 25)
	te.addUser("u2", "영희", model.GenderFemale, 24)

	te.match(t, "u1", "u2")
	te.clock.Add(config.IntroductionTimeout + time.Second)

	assert.Equal(t, StateMatched, te.engine.registry.Get("u1").State)
	assert.Equal(t, StateMatched, te.engine.registry.Get("u2").State)
	assert.Empty(t, te.matchLog.byOutcome(model.MatchOutcomeExpired))
}

func TestDuplicateResponseAfterMatchIgnored(t *testing.T) {
	te := newTestEngine()
	te.addUser("u1", "민수", model.GenderMale, 25)
	te.addUser("u2", "영희", model.GenderFemale, 24)

	te.match(t, "u1", "u2")
	before := te.notifier.countType("u1", ws.EventMatchResult)

	te.engine.HandleUserResponse("u1", ResponseAccept)
	te.engine.HandleUserResponse("u1", ResponseDecline)

	assert.Equal(t, before, te.notifier.countType("u1", ws.EventMatchResult))
	assert.Equal(t, StateMatched, te.engine.registry.Get("u1").State)
}

func TestResponseWithoutPartnerIgnored(t *testing.T) {
	te := newTestEngine()
	te.addUser("u1", "민수", model.GenderMale, 25)

	te.engine.HandleUserResponse("u1", ResponseAccept)

	assert.Empty(t, te.notifier.eventTypes("u1"))
	assert.Equal(t, StateIdle, te.engine.registry.Get("u1").State)
}

func TestIntroductionTimeoutReleasesSurvivorWithoutPartner(t *testing.T) {
	te := newTestEngine()
	te.addUser("u1", "민수", model.GenderMale, 25)
	te.addUser("u2", "영희", model.GenderFemale, 24)
	te.pairUp(t, "u1", "u2")

	// the partner's registry entry vanishes without the usual teardown
	te.engine.mu.Lock()
	te.engine.registry.Remove("u2")
	delete(te.engine.pending, "u2")
	te.engine.mu.Unlock()

	te.clock.Add(config.IntroductionTimeout)

	s := te.engine.registry.Get("u1")
	require.NotNil(t, s)
	assert.Equal(t, StateIdle, s.State)
	assert.Empty(t, s.PartnerID)
	assert.Empty(t, te.engine.pending)
	assert.Equal(t, 1, te.notifier.countType("u1", ws.EventMatchResult))
	assert.Len(t, te.matchLog.byOutcome(model.MatchOutcomeExpired), 1)
}

func TestReplayedDeclineAfterExpiryIgnored(t *testing.T) {
	te := newTestEngine()
	te.addUser("u1", "민수", model.GenderMale, 25)
	te.addUser("u2", "영희", model.GenderFemale, 24)
	te.pairUp(t, "u1", "u2")
	te.clock.Add(config.IntroductionTimeout)

	require.NoError(t, te.engine.StartMatching(context.Background(), "u1", anyoneFilter()))
	require.Equal(t, StateWaiting, te.engine.registry.Get("u1").State)
	require.Equal(t, 1, te.engine.waiting.len())

	beforeResults := te.notifier.countType("u1", ws.EventMatchResult)
	te.engine.HandleUserResponse("u2", ResponseDecline)

	// the stale decline answers an introduction that already expired; it
	// must not touch u1's new waiting phase
	assert.Equal(t, StateWaiting, te.engine.registry.Get("u1").State)
	assert.Equal(t, 1, te.engine.waiting.len())
	assert.Equal(t, beforeResults, te.notifier.countType("u1", ws.EventMatchResult))
	assert.Empty(t, te.matchLog.byOutcome(model.MatchOutcomeDeclined))
}
