package matching

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facechat/matching-server-go/internal/config"
	apperrors "github.com/facechat/matching-server-go/internal/errors"
	"github.com/facechat/matching-server-go/internal/model"
	"github.com/facechat/matching-server-go/internal/ws"
)

func TestFaceRevealRequestReachesPartnerOnly(t *testing.T) {
	te := newTestEngine()
	te.addUser("u1", "민수", model.GenderMale, 25)
	te.addUser("u2", "영희", model.GenderFemale, 24)
	te.match(t, "u1", "u2")

	require.NoError(t, te.engine.RequestFaceReveal(context.Background(), "u1"))

	assert.Equal(t, 1, te.notifier.countType("u2", ws.EventRequestFaceReveal))
	assert.Equal(t, 0, te.notifier.countType("u1", ws.EventRequestFaceReveal))
	assert.True(t, te.engine.registry.Get("u1").FaceRevealRequested)
	assert.True(t, te.engine.registry.Get("u2").FaceRevealRequested)
}

func TestFaceRevealRequestOutsideMatch(t *testing.T) {
	te := newTestEngine()
	te.addUser("u1", "민수", model.GenderMale, 25)

	err := te.engine.RequestFaceReveal(context.Background(), "u1")

	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeNotMatched, appErr.Code)
}

func TestRepeatedFaceRevealRequestCollapsed(t *testing.T) {
	te := newTestEngine()
	te.addUser("u1", "민수", model.GenderMale, 25)
	te.addUser("u2", "영희", model.GenderFemale, 24)
	te.match(t, "u1", "u2")

	require.NoError(t, te.engine.RequestFaceReveal(context.Background(), "u1"))
	require.NoError(t, te.engine.RequestFaceReveal(context.Background(), "u2"))

	assert.Equal(t, 1, te.notifier.countType("u1", ws.EventAlreadyRequested))
	assert.Equal(t, 1, te.notifier.countType("u2", ws.EventAlreadyRequested))
	assert.Equal(t, 1, te.notifier.countType("u2", ws.EventRequestFaceReveal))
}

func TestFaceRevealAccepted(t *testing.T) {
	te := newTestEngine()
	te.addUser("u1", "민수", model.GenderMale, 25)
	te.addUser("u2", "영희", model.GenderFemale, 24)
	te.match(t, "u1", "u2")
	require.NoError(t, te.engine.RequestFaceReveal(context.Background(), "u1"))

	receivedAt := te.clock.Now()
	te.clock.Add(3 * time.Second)
	require.NoError(t, te.engine.RespondFaceReveal(context.Background(), "u2", ResponseAccept, receivedAt))

	assert.Equal(t, 1, te.notifier.countType("u1", ws.EventPerformFaceReveal))
	assert.Equal(t, 1, te.notifier.countType("u2", ws.EventPerformFaceReveal))
}

func TestFaceRevealDenied(t *testing.T) {
	te := newTestEngine()
	te.addUser("u1", "민수", model.GenderMale, 25)
	te.addUser("u2", "영희", model.GenderFemale, 24)
	te.match(t, "u1", "u2")
	require.NoError(t, te.engine.RequestFaceReveal(context.Background(), "u1"))

	receivedAt := te.clock.Now()
	require.NoError(t, te.engine.RespondFaceReveal(context.Background(), "u2", ResponseDecline, receivedAt))

	assert.Equal(t, 1, te.notifier.countType("u1", ws.EventFaceRevealDenied))
	assert.Equal(t, 1, te.notifier.countType("u2", ws.EventFaceRevealDenied))
	assert.Equal(t, 0, te.notifier.countType("u1", ws.EventPerformFaceReveal))
}

func TestFaceRevealResponseTooLate(t *testing.T) {
	te := newTestEngine()
	te.addUser("u1", "민수", model.GenderMale, 25)
	te.addUser("u2", "영희", model.GenderFemale, 24)
	te.match(t, "u1", "u2")
	require.NoError(t, te.engine.RequestFaceReveal(context.Background(), "u1"))

	receivedAt := te.clock.Now()
	te.clock.Add(config.FaceRevealResponseWindow)
	require.NoError(t, te.engine.RespondFaceReveal(context.Background(), "u2", ResponseAccept, receivedAt))

	assert.Equal(t, 1, te.notifier.countType("u1", ws.EventRespondTooLate))
	assert.Equal(t, 1, te.notifier.countType("u2", ws.EventRespondTooLate))
	assert.Equal(t, 0, te.notifier.countType("u1", ws.EventPerformFaceReveal))

	// a lapsed response leaves the request standing
	assert.True(t, te.engine.registry.Get("u1").FaceRevealRequested)
	assert.True(t, te.engine.registry.Get("u2").FaceRevealRequested)
}

func TestFaceRevealResponseOutsideMatch(t *testing.T) {
	te := newTestEngine()
	te.addUser("u1", "민수", model.GenderMale, 25)

	err := te.engine.RespondFaceReveal(context.Background(), "u1", ResponseAccept, te.clock.Now())

	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeNotMatched, appErr.Code)
}

func TestFaceRevealFlagResetsForNextMatch(t *testing.T) {
	te := newTestEngine()
	te.addUser("u1", "민수", model.GenderMale, 25)
	te.addUser("u2", "영희", model.GenderFemale, 24)
	te.match(t, "u1", "u2")
	require.NoError(t, te.engine.RequestFaceReveal(context.Background(), "u1"))

	te.engine.LeaveWebchat("u1")
	te.match(t, "u1", "u2")

	assert.False(t, te.engine.registry.Get("u1").FaceRevealRequested)
	require.NoError(t, te.engine.RequestFaceReveal(context.Background(), "u2"))
	assert.Equal(t, 1, te.notifier.countType("u1", ws.EventRequestFaceReveal))
}
