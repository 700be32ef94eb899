package matching

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/facechat/matching-server-go/internal/config"
	"github.com/facechat/matching-server-go/internal/ws"
)

// RetryDispatcher nudges both sides of a failed or ended pairing to request
// matching again. The initiating side is nudged after 1 s and its former
// partner after 3 s, so the two never re-enter the waiting pool in the same
// tick and instantly re-pair with each other ahead of everyone else waiting.
type RetryDispatcher struct {
	clock    clock.Clock
	notifier Notifier
}

func NewRetryDispatcher(clk clock.Clock, notifier Notifier) *RetryDispatcher {
	return &RetryDispatcher{clock: clk, notifier: notifier}
}

// Schedule queues restart-matching notices for both former pair members.
// Sessions already gone offline are skipped.
func (d *RetryDispatcher) Schedule(selfID, partnerID string) {
	d.schedule(selfID, config.RetryDelaySelf)
	d.schedule(partnerID, config.RetryDelayPartner)
}

func (d *RetryDispatcher) schedule(userID string, delay time.Duration) {
	if !d.notifier.IsConnected(userID) {
		return
	}
	d.clock.AfterFunc(delay, func() {
		if d.notifier.IsConnected(userID) {
			d.notifier.Send(userID, ws.NewEvent(ws.EventRestartMatchingRequest, nil))
		}
	})
}
