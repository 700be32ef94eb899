package matching

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/facechat/matching-server-go/internal/model"
)

func poolSession(id string) (*Session, *model.User) {
	return &Session{UserID: id, State: StateWaiting}, &model.User{ID: id}
}

func TestWaitingPoolPreservesInsertionOrder(t *testing.T) {
	p := newWaitingPool()
	for _, id := range []string{"a", "b", "c"} {
		p.insert(poolSession(id))
	}

	assert.Equal(t, []string{"a", "b", "c"}, p.snapshotIDs())

	p.remove("b")
	assert.Equal(t, []string{"a", "c"}, p.snapshotIDs())

	p.insert(poolSession("b"))
	assert.Equal(t, []string{"a", "c", "b"}, p.snapshotIDs())
}

func TestWaitingPoolReinsertKeepsSinglePosition(t *testing.T) {
	p := newWaitingPool()
	p.insert(poolSession("a"))
	p.insert(poolSession("b"))
	p.insert(poolSession("a"))

	assert.Equal(t, []string{"a", "b"}, p.snapshotIDs())
	assert.Equal(t, 2, p.len())
}

func TestWaitingPoolCompaction(t *testing.T) {
	p := newWaitingPool()
	for i := 0; i < 100; i++ {
		p.insert(poolSession(fmt.Sprintf("u%03d", i)))
	}
	for i := 0; i < 99; i++ {
		p.remove(fmt.Sprintf("u%03d", i))
	}

	assert.Equal(t, 1, p.len())
	assert.Equal(t, []string{"u099"}, p.snapshotIDs())
	assert.LessOrEqual(t, len(p.order), 2*p.len()+16)
}

func TestWaitingPoolGet(t *testing.T) {
	p := newWaitingPool()
	s, u := poolSession("a")
	p.insert(s, u)

	entry := p.get("a")
	assert.Same(t, s, entry.session)
	assert.Same(t, u, entry.user)
	assert.Nil(t, p.get("missing"))
}
