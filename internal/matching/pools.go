package matching

import "github.com/facechat/matching-server-go/internal/model"

// waitingPool holds the sessions seeking a partner, together with the
// profile captured when they entered. Insertion order is preserved and used
// as the pairing tie-break: the earliest-inserted eligible candidate wins.
type waitingPool struct {
	order   []string
	entries map[string]*waitingEntry
}

type waitingEntry struct {
	session *Session
	user    *model.User
}

func newWaitingPool() *waitingPool {
	return &waitingPool{entries: make(map[string]*waitingEntry)}
}

func (p *waitingPool) insert(s *Session, user *model.User) {
	if _, ok := p.entries[s.UserID]; !ok {
		p.order = append(p.order, s.UserID)
	}
	p.entries[s.UserID] = &waitingEntry{session: s, user: user}
}

func (p *waitingPool) remove(userID string) {
	delete(p.entries, userID)
	if len(p.order) > 2*len(p.entries)+16 {
		p.compact()
	}
}

func (p *waitingPool) get(userID string) *waitingEntry {
	return p.entries[userID]
}

func (p *waitingPool) len() int {
	return len(p.entries)
}

// snapshotIDs returns the current members in insertion order. The caller
// iterates without the pool lock held, so membership must be re-checked per
// candidate.
func (p *waitingPool) snapshotIDs() []string {
	ids := make([]string, 0, len(p.entries))
	for _, id := range p.order {
		if _, ok := p.entries[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (p *waitingPool) compact() {
	kept := p.order[:0]
	for _, id := range p.order {
		if _, ok := p.entries[id]; ok {
			kept = append(kept, id)
		}
	}
	p.order = kept
}
