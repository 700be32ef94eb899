package matching

// State is the lifecycle position of a live session.
type State string

const (
	StateIdle    State = "idle"
	StateWaiting State = "waiting"
	StatePending State = "pending"
	StateMatched State = "matched"
)

// Response is a client's answer to an introduction or a face-reveal request.
type Response string

const (
	ResponseNone    Response = ""
	ResponseAccept  Response = "accept"
	ResponseDecline Response = "decline"
)

// Session is the coordinator-side state for one live connection. A session
// references its partner by identity only; the Registry resolves identities
// to sessions on demand, so no session ever holds a pointer into its peer.
type Session struct {
	UserID   string
	Nickname string

	State               State
	PartnerID           string
	Response            Response
	FaceRevealRequested bool
	RoomID              string

	// timer is the session's share of the pair timer, at most one at a
	// time. Owned by the TimeoutScheduler.
	timer *pairTimer
}

// Registry owns every live Session, keyed by user identity. Sessions are
// created when a connection attaches and destroyed when it detaches. All
// access is serialized by the engine's mutex.
type Registry struct {
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Attach returns the session for userID, creating an idle one if the user
// has none. Reconnects that supersede a live connection keep the existing
// session.
func (r *Registry) Attach(userID string) *Session {
	if s, ok := r.sessions[userID]; ok {
		return s
	}
	s := &Session{UserID: userID, State: StateIdle}
	r.sessions[userID] = s
	return s
}

func (r *Registry) Get(userID string) *Session {
	return r.sessions[userID]
}

func (r *Registry) Remove(userID string) {
	delete(r.sessions, userID)
}

func (r *Registry) Len() int {
	return len(r.sessions)
}
