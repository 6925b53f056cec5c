package game

import (
	"sync"
	"time"
)

// Phase is the coarse lifecycle state of a room's game. Transitions only
// move forward: waiting → playing → finished.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

// Member is one session's record inside a room. The room references the
// session, it does not own it.
type Member struct {
	SessionID string    `json:"sessionId"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// Snapshot is the room view returned to a joining session.
type Snapshot struct {
	RoomID  string   `json:"roomId"`
	Members []Member `json:"members"`
	Phase   Phase    `json:"phase"`
}

// room state is guarded by mu; the members slice keeps join order, which is
// also the delivery order for broadcasts.
type room struct {
	id string

	mu        sync.Mutex
	members   []Member
	phase     Phase
	startedAt time.Time
	scores    map[string]float64 // sparse, by session id
}

func newRoom(id string) *room {
	return &room{
		id:     id,
		phase:  PhaseWaiting,
		scores: map[string]float64{},
	}
}

func (r *room) snapshotLocked() Snapshot {
	members := make([]Member, len(r.members))
	copy(members, r.members)
	return Snapshot{RoomID: r.id, Members: members, Phase: r.phase}
}

// memberIDsLocked returns session ids in join order, minus exclude if set.
func (r *room) memberIDsLocked(exclude string) []string {
	ids := make([]string, 0, len(r.members))
	for _, m := range r.members {
		if m.SessionID == exclude {
			continue
		}
		ids = append(ids, m.SessionID)
	}
	return ids
}

func (r *room) removeMemberLocked(sessionID string) bool {
	for i, m := range r.members {
		if m.SessionID == sessionID {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return true
		}
	}
	return false
}

func (r *room) scoresLocked() map[string]float64 {
	out := make(map[string]float64, len(r.scores))
	for id, s := range r.scores {
		out[id] = s
	}
	return out
}
