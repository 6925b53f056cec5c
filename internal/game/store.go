package game

import (
	"log/slog"
	"sync"
	"time"

	"github.com/MAIDENMI/Tinder4Games/pkg/metrics"
)

// Store owns the room table. Rooms are created lazily on first join and
// deleted as soon as the last member is gone; an empty room never sits in
// the table. Lock order is always Store.mu before room.mu.
type Store struct {
	log    *slog.Logger
	notify Notifier

	mu    sync.RWMutex
	rooms map[string]*room
}

func NewStore(log *slog.Logger, notify Notifier) *Store {
	return &Store{log: log, notify: notify, rooms: map[string]*room{}}
}

// Join attaches the session to the room, creating it in phase waiting if the
// id is unknown. Existing members get a player-joined broadcast; the caller
// delivers the returned snapshot to the joining session itself.
func (s *Store) Join(roomID string, m Member) Snapshot {
	s.mu.Lock()
	rm := s.rooms[roomID]
	if rm == nil {
		rm = newRoom(roomID)
		s.rooms[roomID] = rm
		metrics.ActiveRooms.Inc()
		s.log.Debug("room.create", "room", roomID)
	}
	rm.mu.Lock()
	s.mu.Unlock()

	others := rm.memberIDsLocked(m.SessionID)
	rm.members = append(rm.members, m)
	snap := rm.snapshotLocked()
	rm.mu.Unlock()

	if len(others) > 0 {
		s.notify.Broadcast(roomID, others, Event{Type: EventPlayerJoined, Data: m})
	}
	s.log.Debug("room.join", "room", roomID, "session", m.SessionID, "members", len(snap.Members))
	return snap
}

// Leave removes the session from the room and tells the remaining members.
// Unknown room or already-absent membership is a no-op, so a disconnect
// racing an explicit leave-room is harmless.
func (s *Store) Leave(roomID, sessionID string) {
	s.mu.Lock()
	rm := s.rooms[roomID]
	if rm == nil {
		s.mu.Unlock()
		return
	}
	rm.mu.Lock()
	if !rm.removeMemberLocked(sessionID) {
		rm.mu.Unlock()
		s.mu.Unlock()
		return
	}
	if len(rm.members) == 0 {
		delete(s.rooms, roomID)
		metrics.ActiveRooms.Dec()
		s.log.Debug("room.delete", "room", roomID)
	}
	remaining := rm.memberIDsLocked("")
	rm.mu.Unlock()
	s.mu.Unlock()

	if len(remaining) > 0 {
		s.notify.Broadcast(roomID, remaining, Event{Type: EventPlayerLeft, Data: leftPayload{SessionID: sessionID}})
	}
	s.log.Debug("room.leave", "room", roomID, "session", sessionID)
}

// ApplyAction runs a game action against the room. Actions on unknown rooms
// are dropped silently; the client cannot know server-side room state.
func (s *Store) ApplyAction(roomID, sessionID string, act Action) {
	s.mu.RLock()
	rm := s.rooms[roomID]
	s.mu.RUnlock()
	if rm == nil {
		return
	}

	rm.mu.Lock()
	switch act.Type {
	case ActionStart:
		if rm.phase != PhaseWaiting {
			// game already underway or done, ignore the duplicate
			rm.mu.Unlock()
			return
		}
		rm.phase = PhasePlaying
		rm.startedAt = time.Now()
		all := rm.memberIDsLocked("")
		rm.mu.Unlock()
		s.notify.Broadcast(roomID, all, Event{Type: EventGameStateChanged, Data: StateChange{Phase: PhasePlaying}})
		s.log.Debug("room.phase", "room", roomID, "phase", PhasePlaying, "session", sessionID)

	case ActionEnd:
		rm.phase = PhaseFinished
		if act.Score != nil {
			rm.scores[sessionID] = *act.Score
		}
		scores := rm.scoresLocked()
		all := rm.memberIDsLocked("")
		rm.mu.Unlock()
		s.notify.Broadcast(roomID, all, Event{Type: EventGameStateChanged, Data: StateChange{Phase: PhaseFinished, Scores: scores}})
		s.log.Debug("room.phase", "room", roomID, "phase", PhaseFinished, "session", sessionID)

	default:
		// opaque in-game signaling, relayed to the other members untouched
		others := rm.memberIDsLocked(sessionID)
		rm.mu.Unlock()
		if len(others) > 0 {
			s.notify.Broadcast(roomID, others, Event{Type: EventGameUpdate, Data: Update{SourceSessionID: sessionID, Action: act.Raw}})
		}
	}
}

// Chat broadcasts a message to the whole room, sender included. A sender
// that is not a member of the room gets nothing delivered anywhere.
func (s *Store) Chat(roomID, sessionID, text string) {
	s.mu.RLock()
	rm := s.rooms[roomID]
	s.mu.RUnlock()
	if rm == nil {
		return
	}

	rm.mu.Lock()
	var sender *Member
	for i := range rm.members {
		if rm.members[i].SessionID == sessionID {
			sender = &rm.members[i]
			break
		}
	}
	if sender == nil {
		rm.mu.Unlock()
		return
	}
	msg := ChatMessage{Text: text, Sender: sender.Name, SessionID: sessionID, Timestamp: time.Now()}
	all := rm.memberIDsLocked("")
	rm.mu.Unlock()

	metrics.ChatMessages.Inc()
	s.notify.Broadcast(roomID, all, Event{Type: EventChatMessage, Data: msg})
}

// RoomCount reports the number of live rooms.
func (s *Store) RoomCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// Members returns the session ids in a room in join order, nil if the room
// does not exist. Used for bus-delivered frames and reporting.
func (s *Store) Members(roomID string) []string {
	s.mu.RLock()
	rm := s.rooms[roomID]
	s.mu.RUnlock()
	if rm == nil {
		return nil
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.memberIDsLocked("")
}
