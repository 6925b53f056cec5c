// Package analytics accumulates per-session behavioral records in memory.
// Everything here is additive: appends and shallow merges, no derived stats.
package analytics

import (
	"sync"
	"time"

	"github.com/MAIDENMI/Tinder4Games/pkg/metrics"
)

// Swipe actions accepted by RecordSwipe.
const (
	SwipeLike    = "like"
	SwipeDislike = "dislike"
)

type SwipeEvent struct {
	SessionID string    `json:"sessionId"`
	GameID    string    `json:"gameId"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

type PlayTimeSample struct {
	SessionID string    `json:"sessionId"`
	GameID    string    `json:"gameId"`
	Seconds   float64   `json:"seconds"`
	Timestamp time.Time `json:"timestamp"`
}

type engagement struct {
	fields      map[string]any
	lastUpdated time.Time
}

// Totals is the read-only aggregate view for the reporting surface.
type Totals struct {
	TotalSwipes                int `json:"totalSwipes"`
	TotalPlaySessions          int `json:"totalPlaySessions"`
	DistinctEngagementSessions int `json:"distinctEngagementSessions"`
}

// Aggregator is safe for concurrent writers. Timestamps are assigned here,
// on arrival; client-supplied timestamps are ignored.
type Aggregator struct {
	mu         sync.Mutex
	swipes     []SwipeEvent
	playTime   []PlayTimeSample
	engagement map[string]*engagement
}

func New() *Aggregator {
	return &Aggregator{engagement: map[string]*engagement{}}
}

// RecordSwipe appends one swipe choice. Unknown actions are dropped.
func (a *Aggregator) RecordSwipe(sessionID, gameID, action string) {
	if action != SwipeLike && action != SwipeDislike {
		return
	}
	a.mu.Lock()
	a.swipes = append(a.swipes, SwipeEvent{
		SessionID: sessionID,
		GameID:    gameID,
		Action:    action,
		Timestamp: time.Now(),
	})
	a.mu.Unlock()
	metrics.Swipes.Inc()
}

// RecordPlayTime appends one play-time sample.
func (a *Aggregator) RecordPlayTime(sessionID, gameID string, seconds float64) {
	a.mu.Lock()
	a.playTime = append(a.playTime, PlayTimeSample{
		SessionID: sessionID,
		GameID:    gameID,
		Seconds:   seconds,
		Timestamp: time.Now(),
	})
	a.mu.Unlock()
	metrics.PlaySamples.Inc()
}

// MergeEngagement folds fields into the session's snapshot: new keys extend
// it, existing keys are overwritten, nothing is ever replaced wholesale.
func (a *Aggregator) MergeEngagement(sessionID string, fields map[string]any) {
	if len(fields) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	e := a.engagement[sessionID]
	if e == nil {
		e = &engagement{fields: map[string]any{}}
		a.engagement[sessionID] = e
	}
	for k, v := range fields {
		e.fields[k] = v
	}
	e.lastUpdated = time.Now()
}

// Engagement returns a copy of the session's merged fields, nil if none.
func (a *Aggregator) Engagement(sessionID string) map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()

	e := a.engagement[sessionID]
	if e == nil {
		return nil
	}
	out := make(map[string]any, len(e.fields))
	for k, v := range e.fields {
		out[k] = v
	}
	return out
}

// Totals reports the aggregate counts.
func (a *Aggregator) Totals() Totals {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Totals{
		TotalSwipes:                len(a.swipes),
		TotalPlaySessions:          len(a.playTime),
		DistinctEngagementSessions: len(a.engagement),
	}
}
