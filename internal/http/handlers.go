package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/MAIDENMI/Tinder4Games/internal/analytics"
	"github.com/MAIDENMI/Tinder4Games/internal/ws"
)

// ReportAPI is the pull-based reporting surface: health and aggregate
// analytics snapshots. Raw records never leave the process.
type ReportAPI struct {
	Hub   *ws.Hub
	Stats *analytics.Aggregator
}

type healthResponse struct {
	Status             string    `json:"status"`
	Timestamp          time.Time `json:"timestamp"`
	ActiveSessionCount int       `json:"activeSessionCount"`
	ActiveRoomCount    int       `json:"activeRoomCount"`
}

type analyticsResponse struct {
	ActiveSessionCount         int `json:"activeSessionCount"`
	ActiveRoomCount            int `json:"activeRoomCount"`
	TotalSwipes                int `json:"totalSwipes"`
	TotalPlaySessions          int `json:"totalPlaySessions"`
	DistinctEngagementSessions int `json:"distinctEngagementSessions"`
}

// Health reports liveness plus the current session/room counts.
func (a *ReportAPI) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, healthResponse{
		Status:             "ok",
		Timestamp:          time.Now(),
		ActiveSessionCount: a.Hub.SessionCount(),
		ActiveRoomCount:    a.Hub.Store().RoomCount(),
	})
}

// Analytics returns the aggregate counters. No derived statistics here;
// averages and the like are the consumer's problem.
func (a *ReportAPI) Analytics(w http.ResponseWriter, r *http.Request) {
	totals := a.Stats.Totals()
	writeJSON(w, analyticsResponse{
		ActiveSessionCount:         a.Hub.SessionCount(),
		ActiveRoomCount:            a.Hub.Store().RoomCount(),
		TotalSwipes:                totals.TotalSwipes,
		TotalPlaySessions:          totals.TotalPlaySessions,
		DistinctEngagementSessions: totals.DistinctEngagementSessions,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
