package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"collision-pipeline/internal/collision"
	"collision-pipeline/internal/geom"
	"collision-pipeline/internal/sim"
	"collision-pipeline/internal/spatial"
)

// MaxSpawnSpeed caps bullet speed accepted from the spawn endpoint.
const MaxSpawnSpeed = 4 * sim.MaxBulletSpeed

// frameStats is collision.FrameStats with durations in milliseconds.
type frameStats struct {
	Frame        uint64        `json:"frame"`
	Targets      int           `json:"targets"`
	Movers       int           `json:"movers"`
	Candidates   int           `json:"candidates"`
	NarrowChecks int           `json:"narrowChecks"`
	Pairs        int           `json:"pairs"`
	Resolved     int           `json:"resolved"`
	BeginMs      float64       `json:"beginMs"`
	ProcessMs    float64       `json:"processMs"`
	EndMs        float64       `json:"endMs"`
	Index        spatial.Stats `json:"index"`
}

func toFrameStats(s collision.FrameStats) frameStats {
	return frameStats{
		Frame:        s.Frame,
		Targets:      s.Targets,
		Movers:       s.Movers,
		Candidates:   s.Candidates,
		NarrowChecks: s.NarrowChecks,
		Pairs:        s.Pairs,
		Resolved:     s.Resolved,
		BeginMs:      millis(s.Begin),
		ProcessMs:    millis(s.Process),
		EndMs:        millis(s.End),
		Index:        s.Index,
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// statsResponse is served by /api/stats and pushed over the WebSocket.
type statsResponse struct {
	Tick       uint64     `json:"tick"`
	Units      int        `json:"units"`
	Bullets    int        `json:"bullets"`
	TotalHits  int        `json:"totalHits"`
	TotalKills int        `json:"totalKills"`
	Collision  frameStats `json:"collision"`
}

func statsOf(e Engine) statsResponse {
	units, bullets := e.Counts()
	hits, kills := e.Totals()
	return statsResponse{
		Tick:       e.TickCount(),
		Units:      units,
		Bullets:    bullets,
		TotalHits:  hits,
		TotalKills: kills,
		Collision:  toFrameStats(e.Stats()),
	}
}

type frameResponse struct {
	Sequence   uint64                `json:"sequence"`
	Tick       uint64                `json:"tick"`
	Timestamp  time.Time             `json:"timestamp"`
	Bounds     geom.Rect             `json:"bounds"`
	Collision  frameStats            `json:"collision"`
	Units      []sim.EntitySnapshot  `json:"units"`
	Bullets    []sim.EntitySnapshot  `json:"bullets"`
	Contacts   []sim.ContactSnapshot `json:"contacts"`
	IndexNodes []geom.Rect           `json:"indexNodes"`
	TotalHits  int                   `json:"totalHits"`
	TotalKills int                   `json:"totalKills"`
}

// snapshots recycles frame copies between requests.
var snapshots = sync.Pool{
	New: func() any { return new(sim.FrameSnapshot) },
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *handlers) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, statsOf(h.engine))
}

func (h *handlers) handleFrame(w http.ResponseWriter, r *http.Request) {
	snap := snapshots.Get().(*sim.FrameSnapshot)
	defer snapshots.Put(snap)

	if !h.engine.Snapshot(snap) {
		writeError(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, frameResponse{
		Sequence:   snap.Sequence,
		Tick:       snap.Tick,
		Timestamp:  snap.Timestamp,
		Bounds:     snap.Bounds,
		Collision:  toFrameStats(snap.Collision),
		Units:      snap.Units,
		Bullets:    snap.Bullets,
		Contacts:   snap.Contacts,
		IndexNodes: snap.IndexNodes,
		TotalHits:  snap.TotalHits,
		TotalKills: snap.TotalKills,
	})
}

func (h *handlers) handleFramePNG(w http.ResponseWriter, r *http.Request) {
	snap := snapshots.Get().(*sim.FrameSnapshot)
	defer snapshots.Put(snap)

	if !h.engine.Snapshot(snap) {
		writeError(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.renderer.WritePNG(w, snap); err != nil {
		h.log.WithError(err).Warn("render frame")
	}
}

type spawnUnitRequest struct {
	Team int     `json:"team"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

func (h *handlers) handleSpawnUnit(w http.ResponseWriter, r *http.Request) {
	var req spawnUnitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Team < 0 {
		writeError(w, "team must be non-negative", http.StatusBadRequest)
		return
	}
	if !h.engine.Bounds().ContainsPoint(req.X, req.Y) {
		writeError(w, "position outside the world", http.StatusBadRequest)
		return
	}

	u := h.engine.SpawnUnit(req.Team, req.X, req.Y)
	writeJSONStatus(w, http.StatusCreated, map[string]any{"id": u.ID})
}

type spawnBulletRequest struct {
	Team  int     `json:"team"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	TX    float64 `json:"tx"`
	TY    float64 `json:"ty"`
	Speed float64 `json:"speed"`
}

func (h *handlers) handleSpawnBullet(w http.ResponseWriter, r *http.Request) {
	var req spawnBulletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Team < 0 {
		writeError(w, "team must be non-negative", http.StatusBadRequest)
		return
	}
	if !h.engine.Bounds().ContainsPoint(req.X, req.Y) {
		writeError(w, "position outside the world", http.StatusBadRequest)
		return
	}
	if req.Speed <= 0 || req.Speed > MaxSpawnSpeed {
		writeError(w, "speed out of range", http.StatusBadRequest)
		return
	}

	b := h.engine.SpawnBullet(req.Team, req.X, req.Y, req.TX, req.TY, req.Speed)
	writeJSONStatus(w, http.StatusCreated, map[string]any{"id": b.ID})
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSONStatus(w, status, map[string]string{"error": message})
}
