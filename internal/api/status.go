package api

import (
	"net/http"
	"strconv"

	"github.com/lolostheman/bettermc/internal/game"
	"github.com/lolostheman/bettermc/internal/journal"
	"github.com/lolostheman/bettermc/internal/monitor"
)

type StatusHandler struct {
	engine  *game.Engine
	monitor *monitor.Monitor
	journal *journal.Journal
}

func NewStatusHandler(engine *game.Engine, mon *monitor.Monitor, j *journal.Journal) *StatusHandler {
	return &StatusHandler{engine: engine, monitor: mon, journal: j}
}

// Status reports the round in one shot: roster, budget, and whether
// the container is actually running.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"container_status": h.monitor.Latest(),
		"round_id":         h.journal.CurrentRound(),
		"players":          snap.Players,
		"current_deaths":   snap.CurrentDeaths,
		"max_deaths":       snap.MaxDeaths,
		"remaining":        snap.Remaining,
	})
}

func (h *StatusHandler) Players(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Snapshot().Players)
}

func (h *StatusHandler) Rounds(w http.ResponseWriter, r *http.Request) {
	rounds, err := h.journal.Rounds()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query rounds")
		return
	}
	writeJSON(w, http.StatusOK, rounds)
}

func (h *StatusHandler) Events(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.journal.Events(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query events")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
