package game

import (
	"math"
	"sort"
)

type PlayerRecord struct {
	Name   string `json:"name"`
	Deaths int    `json:"deaths"`
}

// ServerState holds one round's players and death budget. The budget
// is floor(playerCount * multiplier) and is recomputed whenever the
// roster grows; the running death count moves in lockstep with the
// per-player counts. The whole value is replaced on reset.
type ServerState struct {
	players       map[string]*PlayerRecord
	currentDeaths int
	maxDeaths     int
	multiplier    float64
}

// NewServerState builds a round from a persistence snapshot.
func NewServerState(counts map[string]int, multiplier float64) *ServerState {
	s := &ServerState{
		players:    make(map[string]*PlayerRecord, len(counts)),
		multiplier: multiplier,
	}
	for name, deaths := range counts {
		s.players[name] = &PlayerRecord{Name: name, Deaths: deaths}
		s.currentDeaths += deaths
	}
	s.recomputeBudget()
	return s
}

// AddPlayer registers a new player and grows the budget. Returns false
// without any state change when the player is already known.
func (s *ServerState) AddPlayer(name string) bool {
	if _, ok := s.players[name]; ok {
		return false
	}
	s.players[name] = &PlayerRecord{Name: name}
	s.recomputeBudget()
	return true
}

// RecordDeath bumps the player's count and the round total, returning
// the player's new count. Unknown players are rejected.
func (s *ServerState) RecordDeath(name string) (int, bool) {
	p, ok := s.players[name]
	if !ok {
		return 0, false
	}
	p.Deaths++
	s.currentDeaths++
	return p.Deaths, true
}

func (s *ServerState) Knows(name string) bool {
	_, ok := s.players[name]
	return ok
}

func (s *ServerState) CurrentDeaths() int { return s.currentDeaths }
func (s *ServerState) MaxDeaths() int     { return s.maxDeaths }
func (s *ServerState) PlayerCount() int   { return len(s.players) }

// BudgetExceeded is a strict comparison: reaching the budget exactly
// is survivable, one more death is not.
func (s *ServerState) BudgetExceeded() bool {
	return s.currentDeaths > s.maxDeaths
}

// Players returns the roster sorted by name, so broadcast and API
// output is stable.
func (s *ServerState) Players() []PlayerRecord {
	out := make([]PlayerRecord, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *ServerState) recomputeBudget() {
	s.maxDeaths = int(math.Floor(float64(len(s.players)) * s.multiplier))
}
