// Package journal keeps a queryable history of classified events and
// finished rounds in sqlite, for the admin API and post-mortems.
package journal

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lolostheman/bettermc/internal/event"
)

// Events older than this are pruned when a round closes.
const retention = 7 * 24 * time.Hour

type Journal struct {
	db *sql.DB

	mu      sync.Mutex
	roundID string
}

type Entry struct {
	ID         int64  `json:"id"`
	RoundID    string `json:"round_id"`
	Kind       string `json:"kind"`
	Player     string `json:"player,omitempty"`
	Raw        string `json:"raw"`
	RecordedAt string `json:"recorded_at"`
}

type Round struct {
	ID          string `json:"id"`
	StartedAt   string `json:"started_at"`
	EndedAt     string `json:"ended_at,omitempty"`
	PlayerCount int    `json:"player_count"`
	TotalDeaths int    `json:"total_deaths"`
}

// New resumes the open round if a crash left one behind, otherwise
// starts a fresh one.
func New(db *sql.DB) (*Journal, error) {
	j := &Journal{db: db}

	var id string
	err := db.QueryRow(`SELECT id FROM rounds WHERE ended_at IS NULL ORDER BY started_at DESC LIMIT 1`).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		id, err = j.openRound()
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}
	j.roundID = id
	return j, nil
}

func (j *Journal) openRound() (string, error) {
	id := uuid.New().String()
	_, err := j.db.Exec(`INSERT INTO rounds (id) VALUES (?)`, id)
	return id, err
}

// CurrentRound returns the id of the round in progress.
func (j *Journal) CurrentRound() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.roundID
}

// RecordEvent appends one consumed event to the history. Journal
// failures never disturb the pipeline; they are logged and dropped.
func (j *Journal) RecordEvent(ev event.Event) {
	j.mu.Lock()
	round := j.roundID
	j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO events (round_id, kind, player, raw) VALUES (?, ?, ?, ?)`,
		round, string(ev.Kind), ev.Player, ev.Raw,
	)
	if err != nil {
		log.Printf("journal: record event: %v", err)
	}
}

// RoundClosed finalizes the current round, prunes stale events, and
// opens the next round.
func (j *Journal) RoundClosed(playerCount, totalDeaths int) {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`UPDATE rounds SET ended_at = CURRENT_TIMESTAMP, player_count = ?, total_deaths = ? WHERE id = ?`,
		playerCount, totalDeaths, j.roundID,
	)
	if err != nil {
		log.Printf("journal: close round %s: %v", j.roundID, err)
	}

	cutoff := time.Now().Add(-retention).UTC().Format("2006-01-02 15:04:05")
	if _, err := j.db.Exec(`DELETE FROM events WHERE recorded_at < ?`, cutoff); err != nil {
		log.Printf("journal: prune events: %v", err)
	}

	id, err := j.openRound()
	if err != nil {
		log.Printf("journal: open next round: %v", err)
		return
	}
	j.roundID = id
}

// Events returns the most recent entries, newest first.
func (j *Journal) Events(limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := j.db.Query(
		`SELECT id, round_id, kind, player, raw, recorded_at FROM events ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var player sql.NullString
		if err := rows.Scan(&e.ID, &e.RoundID, &e.Kind, &player, &e.Raw, &e.RecordedAt); err != nil {
			continue
		}
		e.Player = player.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Rounds returns round history, newest first.
func (j *Journal) Rounds() ([]Round, error) {
	rows, err := j.db.Query(
		`SELECT id, started_at, ended_at, player_count, total_deaths FROM rounds ORDER BY started_at DESC LIMIT 50`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rounds := []Round{}
	for rows.Next() {
		var r Round
		var ended sql.NullString
		if err := rows.Scan(&r.ID, &r.StartedAt, &ended, &r.PlayerCount, &r.TotalDeaths); err != nil {
			continue
		}
		r.EndedAt = ended.String
		rounds = append(rounds, r)
	}
	return rounds, rows.Err()
}
