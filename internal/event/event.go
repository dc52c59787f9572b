// Package event turns raw server log lines into typed game events.
package event

type Kind string

const (
	KindJoin    Kind = "join"
	KindDeath   Kind = "death"
	KindStats   Kind = "stats"
	KindTrigger Kind = "trigger"
)

// Event is a single occurrence derived from one log line. Player is
// empty for kinds that are not scoped to a player. Raw keeps the
// source line for diagnostics.
type Event struct {
	Kind   Kind   `json:"kind"`
	Player string `json:"player,omitempty"`
	Raw    string `json:"raw"`
}
