// Package game applies the death-budget rules to classified events
// and drives the RCON console, the player store, and the world reset.
package game

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lolostheman/bettermc/internal/event"
)

// Console is the remote command session. All three calls block for
// the round trip; failures inside Run are tolerable (a missed
// broadcast), RunPersistent is for steps that must land.
type Console interface {
	Run(ctx context.Context, cmd string) (string, error)
	RunBatch(ctx context.Context, cmds []string, delay time.Duration)
	RunPersistent(ctx context.Context, cmd string) (string, error)
}

// Store persists per-player death counts. Clearing on reset is the
// resetter's job.
type Store interface {
	SetCount(name string, deaths int) error
}

// Resetter performs the world reset: stop the server, wipe the world,
// start it again.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Recorder receives every consumed event and round boundaries. May be
// nil.
type Recorder interface {
	RecordEvent(ev event.Event)
	RoundClosed(playerCount, totalDeaths int)
}

// Broadcast pacing. These sleeps keep in-game chat readable and are
// observable behavior, not retry backoff.
const (
	tauntPause     = 5 * time.Second
	lossPause      = 3 * time.Second
	tallyPause     = 2 * time.Second
	preStrikePause = 3 * time.Second
	strikePause    = 1 * time.Second
	countdownPause = 1 * time.Second
)

const lightningCmd = "execute at @a run summon lightning_bolt ~ ~ ~"

type Engine struct {
	console  Console
	store    Store
	resetter Resetter
	recorder Recorder

	multiplier  float64
	smiteTarget string

	// Sleep is swapped out by tests to skip the pacing waits.
	Sleep func(time.Duration)

	mu    sync.RWMutex
	state *ServerState
}

func NewEngine(state *ServerState, console Console, st Store, resetter Resetter, recorder Recorder, multiplier float64, smiteTarget string) *Engine {
	return &Engine{
		console:     console,
		store:       st,
		resetter:    resetter,
		recorder:    recorder,
		multiplier:  multiplier,
		smiteTarget: smiteTarget,
		Sleep:       time.Sleep,
		state:       state,
	}
}

// Run consumes events strictly in arrival order until ctx is
// cancelled or the channel closes. It is the only goroutine that
// touches the console or mutates game state.
func (e *Engine) Run(ctx context.Context, events <-chan event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if e.recorder != nil {
				e.recorder.RecordEvent(ev)
			}
			e.Handle(ctx, ev)
		}
	}
}

func (e *Engine) Handle(ctx context.Context, ev event.Event) {
	switch ev.Kind {
	case event.KindJoin:
		e.handleJoin(ctx, ev.Player)
	case event.KindDeath:
		e.handleDeath(ctx, ev.Player)
	case event.KindStats:
		e.handleStats(ctx)
	case event.KindTrigger:
		e.handleTrigger(ctx)
	default:
		log.Printf("game: ignoring event kind %q", ev.Kind)
	}
}

func (e *Engine) handleJoin(ctx context.Context, player string) {
	e.mu.Lock()
	added := e.state.AddPlayer(player)
	max := e.state.MaxDeaths()
	e.mu.Unlock()

	if !added {
		log.Printf("game: existing player %s re-joined", player)
		return
	}
	log.Printf("game: new player %s joined, budget now %d", player, max)

	if err := e.store.SetCount(player, 0); err != nil {
		log.Printf("game: persist %s: %v", player, err)
	}
	e.say(ctx, "%s has joined", player)
	e.say(ctx, "The new max death count is %d", max)
}

func (e *Engine) handleDeath(ctx context.Context, player string) {
	e.mu.RLock()
	known := e.state.Knows(player)
	e.mu.RUnlock()
	if !known {
		// Death without a prior join should not happen; never crash
		// over it.
		log.Printf("game: death for unknown player %s ignored", player)
		return
	}

	e.say(ctx, "§l§4%s has died... how embarrassing...§r", player)
	e.Sleep(tauntPause)

	e.mu.Lock()
	deaths, _ := e.state.RecordDeath(player)
	current, max := e.state.CurrentDeaths(), e.state.MaxDeaths()
	exceeded := e.state.BudgetExceeded()
	e.mu.Unlock()

	if err := e.store.SetCount(player, deaths); err != nil {
		log.Printf("game: persist %s: %v", player, err)
	}
	e.say(ctx, "Now yall are rocking with §4§l%d§r / §4§l%d§r", current, max)

	if exceeded {
		e.lossSequence(ctx)
	}
}

// lossSequence is the fixed, ordered broadcast-and-reset ritual that
// fires once the budget is strictly exceeded.
func (e *Engine) lossSequence(ctx context.Context) {
	e.mu.RLock()
	players := e.state.Players()
	playerCount := e.state.PlayerCount()
	totalDeaths := e.state.CurrentDeaths()
	e.mu.RUnlock()

	log.Printf("game: budget blown (%d deaths, %d players), starting loss sequence", totalDeaths, playerCount)

	e.say(ctx, "you guys lost... gg... lightning incoming...")
	e.Sleep(lossPause)
	e.say(ctx, "here are some stats, so yall can pick the blame...")
	for _, p := range players {
		e.say(ctx, "%s died %d time(s)", p.Name, p.Deaths)
		e.Sleep(tallyPause)
	}

	e.say(ctx, "time to execute %s and his friends", e.smiteTarget)
	e.Sleep(preStrikePause)
	if _, err := e.console.Run(ctx, lightningCmd); err != nil {
		log.Printf("game: lightning skipped: %v", err)
	}
	e.Sleep(strikePause)
	e.console.RunBatch(ctx, []string{"say 3...", "say 2...", "say 1..."}, countdownPause)

	// The stop must land; everything after it is best-effort.
	if _, err := e.console.RunPersistent(ctx, "stop"); err != nil {
		log.Printf("game: stop command abandoned: %v (docker stop will finish the job)", err)
	}
	if err := e.resetter.Reset(ctx); err != nil {
		log.Printf("game: reset: %v", err)
	}

	if e.recorder != nil {
		e.recorder.RoundClosed(playerCount, totalDeaths)
	}

	// Fresh round, same process: replace the state wholesale and keep
	// consuming.
	e.mu.Lock()
	e.state = NewServerState(map[string]int{}, e.multiplier)
	e.mu.Unlock()
	log.Printf("game: round reset complete, new round started")
}

func (e *Engine) handleStats(ctx context.Context) {
	e.mu.RLock()
	players := e.state.Players()
	current, max := e.state.CurrentDeaths(), e.state.MaxDeaths()
	e.mu.RUnlock()

	e.say(ctx, "Remaining lives: %d (%d / %d used)", max-current, current, max)
	for _, p := range players {
		e.say(ctx, "%s died %d time(s)", p.Name, p.Deaths)
		e.Sleep(tallyPause)
	}
}

// handleTrigger is the easter egg: a flavor line followed by a volley
// of literal lightning strikes on the configured target. No state
// changes.
func (e *Engine) handleTrigger(ctx context.Context) {
	e.say(ctx, "the gods have been summoned... %s, run.", e.smiteTarget)
	strike := fmt.Sprintf("execute at %s run summon lightning_bolt ~ ~ ~", e.smiteTarget)
	e.console.RunBatch(ctx, []string{strike, strike, strike}, strikePause)
}

// Snapshot returns a copy of the round state for the admin API.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Snapshot{
		Players:       e.state.Players(),
		CurrentDeaths: e.state.CurrentDeaths(),
		MaxDeaths:     e.state.MaxDeaths(),
		Remaining:     e.state.MaxDeaths() - e.state.CurrentDeaths(),
	}
}

type Snapshot struct {
	Players       []PlayerRecord `json:"players"`
	CurrentDeaths int            `json:"current_deaths"`
	MaxDeaths     int            `json:"max_deaths"`
	Remaining     int            `json:"remaining"`
}

func (e *Engine) say(ctx context.Context, format string, args ...any) {
	cmd := "say " + fmt.Sprintf(format, args...)
	if _, err := e.console.Run(ctx, cmd); err != nil {
		log.Printf("game: broadcast %q skipped: %v", cmd, err)
	}
}
