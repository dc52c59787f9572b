package game

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lolostheman/bettermc/internal/event"
)

type fakeConsole struct {
	cmds []string
	// fail makes the next n Run calls error.
	fail int
}

func (c *fakeConsole) Run(ctx context.Context, cmd string) (string, error) {
	if c.fail > 0 {
		c.fail--
		return "", errors.New("session dead")
	}
	c.cmds = append(c.cmds, cmd)
	return "", nil
}

func (c *fakeConsole) RunBatch(ctx context.Context, cmds []string, delay time.Duration) {
	for _, cmd := range cmds {
		c.Run(ctx, cmd)
	}
}

func (c *fakeConsole) RunPersistent(ctx context.Context, cmd string) (string, error) {
	c.cmds = append(c.cmds, cmd)
	return "", nil
}

type fakeStore struct {
	counts  map[string]int
	cleared int
}

func (s *fakeStore) SetCount(name string, deaths int) error {
	if s.counts == nil {
		s.counts = map[string]int{}
	}
	s.counts[name] = deaths
	return nil
}

func (s *fakeStore) Clear() error {
	s.cleared++
	s.counts = map[string]int{}
	return nil
}

type fakeResetter struct{ resets int }

func (r *fakeResetter) Reset(ctx context.Context) error {
	r.resets++
	return nil
}

type fakeRecorder struct {
	events []event.Event
	rounds []int
}

func (r *fakeRecorder) RecordEvent(ev event.Event)      { r.events = append(r.events, ev) }
func (r *fakeRecorder) RoundClosed(players, deaths int) { r.rounds = append(r.rounds, deaths) }

type fixture struct {
	engine   *Engine
	console  *fakeConsole
	store    *fakeStore
	resetter *fakeResetter
}

func newFixture(multiplier float64) *fixture {
	f := &fixture{
		console:  &fakeConsole{},
		store:    &fakeStore{},
		resetter: &fakeResetter{},
	}
	state := NewServerState(map[string]int{}, multiplier)
	f.engine = NewEngine(state, f.console, f.store, f.resetter, nil, multiplier, "lolostheman")
	f.engine.Sleep = func(time.Duration) {}
	return f
}

func (f *fixture) join(t *testing.T, name string) {
	t.Helper()
	f.engine.Handle(context.Background(), event.Event{Kind: event.KindJoin, Player: name})
}

func (f *fixture) die(t *testing.T, name string) {
	t.Helper()
	f.engine.Handle(context.Background(), event.Event{Kind: event.KindDeath, Player: name})
}

func TestJoinAnnouncesAndPersists(t *testing.T) {
	f := newFixture(1.5)
	f.join(t, "spathak")

	if f.store.counts["spathak"] != 0 {
		t.Errorf("store = %v, want spathak persisted at 0", f.store.counts)
	}
	snap := f.engine.Snapshot()
	if snap.MaxDeaths != 1 {
		t.Errorf("MaxDeaths = %d, want 1", snap.MaxDeaths)
	}
	if len(f.console.cmds) != 2 ||
		f.console.cmds[0] != "say spathak has joined" ||
		!strings.Contains(f.console.cmds[1], "max death count is 1") {
		t.Errorf("broadcasts = %v", f.console.cmds)
	}
}

func TestRejoinIsIdempotent(t *testing.T) {
	f := newFixture(1.5)
	f.join(t, "spathak")
	before := len(f.console.cmds)

	f.join(t, "spathak")

	if len(f.console.cmds) != before {
		t.Errorf("re-join broadcast something: %v", f.console.cmds[before:])
	}
	if f.engine.Snapshot().MaxDeaths != 1 {
		t.Errorf("budget changed on re-join")
	}
}

func TestDeathForUnknownPlayerIgnored(t *testing.T) {
	f := newFixture(1.5)
	f.die(t, "ghost")

	if len(f.console.cmds) != 0 {
		t.Errorf("broadcasts = %v, want none", f.console.cmds)
	}
	if f.engine.Snapshot().CurrentDeaths != 0 {
		t.Error("death counted for unknown player")
	}
}

func TestDeathTauntTallyAndPersist(t *testing.T) {
	f := newFixture(1.5)
	f.join(t, "spathak")
	f.join(t, "xxtenation")
	f.console.cmds = nil

	f.die(t, "spathak")

	if f.store.counts["spathak"] != 1 {
		t.Errorf("store = %v, want spathak at 1", f.store.counts)
	}
	if len(f.console.cmds) != 2 {
		t.Fatalf("broadcasts = %v, want taunt + tally", f.console.cmds)
	}
	if !strings.Contains(f.console.cmds[0], "spathak has died") {
		t.Errorf("taunt = %q", f.console.cmds[0])
	}
	if !strings.Contains(f.console.cmds[1], "1") || !strings.Contains(f.console.cmds[1], "3") {
		t.Errorf("tally = %q, want 1 / 3", f.console.cmds[1])
	}
	if f.resetter.resets != 0 {
		t.Error("loss sequence fired below the budget")
	}
}

// Spec scenario: three players at multiplier 1.0 give a budget of 3.
// Deaths A, A, B land exactly on the budget (no loss); a fourth death
// by C blows it, and the tally shows A: 2, B: 1, C: 1.
func TestLossSequenceFiresOnlyStrictlyOverBudget(t *testing.T) {
	f := newFixture(1.0)
	rec := &fakeRecorder{}
	state := NewServerState(map[string]int{}, 1.0)
	f.engine = NewEngine(state, f.console, f.store, f.resetter, rec, 1.0, "lolostheman")
	f.engine.Sleep = func(time.Duration) {}

	for _, p := range []string{"AliceA", "BobbyB", "CarolC"} {
		f.join(t, p)
	}
	if got := f.engine.Snapshot().MaxDeaths; got != 3 {
		t.Fatalf("budget = %d, want 3", got)
	}

	f.die(t, "AliceA")
	f.die(t, "AliceA")
	f.die(t, "BobbyB")
	if f.resetter.resets != 0 {
		t.Fatal("loss fired at exactly the budget")
	}

	f.console.cmds = nil
	f.die(t, "CarolC")

	if f.resetter.resets != 1 {
		t.Fatal("loss did not fire above the budget")
	}

	joined := strings.Join(f.console.cmds, "\n")
	for _, want := range []string{
		"say AliceA died 2 time(s)",
		"say BobbyB died 1 time(s)",
		"say CarolC died 1 time(s)",
		"execute at @a run summon lightning_bolt ~ ~ ~",
		"say 3...",
		"say 2...",
		"say 1...",
		"stop",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in loss sequence:\n%s", want, joined)
		}
	}

	// stop must come after the countdown, reset after stop.
	if strings.Index(joined, "say 1...") > strings.Index(joined, "stop") {
		t.Error("stop sent before the countdown finished")
	}

	if len(rec.rounds) != 1 || rec.rounds[0] != 4 {
		t.Errorf("recorded rounds = %v, want one round of 4 deaths", rec.rounds)
	}

	// Fresh round: empty roster, zero budget, ready to keep consuming.
	snap := f.engine.Snapshot()
	if len(snap.Players) != 0 || snap.CurrentDeaths != 0 || snap.MaxDeaths != 0 {
		t.Errorf("post-reset snapshot = %+v, want empty round", snap)
	}
}

func TestStatsRequestBroadcastsTally(t *testing.T) {
	f := newFixture(1.5)
	f.join(t, "spathak")
	f.join(t, "xxtenation")
	f.die(t, "spathak")
	f.console.cmds = nil

	f.engine.Handle(context.Background(), event.Event{Kind: event.KindStats})

	if len(f.console.cmds) != 3 {
		t.Fatalf("broadcasts = %v, want remaining + 2 tallies", f.console.cmds)
	}
	if !strings.Contains(f.console.cmds[0], "Remaining lives: 2") {
		t.Errorf("remaining = %q", f.console.cmds[0])
	}
	if f.engine.Snapshot().CurrentDeaths != 1 {
		t.Error("stats request mutated state")
	}
}

func TestSpecialTriggerStrikesTarget(t *testing.T) {
	f := newFixture(1.5)
	f.engine.Handle(context.Background(), event.Event{Kind: event.KindTrigger})

	strikes := 0
	for _, cmd := range f.console.cmds {
		if cmd == "execute at lolostheman run summon lightning_bolt ~ ~ ~" {
			strikes++
		}
	}
	if strikes != 3 {
		t.Errorf("got %d strikes, want 3: %v", strikes, f.console.cmds)
	}
	if f.engine.Snapshot().CurrentDeaths != 0 {
		t.Error("trigger mutated state")
	}
}

// A dead session mid-broadcast must not stop event processing.
func TestBroadcastFailureIsTolerated(t *testing.T) {
	f := newFixture(1.5)
	f.join(t, "spathak")
	f.console.fail = 1

	f.die(t, "spathak")

	if f.engine.Snapshot().CurrentDeaths != 1 {
		t.Error("death lost to a failed broadcast")
	}
	if f.store.counts["spathak"] != 1 {
		t.Error("persist lost to a failed broadcast")
	}
}

func TestRunConsumesInOrder(t *testing.T) {
	f := newFixture(1.5)
	events := make(chan event.Event, 3)
	events <- event.Event{Kind: event.KindJoin, Player: "spathak"}
	events <- event.Event{Kind: event.KindDeath, Player: "spathak"}
	close(events)

	f.engine.Run(context.Background(), events)

	snap := f.engine.Snapshot()
	if snap.CurrentDeaths != 1 || len(snap.Players) != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
}
