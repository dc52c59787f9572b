// Package watch wires the event pipeline: one tailer goroutine feeds
// classified events into a FIFO queue consumed by exactly one game
// engine goroutine. Ordering is preserved end to end and nothing is
// dropped once enqueued.
package watch

import (
	"context"
	"log"

	"github.com/lolostheman/bettermc/internal/event"
	"github.com/lolostheman/bettermc/internal/game"
	"github.com/lolostheman/bettermc/internal/tail"
)

// Publisher receives a copy of every classified event for live
// observers; it must never block.
type Publisher interface {
	Publish(ev event.Event)
}

// queueSize gives the consumer plenty of slack for its pacing sleeps.
// Normal event volume is a handful per minute; a full loss sequence
// stalls consumption for well under a minute.
const queueSize = 256

type Pipeline struct {
	tailer    *tail.Tailer
	engine    *game.Engine
	publisher Publisher
}

func New(tailer *tail.Tailer, engine *game.Engine, publisher Publisher) *Pipeline {
	return &Pipeline{tailer: tailer, engine: engine, publisher: publisher}
}

// Run blocks until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) {
	queue := make(chan event.Event, queueSize)
	lines := p.tailer.Follow(ctx)

	go func() {
		defer close(queue)
		for line := range lines {
			log.Printf("log: %s", line)
			for _, ev := range event.Classify(line) {
				if p.publisher != nil {
					p.publisher.Publish(ev)
				}
				select {
				case queue <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	p.engine.Run(ctx, queue)
}
