package api

import (
	"testing"

	"github.com/lolostheman/bettermc/internal/event"
)

func TestHubFanOut(t *testing.T) {
	hub := NewHub()
	a := hub.Subscribe()
	b := hub.Subscribe()

	ev := event.Event{Kind: event.KindJoin, Player: "spathak", Raw: "spathak joined the game"}
	hub.Publish(ev)

	for _, ch := range []chan event.Event{a, b} {
		select {
		case got := <-ch:
			if got.Player != "spathak" {
				t.Errorf("got %+v", got)
			}
		default:
			t.Error("subscriber missed the event")
		}
	}
}

func TestHubDropsWhenSubscriberIsFull(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()

	// Overfill: the buffer is 16; everything past that is dropped
	// instead of blocking the pipeline.
	for i := 0; i < 40; i++ {
		hub.Publish(event.Event{Kind: event.KindStats})
	}
	if got := len(ch); got != cap(ch) {
		t.Errorf("buffered %d, want full buffer of %d", got, cap(ch))
	}
}

func TestHubUnsubscribeCloses(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()
	hub.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Error("channel not closed")
	}

	// Publishing after unsubscribe must not panic.
	hub.Publish(event.Event{Kind: event.KindStats})
	// Double unsubscribe is harmless.
	hub.Unsubscribe(ch)
}
