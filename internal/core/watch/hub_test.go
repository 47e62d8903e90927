package watch

import (
	"context"
	"testing"
)

func TestSubscribeDeliverUnsubscribe(t *testing.T) {
	hub := NewHub()

	var got []string
	cancel := hub.Subscribe(TopicProducts, func(ev Event) {
		got = append(got, string(ev.Snapshot))
	})

	hub.Publish(context.Background(), TopicProducts, []byte("snap1"))
	hub.Publish(context.Background(), TopicSales, []byte("other-topic"))

	if len(got) != 1 || got[0] != "snap1" {
		t.Fatalf("expected single snap1 delivery, got %v", got)
	}

	cancel()
	hub.Publish(context.Background(), TopicProducts, []byte("snap2"))

	if len(got) != 1 {
		t.Fatalf("listener fired after unsubscribe: %v", got)
	}
	if n := hub.SubscriberCount(TopicProducts); n != 0 {
		t.Fatalf("expected 0 subscribers, got %d", n)
	}
}

type recordingBridge struct {
	events []Event
}

func (b *recordingBridge) Broadcast(_ context.Context, ev Event) error {
	b.events = append(b.events, ev)
	return nil
}

func TestBridgeBroadcastAndDeliver(t *testing.T) {
	hub := NewHub()
	bridge := &recordingBridge{}
	hub.Attach(bridge)

	var local int
	hub.Subscribe(TopicSales, func(Event) { local++ })

	hub.Publish(context.Background(), TopicSales, []byte("{}"))
	if len(bridge.events) != 1 {
		t.Fatalf("expected bridge broadcast, got %d", len(bridge.events))
	}
	if local != 1 {
		t.Fatalf("expected local delivery, got %d", local)
	}

	// Events arriving from the bridge go through Deliver and must not
	// re-enter the bridge.
	hub.Deliver(Event{Topic: TopicSales, Snapshot: []byte("remote")})
	if len(bridge.events) != 1 {
		t.Fatalf("Deliver must not re-broadcast, got %d", len(bridge.events))
	}
	if local != 2 {
		t.Fatalf("expected second local delivery, got %d", local)
	}
}
