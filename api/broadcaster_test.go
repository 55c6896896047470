package api

import (
	"testing"
	"time"
)

func TestBroadcasterDeliversSubscribedEvent(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	sub := b.Subscribe([]EventType{EventTypeBest})
	defer b.Unsubscribe(sub)

	b.BestScore("evolution", 0.75)

	select {
	case event := <-sub.Channel:
		if event.Type != EventTypeBest || event.PipeName != "evolution" {
			t.Fatalf("unexpected event: %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast event")
	}
}

func TestBroadcasterFiltersByEventType(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	sub := b.Subscribe([]EventType{EventTypeBest})
	defer b.Unsubscribe(sub)

	b.PipeCycle("source", true)

	select {
	case event := <-sub.Channel:
		t.Fatalf("expected no event to be delivered, got %+v", event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscriptionCountTracksActiveSubscriptions(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	if b.SubscriptionCount() != 0 {
		t.Fatalf("expected 0 subscriptions initially, got %d", b.SubscriptionCount())
	}

	sub := b.Subscribe(nil)
	waitFor(t, func() bool { return b.SubscriptionCount() == 1 })

	b.Unsubscribe(sub)
	waitFor(t, func() bool { return b.SubscriptionCount() == 0 })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
