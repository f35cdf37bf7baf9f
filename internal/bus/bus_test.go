package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("db.", 10)
	defer unsub()

	if n := b.Publish(Event{Kind: "db.messages.insert", Timestamp: time.Now(), Payload: "test"}); n != 1 {
		t.Errorf("Publish delivered to %d subscribers, want 1", n)
	}

	select {
	case evt := <-ch:
		if evt.Kind != "db.messages.insert" {
			t.Errorf("got kind %q, want db.messages.insert", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("db.notifications.", 10)
	defer unsub()

	b.Publish(Event{Kind: "daemon.status_changed"})
	b.Publish(Event{Kind: "db.messages.insert"})
	b.Publish(Event{Kind: "db.notifications.update"})

	select {
	case evt := <-ch:
		if evt.Kind != "db.notifications.update" {
			t.Errorf("got kind %q, want db.notifications.update", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("db.", 10)
	unsub()
	unsub() // second call is a no-op

	b.Publish(Event{Kind: "db.messages.insert"})

	if _, ok := <-ch; ok {
		t.Error("received event after unsubscribe")
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("test.", 1)
	defer unsub()

	b.Publish(Event{Kind: "test.one"})
	b.Publish(Event{Kind: "test.two"})

	evt := <-ch
	if evt.Kind != "test.one" {
		t.Errorf("got %q, want test.one", evt.Kind)
	}
	if b.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", b.Dropped())
	}
}

func TestCloseEndsSubscriptions(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("db.", 1)
	defer unsub()

	b.Close()
	if _, ok := <-ch; ok {
		t.Error("channel still open after Close")
	}

	late, _ := b.Subscribe("db.", 1)
	if _, ok := <-late; ok {
		t.Error("subscription after Close should be closed")
	}
}
