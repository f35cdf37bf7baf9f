package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/matheus3301/campus/internal/bus"
	"github.com/matheus3301/campus/internal/domain"
)

func change(t *testing.T, coll domain.Collection, op domain.Op, row any) domain.Change {
	t.Helper()
	var old, new any
	if op == domain.Delete {
		old = row
	} else {
		new = row
	}
	c, err := domain.NewChange(string(op)+"-"+time.Now().Format(time.RFC3339Nano), coll, op, old, new)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func publish(b *bus.Bus, c domain.Change) {
	b.Publish(bus.Event{Kind: c.Kind(), Timestamp: time.Now(), Payload: c})
}

func receive(t *testing.T, s Subscription) domain.Change {
	t.Helper()
	select {
	case c, ok := <-s.Changes():
		if !ok {
			t.Fatal("subscription closed")
		}
		return c
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change")
		return domain.Change{}
	}
}

func startHub(t *testing.T) (*Hub, *bus.Bus) {
	t.Helper()
	b := bus.New()
	h := NewHub(b, nil)
	h.Start(context.Background())
	t.Cleanup(func() {
		h.Stop()
		b.Close()
	})
	return h, b
}

func TestHubFiltersByTopic(t *testing.T) {
	h, b := startHub(t)
	ctx := context.Background()

	mine, err := h.Subscribe(ctx, domain.Topic{Collection: domain.Notifications, Field: "receiver_id", Value: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	all, err := h.Subscribe(ctx, domain.Topic{Collection: domain.Notifications})
	if err != nil {
		t.Fatal(err)
	}

	publish(b, change(t, domain.Notifications, domain.Insert, domain.Notification{ID: "n1", ReceiverID: "u2"}))
	publish(b, change(t, domain.Notifications, domain.Insert, domain.Notification{ID: "n2", ReceiverID: "u1"}))
	publish(b, change(t, domain.Messages, domain.Insert, domain.Message{ID: "m1"}))

	var n domain.Notification
	if err := receive(t, mine).DecodeNew(&n); err != nil {
		t.Fatal(err)
	}
	if n.ID != "n2" {
		t.Errorf("filtered subscription got %s, want n2", n.ID)
	}
	if c := receive(t, all); c.Collection != domain.Notifications {
		t.Errorf("collection = %s", c.Collection)
	}
	receive(t, all)

	select {
	case c := <-all.Changes():
		t.Errorf("unexpected change %s", c.Kind())
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDeleteMatchesOldRow(t *testing.T) {
	h, _ := startHub(t)
	s, err := h.Subscribe(context.Background(), domain.Topic{Collection: domain.Notifications, Field: "receiver_id", Value: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	h.Publish(change(t, domain.Notifications, domain.Delete, domain.Notification{ID: "n1", ReceiverID: "u1"}))
	if c := receive(t, s); c.Op != domain.Delete {
		t.Errorf("op = %s, want delete", c.Op)
	}
}

func TestHubCloseClosesChannel(t *testing.T) {
	h, _ := startHub(t)
	s, err := h.Subscribe(context.Background(), domain.Topic{Collection: domain.Messages})
	if err != nil {
		t.Fatal(err)
	}
	s.Close()
	s.Close()
	if _, ok := <-s.Changes(); ok {
		t.Error("channel should be closed")
	}
	if n := h.Subscribers(); n != 0 {
		t.Errorf("subscribers = %d, want 0", n)
	}
}

func TestHubContextCancelCloses(t *testing.T) {
	h, _ := startHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	s, err := h.Subscribe(ctx, domain.Topic{Collection: domain.Messages})
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	select {
	case _, ok := <-s.Changes():
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription not closed on context cancel")
	}
}

func TestHubDropsWhenFull(t *testing.T) {
	h, _ := startHub(t)
	if _, err := h.Subscribe(context.Background(), domain.Topic{Collection: domain.Messages}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < DefaultBuffer+3; i++ {
		h.Publish(change(t, domain.Messages, domain.Insert, domain.Message{ID: "m"}))
	}
	if got := h.Dropped(); got != 3 {
		t.Errorf("dropped = %d, want 3", got)
	}
}

func TestHubStop(t *testing.T) {
	b := bus.New()
	defer b.Close()
	h := NewHub(b, nil)
	h.Start(context.Background())
	s, err := h.Subscribe(context.Background(), domain.Topic{Collection: domain.Messages})
	if err != nil {
		t.Fatal(err)
	}
	h.Stop()
	if _, ok := <-s.Changes(); ok {
		t.Error("channel should be closed after Stop")
	}
	if _, err := h.Subscribe(context.Background(), domain.Topic{Collection: domain.Messages}); err != ErrHubStopped {
		t.Errorf("err = %v, want ErrHubStopped", err)
	}
}

func TestHubResetClosesSubscriptions(t *testing.T) {
	h, b := startHub(t)
	ctx := context.Background()

	a, err := h.Subscribe(ctx, domain.Topic{Collection: domain.Messages})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.Subscribe(ctx, domain.Topic{Collection: domain.Notifications}); err != nil {
		t.Fatal(err)
	}

	if n := h.Reset(); n != 2 {
		t.Errorf("Reset closed %d, want 2", n)
	}
	if _, ok := <-a.Changes(); ok {
		t.Error("channel should be closed after Reset")
	}
	if h.Subscribers() != 0 {
		t.Errorf("subscribers = %d, want 0", h.Subscribers())
	}

	again, err := h.Subscribe(ctx, domain.Topic{Collection: domain.Messages})
	if err != nil {
		t.Fatalf("subscribe after reset: %v", err)
	}
	publish(b, change(t, domain.Messages, domain.Insert, domain.Message{ID: "m1"}))
	receive(t, again)
	a.Close()
}
