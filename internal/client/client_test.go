package client

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/matheus3301/campus/internal/api"
	"github.com/matheus3301/campus/internal/bus"
	"github.com/matheus3301/campus/internal/cache"
	"github.com/matheus3301/campus/internal/chat"
	"github.com/matheus3301/campus/internal/domain"
	"github.com/matheus3301/campus/internal/realtime"
	"github.com/matheus3301/campus/internal/rpc"
	"github.com/matheus3301/campus/internal/status"
	"github.com/matheus3301/campus/internal/store"
)

var (
	alice = domain.Identity{ID: "alice", Role: domain.Student}
	bob   = domain.Identity{ID: "bob", Role: domain.Staff}
)

type harness struct {
	db         *store.DB
	hub        *realtime.Hub
	socketPath string
	grpcSrv    *grpc.Server
}

// newHarness runs the daemon services in-process on a Unix socket.
func newHarness(t *testing.T) *harness {
	t.Helper()
	// Short path to stay under the 104-char Unix socket limit on macOS.
	tmpDir, err := os.MkdirTemp("/tmp", "campus-client-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tmpDir) })

	b := bus.New()
	t.Cleanup(b.Close)
	db, err := store.Open(filepath.Join(tmpDir, "campus.db"), b, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	hub := realtime.NewHub(b, nil)
	hub.Start(context.Background())
	t.Cleanup(hub.Stop)

	h := &harness{db: db, hub: hub, socketPath: filepath.Join(tmpDir, "d.sock")}
	h.serve(t)
	t.Cleanup(func() { h.grpcSrv.Stop() })
	return h
}

func (h *harness) serve(t *testing.T) {
	t.Helper()
	srv := grpc.NewServer()
	rpc.RegisterSessionServer(srv, api.NewSessionService("test", status.NewDaemonMachine(nil), h.hub, h.db))
	rpc.RegisterNotificationServer(srv, api.NewNotificationService(h.db))
	rpc.RegisterChatServer(srv, api.NewChatService(h.db, cache.NewProfiles(h.db, nil, 0, nil)))
	rpc.RegisterFeedServer(srv, api.NewFeedService(h.hub, nil))

	_ = os.Remove(h.socketPath)
	listener, err := net.Listen("unix", h.socketPath)
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = srv.Serve(listener) }()
	h.grpcSrv = srv
}

func (h *harness) dial(t *testing.T) *Client {
	t.Helper()
	c, err := New(h.socketPath, nil, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStatus(t *testing.T) {
	h := newHarness(t)
	c := h.dial(t)

	resp, err := c.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if resp.Institute != "test" {
		t.Errorf("institute = %q, want test", resp.Institute)
	}
	if resp.Status != string(status.Booting) {
		t.Errorf("status = %q, want BOOTING", resp.Status)
	}
	if resp.Dialect != string(store.SQLite) {
		t.Errorf("dialect = %q, want sqlite3", resp.Dialect)
	}
}

func TestRoundTrip(t *testing.T) {
	h := newHarness(t)
	c := h.dial(t)
	ctx := context.Background()

	if err := c.UpsertProfile(ctx, &domain.Profile{Identity: bob, Name: "Bob Builder"}); err != nil {
		t.Fatal(err)
	}
	p, err := c.GetProfile(ctx, bob)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Bob Builder" {
		t.Errorf("name = %q", p.Name)
	}
	if _, err := c.GetProfile(ctx, alice); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetProfile(missing) error = %v, want ErrNotFound", err)
	}

	conv, created, err := c.CreateConversation(ctx, alice, bob)
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("first CreateConversation should report created")
	}
	again, created, err := c.CreateConversation(ctx, bob, alice)
	if err != nil {
		t.Fatal(err)
	}
	if created || again.ID != conv.ID {
		t.Errorf("second create = (%s, %v), want (%s, false)", again.ID, created, conv.ID)
	}

	m := &domain.Message{ConversationID: conv.ID, SenderID: alice.ID, SenderRole: alice.Role, Text: "hi", ClientID: "c-1"}
	if err := c.InsertMessage(ctx, m); err != nil {
		t.Fatal(err)
	}
	if m.ID == "" {
		t.Fatal("InsertMessage did not assign an id")
	}
	msgs, err := c.ListMessages(ctx, conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].ClientID != "c-1" {
		t.Fatalf("messages = %+v, want one with client id c-1", msgs)
	}

	n, err := c.CountUnreadSince(ctx, conv.ID, time.Time{}, bob.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("unread since zero = %d, want 1", n)
	}

	if err := c.InsertMessage(ctx, &domain.Message{ConversationID: conv.ID, SenderID: alice.ID, SenderRole: alice.Role}); !errors.Is(err, domain.ErrInvalid) {
		t.Errorf("empty message error = %v, want ErrInvalid", err)
	}
}

func TestNotificationsOverRPC(t *testing.T) {
	h := newHarness(t)
	c := h.dial(t)
	ctx := context.Background()

	for range 3 {
		if err := c.CreateNotification(ctx, &domain.Notification{ReceiverID: alice.ID, Message: "m", Source: "system"}); err != nil {
			t.Fatal(err)
		}
	}
	n, err := c.CountUnreadNotifications(ctx, alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("unread = %d, want 3", n)
	}
	marked, err := c.MarkAllNotificationsRead(ctx, alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if marked != 3 {
		t.Errorf("marked = %d, want 3", marked)
	}
	list, err := c.ListNotifications(ctx, alice.ID, true, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("unread list = %d, want 0", len(list))
	}
}

func TestSubscribeDeliversChanges(t *testing.T) {
	h := newHarness(t)
	c := h.dial(t)
	ctx := context.Background()

	sub, err := c.Subscribe(ctx, domain.Topic{Collection: domain.Notifications, Field: "receiver_id", Value: alice.ID})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	waitFor(t, "hub subscriber", func() bool { return h.hub.Subscribers() == 1 })

	if err := c.CreateNotification(ctx, &domain.Notification{ReceiverID: bob.ID, Message: "not mine"}); err != nil {
		t.Fatal(err)
	}
	if err := c.CreateNotification(ctx, &domain.Notification{ReceiverID: alice.ID, Message: "mine"}); err != nil {
		t.Fatal(err)
	}

	select {
	case ch := <-sub.Changes():
		var n domain.Notification
		if err := ch.DecodeNew(&n); err != nil {
			t.Fatal(err)
		}
		if n.Message != "mine" || ch.Op != domain.Insert {
			t.Errorf("change = %s %+v, want insert of mine", ch.Op, n)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no change delivered")
	}
}

func TestSubscribeReconnects(t *testing.T) {
	ReconnectInitial = 10 * time.Millisecond
	ReconnectMax = 50 * time.Millisecond
	t.Cleanup(func() {
		ReconnectInitial = 200 * time.Millisecond
		ReconnectMax = 10 * time.Second
	})

	h := newHarness(t)
	b := bus.New()
	defer b.Close()
	links, unsub := b.Subscribe(bus.NamespaceLink, 32)
	defer unsub()

	c, err := New(h.socketPath, b, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	s, err := c.Subscribe(context.Background(), domain.Topic{Collection: domain.Messages})
	if err != nil {
		t.Fatal(err)
	}
	sub := s.(*remoteSub)
	waitFor(t, "first watch", func() bool { return h.hub.Subscribers() == 1 })

	// Drop every stream and bring the server back on the same socket.
	h.grpcSrv.Stop()
	waitFor(t, "watch to end", func() bool { return h.hub.Subscribers() == 0 })
	h.serve(t)
	waitFor(t, "reconnect", func() bool {
		return sub.Link() == status.Live && h.hub.Subscribers() == 1
	})

	sawReconnecting := false
	for len(links) > 0 {
		ev := <-links
		if ev.Payload.(status.StatusChange).To == status.Reconnecting {
			sawReconnecting = true
		}
	}
	if !sawReconnecting {
		t.Error("link never reported RECONNECTING")
	}

	h.hub.Publish(domain.Change{ID: "x1", Collection: domain.Messages, Op: domain.Insert, New: []byte(`{"id":"m1"}`)})
	select {
	case ch := <-sub.Changes():
		if ch.ID != "x1" {
			t.Errorf("change id = %q, want x1", ch.ID)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no change after reconnect")
	}

	sub.Close()
	if sub.Link() != status.Closed {
		t.Errorf("link after Close = %s, want CLOSED", sub.Link())
	}
	if _, ok := <-sub.Changes(); ok {
		t.Error("channel should be closed after Close")
	}
}

func TestDaemonDown(t *testing.T) {
	tmpDir, err := os.MkdirTemp("/tmp", "campus-down-*")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	c, err := New(filepath.Join(tmpDir, "none.sock"), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := c.Status(ctx); err == nil {
		t.Error("Status against a missing socket should fail")
	}
	if _, err := c.Subscribe(ctx, domain.Topic{Collection: domain.Messages}); err == nil {
		t.Error("Subscribe against a missing socket should fail")
	}
}

// TestChatEndToEnd drives two chat cores through the daemon.
func TestChatEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ca, cb := h.dial(t), h.dial(t)

	if err := ca.UpsertProfile(ctx, &domain.Profile{Identity: alice, Name: "Alice"}); err != nil {
		t.Fatal(err)
	}
	if err := ca.UpsertProfile(ctx, &domain.Profile{Identity: bob, Name: "Bob"}); err != nil {
		t.Fatal(err)
	}

	sa := chat.New(ca, ca, alice, chat.Options{}, nil)
	sb := chat.New(cb, cb, bob, chat.Options{}, nil)
	if err := sa.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer sa.Close()
	if err := sb.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer sb.Close()
	waitFor(t, "feeds", func() bool { return h.hub.Subscribers() == 4 })

	conv, err := sa.StartOrResume(ctx, bob)
	if err != nil {
		t.Fatal(err)
	}
	if conv.Other == nil || conv.Other.Name != "Bob" {
		t.Errorf("counterpart = %+v, want Bob", conv.Other)
	}

	waitFor(t, "bob to see the conversation", func() bool {
		for _, c := range sb.Conversations() {
			if c.ID == conv.ID {
				return c.Other != nil && c.Other.Name == "Alice"
			}
		}
		return false
	})

	sa.SetInput("hello bob")
	if err := sa.Send(ctx); err != nil {
		t.Fatal(err)
	}
	tl := sa.Timeline()
	if len(tl) != 1 || tl[0].Optimistic {
		t.Errorf("alice timeline = %+v, want one confirmed message", tl)
	}

	if err := sb.Open(ctx, conv.ID); err != nil {
		t.Fatal(err)
	}
	if sb.Unread(conv.ID) != 0 {
		t.Errorf("unread after open = %d, want 0", sb.Unread(conv.ID))
	}
	if got := sb.Timeline(); len(got) != 1 || got[0].Text != "hello bob" {
		t.Errorf("bob timeline = %+v", got)
	}

	// A reply while bob has it open lands in his timeline live.
	sa.SetInput("still there?")
	if err := sa.Send(ctx); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "live message", func() bool { return len(sb.Timeline()) == 2 })
	if sb.Unread(conv.ID) != 0 {
		t.Errorf("open conversation unread = %d, want 0", sb.Unread(conv.ID))
	}
}
