package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/matheus3301/campus/internal/bus"
	"github.com/matheus3301/campus/internal/domain"
)

// Relay listens on the Postgres change channel and republishes every change
// on the local bus.
type Relay struct {
	dsn      string
	bus      *bus.Bus
	logger   *zap.Logger
	onLink   func(up bool)
	listener *pq.Listener
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewRelay creates a relay for the given Postgres DSN. onLink, if set, is
// called with false when the listener connection drops and true when it is
// re-established.
func NewRelay(dsn string, b *bus.Bus, logger *zap.Logger, onLink func(up bool)) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{dsn: dsn, bus: b, logger: logger, onLink: onLink}
}

// Start opens the listener and begins relaying.
func (r *Relay) Start(ctx context.Context) error {
	r.listener = pq.NewListener(r.dsn, 2*time.Second, time.Minute, r.handleListenerEvent)
	if err := r.listener.Listen(NotifyChannel); err != nil {
		_ = r.listener.Close()
		return err
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	go r.loop(ctx)
	r.logger.Info("change relay listening", zap.String("channel", NotifyChannel))
	return nil
}

// Stop closes the listener and waits for the relay loop to exit.
func (r *Relay) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	_ = r.listener.Close()
}

func (r *Relay) handleListenerEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventDisconnected:
		r.logger.Warn("change relay disconnected", zap.Error(err))
		if r.onLink != nil {
			r.onLink(false)
		}
	case pq.ListenerEventReconnected:
		r.logger.Info("change relay reconnected")
		if r.onLink != nil {
			r.onLink(true)
		}
	case pq.ListenerEventConnectionAttemptFailed:
		r.logger.Warn("change relay connection attempt failed", zap.Error(err))
	}
}

func (r *Relay) loop(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case n := <-r.listener.Notify:
			// nil after a reconnect; notifications sent meanwhile are lost.
			if n == nil {
				continue
			}
			var ch domain.Change
			if err := json.Unmarshal([]byte(n.Extra), &ch); err != nil {
				r.logger.Error("failed to decode change", zap.Error(err))
				continue
			}
			r.bus.Publish(bus.Event{Kind: ch.Kind(), Timestamp: time.Now(), Payload: ch})
		case <-time.After(90 * time.Second):
			go func() { _ = r.listener.Ping() }()
		case <-ctx.Done():
			return
		}
	}
}
