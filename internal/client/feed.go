package client

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/matheus3301/campus/internal/domain"
	"github.com/matheus3301/campus/internal/realtime"
	"github.com/matheus3301/campus/internal/rpc"
	"github.com/matheus3301/campus/internal/status"
)

// Reconnect delays of a remote subscription.
var (
	ReconnectInitial = 200 * time.Millisecond
	ReconnectMax     = 10 * time.Second
)

// Subscribe opens a Watch stream for topic. The first connection attempt is
// made before returning; after that a dropped stream is re-established with
// exponential backoff until the subscription is closed or ctx ends.
func (c *Client) Subscribe(ctx context.Context, topic domain.Topic) (realtime.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	s := &remoteSub{
		client: c,
		topic:  topic,
		ch:     make(chan domain.Change, realtime.DefaultBuffer),
		cancel: cancel,
		done:   make(chan struct{}),
		link:   status.NewLinkMachine(c.bus),
		logger: c.logger.With(zap.Stringer("topic", topic)),
	}

	_ = s.link.Transition(status.Connecting)
	stream, err := c.Feed.Watch(ctx, &rpc.WatchRequest{Topic: topic})
	if err != nil {
		cancel()
		_ = s.link.Transition(status.Closed)
		return nil, rpc.FromStatus(err)
	}
	_ = s.link.Transition(status.Live)

	go s.run(ctx, stream)
	return s, nil
}

type remoteSub struct {
	client *Client
	topic  domain.Topic
	ch     chan domain.Change
	cancel context.CancelFunc
	done   chan struct{}
	link   *status.Machine
	logger *zap.Logger
}

func (s *remoteSub) Changes() <-chan domain.Change {
	return s.ch
}

// Close ends the stream and closes the channel once the reader has exited.
func (s *remoteSub) Close() {
	s.cancel()
	<-s.done
}

// Link returns the current link state.
func (s *remoteSub) Link() status.State {
	return s.link.Current()
}

func (s *remoteSub) run(ctx context.Context, stream *rpc.WatchStream) {
	defer func() {
		_ = s.link.Transition(status.Closed)
		close(s.ch)
		close(s.done)
	}()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = ReconnectInitial
	bo.MaxInterval = ReconnectMax
	bo.MaxElapsedTime = 0

	for {
		if stream != nil {
			err := s.pump(ctx, stream)
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("feed stream dropped", zap.Error(err))
			bo.Reset()
		}
		_ = s.link.Transition(status.Reconnecting)

		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			return
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}

		_ = s.link.Transition(status.Connecting)
		var err error
		stream, err = s.client.Feed.Watch(ctx, &rpc.WatchRequest{Topic: s.topic})
		if err != nil {
			stream = nil
			s.logger.Info("feed reconnect failed", zap.Duration("after", wait), zap.Error(err))
			continue
		}
		s.logger.Info("feed reconnected", zap.Duration("after", wait))
		_ = s.link.Transition(status.Live)
	}
}

// pump forwards changes until the stream fails.
func (s *remoteSub) pump(ctx context.Context, stream *rpc.WatchStream) error {
	for {
		c, err := stream.Recv()
		if err != nil {
			return err
		}
		select {
		case s.ch <- *c:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
