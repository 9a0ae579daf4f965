package chat

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/onnwee/metasepia/telemetry"
)

// Handler consumes events. HandleTopic calls are never concurrent with each
// other, and neither are HandleMessage calls; the two kinds run on separate
// goroutines so a slow command never delays topic handling.
type Handler interface {
	HandleTopic(ctx context.Context, channel, text string)
	HandleMessage(ctx context.Context, sender, destination, text string)
}

// Producer is an event source that runs until ctx is done.
type Producer interface {
	Run(ctx context.Context) error
}

// ProducerFunc adapts a function to Producer.
type ProducerFunc func(ctx context.Context) error

func (f ProducerFunc) Run(ctx context.Context) error { return f(ctx) }

// DefaultCommandQueueSize bounds messages waiting for the command goroutine.
const DefaultCommandQueueSize = 64

// Service owns the event loop.
type Service struct {
	Events    <-chan Event
	Producers []Producer
	Handler   Handler
	// Tracked limits which channels' topics are handled; empty means all.
	Tracked []string
	// CommandQueueSize overrides DefaultCommandQueueSize. Messages arriving
	// while the queue is full are dropped.
	CommandQueueSize int
}

// Run starts the producers, the event consumer and the command consumer, and
// blocks until ctx is cancelled or a producer fails. A producer error is
// returned after everything has stopped.
func (s *Service) Run(ctx context.Context) error {
	tracked := make(map[string]struct{}, len(s.Tracked))
	for _, ch := range s.Tracked {
		if ch = normalizeChannel(ch); ch != "" {
			tracked[ch] = struct{}{}
		}
	}
	size := s.CommandQueueSize
	if size <= 0 {
		size = DefaultCommandQueueSize
	}
	commands := make(chan Event, size)

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range s.Producers {
		g.Go(func() error { return p.Run(gctx) })
	}
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev := <-s.Events:
				s.dispatch(gctx, tracked, commands, ev)
			}
		}
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev := <-commands:
				s.Handler.HandleMessage(gctx, ev.Sender, ev.Destination, ev.Text)
			}
		}
	})
	return g.Wait()
}

func (s *Service) dispatch(ctx context.Context, tracked map[string]struct{}, commands chan<- Event, ev Event) {
	switch ev.Kind {
	case KindTopic:
		if len(tracked) > 0 {
			if _, ok := tracked[strings.ToLower(ev.Channel)]; !ok {
				slog.Debug("topic from untracked channel ignored", slog.String("channel", ev.Channel), slog.String("component", "chat"))
				return
			}
		}
		telemetry.RecordTopicEvent(ev.Source)
		slog.Info("topic changed", slog.String("channel", ev.Channel), slog.String("by", ev.Sender), slog.String("source", ev.Source), slog.String("topic", ev.Text), slog.String("component", "chat"))
		s.Handler.HandleTopic(ctx, ev.Channel, ev.Text)
	case KindMessage:
		select {
		case commands <- ev:
		default:
			slog.Warn("command queue full, message dropped", slog.String("sender", ev.Sender), slog.String("destination", ev.Destination), slog.String("component", "chat"))
		}
	}
}
