package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/onnwee/metasepia/twitchapi"
)

// ChannelInfoSource is the Helix surface the poller needs.
type ChannelInfoSource interface {
	GetUserID(ctx context.Context, login string) (string, error)
	GetChannelInfo(ctx context.Context, broadcasterID string) (twitchapi.ChannelInfo, error)
}

// TitlePoller turns Helix channel titles into topic events. The first
// successful read of a channel counts as a change.
type TitlePoller struct {
	Helix    ChannelInfoSource
	Channels []string
	Interval time.Duration
	Events   chan<- Event

	ids    map[string]string
	titles map[string]string
}

// Run polls until ctx is cancelled. Helix errors are logged and retried on
// the next tick. A zero Interval disables polling.
func (p *TitlePoller) Run(ctx context.Context) error {
	if p.Interval <= 0 || len(p.Channels) == 0 {
		return nil
	}
	p.ids = make(map[string]string, len(p.Channels))
	p.titles = make(map[string]string, len(p.Channels))
	slog.Info("topic poller started", slog.Duration("interval", p.Interval), slog.Int("channels", len(p.Channels)), slog.String("component", "chat"))

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		p.pollOnce(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *TitlePoller) pollOnce(ctx context.Context) {
	for _, raw := range p.Channels {
		if ctx.Err() != nil {
			return
		}
		channel := normalizeChannel(raw)
		if channel == "" {
			continue
		}
		id, ok := p.ids[channel]
		if !ok {
			var err error
			id, err = p.Helix.GetUserID(ctx, channel)
			if err != nil {
				slog.Warn("topic poller: resolve channel", slog.String("channel", channel), slog.Any("err", err), slog.String("component", "chat"))
				continue
			}
			p.ids[channel] = id
		}
		info, err := p.Helix.GetChannelInfo(ctx, id)
		if err != nil {
			slog.Debug("topic poller: channel info", slog.String("channel", channel), slog.Any("err", err), slog.String("component", "chat"))
			continue
		}
		if last, seen := p.titles[channel]; seen && last == info.Title {
			continue
		}
		p.titles[channel] = info.Title
		ev := Event{Kind: KindTopic, Channel: channel, Sender: info.BroadcasterLogin, Text: info.Title, Source: SourceHelix}
		select {
		case p.Events <- ev:
		case <-ctx.Done():
			return
		}
	}
}
