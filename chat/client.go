package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	twitch "github.com/gempir/go-twitch-irc/v4"
)

// noticePrefix renders a notice as an action line; Twitch IRC accepts no
// NOTICE from clients.
const noticePrefix = "/me "

// ClientOptions configures the IRC connection.
type ClientOptions struct {
	Nick       string
	OAuthToken string
	// Address overrides the default Twitch IRC endpoint, e.g. "irc.example.net:6697".
	Address  string
	TLS      bool
	Channels []string
}

// Client wraps a go-twitch-irc client, forwarding callbacks as Events.
type Client struct {
	nick   string
	irc    *twitch.Client
	events chan<- Event
	// joined is fixed at construction.
	joined map[string]struct{}

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient builds a client that will join opts.Channels and publish events
// to events. Nothing is sent over the network until Connect.
func NewClient(opts ClientOptions, events chan<- Event) *Client {
	token := opts.OAuthToken
	if token != "" && !strings.HasPrefix(token, "oauth:") {
		token = "oauth:" + token
	}
	irc := twitch.NewClient(strings.ToLower(opts.Nick), token)
	if opts.Address != "" {
		irc.IrcAddress = opts.Address
	}
	irc.TLS = opts.TLS

	c := &Client{
		nick:   strings.ToLower(opts.Nick),
		irc:    irc,
		events: events,
		joined: make(map[string]struct{}),
		done:   make(chan struct{}),
	}

	irc.OnConnect(func() {
		slog.Info("chat connected", slog.String("nick", c.nick), slog.String("component", "chat"))
	})
	irc.OnPrivateMessage(func(m twitch.PrivateMessage) {
		c.emit(Event{Kind: KindMessage, Channel: m.Channel, Sender: m.User.Name, Destination: m.Channel, Text: m.Message, Raw: m.Raw})
	})
	irc.OnWhisperMessage(func(m twitch.WhisperMessage) {
		c.emit(Event{Kind: KindMessage, Sender: m.User.Name, Destination: c.nick, Text: m.Message, Raw: m.Raw})
	})
	irc.OnUnsetMessage(func(m twitch.RawMessage) {
		channel, nick, text, ok := ParseTopicLine(m.Raw)
		if !ok {
			return
		}
		c.emit(Event{Kind: KindTopic, Channel: channel, Sender: nick, Text: text, Source: SourceIRC, Raw: m.Raw})
	})

	channels := make([]string, 0, len(opts.Channels))
	for _, ch := range opts.Channels {
		ch = normalizeChannel(ch)
		if ch == "" {
			continue
		}
		c.joined[ch] = struct{}{}
		channels = append(channels, ch)
	}
	if len(channels) > 0 {
		irc.Join(channels...)
	}
	return c
}

func (c *Client) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// Connect blocks until ctx is cancelled or the connection fails for good.
// Cancellation is a clean exit and returns nil.
func (c *Client) Connect(ctx context.Context) error {
	stop := context.AfterFunc(ctx, c.Disconnect)
	defer stop()
	err := c.irc.Connect()
	if err == nil || errors.Is(err, twitch.ErrClientDisconnected) || ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("chat connect: %w", err)
}

// Disconnect closes the connection. Safe to call more than once.
func (c *Client) Disconnect() {
	c.closeOnce.Do(func() {
		close(c.done)
		if err := c.irc.Disconnect(); err != nil && !errors.Is(err, twitch.ErrConnectionIsNotOpen) {
			slog.Warn("chat disconnect", slog.Any("err", err), slog.String("component", "chat"))
		}
	})
}

// SendMessage says text in a joined channel, or whispers it to a user.
func (c *Client) SendMessage(destination, text string) error {
	select {
	case <-c.done:
		return errors.New("chat client disconnected")
	default:
	}
	dest := normalizeChannel(destination)
	if dest == "" {
		return errors.New("empty destination")
	}
	if _, ok := c.joined[dest]; ok {
		c.irc.Say(dest, text)
		return nil
	}
	c.irc.Whisper(dest, text)
	return nil
}

// SendNotice delivers text as an action line.
func (c *Client) SendNotice(destination, text string) error {
	return c.SendMessage(destination, noticePrefix+text)
}

func normalizeChannel(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "#"))
}

// ParseTopicLine extracts the channel, setter and text from a raw IRC TOPIC
// line such as ":nick!user@host TOPIC #chan :new topic". Message tags are
// skipped. A missing trailing parameter yields an empty topic.
func ParseTopicLine(raw string) (channel, nick, text string, ok bool) {
	line := strings.TrimRight(raw, "\r\n")
	if strings.HasPrefix(line, "@") {
		i := strings.IndexByte(line, ' ')
		if i < 0 {
			return "", "", "", false
		}
		line = strings.TrimLeft(line[i+1:], " ")
	}
	if strings.HasPrefix(line, ":") {
		i := strings.IndexByte(line, ' ')
		if i < 0 {
			return "", "", "", false
		}
		source := line[1:i]
		if j := strings.IndexByte(source, '!'); j >= 0 {
			source = source[:j]
		}
		nick = source
		line = strings.TrimLeft(line[i+1:], " ")
	}
	cmd, rest, _ := strings.Cut(line, " ")
	if !strings.EqualFold(cmd, "TOPIC") {
		return "", "", "", false
	}
	rest = strings.TrimLeft(rest, " ")
	target, trailing, _ := strings.Cut(rest, " ")
	if target == "" || strings.HasPrefix(target, ":") {
		return "", "", "", false
	}
	trailing = strings.TrimLeft(trailing, " ")
	return normalizeChannel(target), nick, strings.TrimPrefix(trailing, ":"), true
}
