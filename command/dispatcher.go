// Package command resolves prefixed chat messages to handlers and delivers
// their replies, applying the leet, yell and notice modifiers and per
// destination silencing.
package command

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/onnwee/metasepia/alias"
	"github.com/onnwee/metasepia/format"
	"github.com/onnwee/metasepia/query"
	"github.com/onnwee/metasepia/telemetry"
)

// Sender delivers replies over the chat transport.
type Sender interface {
	SendMessage(destination, text string) error
	SendNotice(destination, text string) error
}

// SessionReader is the read side of the session store.
type SessionReader interface {
	CurrentSession(ctx context.Context) (*query.Row, error)
	FindSessions(ctx context.Context, f query.Filter, page query.Page) ([]query.Row, error)
	Aggregate(ctx context.Context, f query.Filter) (query.Totals, error)
}

// Modifiers are the cosmetic flags attached to one invocation.
type Modifiers struct {
	Leet   bool
	Yell   bool
	Notice bool
}

// Request is one matched command invocation.
type Request struct {
	Sender      string
	Destination string
	Raw         string
	Name        string
	Mods        Modifiers
}

// HandlerFunc answers a request. An empty reply sends nothing.
type HandlerFunc func(ctx context.Context, req Request) string

type wildcard struct {
	root    string
	handler HandlerFunc
}

// Config holds the dispatcher's immutable settings.
type Config struct {
	// Prefix introduces a command, e.g. "!".
	Prefix string
	// Nick is the bot's own identity; messages addressed to it are answered
	// privately.
	Nick string
	// Silent lists destinations that never receive normal replies.
	Silent []string
	// Timeout bounds the handler's session lookups; zero means no limit.
	Timeout time.Duration
}

// Dispatcher routes commands. Its tables are read-only after construction.
type Dispatcher struct {
	cfg     Config
	sender  Sender
	reader  SessionReader
	aliases *alias.Resolver
	builder query.Builder
	now     func() time.Time

	silent    map[string]struct{}
	commands  map[string]HandlerFunc
	wildcards []wildcard
}

// NewDispatcher wires the command table.
func NewDispatcher(cfg Config, sender Sender, reader SessionReader, aliases *alias.Resolver) *Dispatcher {
	d := &Dispatcher{
		cfg:     cfg,
		sender:  sender,
		reader:  reader,
		aliases: aliases,
		builder: query.Builder{Aliases: aliases},
		now:     time.Now,
		silent:  make(map[string]struct{}, len(cfg.Silent)),
	}
	for _, s := range cfg.Silent {
		if s = destinationKey(s); s != "" {
			d.silent[s] = struct{}{}
		}
	}
	d.commands = map[string]HandlerFunc{
		"now":      d.handleNow,
		"np":       d.handleNow,
		"current":  d.handleNow,
		"playing":  d.handleNow,
		"p":        d.handleLast,
		"played":   d.handleLast,
		"last":     d.handleLast,
		"first":    d.handleFirst,
		"total":    d.handleTotal,
		"help":     d.handleHelp,
		"commands": d.handleHelp,
	}
	// Tried in order when no exact name matches, e.g. "last-3" or "playedby".
	d.wildcards = []wildcard{
		{root: "first", handler: d.handleFirst},
		{root: "total", handler: d.handleTotal},
		{root: "last", handler: d.handleLast},
		{root: "played", handler: d.handleLast},
		{root: "p-", handler: d.handleLast},
	}
	return d
}

// destinationKey folds "#Quiet" and "quiet" together; the transport reports
// channels without the leading '#'.
func destinationKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "#"))
}

var modifierPattern = regexp.MustCompile(`(?i)leet|notice`)

// parseModifiers inspects the command token before canonicalization.
func parseModifiers(token string) Modifiers {
	lower := strings.ToLower(token)
	m := Modifiers{
		Leet:   strings.Contains(lower, "leet"),
		Notice: strings.Contains(lower, "notice"),
	}
	var letters, lowers int
	for _, r := range token {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsLower(r) {
				lowers++
			}
		}
	}
	m.Yell = letters > 0 && lowers == 0
	return m
}

// canonicalName strips modifier substrings and folds case.
func canonicalName(token string) string {
	return strings.ToLower(modifierPattern.ReplaceAllString(token, ""))
}

func (d *Dispatcher) lookup(name string) (HandlerFunc, bool) {
	if h, ok := d.commands[name]; ok {
		return h, true
	}
	for _, w := range d.wildcards {
		if strings.Contains(name, w.root) {
			return w.handler, true
		}
	}
	return nil, false
}

// Dispatch handles one incoming message. Messages that do not start with the
// prefix are ignored; prefixed messages naming no command are only logged.
func (d *Dispatcher) Dispatch(ctx context.Context, sender, destination, raw string) {
	fields := strings.Fields(raw)
	if len(fields) == 0 || d.cfg.Prefix == "" || !strings.HasPrefix(fields[0], d.cfg.Prefix) {
		return
	}
	token := strings.TrimPrefix(fields[0], d.cfg.Prefix)
	if token == "" {
		return
	}

	ctx = telemetry.WithCorrelation(ctx, uuid.NewString())
	log := telemetry.LoggerWithCorr(ctx)

	mods := parseModifiers(token)
	name := canonicalName(token)
	h, ok := d.lookup(name)
	if !ok {
		telemetry.RecordUnmatchedCommand()
		log.Debug("unrecognized command", slog.String("command", name), slog.String("sender", sender), slog.String("component", "command"))
		return
	}
	if d.cfg.Nick != "" && strings.EqualFold(destination, d.cfg.Nick) {
		destination = sender
	}

	ctx, span := telemetry.StartCommandSpan(ctx, name, destination)
	defer span.End()

	telemetry.RecordCommand(name)
	log.Info("command", slog.String("command", name), slog.String("sender", sender), slog.String("destination", destination), slog.String("component", "command"))

	hctx := ctx
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}
	reply := h(hctx, Request{Sender: sender, Destination: destination, Raw: raw, Name: name, Mods: mods})
	if reply == "" {
		return
	}
	d.send(ctx, destination, reply, mods)
}

// send delivers text. Notices bypass silencing and text transforms.
func (d *Dispatcher) send(ctx context.Context, destination, text string, mods Modifiers) {
	log := telemetry.LoggerWithCorr(ctx)
	if mods.Notice {
		if err := d.sender.SendNotice(destination, text); err != nil {
			log.Warn("send notice failed", slog.String("destination", destination), slog.Any("err", err), slog.String("component", "command"))
		}
		return
	}
	if _, ok := d.silent[destinationKey(destination)]; ok {
		telemetry.RecordSuppressedReply()
		log.Debug("reply suppressed for silent destination", slog.String("destination", destination), slog.String("component", "command"))
		return
	}
	if mods.Leet {
		text = format.Leet(text)
	}
	if mods.Yell {
		text = format.Yell(text)
	}
	if err := d.sender.SendMessage(destination, text); err != nil {
		log.Warn("send message failed", slog.String("destination", destination), slog.Any("err", err), slog.String("component", "command"))
	}
}
