package chat

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/onnwee/metasepia/testutil"
)

func TestParseTopicLine(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		channel string
		nick    string
		text    string
		ok      bool
	}{
		{
			name:    "plain",
			raw:     ":skwid!skwid@host.example TOPIC #Skwid :Streamer: skwid | Game: Celeste |",
			channel: "skwid", nick: "skwid", text: "Streamer: skwid | Game: Celeste |", ok: true,
		},
		{
			name:    "with tags and crlf",
			raw:     "@time=2024-01-01T00:00:00Z :op!o@h TOPIC #room :hello world\r\n",
			channel: "room", nick: "op", text: "hello world", ok: true,
		},
		{
			name:    "server source without user part",
			raw:     ":irc.example.net TOPIC #room :x",
			channel: "room", nick: "irc.example.net", text: "x", ok: true,
		},
		{
			name:    "cleared topic",
			raw:     ":op!o@h TOPIC #room :",
			channel: "room", nick: "op", text: "", ok: true,
		},
		{
			name:    "no trailing parameter",
			raw:     ":op!o@h TOPIC #room",
			channel: "room", nick: "op", text: "", ok: true,
		},
		{name: "topic reply numeric is ignored", raw: ":irc.example.net 332 bot #room :Streamer: a |"},
		{name: "privmsg", raw: ":bob!b@h PRIVMSG #room :TOPIC #room :x"},
		{name: "missing channel", raw: ":op!o@h TOPIC :x"},
		{name: "empty", raw: ""},
		{name: "tags only", raw: "@a=b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			channel, nick, text, ok := ParseTopicLine(tt.raw)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if channel != tt.channel || nick != tt.nick || text != tt.text {
				t.Errorf("ParseTopicLine() = (%q, %q, %q), want (%q, %q, %q)", channel, nick, text, tt.channel, tt.nick, tt.text)
			}
		})
	}
}

func TestNormalizeChannel(t *testing.T) {
	for in, want := range map[string]string{"#Skwid": "skwid", " skwid ": "skwid", "": "", "#": ""} {
		if got := normalizeChannel(in); got != want {
			t.Errorf("normalizeChannel(%q) = %q, want %q", in, got, want)
		}
	}
}

func nextEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestClientAgainstIRCServer(t *testing.T) {
	if testing.Short() {
		t.Skip("network test")
	}
	srv := testutil.NewFakeIRCServer(t)
	events := make(chan Event, 8)
	c := NewClient(ClientOptions{
		Nick:       "Metasepia",
		OAuthToken: "secret",
		Address:    srv.Addr(),
		TLS:        false,
		Channels:   []string{"#Skwid"},
	}, events)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Connect(ctx) }()

	if got := srv.WaitFor("PASS ", 5*time.Second); got != "PASS oauth:secret" {
		t.Errorf("PASS line = %q", got)
	}
	srv.WaitFor("JOIN #skwid", 5*time.Second)

	srv.Send("@display-name=Bob;user-id=7 :bob!bob@bob.tmi.twitch.tv PRIVMSG #skwid :!now")
	ev := nextEvent(t, events)
	want := Event{Kind: KindMessage, Channel: "skwid", Sender: "bob", Destination: "skwid", Text: "!now"}
	if diff := cmp.Diff(want, ev, cmpopts.IgnoreFields(Event{}, "Raw")); diff != "" {
		t.Errorf("message event mismatch (-want +got):\n%s", diff)
	}

	srv.Send(":skwid!skwid@host TOPIC #skwid :Streamer: skwid | Game: Celeste |")
	ev = nextEvent(t, events)
	want = Event{Kind: KindTopic, Channel: "skwid", Sender: "skwid", Text: "Streamer: skwid | Game: Celeste |", Source: SourceIRC}
	if diff := cmp.Diff(want, ev, cmpopts.IgnoreFields(Event{}, "Raw")); diff != "" {
		t.Errorf("topic event mismatch (-want +got):\n%s", diff)
	}

	if err := c.SendMessage("#skwid", "hello"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if got := srv.WaitFor("PRIVMSG", 5*time.Second); got != "PRIVMSG #skwid :hello" {
		t.Errorf("say line = %q", got)
	}
	if err := c.SendNotice("skwid", "waves"); err != nil {
		t.Fatalf("SendNotice: %v", err)
	}
	if got := srv.WaitFor("PRIVMSG", 5*time.Second); got != "PRIVMSG #skwid :/me waves" {
		t.Errorf("notice line = %q", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Connect() after cancel = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Connect did not return after cancel")
	}
	if err := c.SendMessage("skwid", "late"); err == nil {
		t.Error("SendMessage after disconnect succeeded, want error")
	}
}
