package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/onnwee/metasepia/alias"
	"github.com/onnwee/metasepia/command"
	"github.com/onnwee/metasepia/query"
)

type fakeReader struct {
	current *query.Row
	totals  query.Totals
}

func (f fakeReader) CurrentSession(ctx context.Context) (*query.Row, error) { return f.current, nil }

func (f fakeReader) FindSessions(ctx context.Context, flt query.Filter, page query.Page) ([]query.Row, error) {
	return nil, nil
}

func (f fakeReader) Aggregate(ctx context.Context, flt query.Filter) (query.Totals, error) {
	return f.totals, nil
}

func TestRunAsk(t *testing.T) {
	reader := fakeReader{
		current: &query.Row{Presenters: "arch", ActivityType: "game", Activity: "celeste", DurationSeconds: 600},
		totals:  query.Totals{Count: 2, Seconds: 7200},
	}
	aliases := alias.NewResolver([]alias.Group{{"arch", "a"}})
	cfg := command.Config{Prefix: "!", Nick: "metasepia"}

	tests := []struct {
		line string
		want string
	}{
		{"!now", "árch is on celeste (game), live for 10 minute(s)\n"},
		{"now", "árch is on celeste (game), live for 10 minute(s)\n"},
		{"!total g:celeste", "2 session(s) totalling 2 hour(s)\n"},
		{"!nownotice", "[notice] árch is on celeste (game), live for 10 minute(s)\n"},
		{"!bogus", ""},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		if err := runAsk(context.Background(), &buf, reader, cfg, aliases, tt.line); err != nil {
			t.Fatalf("runAsk(%q): %v", tt.line, err)
		}
		if got := buf.String(); got != tt.want {
			t.Errorf("runAsk(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestPrintCurrent(t *testing.T) {
	var buf bytes.Buffer
	printCurrent(&buf, nil)
	if got := buf.String(); got != "no open session\n" {
		t.Errorf("printCurrent(nil) = %q", got)
	}

	buf.Reset()
	start := time.Date(2024, 10, 15, 12, 0, 0, 0, time.UTC)
	printCurrent(&buf, &query.Row{ID: 9, Presenters: "skwid", ActivityType: "art", Activity: "sketching", StartTime: start, DurationSeconds: 3900})
	want := "#9 skwid on sketching (art) since 2024-10-15T12:00:00Z, 1 hour(s) and 5 minute(s)\n"
	if got := buf.String(); got != want {
		t.Errorf("printCurrent() = %q, want %q", got, want)
	}
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{{"migrate", "up"}, {"migrate", "down"}, {"migrate", "version"}, {"current"}, {"close"}, {"ask"}} {
		cmd, _, err := rootCmd.Find(path)
		if err != nil || cmd == rootCmd {
			t.Errorf("command %v not registered: %v", path, err)
		}
	}
}
