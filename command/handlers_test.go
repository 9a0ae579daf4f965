package command

import (
	"context"
	"testing"
	"time"

	"github.com/onnwee/metasepia/query"
)

func TestHandleLastOpenSession(t *testing.T) {
	reader := &fakeReader{rows: []query.Row{{
		Presenters: "skwid", ActivityType: "art", Activity: "drawing",
		StartTime: testNow.Add(-90 * time.Minute), DurationSeconds: 5400,
	}}}
	d, _ := newTestDispatcher(Config{}, reader)
	got := d.handleLast(context.Background(), Request{Raw: "!p"})
	want := "skwid is on drawing (art) right now, live for 1 hour(s) and 30 minute(s)"
	if got != want {
		t.Errorf("handleLast = %q, want %q", got, want)
	}
}

func TestHandleFirst(t *testing.T) {
	start := testNow.Add(-400 * 24 * time.Hour)
	end := start.Add(45 * time.Minute)
	reader := &fakeReader{rows: []query.Row{{
		Presenters: "arch", ActivityType: "game", Activity: "celeste",
		StartTime: start, EndTime: &end, DurationSeconds: 2700,
	}}}
	d, _ := newTestDispatcher(Config{}, reader)
	got := d.handleFirst(context.Background(), Request{Raw: "!first g:celeste"})
	want := "árch first did celeste (game) 400 day(s) ago for 45 minute(s)"
	if got != want {
		t.Errorf("handleFirst = %q, want %q", got, want)
	}
}

func TestHandleTotalNoMatches(t *testing.T) {
	d, _ := newTestDispatcher(Config{}, &fakeReader{})
	if got := d.handleTotal(context.Background(), Request{Raw: "!total s:nobody"}); got != replyNoResults {
		t.Errorf("handleTotal = %q, want %q", got, replyNoResults)
	}
}

func TestHandleLastShortDuration(t *testing.T) {
	end := testNow.Add(-30 * time.Second)
	reader := &fakeReader{rows: []query.Row{{
		Presenters: "skwid", ActivityType: "game", Activity: "tetris",
		StartTime: end.Add(-20 * time.Second), EndTime: &end, DurationSeconds: 20,
	}}}
	d, _ := newTestDispatcher(Config{}, reader)
	got := d.handleLast(context.Background(), Request{Raw: "!last"})
	want := "skwid did tetris (game) just now for less than a minute"
	if got != want {
		t.Errorf("handleLast = %q, want %q", got, want)
	}
}
