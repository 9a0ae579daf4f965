// Package session tracks the single activity session derived from a channel
// topic and hands start/end calls to a persistence store without blocking the
// chat event loop.
//
// The tracker's Idle/Active state is optimistic: it changes as soon as a call
// is queued and is not rolled back if the store later fails, so it can drift
// from what is stored until the next successful call.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/onnwee/metasepia/telemetry"
	"github.com/onnwee/metasepia/topic"
)

// Store is the persistence side of session tracking. EndSession must be a
// no-op when nothing is open.
type Store interface {
	StartSession(ctx context.Context, presenters, activityType, activity, sourceText string) (int64, error)
	EndSession(ctx context.Context) error
}

// Session is the in-memory view of the open session.
type Session struct {
	Presenters   string
	ActivityType string
	Activity     string
	SourceText   string
	StartTime    time.Time
}

// State is Idle or Active.
type State int

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// Tracker owns the current session for one bot. All transitions happen under
// a single mutex so the queued end/start calls keep their order.
type Tracker struct {
	store  Store
	worker *Worker
	now    func() time.Time

	mu       sync.Mutex
	state    State
	current  Session
	shutdown bool
}

// NewTracker returns an idle tracker submitting calls for store to worker.
func NewTracker(store Store, worker *Worker) *Tracker {
	return &Tracker{store: store, worker: worker, now: time.Now}
}

// State returns the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Current returns the open session, if any.
func (t *Tracker) Current() (Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.state == Active
}

// HandleTopic applies a topic change. A topic naming both presenters and an
// activity closes any open session and opens a new one; anything else closes
// the open session.
func (t *Tracker) HandleTopic(ctx context.Context, text string) {
	res := topic.Parse(text)
	log := telemetry.LoggerWithCorr(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.shutdown {
		log.Debug("topic ignored after shutdown", slog.String("component", "session"))
		return
	}

	if !res.Complete() {
		if t.state == Idle {
			log.Debug("topic has no session; already idle", slog.String("topic", text), slog.String("component", "session"))
			return
		}
		log.Info("topic cleared; closing session", slog.String("presenters", t.current.Presenters), slog.String("component", "session"))
		t.endLocked()
		return
	}

	if t.state == Active {
		t.endLocked()
	}
	s := Session{
		Presenters:   *res.Presenters,
		ActivityType: *res.ActivityType,
		Activity:     *res.Activity,
		SourceText:   text,
		StartTime:    t.now(),
	}
	log.Info("opening session",
		slog.String("presenters", s.Presenters),
		slog.String("type", s.ActivityType),
		slog.String("activity", s.Activity),
		slog.String("component", "session"))
	t.startLocked(s)
}

// Shutdown closes the open session and waits for queued calls to finish or
// ctx to end. Later calls return immediately.
func (t *Tracker) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	if t.shutdown {
		t.mu.Unlock()
		return nil
	}
	t.shutdown = true
	if t.state == Active {
		slog.Info("shutdown: closing open session", slog.String("presenters", t.current.Presenters), slog.String("component", "session"))
		t.endLocked()
	}
	t.mu.Unlock()
	return t.worker.Flush(ctx)
}

func (t *Tracker) endLocked() {
	closed := t.current
	t.state = Idle
	t.current = Session{}
	telemetry.SetSessionOpen(false)
	t.worker.Submit(Job{
		Op:  "end_session",
		Run: t.store.EndSession,
		Done: func(err error) {
			if err != nil {
				slog.Error("end session failed", slog.String("presenters", closed.Presenters), slog.Any("err", err), slog.String("component", "session"))
				return
			}
			telemetry.RecordSessionClosed()
			slog.Debug("session closed", slog.String("presenters", closed.Presenters), slog.String("component", "session"))
		},
	})
}

func (t *Tracker) startLocked(s Session) {
	t.state = Active
	t.current = s
	telemetry.SetSessionOpen(true)
	t.worker.Submit(Job{
		Op: "start_session",
		Run: func(ctx context.Context) error {
			id, err := t.store.StartSession(ctx, s.Presenters, s.ActivityType, s.Activity, s.SourceText)
			if err == nil {
				slog.Debug("session stored", slog.Int64("id", id), slog.String("component", "session"))
			}
			return err
		},
		Done: func(err error) {
			if err != nil {
				slog.Error("start session failed", slog.String("presenters", s.Presenters), slog.String("activity", s.Activity), slog.Any("err", err), slog.String("component", "session"))
				return
			}
			telemetry.RecordSessionOpened()
		},
	})
}
