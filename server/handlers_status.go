package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/onnwee/metasepia/format"
	"github.com/onnwee/metasepia/query"
	"github.com/onnwee/metasepia/telemetry"
)

const maxSessionsLimit = 100

type sessionJSON struct {
	ID              int64      `json:"id"`
	Presenters      string     `json:"presenters"`
	ActivityType    string     `json:"activity_type"`
	Activity        string     `json:"activity"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationSeconds int64      `json:"duration_seconds"`
	Duration        string     `json:"duration"`
}

func toJSON(r query.Row) sessionJSON {
	return sessionJSON{
		ID:              r.ID,
		Presenters:      r.Presenters,
		ActivityType:    r.ActivityType,
		Activity:        r.Activity,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		DurationSeconds: r.DurationSeconds,
		Duration:        format.Duration(r.DurationSeconds),
	}
}

type statusJSON struct {
	State   string       `json:"state"`
	Session *sessionJSON `json:"session,omitempty"`
	Ended   string       `json:"ended,omitempty"`
}

// HandleStatus reports the open session, or the most recent closed one when
// nobody is live.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := telemetry.LoggerWithCorr(ctx)

	cur, err := h.reader.CurrentSession(ctx)
	if err != nil {
		log.Error("status: current session", slog.Any("err", err), slog.String("component", "http"))
		writeError(w, http.StatusInternalServerError, "session lookup failed")
		return
	}
	if cur != nil {
		s := toJSON(*cur)
		writeJSON(w, http.StatusOK, statusJSON{State: "active", Session: &s})
		return
	}

	rows, err := h.reader.FindSessions(ctx, query.Filter{}, query.Page{Limit: 1})
	if err != nil {
		log.Error("status: last session", slog.Any("err", err), slog.String("component", "http"))
		writeError(w, http.StatusInternalServerError, "session lookup failed")
		return
	}
	out := statusJSON{State: "idle"}
	if len(rows) > 0 {
		s := toJSON(rows[0])
		out.Session = &s
		if s.EndTime != nil {
			out.Ended = format.Ago(*s.EndTime, h.now())
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleSessions lists recent sessions, newest first. Query parameters
// mirror the chat filter markers: activity, type, presenter, exclude
// (comma separated), plus limit and offset.
func (h *Handlers) HandleSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	opts := query.Options{
		Activity:  optionalParam(q.Get("activity")),
		Type:      optionalParam(q.Get("type")),
		Presenter: optionalParam(q.Get("presenter")),
	}
	if ex := q.Get("exclude"); ex != "" {
		opts.Exclude = splitParam(ex)
	}
	limit := parseIntQuery(r, "limit", 10)
	if limit < 1 {
		limit = 1
	}
	if limit > maxSessionsLimit {
		limit = maxSessionsLimit
	}
	offset := parseIntQuery(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	rows, err := h.reader.FindSessions(ctx, h.builder.Build(opts), query.Page{Limit: limit, Offset: offset})
	if err != nil {
		telemetry.LoggerWithCorr(ctx).Error("sessions: find", slog.Any("err", err), slog.String("component", "http"))
		writeError(w, http.StatusInternalServerError, "session lookup failed")
		return
	}
	out := make([]sessionJSON, 0, len(rows))
	for _, row := range rows {
		out = append(out, toJSON(row))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out, "limit": limit, "offset": offset})
}
