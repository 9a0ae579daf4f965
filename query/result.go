package query

import "time"

// Row is one stored session as returned by the store.
type Row struct {
	ID           int64
	Presenters   string
	ActivityType string
	Activity     string
	StartTime    time.Time
	// EndTime is nil while the session is open.
	EndTime *time.Time
	// DurationSeconds runs to now for an open session.
	DurationSeconds int64
}

// Open reports whether the session has not ended.
func (r Row) Open() bool { return r.EndTime == nil }

// Page selects ordering and a window of matching rows. The default is most
// recent first.
type Page struct {
	Ascending bool
	Limit     int
	Offset    int
}

// Totals aggregates the sessions matching a Filter.
type Totals struct {
	Count   int64
	Seconds int64
}
