package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/onnwee/metasepia/query"
)

const sessionColumns = `id, presenters, activity_type, activity, start_time, end_time,
	EXTRACT(EPOCH FROM (COALESCE(end_time, NOW()) - start_time))::BIGINT`

// Store persists sessions through the start_session/end_session database
// functions and runs filtered reads.
type Store struct {
	DB *sql.DB
}

// NewStore wraps db.
func NewStore(db *sql.DB) *Store { return &Store{DB: db} }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

// StartSession closes any open session and opens a new one, returning its id.
func (s *Store) StartSession(ctx context.Context, presenters, activityType, activity, sourceText string) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `SELECT start_session($1, $2, $3, $4)`, presenters, activityType, activity, sourceText).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("start session: %w", err)
	}
	return id, nil
}

// EndSession closes the open session; with none open it does nothing.
func (s *Store) EndSession(ctx context.Context) error {
	var closed int
	if err := s.DB.QueryRowContext(ctx, `SELECT end_session()`).Scan(&closed); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// CurrentSession returns the open session or nil.
func (s *Store) CurrentSession(ctx context.Context) (*query.Row, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE end_time IS NULL ORDER BY start_time DESC LIMIT 1`)
	r, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("current session: %w", err)
	}
	return &r, nil
}

// FindSessions returns sessions matching f, most recent first unless
// page.Ascending is set.
func (s *Store) FindSessions(ctx context.Context, f query.Filter, page query.Page) ([]query.Row, error) {
	q, args, err := findSQL(f, page)
	if err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("find sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []query.Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Aggregate counts matching sessions and sums their durations.
func (s *Store) Aggregate(ctx context.Context, f query.Filter) (query.Totals, error) {
	where, args, err := compileFilter(f, nil)
	if err != nil {
		return query.Totals{}, err
	}
	var t query.Totals
	err = s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(EXTRACT(EPOCH FROM (COALESCE(end_time, NOW()) - start_time)))::BIGINT, 0) FROM sessions`+where,
		args...).Scan(&t.Count, &t.Seconds)
	if err != nil {
		return query.Totals{}, fmt.Errorf("aggregate sessions: %w", err)
	}
	return t, nil
}

func findSQL(f query.Filter, page query.Page) (string, []any, error) {
	where, args, err := compileFilter(f, nil)
	if err != nil {
		return "", nil, err
	}
	order := "DESC"
	if page.Ascending {
		order = "ASC"
	}
	limit := page.Limit
	if limit <= 0 {
		limit = 1
	}
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)
	q := `SELECT ` + sessionColumns + ` FROM sessions` + where +
		fmt.Sprintf(` ORDER BY start_time %s, id %s LIMIT $%d OFFSET $%d`, order, order, len(args)-1, len(args))
	return q, args, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(sc scanner) (query.Row, error) {
	var r query.Row
	var end sql.NullTime
	if err := sc.Scan(&r.ID, &r.Presenters, &r.ActivityType, &r.Activity, &r.StartTime, &end, &r.DurationSeconds); err != nil {
		return query.Row{}, err
	}
	if end.Valid {
		t := end.Time.UTC()
		r.EndTime = &t
	}
	r.StartTime = r.StartTime.UTC()
	return r, nil
}
