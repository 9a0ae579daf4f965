package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/onnwee/metasepia/format"
	"github.com/onnwee/metasepia/query"
	"github.com/onnwee/metasepia/telemetry"
)

const (
	replyNoResults = "No results."
	replyIdle      = "Nobody is streaming right now."
)

func (d *Dispatcher) fail(ctx context.Context, req Request, err error) string {
	telemetry.LoggerWithCorr(ctx).Error("session lookup failed", slog.String("command", req.Name), slog.Any("err", err), slog.String("component", "command"))
	return replyNoResults
}

func (d *Dispatcher) handleNow(ctx context.Context, req Request) string {
	row, err := d.reader.CurrentSession(ctx)
	if err != nil {
		return d.fail(ctx, req, err)
	}
	if row == nil {
		return replyIdle
	}
	return d.aliases.Mangle(fmt.Sprintf("%s is on %s (%s), live for %s",
		row.Presenters, row.Activity, row.ActivityType, format.Duration(row.DurationSeconds)))
}

func (d *Dispatcher) handleLast(ctx context.Context, req Request) string {
	opts := query.ParseOptions(req.Raw)
	rows, err := d.reader.FindSessions(ctx, d.builder.Build(opts), query.Page{Limit: 1, Offset: opts.Back})
	if err != nil {
		return d.fail(ctx, req, err)
	}
	if len(rows) == 0 {
		return replyNoResults
	}
	r := rows[0]
	if r.Open() {
		return d.aliases.Mangle(fmt.Sprintf("%s is on %s (%s) right now, live for %s",
			r.Presenters, r.Activity, r.ActivityType, format.Duration(r.DurationSeconds)))
	}
	return d.aliases.Mangle(fmt.Sprintf("%s did %s (%s) %s for %s",
		r.Presenters, r.Activity, r.ActivityType, format.Ago(*r.EndTime, d.now()), format.Duration(r.DurationSeconds)))
}

func (d *Dispatcher) handleFirst(ctx context.Context, req Request) string {
	opts := query.ParseOptions(req.Raw)
	rows, err := d.reader.FindSessions(ctx, d.builder.Build(opts), query.Page{Ascending: true, Limit: 1})
	if err != nil {
		return d.fail(ctx, req, err)
	}
	if len(rows) == 0 {
		return replyNoResults
	}
	r := rows[0]
	return d.aliases.Mangle(fmt.Sprintf("%s first did %s (%s) %s for %s",
		r.Presenters, r.Activity, r.ActivityType, format.Ago(r.StartTime, d.now()), format.Duration(r.DurationSeconds)))
}

func (d *Dispatcher) handleTotal(ctx context.Context, req Request) string {
	opts := query.ParseOptions(req.Raw)
	totals, err := d.reader.Aggregate(ctx, d.builder.Build(opts))
	if err != nil {
		return d.fail(ctx, req, err)
	}
	if totals.Count == 0 {
		return replyNoResults
	}
	return fmt.Sprintf("%d session(s) totalling %s", totals.Count, format.Duration(totals.Seconds))
}

func (d *Dispatcher) handleHelp(ctx context.Context, req Request) string {
	p := d.cfg.Prefix
	return fmt.Sprintf("Commands: %[1]snow, %[1]sp (or %[1]slast-N), %[1]sfirst, %[1]stotal. "+
		"Filters: g:<activity> t:<type> s:<presenter> e:<exclude,...>. "+
		"Add leet or notice to a command, or shout it.", p)
}
