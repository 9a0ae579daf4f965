package db

import (
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/onnwee/metasepia/alias"
	"github.com/onnwee/metasepia/query"
)

func TestCompileFilterEmpty(t *testing.T) {
	where, args, err := compileFilter(query.Filter{}, nil)
	if err != nil {
		t.Fatalf("compileFilter() error = %v", err)
	}
	if where != "" || len(args) != 0 {
		t.Errorf("compileFilter(empty) = %q, %v; want no clause", where, args)
	}
}

func TestCompileFilter(t *testing.T) {
	f := query.Filter{Clauses: []query.Clause{
		{AnyOf: []query.Predicate{{Field: query.FieldActivity, Match: query.Substring, Value: "mario"}}},
		{AnyOf: []query.Predicate{{Field: query.FieldActivity, Match: query.Substring, Value: "kart", Negate: true}}},
		{AnyOf: []query.Predicate{
			{Field: query.FieldPresenters, Match: query.Word, Value: "arch"},
			{Field: query.FieldPresenters, Match: query.Word, Value: "a-"},
		}},
	}}
	where, args, err := compileFilter(f, nil)
	if err != nil {
		t.Fatalf("compileFilter() error = %v", err)
	}
	wantWhere := " WHERE strpos(lower(activity), lower($1)) > 0" +
		" AND NOT (strpos(lower(activity), lower($2)) > 0)" +
		" AND (presenters ~* $3 OR presenters ~* $4)"
	if where != wantWhere {
		t.Errorf("where =\n%q\nwant\n%q", where, wantWhere)
	}
	wantArgs := []any{"mario", "kart", `(^|[^[:alnum:]_-])arch([^[:alnum:]_-]|$)`, `(^|[^[:alnum:]_-])a-([^[:alnum:]_-]|$)`}
	if diff := cmp.Diff(wantArgs, args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileFilterUnknownField(t *testing.T) {
	f := query.Filter{Clauses: []query.Clause{{AnyOf: []query.Predicate{{Field: "source_text", Value: "x"}}}}}
	if _, _, err := compileFilter(f, nil); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestWordPatternEscapesValue(t *testing.T) {
	got := wordPattern("a.b")
	if got != `(^|[^]a-zA-Z0-9_[\\^{}|`+"`"+`-])a\.b([^]a-zA-Z0-9_[\\^{}|`+"`"+`-]|$)` {
		t.Errorf("wordPattern() = %q", got)
	}
	// The pattern is also valid for Go's RE2 syntax, which lets us check the
	// boundary semantics without a database.
	re := regexp.MustCompile("(?i)" + wordPattern("a"))
	for in, want := range map[string]bool{
		"a":          true,
		"arch & a":   true,
		"A, bob":     true,
		"arch":       false,
		"a-":         false,
		"a_ and bob": false,
		"a|afk":      false,
		"[a]":        false,
		"bob, a\\":   false,
	} {
		if got := re.MatchString(in); got != want {
			t.Errorf("word match %q = %v, want %v", in, got, want)
		}
	}
}

func TestWordBoundaryMatchesNickRunes(t *testing.T) {
	re := regexp.MustCompile("^" + wordBoundary + "$")
	for c := rune(0x20); c < 0x7f; c++ {
		if got, want := re.MatchString(string(c)), !alias.IsNickRune(c); got != want {
			t.Errorf("boundary match %q = %v, want %v", c, got, want)
		}
	}
}

func TestFindSQL(t *testing.T) {
	f := query.Filter{Clauses: []query.Clause{{AnyOf: []query.Predicate{{Field: query.FieldActivityType, Value: "game"}}}}}
	q, args, err := findSQL(f, query.Page{Ascending: true, Limit: 1, Offset: 2})
	if err != nil {
		t.Fatalf("findSQL() error = %v", err)
	}
	if !regexp.MustCompile(`WHERE strpos\(lower\(activity_type\), lower\(\$1\)\) > 0 ORDER BY start_time ASC, id ASC LIMIT \$2 OFFSET \$3$`).MatchString(q) {
		t.Errorf("unexpected query: %s", q)
	}
	if diff := cmp.Diff([]any{"game", 1, 2}, args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}

	q, args, err = findSQL(query.Filter{}, query.Page{Offset: -4})
	if err != nil {
		t.Fatalf("findSQL() error = %v", err)
	}
	if !regexp.MustCompile(`FROM sessions ORDER BY start_time DESC, id DESC LIMIT \$1 OFFSET \$2$`).MatchString(q) {
		t.Errorf("unexpected query: %s", q)
	}
	if diff := cmp.Diff([]any{1, 0}, args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}
