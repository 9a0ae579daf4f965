package query

import (
	"strings"

	"github.com/onnwee/metasepia/alias"
)

// Field names a session column a predicate applies to.
type Field string

const (
	FieldPresenters   Field = "presenters"
	FieldActivityType Field = "activity_type"
	FieldActivity     Field = "activity"
)

// Match is how a predicate compares its value.
type Match int

const (
	// Substring matches anywhere, ignoring case.
	Substring Match = iota
	// Word matches the value as a whole word, ignoring case.
	Word
)

func (m Match) String() string {
	if m == Word {
		return "word"
	}
	return "substring"
}

// Predicate is a single column comparison.
type Predicate struct {
	Field  Field
	Match  Match
	Value  string
	Negate bool
}

// Clause is satisfied when any of its predicates is.
type Clause struct {
	AnyOf []Predicate
}

// Filter is satisfied when every clause is. The zero Filter matches all
// sessions.
type Filter struct {
	Clauses []Clause
}

// Empty reports whether f matches everything.
func (f Filter) Empty() bool { return len(f.Clauses) == 0 }

func (f *Filter) and(p ...Predicate) {
	f.Clauses = append(f.Clauses, Clause{AnyOf: p})
}

// Builder builds Filters, expanding presenters through alias groups.
type Builder struct {
	Aliases *alias.Resolver
}

// Build combines opts into a Filter. A presenter that belongs to an alias
// group matches any member of the group as a whole word; otherwise the literal
// value is matched as a whole word.
func (b Builder) Build(opts Options) Filter {
	var f Filter
	if opts.Activity != nil {
		f.and(Predicate{Field: FieldActivity, Match: Substring, Value: *opts.Activity})
	}
	for _, ex := range opts.Exclude {
		f.and(Predicate{Field: FieldActivity, Match: Substring, Value: ex, Negate: true})
	}
	if opts.Type != nil {
		f.and(Predicate{Field: FieldActivityType, Match: Substring, Value: *opts.Type})
	}
	if opts.Presenter != nil {
		if g, ok := b.Aliases.Resolve(strings.ToLower(*opts.Presenter)); ok {
			preds := make([]Predicate, 0, len(g))
			for _, member := range g {
				preds = append(preds, Predicate{Field: FieldPresenters, Match: Word, Value: member})
			}
			f.and(preds...)
		} else {
			f.and(Predicate{Field: FieldPresenters, Match: Word, Value: *opts.Presenter})
		}
	}
	return f
}
