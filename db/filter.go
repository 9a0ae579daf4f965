package db

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/onnwee/metasepia/alias"
	"github.com/onnwee/metasepia/query"
)

var filterColumns = map[query.Field]string{
	query.FieldPresenters:   "presenters",
	query.FieldActivityType: "activity_type",
	query.FieldActivity:     "activity",
}

// wordBoundary matches one character that cannot appear in a nickname, so "a"
// does not match inside "a-" or "a|afk". It is valid in both Postgres and Go
// regular expressions.
var wordBoundary = nickBoundary(alias.NickPunctuation)

// nickBoundary renders a negated bracket expression of letters, digits and
// punct. ']' must come first and '-' last to be literal; '\' is doubled.
func nickBoundary(punct string) string {
	var b strings.Builder
	b.WriteString("[^")
	if strings.ContainsRune(punct, ']') {
		b.WriteByte(']')
	}
	b.WriteString("a-zA-Z0-9")
	for _, c := range punct {
		switch c {
		case ']', '-':
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(c)
		}
	}
	if strings.ContainsRune(punct, '-') {
		b.WriteByte('-')
	}
	b.WriteByte(']')
	return b.String()
}

// wordPattern returns a Postgres regular expression matching value as a whole
// word.
func wordPattern(value string) string {
	return `(^|` + wordBoundary + `)` + regexp.QuoteMeta(value) + `(` + wordBoundary + `|$)`
}

// compileFilter renders f as a WHERE clause (empty when f matches everything),
// numbering placeholders after the len(args) already present.
func compileFilter(f query.Filter, args []any) (string, []any, error) {
	if f.Empty() {
		return "", args, nil
	}
	clauses := make([]string, 0, len(f.Clauses))
	for _, c := range f.Clauses {
		if len(c.AnyOf) == 0 {
			continue
		}
		preds := make([]string, 0, len(c.AnyOf))
		for _, p := range c.AnyOf {
			col, ok := filterColumns[p.Field]
			if !ok {
				return "", nil, fmt.Errorf("unknown filter field %q", p.Field)
			}
			var sqlPred string
			switch p.Match {
			case query.Word:
				args = append(args, wordPattern(p.Value))
				sqlPred = fmt.Sprintf("%s ~* $%d", col, len(args))
			default:
				args = append(args, p.Value)
				sqlPred = fmt.Sprintf("strpos(lower(%s), lower($%d)) > 0", col, len(args))
			}
			if p.Negate {
				sqlPred = "NOT (" + sqlPred + ")"
			}
			preds = append(preds, sqlPred)
		}
		if len(preds) == 1 {
			clauses = append(clauses, preds[0])
		} else {
			clauses = append(clauses, "("+strings.Join(preds, " OR ")+")")
		}
	}
	if len(clauses) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}
