// Package query turns the argument text of a lookup command into options and
// then into a Filter the session store can execute.
package query

import (
	"regexp"
	"strconv"
	"strings"
)

// Options are the filters requested by one command invocation. Nil pointers
// and a nil Exclude mean the marker was absent.
type Options struct {
	Activity  *string
	Type      *string
	Presenter *string
	Exclude   []string
	// Back selects the Nth most recent match instead of the most recent.
	Back int
}

var (
	markerPattern = regexp.MustCompile(`(?i)(?:^|\s)([gtse]):`)
	backPattern   = regexp.MustCompile(`^[^\s:]*?[A-Za-z]-(\d+)$`)
)

// ParseOptions extracts g: (activity), t: (type), s: (presenter) and e:
// (comma separated exclusions) markers, plus a "-N" back offset on the first
// token (as in "!last-3"). It never fails; unknown text is ignored.
func ParseOptions(text string) Options {
	var opts Options

	if fields := strings.Fields(text); len(fields) > 0 {
		if m := backPattern.FindStringSubmatch(fields[0]); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n >= 0 {
				opts.Back = n
			}
		}
	}

	locs := markerPattern.FindAllStringSubmatchIndex(text, -1)
	for i, loc := range locs {
		marker := strings.ToLower(text[loc[2]:loc[3]])
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		value := strings.TrimSpace(text[loc[1]:end])
		switch marker {
		case "g":
			opts.Activity = optional(value)
		case "t":
			opts.Type = optional(value)
		case "s":
			opts.Presenter = optional(value)
		case "e":
			opts.Exclude = splitTerms(value)
		}
	}
	return opts
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func splitTerms(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
