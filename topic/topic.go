// Package topic extracts the presenter and activity fields from a channel
// topic of the form "Streamers: arch | Game: hollow knight | ...".
package topic

import (
	"regexp"
	"strings"
	"unicode"
)

// Delimiter separates topic fields.
const Delimiter = "|"

// DefaultActivityType is used when the activity field has an empty label.
const DefaultActivityType = "game"

var (
	labelPattern    = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_()\-]*$`)
	streamerPattern = regexp.MustCompile(`(?i)^streamer(s|\(s\))?$`)
)

// Result holds the fields found in a topic. A nil field was not found or was
// empty.
type Result struct {
	Presenters   *string
	ActivityType *string
	Activity     *string
}

// Complete reports whether both presenters and activity were found.
func (r Result) Complete() bool {
	return r.Presenters != nil && r.Activity != nil
}

type field struct {
	label    string
	value    string
	labelled bool
}

func splitField(seg string) field {
	idx := strings.Index(seg, ":")
	if idx < 0 {
		return field{value: strings.TrimSpace(seg)}
	}
	// The label is the word right before the colon: "Now Playing:" is "Playing".
	label := strings.TrimSpace(seg[:idx])
	if ws := strings.LastIndexFunc(label, unicode.IsSpace); ws >= 0 {
		label = label[ws+1:]
	}
	if label != "" && !labelPattern.MatchString(label) {
		return field{value: strings.TrimSpace(seg)}
	}
	return field{label: label, value: strings.TrimSpace(seg[idx+1:]), labelled: true}
}

func normalize(s string) *string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	return &s
}

// Parse never fails: text without recognizable fields yields an empty Result,
// which callers treat as "nobody is presenting".
func Parse(text string) Result {
	segs := strings.Split(text, Delimiter)
	fields := make([]field, len(segs))
	for i, s := range segs {
		fields[i] = splitField(s)
	}

	streamer := -1
	// The last segment has no trailing delimiter, so it cannot hold the
	// streamer field.
	for i := 0; i < len(fields)-1; i++ {
		if fields[i].labelled && streamerPattern.MatchString(fields[i].label) {
			streamer = i
			break
		}
	}
	if streamer < 0 {
		return Result{}
	}

	res := Result{Presenters: normalize(fields[streamer].value)}

	act := -1
	if next := streamer + 1; next < len(fields) && isActivityField(fields[next]) {
		act = next
	} else {
		for i, f := range fields {
			if i != streamer && isActivityField(f) {
				act = i
				break
			}
		}
	}
	if act < 0 {
		return res
	}
	if res.Activity = normalize(fields[act].value); res.Activity == nil {
		return res
	}
	typ := strings.ToLower(fields[act].label)
	if typ == "" {
		typ = DefaultActivityType
	}
	res.ActivityType = &typ
	return res
}

func isActivityField(f field) bool {
	return f.labelled && !streamerPattern.MatchString(f.label)
}
