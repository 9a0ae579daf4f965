// Package alias resolves presenter nicknames to configured alias groups and
// obfuscates known nicknames in outbound text so replies do not highlight the
// people they mention.
package alias

import (
	"strings"
	"unicode/utf8"
)

// Group is a set of interchangeable names for one person.
type Group []string

// Contains reports whether name is a member of g, ignoring case.
func (g Group) Contains(name string) bool {
	for _, m := range g {
		if strings.EqualFold(m, name) {
			return true
		}
	}
	return false
}

// Resolver looks names up across a fixed, ordered list of groups.
// Groups are expected to be disjoint; when they are not, the first
// configured group wins.
type Resolver struct {
	groups []Group
	known  map[string]struct{}
}

// NewResolver builds a resolver over groups. Empty members are ignored.
func NewResolver(groups []Group) *Resolver {
	r := &Resolver{known: make(map[string]struct{})}
	for _, g := range groups {
		var clean Group
		for _, m := range g {
			m = strings.TrimSpace(m)
			if m == "" {
				continue
			}
			clean = append(clean, m)
			r.known[strings.ToLower(m)] = struct{}{}
		}
		if len(clean) > 0 {
			r.groups = append(r.groups, clean)
		}
	}
	return r
}

// Groups returns the configured groups.
func (r *Resolver) Groups() []Group {
	if r == nil {
		return nil
	}
	return r.groups
}

// Resolve returns the group containing name, if any.
func (r *Resolver) Resolve(name string) (Group, bool) {
	if r == nil {
		return nil, false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false
	}
	for _, g := range r.groups {
		if g.Contains(name) {
			return g, true
		}
	}
	return nil, false
}

var accents = map[rune]rune{
	'a': 'á', 'e': 'é', 'i': 'í', 'o': 'ó', 'u': 'ú', 'c': 'ç', 'n': 'ñ', 'y': 'ý',
	'A': 'Á', 'E': 'É', 'I': 'Í', 'O': 'Ó', 'U': 'Ú', 'C': 'Ç', 'N': 'Ñ', 'Y': 'Ý',
}

// NickPunctuation lists the characters besides ASCII letters and digits that
// may appear inside an IRC nickname, and so inside an alias word.
const NickPunctuation = "-_[]\\^{}|`"

// IsNickRune reports whether c may appear inside an IRC nickname.
func IsNickRune(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.ContainsRune(NickPunctuation, c)
}

// Mangle rewrites every whole-word occurrence of a known alias in text,
// replacing the first letter that has an accented look-alike. Words without
// such a letter are left untouched.
func (r *Resolver) Mangle(text string) string {
	if r == nil || len(r.known) == 0 || text == "" {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + 8)
	for i := 0; i < len(text); {
		c, size := utf8.DecodeRuneInString(text[i:])
		if !IsNickRune(c) {
			b.WriteString(text[i : i+size])
			i += size
			continue
		}
		j := i
		for j < len(text) {
			c2, s2 := utf8.DecodeRuneInString(text[j:])
			if !IsNickRune(c2) {
				break
			}
			j += s2
		}
		word := text[i:j]
		if _, ok := r.known[strings.ToLower(word)]; ok {
			word = mangleWord(word)
		}
		b.WriteString(word)
		i = j
	}
	return b.String()
}

func mangleWord(word string) string {
	for i, c := range word {
		if repl, ok := accents[c]; ok {
			return word[:i] + string(repl) + word[i+utf8.RuneLen(c):]
		}
	}
	return word
}
