package tags

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Casefold returns the matching form of a tag: trimmed and Unicode
// case-folded. Every stored or compared tag goes through this function.
func Casefold(tag string) string {
	return cases.Fold().String(strings.TrimSpace(tag))
}

// Set is an unordered collection of casefolded tags.
type Set map[string]struct{}

// NewSet builds a Set from raw tags. Blank tags are dropped.
func NewSet(raw ...string) Set {
	s := make(Set, len(raw))
	s.Add(raw...)
	return s
}

// Add casefolds and inserts the given tags, skipping blank ones.
func (s Set) Add(raw ...string) {
	for _, tag := range raw {
		folded := Casefold(tag)
		if folded == "" {
			continue
		}
		s[folded] = struct{}{}
	}
}

// Contains reports whether the casefolded form of tag is in the set.
func (s Set) Contains(tag string) bool {
	_, ok := s[Casefold(tag)]
	return ok
}

// ContainsAll reports whether s is a superset of other.
func (s Set) ContainsAll(other Set) bool {
	for tag := range other {
		if _, ok := s[tag]; !ok {
			return false
		}
	}
	return true
}

// Intersects reports whether s and other share at least one tag.
func (s Set) Intersects(other Set) bool {
	small, big := s, other
	if len(big) < len(small) {
		small, big = big, small
	}
	for tag := range small {
		if _, ok := big[tag]; ok {
			return true
		}
	}
	return false
}

// Union returns a new set holding the tags of s and other.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for tag := range s {
		out[tag] = struct{}{}
	}
	for tag := range other {
		out[tag] = struct{}{}
	}
	return out
}

// Diff returns the tags of s that are not in other.
func (s Set) Diff(other Set) Set {
	out := make(Set)
	for tag := range s {
		if _, ok := other[tag]; !ok {
			out[tag] = struct{}{}
		}
	}
	return out
}

// Equal reports whether both sets hold exactly the same tags.
func (s Set) Equal(other Set) bool {
	return len(s) == len(other) && s.ContainsAll(other)
}

// Sorted returns the tags in lexicographic order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for tag := range s {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
