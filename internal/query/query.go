package query

import (
	"regexp"
	"strings"

	"media-catalog/internal/tags"
)

const (
	opInclude = "+"
	opExclude = "-"
)

// operatorPattern matches a "+" or "-" operator padded by whitespace on
// both sides. Unpadded signs are part of the tag ("sci-fi", "c++").
var operatorPattern = regexp.MustCompile(`\s+[+-]\s+`)

// Query is a parsed boolean tag expression.
type Query struct {
	Include tags.Set
	Exclude tags.Set
}

// IsEmpty reports whether the query constrains nothing.
func (q Query) IsEmpty() bool {
	return len(q.Include) == 0 && len(q.Exclude) == 0
}

// String renders the query in canonical form, sorted, e.g. "cats + dogs - frogs".
func (q Query) String() string {
	var b strings.Builder
	for i, tag := range q.Include.Sorted() {
		if i > 0 {
			b.WriteString(" + ")
		}
		b.WriteString(tag)
	}
	for _, tag := range q.Exclude.Sorted() {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString("- ")
		b.WriteString(tag)
	}
	return b.String()
}

// Parse turns free text such as "cats + dogs - frogs" into include and
// exclude sets. The first tag is included unless an explicit operator
// precedes it. Parse never fails: blank or malformed input yields an empty
// query.
func Parse(raw string) Query {
	q := Query{Include: make(tags.Set), Exclude: make(tags.Set)}

	op := opInclude
	for _, part := range split(raw) {
		if part == opInclude || part == opExclude {
			op = part
			continue
		}

		tag := tags.Casefold(part)
		if tag == "" {
			continue
		}

		if op == opExclude {
			q.Exclude[tag] = struct{}{}
		} else {
			q.Include[tag] = struct{}{}
		}
		op = opInclude
	}

	return q
}

// split cuts raw around operators, keeping each operator as its own
// token. Tokens are trimmed and blank ones dropped.
func split(raw string) []string {
	var parts []string
	appendPart := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}

	last := 0
	for _, loc := range operatorPattern.FindAllStringIndex(raw, -1) {
		appendPart(raw[last:loc[0]])
		appendPart(raw[loc[0]:loc[1]])
		last = loc[1]
	}
	appendPart(raw[last:])

	return parts
}
