// Package variable substitutes {field} placeholders in naming and ad-copy
// patterns using row data.
//
// A placeholder may list fallbacks: {short_name|name} renders short_name when
// it has a non-empty value and name otherwise. Inline variation blocks such as
// [[Buy|Shop]] are left untouched by Substitute; see ExpandVariations.
package variable

import (
	"fmt"
	"regexp"
	"strings"

	"campaign-generator/internal/row"
)

var tokenRe = regexp.MustCompile(`\{([^{}]+)\}`)

// Warning reports a placeholder that could not be resolved from the row.
type Warning struct {
	Variable string `json:"variable"`
	Message  string `json:"message"`
}

// Result is the rendered text plus data-quality findings.
type Result struct {
	Text     string    `json:"text"`
	Warnings []Warning `json:"warnings"`
	// EmptyVariables lists names that resolved to an empty string.
	EmptyVariables []string `json:"emptyVariables,omitempty"`
}

type segment struct {
	literal string
	names   []string // nil for literal segments
}

// Template is a parsed pattern. It is immutable and safe to share.
type Template struct {
	pattern  string
	segments []segment
}

// Compile parses pattern once so it can be rendered against many rows.
func Compile(pattern string) *Template {
	t := &Template{pattern: pattern}
	last := 0
	for _, m := range tokenRe.FindAllStringSubmatchIndex(pattern, -1) {
		names := splitChain(pattern[m[2]:m[3]])
		if len(names) == 0 {
			continue
		}
		if m[0] > last {
			t.segments = append(t.segments, segment{literal: pattern[last:m[0]]})
		}
		t.segments = append(t.segments, segment{names: names})
		last = m[1]
	}
	if last < len(pattern) {
		t.segments = append(t.segments, segment{literal: pattern[last:]})
	}
	return t
}

func splitChain(inner string) []string {
	var names []string
	for _, part := range strings.Split(inner, "|") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Pattern returns the source pattern.
func (t *Template) Pattern() string { return t.pattern }

// Variables returns every referenced name, deduplicated, in order of first
// appearance. Every name of a fallback chain is included.
func (t *Template) Variables() []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, s := range t.segments {
		for _, n := range s.names {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}

// Render substitutes the template's placeholders from r.
func (t *Template) Render(r row.Row) Result {
	res := Result{Warnings: []Warning{}}
	if len(t.segments) == 0 {
		res.Text = t.pattern
		return res
	}

	var b strings.Builder
	b.Grow(len(t.pattern))
	for _, s := range t.segments {
		if s.names == nil {
			b.WriteString(s.literal)
			continue
		}
		text, empty, found := resolve(s.names, r)
		b.WriteString(text)
		if !found {
			res.Warnings = append(res.Warnings, Warning{
				Variable: s.names[0],
				Message:  missingMessage(s.names),
			})
			continue
		}
		if empty != "" {
			res.EmptyVariables = appendUnique(res.EmptyVariables, empty)
		}
	}
	res.Text = b.String()
	return res
}

// resolve walks a fallback chain. found is false when no name is present in
// the row; empty names the first present variable whose value rendered "".
func resolve(names []string, r row.Row) (text, empty string, found bool) {
	for _, n := range names {
		v, ok := r.Get(n)
		if !ok || v == nil {
			continue
		}
		s := row.String(v)
		if s != "" {
			return s, "", true
		}
		if !found {
			empty = n
			found = true
		}
	}
	return "", empty, found
}

func missingMessage(names []string) string {
	if len(names) == 1 {
		return fmt.Sprintf("variable %q not found in row", names[0])
	}
	return fmt.Sprintf("none of the variables %s found in row", strings.Join(quoteAll(names), ", "))
}

func quoteAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}

func appendUnique(list []string, s string) []string {
	for _, e := range list {
		if e == s {
			return list
		}
	}
	return append(list, s)
}

// Substitute renders pattern against r.
func Substitute(pattern string, r row.Row) Result {
	return Compile(pattern).Render(r)
}

// ExtractVariables returns the names pattern depends on.
func ExtractVariables(pattern string) []string {
	return Compile(pattern).Variables()
}

// HasVariables reports whether pattern contains at least one placeholder.
func HasVariables(pattern string) bool {
	return len(Compile(pattern).Variables()) > 0
}
