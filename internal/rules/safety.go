package rules

import (
	"fmt"
	"strings"
)

// MaxPatternLength is the longest regex accepted from rule configuration.
const MaxPatternLength = 100

// UnsafePatternError is returned for regexes whose shape is prone to
// catastrophic backtracking in backtracking engines. Rules are portable
// configuration, so the shapes are rejected even though RE2 would run them in
// linear time.
type UnsafePatternError struct {
	Pattern string
	Reason  string
}

func (e *UnsafePatternError) Error() string {
	return fmt.Sprintf("unsafe regex pattern %q: %s", e.Pattern, e.Reason)
}

type groupFrame struct {
	quantified bool // a quantifier appears somewhere inside the group
	alts       []string
}

func (f *groupFrame) write(s string) { f.alts[len(f.alts)-1] += s }

// CheckPattern rejects patterns longer than MaxPatternLength, groups that
// contain a quantifier and are themselves repeated ((a+)+), and repeated
// groups whose alternatives overlap ((a|ab)*).
func CheckPattern(pattern string) error {
	if n := len([]rune(pattern)); n > MaxPatternLength {
		return &UnsafePatternError{Pattern: pattern, Reason: fmt.Sprintf("length %d exceeds %d characters", n, MaxPatternLength)}
	}

	var stack []*groupFrame
	writeAll := func(s string) {
		for _, f := range stack {
			f.write(s)
		}
	}
	markQuantified := func() {
		for _, f := range stack {
			f.quantified = true
		}
	}

	rs := []rune(pattern)
	for i := 0; i < len(rs); i++ {
		c := rs[i]
		switch c {
		case '\\':
			if i+1 < len(rs) {
				writeAll(string(rs[i : i+2]))
				i++
			}
		case '[':
			j := classEnd(rs, i)
			writeAll(string(rs[i : j+1]))
			i = j
		case '(':
			writeAll("(")
			// skip group modifiers such as ?: ?i) ?P<name>
			if i+1 < len(rs) && rs[i+1] == '?' {
				j := i + 1
				for j < len(rs) && rs[j] != ':' && rs[j] != '>' && rs[j] != ')' {
					j++
				}
				if j < len(rs) && rs[j] == ')' {
					i = j // flag group like (?i) has no body
					writeAll(")")
					continue
				}
				i = j
			}
			stack = append(stack, &groupFrame{alts: make([]string, 1)})
		case ')':
			if len(stack) == 0 {
				return &UnsafePatternError{Pattern: pattern, Reason: "unbalanced parenthesis"}
			}
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			writeAll(")")

			if i+1 < len(rs) && isRepeat(rs[i+1]) {
				if f.quantified {
					return &UnsafePatternError{Pattern: pattern, Reason: "nested quantifier on a repeated group"}
				}
				if overlappingAlternatives(f) {
					return &UnsafePatternError{Pattern: pattern, Reason: "overlapping alternation inside a repeated group"}
				}
			}
			if f.quantified {
				markQuantified()
			}
		case '|':
			if len(stack) == 0 {
				continue
			}
			for _, f := range stack[:len(stack)-1] {
				f.write("|")
			}
			top := stack[len(stack)-1]
			top.alts = append(top.alts, "")
		case '+', '*', '{':
			markQuantified()
			writeAll(string(c))
		default:
			writeAll(string(c))
		}
	}
	if len(stack) > 0 {
		return &UnsafePatternError{Pattern: pattern, Reason: "unbalanced parenthesis"}
	}
	return nil
}

func isRepeat(r rune) bool { return r == '+' || r == '*' || r == '{' }

// classEnd returns the index of the ] closing the class opened at i.
func classEnd(rs []rune, i int) int {
	j := i + 1
	if j < len(rs) && rs[j] == '^' {
		j++
	}
	if j < len(rs) && rs[j] == ']' {
		j++
	}
	for ; j < len(rs); j++ {
		if rs[j] == '\\' {
			j++
			continue
		}
		if rs[j] == ']' {
			return j
		}
	}
	return len(rs) - 1
}

func overlappingAlternatives(f *groupFrame) bool {
	if len(f.alts) < 2 {
		return false
	}
	alts := f.alts
	for i := 0; i < len(alts); i++ {
		for j := i + 1; j < len(alts); j++ {
			a, b := alts[i], alts[j]
			if strings.HasPrefix(a, b) || strings.HasPrefix(b, a) {
				return true
			}
			if wildcardOverlap(firstAtom(a), firstAtom(b)) {
				return true
			}
		}
	}
	return false
}

func firstAtom(s string) string {
	if s == "" {
		return ""
	}
	if s[0] == '\\' && len(s) > 1 {
		return s[:2]
	}
	return s[:1]
}

// wildcardOverlap reports whether two leading atoms can match the same
// character because one of them is a broad class.
func wildcardOverlap(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	broad := func(x string) bool { return x == "." || x == `\w` || x == `\S` }
	word := func(x string) bool {
		if x == `\d` || x == `\w` {
			return true
		}
		if len(x) != 1 {
			return false
		}
		c := x[0]
		return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	}
	switch {
	case a == ".", b == ".":
		return true
	case broad(a) && word(b), broad(b) && word(a):
		return true
	}
	return false
}
