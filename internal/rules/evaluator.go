package rules

import (
	"encoding/json"
	"strconv"
	"strings"

	"campaign-generator/internal/row"
)

// Evaluator matches conditions against rows. The zero value compiles regex
// conditions on every call; set Regexes to reuse compiled patterns.
type Evaluator struct {
	Regexes *RegexCache
}

// EvaluateCondition reports whether r satisfies c.
func EvaluateCondition(c Condition, r row.Row) bool {
	return Evaluator{}.Condition(c, r)
}

// EvaluateGroup reports whether r satisfies g.
func EvaluateGroup(g ConditionGroup, r row.Row) bool {
	return Evaluator{}.Group(g, r)
}

// Group evaluates g. AND stops at the first false child and is true when
// empty; OR stops at the first true child and is false when empty.
func (e Evaluator) Group(g ConditionGroup, r row.Row) bool {
	return e.group(&g, r, 1)
}

func (e Evaluator) group(g *ConditionGroup, r row.Row, depth int) bool {
	if depth > MaxGroupDepth {
		return false
	}
	switch g.Logic {
	case LogicOr:
		for _, n := range g.Conditions {
			if e.node(n, r, depth) {
				return true
			}
		}
		return false
	default:
		for _, n := range g.Conditions {
			if !e.node(n, r, depth) {
				return false
			}
		}
		return true
	}
}

func (e Evaluator) node(n Node, r row.Row, depth int) bool {
	switch t := n.(type) {
	case *Condition:
		return t != nil && e.Condition(*t, r)
	case *ConditionGroup:
		return t != nil && e.group(t, r, depth+1)
	}
	return false
}

// Condition evaluates a single comparison. It never panics on odd input;
// an unusable comparison is simply false.
func (e Evaluator) Condition(c Condition, r row.Row) bool {
	field, present := r.Get(c.Field)
	if !present {
		field = nil
	}

	switch c.Operator {
	case OpIsEmpty:
		return row.IsEmpty(field)
	case OpIsNotEmpty:
		return !row.IsEmpty(field)
	case OpEquals:
		return equals(field, c.Value)
	case OpNotEquals:
		return !equals(field, c.Value)
	case OpContains:
		return strings.Contains(row.String(field), row.String(c.Value))
	case OpNotContains:
		return !strings.Contains(row.String(field), row.String(c.Value))
	case OpStartsWith:
		return strings.HasPrefix(row.String(field), row.String(c.Value))
	case OpEndsWith:
		return strings.HasSuffix(row.String(field), row.String(c.Value))
	case OpGreaterThan:
		return compare(field, c.Value) > 0
	case OpGreaterThanOrEqual:
		return compare(field, c.Value) >= 0
	case OpLessThan:
		return field != nil && compare(field, c.Value) < 0
	case OpLessThanOrEqual:
		return field != nil && compare(field, c.Value) <= 0
	case OpRegex:
		re, err := e.Regexes.Compile(row.String(c.Value))
		if err != nil {
			return false
		}
		return re.MatchString(row.String(field))
	case OpIn:
		return in(field, c.Value)
	case OpNotIn:
		return !in(field, c.Value)
	}
	return false
}

// equals compares numerically when the condition value is a number or
// boolean-wise when it is a boolean; otherwise it compares string forms.
func equals(field, want any) bool {
	switch w := want.(type) {
	case nil:
		return field == nil
	case bool:
		b, ok := toBool(field)
		return ok && b == w
	case string:
		return field != nil && row.String(field) == w
	default:
		if wn, ok := row.Number(want); ok {
			fn, ok := row.Number(field)
			return ok && fn == wn
		}
		return row.String(field) == row.String(want)
	}
}

// compare orders numerically when both sides parse as numbers and
// lexicographically otherwise.
func compare(field, want any) int {
	fn, fok := row.Number(field)
	wn, wok := row.Number(want)
	if fok && wok {
		switch {
		case fn < wn:
			return -1
		case fn > wn:
			return 1
		}
		return 0
	}
	return strings.Compare(row.String(field), row.String(want))
}

// in tests membership, coercing the field to each element's primitive type.
func in(field, list any) bool {
	var elems []any
	switch l := list.(type) {
	case []any:
		elems = l
	case []string:
		for _, s := range l {
			elems = append(elems, s)
		}
	case []float64:
		for _, f := range l {
			elems = append(elems, f)
		}
	case []int:
		for _, n := range l {
			elems = append(elems, n)
		}
	default:
		return false
	}

	for _, el := range elems {
		switch w := el.(type) {
		case string:
			if field != nil && row.String(field) == w {
				return true
			}
		case bool:
			if b, ok := toBool(field); ok && b == w {
				return true
			}
		case nil:
			if field == nil {
				return true
			}
		default:
			wn, wok := row.Number(w)
			fn, fok := row.Number(field)
			if wok && fok && wn == fn {
				return true
			}
		}
	}
	return false
}

func toBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return b, err == nil
	case json.Number, float64, int, int64:
		n, _ := row.Number(t)
		return n != 0, true
	}
	return false, false
}
